package api

import (
	"net/http"
	"time"

	"sports_trivia_go_backend/internal/auth"
	apperrors "sports_trivia_go_backend/internal/errors"
	"sports_trivia_go_backend/internal/models"
	"sports_trivia_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func SetupRoutes(
	r *gin.Engine,
	chatAnswerService *services.ChatAnswerService,
	chatStore services.ChatStore,
	playService *services.QuizPlayService,
	generationService *services.QuizGenerationService,
	quizStore services.QuizStore,
	chatSessionTTL time.Duration,
) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/chat/sessions", auth.AuthMiddleware(quizStore), createChatSessionHandler(chatStore, chatSessionTTL))
		api.GET("/chat/sessions/:session_id/messages", auth.AuthMiddleware(quizStore), listMessagesHandler(chatStore))
		api.POST("/chat/sessions/:session_id/messages", auth.AuthMiddleware(quizStore), sendMessageHandler(chatAnswerService, chatStore))

		api.POST("/quiz/games", auth.AuthMiddleware(quizStore), createGameHandler(playService))
		api.POST("/quiz/games/:game_id/start", auth.AuthMiddleware(quizStore), startGameHandler(playService))
		api.GET("/quiz/games/:game_id/question", auth.AuthMiddleware(quizStore), currentQuestionHandler(playService))
		api.POST("/quiz/games/:game_id/answers", auth.AuthMiddleware(quizStore), submitAnswerHandler(playService))
		api.POST("/quiz/games/:game_id/advance", auth.AuthMiddleware(quizStore), advanceRoundHandler(playService))
		api.GET("/quiz/games/:game_id/progress", auth.AuthMiddleware(quizStore), generationProgressHandler(generationService))
		api.GET("/quiz/games/:game_id/summary", auth.AuthMiddleware(quizStore), gameSummaryHandler(playService))
	}
}

func createChatSessionHandler(chatStore services.ChatStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var playerID *uuid.UUID
		if player, ok := contextPlayer(c); ok {
			playerID = &player.ID
		}
		session, err := chatStore.CreateSession(playerID, ttl)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, session)
	}
}

func listMessagesHandler(chatStore services.ChatStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := uuid.Parse(c.Param("session_id"))
		if err != nil {
			apperrors.HandleError(c, apperrors.New400Error("invalid session id"))
			return
		}
		msgs, err := chatStore.MessagesBySession(sessionID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func sendMessageHandler(chatAnswerService *services.ChatAnswerService, chatStore services.ChatStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := uuid.Parse(c.Param("session_id"))
		if err != nil {
			apperrors.HandleError(c, apperrors.New400Error("invalid session id"))
			return
		}
		if _, err := chatStore.GetSessionByID(sessionID); err != nil {
			apperrors.HandleError(c, apperrors.New404Error("chat session not found"))
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.HandleError(c, apperrors.New400Error("content is required"))
			return
		}

		msg, err := chatAnswerService.AnswerMessage(c.Request.Context(), sessionID, req.Content)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}

func contextPlayer(c *gin.Context) (*models.Player, bool) {
	v, exists := c.Get("player")
	if !exists {
		return nil, false
	}
	player, ok := v.(*models.Player)
	return player, ok
}
