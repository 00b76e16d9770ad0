package api

import (
	"net/http"

	apperrors "sports_trivia_go_backend/internal/errors"
	"sports_trivia_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func createGameHandler(playService *services.QuizPlayService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.CreateGameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.HandleError(c, apperrors.New400Error("num_rounds and difficulty are required"))
			return
		}
		game, err := playService.CreateGame(c.Request.Context(), req)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, game)
	}
}

func startGameHandler(playService *services.QuizPlayService) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, err := parseGameID(c)
		if err != nil {
			return
		}
		game, err := playService.StartGame(c.Request.Context(), gameID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, game)
	}
}

func currentQuestionHandler(playService *services.QuizPlayService) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, err := parseGameID(c)
		if err != nil {
			return
		}
		question, err := playService.CurrentQuestion(c.Request.Context(), gameID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, question)
	}
}

type submitAnswerRequest struct {
	Answer    string  `json:"answer" binding:"required"`
	TimeTaken float64 `json:"time_taken"`
}

func submitAnswerHandler(playService *services.QuizPlayService) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, err := parseGameID(c)
		if err != nil {
			return
		}
		player, ok := contextPlayer(c)
		if !ok {
			apperrors.HandleError(c, apperrors.New401Error())
			return
		}

		var req submitAnswerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.HandleError(c, apperrors.New400Error("answer is required"))
			return
		}

		answer, err := playService.SubmitAnswer(c.Request.Context(), gameID, player.ID, req.Answer, req.TimeTaken)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, answer)
	}
}

func advanceRoundHandler(playService *services.QuizPlayService) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, err := parseGameID(c)
		if err != nil {
			return
		}
		game, err := playService.AdvanceRound(c.Request.Context(), gameID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, game)
	}
}

func gameSummaryHandler(playService *services.QuizPlayService) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, err := parseGameID(c)
		if err != nil {
			return
		}
		summary, err := playService.GameSummary(c.Request.Context(), gameID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func generationProgressHandler(generationService *services.QuizGenerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, err := parseGameID(c)
		if err != nil {
			return
		}
		progress, err := generationService.Progress(c.Request.Context(), gameID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, progress)
	}
}

func parseGameID(c *gin.Context) (uuid.UUID, error) {
	gameID, err := uuid.Parse(c.Param("game_id"))
	if err != nil {
		apperrors.HandleError(c, apperrors.New400Error("invalid game id"))
		return uuid.Nil, err
	}
	return gameID, nil
}
