package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"sports_trivia_go_backend/cmd/api/config"
	"sports_trivia_go_backend/internal/api"
	"sports_trivia_go_backend/internal/auth"
	"sports_trivia_go_backend/internal/database"
	"sports_trivia_go_backend/internal/services"
	"sports_trivia_go_backend/internal/utils/broker"
	"sports_trivia_go_backend/internal/wsocket"

	"github.com/gorilla/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// defaultSchemaDescription is used when SCHEMA_DESCRIPTION_FILE is not
// set. It describes the read-only sports statistics tables the
// generated SQL runs against.
const defaultSchemaDescription = `players(id, name, team_id, position, height_cm, weight_kg, born)
teams(id, name, city, conference, division, founded)
games(id, season, date, home_team_id, away_team_id, home_score, away_score)
player_game_stats(player_id, game_id, points, rebounds, assists, steals, blocks, turnovers, minutes)
season_totals(player_id, season, games_played, points, rebounds, assists, field_goal_pct, three_point_pct)`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	genaiAPIKey := os.Getenv("GOOGLE_AI_STUDIO_API_KEY")
	if genaiAPIKey == "" {
		log.Fatal("GOOGLE_AI_STUDIO_API_KEY is not set in the environment")
	}

	ctx := context.Background()
	cfg := config.NewConfig()

	database.InitDB()

	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(genaiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}
	defer genaiClient.Close()

	schemaDescription := defaultSchemaDescription
	if path := os.Getenv("SCHEMA_DESCRIPTION_FILE"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Failed to read schema description: %v", err)
		}
		schemaDescription = string(content)
	}

	// Redis holds operator-managed prompt overrides; without it the
	// loader serves the shipped local templates.
	var promptStore services.PromptStore
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		promptStore = services.NewRedisPromptStore(redisClient)
	} else {
		logger.Info().Msg("REDIS_ADDR not set, using local prompt templates only")
	}

	// Stores
	chatStore := services.NewChatStore(database.DB)
	quizStore := services.NewQuizStore(database.DB)

	// Core services
	gate := services.NewSQLGateService(database.DB, cfg.QueryTimeout)
	llmService := services.NewLLMService(genaiClient, cfg.DefaultModel, cfg.LLMCallTimeout)
	promptService := services.NewPromptService(promptStore, logger)
	tracer := services.NewLogTraceRecorder(logger)
	progressBroker := broker.NewBroker()

	chatAnswerService := services.NewChatAnswerService(
		gate,
		llmService,
		promptService,
		chatStore,
		tracer,
		schemaDescription,
		logger,
	)

	generationService := services.NewQuizGenerationService(
		gate,
		llmService,
		promptService,
		quizStore,
		tracer,
		progressBroker,
		services.GenerationConfig{
			BufferMultiplier:    cfg.BufferMultiplier,
			MaxAttemptsPerRound: cfg.MaxAttemptsPerRound,
			ExclusionLimit:      cfg.ExclusionLimit,
			QuestionTemperature: 0.9,
			AnswerTemperature:   0.3,
			SchemaDescription:   schemaDescription,
		},
		logger,
	)

	playService := services.NewQuizPlayService(quizStore, generationService, logger)

	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173"
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(allowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // TODO: restrict to ALLOWED_ORIGINS before exposing publicly
		},
	}

	wsHandler := wsocket.NewHandler(generationService, progressBroker, upgrader, cfg.ProgressPollInterval, logger)

	api.SetupRoutes(r, chatAnswerService, chatStore, playService, generationService, quizStore, cfg.ChatSessionTTL)
	auth.SetupRoutes(r, quizStore)

	r.GET("/ws/progress", auth.AuthMiddleware(quizStore), func(c *gin.Context) {
		wsHandler.HandleProgressSocket(c.Writer, c.Request)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
