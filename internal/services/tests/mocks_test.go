package services_test

import (
	"context"
	"encoding/json"
	"time"

	"sports_trivia_go_backend/internal/models"
	"sports_trivia_go_backend/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockQueryGate struct {
	mock.Mock
}

func (m *MockQueryGate) ExecuteReadOnly(ctx context.Context, query string) ([]map[string]interface{}, int64, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]map[string]interface{}), args.Get(1).(int64), args.Error(2)
}

type MockStructuredGenerator struct {
	mock.Mock
}

func (m *MockStructuredGenerator) GenerateStructured(ctx context.Context, req services.GenerationRequest) (json.RawMessage, services.TokenUsage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Get(1).(services.TokenUsage), args.Error(2)
	}
	return args.Get(0).(json.RawMessage), args.Get(1).(services.TokenUsage), args.Error(2)
}

type MockPromptResolver struct {
	mock.Mock
}

func (m *MockPromptResolver) Resolve(ctx context.Context, name string, vars map[string]string) (string, string, error) {
	args := m.Called(ctx, name, vars)
	return args.String(0), args.String(1), args.Error(2)
}

type MockChatStore struct {
	mock.Mock
}

func (m *MockChatStore) CreateSession(playerID *uuid.UUID, ttl time.Duration) (*models.ChatSession, error) {
	args := m.Called(playerID, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockChatStore) GetSessionByID(id uuid.UUID) (*models.ChatSession, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockChatStore) AppendMessage(sessionID uuid.UUID, role, content string, metadata *models.MessageMetadata) (*models.ChatMessage, error) {
	args := m.Called(sessionID, role, content, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockChatStore) RecentMessages(sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	args := m.Called(sessionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *MockChatStore) MessagesBySession(sessionID uuid.UUID) ([]models.ChatMessage, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

type MockQuizStore struct {
	mock.Mock
}

func (m *MockQuizStore) CreateGame(game *models.QuizGame) error {
	args := m.Called(game)
	return args.Error(0)
}

func (m *MockQuizStore) GetGameByID(id uuid.UUID) (*models.QuizGame, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizGame), args.Error(1)
}

func (m *MockQuizStore) UpdateGameStatus(id uuid.UUID, status models.GameStatus) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *MockQuizStore) SetCurrentRound(id uuid.UUID, round int) error {
	args := m.Called(id, round)
	return args.Error(0)
}

func (m *MockQuizStore) CreateQuestionWithRound(question *models.QuizQuestion, round *models.QuizRound) error {
	args := m.Called(question, round)
	return args.Error(0)
}

func (m *MockQuizStore) RoundWithQuestion(gameID uuid.UUID, roundNumber int) (*models.QuizRound, error) {
	args := m.Called(gameID, roundNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizRound), args.Error(1)
}

func (m *MockQuizStore) LeastUsedQuestions(category string, limit int) ([]models.QuizQuestion, error) {
	args := m.Called(category, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QuizQuestion), args.Error(1)
}

func (m *MockQuizStore) RecordAnswer(answer *models.QuizAnswer) error {
	args := m.Called(answer)
	return args.Error(0)
}

func (m *MockQuizStore) AnswersByGame(gameID uuid.UUID) ([]models.QuizAnswer, error) {
	args := m.Called(gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QuizAnswer), args.Error(1)
}

func (m *MockQuizStore) CreateJobs(jobs []models.QuizGenerationJob) error {
	args := m.Called(jobs)
	return args.Error(0)
}

func (m *MockQuizStore) UpdateJob(job *models.QuizGenerationJob) error {
	args := m.Called(job)
	return args.Error(0)
}

func (m *MockQuizStore) JobsByGame(gameID uuid.UUID) ([]models.QuizGenerationJob, error) {
	args := m.Called(gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QuizGenerationJob), args.Error(1)
}

func (m *MockQuizStore) CreateOrUpdatePlayer(subjectID, name, nickname string) (*models.Player, error) {
	args := m.Called(subjectID, name, nickname)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Player), args.Error(1)
}

type MockGameGenerator struct {
	mock.Mock
}

func (m *MockGameGenerator) GenerateGameRounds(ctx context.Context, game *models.QuizGame) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}
