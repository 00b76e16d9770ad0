package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"sports_trivia_go_backend/internal/models"
	"sports_trivia_go_backend/internal/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSchema = "players(id, name), season_totals(player_id, season, points)"

func newChatAnswerService(gate *MockQueryGate, llm *MockStructuredGenerator, prompts *MockPromptResolver, store *MockChatStore) *services.ChatAnswerService {
	return services.NewChatAnswerService(gate, llm, prompts, store, nil, testSchema, zerolog.Nop())
}

func TestAnswerMessageSuccess(t *testing.T) {
	gate := new(MockQueryGate)
	llm := new(MockStructuredGenerator)
	prompts := new(MockPromptResolver)
	store := new(MockChatStore)
	service := newChatAnswerService(gate, llm, prompts, store)

	sessionID := uuid.New()
	question := "Who scored the most points in 2023?"

	store.On("AppendMessage", sessionID, "user", question, (*models.MessageMetadata)(nil)).
		Return(&models.ChatMessage{Role: "user", Content: question}, nil).Once()
	store.On("RecentMessages", sessionID, mock.AnythingOfType("int")).
		Return([]models.ChatMessage{}, nil).Once()

	prompts.On("Resolve", mock.Anything, "sql-generator", mock.Anything).
		Return("interpret system", "interpret user", nil).Once()
	llm.On("GenerateStructured", mock.Anything, mock.MatchedBy(func(req services.GenerationRequest) bool {
		return req.SystemInstruction == "interpret system" && req.JSONMode
	})).Return(json.RawMessage(`{"query": "SELECT name, points FROM season_totals", "confidence": 0.92, "clarificationNeeded": false}`), services.TokenUsage{TotalTokens: 80}, nil).Once()

	rows := []map[string]interface{}{{"name": "Jokic", "points": 2085}}
	gate.On("ExecuteReadOnly", mock.Anything, "SELECT name, points FROM season_totals").
		Return(rows, int64(12), nil).Once()

	prompts.On("Resolve", mock.Anything, "answer-formatter", mock.Anything).
		Return("format system", "format user", nil).Once()
	llm.On("GenerateStructured", mock.Anything, mock.MatchedBy(func(req services.GenerationRequest) bool {
		return req.SystemInstruction == "format system"
	})).Return(json.RawMessage(`{"answer": "Jokic led with 2085 points.", "highlights": ["2085 points"], "suggestedVisualization": "bar", "followUpQuestions": []}`), services.TokenUsage{TotalTokens: 60}, nil).Once()

	var capturedMeta *models.MessageMetadata
	store.On("AppendMessage", sessionID, "assistant", "Jokic led with 2085 points.", mock.AnythingOfType("*models.MessageMetadata")).
		Run(func(args mock.Arguments) {
			capturedMeta = args.Get(3).(*models.MessageMetadata)
		}).
		Return(&models.ChatMessage{Role: "assistant", Content: "Jokic led with 2085 points."}, nil).Once()

	msg, err := service.AnswerMessage(context.Background(), sessionID, question)

	require.NoError(t, err)
	assert.Equal(t, "assistant", msg.Role)
	require.NotNil(t, capturedMeta)
	assert.Equal(t, "SELECT name, points FROM season_totals", capturedMeta.SQLQuery)
	assert.Equal(t, int64(12), capturedMeta.ExecutionTimeMs)
	assert.Equal(t, 1, capturedMeta.RowCount)
	assert.Equal(t, 0.92, capturedMeta.Confidence)
	assert.Equal(t, "bar", capturedMeta.Visualization)

	gate.AssertExpectations(t)
	llm.AssertExpectations(t)
	prompts.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestAnswerMessageClarificationShortCircuit(t *testing.T) {
	gate := new(MockQueryGate)
	llm := new(MockStructuredGenerator)
	prompts := new(MockPromptResolver)
	store := new(MockChatStore)
	service := newChatAnswerService(gate, llm, prompts, store)

	sessionID := uuid.New()
	question := "How good was he?"

	store.On("AppendMessage", sessionID, "user", question, (*models.MessageMetadata)(nil)).
		Return(&models.ChatMessage{}, nil).Once()
	store.On("RecentMessages", sessionID, mock.AnythingOfType("int")).
		Return([]models.ChatMessage{}, nil).Once()
	prompts.On("Resolve", mock.Anything, "sql-generator", mock.Anything).
		Return("sys", "user", nil).Once()
	llm.On("GenerateStructured", mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"query": "", "confidence": 0.2, "clarificationNeeded": true, "clarification": "Which player do you mean?"}`), services.TokenUsage{}, nil).Once()

	var capturedMeta *models.MessageMetadata
	store.On("AppendMessage", sessionID, "assistant", "Which player do you mean?", mock.AnythingOfType("*models.MessageMetadata")).
		Run(func(args mock.Arguments) {
			capturedMeta = args.Get(3).(*models.MessageMetadata)
		}).
		Return(&models.ChatMessage{Role: "assistant", Content: "Which player do you mean?"}, nil).Once()

	msg, err := service.AnswerMessage(context.Background(), sessionID, question)

	require.NoError(t, err)
	assert.Equal(t, "Which player do you mean?", msg.Content)

	// No query ever reaches the gate and the persisted metadata carries
	// no sql_query.
	gate.AssertNotCalled(t, "ExecuteReadOnly", mock.Anything, mock.Anything)
	require.NotNil(t, capturedMeta)
	assert.Empty(t, capturedMeta.SQLQuery)
	assert.Zero(t, capturedMeta.RowCount)

	store.AssertExpectations(t)
}

func TestAnswerMessageDegradesToApology(t *testing.T) {
	gate := new(MockQueryGate)
	llm := new(MockStructuredGenerator)
	prompts := new(MockPromptResolver)
	store := new(MockChatStore)
	service := newChatAnswerService(gate, llm, prompts, store)

	sessionID := uuid.New()
	question := "Top rebounders of 2022?"

	store.On("AppendMessage", sessionID, "user", question, (*models.MessageMetadata)(nil)).
		Return(&models.ChatMessage{}, nil).Once()
	store.On("RecentMessages", sessionID, mock.AnythingOfType("int")).
		Return([]models.ChatMessage{}, nil).Once()
	prompts.On("Resolve", mock.Anything, "sql-generator", mock.Anything).
		Return("sys", "user", nil).Once()
	llm.On("GenerateStructured", mock.Anything, mock.Anything).
		Return(nil, services.TokenUsage{}, errors.New("model unavailable")).Once()

	store.On("AppendMessage", sessionID, "assistant", mock.AnythingOfType("string"), mock.AnythingOfType("*models.MessageMetadata")).
		Return(&models.ChatMessage{Role: "assistant", Content: "Sorry, I ran into a problem answering that. Could you try rephrasing your question?"}, nil).Once()

	msg, err := service.AnswerMessage(context.Background(), sessionID, question)

	// The pipeline failure never propagates to the caller.
	require.NoError(t, err)
	assert.Contains(t, msg.Content, "Sorry")

	gate.AssertNotCalled(t, "ExecuteReadOnly", mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestAnswerMessageGateRejectionDegrades(t *testing.T) {
	gate := new(MockQueryGate)
	llm := new(MockStructuredGenerator)
	prompts := new(MockPromptResolver)
	store := new(MockChatStore)
	service := newChatAnswerService(gate, llm, prompts, store)

	sessionID := uuid.New()
	question := "Delete my stats"

	store.On("AppendMessage", sessionID, "user", question, (*models.MessageMetadata)(nil)).
		Return(&models.ChatMessage{}, nil).Once()
	store.On("RecentMessages", sessionID, mock.AnythingOfType("int")).
		Return([]models.ChatMessage{}, nil).Once()
	prompts.On("Resolve", mock.Anything, "sql-generator", mock.Anything).
		Return("sys", "user", nil).Once()
	llm.On("GenerateStructured", mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"query": "DELETE FROM season_totals", "confidence": 0.8}`), services.TokenUsage{}, nil).Once()
	gate.On("ExecuteReadOnly", mock.Anything, "DELETE FROM season_totals").
		Return(nil, int64(0), errors.New("sql safety violation")).Once()

	store.On("AppendMessage", sessionID, "assistant", mock.AnythingOfType("string"), mock.AnythingOfType("*models.MessageMetadata")).
		Return(&models.ChatMessage{Role: "assistant", Content: "Sorry, I ran into a problem answering that. Could you try rephrasing your question?"}, nil).Once()

	msg, err := service.AnswerMessage(context.Background(), sessionID, question)

	require.NoError(t, err)
	assert.Contains(t, msg.Content, "Sorry")
	gate.AssertExpectations(t)
}
