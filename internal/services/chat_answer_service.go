package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sports_trivia_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	historyTurns      = 6
	maxSerializedRows = 50

	interpretTemperature = 0.1
	formatTemperature    = 0.7
)

// queryPlan is the stage-1 model output.
type queryPlan struct {
	Query               string  `json:"query"`
	Confidence          float64 `json:"confidence"`
	ClarificationNeeded bool    `json:"clarificationNeeded"`
	Clarification       string  `json:"clarification"`
}

// formattedAnswer is the stage-2 model output.
type formattedAnswer struct {
	Answer                 string   `json:"answer"`
	Highlights             []string `json:"highlights"`
	SuggestedVisualization string   `json:"suggestedVisualization"`
	FollowUpQuestions      []string `json:"followUpQuestions"`
}

const apologyMessage = "Sorry, I ran into a problem answering that. Could you try rephrasing your question?"

// ChatAnswerService turns one user message into one persisted assistant
// message: interpret the question into SQL, execute it through the
// gate, then format the rows back into language.
type ChatAnswerService struct {
	gate    QueryGate
	llm     StructuredGenerator
	prompts PromptResolver
	store   ChatStore
	tracer  TraceRecorder // may be nil
	schema  string
	log     zerolog.Logger
}

func NewChatAnswerService(
	gate QueryGate,
	llm StructuredGenerator,
	prompts PromptResolver,
	store ChatStore,
	tracer TraceRecorder,
	schemaDescription string,
	log zerolog.Logger,
) *ChatAnswerService {
	return &ChatAnswerService{
		gate:    gate,
		llm:     llm,
		prompts: prompts,
		store:   store,
		tracer:  tracer,
		schema:  schemaDescription,
		log:     log,
	}
}

// AnswerMessage appends the user message, runs the two-stage pipeline
// and returns the persisted assistant message. Pipeline failures never
// propagate: they degrade to an apologetic assistant message while the
// cause is logged.
func (s *ChatAnswerService) AnswerMessage(ctx context.Context, sessionID uuid.UUID, question string) (*models.ChatMessage, error) {
	if _, err := s.store.AppendMessage(sessionID, "user", question, nil); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	var trace *Trace
	if s.tracer != nil {
		trace = s.tracer.StartTrace(ctx, "chat-answer", map[string]interface{}{
			"session_id": sessionID.String(),
		})
		defer func() {
			if err := s.tracer.Flush(ctx); err != nil {
				s.log.Warn().Err(err).Msg("trace flush failed")
			}
		}()
	}

	msg, err := s.runPipeline(ctx, sessionID, question, trace)
	if err != nil {
		s.log.Error().Err(err).
			Str("session_id", sessionID.String()).
			Msg("chat answering pipeline failed")
		meta := &models.MessageMetadata{TraceID: traceID(trace)}
		apology, persistErr := s.store.AppendMessage(sessionID, "assistant", apologyMessage, meta)
		if persistErr != nil {
			return nil, fmt.Errorf("failed to save fallback message: %w", persistErr)
		}
		return apology, nil
	}
	return msg, nil
}

func (s *ChatAnswerService) runPipeline(ctx context.Context, sessionID uuid.UUID, question string, trace *Trace) (*models.ChatMessage, error) {
	plan, err := s.interpret(ctx, sessionID, question, trace)
	if err != nil {
		return nil, err
	}

	// Clarification short-circuit: no query ever reaches the gate and
	// the persisted message carries no sql metadata.
	if plan.ClarificationNeeded || strings.TrimSpace(plan.Query) == "" {
		content := plan.Clarification
		if content == "" {
			content = "Could you make your question a bit more specific? For example, name the player, team or season you mean."
		}
		meta := &models.MessageMetadata{
			Confidence: plan.Confidence,
			TraceID:    traceID(trace),
		}
		return s.store.AppendMessage(sessionID, "assistant", content, meta)
	}

	rows, elapsedMs, err := s.gate.ExecuteReadOnly(ctx, plan.Query)
	if err != nil {
		return nil, err
	}

	formatted, err := s.format(ctx, question, plan.Query, rows, elapsedMs, trace)
	if err != nil {
		return nil, err
	}

	meta := &models.MessageMetadata{
		SQLQuery:        plan.Query,
		ExecutionTimeMs: elapsedMs,
		RowCount:        len(rows),
		Confidence:      plan.Confidence,
		Visualization:   formatted.SuggestedVisualization,
		TraceID:         traceID(trace),
	}
	return s.store.AppendMessage(sessionID, "assistant", formatted.Answer, meta)
}

func (s *ChatAnswerService) interpret(ctx context.Context, sessionID uuid.UUID, question string, trace *Trace) (queryPlan, error) {
	history, err := s.store.RecentMessages(sessionID, historyTurns)
	if err != nil {
		return queryPlan{}, fmt.Errorf("failed to load recent messages: %w", err)
	}

	system, user, err := s.prompts.Resolve(ctx, "sql-generator", map[string]string{
		"question": question,
		"history":  renderHistory(history),
		"schema":   s.schema,
	})
	if err != nil {
		return queryPlan{}, err
	}

	raw, _, err := s.generate(ctx, trace, "interpret", GenerationRequest{
		SystemInstruction: system,
		UserPrompt:        user,
		Temperature:       interpretTemperature,
		JSONMode:          true,
	})
	if err != nil {
		return queryPlan{}, err
	}
	return DecodeStructured[queryPlan](raw)
}

func (s *ChatAnswerService) format(ctx context.Context, question, query string, rows []map[string]interface{}, elapsedMs int64, trace *Trace) (formattedAnswer, error) {
	system, user, err := s.prompts.Resolve(ctx, "answer-formatter", map[string]string{
		"question":          question,
		"query":             query,
		"rows":              serializeRows(rows),
		"row_count":         strconv.Itoa(len(rows)),
		"execution_time_ms": strconv.FormatInt(elapsedMs, 10),
	})
	if err != nil {
		return formattedAnswer{}, err
	}

	raw, _, err := s.generate(ctx, trace, "format", GenerationRequest{
		SystemInstruction: system,
		UserPrompt:        user,
		Temperature:       formatTemperature,
		JSONMode:          true,
	})
	if err != nil {
		return formattedAnswer{}, err
	}
	return DecodeStructured[formattedAnswer](raw)
}

// generate wraps one model call with trace bookkeeping.
func (s *ChatAnswerService) generate(ctx context.Context, trace *Trace, name string, req GenerationRequest) (json.RawMessage, TokenUsage, error) {
	var span *GenerationSpan
	if s.tracer != nil {
		span = s.tracer.RecordGeneration(trace, name, req.Model, req.UserPrompt)
	}
	start := time.Now()
	raw, usage, err := s.llm.GenerateStructured(ctx, req)
	if s.tracer != nil {
		s.tracer.EndGeneration(span, string(raw), usage, time.Since(start).Milliseconds())
	}
	return raw, usage, err
}

func renderHistory(msgs []models.ChatMessage) string {
	if len(msgs) == 0 {
		return "(no prior turns)"
	}
	var sb strings.Builder
	for _, m := range msgs {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// serializeRows renders result rows as JSON for the formatter prompt,
// bounded to keep the prompt size in check.
func serializeRows(rows []map[string]interface{}) string {
	bounded := rows
	if len(bounded) > maxSerializedRows {
		bounded = bounded[:maxSerializedRows]
	}
	out, err := json.Marshal(bounded)
	if err != nil {
		return "[]"
	}
	return string(out)
}

func traceID(trace *Trace) string {
	if trace == nil {
		return ""
	}
	return trace.ID.String()
}
