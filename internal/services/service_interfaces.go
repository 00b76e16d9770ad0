package services

import (
	"context"
	"encoding/json"

	"sports_trivia_go_backend/internal/models"
)

// QueryGate mediates all LLM-authored SQL. Nothing else in the system
// is allowed to execute dynamically generated statements.
type QueryGate interface {
	ExecuteReadOnly(ctx context.Context, query string) ([]map[string]interface{}, int64, error)
}

// StructuredGenerator sends one structured prompt to the inference
// service and returns raw JSON output plus token usage.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, req GenerationRequest) (json.RawMessage, TokenUsage, error)
}

// PromptResolver resolves a named template pair and substitutes
// {{variable}} placeholders. Unresolved placeholders stay verbatim.
type PromptResolver interface {
	Resolve(ctx context.Context, name string, vars map[string]string) (system string, user string, err error)
}

// TraceRecorder is optional observability. Every method tolerates nil
// handles; a nil recorder only removes trace identifiers from output
// metadata.
type TraceRecorder interface {
	StartTrace(ctx context.Context, name string, metadata map[string]interface{}) *Trace
	RecordGeneration(trace *Trace, name, model, input string) *GenerationSpan
	EndGeneration(span *GenerationSpan, output string, usage TokenUsage, latencyMs int64)
	Flush(ctx context.Context) error
}

// GameGenerator runs the round-generation pipeline for a created game.
type GameGenerator interface {
	GenerateGameRounds(ctx context.Context, game *models.QuizGame) error
}

// ProgressPublisher fans generation progress events out to in-process
// subscribers (the websocket layer).
type ProgressPublisher interface {
	Publish(topic string, msg interface{})
}
