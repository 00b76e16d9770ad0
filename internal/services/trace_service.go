package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Trace is a handle for one orchestrator run.
type Trace struct {
	ID    uuid.UUID
	Name  string
	start time.Time
}

// GenerationSpan is a handle for one model call inside a trace.
type GenerationSpan struct {
	TraceID uuid.UUID
	Name    string
	Model   string
	input   string
	start   time.Time
}

// LogTraceRecorder records traces and generations as structured log
// events. Flush is awaited on the request path; with this recorder it
// is a no-op because events are written synchronously.
type LogTraceRecorder struct {
	log zerolog.Logger
}

func NewLogTraceRecorder(log zerolog.Logger) *LogTraceRecorder {
	return &LogTraceRecorder{log: log}
}

func (r *LogTraceRecorder) StartTrace(ctx context.Context, name string, metadata map[string]interface{}) *Trace {
	t := &Trace{ID: uuid.New(), Name: name, start: time.Now()}
	r.log.Info().
		Str("trace_id", t.ID.String()).
		Str("trace", name).
		Fields(metadata).
		Msg("trace started")
	return t
}

func (r *LogTraceRecorder) RecordGeneration(trace *Trace, name, model, input string) *GenerationSpan {
	if trace == nil {
		return nil
	}
	return &GenerationSpan{
		TraceID: trace.ID,
		Name:    name,
		Model:   model,
		input:   input,
		start:   time.Now(),
	}
}

func (r *LogTraceRecorder) EndGeneration(span *GenerationSpan, output string, usage TokenUsage, latencyMs int64) {
	if span == nil {
		return
	}
	r.log.Info().
		Str("trace_id", span.TraceID.String()).
		Str("generation", span.Name).
		Str("model", span.Model).
		Int32("prompt_tokens", usage.PromptTokens).
		Int32("completion_tokens", usage.CompletionTokens).
		Int32("total_tokens", usage.TotalTokens).
		Int64("latency_ms", latencyMs).
		Msg("generation finished")
}

func (r *LogTraceRecorder) Flush(ctx context.Context) error {
	return nil
}
