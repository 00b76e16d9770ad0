package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "sports_trivia_go_backend/internal/errors"

	"github.com/google/generative-ai-go/genai"
)

// GenerationRequest carries one structured prompt to the inference
// service.
type GenerationRequest struct {
	SystemInstruction string
	UserPrompt        string
	Temperature       float32
	MaxOutputTokens   int32
	JSONMode          bool
	Model             string // empty means the service default
}

type TokenUsage struct {
	PromptTokens     int32 `json:"prompt_tokens"`
	CompletionTokens int32 `json:"completion_tokens"`
	TotalTokens      int32 `json:"total_tokens"`
}

// GenerativeModelProvider is the slice of *genai.Client the service
// needs.
type GenerativeModelProvider interface {
	GenerativeModel(name string) *genai.GenerativeModel
}

// LLMService wraps the GenAI client. It is stateless apart from a
// memoization of model handles keyed by model name; handles are copied
// before per-request options are applied, so the cache is safe for
// concurrent use.
type LLMService struct {
	client       GenerativeModelProvider
	defaultModel string
	callTimeout  time.Duration

	mu     sync.Mutex
	models map[string]*genai.GenerativeModel
}

func NewLLMService(client GenerativeModelProvider, defaultModel string, callTimeout time.Duration) *LLMService {
	if defaultModel == "" {
		defaultModel = "gemini-1.5-flash-001"
	}
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &LLMService{
		client:       client,
		defaultModel: defaultModel,
		callTimeout:  callTimeout,
		models:       make(map[string]*genai.GenerativeModel),
	}
}

func (s *LLMService) modelHandle(name string) *genai.GenerativeModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.models[name]; ok {
		return m
	}
	m := s.client.GenerativeModel(name)
	s.models[name] = m
	return m
}

// GenerateStructured sends the prompt and returns the model's output as
// validated raw JSON plus token usage.
func (s *LLMService) GenerateStructured(ctx context.Context, req GenerationRequest) (json.RawMessage, TokenUsage, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = s.defaultModel
	}

	// Work on a copy so per-request options never touch the shared
	// handle.
	model := *s.modelHandle(modelName)
	model.SetTemperature(req.Temperature)
	if req.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(req.MaxOutputTokens)
	}
	if req.JSONMode {
		model.ResponseMIMEType = "application/json"
	}
	if req.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemInstruction)},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	resp, err := model.GenerateContent(ctx, genai.Text(req.UserPrompt))
	if err != nil {
		return nil, TokenUsage{}, fmt.Errorf("generate content: %w", err)
	}

	text := responseText(resp)
	usage := usageFrom(resp)

	raw, err := extractJSON(text)
	if err != nil {
		return nil, usage, err
	}
	return raw, usage, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String()
}

func usageFrom(resp *genai.GenerateContentResponse) TokenUsage {
	if resp.UsageMetadata == nil {
		return TokenUsage{}
	}
	return TokenUsage{
		PromptTokens:     resp.UsageMetadata.PromptTokenCount,
		CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      resp.UsageMetadata.TotalTokenCount,
	}
}

// extractJSON strips markdown code fences the model sometimes adds and
// verifies the remainder is well-formed JSON.
func extractJSON(text string) (json.RawMessage, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	if cleaned == "" {
		return nil, apperrors.NewUpstreamLLMError("empty model output", text)
	}
	if !json.Valid([]byte(cleaned)) {
		return nil, apperrors.NewUpstreamLLMError("model output is not valid JSON", cleaned)
	}
	return json.RawMessage(cleaned), nil
}

// DecodeStructured decodes validated raw output into a typed value,
// keeping the malformed-output failure mode a first-class branch.
func DecodeStructured[T any](raw json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, apperrors.NewUpstreamLLMError(fmt.Sprintf("decode %T: %v", out, err), string(raw))
	}
	return out, nil
}
