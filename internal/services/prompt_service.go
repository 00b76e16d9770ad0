package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "sports_trivia_go_backend/internal/errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// PromptTemplate is a (system instruction, user template) pair.
type PromptTemplate struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// PromptStore is the remote prompt-management source.
type PromptStore interface {
	GetPrompt(ctx context.Context, name string) (PromptTemplate, error)
}

// RedisPromptStore reads managed prompts from redis under
// prompt:<name>, stored as JSON {system, user}. Prompt edits land in
// redis without a redeploy; the local map is the fallback.
type RedisPromptStore struct {
	client *redis.Client
}

func NewRedisPromptStore(client *redis.Client) *RedisPromptStore {
	return &RedisPromptStore{client: client}
}

func (s *RedisPromptStore) GetPrompt(ctx context.Context, name string) (PromptTemplate, error) {
	val, err := s.client.Get(ctx, "prompt:"+name).Result()
	if err != nil {
		return PromptTemplate{}, fmt.Errorf("fetch prompt %q: %w", name, err)
	}
	var tpl PromptTemplate
	if err := json.Unmarshal([]byte(val), &tpl); err != nil {
		return PromptTemplate{}, fmt.Errorf("malformed prompt %q: %w", name, err)
	}
	if tpl.User == "" {
		return PromptTemplate{}, fmt.Errorf("prompt %q has no user template", name)
	}
	return tpl, nil
}

// PromptService resolves named templates, remote first with local
// fallback, and substitutes {{variable}} placeholders.
type PromptService struct {
	remote PromptStore // nil means local only
	local  map[string]PromptTemplate
	log    zerolog.Logger
}

func NewPromptService(remote PromptStore, log zerolog.Logger) *PromptService {
	return &PromptService{
		remote: remote,
		local:  localPromptTemplates,
		log:    log,
	}
}

// Resolve returns the substituted (system, user) pair. Any remote
// failure falls back to the local template of the same name; only both
// missing is an error. Unresolved placeholders are left verbatim.
func (s *PromptService) Resolve(ctx context.Context, name string, vars map[string]string) (string, string, error) {
	tpl, err := s.fetch(ctx, name)
	if err != nil {
		return "", "", err
	}
	return substitute(tpl.System, vars), substitute(tpl.User, vars), nil
}

func (s *PromptService) fetch(ctx context.Context, name string) (PromptTemplate, error) {
	if s.remote != nil {
		tpl, err := s.remote.GetPrompt(ctx, name)
		if err == nil {
			return tpl, nil
		}
		s.log.Debug().Err(err).Str("prompt", name).Msg("remote prompt fetch failed, using local fallback")
	}
	if tpl, ok := s.local[name]; ok {
		return tpl, nil
	}
	return PromptTemplate{}, fmt.Errorf("%w: %q", apperrors.ErrPromptResolution, name)
}

func substitute(text string, vars map[string]string) string {
	for k, v := range vars {
		text = strings.ReplaceAll(text, "{{"+k+"}}", v)
	}
	return text
}
