package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	apperrors "sports_trivia_go_backend/internal/errors"
	"sports_trivia_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

// GenerationConfig holds the orchestrator's tunables.
type GenerationConfig struct {
	BufferMultiplier    float64 // over-generation factor for candidates
	MaxAttemptsPerRound int
	ExclusionLimit      int // previously asked questions passed as exclusion context
	QuestionTemperature float32
	AnswerTemperature   float32
	SchemaDescription   string
}

func DefaultGenerationConfig(schema string) GenerationConfig {
	return GenerationConfig{
		BufferMultiplier:    1.5,
		MaxAttemptsPerRound: 3,
		ExclusionLimit:      100,
		QuestionTemperature: 0.9,
		AnswerTemperature:   0.3,
		SchemaDescription:   schema,
	}
}

// questionCandidate is one generated (question, query) pair from the
// candidate buffer.
type questionCandidate struct {
	Question string `json:"question"`
	Query    string `json:"query"`
}

type candidateBatch struct {
	Candidates []questionCandidate `json:"candidates"`
}

// derivedAnswerSet is the answer-generator model output.
type derivedAnswerSet struct {
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
	Explanation      string   `json:"explanation"`
	EvidenceScore    float64  `json:"evidenceScore"`
}

// QuizGenerationService runs the per-round generation state machine:
// pending → sql_generated → answer_verified → round_created, with
// failed attempts consuming fresh candidates from an over-generated
// buffer. Rounds are processed strictly sequentially.
type QuizGenerationService struct {
	gate     QueryGate
	llm      StructuredGenerator
	prompts  PromptResolver
	store    QuizStore
	tracer   TraceRecorder     // may be nil
	progress ProgressPublisher // may be nil
	cfg      GenerationConfig
	log      zerolog.Logger
}

func NewQuizGenerationService(
	gate QueryGate,
	llm StructuredGenerator,
	prompts PromptResolver,
	store QuizStore,
	tracer TraceRecorder,
	progress ProgressPublisher,
	cfg GenerationConfig,
	log zerolog.Logger,
) *QuizGenerationService {
	if cfg.BufferMultiplier <= 1 {
		cfg.BufferMultiplier = 1.5
	}
	if cfg.MaxAttemptsPerRound <= 0 {
		cfg.MaxAttemptsPerRound = 3
	}
	if cfg.ExclusionLimit <= 0 {
		cfg.ExclusionLimit = 100
	}
	return &QuizGenerationService{
		gate:     gate,
		llm:      llm,
		prompts:  prompts,
		store:    store,
		tracer:   tracer,
		progress: progress,
		cfg:      cfg,
		log:      log,
	}
}

// jobEvent drives the per-job state machine.
type jobEvent string

const (
	eventSQLGenerated   jobEvent = "sql_generated"
	eventAnswerVerified jobEvent = "answer_verified"
	eventRoundCreated   jobEvent = "round_created"
	eventFailed         jobEvent = "failed"
	eventRetry          jobEvent = "retry"
)

// nextJobStatus is the pure transition function. Within an attempt a
// job only moves forward; a retry opens a new attempt from failed back
// to pending. round_created is terminal.
func nextJobStatus(current models.JobStatus, event jobEvent) (models.JobStatus, error) {
	switch event {
	case eventSQLGenerated:
		if current != models.JobPending {
			return current, fmt.Errorf("cannot move %s to sql_generated", current)
		}
		return models.JobSQLGenerated, nil
	case eventAnswerVerified:
		if current != models.JobSQLGenerated {
			return current, fmt.Errorf("cannot move %s to answer_verified", current)
		}
		return models.JobAnswerVerified, nil
	case eventRoundCreated:
		if current != models.JobAnswerVerified {
			return current, fmt.Errorf("cannot move %s to round_created", current)
		}
		return models.JobRoundCreated, nil
	case eventFailed:
		if current == models.JobRoundCreated {
			return current, fmt.Errorf("cannot fail a completed round")
		}
		return models.JobFailed, nil
	case eventRetry:
		if current != models.JobFailed {
			return current, fmt.Errorf("can only retry a failed job, not %s", current)
		}
		return models.JobPending, nil
	default:
		return current, fmt.Errorf("unknown job event %q", event)
	}
}

// GenerateGameRounds generates and persists one question and round per
// requested round of the game. It returns nil only when every round
// slot reached round_created; otherwise a GenerationExhaustedError
// carries the shortfall.
func (s *QuizGenerationService) GenerateGameRounds(ctx context.Context, game *models.QuizGame) error {
	var trace *Trace
	if s.tracer != nil {
		trace = s.tracer.StartTrace(ctx, "quiz-generation", map[string]interface{}{
			"game_id":    game.ID.String(),
			"num_rounds": game.NumRounds,
		})
		defer func() {
			if err := s.tracer.Flush(ctx); err != nil {
				s.log.Warn().Err(err).Msg("trace flush failed")
			}
		}()
	}

	jobs := make([]models.QuizGenerationJob, game.NumRounds)
	for i := range jobs {
		jobs[i] = models.QuizGenerationJob{
			GameID:      game.ID,
			RoundNumber: i + 1,
			Status:      models.JobPending,
		}
	}
	if err := s.store.CreateJobs(jobs); err != nil {
		return fmt.Errorf("failed to create generation jobs: %w", err)
	}

	candidates, err := s.generateCandidates(ctx, game, trace)
	if err != nil {
		return &apperrors.GenerationExhaustedError{Completed: 0, Requested: game.NumRounds, LastErr: err}
	}

	// Rounds run strictly sequentially: round k+1 does not start until
	// round k is terminal. Each failed attempt consumes the next
	// candidate; a failed candidate is never retried verbatim.
	cursor := 0
	completed := 0
	var lastErr error
	for roundIdx := range jobs {
		job := &jobs[roundIdx]
		done := false
		for !done && job.Attempts < s.cfg.MaxAttemptsPerRound {
			if cursor >= len(candidates) {
				return &apperrors.GenerationExhaustedError{Completed: completed, Requested: game.NumRounds, LastErr: lastErr}
			}
			candidate := candidates[cursor]
			cursor++

			if job.Status == models.JobFailed {
				if err := s.transition(job, eventRetry); err != nil {
					return err
				}
			}
			job.Attempts++

			if err := s.attemptRound(ctx, game, job, candidate, trace); err != nil {
				lastErr = err
				s.log.Warn().Err(err).
					Str("game_id", game.ID.String()).
					Int("round", job.RoundNumber).
					Int("attempt", job.Attempts).
					Msg("round generation attempt failed")
				job.ErrorText = err.Error()
				if terr := s.transition(job, eventFailed); terr != nil {
					return terr
				}
				continue
			}
			done = true
			completed++
		}
		if !done {
			return &apperrors.GenerationExhaustedError{Completed: completed, Requested: game.NumRounds, LastErr: lastErr}
		}
	}
	return nil
}

// generateCandidates requests ceil(numRounds × multiplier) candidates
// in one model call, passing low-usage prior questions as exclusion
// context.
func (s *QuizGenerationService) generateCandidates(ctx context.Context, game *models.QuizGame, trace *Trace) ([]questionCandidate, error) {
	prior, err := s.store.LeastUsedQuestions(game.Category, s.cfg.ExclusionLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior questions: %w", err)
	}

	count := int(math.Ceil(float64(game.NumRounds) * s.cfg.BufferMultiplier))
	categoryClause := ""
	if game.Category != "" {
		categoryClause = " about " + game.Category
	}

	system, user, err := s.prompts.Resolve(ctx, "question-generator", map[string]string{
		"count":              strconv.Itoa(count),
		"difficulty":         game.Difficulty,
		"category_clause":    categoryClause,
		"schema":             s.cfg.SchemaDescription,
		"excluded_questions": renderExclusions(prior),
	})
	if err != nil {
		return nil, err
	}

	raw, _, err := s.generate(ctx, trace, "question-generator", GenerationRequest{
		SystemInstruction: system,
		UserPrompt:        user,
		Temperature:       s.cfg.QuestionTemperature,
		JSONMode:          true,
	})
	if err != nil {
		return nil, err
	}

	batch, err := DecodeStructured[candidateBatch](raw)
	if err != nil {
		return nil, err
	}
	if len(batch.Candidates) == 0 {
		return nil, apperrors.NewUpstreamLLMError("model returned no candidates", string(raw))
	}
	return batch.Candidates, nil
}

// attemptRound drives one candidate through sql_generated →
// answer_verified → round_created, persisting the job after every
// transition.
func (s *QuizGenerationService) attemptRound(ctx context.Context, game *models.QuizGame, job *models.QuizGenerationJob, candidate questionCandidate, trace *Trace) error {
	job.QuestionText = candidate.Question
	job.GeneratedSQL = candidate.Query
	if err := s.transition(job, eventSQLGenerated); err != nil {
		return err
	}

	rows, _, err := s.gate.ExecuteReadOnly(ctx, candidate.Query)
	if err != nil {
		return err
	}
	// A question whose query returns no data has no verifiable answer.
	if len(rows) == 0 {
		return fmt.Errorf("candidate query returned zero rows")
	}
	if snapshot, merr := json.Marshal(rows); merr == nil {
		job.QueryResult = datatypes.JSON(snapshot)
	}

	answers, err := s.deriveAnswers(ctx, candidate, rows, trace)
	if err != nil {
		return err
	}
	if raw, merr := json.Marshal(answers); merr == nil {
		job.DerivedAnswers = datatypes.JSON(raw)
	}
	if err := s.transition(job, eventAnswerVerified); err != nil {
		return err
	}

	options := assembleOptions(answers.CorrectAnswer, answers.IncorrectAnswers)
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("failed to marshal answer options: %w", err)
	}

	question := &models.QuizQuestion{
		QuestionText:  candidate.Question,
		CorrectAnswer: answers.CorrectAnswer,
		AnswerOptions: datatypes.JSON(optionsJSON),
		Explanation:   answers.Explanation,
		Difficulty:    game.Difficulty,
		Category:      game.Category,
		SourceQuery:   candidate.Query,
	}
	round := &models.QuizRound{
		GameID:      game.ID,
		RoundNumber: job.RoundNumber,
	}
	if err := s.store.CreateQuestionWithRound(question, round); err != nil {
		return fmt.Errorf("failed to persist question and round: %w", err)
	}

	return s.transition(job, eventRoundCreated)
}

func (s *QuizGenerationService) deriveAnswers(ctx context.Context, candidate questionCandidate, rows []map[string]interface{}, trace *Trace) (derivedAnswerSet, error) {
	system, user, err := s.prompts.Resolve(ctx, "answer-generator", map[string]string{
		"question": candidate.Question,
		"query":    candidate.Query,
		"rows":     serializeRows(rows),
	})
	if err != nil {
		return derivedAnswerSet{}, err
	}

	raw, _, err := s.generate(ctx, trace, "answer-generator", GenerationRequest{
		SystemInstruction: system,
		UserPrompt:        user,
		Temperature:       s.cfg.AnswerTemperature,
		JSONMode:          true,
	})
	if err != nil {
		return derivedAnswerSet{}, err
	}

	answers, err := DecodeStructured[derivedAnswerSet](raw)
	if err != nil {
		return derivedAnswerSet{}, err
	}
	if strings.TrimSpace(answers.CorrectAnswer) == "" {
		return derivedAnswerSet{}, apperrors.NewUpstreamLLMError("empty correct answer", string(raw))
	}
	answers.IncorrectAnswers = dedupeDistractors(answers.CorrectAnswer, answers.IncorrectAnswers)
	if len(answers.IncorrectAnswers) == 0 {
		return derivedAnswerSet{}, apperrors.NewUpstreamLLMError("no usable distractors", string(raw))
	}
	return answers, nil
}

// transition applies the pure state machine, persists the job and
// publishes a progress event.
func (s *QuizGenerationService) transition(job *models.QuizGenerationJob, event jobEvent) error {
	next, err := nextJobStatus(job.Status, event)
	if err != nil {
		return err
	}
	job.Status = next
	if err := s.store.UpdateJob(job); err != nil {
		return fmt.Errorf("failed to persist job state: %w", err)
	}
	if s.progress != nil {
		s.progress.Publish("quiz_progress_"+job.GameID.String(), RoundProgress{
			RoundNumber: job.RoundNumber,
			Status:      job.Status,
			Attempts:    job.Attempts,
			Error:       job.ErrorText,
		})
	}
	return nil
}

func (s *QuizGenerationService) generate(ctx context.Context, trace *Trace, name string, req GenerationRequest) (json.RawMessage, TokenUsage, error) {
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

// RoundProgress is one round's generation state as reported to callers.
type RoundProgress struct {
	RoundNumber int              `json:"round_number"`
	Status      models.JobStatus `json:"status"`
	Attempts    int              `json:"attempts"`
	Error       string           `json:"error,omitempty"`
}

// GenerationProgress is the poll response for a game's generation run.
type GenerationProgress struct {
	GameID        uuid.UUID        `json:"game_id"`
	Completed     int              `json:"completed"`
	Total         int              `json:"total"`
	CurrentRound  int              `json:"current_round,omitempty"`
	CurrentStatus models.JobStatus `json:"current_status,omitempty"`
	ErrorText     string           `json:"error,omitempty"`
	Rounds        []RoundProgress  `json:"rounds"`
}

// Progress reports per-round job states for a game, the overall
// completed/total count, the in-flight round and any terminal error.
func (s *QuizGenerationService) Progress(ctx context.Context, gameID uuid.UUID) (*GenerationProgress, error) {
	jobs, err := s.store.JobsByGame(gameID)
	if err != nil {
		return nil, err
	}

	progress := &GenerationProgress{
		GameID: gameID,
		Total:  len(jobs),
		Rounds: make([]RoundProgress, 0, len(jobs)),
	}
	for _, job := range jobs {
		progress.Rounds = append(progress.Rounds, RoundProgress{
			RoundNumber: job.RoundNumber,
			Status:      job.Status,
			Attempts:    job.Attempts,
			Error:       job.ErrorText,
		})
		if job.Status == models.JobRoundCreated {
			progress.Completed++
		} else if progress.CurrentRound == 0 {
			progress.CurrentRound = job.RoundNumber
			progress.CurrentStatus = job.Status
		}
		if job.Status == models.JobFailed && job.ErrorText != "" {
			progress.ErrorText = job.ErrorText
		}
	}
	return progress, nil
}

func renderExclusions(prior []models.QuizQuestion) string {
	if len(prior) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, q := range prior {
		sb.WriteString("- ")
		sb.WriteString(q.QuestionText)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// dedupeDistractors drops blanks and anything that matches the correct
// answer, so the assembled option set contains the correct answer
// exactly once.
func dedupeDistractors(correct string, distractors []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(distractors))
	for _, d := range distractors {
		trimmed := strings.TrimSpace(d)
		if trimmed == "" || AnswersMatch(trimmed, correct) {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	return out
}

// assembleOptions shuffles correct + distractors into the presented
// order.
func assembleOptions(correct string, distractors []string) []string {
	options := make([]string, 0, len(distractors)+1)
	options = append(options, correct)
	options = append(options, distractors...)
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}
