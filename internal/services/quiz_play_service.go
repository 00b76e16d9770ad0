package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	apperrors "sports_trivia_go_backend/internal/errors"
	"sports_trivia_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxRoundsPerGame = 20

// CreateGameRequest is the validated input for game creation.
type CreateGameRequest struct {
	NumRounds  int    `json:"num_rounds" binding:"required"`
	Difficulty string `json:"difficulty" binding:"required"`
	Category   string `json:"category"`
}

// QuestionView is the player-facing question shape: it never exposes
// the correct answer or the source query.
type QuestionView struct {
	RoundNumber  int      `json:"round_number"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
	Difficulty   string   `json:"difficulty"`
	Category     string   `json:"category,omitempty"`
}

// QuizPlayService wraps game lifecycle and play around the generation
// core: create (with synchronous generation), start, read the current
// question, submit answers, advance rounds.
type QuizPlayService struct {
	store     QuizStore
	generator GameGenerator
	log       zerolog.Logger
}

func NewQuizPlayService(store QuizStore, generator GameGenerator, log zerolog.Logger) *QuizPlayService {
	return &QuizPlayService{store: store, generator: generator, log: log}
}

var validDifficulties = map[string]bool{"easy": true, "medium": true, "hard": true}

// CreateGame creates the game record and runs round generation to
// completion. A game that cannot be fully generated is marked abandoned
// and the exhaustion error surfaces: a partially generated game is
// never playable.
func (s *QuizPlayService) CreateGame(ctx context.Context, req CreateGameRequest) (*models.QuizGame, error) {
	if req.NumRounds < 1 || req.NumRounds > maxRoundsPerGame {
		return nil, apperrors.New400Error(fmt.Sprintf("num_rounds must be between 1 and %d", maxRoundsPerGame))
	}
	if !validDifficulties[req.Difficulty] {
		return nil, apperrors.New400Error("difficulty must be easy, medium or hard")
	}

	game := &models.QuizGame{
		Difficulty: req.Difficulty,
		Category:   req.Category,
		NumRounds:  req.NumRounds,
		Status:     models.GamePending,
	}
	if err := s.store.CreateGame(game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	if err := s.generator.GenerateGameRounds(ctx, game); err != nil {
		if serr := s.store.UpdateGameStatus(game.ID, models.GameAbandoned); serr != nil {
			s.log.Error().Err(serr).Str("game_id", game.ID.String()).Msg("failed to abandon game after generation failure")
		}
		return nil, err
	}
	return game, nil
}

// StartGame moves a pending game to in_progress at round 1.
func (s *QuizPlayService) StartGame(ctx context.Context, gameID uuid.UUID) (*models.QuizGame, error) {
	game, err := s.store.GetGameByID(gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GamePending {
		return nil, apperrors.New400Error(fmt.Sprintf("game is %s, only a pending game can be started", game.Status))
	}
	if err := s.store.UpdateGameStatus(game.ID, models.GameInProgress); err != nil {
		return nil, err
	}
	if err := s.store.SetCurrentRound(game.ID, 1); err != nil {
		return nil, err
	}
	game.Status = models.GameInProgress
	game.CurrentRound = 1
	return game, nil
}

// CurrentQuestion returns the question for the game's current round.
// Reading it does not advance anything: two reads without an advance
// return identical content.
func (s *QuizPlayService) CurrentQuestion(ctx context.Context, gameID uuid.UUID) (*QuestionView, error) {
	game, err := s.store.GetGameByID(gameID)
	if err != nil {
		return nil, err
	}
	if game.CurrentRound < 1 || game.CurrentRound > game.NumRounds {
		return nil, apperrors.New400Error("game has no current round")
	}
	round, err := s.store.RoundWithQuestion(game.ID, game.CurrentRound)
	if err != nil {
		return nil, err
	}

	var options []string
	if err := json.Unmarshal(round.Question.AnswerOptions, &options); err != nil {
		return nil, fmt.Errorf("failed to decode answer options: %w", err)
	}
	return &QuestionView{
		RoundNumber:  round.RoundNumber,
		QuestionText: round.Question.QuestionText,
		Options:      options,
		Difficulty:   round.Question.Difficulty,
		Category:     round.Question.Category,
	}, nil
}

// SubmitAnswer scores and records one player's answer for the game's
// current round.
func (s *QuizPlayService) SubmitAnswer(ctx context.Context, gameID, playerID uuid.UUID, submitted string, timeTaken float64) (*models.QuizAnswer, error) {
	game, err := s.store.GetGameByID(gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GameInProgress {
		return nil, apperrors.New400Error("answers can only be submitted to a game in progress")
	}
	round, err := s.store.RoundWithQuestion(game.ID, game.CurrentRound)
	if err != nil {
		return nil, err
	}

	correct := AnswersMatch(submitted, round.Question.CorrectAnswer)
	answer := &models.QuizAnswer{
		RoundID:       round.ID,
		PlayerID:      playerID,
		SubmittedText: submitted,
		IsCorrect:     correct,
		TimeTaken:     timeTaken,
		PointsEarned:  ScoreAnswer(correct, timeTaken),
	}
	if err := s.store.RecordAnswer(answer); err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}
	return answer, nil
}

// AdvanceRound moves the game to the next round; past the last round
// the game completes. current_round never exceeds num_rounds + 1.
func (s *QuizPlayService) AdvanceRound(ctx context.Context, gameID uuid.UUID) (*models.QuizGame, error) {
	game, err := s.store.GetGameByID(gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GameInProgress {
		return nil, apperrors.New400Error("only a game in progress can advance")
	}
	if game.CurrentRound > game.NumRounds {
		return game, nil
	}

	next := game.CurrentRound + 1
	if err := s.store.SetCurrentRound(game.ID, next); err != nil {
		return nil, err
	}
	game.CurrentRound = next
	if next > game.NumRounds {
		if err := s.store.UpdateGameStatus(game.ID, models.GameCompleted); err != nil {
			return nil, err
		}
		game.Status = models.GameCompleted
	}
	return game, nil
}

// PlayerScore is one player's aggregate over a game.
type PlayerScore struct {
	PlayerID     uuid.UUID `json:"player_id"`
	TotalPoints  int       `json:"total_points"`
	CorrectCount int       `json:"correct_count"`
	AnswerCount  int       `json:"answer_count"`
}

// GameSummaryView is the final scoreboard for a game.
type GameSummaryView struct {
	GameID     uuid.UUID         `json:"game_id"`
	Status     models.GameStatus `json:"status"`
	NumRounds  int               `json:"num_rounds"`
	Scoreboard []PlayerScore     `json:"scoreboard"`
}

// GameSummary aggregates every recorded answer into a per-player
// scoreboard, highest total first.
func (s *QuizPlayService) GameSummary(ctx context.Context, gameID uuid.UUID) (*GameSummaryView, error) {
	game, err := s.store.GetGameByID(gameID)
	if err != nil {
		return nil, err
	}
	answers, err := s.store.AnswersByGame(gameID)
	if err != nil {
		return nil, err
	}

	byPlayer := make(map[uuid.UUID]*PlayerScore)
	order := make([]uuid.UUID, 0)
	for _, a := range answers {
		score, ok := byPlayer[a.PlayerID]
		if !ok {
			score = &PlayerScore{PlayerID: a.PlayerID}
			byPlayer[a.PlayerID] = score
			order = append(order, a.PlayerID)
		}
		score.TotalPoints += a.PointsEarned
		score.AnswerCount++
		if a.IsCorrect {
			score.CorrectCount++
		}
	}

	scoreboard := make([]PlayerScore, 0, len(order))
	for _, id := range order {
		scoreboard = append(scoreboard, *byPlayer[id])
	}
	sort.SliceStable(scoreboard, func(i, j int) bool {
		return scoreboard[i].TotalPoints > scoreboard[j].TotalPoints
	})

	return &GameSummaryView{
		GameID:     game.ID,
		Status:     game.Status,
		NumRounds:  game.NumRounds,
		Scoreboard: scoreboard,
	}, nil
}
