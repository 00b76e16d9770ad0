package services

import (
	"sports_trivia_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuizStore defines persistence for games, questions, rounds, answers,
// generation jobs and players. All statements are parameterized; the
// only dynamic SQL in the system goes through the query gate.
type QuizStore interface {
	CreateGame(game *models.QuizGame) error
	GetGameByID(id uuid.UUID) (*models.QuizGame, error)
	UpdateGameStatus(id uuid.UUID, status models.GameStatus) error
	SetCurrentRound(id uuid.UUID, round int) error

	CreateQuestionWithRound(question *models.QuizQuestion, round *models.QuizRound) error
	RoundWithQuestion(gameID uuid.UUID, roundNumber int) (*models.QuizRound, error)
	LeastUsedQuestions(category string, limit int) ([]models.QuizQuestion, error)

	RecordAnswer(answer *models.QuizAnswer) error
	AnswersByGame(gameID uuid.UUID) ([]models.QuizAnswer, error)

	CreateJobs(jobs []models.QuizGenerationJob) error
	UpdateJob(job *models.QuizGenerationJob) error
	JobsByGame(gameID uuid.UUID) ([]models.QuizGenerationJob, error)

	CreateOrUpdatePlayer(subjectID, name, nickname string) (*models.Player, error)
}

// DefaultQuizStore implements QuizStore
type DefaultQuizStore struct {
	db *gorm.DB
}

func NewQuizStore(db *gorm.DB) QuizStore {
	return &DefaultQuizStore{db: db}
}

func (s *DefaultQuizStore) CreateGame(game *models.QuizGame) error {
	return s.db.Create(game).Error
}

func (s *DefaultQuizStore) GetGameByID(id uuid.UUID) (*models.QuizGame, error) {
	var game models.QuizGame
	if err := s.db.First(&game, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *DefaultQuizStore) UpdateGameStatus(id uuid.UUID, status models.GameStatus) error {
	return s.db.Model(&models.QuizGame{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *DefaultQuizStore) SetCurrentRound(id uuid.UUID, round int) error {
	return s.db.Model(&models.QuizGame{}).
		Where("id = ?", id).
		Update("current_round", round).Error
}

// CreateQuestionWithRound persists the question and its round link in
// one transaction so a crash never leaves a question without a round.
func (s *DefaultQuizStore) CreateQuestionWithRound(question *models.QuizQuestion, round *models.QuizRound) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(question).Error; err != nil {
			return err
		}
		round.QuestionID = question.ID
		return tx.Create(round).Error
	})
}

func (s *DefaultQuizStore) RoundWithQuestion(gameID uuid.UUID, roundNumber int) (*models.QuizRound, error) {
	var round models.QuizRound
	err := s.db.Preload("Question").
		Where("game_id = ? AND round_number = ?", gameID, roundNumber).
		First(&round).Error
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// LeastUsedQuestions returns previously asked questions ordered by
// usage count, used as exclusion context to bias generation away from
// duplicates.
func (s *DefaultQuizStore) LeastUsedQuestions(category string, limit int) ([]models.QuizQuestion, error) {
	var questions []models.QuizQuestion
	q := s.db.Order("times_used asc, created_at asc").Limit(limit)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

// RecordAnswer stores the answer and bumps the question's usage
// counters in one transaction.
func (s *DefaultQuizStore) RecordAnswer(answer *models.QuizAnswer) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(answer).Error; err != nil {
			return err
		}
		var round models.QuizRound
		if err := tx.First(&round, "id = ?", answer.RoundID).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"times_used": gorm.Expr("times_used + 1"),
		}
		if answer.IsCorrect {
			updates["times_correct"] = gorm.Expr("times_correct + 1")
		}
		return tx.Model(&models.QuizQuestion{}).
			Where("id = ?", round.QuestionID).
			Updates(updates).Error
	})
}

func (s *DefaultQuizStore) AnswersByGame(gameID uuid.UUID) ([]models.QuizAnswer, error) {
	var answers []models.QuizAnswer
	err := s.db.
		Joins("JOIN quiz_rounds ON quiz_rounds.id = quiz_answers.round_id").
		Where("quiz_rounds.game_id = ?", gameID).
		Order("quiz_answers.created_at asc").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

func (s *DefaultQuizStore) CreateJobs(jobs []models.QuizGenerationJob) error {
	return s.db.Create(&jobs).Error
}

func (s *DefaultQuizStore) UpdateJob(job *models.QuizGenerationJob) error {
	return s.db.Save(job).Error
}

func (s *DefaultQuizStore) JobsByGame(gameID uuid.UUID) ([]models.QuizGenerationJob, error) {
	var jobs []models.QuizGenerationJob
	err := s.db.Where("game_id = ?", gameID).
		Order("round_number asc").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *DefaultQuizStore) CreateOrUpdatePlayer(subjectID, name, nickname string) (*models.Player, error) {
	player := &models.Player{
		SubjectID: subjectID,
		Name:      name,
		Nickname:  nickname,
	}
	result := s.db.Where(models.Player{SubjectID: subjectID}).Assign(player).FirstOrCreate(player)
	if result.Error != nil {
		return nil, result.Error
	}
	return player, nil
}
