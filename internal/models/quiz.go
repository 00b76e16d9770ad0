package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GameStatus string

const (
	GamePending    GameStatus = "pending"
	GameInProgress GameStatus = "in_progress"
	GameCompleted  GameStatus = "completed"
	GameAbandoned  GameStatus = "abandoned"
)

type QuizGame struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Difficulty   string         `gorm:"type:varchar(16);not null" json:"difficulty"`
	Category     string         `gorm:"type:varchar(64)" json:"category,omitempty"`
	NumRounds    int            `gorm:"not null" json:"num_rounds"`
	CurrentRound int            `gorm:"not null;default:0" json:"current_round"` // 0 = not started
	Status       GameStatus     `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	Rounds       []QuizRound    `gorm:"foreignKey:GameID" json:"rounds,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"-"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// QuizQuestion is immutable after creation except for its usage
// counters, which answer submission increments.
type QuizQuestion struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	QuestionText  string         `gorm:"type:text;not null" json:"question_text"`
	CorrectAnswer string         `gorm:"type:text;not null" json:"-"`
	AnswerOptions datatypes.JSON `gorm:"type:jsonb;not null" json:"answer_options"` // correct + distractors, shuffled
	Explanation   string         `gorm:"type:text" json:"explanation,omitempty"`
	Difficulty    string         `gorm:"type:varchar(16);index" json:"difficulty"`
	Category      string         `gorm:"type:varchar(64);index" json:"category,omitempty"`
	SourceQuery   string         `gorm:"type:text" json:"-"` // query that derived the correct answer
	TimesUsed     int            `gorm:"not null;default:0" json:"times_used"`
	TimesCorrect  int            `gorm:"not null;default:0" json:"times_correct"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"-"`
}

type QuizRound struct {
	ID          uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	GameID      uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:uniq_game_round" json:"game_id"`
	RoundNumber int          `gorm:"not null;uniqueIndex:uniq_game_round" json:"round_number"` // 1-based, contiguous
	QuestionID  uuid.UUID    `gorm:"type:uuid;not null" json:"question_id"`
	Question    QuizQuestion `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type QuizAnswer struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RoundID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_round_player" json:"round_id"`
	PlayerID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_round_player" json:"player_id"`
	SubmittedText string    `gorm:"type:text;not null" json:"submitted_text"`
	IsCorrect     bool      `gorm:"not null" json:"is_correct"`
	TimeTaken     float64   `gorm:"not null" json:"time_taken"` // seconds
	PointsEarned  int       `gorm:"not null" json:"points_earned"`
	CreatedAt     time.Time `json:"created_at"`
}
