package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobStatus values are a wire-visible contract: the progress endpoint
// reports them verbatim.
type JobStatus string

const (
	JobPending        JobStatus = "pending"
	JobSQLGenerated   JobStatus = "sql_generated"
	JobAnswerVerified JobStatus = "answer_verified"
	JobRoundCreated   JobStatus = "round_created"
	JobFailed         JobStatus = "failed"
)

// QuizGenerationJob tracks one round's trip through the generation
// pipeline. It only ever moves forward through the status values, or
// into failed; it exists so that a long game creation is observable
// and resumable from outside.
type QuizGenerationJob struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	GameID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uniq_game_job_round" json:"game_id"`
	RoundNumber    int            `gorm:"not null;uniqueIndex:uniq_game_job_round" json:"round_number"`
	Status         JobStatus      `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	QuestionText   string         `gorm:"type:text" json:"question_text,omitempty"`
	GeneratedSQL   string         `gorm:"type:text" json:"generated_sql,omitempty"`
	QueryResult    datatypes.JSON `gorm:"type:jsonb" json:"query_result,omitempty"`
	DerivedAnswers datatypes.JSON `gorm:"type:jsonb" json:"derived_answers,omitempty"`
	Attempts       int            `gorm:"not null;default:0" json:"attempts"`
	ErrorText      string         `gorm:"type:text" json:"error_text,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
