package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ChatSession struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	PlayerID  *uuid.UUID     `gorm:"type:uuid;index" json:"player_id,omitempty"`
	Messages  []ChatMessage  `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ChatMessage is append-only: rows are created once and never updated.
// Display order is creation order.
type ChatMessage struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SessionID uuid.UUID      `gorm:"type:uuid;index;not null" json:"session_id"`
	Role      string         `gorm:"type:varchar(16);not null" json:"role"` // user | assistant | system
	Content   string         `gorm:"type:text;not null" json:"content"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// MessageMetadata is the shape serialized into ChatMessage.Metadata for
// assistant messages produced by the answering pipeline.
type MessageMetadata struct {
	SQLQuery        string  `json:"sql_query,omitempty"`
	ExecutionTimeMs int64   `json:"execution_time_ms,omitempty"`
	RowCount        int     `json:"row_count,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	Visualization   string  `json:"visualization,omitempty"`
	TraceID         string  `json:"trace_id,omitempty"`
}
