package services

import (
	"encoding/json"
	"fmt"
	"time"

	"sports_trivia_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChatStore defines persistence for chat sessions and their append-only
// message log.
type ChatStore interface {
	CreateSession(playerID *uuid.UUID, ttl time.Duration) (*models.ChatSession, error)
	GetSessionByID(id uuid.UUID) (*models.ChatSession, error)
	AppendMessage(sessionID uuid.UUID, role, content string, metadata *models.MessageMetadata) (*models.ChatMessage, error)
	RecentMessages(sessionID uuid.UUID, limit int) ([]models.ChatMessage, error)
	MessagesBySession(sessionID uuid.UUID) ([]models.ChatMessage, error)
}

// DefaultChatStore implements ChatStore
type DefaultChatStore struct {
	db *gorm.DB
}

func NewChatStore(db *gorm.DB) ChatStore {
	return &DefaultChatStore{db: db}
}

func (s *DefaultChatStore) CreateSession(playerID *uuid.UUID, ttl time.Duration) (*models.ChatSession, error) {
	session := &models.ChatSession{
		PlayerID:  playerID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.db.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (s *DefaultChatStore) GetSessionByID(id uuid.UUID) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := s.db.First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// AppendMessage creates one immutable message row. Messages are never
// updated after creation.
func (s *DefaultChatStore) AppendMessage(sessionID uuid.UUID, role, content string, metadata *models.MessageMetadata) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal message metadata: %w", err)
		}
		msg.Metadata = datatypes.JSON(raw)
	}
	if err := s.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// RecentMessages returns the most recent messages in chronological
// order.
func (s *DefaultChatStore) RecentMessages(sessionID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.db.Where("session_id = ?", sessionID).
		Order("created_at desc").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *DefaultChatStore) MessagesBySession(sessionID uuid.UUID) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.db.Where("session_id = ?", sessionID).
		Order("created_at asc").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
