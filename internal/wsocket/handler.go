package wsocket

import (
	"context"
	"net/http"
	"time"

	"sports_trivia_go_backend/internal/services"
	"sports_trivia_go_backend/internal/utils/broker"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler streams quiz-generation progress for one game over a
// websocket: push on broker events, with periodic full-progress polls
// as a safety net.
type Handler struct {
	generationService *services.QuizGenerationService
	messageBroker     *broker.Broker
	upgrader          websocket.Upgrader
	pollInterval      time.Duration
	log               zerolog.Logger
}

type Message struct {
	Type    string      `json:"type"`
	GameID  string      `json:"gameId"`
	Payload interface{} `json:"payload"`
}

func NewHandler(generationService *services.QuizGenerationService, messageBroker *broker.Broker, upgrader websocket.Upgrader, pollInterval time.Duration, log zerolog.Logger) *Handler {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Handler{
		generationService: generationService,
		messageBroker:     messageBroker,
		upgrader:          upgrader,
		pollInterval:      pollInterval,
		log:               log,
	}
}

func (h *Handler) HandleProgressSocket(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(r.URL.Query().Get("gameId"))
	if err != nil {
		http.Error(w, "valid gameId is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	topic := "quiz_progress_" + gameID.String()
	events := h.messageBroker.Subscribe(topic)
	defer h.messageBroker.Unsubscribe(topic, events)

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	// Read loop only to observe client close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(Message{Type: "round_update", GameID: gameID.String(), Payload: ev}); err != nil {
				h.log.Debug().Err(err).Msg("failed to push round update")
				return
			}
		case <-ticker.C:
			progress, err := h.generationService.Progress(ctx, gameID)
			if err != nil {
				h.log.Debug().Err(err).Str("game_id", gameID.String()).Msg("progress poll failed")
				continue
			}
			if err := conn.WriteJSON(Message{Type: "progress", GameID: gameID.String(), Payload: progress}); err != nil {
				return
			}
			if progress.Total > 0 && progress.Completed == progress.Total {
				_ = conn.WriteJSON(Message{Type: "complete", GameID: gameID.String(), Payload: progress})
				return
			}
		}
	}
}
