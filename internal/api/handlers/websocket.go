package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/mafuth/drive-to-iftar/internal/service"
	"github.com/mafuth/drive-to-iftar/internal/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced at the HTTP layer
	},
}

const (
	closeInvalidSession = 4000
	closeUnauthorized   = 4003
)

type WebSocketHandler struct {
	hub              *websocket.Hub
	authService      *service.AuthService
	sessionService   *service.SessionService
	challengeService *service.ChallengeService
}

func NewWebSocketHandler(hub *websocket.Hub, authService *service.AuthService, sessionService *service.SessionService, challengeService *service.ChallengeService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:              hub,
		authService:      authService,
		sessionService:   sessionService,
		challengeService: challengeService,
	}
}

// Handle upgrades the realtime channel for a session. The identity must hold
// a participant record in that session or the connection is rejected with a
// reason code.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	sessionIDParam := chi.URLParam(r, "sessionID")
	token := r.URL.Query().Get("token")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	if token == "" {
		rejectConn(conn, closeUnauthorized, "Missing token")
		return
	}

	user, err := h.authService.UserFromToken(r.Context(), token)
	if err != nil {
		rejectConn(conn, closeUnauthorized, "Invalid token")
		return
	}

	sessionID, err := uuid.Parse(sessionIDParam)
	if err != nil {
		rejectConn(conn, closeInvalidSession, "Invalid session ID")
		return
	}

	joined, err := h.sessionService.HasParticipant(r.Context(), sessionID, user.ID)
	if err != nil || !joined {
		rejectConn(conn, closeUnauthorized, "User not in this session")
		return
	}

	client := websocket.NewClient(h.hub, conn, user.ID, sessionID.String(), h.observeInbound)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// observeInbound records realtime collection events into the challenge
// ledger before the message is relayed to peers. Ledger rejections (window
// closed) don't interrupt the relay.
func (h *WebSocketHandler) observeInbound(client *websocket.Client, message map[string]any) {
	msgType, _ := message["type"].(string)
	if msgType != "date_collected" {
		return
	}

	count := 1
	if n, ok := message["count"].(float64); ok && n >= 1 {
		count = int(n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := h.challengeService.Collect(ctx, client.UserID(), count); err != nil {
		log.Warn().Err(err).
			Str("user_id", client.UserID().String()).
			Msg("realtime collection rejected")
	}
}

func rejectConn(conn *ws.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(code, reason), deadline)
	conn.Close()
}
