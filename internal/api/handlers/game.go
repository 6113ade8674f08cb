package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mafuth/drive-to-iftar/internal/api/middleware"
	"github.com/mafuth/drive-to-iftar/internal/config"
	"github.com/mafuth/drive-to-iftar/internal/domain"
	"github.com/mafuth/drive-to-iftar/internal/repository"
	"github.com/mafuth/drive-to-iftar/internal/service"
)

type GameHandler struct {
	sessionService *service.SessionService
	userRepo       repository.UserRepository
	cfg            *config.Config
}

func NewGameHandler(sessionService *service.SessionService, userRepo repository.UserRepository, cfg *config.Config) *GameHandler {
	return &GameHandler{
		sessionService: sessionService,
		userRepo:       userRepo,
		cfg:            cfg,
	}
}

// Config returns a fresh single-player world config with a random seed.
func (h *GameHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.NewGameConfig(uuid.New().String(), h.cfg.DefaultMaxLanes))
}

func (h *GameHandler) StartSinglePlayer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.sessionService.StartSinglePlayer(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to start race", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "started",
		"race_id": result.RaceID.String(),
		"config":  result.Config,
	})
}

type CreateLobbyRequest struct {
	MaxPlayers int `json:"max_players"`
}

func (h *GameHandler) CreateLobby(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	req := CreateLobbyRequest{MaxPlayers: h.cfg.MaxLobbyPlayers}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	lobby, err := h.sessionService.CreateLobby(r.Context(), userID, req.MaxPlayers)
	if err != nil {
		http.Error(w, "Failed to create lobby", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, lobby)
}

type JoinLobbyRequest struct {
	CarIndex int `json:"car_index"`
}

func (h *GameHandler) JoinLobby(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	var req JoinLobbyRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	lobby, err := h.sessionService.Join(r.Context(), sessionID, userID, req.CarIndex)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, lobby)
}

func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	h.startOrRetry(w, r, h.sessionService.Start)
}

func (h *GameHandler) RetryGame(w http.ResponseWriter, r *http.Request) {
	h.startOrRetry(w, r, h.sessionService.Retry)
}

func (h *GameHandler) startOrRetry(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, sessionID, requesterID uuid.UUID) (*service.StartResult, error)) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	result, err := op(r.Context(), sessionID, userID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "started",
		"race_id": result.RaceID.String(),
	})
}

type SubmitScoreRequest struct {
	Score int `json:"score"`
}

func (h *GameHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	raceID, err := uuid.Parse(chi.URLParam(r, "raceID"))
	if err != nil {
		http.Error(w, "Invalid race ID", http.StatusBadRequest)
		return
	}

	var req SubmitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	newBest, err := h.sessionService.SubmitScore(r.Context(), raceID, userID, req.Score)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "success",
		"new_high_score": newBest,
	})
}

// Leaderboard is the global best-score board; guests are excluded.
func (h *GameHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.TopByScore(r.Context(), h.cfg.LeaderboardLimit)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	type entry struct {
		ID       string  `json:"id"`
		Username string  `json:"username"`
		Score    int     `json:"score"`
		Photo    *string `json:"photo"`
	}
	entries := make([]entry, 0, len(users))
	for _, u := range users {
		entries = append(entries, entry{
			ID:       u.ID.String(),
			Username: u.DisplayTag(),
			Score:    u.Score,
			Photo:    u.ProfilePhoto,
		})
	}

	writeJSON(w, http.StatusOK, entries)
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		http.Error(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, service.ErrRaceNotFound):
		http.Error(w, "Race not found", http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidSessionState):
		http.Error(w, "Game already started or finished", http.StatusBadRequest)
	case errors.Is(err, service.ErrSessionFull):
		http.Error(w, "Lobby full", http.StatusBadRequest)
	case errors.Is(err, service.ErrNotHost):
		http.Error(w, "Only host can perform this action", http.StatusForbidden)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
