package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mafuth/drive-to-iftar/internal/api/middleware"
	"github.com/mafuth/drive-to-iftar/internal/config"
	"github.com/mafuth/drive-to-iftar/internal/service"
)

type ChallengeHandler struct {
	challengeService *service.ChallengeService
	authService      *service.AuthService
	cfg              *config.Config
}

func NewChallengeHandler(challengeService *service.ChallengeService, authService *service.AuthService, cfg *config.Config) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
		authService:      authService,
		cfg:              cfg,
	}
}

func (h *ChallengeHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.authService.GetUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, h.challengeService.Status(user))
}

type CollectRequest struct {
	Count int `json:"count"`
}

func (h *ChallengeHandler) Collect(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	req := CollectRequest{Count: 1}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	if req.Count < 1 {
		http.Error(w, "Count must be positive", http.StatusBadRequest)
		return
	}

	collected, err := h.challengeService.Collect(r.Context(), userID, req.Count)
	if err != nil {
		if errors.Is(err, service.ErrChallengeWindowClosed) {
			http.Error(w, "Challenge window closed ("+h.challengeService.Window().Bounds()+")", http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to record collection", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "collected",
		"collected": collected,
	})
}

func (h *ChallengeHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.challengeService.DailyLeaderboard(r.Context(), h.cfg.DailyLeaderboardLimit)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
