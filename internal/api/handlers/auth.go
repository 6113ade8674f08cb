package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mafuth/drive-to-iftar/internal/api/middleware"
	"github.com/mafuth/drive-to-iftar/internal/domain"
	"github.com/mafuth/drive-to-iftar/internal/service"
	"github.com/rs/zerolog/log"
)

type AuthHandler struct {
	authService      *service.AuthService
	challengeService *service.ChallengeService
}

func NewAuthHandler(authService *service.AuthService, challengeService *service.ChallengeService) *AuthHandler {
	return &AuthHandler{
		authService:      authService,
		challengeService: challengeService,
	}
}

type UserResponse struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	Email        *string `json:"email"`
	ProfilePhoto *string `json:"profile_photo"`
	Score        int     `json:"score"`
	AccessToken  string  `json:"access_token,omitempty"`
	IsGuest      bool    `json:"is_guest"`
	Rank         *int    `json:"rank"`
}

func (h *AuthHandler) userResponse(r *http.Request, user *domain.User, token string) UserResponse {
	resp := UserResponse{
		ID:           user.ID.String(),
		Username:     user.DisplayTag(),
		Email:        user.Email,
		ProfilePhoto: user.ProfilePhoto,
		Score:        user.Score,
		AccessToken:  token,
		IsGuest:      user.IsGuest,
	}
	if !user.IsGuest {
		if rank, err := h.authService.Rank(r.Context(), user); err == nil {
			resp.Rank = &rank
		}
	}
	return resp
}

func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	result, err := h.authService.GuestLogin(r.Context())
	if err != nil {
		http.Error(w, "Failed to create guest", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, h.userResponse(r, result.User, result.AccessToken))
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		http.Error(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, h.userResponse(r, result.User, result.AccessToken))
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	// Opportunistic reconciliation: settle any missed challenge day the
	// background sweep hasn't reached yet.
	if err := h.challengeService.EvaluateAndPenalize(r.Context(), result.User); err != nil {
		log.Warn().Err(err).Str("user_id", result.User.ID.String()).Msg("login-time penalty check failed")
	}

	writeJSON(w, http.StatusOK, h.userResponse(r, result.User, result.AccessToken))
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, h.userResponse(r, user, ""))
}

type UpdateUsernameRequest struct {
	Username string `json:"username"`
}

func (h *AuthHandler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req UpdateUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.authService.UpdateUsername(r.Context(), userID, req.Username)
	if err != nil {
		if errors.Is(err, service.ErrUsernameSet) {
			http.Error(w, "Username already set", http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to update username", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, h.userResponse(r, user, ""))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
