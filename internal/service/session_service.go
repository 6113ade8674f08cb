package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/mafuth/drive-to-iftar/internal/config"
	"github.com/mafuth/drive-to-iftar/internal/domain"
	"github.com/mafuth/drive-to-iftar/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrRaceNotFound        = errors.New("race not found")
	ErrSessionFull         = errors.New("lobby is full")
	ErrInvalidSessionState = errors.New("invalid session state for this action")
	ErrNotHost             = errors.New("only the host can perform this action")
)

// SessionService owns the lobby state machine: waiting -> started -> ended,
// with retry re-entering started. Every mutation runs as one transaction so
// capacity checks and status transitions cannot race; broadcasts go out only
// after the commit and never fail the operation.
type SessionService struct {
	repos       *repository.Repositories
	broadcaster Broadcaster
	cfg         *config.Config
}

func NewSessionService(repos *repository.Repositories, broadcaster Broadcaster, cfg *config.Config) *SessionService {
	return &SessionService{
		repos:       repos,
		broadcaster: broadcaster,
		cfg:         cfg,
	}
}

type LobbyPlayer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	CarIndex int    `json:"carIndex"`
}

type Lobby struct {
	SessionID string        `json:"session_id"`
	HostID    string        `json:"host_id"`
	Status    string        `json:"status"`
	Players   []LobbyPlayer `json:"players"`
}

func (s *SessionService) CreateLobby(ctx context.Context, hostID uuid.UUID, maxPlayers int) (*Lobby, error) {
	if maxPlayers < 1 {
		maxPlayers = s.cfg.MaxLobbyPlayers
	}

	session := &domain.Session{
		ID:         uuid.New(),
		HostID:     hostID,
		MaxPlayers: maxPlayers,
		GameSeed:   uuid.New().String(),
		Status:     domain.SessionStatusWaiting,
	}

	err := s.repos.Tx.WithTx(ctx, func(r *repository.Repositories) error {
		if err := r.Session.Create(ctx, session); err != nil {
			return err
		}
		// Host joins their own lobby immediately.
		host := &domain.Participant{
			ID:        uuid.New(),
			UserID:    hostID,
			SessionID: &session.ID,
		}
		return r.Participant.Create(ctx, host)
	})
	if err != nil {
		return nil, err
	}

	return s.GetLobby(ctx, session.ID)
}

// Join admits a user into a waiting lobby. The capacity check counts live
// participant rows under a session row lock, so two racing joins for the
// last slot serialize and only one succeeds. Re-joining only updates the
// car selection.
func (s *SessionService) Join(ctx context.Context, sessionID, userID uuid.UUID, carIndex int) (*Lobby, error) {
	err := s.repos.Tx.WithTx(ctx, func(r *repository.Repositories) error {
		session, err := r.Session.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		if session.Status != domain.SessionStatusWaiting {
			return ErrInvalidSessionState
		}

		existing, err := r.Participant.GetBySessionAndUser(ctx, sessionID, userID)
		if err == nil {
			existing.CarIndex = carIndex
			return r.Participant.Update(ctx, existing)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		count, err := r.Participant.CountBySessionID(ctx, sessionID)
		if err != nil {
			return err
		}
		if count >= int64(session.MaxPlayers) {
			return ErrSessionFull
		}

		participant := &domain.Participant{
			ID:        uuid.New(),
			UserID:    userID,
			SessionID: &sessionID,
			CarIndex:  carIndex,
		}
		return r.Participant.Create(ctx, participant)
	})
	if err != nil {
		return nil, err
	}

	lobby, err := s.GetLobby(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(sessionID.String(), map[string]any{
		"type":    "lobby_update",
		"players": lobby.Players,
	})

	return lobby, nil
}

type StartResult struct {
	RaceID          uuid.UUID         `json:"race_id"`
	Seed            string            `json:"seed"`
	Config          domain.GameConfig `json:"config"`
	LaneAssignments map[string]int    `json:"lane_assignments"`
}

// Start launches a race for the lobby. Only the host may call it.
func (s *SessionService) Start(ctx context.Context, sessionID, requesterID uuid.UUID) (*StartResult, error) {
	return s.startRace(ctx, sessionID, requesterID)
}

// Retry is Start called after a generation ended: same effect, fresh seed,
// fresh race snapshot.
func (s *SessionService) Retry(ctx context.Context, sessionID, requesterID uuid.UUID) (*StartResult, error) {
	return s.startRace(ctx, sessionID, requesterID)
}

func (s *SessionService) startRace(ctx context.Context, sessionID, requesterID uuid.UUID) (*StartResult, error) {
	var result *StartResult

	err := s.repos.Tx.WithTx(ctx, func(r *repository.Repositories) error {
		session, err := r.Session.GetByIDForUpdate(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		if session.HostID != requesterID {
			return ErrNotHost
		}

		participants, err := r.Participant.GetBySessionID(ctx, sessionID)
		if err != nil {
			return err
		}

		session.GameSeed = uuid.New().String()
		session.Status = domain.SessionStatusStarted

		// Scale the track to the roster but keep at least the default
		// lane count for variety.
		laneCount := s.cfg.DefaultMaxLanes
		if len(participants) > laneCount {
			laneCount = len(participants)
		}

		lanes := make([]int, laneCount)
		for i := range lanes {
			lanes[i] = i + 1
		}
		rand.Shuffle(len(lanes), func(i, j int) {
			lanes[i], lanes[j] = lanes[j], lanes[i]
		})

		// Round-robin over the shuffled permutation; lanes repeat
		// cyclically when participants outnumber them.
		laneMap := make(map[string]int, len(participants))
		for i, p := range participants {
			lane := lanes[i%len(lanes)]
			p.AssignedLane = &lane
			p.Score = 0
			p.FinishedAt = nil
			laneMap[p.UserID.String()] = lane
		}

		gameConfig := domain.NewGameConfig(session.GameSeed, laneCount)
		gameConfig["is_multiplayer"] = true
		if hostLane, ok := laneMap[session.HostID.String()]; ok {
			gameConfig["player"].(map[string]any)["initialLane"] = hostLane
		}

		configJSON, err := json.Marshal(gameConfig)
		if err != nil {
			return err
		}

		race := &domain.Race{
			ID:     uuid.New(),
			Name:   "Race for session " + session.ID.String(),
			Config: configJSON,
			Status: domain.RaceStatusActive,
		}
		if err := r.Race.Create(ctx, race); err != nil {
			return err
		}

		for _, p := range participants {
			p.RaceID = &race.ID
			if err := r.Participant.Update(ctx, p); err != nil {
				return err
			}
		}

		if err := r.Session.Update(ctx, session); err != nil {
			return err
		}

		result = &StartResult{
			RaceID:          race.ID,
			Seed:            session.GameSeed,
			Config:          gameConfig,
			LaneAssignments: laneMap,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcaster.Publish(sessionID.String(), map[string]any{
		"type":             "game_start",
		"race_id":          result.RaceID.String(),
		"config":           result.Config,
		"seed":             result.Seed,
		"lane_assignments": result.LaneAssignments,
	})

	log.Info().
		Str("session_id", sessionID.String()).
		Str("race_id", result.RaceID.String()).
		Int("players", len(result.LaneAssignments)).
		Msg("race started")

	return result, nil
}

// SubmitScore records a finished run. The participant row is created if the
// join record was lost; the user's global best only moves up.
func (s *SessionService) SubmitScore(ctx context.Context, raceID, userID uuid.UUID, score int) (int, error) {
	var newBest int

	err := s.repos.Tx.WithTx(ctx, func(r *repository.Repositories) error {
		race, err := r.Race.GetByID(ctx, raceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRaceNotFound
			}
			return err
		}

		now := time.Now()
		participant, err := r.Participant.GetByRaceAndUser(ctx, raceID, userID)
		switch {
		case err == nil:
			participant.Score = score
			participant.FinishedAt = &now
			if err := r.Participant.Update(ctx, participant); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Defensive fallback for lost or out-of-order join records.
			participant = &domain.Participant{
				ID:         uuid.New(),
				UserID:     userID,
				RaceID:     &raceID,
				Score:      score,
				FinishedAt: &now,
			}
			if err := r.Participant.Create(ctx, participant); err != nil {
				return err
			}
		default:
			return err
		}

		race.Status = domain.RaceStatusFinished
		if err := r.Race.Update(ctx, race); err != nil {
			return err
		}

		if participant.SessionID != nil {
			session, err := r.Session.GetByIDForUpdate(ctx, *participant.SessionID)
			if err == nil {
				session.Status = domain.SessionStatusEnded
				if err := r.Session.Update(ctx, session); err != nil {
					return err
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		user, err := r.User.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if score > user.Score {
			user.Score = score
			if err := r.User.Update(ctx, user); err != nil {
				return err
			}
		}
		newBest = user.Score
		return nil
	})
	if err != nil {
		return 0, err
	}

	return newBest, nil
}

// StartSinglePlayer materializes a solo race with a fresh seed.
func (s *SessionService) StartSinglePlayer(ctx context.Context, userID uuid.UUID) (*StartResult, error) {
	seed := uuid.New().String()
	gameConfig := domain.NewGameConfig(seed, s.cfg.DefaultMaxLanes)

	configJSON, err := json.Marshal(gameConfig)
	if err != nil {
		return nil, err
	}

	race := &domain.Race{
		ID:     uuid.New(),
		Name:   "Single player race " + userID.String(),
		Config: configJSON,
		Status: domain.RaceStatusActive,
	}

	err = s.repos.Tx.WithTx(ctx, func(r *repository.Repositories) error {
		if err := r.Race.Create(ctx, race); err != nil {
			return err
		}
		participant := &domain.Participant{
			ID:     uuid.New(),
			UserID: userID,
			RaceID: &race.ID,
		}
		return r.Participant.Create(ctx, participant)
	})
	if err != nil {
		return nil, err
	}

	return &StartResult{RaceID: race.ID, Seed: seed, Config: gameConfig}, nil
}

// HasParticipant reports whether the user ever joined the session; the
// realtime channel uses it to reject outsiders.
func (s *SessionService) HasParticipant(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	_, err := s.repos.Participant.GetBySessionAndUser(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *SessionService) GetLobby(ctx context.Context, sessionID uuid.UUID) (*Lobby, error) {
	session, err := s.repos.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	participants, err := s.repos.Participant.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	players := make([]LobbyPlayer, 0, len(participants))
	for _, p := range participants {
		if p.User == nil {
			continue
		}
		players = append(players, LobbyPlayer{
			ID:       p.UserID.String(),
			Username: p.User.DisplayTag(),
			CarIndex: p.CarIndex,
		})
	}

	return &Lobby{
		SessionID: session.ID.String(),
		HostID:    session.HostID.String(),
		Status:    string(session.Status),
		Players:   players,
	}, nil
}
