package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mafuth/drive-to-iftar/internal/domain"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	username      string
	email         string
	password      string
	score         int
	isGuest       bool
	collected     int
	challengeDate *string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	id := uuid.New().String()[:8]
	return &UserBuilder{
		username: fmt.Sprintf("testuser_%s", id),
		email:    fmt.Sprintf("test_%s@example.com", id),
		password: "testpassword123",
	}
}

// WithUsername sets the username
func (b *UserBuilder) WithUsername(name string) *UserBuilder {
	b.username = name
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// WithScore sets the persistent best score
func (b *UserBuilder) WithScore(score int) *UserBuilder {
	b.score = score
	return b
}

// AsGuest marks the user as a guest account
func (b *UserBuilder) AsGuest() *UserBuilder {
	b.isGuest = true
	return b
}

// WithChallengeProgress sets the daily collection state
func (b *UserBuilder) WithChallengeProgress(day string, collected int) *UserBuilder {
	b.challengeDate = &day
	b.collected = collected
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	user := &domain.User{
		ID:                  uuid.New(),
		Username:            &b.username,
		Score:               b.score,
		IsGuest:             b.isGuest,
		DatesCollectedToday: b.collected,
		LastChallengeDate:   b.challengeDate,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
	if !b.isGuest {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.DefaultCost)
		if err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}
		hash := string(hashedPassword)
		user.Email = &b.email
		user.PasswordHash = &hash
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Score       int    `json:"score"`
	AccessToken string `json:"access_token"`
	IsGuest     bool   `json:"is_guest"`
}

// BuildAndAuthenticate creates a user via the API and returns the response
// including the access token
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) *AuthResponse {
	t.Helper()

	var resp *http.Response
	var err error
	if b.isGuest {
		resp, err = http.Post(ts.APIURL("/auth/guest"), "application/json", nil)
	} else {
		body, _ := json.Marshal(map[string]string{
			"email":    b.email,
			"username": b.username,
			"password": b.password,
		})
		resp, err = http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
	}
	if err != nil {
		t.Fatalf("failed to authenticate user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected auth status: %d", resp.StatusCode)
	}

	var auth AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		t.Fatalf("failed to decode auth response: %v", err)
	}
	if auth.AccessToken == "" {
		t.Fatal("auth response missing access token")
	}

	return &auth
}

// DoJSON performs an authenticated JSON request against the test server
func DoJSON(t *testing.T, ts *TestServer, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, ts.APIURL(path), body)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}
