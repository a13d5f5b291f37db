// Package user keeps the in-memory view of the signed-in user in sync with
// the credentials persisted by the auth store.
package user

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/aiinterview/internal/validation"
	"github.com/iudanet/aiinterview/pkg/api"
)

//go:generate moq -out auth_mock.go . AuthStore

// AuthStore is the persisted source of truth for credentials
type AuthStore interface {
	SetSession(ctx context.Context, data *api.SessionData) error
	GetToken(ctx context.Context) (string, error)
	GetUsername(ctx context.Context) (string, error)
	GetUserID(ctx context.Context) (string, error)
	IsLoggedIn(ctx context.Context) (bool, error)
	RefreshToken(ctx context.Context) bool
	Logout(ctx context.Context) error
}

//go:generate moq -out client_mock.go . APIClient

// APIClient выполняет запросы аутентификации
type APIClient interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.SessionData, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.SessionData, error)
}

// State is a snapshot of the user session
type State struct {
	Username   string
	UserID     string
	Token      string
	Error      string
	IsLoggedIn bool
	Loading    bool
}

// CurrentUser - публичная часть состояния
type CurrentUser struct {
	Username string
	UserID   string
}

// Store синхронизирует состояние пользователя с AuthStore
type Store struct {
	auth   AuthStore
	client APIClient
	logger *slog.Logger
	state  State
	mu     sync.RWMutex
}

// NewStore creates the store and seeds it from the persisted session
func NewStore(ctx context.Context, auth AuthStore, client APIClient, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		auth:   auth,
		client: client,
		logger: logger,
	}
	s.CheckLoginStatus(ctx)
	return s
}

// Login authenticates with username (or email) and password.
// A failure is stored in State().Error and returned.
func (s *Store) Login(ctx context.Context, req api.LoginRequest) (*api.SessionData, error) {
	s.begin()

	if err := validation.ValidateLogin(req.Username, req.Email, req.Password); err != nil {
		return nil, s.fail(err)
	}

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return nil, s.fail(err)
	}
	if err := s.auth.SetSession(ctx, resp); err != nil {
		return nil, s.fail(fmt.Errorf("failed to save session: %w", err))
	}

	s.mu.Lock()
	s.state.IsLoggedIn = true
	s.state.Username = resp.Username
	s.state.UserID = resp.UserID.String()
	s.state.Token = resp.AccessToken
	s.state.Loading = false
	s.mu.Unlock()

	s.logger.Info("logged in", "username", resp.Username, "user_id", resp.UserID.String())
	return resp, nil
}

// Register creates an account. The backend answers with the created user;
// when the answer carries no access token the user is known but still has
// to log in.
func (s *Store) Register(ctx context.Context, req api.RegisterRequest) (*api.SessionData, error) {
	s.begin()

	if err := validation.ValidateRegistration(req.Username, req.Email, req.Password); err != nil {
		return nil, s.fail(err)
	}

	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return nil, s.fail(err)
	}

	loggedIn := resp.AccessToken != ""
	if loggedIn {
		if err := s.auth.SetSession(ctx, resp); err != nil {
			return nil, s.fail(fmt.Errorf("failed to save session: %w", err))
		}
	}

	s.mu.Lock()
	s.state.IsLoggedIn = loggedIn
	s.state.Username = resp.Username
	s.state.UserID = resp.UserID.String()
	s.state.Token = resp.AccessToken
	s.state.Loading = false
	s.mu.Unlock()

	s.logger.Info("registered", "username", resp.Username, "logged_in", loggedIn)
	return resp, nil
}

// Logout clears the persisted session and resets the state
func (s *Store) Logout(ctx context.Context) error {
	err := s.auth.Logout(ctx)
	s.reset()
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}

// RefreshToken refreshes the access token once. On failure the auth store
// has already cleared the session, the state follows it.
func (s *Store) RefreshToken(ctx context.Context) bool {
	if !s.auth.RefreshToken(ctx) {
		s.reset()
		return false
	}
	s.syncFromAuth(ctx)
	return true
}

// CheckLoginStatus re-reads the persisted session and reports whether the
// user is logged in
func (s *Store) CheckLoginStatus(ctx context.Context) bool {
	loggedIn, err := s.auth.IsLoggedIn(ctx)
	if err != nil {
		s.logger.Warn("failed to check login status", "error", err)
		loggedIn = false
	}
	if !loggedIn {
		s.reset()
		return false
	}
	s.syncFromAuth(ctx)
	return true
}

// syncFromAuth копирует учетные данные из AuthStore в состояние
func (s *Store) syncFromAuth(ctx context.Context) {
	username, err := s.auth.GetUsername(ctx)
	if err != nil {
		s.logger.Warn("failed to read username", "error", err)
	}
	userID, err := s.auth.GetUserID(ctx)
	if err != nil {
		s.logger.Warn("failed to read user id", "error", err)
	}
	token, err := s.auth.GetToken(ctx)
	if err != nil {
		s.logger.Warn("failed to read access token", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoggedIn = true
	s.state.Username = username
	s.state.UserID = userID
	s.state.Token = token
}

func (s *Store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoggedIn = false
	s.state.Username = ""
	s.state.UserID = ""
	s.state.Token = ""
}

func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = true
	s.state.Error = ""
}

// fail записывает сообщение об ошибке и возвращает err без изменений
func (s *Store) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	s.state.Error = err.Error()
	return err
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsAuthenticated reports whether the user is logged in
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsLoggedIn
}

// CurrentUser returns the user's name and id
func (s *Store) CurrentUser() CurrentUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CurrentUser{Username: s.state.Username, UserID: s.state.UserID}
}
