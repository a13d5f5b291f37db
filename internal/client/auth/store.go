package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/aiinterview/internal/client/storage"
	"github.com/iudanet/aiinterview/pkg/api"
)

// ErrNoAccessToken is returned by SetSession when the session has no access token
var ErrNoAccessToken = errors.New("session has no access token")

const (
	refreshPath = "/api" + api.PathRefresh
	loginRoute  = "/login"
)

//go:generate moq -out navigator_mock.go . Navigator

// Navigator moves the client to another route (e.g. back to /login after logout)
type Navigator interface {
	Navigate(path string)
}

// Store persists the user's credentials and derives the login state from them.
// The only network call it makes is the token refresh.
type Store struct {
	storage    storage.Storage
	navigator  Navigator
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
	baseURL    string
}

// NewStore creates an auth store over st. Refresh requests go to baseURL
// (empty means relative, which only makes sense behind a proxy).
func NewStore(st storage.Storage, httpClient *http.Client, baseURL string, logger *slog.Logger) *Store {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage:    st,
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		logger:     logger,
		now:        time.Now,
	}
}

// SetNavigator sets where Logout sends the user
func (s *Store) SetNavigator(n Navigator) {
	s.navigator = n
}

// SetSession сохраняет учетные данные. Access token обязателен,
// остальные поля пишутся только если заданы.
func (s *Store) SetSession(ctx context.Context, data *api.SessionData) error {
	if data == nil || data.AccessToken == "" {
		return ErrNoAccessToken
	}

	values := map[string]string{
		storage.KeyAccessToken: data.AccessToken,
	}
	if data.RefreshToken != "" {
		values[storage.KeyRefreshToken] = data.RefreshToken
	}
	if data.UserID != "" {
		values[storage.KeyUserID] = data.UserID.String()
	}
	if data.Username != "" {
		values[storage.KeyUsername] = data.Username
	}

	expiresAt := data.ExpiresAt
	if expiresAt == 0 {
		// бэкенд не всегда присылает expires_at, но access token - JWT с exp
		expiresAt = tokenExpiry(data.AccessToken)
	}
	if expiresAt != 0 {
		values[storage.KeyTokenExpiresAt] = strconv.FormatInt(expiresAt, 10)
	}

	for key, value := range values {
		if err := s.storage.Set(ctx, key, value); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature:
// the client never holds the signing key. Returns 0 for opaque tokens.
func tokenExpiry(token string) int64 {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.Unix()
}

// GetToken возвращает access token или ""
func (s *Store) GetToken(ctx context.Context) (string, error) {
	return storage.ValueOrEmpty(ctx, s.storage, storage.KeyAccessToken)
}

// GetRefreshToken возвращает refresh token или ""
func (s *Store) GetRefreshToken(ctx context.Context) (string, error) {
	return storage.ValueOrEmpty(ctx, s.storage, storage.KeyRefreshToken)
}

// GetUsername возвращает имя пользователя или ""
func (s *Store) GetUsername(ctx context.Context) (string, error) {
	return storage.ValueOrEmpty(ctx, s.storage, storage.KeyUsername)
}

// GetUserID возвращает идентификатор пользователя или ""
func (s *Store) GetUserID(ctx context.Context) (string, error) {
	return storage.ValueOrEmpty(ctx, s.storage, storage.KeyUserID)
}

// ExpiresAt returns the stored expiry, the zero time when none is stored
func (s *Store) ExpiresAt(ctx context.Context) (time.Time, error) {
	raw, err := storage.ValueOrEmpty(ctx, s.storage, storage.KeyTokenExpiresAt)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s value %q: %w", storage.KeyTokenExpiresAt, raw, err)
	}
	return time.Unix(seconds, 0), nil
}

// IsTokenExpired reports whether a stored expiry lies in the past.
// No stored expiry means the token never expires.
func (s *Store) IsTokenExpired(ctx context.Context) (bool, error) {
	expiresAt, err := s.ExpiresAt(ctx)
	if err != nil {
		return false, err
	}
	if expiresAt.IsZero() {
		return false, nil
	}
	return s.now().After(expiresAt), nil
}

// IsLoggedIn - есть access token и он не истек
func (s *Store) IsLoggedIn(ctx context.Context) (bool, error) {
	token, err := s.GetToken(ctx)
	if err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}

	expired, err := s.IsTokenExpired(ctx)
	if err != nil {
		return false, err
	}
	return !expired, nil
}

// RefreshToken exchanges the stored refresh token for a new session.
// It makes exactly one attempt. Any failure logs the user out and
// returns false.
func (s *Store) RefreshToken(ctx context.Context) bool {
	refreshToken, err := s.GetRefreshToken(ctx)
	if err != nil || refreshToken == "" {
		if err != nil {
			s.logger.Warn("failed to read refresh token", "error", err)
		}
		s.logoutQuietly(ctx)
		return false
	}

	data, err := s.requestRefresh(ctx, refreshToken)
	if err != nil {
		s.logger.Warn("token refresh failed", "error", err)
		s.logoutQuietly(ctx)
		return false
	}

	if err := s.SetSession(ctx, data); err != nil {
		s.logger.Warn("failed to store refreshed session", "error", err)
		s.logoutQuietly(ctx)
		return false
	}

	s.logger.Debug("access token refreshed")
	return true
}

// requestRefresh выполняет POST /api/auth/refresh напрямую, минуя
// HTTP клиент: обновление токена не должно попадать в обработку 401
func (s *Store) requestRefresh(ctx context.Context, refreshToken string) (*api.SessionData, error) {
	payload, err := json.Marshal(api.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+refreshPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, api.ErrorMessage(body, resp.StatusCode))
	}

	raw, err := api.UnwrapEnvelope(body)
	if err != nil {
		return nil, err
	}

	var data api.SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &data, nil
}

// Logout удаляет учетные данные и отправляет пользователя на /login
func (s *Store) Logout(ctx context.Context) error {
	if err := s.ClearAuth(ctx); err != nil {
		return err
	}
	if s.navigator != nil {
		s.navigator.Navigate(loginRoute)
	}
	return nil
}

func (s *Store) logoutQuietly(ctx context.Context) {
	if err := s.Logout(ctx); err != nil {
		s.logger.Error("failed to clear session", "error", err)
	}
}

// ClearAuth removes the credential keys without navigating anywhere.
// The CSRF token and participant identifiers survive.
func (s *Store) ClearAuth(ctx context.Context) error {
	for _, key := range storage.SessionKeys {
		if err := s.storage.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

// Headers builds the standard header set of an API request
func (s *Store) Headers(ctx context.Context) (http.Header, error) {
	csrf, err := s.CSRFToken(ctx)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("X-CSRF-Token", csrf)

	token, err := s.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	// Authorization только при наличии токена
	if token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}
	return headers, nil
}

// CSRFToken returns the profile's CSRF token, generating it on first use
func (s *Store) CSRFToken(ctx context.Context) (string, error) {
	token, err := storage.ValueOrEmpty(ctx, s.storage, storage.KeyCSRFToken)
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}
	return s.generateCSRFToken(ctx)
}

// generateCSRFToken: случайная часть + метка времени, обе в base36
func (s *Store) generateCSRFToken(ctx context.Context) (string, error) {
	token := strconv.FormatUint(rand.Uint64(), 36) + strconv.FormatInt(s.now().UnixMilli(), 36)
	if err := s.storage.Set(ctx, storage.KeyCSRFToken, token); err != nil {
		return "", fmt.Errorf("failed to save csrf token: %w", err)
	}
	return token, nil
}

// ValidateCSRFToken compares token with the stored one
func (s *Store) ValidateCSRFToken(ctx context.Context, token string) (bool, error) {
	stored, err := storage.ValueOrEmpty(ctx, s.storage, storage.KeyCSRFToken)
	if err != nil {
		return false, err
	}
	return stored != "" && token == stored, nil
}
