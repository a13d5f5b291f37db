package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/aiinterview/internal/client/notify"
	pkgapi "github.com/iudanet/aiinterview/pkg/api"
)

// fakeSession отдает фиксированный токен и считает попытки обновления
type fakeSession struct {
	mu           sync.Mutex
	token        string
	refreshed    string
	refreshOK    bool
	refreshCalls atomic.Int32
}

func (s *fakeSession) Headers(context.Context) (http.Header, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-CSRF-Token", "csrf")
	if s.token != "" {
		h.Set("Authorization", "Bearer "+s.token)
	}
	return h, nil
}

func (s *fakeSession) RefreshToken(context.Context) bool {
	s.refreshCalls.Add(1)
	if s.refreshOK {
		s.mu.Lock()
		s.token = s.refreshed
		s.mu.Unlock()
	}
	return s.refreshOK
}

type recordedNotice struct {
	kind    notify.Kind
	message string
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []recordedNotice
}

func (n *recordingNotifier) Show(kind notify.Kind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, recordedNotice{kind: kind, message: message})
}

func (n *recordingNotifier) kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]notify.Kind, 0, len(n.notices))
	for _, notice := range n.notices {
		kinds = append(kinds, notice.kind)
	}
	return kinds
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8000/", nil)

	assert.Equal(t, "http://localhost:8000", client.BaseURL())
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.httpClient.Jar)
	assert.NotNil(t, client.httpClient.CheckRedirect)
	assert.Equal(t, ".", client.downloadDir)
}

func TestClient_FullURL(t *testing.T) {
	client := NewClient("http://localhost:8000", nil)

	tests := []struct {
		endpoint string
		want     string
	}{
		{endpoint: "users", want: "http://localhost:8000/api/users"},
		{endpoint: "/users", want: "http://localhost:8000/api/users"},
		{endpoint: "users/", want: "http://localhost:8000/api/users"},
		{endpoint: "/api/users", want: "http://localhost:8000/api/users"},
		{endpoint: "/api/users/", want: "http://localhost:8000/api/users"},
		{endpoint: "/api", want: "http://localhost:8000/api"},
		{endpoint: "/apiary", want: "http://localhost:8000/api/apiary"},
		{endpoint: "/sessions/?page=2&size=10", want: "http://localhost:8000/api/sessions?page=2&size=10"},
		{endpoint: "/sessions?", want: "http://localhost:8000/api/sessions"},
		{endpoint: "https://cdn.example.com/a/b/", want: "https://cdn.example.com/a/b/"},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, client.FullURL(tt.endpoint))
		})
	}

	assert.Equal(t, client.FullURL("users/"), client.FullURL("/api/users"))
}

func TestClient_FullURL_RelativeBase(t *testing.T) {
	client := NewClient("", nil)
	assert.Equal(t, "/api/chat", client.FullURL("chat"))
}

func TestClient_Request_UnwrapsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/projects/42", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "csrf", r.Header.Get("X-CSRF-Token"))

		writeJSON(t, w, http.StatusOK, map[string]any{
			"code":    200,
			"message": "ok",
			"data":    map[string]any{"id": 42, "name": "Backend", "ai_config_id": 7},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, &fakeSession{token: "tok"})
	project, err := client.GetProject(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, pkgapi.ID("42"), project.ID)
	assert.Equal(t, "Backend", project.Name)
	assert.Equal(t, pkgapi.ID("7"), project.AIConfigID)
}

func TestClient_Request_PlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"reply": "Tell me about yourself"})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	resp, err := client.Chat(context.Background(), pkgapi.ChatRequest{SessionID: "s1", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Tell me about yourself", resp.Reply)
}

func TestClient_Request_CallerHeadersWin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer other", r.Header.Get("Authorization"))
		assert.Equal(t, "csrf", r.Header.Get("X-CSRF-Token"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, &fakeSession{token: "tok"})
	headers := http.Header{}
	headers.Set("content-type", "text/plain")
	headers.Set("Authorization", "Bearer other")

	resp, err := client.Request(context.Background(), "/ping", RequestOptions{Headers: headers, ResponseType: ResponseBinary})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.Status)
}

func TestClient_Request_NoAuthorizationWithoutToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeJSON(t, w, http.StatusOK, map[string]any{"ok": true})
	}))
	defer server.Close()

	client := NewClient(server.URL, &fakeSession{})
	require.NoError(t, client.Get(context.Background(), "/health", nil))
}

func TestClient_Request_RefreshesOnceAndRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]any{"detail": "token expired"})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"code": 200, "data": map[string]any{"reply": "again"}})
	}))
	defer server.Close()

	session := &fakeSession{token: "stale", refreshed: "fresh", refreshOK: true}
	client := NewClient(server.URL, session)

	resp, err := client.Chat(context.Background(), pkgapi.ChatRequest{SessionID: "s1", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "again", resp.Reply)
	assert.Equal(t, int32(1), session.refreshCalls.Load())
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Request_SecondUnauthorizedDoesNotRefreshAgain(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{"detail": "not authenticated"})
	}))
	defer server.Close()

	session := &fakeSession{token: "stale", refreshed: "still-bad", refreshOK: true}
	client := NewClient(server.URL, session)

	err := client.Get(context.Background(), "/sessions", nil)
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.Status)
	assert.Equal(t, "not authenticated", reqErr.Message)
	assert.Equal(t, int32(1), session.refreshCalls.Load())
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Request_RefreshFails(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{"message": "expired"})
	}))
	defer server.Close()

	session := &fakeSession{token: "stale"}
	client := NewClient(server.URL, session)

	err := client.Get(context.Background(), "/sessions", nil)
	require.Error(t, err)
	assert.Equal(t, "expired", err.Error())
	assert.Equal(t, int32(1), session.refreshCalls.Load())
	assert.Equal(t, int32(1), calls.Load(), "no retry without a fresh token")
}

func TestClient_Request_ErrorMessages(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		want       string
	}{
		{name: "detail string", status: http.StatusBadRequest, body: `{"detail":"username taken"}`, wantStatus: 400, want: "username taken"},
		{name: "detail object", status: http.StatusUnprocessableEntity, body: `{"detail":[{"loc":["body","email"]}]}`, wantStatus: 422, want: `[{"loc":["body","email"]}]`},
		{name: "message", status: http.StatusNotFound, body: `{"message":"project not found"}`, wantStatus: 404, want: "project not found"},
		{name: "not json", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantStatus: 502, want: "request failed: 502"},
		{name: "envelope error with 200", status: http.StatusOK, body: `{"code":404,"message":"session not found","data":null}`, wantStatus: 200, want: "session not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := NewClient(server.URL, nil)
			err := client.Get(context.Background(), "/anything", nil)
			require.Error(t, err)

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.wantStatus, reqErr.Status)
			assert.Equal(t, tt.want, reqErr.Message)
		})
	}
}

func TestClient_Request_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.Request(context.Background(), "/x", RequestOptions{})
	require.Error(t, err)
}

func TestClient_Request_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	notifier := &recordingNotifier{}
	client := NewClient(url, nil, WithNotifier(notifier))

	err := client.Get(context.Background(), "/x", nil)
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Zero(t, reqErr.Status)
	assert.Contains(t, notifier.kinds(), notify.KindError)
}

func TestClient_Request_Notifications(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/fail" {
			writeJSON(t, w, http.StatusInternalServerError, map[string]any{"detail": "boom"})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"data": "ok"})
	}))
	defer server.Close()

	t.Run("loading around success", func(t *testing.T) {
		notifier := &recordingNotifier{}
		client := NewClient(server.URL, nil, WithNotifier(notifier))

		require.NoError(t, client.Get(context.Background(), "/ok", nil))
		assert.Equal(t, []notify.Kind{notify.KindLoading, notify.KindLoaded}, notifier.kinds())
	})

	t.Run("error toast", func(t *testing.T) {
		notifier := &recordingNotifier{}
		client := NewClient(server.URL, nil, WithNotifier(notifier))

		require.Error(t, client.Get(context.Background(), "/fail", nil))
		assert.Equal(t, []notify.Kind{notify.KindLoading, notify.KindError, notify.KindLoaded}, notifier.kinds())
		assert.Equal(t, "boom", notifier.notices[1].message)
	})

	t.Run("guest mode hides loading", func(t *testing.T) {
		notifier := &recordingNotifier{}
		client := NewClient(server.URL, nil, WithNotifier(notifier), WithGuestMode(true))

		require.NoError(t, client.Get(context.Background(), "/ok", nil))
		assert.Empty(t, notifier.kinds())

		_, err := client.Request(context.Background(), "/ok", RequestOptions{ShowLoading: Bool(true)})
		require.NoError(t, err)
		assert.Equal(t, []notify.Kind{notify.KindLoading, notify.KindLoaded}, notifier.kinds())
	})

	t.Run("explicitly hidden", func(t *testing.T) {
		notifier := &recordingNotifier{}
		client := NewClient(server.URL, nil, WithNotifier(notifier))

		_, err := client.Request(context.Background(), "/ok", RequestOptions{ShowLoading: Bool(false)})
		require.NoError(t, err)
		assert.Empty(t, notifier.kinds())
	})
}

func TestClient_EndSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/sessions/s-9/end", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{"code": 200, "data": map[string]any{"session_id": "s-9"}})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	require.NoError(t, client.EndSession(context.Background(), "s-9"))
}

func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)

		var req pkgapi.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)
		assert.Equal(t, "secret", req.Password)

		writeJSON(t, w, http.StatusOK, map[string]any{
			"code": 200,
			"data": map[string]any{
				"access_token": "tok",
				"token_type":   "bearer",
				"user_id":      3,
				"username":     "alice",
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	session, err := client.Login(context.Background(), pkgapi.LoginRequest{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "tok", session.AccessToken)
	assert.Equal(t, pkgapi.ID("3"), session.UserID)
	assert.Equal(t, "alice", session.Username)
}

func TestClient_SpeechToText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/speech-to-text", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		file, header, err := r.FormFile("audio_file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "answer.webm", header.Filename)
		assert.Equal(t, "RIFF-audio", string(data))

		writeJSON(t, w, http.StatusOK, map[string]any{
			"code": 200,
			"data": map[string]any{"text": "I like Go", "confidence": 0.93, "duration": 1.5},
		})
	}))
	defer server.Close()

	session := &fakeSession{token: "tok"}
	client := NewClient(server.URL, session)

	result, err := client.SpeechToText(context.Background(), "answer.webm", strings.NewReader("RIFF-audio"))
	require.NoError(t, err)
	assert.Equal(t, "I like Go", result.Text)
	assert.InDelta(t, 0.93, result.Confidence, 1e-9)
	assert.InDelta(t, 1.5, result.Duration, 1e-9)
	assert.Equal(t, int32(0), session.refreshCalls.Load())
}

func TestClient_SpeechToText_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		session := &fakeSession{refreshOK: true}
		client := NewClient(server.URL, session)
		_, err := client.SpeechToText(context.Background(), "a.webm", strings.NewReader("x"))
		require.Error(t, err)
		assert.Equal(t, "API request failed: 401 Unauthorized", err.Error())
		assert.Equal(t, int32(0), session.refreshCalls.Load(), "speech upload never refreshes")
	})

	t.Run("envelope error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{"code": 500, "message": "recognition failed", "data": nil})
		}))
		defer server.Close()

		client := NewClient(server.URL, nil)
		_, err := client.SpeechToText(context.Background(), "a.webm", strings.NewReader("x"))
		require.Error(t, err)

		var envErr *pkgapi.EnvelopeError
		require.True(t, errors.As(err, &envErr))
		assert.Equal(t, 500, envErr.Code)
	})
}

func TestClient_ExportSelectedSessions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/export/selected", r.URL.Path)

		var req pkgapi.ExportSelectedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"s1", "s2"}, req.SessionIDs)

		w.Header().Set("Content-Disposition", `attachment; filename="interviews_2026.xlsx"`)
		_, _ = w.Write([]byte("xlsx-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	notifier := &recordingNotifier{}
	client := NewClient(server.URL, nil, WithDownloadDir(dir), WithNotifier(notifier), WithGuestMode(true))

	path, err := client.ExportSelectedSessions(context.Background(), []string{"s1", "s2"}, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "interviews_2026.xlsx"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "xlsx-bytes", string(data))

	// индикатор загрузки включен всегда, даже в гостевом режиме
	assert.Equal(t, []notify.Kind{notify.KindLoading, notify.KindLoaded, notify.KindSuccess}, notifier.kinds())
}

func TestClient_ExportSession_DefaultFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/export/session/s-1", r.URL.Path)
		_, _ = w.Write([]byte("single"))
	}))
	defer server.Close()

	dir := t.TempDir()
	client := NewClient(server.URL, nil, WithDownloadDir(dir))

	path, err := client.ExportSession(context.Background(), "s-1", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultSessionExport), path)
}

func TestClient_ExportProjectSessions_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/export/project/p-1", r.URL.Path)
		writeJSON(t, w, http.StatusForbidden, map[string]any{"detail": "forbidden"})
	}))
	defer server.Close()

	dir := t.TempDir()
	client := NewClient(server.URL, nil, WithDownloadDir(dir))

	_, err := client.ExportProjectSessions(context.Background(), "p-1", "project.xlsx")
	require.Error(t, err)
	assert.Equal(t, "forbidden", err.Error())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: "default.xlsx"},
		{header: `attachment; filename="report.xlsx"`, want: "report.xlsx"},
		{header: `attachment; filename=report.xlsx`, want: "report.xlsx"},
		{header: `attachment; filename="../../etc/passwd"`, want: "passwd"},
		{header: `attachment; filename=""`, want: "default.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, DownloadFilename(tt.header, "default.xlsx"))
		})
	}
}
