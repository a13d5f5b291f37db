package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	pkgapi "github.com/iudanet/aiinterview/pkg/api"
)

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.SessionData, error) {
	var resp pkgapi.SessionData
	if err := c.Post(ctx, pkgapi.PathLogin, req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.SessionData, error) {
	var resp pkgapi.SessionData
	if err := c.Post(ctx, pkgapi.PathRegister, req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// CreateSession создает новую сессию интервью
func (c *Client) CreateSession(ctx context.Context, req pkgapi.CreateSessionRequest) (*pkgapi.CreateSessionResponse, error) {
	var resp pkgapi.CreateSessionResponse
	if err := c.Post(ctx, pkgapi.PathSessions, req, &resp); err != nil {
		return nil, fmt.Errorf("create session request failed: %w", err)
	}
	return &resp, nil
}

// GetProject получает описание проекта
func (c *Client) GetProject(ctx context.Context, projectID string) (*pkgapi.ProjectInfo, error) {
	var resp pkgapi.ProjectInfo
	if err := c.Get(ctx, pkgapi.PathProjects+"/"+url.PathEscape(projectID), &resp); err != nil {
		return nil, fmt.Errorf("get project request failed: %w", err)
	}
	return &resp, nil
}

// GetAIConfig получает конфигурацию AI интервьюера
func (c *Client) GetAIConfig(ctx context.Context, configID string) (*pkgapi.AIConfig, error) {
	var resp pkgapi.AIConfig
	if err := c.Get(ctx, pkgapi.PathAIConfigs+"/"+url.PathEscape(configID), &resp); err != nil {
		return nil, fmt.Errorf("get AI config request failed: %w", err)
	}
	return &resp, nil
}

// Chat отправляет реплику участника и возвращает ответ AI
func (c *Client) Chat(ctx context.Context, req pkgapi.ChatRequest) (*pkgapi.ChatResponse, error) {
	var resp pkgapi.ChatResponse
	if err := c.Post(ctx, pkgapi.PathChat, req, &resp); err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	return &resp, nil
}

// EndSession отмечает сессию завершенной
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	endpoint := pkgapi.PathSessions + "/" + url.PathEscape(sessionID) + "/end"
	if err := c.Put(ctx, endpoint, nil, nil); err != nil {
		return fmt.Errorf("end session request failed: %w", err)
	}
	return nil
}

// SpeechToText uploads recorded audio as multipart form data.
// It bypasses the JSON request path: no JSON content type, no auth headers
// and no token refresh. The result goes through the same envelope decoding
// as every other response.
func (c *Client) SpeechToText(ctx context.Context, filename string, audio io.Reader) (*pkgapi.SpeechResult, error) {
	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("audio_file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+pkgapi.PathSpeechToText, &form)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech-to-text request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API request failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := pkgapi.UnwrapEnvelope(body)
	if err != nil {
		return nil, err
	}

	var result pkgapi.SpeechResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}
