package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/iudanet/aiinterview/internal/client/notify"
	pkgapi "github.com/iudanet/aiinterview/pkg/api"
)

// ResponseType selects how a successful response is decoded
type ResponseType int

const (
	// ResponseJSON unwraps the envelope and keeps the payload
	ResponseJSON ResponseType = iota
	// ResponseBinary keeps the raw body and headers (file downloads)
	ResponseBinary
)

// RequestOptions описывает один запрос
type RequestOptions struct {
	Body    any         // сериализуется в JSON если не nil
	Headers http.Header // перекрывают стандартные заголовки
	// ShowLoading включает индикатор загрузки; nil - значение по умолчанию клиента
	ShowLoading  *bool
	Method       string
	ResponseType ResponseType
}

// Response is the outcome of a successful request
type Response struct {
	Header http.Header
	// Data - содержимое data конверта (или все тело), только для ResponseJSON
	Data json.RawMessage
	// Body - сырое тело, заполняется всегда
	Body   []byte
	Status int
}

// Decode unmarshals the unwrapped payload into out
func (r *Response) Decode(out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return &RequestError{Status: r.Status, Message: fmt.Sprintf("failed to decode response: %v", err), Err: err}
	}
	return nil
}

// RequestError is the single error shape of the client. Transport, status
// and decode failures all end up here with a readable message.
type RequestError struct {
	Err     error
	Message string
	Status  int // 0 для сетевых ошибок
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Bool возвращает указатель на b, для RequestOptions.ShowLoading
func Bool(b bool) *bool {
	return &b
}

// Request sends a request and handles the response.
//
// A 401 triggers exactly one token refresh; when it succeeds the request is
// retried exactly once, and a second 401 is reported as an error without
// another refresh.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions) (*Response, error) {
	if opts.Method == "" {
		opts.Method = http.MethodGet
	}

	showLoading := !c.guestMode
	if opts.ShowLoading != nil {
		showLoading = *opts.ShowLoading
	}

	if showLoading {
		c.notifier.Show(notify.KindLoading, "")
		defer c.notifier.Show(notify.KindLoaded, "")
	}

	resp, err := c.do(ctx, endpoint, opts, true)
	if err != nil {
		c.logger.Warn("API request failed", "method", opts.Method, "endpoint", endpoint, "error", err)
		c.notifier.Show(notify.KindError, err.Error())
		return nil, err
	}
	return resp, nil
}

// do выполняет HTTP запрос; allowRefresh разрешает одну попытку обновления токена
func (c *Client) do(ctx context.Context, endpoint string, opts RequestOptions, allowRefresh bool) (*Response, error) {
	req, err := c.newRequest(ctx, endpoint, opts)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("API request", "method", req.Method, "url", req.URL.String())

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Message: fmt.Sprintf("request failed: %v", err), Err: err}
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	// Читаем тело ответа
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &RequestError{Status: httpResp.StatusCode, Message: fmt.Sprintf("failed to read response body: %v", err), Err: err}
	}

	c.logger.Debug("API response", "status", httpResp.StatusCode, "bytes", len(body))

	// Проверяем статус код
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		if httpResp.StatusCode == http.StatusUnauthorized && allowRefresh && c.session != nil {
			if c.session.RefreshToken(ctx) {
				return c.do(ctx, endpoint, opts, false)
			}
		}
		return nil, &RequestError{
			Status:  httpResp.StatusCode,
			Message: pkgapi.ErrorMessage(body, httpResp.StatusCode),
		}
	}

	resp := &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   body,
	}
	if opts.ResponseType == ResponseBinary {
		return resp, nil
	}

	data, err := pkgapi.UnwrapEnvelope(body)
	if err != nil {
		return nil, &RequestError{Status: httpResp.StatusCode, Message: err.Error(), Err: err}
	}
	resp.Data = data
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, endpoint string, opts RequestOptions) (*http.Request, error) {
	var bodyReader io.Reader
	if opts.Body != nil {
		jsonData, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, &RequestError{Message: fmt.Sprintf("failed to marshal request body: %v", err), Err: err}
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, c.FullURL(endpoint), bodyReader)
	if err != nil {
		return nil, &RequestError{Message: fmt.Sprintf("failed to create request: %v", err), Err: err}
	}

	headers, err := c.headers(ctx)
	if err != nil {
		return nil, &RequestError{Message: fmt.Sprintf("failed to build headers: %v", err), Err: err}
	}
	// заголовки вызывающего побеждают при конфликте
	for key, values := range opts.Headers {
		headers.Del(key)
		for _, v := range values {
			headers.Add(key, v)
		}
	}
	req.Header = headers

	return req, nil
}

func (c *Client) headers(ctx context.Context) (http.Header, error) {
	if c.session == nil {
		h := http.Header{}
		h.Set("Content-Type", "application/json")
		return h, nil
	}
	h, err := c.session.Headers(ctx)
	if err != nil {
		return nil, err
	}
	return h.Clone(), nil
}

// Get выполняет GET и декодирует payload в out (out может быть nil)
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.call(ctx, endpoint, RequestOptions{Method: http.MethodGet}, out)
}

// Post выполняет POST с JSON телом
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.call(ctx, endpoint, RequestOptions{Method: http.MethodPost, Body: body}, out)
}

// Put выполняет PUT с JSON телом
func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	return c.call(ctx, endpoint, RequestOptions{Method: http.MethodPut, Body: body}, out)
}

// Delete выполняет DELETE
func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	return c.call(ctx, endpoint, RequestOptions{Method: http.MethodDelete}, out)
}

// Patch выполняет PATCH с JSON телом
func (c *Client) Patch(ctx context.Context, endpoint string, body, out any) error {
	return c.call(ctx, endpoint, RequestOptions{Method: http.MethodPatch, Body: body}, out)
}

func (c *Client) call(ctx context.Context, endpoint string, opts RequestOptions, out any) error {
	resp, err := c.Request(ctx, endpoint, opts)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}
