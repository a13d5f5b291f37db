package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Envelope представляет общий формат ответа бэкенда
type Envelope struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
	Detail  json.RawMessage `json:"detail,omitempty"`
	Code    json.RawMessage `json:"code,omitempty"`
}

// EnvelopeError is returned when the backend answers with a success HTTP
// status but reports a failure code (>= 400) inside the envelope.
type EnvelopeError struct {
	Message string
	Code    int
}

func (e *EnvelopeError) Error() string {
	return e.Message
}

// UnwrapEnvelope decodes a successful JSON response body and returns its
// payload:
//   - invalid JSON is an error;
//   - an object with a numeric code >= 400 and no data is an *EnvelopeError;
//   - an object with a non-null data field yields that field;
//   - anything else yields the whole body.
//
// This is the only place the envelope convention is interpreted.
func UnwrapEnvelope(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("failed to decode response: invalid JSON")
	}

	// Не объект (массив, строка, число) - конверта нет
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return json.RawMessage(trimmed), nil
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return json.RawMessage(trimmed), nil
	}

	hasData := len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null"))

	if code, ok := env.StatusCode(); ok && code >= 400 && !hasData {
		return nil, &EnvelopeError{
			Code:    code,
			Message: messageFrom(env, fmt.Sprintf("request failed: %d", code)),
		}
	}

	if hasData {
		return env.Data, nil
	}
	return json.RawMessage(trimmed), nil
}

// StatusCode returns code when it is an integral JSON number.
// Strings ("OK") and fractions are not status codes.
func (e Envelope) StatusCode() (int, bool) {
	raw := bytes.TrimSpace(e.Code)
	if len(raw) == 0 || raw[0] == '"' {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == "" {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return int(i), true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// ErrorMessage extracts a human-readable message from an error response body.
// detail wins over message; non-string values are re-encoded as JSON.
func ErrorMessage(body []byte, status int) string {
	fallback := fmt.Sprintf("request failed: %d", status)

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fallback
	}
	return messageFrom(env, fallback)
}

func messageFrom(env Envelope, fallback string) string {
	if msg := rawText(env.Detail); msg != "" {
		return msg
	}
	if msg := rawText(env.Message); msg != "" {
		return msg
	}
	return fallback
}

// rawText превращает значение поля в строку: строки как есть, остальное - JSON
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}
