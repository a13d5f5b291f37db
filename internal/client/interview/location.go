package interview

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Параметры ссылки на интервью
const (
	ParamProjectID = "projectId"
	ParamSessionID = "sessionId"
)

//go:generate moq -out location_mock.go . Location

// Location is the address the interview was opened from. The session id
// is written back into it so the link can be shared or reopened.
type Location interface {
	Param(name string) string
	ReplaceParam(name, value string)
}

// URLLocation is a Location over an interview link
// such as https://host/guest-interview?projectId=1
type URLLocation struct {
	u  *url.URL
	mu sync.RWMutex
}

// ParseLocation parses an interview link. A bare value without a query
// string is taken as the project id.
func ParseLocation(raw string) (*URLLocation, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty interview link")
	}

	if !strings.Contains(raw, "?") && !strings.Contains(raw, "/") && !strings.Contains(raw, "=") {
		u := &url.URL{Path: "/guest-interview"}
		u.RawQuery = url.Values{ParamProjectID: {raw}}.Encode()
		return &URLLocation{u: u}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid interview link %q: %w", raw, err)
	}
	return &URLLocation{u: u}, nil
}

func (l *URLLocation) Param(name string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.u.Query().Get(name)
}

// ReplaceParam sets name=value in the query string, keeping other parameters
func (l *URLLocation) ReplaceParam(name, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	q := l.u.Query()
	q.Set(name, value)
	l.u.RawQuery = q.Encode()
}

func (l *URLLocation) String() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.u.String()
}
