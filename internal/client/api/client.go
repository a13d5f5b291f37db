package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strings"

	"github.com/iudanet/aiinterview/internal/client/notify"
)

// apiPrefix добавляется ко всем относительным путям
const apiPrefix = "/api"

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

//go:generate moq -out session_mock.go . Session

// Session supplies request headers and recovers from an expired access token
type Session interface {
	// Headers returns Content-Type, CSRF and Authorization headers
	Headers(ctx context.Context) (http.Header, error)
	// RefreshToken makes one refresh attempt and reports success
	RefreshToken(ctx context.Context) bool
}

// Client представляет HTTP клиент для взаимодействия с бэкендом интервью
type Client struct {
	httpClient  *http.Client
	session     Session
	notifier    notify.Notifier
	logger      *slog.Logger
	baseURL     string
	downloadDir string
	// индикатор загрузки по умолчанию выключен на гостевой странице интервью
	guestMode bool
}

// Option настраивает Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. A cookie jar is
// attached if the client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithNotifier sets the sink for loading/error/success feedback
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) {
		c.notifier = n
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithGuestMode turns the loading indicator off by default
func WithGuestMode(guest bool) Option {
	return func(c *Client) {
		c.guestMode = guest
	}
}

// WithDownloadDir sets where Export* helpers save files
func WithDownloadDir(dir string) Option {
	return func(c *Client) {
		c.downloadDir = dir
	}
}

// NewClient создает новый API клиент. baseURL "" означает относительные URL.
func NewClient(baseURL string, session Session, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		session:     session,
		notifier:    notify.Nop{},
		logger:      slog.Default(),
		downloadDir: ".",
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.httpClient.Jar == nil {
		// cookie отправляются со всеми запросами (credentials: include)
		jar, _ := cookiejar.New(nil)
		c.httpClient.Jar = jar
	}
	if c.httpClient.CheckRedirect == nil {
		c.httpClient.CheckRedirect = keepAuthorizationOnRedirect
	}

	return c
}

// keepAuthorizationOnRedirect копирует заголовок Authorization при редиректе
func keepAuthorizationOnRedirect(req *http.Request, via []*http.Request) error {
	// Ограничиваем количество редиректов
	if len(via) >= 10 {
		return fmt.Errorf("stopped after 10 redirects")
	}
	if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
		req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
	}
	return nil
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FullURL builds the request URL for endpoint.
//
// Absolute URLs are returned unchanged. Otherwise the path gets exactly one
// leading slash, loses one trailing slash (a redirect would drop the body of
// a POST on some clients) and is prefixed with /api unless it already is.
// The query string is kept as is. FullURL is idempotent on its own output
// path: FullURL("users/") == FullURL("/api/users").
func (c *Client) FullURL(endpoint string) string {
	if schemeRe.MatchString(endpoint) {
		return endpoint
	}

	path, query, hasQuery := strings.Cut(endpoint, "?")

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimSuffix(path, "/")

	if path != apiPrefix && !strings.HasPrefix(path, apiPrefix+"/") {
		path = apiPrefix + path
	}

	if hasQuery && query != "" {
		path += "?" + query
	}

	return c.baseURL + path
}
