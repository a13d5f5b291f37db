package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/iudanet/aiinterview/internal/client/interview"
	"github.com/iudanet/aiinterview/internal/client/iocli"
	"github.com/iudanet/aiinterview/internal/client/router"
	"github.com/iudanet/aiinterview/internal/client/storage"
	"github.com/iudanet/aiinterview/pkg/api"
)

const interviewHelp = `Commands:
  /voice <file>    Send a recorded answer
  /interrupt       Interrupt the AI
  /share           Show the interview link
  /end             End the interview
  /quit            Leave without ending the interview
  /help            Show this help`

func (c *Cli) runInterview(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: usage: interview <link|projectId> [sessionId]", ErrUsage)
	}

	loc, err := interview.ParseLocation(args[0])
	if err != nil {
		return err
	}
	if len(args) == 2 {
		loc.ReplaceParam(interview.ParamSessionID, args[1])
	}

	// Каждый запуск - новая вкладка: сессия из прошлого запуска не переиспользуется
	if loc.Param(interview.ParamSessionID) == "" {
		if err := c.storage.Delete(ctx, storage.KeyInterviewSessionID); err != nil {
			return fmt.Errorf("failed to reset cached session: %w", err)
		}
	}

	c.router.Navigate(router.PathGuestInterview)

	client := newEndWatcher(c.guestClient)
	tr := newTranscript(c.io)

	opts := []interview.Option{
		interview.WithClientInfo(api.ClientInfo{
			UserAgent: c.userAgent(),
			Screen:    c.io.ScreenSize(),
		}),
		interview.WithLogger(c.logger),
	}
	opts = append(opts, c.interviewOptions...)
	opts = append(opts, interview.WithListener(tr.onState))

	store := interview.NewStore(client, c.storage, loc, opts...)
	defer store.ResetState()

	c.io.Println("=== Interview ===")
	c.io.Println()

	if err := store.InitSession(ctx); err != nil {
		return err
	}

	state := store.State()
	if state.ProjectInfo != nil && state.ProjectInfo.Name != "" {
		c.io.Printf("Project: %s\n", state.ProjectInfo.Name)
	}
	c.io.Printf("Session: %s\n", state.SessionID)
	c.io.Println()

	if _, err := c.io.ReadInput("Press Enter to start the interview..."); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	if err := store.StartMicCheck(ctx); err != nil {
		return err
	}
	c.io.Println("Type your answers. /help lists the commands.")
	c.io.Println()

	return c.chat(ctx, store, tr, client)
}

// chat читает ввод до конца интервью, /quit или EOF
func (c *Cli) chat(ctx context.Context, store *interview.Store, tr *transcript, client *endWatcher) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			line, err := c.io.ReadInput("")
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
	}()

	confirming := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-tr.ended:
			select {
			case <-client.ended:
			case <-ctx.Done():
				return ctx.Err()
			}
			c.io.Println()
			c.io.Println("✓ Interview finished. Thank you!")
			return nil

		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				c.io.Println("Leaving the interview.")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)

		case line := <-lines:
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if confirming {
				confirming = false
				switch strings.ToLower(line) {
				case "/yes", "yes", "y":
					store.ConfirmModalAction(ctx)
				default:
					store.CloseModal()
					c.io.Println("The interview continues.")
				}
				continue
			}

			if !strings.HasPrefix(line, "/") {
				if !store.IsInterviewPage() {
					c.io.Println("The interview is not running.")
					continue
				}
				go store.SendMessage(ctx, line, false)
				continue
			}

			command, arg, _ := strings.Cut(line, " ")
			switch command {
			case "/quit":
				c.io.Println("Leaving the interview.")
				return nil
			case "/help":
				c.io.Println(interviewHelp)
			case "/interrupt":
				store.InterruptAI()
			case "/share":
				store.OpenShareModal()
				c.io.Printf("Share link: %s\n", store.ShareLink())
				store.ConfirmModalAction(ctx)
			case "/end":
				store.OpenTerminateModal()
				c.io.Println("End the interview? Type /yes to confirm or /no to continue.")
				confirming = true
			case "/voice":
				if err := c.sendVoice(ctx, store, strings.TrimSpace(arg)); err != nil {
					c.io.Printf("✗ %v\n", err)
				}
			default:
				c.io.Printf("Unknown command %s, /help lists the commands.\n", command)
			}
		}
	}
}

func (c *Cli) sendVoice(ctx context.Context, store *interview.Store, path string) error {
	if path == "" {
		return fmt.Errorf("usage: /voice <file>")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}

	go func() {
		defer f.Close()
		store.UploadAudio(ctx, filepath.Base(path), f)
	}()
	return nil
}

func (c *Cli) userAgent() string {
	version := c.version
	if version == "" {
		version = "dev"
	}
	if c.platform == "" {
		return "aiinterview-cli/" + version
	}
	return fmt.Sprintf("aiinterview-cli/%s (%s)", version, c.platform)
}

// transcript печатает новые сообщения ленты по мере их появления
type transcript struct {
	io         iocli.IO
	ended      chan struct{}
	lastError  string
	printed    int
	version    uint64
	generation uint64
	endOnce    sync.Once
	mu         sync.Mutex
}

func newTranscript(out iocli.IO) *transcript {
	return &transcript{io: out, ended: make(chan struct{})}
}

func (t *transcript) onState(st interview.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// устаревший снимок: более новый уже напечатан
	if st.Version <= t.version {
		return
	}
	t.version = st.Version

	// после ResetState лента начинается заново
	if st.Generation != t.generation {
		t.generation = st.Generation
		t.printed = 0
		t.lastError = ""
	}
	// вход на страницу интервью очищает ленту; напечатанное не повторяем
	if len(st.Messages) < t.printed {
		t.printed = len(st.Messages)
	}
	for _, m := range st.Messages[t.printed:] {
		t.io.Println(formatMessage(m))
	}
	t.printed = len(st.Messages)

	if st.Error != "" && st.Error != t.lastError {
		t.io.Printf("✗ %s\n", st.Error)
	}
	t.lastError = st.Error

	if st.Page == interview.PageEnd {
		t.endOnce.Do(func() { close(t.ended) })
	}
}

func formatMessage(m interview.Message) string {
	content := strings.TrimSpace(strings.ReplaceAll(m.Content, interview.EndMarker, ""))
	switch m.Type {
	case interview.MessageUser:
		if m.IsVoice {
			return "You (voice): " + content
		}
		return "You: " + content
	case interview.MessageAI:
		return "AI: " + content
	default:
		return "* " + content
	}
}

// endWatcher закрывает ended, когда бэкенд ответил на завершение сессии
type endWatcher struct {
	interview.APIClient
	ended chan struct{}
	once  sync.Once
}

func newEndWatcher(client interview.APIClient) *endWatcher {
	return &endWatcher{APIClient: client, ended: make(chan struct{})}
}

func (w *endWatcher) EndSession(ctx context.Context, sessionID string) error {
	defer w.once.Do(func() { close(w.ended) })
	return w.APIClient.EndSession(ctx, sessionID)
}
