// Package notify provides the sinks the HTTP client reports request
// progress to: a loading indicator plus error and success toasts.
package notify

import (
	"log/slog"

	"github.com/iudanet/aiinterview/internal/client/iocli"
)

// Kind identifies a notification
type Kind string

const (
	KindLoading Kind = "loading" // request started
	KindLoaded  Kind = "loaded"  // request finished, hide the indicator
	KindError   Kind = "error"
	KindSuccess Kind = "success"
)

//go:generate moq -out notifier_mock.go . Notifier

// Notifier receives user-facing feedback
type Notifier interface {
	Show(kind Kind, message string)
}

// Nop drops every notification
type Nop struct{}

func (Nop) Show(Kind, string) {}

// Log writes notifications to a structured logger
type Log struct {
	Logger *slog.Logger
}

func (l Log) Show(kind Kind, message string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch kind {
	case KindError:
		logger.Warn("request failed", "message", message)
	case KindSuccess:
		logger.Info(message)
	default:
		logger.Debug("request progress", "kind", string(kind), "message", message)
	}
}

// Console prints error and success toasts to the terminal.
// The loading indicator is only shown when Verbose is set.
type Console struct {
	IO      iocli.IO
	Verbose bool
}

func (c Console) Show(kind Kind, message string) {
	switch kind {
	case KindError:
		c.IO.Printf("✗ %s\n", message)
	case KindSuccess:
		c.IO.Printf("✓ %s\n", message)
	case KindLoading:
		if c.Verbose {
			c.IO.Println("Loading...")
		}
	}
}

// Multi fans a notification out to several sinks
type Multi []Notifier

func (m Multi) Show(kind Kind, message string) {
	for _, n := range m {
		n.Show(kind, message)
	}
}
