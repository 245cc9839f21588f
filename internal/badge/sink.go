package badge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Sink receives every badge update.
type Sink interface {
	Publish(ctx context.Context, b Badge) error
}

// Latest keeps the most recent badge in memory for pull-based readers.
type Latest struct {
	mu    sync.RWMutex
	badge Badge
	set   bool
}

func NewLatest() *Latest {
	return &Latest{badge: Empty()}
}

func (l *Latest) Publish(_ context.Context, b Badge) error {
	l.mu.Lock()
	l.badge = b
	l.set = true
	l.mu.Unlock()
	return nil
}

// Get returns the latest badge and whether one was ever published.
func (l *Latest) Get() (Badge, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.badge, l.set
}

// LogSink logs each update.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, b Badge) error {
	fields := []zap.Field{
		zap.String("text", b.Text),
		zap.String("color", b.Color),
		zap.String("state", string(b.State)),
		zap.String("account", b.Account),
	}
	if b.State == StateError {
		s.logger.Warn("badge update", append(fields, zap.String("error", b.Error))...)
		return nil
	}
	s.logger.Info("badge update", append(fields, zap.Stringer("tier", b.Tier))...)
	return nil
}

// TerminalSink renders the badge as a coloured label on a terminal.
type TerminalSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTerminalSink(w io.Writer) *TerminalSink {
	return &TerminalSink{w: w}
}

func (s *TerminalSink) Publish(_ context.Context, b Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, Render(b))
	return err
}

// Render draws the badge text on its colour followed by the account.
func Render(b Badge) string {
	if b.State == StateEmpty {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render("no pinned account")
	}
	label := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(b.Color)).
		Padding(0, 1).
		Render(b.Text)

	detail := b.Account
	if b.State == StateError && b.Error != "" {
		detail = b.Error
	}
	if detail == "" {
		return label
	}
	return label + " " + lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(detail)
}

// MultiSink fans an update out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, b Badge) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
