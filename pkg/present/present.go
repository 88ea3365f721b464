// Package present renders the user-visible side effects of a sync: blocking
// alerts, the transient save acknowledgement and the final confirmation.
package present

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formsync/pkg/messages"
)

// Presenter surfaces sync outcomes to the person filling the form.
type Presenter interface {
	// Alert shows a blocking error message.
	Alert(ctx context.Context, message string)
	// Saved acknowledges an explicit save.
	Saved(ctx context.Context)
	// Confirm ends the session after a successful final submission. A
	// non-empty doneURL requests navigation; otherwise the confirmation is
	// shown in place.
	Confirm(ctx context.Context, doneURL string)
}

// Theme carries optional message prefixes.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// DefaultTheme is used by NewTerminal when no theme is given.
var DefaultTheme = Theme{InfoPrefix: "✓ ", ErrorPrefix: "! "}

// Terminal writes feedback lines to a writer.
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	theme  Theme
	locale messages.Localizer
}

// NewTerminal returns a Terminal writing to out (stdout when nil).
func NewTerminal(out io.Writer, locale messages.Localizer, theme *Theme) *Terminal {
	if out == nil {
		out = os.Stdout
	}
	t := &Terminal{out: out, theme: DefaultTheme, locale: locale}
	if theme != nil {
		t.theme = *theme
	}
	return t
}

func (t *Terminal) Alert(_ context.Context, message string) {
	t.println(t.theme.ErrorPrefix + message)
}

func (t *Terminal) Saved(_ context.Context) {
	t.println(t.theme.InfoPrefix + t.locale.T(messages.KeySaved))
}

func (t *Terminal) Confirm(_ context.Context, doneURL string) {
	if doneURL != "" {
		t.println(t.theme.InfoPrefix + t.locale.T(messages.KeyRedirecting, doneURL))
		return
	}
	t.println(t.theme.InfoPrefix + t.locale.T(messages.KeyThanksTitle))
	t.println(t.locale.T(messages.KeyThanksBody))
}

func (t *Terminal) println(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, line)
}

// Log reports feedback through a logger, for headless runs.
type Log struct {
	Logger *zap.Logger
}

func (l Log) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func (l Log) Alert(_ context.Context, message string) {
	l.logger().Warn("sync alert", zap.String("message", message))
}

func (l Log) Saved(_ context.Context) {
	l.logger().Info("answers saved")
}

func (l Log) Confirm(_ context.Context, doneURL string) {
	l.logger().Info("answers submitted", zap.String("done_url", doneURL))
}

// Multi fans feedback out to several presenters.
type Multi []Presenter

func (m Multi) Alert(ctx context.Context, message string) {
	for _, p := range m {
		if p != nil {
			p.Alert(ctx, message)
		}
	}
}

func (m Multi) Saved(ctx context.Context) {
	for _, p := range m {
		if p != nil {
			p.Saved(ctx)
		}
	}
}

func (m Multi) Confirm(ctx context.Context, doneURL string) {
	for _, p := range m {
		if p != nil {
			p.Confirm(ctx, doneURL)
		}
	}
}

// Discard ignores all feedback.
type Discard struct{}

func (Discard) Alert(context.Context, string)   {}
func (Discard) Saved(context.Context)           {}
func (Discard) Confirm(context.Context, string) {}
