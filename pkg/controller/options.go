package controller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formsync/internal/clock"
	"github.com/goliatone/go-formsync/pkg/messages"
	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/present"
	"github.com/goliatone/go-formsync/pkg/transport"
)

const (
	// DefaultDebounce is the quiet period before an autosave.
	DefaultDebounce = 600 * time.Millisecond
	// DefaultMaxWait caps how long continuous input can defer an autosave.
	DefaultMaxWait = 5 * time.Second
)

// Sender delivers a payload to the answers endpoint. *transport.Client
// satisfies it.
type Sender interface {
	Send(ctx context.Context, endpoint string, payload model.SubmissionPayload, mode transport.Mode) (transport.Result, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithSender overrides the transport used for sends.
func WithSender(sender Sender) Option {
	return func(c *Controller) {
		if sender != nil {
			c.sender = sender
		}
	}
}

// WithPresenter sets where alerts and confirmations are shown.
func WithPresenter(p present.Presenter) Option {
	return func(c *Controller) {
		if p != nil {
			c.presenter = p
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDebounce sets the autosave quiet period.
func WithDebounce(delay time.Duration) Option {
	return func(c *Controller) {
		if delay > 0 {
			c.debounce = delay
		}
	}
}

// WithMaxWait sets the autosave ceiling under continuous input. Zero
// disables it.
func WithMaxWait(max time.Duration) Option {
	return func(c *Controller) {
		if max >= 0 {
			c.maxWait = max
		}
	}
}

// WithClock overrides the clock driving the debouncer.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithLocalizer selects the message catalog used for alerts.
func WithLocalizer(l messages.Localizer) Option {
	return func(c *Controller) {
		c.messages = l
	}
}
