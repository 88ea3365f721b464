// Package controller binds a form snapshot to the answers endpoint. A
// Controller collects answers, autosaves them after a quiet period
// following input, saves on demand and performs the validated final
// submission.
//
// Sends are serialised: at most one request per form is in flight, later
// sends wait for it. A final submission moves the controller to its
// terminal phase, after which drafts and further submits are rejected.
package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/goliatone/go-formsync/internal/clock"
	"github.com/goliatone/go-formsync/internal/debounce"
	"github.com/goliatone/go-formsync/pkg/answers"
	"github.com/goliatone/go-formsync/pkg/messages"
	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/present"
	"github.com/goliatone/go-formsync/pkg/snapshot"
	"github.com/goliatone/go-formsync/pkg/transport"
)

// Phase is the submission state of an attached form.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseDone       Phase = "done"
)

// Controller synchronises one form at a time.
type Controller struct {
	sender    Sender
	presenter present.Presenter
	logger    *zap.Logger
	messages  messages.Localizer
	clock     clock.Clock
	debounce  time.Duration
	maxWait   time.Duration

	inflight *semaphore.Weighted

	mu        sync.Mutex
	form      snapshot.Form
	phase     Phase
	confirmed bool
	autosaver *debounce.Debouncer
	unobserve func()
	bgCtx     context.Context
	bgCancel  context.CancelFunc
}

// New constructs a detached Controller.
func New(options ...Option) *Controller {
	c := &Controller{
		presenter: present.Discard{},
		logger:    zap.NewNop(),
		messages:  messages.New(messages.DefaultLocale),
		clock:     clock.Real(),
		debounce:  DefaultDebounce,
		maxWait:   DefaultMaxWait,
		inflight:  semaphore.NewWeighted(1),
		phase:     PhaseIdle,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.sender == nil {
		c.sender = transport.New(transport.WithLogger(c.logger))
	}
	return c
}

// Attach binds the controller to form. Observable forms start feeding input
// events into the autosave debouncer and range controls get their labels
// mirrored.
func (c *Controller) Attach(ctx context.Context, form snapshot.Form) error {
	if form == nil {
		return errors.New("controller: form is nil")
	}

	c.mu.Lock()
	if c.form != nil {
		c.mu.Unlock()
		return ErrAttached
	}
	c.form = form
	c.phase = PhaseIdle
	c.confirmed = false
	c.bgCtx, c.bgCancel = context.WithCancel(context.Background())
	c.autosaver = debounce.New(c.debounce, c.autosave,
		debounce.WithClock(c.clock),
		debounce.WithMaxWait(c.maxWait),
	)
	c.mu.Unlock()

	if obs, ok := form.(snapshot.Observable); ok {
		cancel := obs.Observe(c.HandleInput)
		c.mu.Lock()
		c.unobserve = cancel
		c.mu.Unlock()
	}

	c.mirrorRanges(ctx, form)
	c.logger.Debug("form attached",
		zap.Duration("debounce", c.debounce),
		zap.Duration("max_wait", c.maxWait))
	return nil
}

// Detach releases the form. Pending autosaves are dropped and background
// sends are cancelled.
func (c *Controller) Detach() {
	c.mu.Lock()
	if c.form == nil {
		c.mu.Unlock()
		return
	}
	c.form = nil
	autosaver, unobserve, cancel := c.autosaver, c.unobserve, c.bgCancel
	c.autosaver, c.unobserve, c.bgCancel = nil, nil, nil
	c.mu.Unlock()

	if unobserve != nil {
		unobserve()
	}
	if autosaver != nil {
		autosaver.Stop()
	}
	if cancel != nil {
		cancel()
	}
	c.logger.Debug("form detached")
}

// Phase reports the submission phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// AutosavePending reports whether an autosave is scheduled.
func (c *Controller) AutosavePending() bool {
	c.mu.Lock()
	autosaver := c.autosaver
	c.mu.Unlock()
	return autosaver != nil && autosaver.Pending()
}

// HandleInput reacts to a control change: range labels are mirrored and the
// autosave is rescheduled. Input after the final submission is ignored.
func (c *Controller) HandleInput(ev model.InputEvent) {
	c.mu.Lock()
	form, autosaver, ctx, phase := c.form, c.autosaver, c.bgCtx, c.phase
	c.mu.Unlock()
	if form == nil || phase == PhaseDone {
		return
	}

	if ev.Kind == model.ControlRange {
		if mirror, ok := form.(snapshot.RangeMirror); ok {
			if err := mirror.MirrorRange(ctx, ev.QuestionID, ev.Value); err != nil {
				c.logger.Debug("range label not updated", zap.String("question_id", ev.QuestionID), zap.Error(err))
			}
		}
	}
	autosaver.Trigger()
}

// CollectAnswers reads the attached form and returns one answer per
// identified block in document order.
func (c *Controller) CollectAnswers(ctx context.Context) ([]model.Answer, error) {
	form, err := c.attachedForm()
	if err != nil {
		return nil, err
	}
	blocks, err := form.Blocks(ctx)
	if err != nil {
		return nil, err
	}
	return answers.Collect(blocks), nil
}

// Save sends a draft immediately. The pending autosave, if any, is left
// untouched.
func (c *Controller) Save(ctx context.Context) error {
	if err := c.SendAnswers(ctx, false); err != nil {
		return err
	}
	c.presenter.Saved(ctx)
	return nil
}

// Submit validates the form and sends the final answers. Unanswered
// required questions abort the submission with a ValidationError.
func (c *Controller) Submit(ctx context.Context) error {
	form, err := c.attachedForm()
	if err != nil {
		return err
	}
	switch c.Phase() {
	case PhaseDone:
		return ErrFinalized
	case PhaseSubmitting:
		return ErrSubmitInProgress
	}

	issues, err := form.Validate(ctx)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		c.presenter.Alert(ctx, c.validationAlert(ctx, form, issues))
		return &ValidationError{Issues: issues}
	}
	return c.SendAnswers(ctx, true)
}

// validationAlert is the required-fields message followed by one
// "question: message" line per issue. Questions are named by their prompt
// when the form provides one.
func (c *Controller) validationAlert(ctx context.Context, form snapshot.Form, issues []model.ValidationIssue) string {
	prompts := map[string]string{}
	if blocks, err := form.Blocks(ctx); err == nil {
		for _, b := range blocks {
			if p := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(b.Prompt), "*")); p != "" {
				prompts[b.QuestionID] = p
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(c.messages.T(messages.KeyRequiredFields))
	for _, issue := range issues {
		name := issue.QuestionID
		if p, ok := prompts[issue.QuestionID]; ok {
			name = p
		}
		sb.WriteString("\n")
		sb.WriteString(name)
		if issue.Message != "" {
			sb.WriteString(": ")
			sb.WriteString(issue.Message)
		}
	}
	return sb.String()
}

// SendAnswers builds a fresh payload from the live form and posts it.
// Failures are presented to the user and returned; nothing is retried.
func (c *Controller) SendAnswers(ctx context.Context, finalize bool) error {
	form, err := c.attachedForm()
	if err != nil {
		return err
	}
	if err := c.begin(finalize); err != nil {
		return err
	}

	err = c.send(ctx, form, finalize)
	if finalize {
		c.finish(ctx, form, err)
	}
	return err
}

func (c *Controller) send(ctx context.Context, form snapshot.Form, finalize bool) error {
	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.inflight.Release(1)

	if !finalize && c.Phase() == PhaseDone {
		return ErrFinalized
	}

	attrs, err := form.Attributes(ctx)
	if err != nil {
		return err
	}
	blocks, err := form.Blocks(ctx)
	if err != nil {
		return err
	}
	payload := answers.BuildPayload(answers.Collect(blocks), attrs.CSRFToken)

	mode := transport.ModeFor(finalize)
	res, err := c.sender.Send(ctx, attrs.Endpoint, payload, mode)
	if err != nil {
		c.report(ctx, err)
		return err
	}
	c.logger.Debug("answers synced",
		zap.String("mode", mode.String()),
		zap.Int("answers", len(payload.Answers)),
		zap.String("request_id", res.RequestID))
	return nil
}

// begin enters the submitting phase for final sends and rejects drafts once
// the form is done.
func (c *Controller) begin(finalize bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case PhaseDone:
		return ErrFinalized
	case PhaseSubmitting:
		if finalize {
			return ErrSubmitInProgress
		}
	default:
		if finalize {
			c.phase = PhaseSubmitting
		}
	}
	return nil
}

// finish settles a final send: success confirms once, failure returns the
// form to idle so the user can retry.
func (c *Controller) finish(ctx context.Context, form snapshot.Form, sendErr error) {
	c.mu.Lock()
	if sendErr != nil {
		if c.phase == PhaseSubmitting {
			c.phase = PhaseIdle
		}
		c.mu.Unlock()
		return
	}
	c.phase = PhaseDone
	confirm := !c.confirmed
	c.confirmed = true
	autosaver := c.autosaver
	c.mu.Unlock()

	if autosaver != nil {
		autosaver.Cancel()
	}
	if !confirm {
		return
	}
	doneURL := ""
	if attrs, err := form.Attributes(ctx); err == nil {
		doneURL = attrs.DoneURL
	}
	c.presenter.Confirm(ctx, doneURL)
}

func (c *Controller) autosave() {
	c.mu.Lock()
	ctx := c.bgCtx
	c.mu.Unlock()
	if ctx == nil {
		return
	}
	err := c.SendAnswers(ctx, false)
	switch {
	case err == nil:
	case errors.Is(err, ErrDetached), errors.Is(err, ErrFinalized), errors.Is(err, context.Canceled):
		c.logger.Debug("autosave skipped", zap.Error(err))
	default:
		c.logger.Warn("autosave failed", zap.Error(err))
	}
}

func (c *Controller) report(ctx context.Context, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	var (
		serverErr *transport.ServerError
		netErr    *transport.NetworkError
	)
	switch {
	case errors.As(err, &serverErr):
		msg := serverErr.Detail
		if msg == "" {
			msg = c.messages.T(messages.KeySaveFailed)
		}
		c.logger.Warn("answers rejected",
			zap.Int("status", serverErr.Status),
			zap.String("detail", serverErr.Detail),
			zap.String("request_id", serverErr.RequestID))
		c.presenter.Alert(ctx, msg)
	case errors.As(err, &netErr):
		c.logger.Warn("answers not delivered", zap.Error(err))
		c.presenter.Alert(ctx, c.messages.T(messages.KeyNetworkFailed))
	default:
		c.logger.Warn("answers not sent", zap.Error(err))
		c.presenter.Alert(ctx, c.messages.T(messages.KeySaveFailed))
	}
}

func (c *Controller) mirrorRanges(ctx context.Context, form snapshot.Form) {
	mirror, ok := form.(snapshot.RangeMirror)
	if !ok {
		return
	}
	blocks, err := form.Blocks(ctx)
	if err != nil {
		c.logger.Debug("range labels not initialised", zap.Error(err))
		return
	}
	for _, block := range blocks {
		for _, ctrl := range block.Controls {
			if ctrl.Kind != model.ControlRange || block.QuestionID == "" {
				continue
			}
			if err := mirror.MirrorRange(ctx, block.QuestionID, ctrl.Value); err != nil {
				c.logger.Debug("range label not updated", zap.String("question_id", block.QuestionID), zap.Error(err))
			}
		}
	}
}

func (c *Controller) attachedForm() (snapshot.Form, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.form == nil {
		return nil, ErrDetached
	}
	return c.form, nil
}
