// Package browser implements the form snapshot over a live Chrome page
// driven through go-rod. Reads evaluate scripts in the page, input events
// arrive through an exposed binding.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
	"go.uber.org/zap"

	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/snapshot"
)

// Binding is the window function the page calls with input and action
// messages.
const Binding = "__formsyncInput"

// Action is a button press forwarded from the page.
type Action string

const (
	ActionSave   Action = "save"
	ActionSubmit Action = "submit"
)

// Option customises a Page.
type Option func(*Page)

// WithLogger sets the logger used for binding diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Page) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithNow overrides the event timestamp source.
func WithNow(now func() time.Time) Option {
	return func(p *Page) {
		if now != nil {
			p.now = now
		}
	}
}

// Page is a snapshot.Form backed by a rod page.
type Page struct {
	page   *rod.Page
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	listeners map[int]func(model.InputEvent)
	nextID    int
	closed    bool

	actions chan Action
	stop    func() error
}

var (
	_ snapshot.Writable    = (*Page)(nil)
	_ snapshot.Observable  = (*Page)(nil)
	_ snapshot.RangeMirror = (*Page)(nil)
)

// Connect attaches to the Chrome instance at controlURL, launching a
// headless one when controlURL is empty.
func Connect(ctx context.Context, controlURL string, headless bool) (*rod.Browser, error) {
	if controlURL == "" {
		u, err := launcher.New().Headless(headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch chrome: %w", err)
		}
		controlURL = u
	}
	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, nil
}

// Open navigates a new tab to url and wraps its form.
func Open(ctx context.Context, b *rod.Browser, url string, options ...Option) (*Page, error) {
	if b == nil {
		return nil, errors.New("browser: nil browser")
	}
	page, err := b.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("browser: open %s: %w", url, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		return nil, fmt.Errorf("browser: wait load: %w", err)
	}
	return New(ctx, page, options...)
}

// New wraps an already loaded page. It returns snapshot.ErrFormNotFound when
// the page has no survey form.
func New(ctx context.Context, page *rod.Page, options ...Option) (*Page, error) {
	if page == nil {
		return nil, errors.New("browser: nil page")
	}
	p := &Page{
		page:      page,
		logger:    zap.NewNop(),
		now:       time.Now,
		listeners: make(map[int]func(model.InputEvent)),
		actions:   make(chan Action, 8),
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}

	var found bool
	if err := p.eval(ctx, &found, jsHasForm); err != nil {
		return nil, err
	}
	if !found {
		return nil, snapshot.ErrFormNotFound
	}

	stop, err := page.Expose(Binding, p.onBinding)
	if err != nil {
		return nil, fmt.Errorf("browser: expose binding: %w", err)
	}
	p.stop = stop

	var installed bool
	if err := p.eval(ctx, &installed, jsInstall, Binding); err != nil {
		_ = stop()
		return nil, err
	}
	return p, nil
}

// Rod returns the underlying page.
func (p *Page) Rod() *rod.Page { return p.page }

// Actions delivers save and submit presses. The channel is closed by Close.
func (p *Page) Actions() <-chan Action { return p.actions }

// Close removes the binding and ends action delivery. The page itself stays
// open.
func (p *Page) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.listeners = map[int]func(model.InputEvent){}
	close(p.actions)
	p.mu.Unlock()

	if p.stop != nil {
		return p.stop()
	}
	return nil
}

func (p *Page) Attributes(ctx context.Context) (model.FormAttributes, error) {
	var attrs *model.FormAttributes
	if err := p.eval(ctx, &attrs, jsAttributes); err != nil {
		return model.FormAttributes{}, err
	}
	if attrs == nil {
		return model.FormAttributes{}, snapshot.ErrFormNotFound
	}
	return *attrs, nil
}

func (p *Page) Blocks(ctx context.Context) ([]model.QuestionBlock, error) {
	var blocks []model.QuestionBlock
	if err := p.eval(ctx, &blocks, jsBlocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// Validate uses the browser's constraint validation, so messages are the
// browser's own.
func (p *Page) Validate(ctx context.Context) ([]model.ValidationIssue, error) {
	var issues []model.ValidationIssue
	if err := p.eval(ctx, &issues, jsValidate); err != nil {
		return nil, err
	}
	return issues, nil
}

func (p *Page) MirrorRange(ctx context.Context, questionID, value string) error {
	var ok bool
	if err := p.eval(ctx, &ok, jsMirrorRange, questionID, value); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", snapshot.ErrUnknownQuestion, questionID)
	}
	return nil
}

// SetValue writes a textual control and dispatches an input event, which
// reaches observers through the binding.
func (p *Page) SetValue(questionID, value string) error {
	var msg string
	if err := p.eval(context.Background(), &msg, jsSetValue, questionID, value); err != nil {
		return err
	}
	return mutationError(questionID, msg)
}

func (p *Page) SetChecked(questionID, value string, checked bool) error {
	var msg string
	if err := p.eval(context.Background(), &msg, jsSetChecked, questionID, value, checked); err != nil {
		return err
	}
	return mutationError(questionID, msg)
}

func (p *Page) Observe(listener func(model.InputEvent)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if listener == nil || p.closed {
		return func() {}
	}
	id := p.nextID
	p.nextID++
	p.listeners[id] = listener
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Page) onBinding(arg gson.JSON) (interface{}, error) {
	msg, err := parseBinding(arg)
	if err != nil {
		p.logger.Debug("ignoring binding message", zap.Error(err))
		return nil, nil
	}
	if msg.action != "" {
		p.deliverAction(msg.action)
		return nil, nil
	}

	ev := msg.event
	ev.At = p.now()
	p.mu.Lock()
	listeners := make([]func(model.InputEvent), 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
	return nil, nil
}

func (p *Page) deliverAction(a Action) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.actions <- a:
	default:
		p.logger.Warn("dropping page action", zap.String("action", string(a)))
	}
}

// eval runs a function expression in the page and decodes its result into
// out.
func (p *Page) eval(ctx context.Context, out any, js string, args ...interface{}) error {
	res, err := p.page.Context(ctx).Evaluate(rod.Eval(js, args...).ByPromise())
	if err != nil {
		return fmt.Errorf("browser: evaluate: %w", err)
	}
	if out == nil || res == nil {
		return nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("browser: encode result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("browser: decode result: %w", err)
	}
	return nil
}

type bindingMessage struct {
	action Action
	event  model.InputEvent
}

// parseBinding decodes a message posted by the page script.
func parseBinding(arg gson.JSON) (bindingMessage, error) {
	if arg.Nil() {
		return bindingMessage{}, errors.New("browser: empty binding message")
	}
	if a := arg.Get("action").Str(); a != "" {
		switch Action(a) {
		case ActionSave, ActionSubmit:
			return bindingMessage{action: Action(a)}, nil
		default:
			return bindingMessage{}, fmt.Errorf("browser: unknown action %q", a)
		}
	}
	qid := arg.Get("question_id").Str()
	if qid == "" {
		return bindingMessage{}, errors.New("browser: binding message without question_id")
	}
	kind := model.ControlKind(arg.Get("kind").Str())
	if !kind.Valid() {
		return bindingMessage{}, fmt.Errorf("browser: unsupported control kind %q", kind)
	}
	return bindingMessage{event: model.InputEvent{
		QuestionID: qid,
		Kind:       kind,
		Value:      arg.Get("value").Str(),
	}}, nil
}

func mutationError(questionID, msg string) error {
	switch msg {
	case "":
		return nil
	case "form not found":
		return snapshot.ErrFormNotFound
	case "unknown question":
		return fmt.Errorf("%w: %s", snapshot.ErrUnknownQuestion, questionID)
	default:
		return fmt.Errorf("browser: %s: %s", questionID, msg)
	}
}
