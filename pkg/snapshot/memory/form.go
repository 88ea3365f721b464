// Package memory provides an in-process form snapshot. It backs terminal
// sessions and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/snapshot"
)

// DefaultRequiredMessage is the validation message used when none is set.
const DefaultRequiredMessage = "This field is required"

// Option configures a Form.
type Option func(*Form)

// WithRequiredMessage sets the message attached to required-field issues.
func WithRequiredMessage(msg string) Option {
	return func(f *Form) {
		if msg != "" {
			f.requiredMessage = msg
		}
	}
}

// WithNow overrides the timestamp source for input events.
func WithNow(now func() time.Time) Option {
	return func(f *Form) {
		if now != nil {
			f.now = now
		}
	}
}

// Form is a concurrency-safe in-memory form.
type Form struct {
	mu              sync.RWMutex
	attrs           model.FormAttributes
	blocks          []model.QuestionBlock
	rangeLabels     map[string]string
	listeners       map[int]func(model.InputEvent)
	nextListener    int
	requiredMessage string
	now             func() time.Time
}

var (
	_ snapshot.Writable    = (*Form)(nil)
	_ snapshot.Observable  = (*Form)(nil)
	_ snapshot.RangeMirror = (*Form)(nil)
)

// New builds a Form holding copies of blocks.
func New(attrs model.FormAttributes, blocks []model.QuestionBlock, options ...Option) *Form {
	f := &Form{
		attrs:           attrs,
		blocks:          cloneBlocks(blocks),
		rangeLabels:     make(map[string]string),
		listeners:       make(map[int]func(model.InputEvent)),
		requiredMessage: DefaultRequiredMessage,
		now:             time.Now,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	return f
}

// Attributes returns the form attributes.
func (f *Form) Attributes(ctx context.Context) (model.FormAttributes, error) {
	if err := ctx.Err(); err != nil {
		return model.FormAttributes{}, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.attrs, nil
}

// Blocks returns a copy of the current blocks.
func (f *Form) Blocks(ctx context.Context) ([]model.QuestionBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return cloneBlocks(f.blocks), nil
}

// Validate reports required questions left empty.
func (f *Form) Validate(ctx context.Context) ([]model.ValidationIssue, error) {
	blocks, err := f.Blocks(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.ValidateRequired(blocks, f.requiredMessage), nil
}

// Observe registers listener for input events.
func (f *Form) Observe(listener func(model.InputEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextListener
	f.nextListener++
	f.listeners[id] = listener
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

// MirrorRange records the displayed value of a range question.
func (f *Form) MirrorRange(ctx context.Context, questionID, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexLocked(questionID) < 0 {
		return fmt.Errorf("%w: %s", snapshot.ErrUnknownQuestion, questionID)
	}
	f.rangeLabels[questionID] = value
	return nil
}

// RangeLabel returns the last mirrored value for a range question.
func (f *Form) RangeLabel(questionID string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.rangeLabels[questionID]
	return v, ok
}

// SetValue writes the first textual control of a question.
func (f *Form) SetValue(questionID, value string) error {
	f.mu.Lock()
	idx := f.indexLocked(questionID)
	if idx < 0 {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", snapshot.ErrUnknownQuestion, questionID)
	}
	block := &f.blocks[idx]
	var kind model.ControlKind
	for i := range block.Controls {
		if block.Controls[i].Kind.Textual() {
			block.Controls[i].Value = value
			kind = block.Controls[i].Kind
			break
		}
	}
	if kind == "" {
		f.mu.Unlock()
		return fmt.Errorf("memory: question %s has no text control", questionID)
	}
	ev := model.InputEvent{QuestionID: questionID, Kind: kind, Value: value, At: f.now()}
	listeners := f.listenersLocked()
	f.mu.Unlock()

	dispatch(listeners, ev)
	return nil
}

// SetChecked checks or unchecks the option carrying value. Checking a radio
// clears the other radios of its group.
func (f *Form) SetChecked(questionID, value string, checked bool) error {
	f.mu.Lock()
	idx := f.indexLocked(questionID)
	if idx < 0 {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", snapshot.ErrUnknownQuestion, questionID)
	}
	block := &f.blocks[idx]
	target := -1
	for i, c := range block.Controls {
		if (c.Kind == model.ControlRadio || c.Kind == model.ControlCheckbox) && c.Value == value {
			target = i
			break
		}
	}
	if target < 0 {
		f.mu.Unlock()
		return fmt.Errorf("memory: question %s has no option %q", questionID, value)
	}
	ctrl := block.Controls[target]
	if ctrl.Kind == model.ControlRadio && checked {
		for i := range block.Controls {
			if block.Controls[i].Kind == model.ControlRadio && block.Controls[i].Name == ctrl.Name {
				block.Controls[i].Checked = false
			}
		}
	}
	block.Controls[target].Checked = checked
	ev := model.InputEvent{QuestionID: questionID, Kind: ctrl.Kind, Value: value, At: f.now()}
	listeners := f.listenersLocked()
	f.mu.Unlock()

	dispatch(listeners, ev)
	return nil
}

func (f *Form) indexLocked(questionID string) int {
	if questionID == "" {
		return -1
	}
	for i, b := range f.blocks {
		if b.QuestionID == questionID {
			return i
		}
	}
	return -1
}

func (f *Form) listenersLocked() []func(model.InputEvent) {
	ids := make([]int, 0, len(f.listeners))
	for id := range f.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(model.InputEvent), 0, len(ids))
	for _, id := range ids {
		out = append(out, f.listeners[id])
	}
	return out
}

func dispatch(listeners []func(model.InputEvent), ev model.InputEvent) {
	for _, l := range listeners {
		l(ev)
	}
}

func cloneBlocks(blocks []model.QuestionBlock) []model.QuestionBlock {
	if blocks == nil {
		return nil
	}
	out := make([]model.QuestionBlock, len(blocks))
	for i, b := range blocks {
		out[i] = b
		out[i].Controls = append([]model.Control(nil), b.Controls...)
	}
	return out
}
