// Package prompt fills a writable form from the terminal. Answers are
// written into the form one question at a time so an attached controller
// sees ordinary input events and autosaves as the user goes.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formsync/pkg/messages"
	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/snapshot"
)

// Option configures a Filler.
type Option func(*Filler)

// WithDriver overrides the prompt driver.
func WithDriver(driver PromptDriver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithOutput sets where the default driver prints info lines.
func WithOutput(out io.Writer) Option {
	return func(f *Filler) {
		f.out = out
	}
}

// WithLocalizer selects the prompt and validation messages.
func WithLocalizer(l messages.Localizer) Option {
	return func(f *Filler) {
		f.messages = l
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Filler walks question blocks and prompts for each one.
type Filler struct {
	driver   PromptDriver
	out      io.Writer
	messages messages.Localizer
	logger   *zap.Logger
}

// NewFiller builds a Filler. Without WithDriver it prompts through survey/v2.
func NewFiller(options ...Option) *Filler {
	f := &Filler{
		messages: messages.New(messages.DefaultLocale),
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver(f.out)
	}
	return f
}

// Fill prompts for every identified question of form and writes the answers
// back. Blocks without an id or without recognised controls are skipped.
func (f *Filler) Fill(ctx context.Context, form snapshot.Writable) error {
	blocks, err := form.Blocks(ctx)
	if err != nil {
		return err
	}
	for _, block := range blocks {
		if block.QuestionID == "" {
			continue
		}
		if err := f.ask(ctx, form, block); err != nil {
			return fmt.Errorf("prompt: question %s: %w", block.QuestionID, err)
		}
	}
	return nil
}

// ConfirmSubmit asks whether to send the final answers.
func (f *Filler) ConfirmSubmit(ctx context.Context) (bool, error) {
	return f.driver.Confirm(ctx, ConfirmConfig{
		Message: f.messages.T(messages.KeySubmitPrompt),
		Default: true,
	})
}

// Info prints a line through the driver.
func (f *Filler) Info(ctx context.Context, msg string) error {
	return f.driver.Info(ctx, msg)
}

func (f *Filler) ask(ctx context.Context, form snapshot.Writable, block model.QuestionBlock) error {
	message := block.Prompt
	if message == "" {
		message = block.QuestionID
	}

	switch block.InputKind() {
	case model.InputFreeText:
		ctrl := firstControl(block, func(c model.Control) bool { return c.Kind.Textual() })
		required := f.required(ctrl.Required)
		var (
			value string
			err   error
		)
		if ctrl.Kind == model.ControlTextArea {
			value, err = f.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: ctrl.Value, Validator: required})
		} else {
			value, err = f.driver.Input(ctx, InputConfig{Message: message, Default: ctrl.Value, Validator: required})
		}
		if err != nil {
			return err
		}
		if value == ctrl.Value {
			return nil
		}
		return form.SetValue(block.QuestionID, value)

	case model.InputRange:
		ctrl := firstControl(block, func(c model.Control) bool { return c.Kind == model.ControlRange })
		help := ""
		if ctrl.Min != "" || ctrl.Max != "" {
			help = ctrl.Min + " - " + ctrl.Max
		}
		value, err := f.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   ctrl.Value,
			Help:      help,
			Validator: f.inRange(ctrl.Min, ctrl.Max),
		})
		if err != nil {
			return err
		}
		value = strings.TrimSpace(value)
		if value == ctrl.Value {
			return nil
		}
		return form.SetValue(block.QuestionID, value)

	case model.InputSingleChoice:
		opts := choices(block, model.ControlRadio)
		def := -1
		for i, c := range opts {
			if c.Checked {
				def = i
			}
		}
		idx, err := f.driver.Select(ctx, SelectConfig{Message: message, Options: labels(opts), DefaultIndex: def})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(opts) {
			return errors.New("no option selected")
		}
		if opts[idx].Checked {
			return nil
		}
		return form.SetChecked(block.QuestionID, opts[idx].Value, true)

	case model.InputMultiChoice:
		opts := choices(block, model.ControlCheckbox)
		var defaults []int
		for i, c := range opts {
			if c.Checked {
				defaults = append(defaults, i)
			}
		}
		picked, err := f.driver.MultiSelect(ctx, SelectConfig{Message: message, Options: labels(opts), Defaults: defaults})
		if err != nil {
			return err
		}
		want := make(map[int]bool, len(picked))
		for _, i := range picked {
			want[i] = true
		}
		for i, c := range opts {
			if c.Checked == want[i] {
				continue
			}
			if err := form.SetChecked(block.QuestionID, c.Value, want[i]); err != nil {
				return err
			}
		}
		return nil
	}

	f.logger.Debug("question skipped", zap.String("question_id", block.QuestionID))
	return nil
}

func (f *Filler) required(required bool) func(string) error {
	if !required {
		return nil
	}
	msg := f.messages.T(messages.KeyFieldRequired)
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(msg)
		}
		return nil
	}
}

// inRange accepts numbers between min and max; an empty bound is open.
func (f *Filler) inRange(min, max string) func(string) error {
	lo, loErr := strconv.ParseFloat(min, 64)
	hi, hiErr := strconv.ParseFloat(max, 64)
	msg := f.messages.T(messages.KeyRangeOutOfBound, min, max)
	return func(s string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return errors.New(msg)
		}
		if (loErr == nil && v < lo) || (hiErr == nil && v > hi) {
			return errors.New(msg)
		}
		return nil
	}
}

func firstControl(block model.QuestionBlock, match func(model.Control) bool) model.Control {
	for _, c := range block.Controls {
		if match(c) {
			return c
		}
	}
	return model.Control{}
}

func choices(block model.QuestionBlock, kind model.ControlKind) []model.Control {
	var out []model.Control
	for _, c := range block.Controls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func labels(opts []model.Control) []string {
	out := make([]string, len(opts))
	for i, c := range opts {
		out[i] = c.Label
		if out[i] == "" {
			out[i] = c.Value
		}
	}
	return out
}
