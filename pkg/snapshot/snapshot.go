// Package snapshot defines the form-snapshot capability the sync controller
// reads from. Implementations live in the subpackages: memory (in-process
// state), htmldoc (a parsed HTML page) and browser (a live Chrome page).
package snapshot

import (
	"context"
	"errors"

	"github.com/goliatone/go-formsync/pkg/model"
)

// ErrFormNotFound is returned when a page carries no recognisable form.
var ErrFormNotFound = errors.New("snapshot: form not found")

// ErrUnknownQuestion is returned by mutators addressing a missing block.
var ErrUnknownQuestion = errors.New("snapshot: unknown question")

// Form exposes the live state of one survey form. Every call re-reads the
// underlying state; callers must not cache the results.
type Form interface {
	Attributes(ctx context.Context) (model.FormAttributes, error)
	Blocks(ctx context.Context) ([]model.QuestionBlock, error)
	// Validate runs the form's native validation and returns the failing
	// questions. An empty result means the form may be submitted.
	Validate(ctx context.Context) ([]model.ValidationIssue, error)
}

// Observable forms deliver input events to a listener until cancelled.
type Observable interface {
	Observe(listener func(model.InputEvent)) (cancel func())
}

// RangeMirror forms can display the current value of a range control next
// to it.
type RangeMirror interface {
	MirrorRange(ctx context.Context, questionID, value string) error
}

// Writable forms accept answers from outside the page, for example from a
// terminal prompt. Mutations emit input events on observable forms.
type Writable interface {
	Form
	SetValue(questionID, value string) error
	SetChecked(questionID, value string, checked bool) error
}

// ValidateRequired implements the native "required" check over blocks: a
// required textual control must be non-empty, a required radio group must
// have a checked option and a required checkbox must itself be checked.
func ValidateRequired(blocks []model.QuestionBlock, message string) []model.ValidationIssue {
	var issues []model.ValidationIssue
	for _, block := range blocks {
		if !block.Required() || satisfied(block) {
			continue
		}
		issues = append(issues, model.ValidationIssue{
			QuestionID: block.QuestionID,
			Message:    message,
		})
	}
	return issues
}

func satisfied(block model.QuestionBlock) bool {
	for _, c := range block.Controls {
		if !c.Required {
			continue
		}
		if c.Kind.Textual() {
			if c.Value == "" {
				return false
			}
			continue
		}
		if c.Kind == model.ControlCheckbox {
			if !c.Checked {
				return false
			}
			continue
		}
		if !groupChecked(block, c.Kind, c.Name) {
			return false
		}
	}
	return true
}

func groupChecked(block model.QuestionBlock, kind model.ControlKind, name string) bool {
	for _, c := range block.Controls {
		if c.Kind == kind && c.Name == name && c.Checked {
			return true
		}
	}
	return false
}
