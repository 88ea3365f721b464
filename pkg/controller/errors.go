package controller

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formsync/pkg/model"
)

var (
	// ErrDetached is returned by operations on a controller with no form.
	ErrDetached = errors.New("controller: detached")
	// ErrAttached is returned when attaching a controller twice.
	ErrAttached = errors.New("controller: already attached")
	// ErrFinalized rejects sends after a successful final submission.
	ErrFinalized = errors.New("controller: form already submitted")
	// ErrSubmitInProgress rejects a submit while another one is in flight.
	ErrSubmitInProgress = errors.New("controller: submission in progress")
)

// ValidationError reports required questions left empty on submit.
type ValidationError struct {
	Issues []model.ValidationIssue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("controller: %d required question(s) unanswered", len(e.Issues))
}
