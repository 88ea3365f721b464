// Package formsync keeps survey answers in sync with a remote answers
// endpoint. The root package re-exports the pieces most callers need; the
// full API lives under pkg/.
package formsync

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-formsync/internal/contract"
	"github.com/goliatone/go-formsync/pkg/controller"
	"github.com/goliatone/go-formsync/pkg/page"
	"github.com/goliatone/go-formsync/pkg/snapshot"
)

// Controller is the per-form sync controller.
type Controller = controller.Controller

// Option configures a Controller.
type Option = controller.Option

// Form is the snapshot capability a controller reads from.
type Form = snapshot.Form

// NewController exposes the controller constructor from the top-level
// module.
func NewController(options ...Option) *Controller {
	return controller.New(options...)
}

// Attach builds a controller and attaches it to form in one step. Callers
// own the returned controller and must Detach it.
func Attach(ctx context.Context, form Form, options ...Option) (*Controller, error) {
	c := controller.New(options...)
	if err := c.Attach(ctx, form); err != nil {
		return nil, err
	}
	return c, nil
}

// EmbeddedTemplates exposes the built-in survey page templates so callers
// can reuse or extend them.
func EmbeddedTemplates() fs.FS {
	return page.Templates()
}

// ContractDocument returns the OpenAPI document describing the answers
// endpoint.
func ContractDocument() []byte {
	return contract.Document()
}
