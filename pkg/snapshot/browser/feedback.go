package browser

import (
	"context"

	"go.uber.org/zap"

	"github.com/goliatone/go-formsync/pkg/messages"
	"github.com/goliatone/go-formsync/pkg/present"
)

// Feedback presents sync outcomes inside the page: window.alert for errors,
// a transient label on the save button, and navigation or an in-page
// overlay on confirmation.
type Feedback struct {
	page   *Page
	locale messages.Localizer
}

var _ present.Presenter = (*Feedback)(nil)

// NewFeedback returns a presenter drawing into p.
func NewFeedback(p *Page, locale messages.Localizer) *Feedback {
	return &Feedback{page: p, locale: locale}
}

func (f *Feedback) Alert(ctx context.Context, message string) {
	f.run(ctx, "alert", jsAlert, message)
}

func (f *Feedback) Saved(ctx context.Context) {
	f.run(ctx, "saved", jsFlashSaved, f.locale.T(messages.KeySaved))
}

func (f *Feedback) Confirm(ctx context.Context, doneURL string) {
	if doneURL != "" {
		f.run(ctx, "navigate", jsNavigate, doneURL)
		return
	}
	f.run(ctx, "thanks", jsShowThanks, f.locale.T(messages.KeyThanksTitle), f.locale.T(messages.KeyThanksBody))
}

func (f *Feedback) run(ctx context.Context, what, js string, args ...interface{}) {
	if err := f.page.eval(ctx, nil, js, args...); err != nil {
		f.page.logger.Warn("page feedback failed", zap.String("kind", what), zap.Error(err))
	}
}
