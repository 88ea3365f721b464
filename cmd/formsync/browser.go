package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formsync/pkg/controller"
	"github.com/goliatone/go-formsync/pkg/present"
	"github.com/goliatone/go-formsync/pkg/snapshot/browser"
	"github.com/goliatone/go-formsync/pkg/transport"
)

func newBrowserCmd(a *app) *cobra.Command {
	var (
		controlURL string
		headless   bool
	)
	cmd := &cobra.Command{
		Use:   "browser <page-url>",
		Short: "Drive a survey page in Chrome with autosave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBrowser(cmd.Context(), args[0], controlURL, headless)
		},
	}
	cmd.Flags().StringVar(&controlURL, "control-url", "", "DevTools URL of a running Chrome (launches one when empty)")
	cmd.Flags().BoolVar(&headless, "headless", false, "Launch Chrome without a window")
	return cmd
}

func (a *app) runBrowser(ctx context.Context, pageURL, controlURL string, headless bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := browser.Connect(ctx, controlURL, headless)
	if err != nil {
		return err
	}
	defer func() {
		if controlURL == "" {
			_ = b.Close()
		}
	}()

	page, err := browser.Open(ctx, b, pageURL, browser.WithLogger(a.logger.Named("browser")))
	if err != nil {
		return err
	}
	defer page.Close()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	base, err := page.CopyCookies(ctx, jar)
	if err != nil {
		return err
	}
	client, err := a.newClient(transport.WithHTTPClient(&http.Client{Jar: jar, Timeout: a.cfg.Timeout}))
	if err != nil {
		return err
	}
	client.SetBaseURL(base)

	ctrl := a.newController(client, present.Multi{
		browser.NewFeedback(page, a.locale),
		present.Log{Logger: a.logger.Named("feedback")},
	})
	if err := ctrl.Attach(ctx, page); err != nil {
		return err
	}
	defer ctrl.Detach()

	a.logger.Info("watching form", zap.String("url", pageURL))
	return serveActions(ctx, ctrl, page.Actions(), a.logger)
}

// serveActions runs button presses through the controller until the form
// is submitted, the page goes away or ctx ends.
func serveActions(ctx context.Context, ctrl *controller.Controller, actions <-chan browser.Action, logger *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case action, ok := <-actions:
			if !ok {
				return nil
			}
			var err error
			switch action {
			case browser.ActionSave:
				err = ctrl.Save(ctx)
			case browser.ActionSubmit:
				err = ctrl.Submit(ctx)
			}
			if err != nil {
				var verr *controller.ValidationError
				if !errors.As(err, &verr) {
					logger.Warn("action failed", zap.String("action", string(action)), zap.Error(err))
				}
			}
			if ctrl.Phase() == controller.PhaseDone {
				return nil
			}
		}
	}
}
