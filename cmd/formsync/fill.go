package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formsync/pkg/messages"
	"github.com/goliatone/go-formsync/pkg/prompt"
)

func newFillCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fill <page-url>",
		Short: "Answer a survey page in the terminal with autosave",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runFill,
	}
}

func (a *app) runFill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := a.newClient()
	if err != nil {
		return err
	}
	doc, err := a.loadPage(ctx, client, args[0])
	if err != nil {
		return err
	}

	ctrl := a.newController(client, a.terminal())
	if err := ctrl.Attach(ctx, doc); err != nil {
		return err
	}
	defer ctrl.Detach()

	filler := prompt.NewFiller(
		prompt.WithDriver(a.driver),
		prompt.WithOutput(a.out),
		prompt.WithLocalizer(a.locale),
		prompt.WithLogger(a.logger.Named("prompt")),
	)
	if err := filler.Fill(ctx, doc); err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			a.logger.Info("fill aborted, saving draft")
			return ctrl.Save(ctx)
		}
		return err
	}

	submit, err := filler.ConfirmSubmit(ctx)
	if err != nil {
		return err
	}
	if !submit {
		a.logger.Debug("submission declined, saving draft")
		return ctrl.Save(ctx)
	}
	if err := ctrl.Submit(ctx); err != nil {
		a.logger.Debug("submit failed", zap.Error(err))
		return err
	}
	return filler.Info(ctx, a.locale.T(messages.KeyThanksBody))
}
