package main

import (
	"github.com/spf13/cobra"
)

func newSendCmd(a *app) *cobra.Command {
	var final bool
	cmd := &cobra.Command{
		Use:   "send <page.html|page-url>",
		Short: "Send the answers already present on a page once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSend(cmd, args[0], final)
		},
	}
	cmd.Flags().BoolVar(&final, "final", false, "Submit as final instead of a draft")
	return cmd
}

func (a *app) runSend(cmd *cobra.Command, source string, final bool) error {
	ctx := cmd.Context()
	client, err := a.newClient()
	if err != nil {
		return err
	}
	doc, err := a.loadPage(ctx, client, source)
	if err != nil {
		return err
	}

	ctrl := a.newController(client, a.terminal())
	if err := ctrl.Attach(ctx, doc); err != nil {
		return err
	}
	defer ctrl.Detach()

	if final {
		return ctrl.Submit(ctx)
	}
	return ctrl.Save(ctx)
}
