package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formsync/pkg/devserver"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr   string
		secret string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference survey server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			srv, closeDB, err := a.buildServer(ctx, secret)
			if err != nil {
				return err
			}
			defer closeDB()
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("FORMSYNC_SECRET"), "CSRF signing secret (random when empty)")
	return cmd
}

// buildServer opens and seeds the store and wires the HTTP server. The
// returned func closes the database.
func (a *app) buildServer(ctx context.Context, secret string) (srv *devserver.Server, closeDB func() error, err error) {
	sc := a.cfg.Server
	db, err := devserver.Open(ctx, sc.DatabaseType, sc.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()
	store := devserver.NewStore(db)
	if err = store.Migrate(ctx); err != nil {
		return nil, nil, err
	}

	var surveys []devserver.Survey
	if sc.SurveysFile != "" {
		surveys, err = devserver.LoadSurveys(sc.SurveysFile)
	} else {
		surveys, err = devserver.DemoSurveys()
	}
	if err != nil {
		return nil, nil, err
	}
	if err = store.Seed(ctx, surveys); err != nil {
		return nil, nil, err
	}
	a.logger.Info("surveys seeded",
		zap.Int("count", len(surveys)),
		zap.String("database", sc.DatabaseType))

	options := []devserver.Option{
		devserver.WithLogger(a.logger.Named("server")),
		devserver.WithLocalizer(a.locale),
	}
	if secret != "" {
		options = append(options, devserver.WithSecret([]byte(secret)))
	}
	srv, err = devserver.New(ctx, store, options...)
	if err != nil {
		return nil, nil, err
	}
	return srv, db.Close, nil
}
