package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-formsync/pkg/config"
	"github.com/goliatone/go-formsync/pkg/controller"
	"github.com/goliatone/go-formsync/pkg/messages"
	"github.com/goliatone/go-formsync/pkg/present"
	"github.com/goliatone/go-formsync/pkg/prompt"
	"github.com/goliatone/go-formsync/pkg/snapshot/htmldoc"
	"github.com/goliatone/go-formsync/pkg/transport"
)

// app carries the state shared by all commands.
type app struct {
	out        io.Writer
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
	locale messages.Localizer

	// driver replaces the interactive prompt driver.
	driver prompt.PromptDriver
}

func newApp(out io.Writer) *app {
	return &app{out: out, cfg: config.Default()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "formsync",
		Short:         "Fill, autosave and submit survey forms",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.out)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newFillCmd(a))
	root.AddCommand(newSendCmd(a))
	root.AddCommand(newBrowserCmd(a))
	root.AddCommand(newServeCmd(a))
	return root
}

// init loads configuration and builds the logger unless one was injected.
func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.locale = messages.New(cfg.Locale)

	if a.logger != nil {
		return nil
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if a.verbose {
		level = zapcore.DebugLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

func (a *app) newClient(options ...transport.Option) (*transport.Client, error) {
	base := []transport.Option{
		transport.WithLogger(a.logger.Named("transport")),
		transport.WithTimeout(a.cfg.Timeout),
	}
	if a.cfg.BaseURL != "" {
		u, err := url.Parse(a.cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("base url: %w", err)
		}
		base = append(base, transport.WithBaseURL(u))
	}
	return transport.New(append(base, options...)...), nil
}

func (a *app) newController(sender controller.Sender, presenter present.Presenter) *controller.Controller {
	return controller.New(
		controller.WithSender(sender),
		controller.WithPresenter(presenter),
		controller.WithLogger(a.logger.Named("controller")),
		controller.WithDebounce(a.cfg.Debounce),
		controller.WithMaxWait(a.cfg.MaxWait),
		controller.WithLocalizer(a.locale),
	)
}

func (a *app) terminal() present.Presenter {
	return present.Multi{
		present.NewTerminal(a.out, a.locale, nil),
		present.Log{Logger: a.logger.Named("feedback")},
	}
}

// loadPage reads a form page from a URL through client, or from a local
// file. Remote pages become the base for relative endpoints.
func (a *app) loadPage(ctx context.Context, client *transport.Client, source string) (*htmldoc.Document, error) {
	var body []byte
	if isURL(source) {
		raw, pageURL, err := client.FetchPage(ctx, source)
		if err != nil {
			return nil, err
		}
		client.SetBaseURL(pageURL)
		body = raw
	} else {
		raw, err := readFile(source)
		if err != nil {
			return nil, err
		}
		body = raw
	}
	return htmldoc.Parse(bytes.NewReader(body),
		htmldoc.WithRequiredMessage(a.locale.T(messages.KeyFieldRequired)))
}
