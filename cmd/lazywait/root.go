package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cboone/lazynode"
	"github.com/cboone/lazynode/cdp"
	"github.com/cboone/lazynode/config"
	"github.com/cboone/lazynode/internal/observability"
	"github.com/cboone/lazynode/ui"
)

// opener loads url and returns the page root and a func releasing it.
type opener func(ctx context.Context, cfg *config.Config, logger *zap.Logger, url string) (ui.SearchContext, func(), error)

// openBrowser starts Chrome and navigates a fresh tab to url.
func openBrowser(ctx context.Context, cfg *config.Config, logger *zap.Logger, url string) (ui.SearchContext, func(), error) {
	b, err := cdp.NewBrowser(ctx, cfg.Browser, logger)
	if err != nil {
		return nil, nil, err
	}
	page, err := b.NewPage()
	if err != nil {
		b.Close()
		return nil, nil, err
	}
	if err := page.Navigate(url); err != nil {
		page.Close()
		b.Close()
		return nil, nil, err
	}
	return page, func() {
		page.Close()
		b.Close()
	}, nil
}

// app holds what the subcommands share once flags are parsed.
type app struct {
	open opener

	cfgFile  string
	strategy string

	cfg    *config.Config
	logger *zap.Logger
}

func newApp(open opener) *app {
	return &app{open: open, logger: zap.NewNop()}
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:          "lazywait",
		Short:        "Wait on a live page through lazy handles",
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (YAML)")
	pf.StringVarP(&a.strategy, "strategy", "s", string(ui.CSS), "locator strategy: "+strings.Join(strategyNames(), ", "))
	pf.Duration("timeout", 0, "wait timeout (default from config)")
	pf.Duration("poll", 0, "poll interval (default from config)")
	pf.String("log-level", "", "log level (default from config)")
	pf.Bool("headed", false, "show the browser window")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.setup(cmd, pf.Lookup)
	}

	root.AddCommand(
		a.waitCommand(),
		a.absentCommand(),
		a.settledCommand(),
		a.clickCommand(),
	)
	return root
}

// setup loads configuration with flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command, lookup func(string) *pflag.Flag) error {
	v := config.New()
	if a.cfgFile != "" {
		path, err := homedir.Expand(a.cfgFile)
		if err != nil {
			return err
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	bindings := map[string]string{
		"wait.timeout":       "timeout",
		"wait.poll_interval": "poll",
		"logger.level":       "log-level",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, lookup(flag)); err != nil {
			return err
		}
	}
	if f := lookup("headed"); f.Changed {
		v.Set("browser.headless", f.Value.String() != "true")
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	if cfg.Logger.LogFile, err = homedir.Expand(cfg.Logger.LogFile); err != nil {
		return err
	}

	logger, err := observability.NewLoggerTo(cfg.Logger, zapcore.AddSync(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	a.logger.Debug("configured",
		zap.String("version", version),
		zap.Duration("timeout", cfg.Wait.Timeout),
		zap.Duration("poll_interval", cfg.Wait.PollInterval),
	)
	return nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// withSession opens url and runs fn with a session rooted at the page.
func (a *app) withSession(cmd *cobra.Command, url string, fn func(*lazynode.Session) error) error {
	root, release, err := a.open(cmd.Context(), a.cfg, a.logger, url)
	if err != nil {
		return err
	}
	defer release()

	s := lazynode.NewSession(root, lazynode.WithConfig(a.cfg), lazynode.WithLogger(a.logger))
	defer s.Close()
	return fn(s)
}

// locator builds a locator from the --strategy flag.
func (a *app) locator(value string) (ui.Locator, error) {
	s := ui.Strategy(strings.ToLower(a.strategy))
	for _, known := range strategies {
		if s == known {
			return ui.By(s, value), nil
		}
	}
	return ui.Locator{}, fmt.Errorf("unknown strategy %q (want one of %s)", a.strategy, strings.Join(strategyNames(), ", "))
}

var strategies = []ui.Strategy{
	ui.CSS, ui.XPath, ui.ID, ui.Name, ui.TagName, ui.ClassName, ui.LinkText, ui.Text, ui.Regexp,
}

func strategyNames() []string {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = string(s)
	}
	return names
}
