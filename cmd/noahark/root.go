package main

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	noahark "github.com/NikosBletsas/NoahArk-v2"
	"github.com/NikosBletsas/NoahArk-v2/intake"
	"github.com/NikosBletsas/NoahArk-v2/internal/config"
	"github.com/NikosBletsas/NoahArk-v2/util"
)

// app carries what every subcommand needs once the root has parsed its
// persistent flags.
type app struct {
	configPath string
	logLevel   string
	jsonLogs   bool

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "noahark",
		Short:        "NoahArk emergency terminal client",
		Version:      noahark.VERSION,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&a.jsonLogs, "json-logs", false, "log as JSON instead of console text")

	rootCmd.AddCommand(a.statusCmd())
	rootCmd.AddCommand(a.caseCmd())
	rootCmd.AddCommand(a.patientCmd())
	rootCmd.AddCommand(a.sessionCmd())

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("json-logs") {
		cfg.JSONLogs = a.jsonLogs
	}
	a.cfg = cfg

	a.logger, err = newLogger(cfg.LogLevel, cfg.JSONLogs, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	util.SetLogger(util.NewZerologLogger(a.logger))
	return nil
}

func newLogger(level string, jsonLogs bool, out io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	w := out
	if !jsonLogs {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// newClient builds an SDK client without the background status
// connection; commands that need the hub connect it themselves.
func (a *app) newClient(persistence intake.SessionPersistence) (*noahark.Client, error) {
	options := a.cfg.Options()
	options.DisableRealtimeUpdates = true
	options.Logger = util.NewZerologLogger(a.logger)
	options.SessionPersistence = persistence
	return noahark.NewClient(options)
}

func (a *app) openSession() (*intake.BoltPersistence, error) {
	p, err := intake.OpenBoltPersistence(a.cfg.SessionDB)
	if err != nil {
		return nil, fmt.Errorf("open session store %s: %w", a.cfg.SessionDB, err)
	}
	return p, nil
}
