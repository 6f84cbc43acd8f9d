// Package cli implements the zodios command: calling catalog endpoints from
// the shell and inspecting catalog files.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/astahmer/zodios"
	"github.com/astahmer/zodios/logging"
)

// App holds what commands share: configuration, logger and output streams.
type App struct {
	viper     *viper.Viper
	config    *Config
	logger    *logging.ZerologLogger
	out       io.Writer
	errOut    io.Writer
	transport zodios.Transport
}

// Option customizes an App.
type Option func(*App)

// WithOutput redirects standard output and error.
func WithOutput(out, errOut io.Writer) Option {
	return func(a *App) {
		a.out = out
		a.errOut = errOut
	}
}

// WithTransport makes every client use t instead of the network.
func WithTransport(t zodios.Transport) Option {
	return func(a *App) {
		a.transport = t
	}
}

// New creates the application.
func New(opts ...Option) *App {
	a := &App{
		viper:  newViper(),
		config: &Config{},
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Execute runs the command line args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	return root.ExecuteContext(ctx)
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "zodios",
		Short: "Call HTTP APIs described by an endpoint catalog",
		Long: `zodios calls the endpoints of a catalog file, validating parameters and
responses against the declared schemas. Catalogs are zodios YAML files or
OpenAPI 3 documents.`,
		Version:           zodios.Version,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default is ./.zodios.yaml or $HOME/.zodios.yaml)")
	flags.StringP("catalog", "c", "", "catalog file (zodios YAML or OpenAPI 3)")
	flags.StringP("output", "o", "", "output format: table, json, yaml")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json, console, auto")

	root.AddCommand(a.callCommand(), a.endpointsCommand(), a.versionCommand())
	return root
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(a.viper, cmd)
	if err != nil {
		return err
	}
	a.config = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.Format = cfg.LogFormat
	a.logger = logging.New(logCfg)

	if cfg.ConfigFile != "" {
		a.logger.Debug("Loaded config file", "path", cfg.ConfigFile)
	}
	return nil
}

func (a *App) formatter() (Formatter, error) {
	format, err := ParseFormat(a.config.Output)
	if err != nil {
		return nil, err
	}
	return NewFormatter(format), nil
}

// ContextWithSignals cancels the returned context on SIGINT or SIGTERM.
func ContextWithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
