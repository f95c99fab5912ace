package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/quarto4sbp/q4s/internal/config"
	"github.com/quarto4sbp/q4s/internal/llm"
	"github.com/quarto4sbp/q4s/internal/logging"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	root  *cobra.Command
	debug bool // Enable debug logging

	logger   *slog.Logger
	closeLog func() error

	loadConfig func() (*config.Config, error)
	config     *config.Config
	configErr  error
	loaded     bool

	clientOpts []llm.Option
	copy       func(string) error
}

// AppOption customizes the application.
type AppOption func(*App)

// WithConfigLoader overrides where the application reads its configuration.
func WithConfigLoader(loader func() (*config.Config, error)) AppOption {
	return func(a *App) { a.loadConfig = loader }
}

// WithClientOptions adds options to every LLM client the commands build.
func WithClientOptions(opts ...llm.Option) AppOption {
	return func(a *App) { a.clientOpts = append(a.clientOpts, opts...) }
}

// WithClipboard overrides how `llm prompt --copy` writes to the clipboard.
func WithClipboard(write func(string) error) AppOption {
	return func(a *App) { a.copy = write }
}

// NewApp creates a new CLI application.
func NewApp(opts ...AppOption) *App {
	a := &App{
		logger:     logging.Discard(),
		closeLog:   func() error { return nil },
		loadConfig: config.Load,
		copy:       clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.root = &cobra.Command{
		Use:   "q4s",
		Short: "quarto4sbp CLI tool",
		Long: `q4s is the quarto4sbp command-line tool.

It wraps chat-style LLM APIs behind a retrying client and offers commands
to check connectivity and send one-off prompts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	a.root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging (logs to "+logging.DebugLogPath+")")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.echoCmd())
	a.root.AddCommand(a.configCmd())
	a.root.AddCommand(a.llmCmd())

	return a
}

// setup opens the debug log and applies the UI settings.
func (a *App) setup() error {
	logger, closeLog, err := logging.ForDebug(a.debug)
	if err != nil {
		return err
	}
	a.logger = logger
	a.closeLog = closeLog

	if cfg, err := a.configuration(); err == nil && !cfg.UI.Color {
		DisableColor()
	}
	return nil
}

// configuration loads the configuration once and caches the result.
func (a *App) configuration() (*config.Config, error) {
	if !a.loaded {
		a.config, a.configErr = a.loadConfig()
		a.loaded = true
	}
	return a.config, a.configErr
}

// llmConfig supplies the LLM settings to llm.New.
func (a *App) llmConfig() (config.LLMConfig, error) {
	cfg, err := a.configuration()
	if err != nil {
		return config.LLMConfig{}, err
	}
	return cfg.LLM, nil
}

// withClient runs fn with an LLM client built from the application
// configuration and closes the client afterwards.
func (a *App) withClient(fn func(*llm.Client) error) error {
	opts := []llm.Option{
		llm.WithConfigLoader(a.llmConfig),
		llm.WithLogger(a.logger),
	}
	opts = append(opts, a.clientOpts...)

	err := llm.WithClient(nil, fn, opts...)
	if errors.Is(err, llm.ErrConfigurationMissing) {
		return fmt.Errorf("%w (run `q4s config --init` to create one)", err)
	}
	return err
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "q4s %s (commit: %s)\n", Version, Commit)
		},
	}
}

func (a *App) echoCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "echo [text...]",
		Short:              "Echo back the command-line arguments",
		Example:            "  q4s echo hello world",
		DisableFlagParsing: true,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}
}

// SetArgs overrides the command-line arguments (used by tests).
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

// Root returns the root command.
func (a *App) Root() *cobra.Command {
	return a.root
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

// ExecuteContext runs the CLI application with ctx passed to every command.
func (a *App) ExecuteContext(ctx context.Context) error {
	return a.root.ExecuteContext(ctx)
}

// Close releases resources held by the application.
func (a *App) Close() error {
	return a.closeLog()
}
