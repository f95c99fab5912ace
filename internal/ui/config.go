package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quarto4sbp/q4s/internal/config"
)

func (a *App) configCmd() *cobra.Command {
	var (
		initFile bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
		Long: `Prints the effective configuration: defaults, then the config file,
then Q4S_* environment overrides.

With --init, writes a config file with default values.

Example:
  q4s config
  q4s config --init`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath := config.DefaultConfigPath()
			if initFile {
				return initConfig(cmd.OutOrStdout(), configPath, force)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n\n", configPath)
			cfg, err := a.configuration()
			if errors.Is(err, config.ErrNotFound) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No config file found. Run `q4s config --init` to create one.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&initFile, "init", false, "Write a config file with default values")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file with --init")
	return cmd
}

func initConfig(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Template().SaveTo(path); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Created %s\n", path)
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	llmCfg := cfg.LLM
	_, _ = fmt.Fprintln(w, formatHeader("Current configuration:"))
	_, _ = fmt.Fprintln(w, strings.Repeat("─", min(termWidth(), 22)))
	_, _ = fmt.Fprintln(w, "[llm]")
	_, _ = fmt.Fprintf(w, "  provider         = %s\n", llmCfg.Provider)
	_, _ = fmt.Fprintf(w, "  model            = %s\n", llmCfg.Model)
	_, _ = fmt.Fprintf(w, "  api_key          = %s\n", maskSecret(llmCfg.APIKey))
	_, _ = fmt.Fprintf(w, "  base_url         = %s\n", orUnset(llmCfg.BaseURL))
	if llmCfg.Temperature != nil {
		_, _ = fmt.Fprintf(w, "  temperature      = %v\n", *llmCfg.Temperature)
	} else {
		_, _ = fmt.Fprintf(w, "  temperature      = %s\n", orUnset(""))
	}
	if llmCfg.MaxTokens != nil {
		_, _ = fmt.Fprintf(w, "  max_tokens       = %d\n", *llmCfg.MaxTokens)
	} else {
		_, _ = fmt.Fprintf(w, "  max_tokens       = %s\n", orUnset(""))
	}
	_, _ = fmt.Fprintf(w, "  timeout          = %vs\n", llmCfg.Timeout)
	_, _ = fmt.Fprintf(w, "  max_attempts     = %d\n", llmCfg.MaxAttempts)
	_, _ = fmt.Fprintf(w, "  backoff_factor   = %v\n", llmCfg.BackoffFactor)
	_, _ = fmt.Fprintln(w, "\n[ui]")
	_, _ = fmt.Fprintf(w, "  color            = %t\n", cfg.UI.Color)
}

// maskSecret keeps the last four characters of a key visible.
func maskSecret(s string) string {
	switch {
	case s == "":
		return orUnset("")
	case len(s) <= 4:
		return "****"
	default:
		return "****" + s[len(s)-4:]
	}
}

func orUnset(s string) string {
	if s == "" {
		return formatMuted("(unset)")
	}
	return s
}
