package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quarto4sbp/q4s/internal/llm"
)

func (a *App) llmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "llm",
		Short: "Talk to the configured LLM",
	}
	cmd.AddCommand(a.llmTestCmd())
	cmd.AddCommand(a.llmPromptCmd())
	return cmd
}

func (a *App) llmTestCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check that the configured LLM answers",
		Long: `Sends one short diagnostic prompt to the configured model, without retries,
and reports whether it answered and how long it took.

Example:
  q4s llm test
  q4s llm test --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withClient(func(client *llm.Client) error {
				result := client.TestConnectivity(cmd.Context())
				if asJSON {
					if err := writeJSON(cmd, result); err != nil {
						return err
					}
				} else {
					printConnectivity(cmd.OutOrStdout(), result)
				}
				if !result.Success {
					return errors.New("connectivity test failed")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func printConnectivity(w io.Writer, result llm.ConnectivityResult) {
	elapsed := fmt.Sprintf("%.2fs", result.Elapsed.Seconds())
	if result.Success {
		_, _ = fmt.Fprintf(w, "%s %s answered in %s\n", formatSuccess("✓"), formatHeader(result.Model), formatMuted(elapsed))
		_, _ = fmt.Fprintf(w, "  %s\n", strings.TrimSpace(result.Response))
		return
	}
	_, _ = fmt.Fprintf(w, "%s %s failed after %s\n", formatError("✗"), formatHeader(result.Model), formatMuted(elapsed))
	_, _ = fmt.Fprintf(w, "  %s\n", result.Error)
}

type promptFlags struct {
	system      string
	model       string
	temperature float64
	maxTokens   int
	copy        bool
}

func (a *App) llmPromptCmd() *cobra.Command {
	var flags promptFlags

	cmd := &cobra.Command{
		Use:   "prompt [text...]",
		Short: "Send a prompt and print the reply",
		Long: `Sends a prompt to the configured model and prints the reply.
Failed calls are retried with exponential backoff as configured.
Without arguments the prompt is read from stdin.

Example:
  q4s llm prompt "Summarise Quarto in one line"
  q4s llm prompt --system "Answer in French" --temperature 0.2 hello
  cat notes.md | q4s llm prompt --max-tokens 200`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := promptText(cmd, args)
			if err != nil {
				return err
			}
			opts, err := promptOptions(cmd, flags)
			if err != nil {
				return err
			}

			return a.withClient(func(client *llm.Client) error {
				reply, err := client.Prompt(cmd.Context(), text, opts...)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), reply)

				if flags.copy {
					if err := a.copy(reply); err != nil {
						return fmt.Errorf("copying reply to clipboard: %w", err)
					}
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), formatMuted("(copied to clipboard)"))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&flags.system, "system", "s", "", "System prompt to send before the text")
	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "Model to use instead of the configured one")
	cmd.Flags().Float64VarP(&flags.temperature, "temperature", "t", 0, "Sampling temperature for this call")
	cmd.Flags().IntVar(&flags.maxTokens, "max-tokens", 0, "Maximum tokens in the reply")
	cmd.Flags().BoolVarP(&flags.copy, "copy", "c", false, "Copy the reply to the clipboard")
	return cmd
}

// promptText joins the arguments, or reads stdin when there are none.
func promptText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading prompt from stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("prompt text is required")
	}
	return text, nil
}

// promptOptions turns explicitly set flags into per-call overrides.
func promptOptions(cmd *cobra.Command, flags promptFlags) ([]llm.PromptOption, error) {
	var opts []llm.PromptOption
	if flags.system != "" {
		opts = append(opts, llm.WithSystem(flags.system))
	}
	if flags.model != "" {
		opts = append(opts, llm.WithModel(flags.model))
	}
	if cmd.Flags().Changed("temperature") {
		if flags.temperature < 0 || flags.temperature > 2 {
			return nil, fmt.Errorf("--temperature must be between 0 and 2, got %v", flags.temperature)
		}
		opts = append(opts, llm.WithTemperature(flags.temperature))
	}
	if cmd.Flags().Changed("max-tokens") {
		if flags.maxTokens < 1 {
			return nil, fmt.Errorf("--max-tokens must be positive, got %d", flags.maxTokens)
		}
		opts = append(opts, llm.WithMaxTokens(flags.maxTokens))
	}
	return opts, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
