package llm

import (
	"errors"
	"strings"

	"github.com/quarto4sbp/q4s/internal/config"
)

const (
	ProviderOpenAI   = "openai"
	ProviderCopilot  = "copilot"
	ProviderOllama   = "ollama"
	ProviderLMStudio = "lmstudio"
)

// TransportFactory builds the transport a Client talks through.
type TransportFactory func(cfg config.LLMConfig) (Transport, error)

// Providers lists the provider names NewTransport understands.
func Providers() []string {
	return []string{ProviderOpenAI, ProviderOllama, ProviderLMStudio, ProviderCopilot}
}

// NewTransport creates a transport based on provider configuration.
// Failures are reported as *TransportUnavailableError.
func NewTransport(cfg config.LLMConfig) (Transport, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", ProviderOpenAI:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, &TransportUnavailableError{
				Provider:   ProviderOpenAI,
				Dependency: "API key",
				Remedy:     "set llm.api_key, Q4S_LLM_API_KEY or OPENAI_API_KEY",
			}
		}
		return NewOpenAITransport(cfg.APIKey, cfg.BaseURL), nil
	case ProviderCopilot:
		t, err := NewCopilotTransport(cfg.APIKey)
		if err != nil {
			return nil, &TransportUnavailableError{
				Provider:   ProviderCopilot,
				Dependency: "GitHub Copilot token",
				Remedy:     "set GITHUB_TOKEN or authenticate with GitHub Copilot in your IDE",
				Err:        err,
			}
		}
		return t, nil
	case ProviderOllama:
		t, err := NewOllamaTransport(cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, &TransportUnavailableError{
				Provider:   ProviderOllama,
				Dependency: "ollama client",
				Remedy:     "install Ollama from https://ollama.com and run `ollama serve`",
				Err:        err,
			}
		}
		return t, nil
	case ProviderLMStudio, "lm-studio", "llmstudio":
		return NewLMStudioTransport(cfg.APIKey, cfg.BaseURL), nil
	default:
		return nil, &TransportUnavailableError{
			Provider:   cfg.Provider,
			Dependency: "provider",
			Remedy:     "set llm.provider to one of " + strings.Join(Providers(), ", "),
			Err:        errors.New("unsupported LLM provider"),
		}
	}
}
