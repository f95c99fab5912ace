package llm

import (
	"errors"
	"testing"

	"github.com/quarto4sbp/q4s/internal/config"
)

func TestNewTransport_OpenAI(t *testing.T) {
	transport, err := NewTransport(config.LLMConfig{Provider: "openai", Model: "gpt-4o", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if _, ok := transport.(*OpenAITransport); !ok {
		t.Fatalf("expected *OpenAITransport, got %T", transport)
	}
}

func TestNewTransport_OpenAIRequiresKey(t *testing.T) {
	_, err := NewTransport(config.LLMConfig{Provider: "", Model: "gpt-4o"})
	var unavailable *TransportUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected *TransportUnavailableError, got %v", err)
	}
	if unavailable.Provider != ProviderOpenAI || unavailable.Remedy == "" {
		t.Errorf("unexpected error details: %+v", unavailable)
	}
}

func TestNewTransport_Ollama(t *testing.T) {
	transport, err := NewTransport(config.LLMConfig{Provider: "ollama", Model: "llama3"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	ollamaTransport, ok := transport.(*OllamaTransport)
	if !ok {
		t.Fatalf("expected *OllamaTransport, got %T", transport)
	}
	if ollamaTransport.baseURL != defaultOllamaBaseURL {
		t.Errorf("baseURL = %q, want %q", ollamaTransport.baseURL, defaultOllamaBaseURL)
	}
}

func TestNewOllamaTransport_EmptyModel(t *testing.T) {
	if _, err := NewOllamaTransport("", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestNewTransport_LMStudio(t *testing.T) {
	for _, provider := range []string{"lmstudio", "LM-Studio", " llmstudio "} {
		t.Run(provider, func(t *testing.T) {
			transport, err := NewTransport(config.LLMConfig{Provider: provider, Model: "llama3"})
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			lmStudio, ok := transport.(*OpenAITransport)
			if !ok {
				t.Fatalf("expected *OpenAITransport, got %T", transport)
			}
			if lmStudio.baseURL != defaultLMStudioBaseURL {
				t.Errorf("baseURL = %q, want %q", lmStudio.baseURL, defaultLMStudioBaseURL)
			}
		})
	}
}

func TestNewTransport_CopilotWithoutToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := NewTransport(config.LLMConfig{Provider: "copilot", Model: "gpt-4o"})
	if !errors.Is(err, ErrTransportUnavailable) {
		t.Fatalf("expected ErrTransportUnavailable, got %v", err)
	}
	if !errors.Is(err, errNoGitHubToken) {
		t.Errorf("expected missing token cause, got %v", err)
	}
}

func TestNewTransport_Unsupported(t *testing.T) {
	_, err := NewTransport(config.LLMConfig{Provider: "unknown", Model: "model"})
	if !errors.Is(err, ErrTransportUnavailable) {
		t.Fatalf("expected ErrTransportUnavailable, got %v", err)
	}
}
