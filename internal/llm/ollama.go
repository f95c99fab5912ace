package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaTransport implements Transport using an Ollama backend.
type OllamaTransport struct {
	client     *ollama.LLM
	httpClient *http.Client
	baseURL    string
}

// NewOllamaTransport creates a new Ollama transport.
func NewOllamaTransport(model, baseURL string) (*OllamaTransport, error) {
	if model == "" {
		return nil, errors.New("ollama model is required")
	}
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}

	httpClient := &http.Client{}
	client, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(baseURL),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}

	return &OllamaTransport{
		client:     client,
		httpClient: httpClient,
		baseURL:    baseURL,
	}, nil
}

// Chat sends messages to the LLM and returns the response.
func (t *OllamaTransport) Chat(ctx context.Context, messages []Message, opts CallOptions) (string, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	resp, err := t.client.GenerateContent(ctx, toLangChainMessages(messages), callOptions(opts)...)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response choices returned")
	}
	return resp.Choices[0].Content, nil
}

// Close releases idle connections held by the transport.
func (t *OllamaTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}

func callOptions(opts CallOptions) []llms.CallOption {
	var result []llms.CallOption
	if opts.Model != "" {
		result = append(result, llms.WithModel(opts.Model))
	}
	if opts.Temperature != nil {
		result = append(result, llms.WithTemperature(*opts.Temperature))
	}
	if opts.MaxTokens != nil {
		result = append(result, llms.WithMaxTokens(*opts.MaxTokens))
	}
	return result
}

func toLangChainMessages(messages []Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := llms.ChatMessageTypeHuman
		switch strings.ToLower(msg.Role) {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case "assistant":
			role = llms.ChatMessageTypeAI
		}
		result = append(result, llms.TextParts(role, msg.Content))
	}
	return result
}
