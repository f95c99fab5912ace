package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAITransport implements Transport against the OpenAI chat completions API
// or any server that speaks it.
type OpenAITransport struct {
	client     openai.Client
	httpClient *http.Client
	baseURL    string
	name       string
}

// NewOpenAITransport creates a transport for the OpenAI API.
// An empty baseURL keeps the SDK default endpoint.
func NewOpenAITransport(apiKey, baseURL string, opts ...option.RequestOption) *OpenAITransport {
	return newOpenAICompatible("openai", apiKey, baseURL, opts...)
}

func newOpenAICompatible(name, apiKey, baseURL string, extra ...option.RequestOption) *OpenAITransport {
	httpClient := &http.Client{}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		// Attempts are counted by Client; the SDK must not retry on its own.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)

	return &OpenAITransport{
		client:     openai.NewClient(opts...),
		httpClient: httpClient,
		baseURL:    baseURL,
		name:       name,
	}
}

// Chat sends messages to the LLM and returns the response.
func (t *OpenAITransport) Chat(ctx context.Context, messages []Message, opts CallOptions) (string, error) {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			openaiMessages[i] = openai.SystemMessage(msg.Content)
		case "assistant":
			openaiMessages[i] = openai.AssistantMessage(msg.Content)
		default:
			openaiMessages[i] = openai.UserMessage(msg.Content)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    opts.Model,
		Messages: openaiMessages,
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}
	if opts.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*opts.MaxTokens))
	}

	var reqOpts []option.RequestOption
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}

	resp, err := t.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", t.name, err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// Close releases idle connections held by the transport.
func (t *OpenAITransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}
