package llm

import "os"

const defaultLMStudioBaseURL = "http://localhost:1234/v1"

// NewLMStudioTransport creates a transport for LM Studio's OpenAI-compatible API.
// LM Studio ignores the key, but the SDK insists on one.
func NewLMStudioTransport(apiKey, baseURL string) *OpenAITransport {
	if baseURL == "" {
		baseURL = defaultLMStudioBaseURL
	}
	if apiKey == "" {
		apiKey = os.Getenv("LMSTUDIO_API_KEY")
	}
	if apiKey == "" {
		apiKey = "lm-studio"
	}
	return newOpenAICompatible("lm studio", apiKey, baseURL)
}
