package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openai/openai-go/option"
)

const (
	copilotTokenURL = "https://api.github.com/copilot_internal/v2/token"
	copilotBaseURL  = "https://api.githubcopilot.com"
	copilotEditor   = "q4s/1.0"
)

// tokenResponse represents the response from GitHub's token exchange endpoint.
type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// NewCopilotTransport creates a transport for GitHub Copilot's chat API.
// githubToken may be empty, in which case LoadGitHubToken is consulted.
// The GitHub token is exchanged for a Copilot bearer token up front.
func NewCopilotTransport(githubToken string) (*OpenAITransport, error) {
	if githubToken == "" {
		var err error
		githubToken, err = LoadGitHubToken()
		if err != nil {
			return nil, fmt.Errorf("loading GitHub token: %w", err)
		}
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	bearerToken, err := exchangeToken(httpClient, copilotTokenURL, githubToken)
	if err != nil {
		return nil, fmt.Errorf("exchanging token: %w", err)
	}

	return newOpenAICompatible("copilot", bearerToken, copilotBaseURL,
		option.WithHeader("Editor-Version", copilotEditor),
		option.WithHeader("Editor-Plugin-Version", copilotEditor),
		option.WithHeader("Copilot-Integration-Id", "vscode-chat"),
	), nil
}

// exchangeToken exchanges a GitHub OAuth token for a Copilot bearer token.
func exchangeToken(httpClient *http.Client, tokenURL, githubToken string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Token "+githubToken)
	req.Header.Set("User-Agent", copilotEditor)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token exchange failed (status %d): %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if tokenResp.Token == "" {
		return "", fmt.Errorf("token exchange returned an empty token")
	}

	return tokenResp.Token, nil
}
