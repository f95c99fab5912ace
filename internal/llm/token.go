package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// errNoGitHubToken is returned when no GitHub token source yields a token.
var errNoGitHubToken = errors.New("GitHub token not found")

// LoadGitHubToken finds the GitHub OAuth token used by the copilot transport.
// GITHUB_TOKEN wins; otherwise the GitHub Copilot IDE files under the user
// config directory are read (hosts.json, then apps.json).
func LoadGitHubToken() (string, error) {
	if token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); token != "" {
		return token, nil
	}

	configDir, err := userConfigDir()
	if err != nil {
		return "", fmt.Errorf("getting config directory: %w", err)
	}

	for _, name := range []string{"hosts.json", "apps.json"} {
		token, err := tokenFromCopilotFile(filepath.Join(configDir, "github-copilot", name))
		if err == nil && token != "" {
			return token, nil
		}
	}

	return "", errNoGitHubToken
}

// userConfigDir honours XDG_CONFIG_HOME and LOCALAPPDATA before falling back to ~/.config.
func userConfigDir() (string, error) {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if runtime.GOOS == "windows" {
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return localAppData, nil
		}
		return filepath.Join(home, "AppData", "Local"), nil
	}

	return filepath.Join(home, ".config"), nil
}

// tokenFromCopilotFile extracts the oauth_token of the first github.com entry.
func tokenFromCopilotFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var hosts map[string]map[string]any
	if err := json.Unmarshal(data, &hosts); err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}

	for host, entry := range hosts {
		if !strings.Contains(host, "github.com") {
			continue
		}
		if oauthToken, ok := entry["oauth_token"].(string); ok && oauthToken != "" {
			return oauthToken, nil
		}
	}

	return "", fmt.Errorf("oauth_token not found in %s", path)
}
