package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrTransportUnavailable is returned by New when no transport can be built.
	ErrTransportUnavailable = errors.New("llm transport unavailable")

	// ErrConfigurationMissing is returned by New when no configuration was
	// supplied and none could be loaded.
	ErrConfigurationMissing = errors.New("llm configuration missing")

	// ErrPromptFailed is returned by Prompt once every attempt has failed.
	ErrPromptFailed = errors.New("llm prompt failed")
)

// TransportUnavailableError names the missing dependency and how to fix it.
type TransportUnavailableError struct {
	Provider   string
	Dependency string
	Remedy     string
	Err        error
}

func (e *TransportUnavailableError) Error() string {
	msg := fmt.Sprintf("llm transport %q unavailable: %s not available", e.Provider, e.Dependency)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Remedy != "" {
		msg += " (" + e.Remedy + ")"
	}
	return msg
}

func (e *TransportUnavailableError) Unwrap() error { return e.Err }

// Is reports ErrTransportUnavailable as a match.
func (e *TransportUnavailableError) Is(target error) bool {
	return target == ErrTransportUnavailable
}

// PromptFailedError reports retry exhaustion along with the last failure.
type PromptFailedError struct {
	Attempts int
	Err      error
}

func (e *PromptFailedError) Error() string {
	return fmt.Sprintf("prompt failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *PromptFailedError) Unwrap() error { return e.Err }

// Is reports ErrPromptFailed as a match.
func (e *PromptFailedError) Is(target error) bool {
	return target == ErrPromptFailed
}
