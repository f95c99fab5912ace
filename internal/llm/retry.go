package llm

import (
	"fmt"
	"math"
	"time"
)

// maxBackoffDelay caps a single inter-attempt delay so large factors cannot overflow.
const maxBackoffDelay = 10 * time.Minute

// BackoffDelay returns the pause after failed attempt k (zero-based):
// factor^k seconds, so factor 2 yields 1s, 2s, 4s, ... A factor of zero disables the pause.
func BackoffDelay(factor float64, attempt int) time.Duration {
	if factor <= 0 || attempt < 0 {
		return 0
	}
	seconds := math.Pow(factor, float64(attempt))
	if math.IsInf(seconds, 0) || seconds*float64(time.Second) > float64(maxBackoffDelay) {
		return maxBackoffDelay
	}
	return time.Duration(seconds * float64(time.Second))
}

type retryPhase int

const (
	phaseAttempting retryPhase = iota
	phaseSucceeded
	phaseExhausted
)

func (p retryPhase) String() string {
	switch p {
	case phaseAttempting:
		return "attempting"
	case phaseSucceeded:
		return "succeeded"
	case phaseExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("retryPhase(%d)", int(p))
	}
}

// retryLoop is the bounded attempt state machine behind Client.Prompt.
// It never sleeps itself; record hands the caller the delay to wait.
type retryLoop struct {
	maxAttempts int
	factor      float64

	phase    retryPhase
	attempts int // attempts completed so far
	result   string
	lastErr  error
}

func newRetryLoop(maxAttempts int, factor float64) *retryLoop {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &retryLoop{maxAttempts: maxAttempts, factor: factor}
}

// active reports whether another attempt should be made.
func (l *retryLoop) active() bool {
	return l.phase == phaseAttempting
}

// record applies the outcome of the current attempt. When another attempt
// follows it returns the delay to wait first and true.
func (l *retryLoop) record(result string, err error) (time.Duration, bool) {
	index := l.attempts
	l.attempts++

	if err == nil {
		l.phase = phaseSucceeded
		l.result = result
		return 0, false
	}

	l.lastErr = err
	if l.attempts >= l.maxAttempts {
		l.phase = phaseExhausted
		return 0, false
	}
	return BackoffDelay(l.factor, index), true
}

// abort ends the loop early, e.g. when the context is cancelled mid-backoff.
func (l *retryLoop) abort(reason error) {
	l.phase = phaseExhausted
	if l.lastErr == nil {
		l.lastErr = reason
		return
	}
	l.lastErr = fmt.Errorf("%w: %w", reason, l.lastErr)
}

// err returns the terminal error once the loop is exhausted.
func (l *retryLoop) err() error {
	if l.phase != phaseExhausted {
		return nil
	}
	return &PromptFailedError{Attempts: l.attempts, Err: l.lastErr}
}
