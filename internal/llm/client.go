package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quarto4sbp/q4s/internal/config"
)

// Client runs prompts against one transport with bounded retry.
// A Client is meant for a single caller; it never overlaps transport calls.
type Client struct {
	cfg       config.LLMConfig
	transport Transport
	logger    *slog.Logger
	sleeper   func(time.Duration)
	now       func() time.Time

	loadConfig   func() (config.LLMConfig, error)
	newTransport TransportFactory

	closeOnce sync.Once
	closeErr  error
}

// Option customizes the client.
type Option func(*Client)

// WithConfigLoader overrides where the configuration comes from when New is given none.
func WithConfigLoader(loader func() (config.LLMConfig, error)) Option {
	return func(c *Client) {
		if loader != nil {
			c.loadConfig = loader
		}
	}
}

// WithTransportFactory overrides how the transport is built.
func WithTransportFactory(factory TransportFactory) Option {
	return func(c *Client) {
		if factory != nil {
			c.newTransport = factory
		}
	}
}

// WithTransport uses an already constructed transport.
func WithTransport(t Transport) Option {
	return WithTransportFactory(func(config.LLMConfig) (Transport, error) {
		return t, nil
	})
}

// WithLogger sets the logger used for attempt diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithClock overrides the time source used to time connectivity probes.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New binds a configuration to a transport. When cfg is nil the configuration
// is loaded once through the configured loader (config.LoadLLM by default).
// The configuration is copied; later changes by the caller have no effect.
func New(cfg *config.LLMConfig, opts ...Option) (*Client, error) {
	c := &Client{
		logger:       slog.New(slog.DiscardHandler),
		now:          time.Now,
		loadConfig:   config.LoadLLM,
		newTransport: NewTransport,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg == nil {
		loaded, err := c.loadConfig()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigurationMissing, err)
		}
		cfg = &loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid llm config: %w", err)
	}
	c.cfg = cloneConfig(*cfg)

	transport, err := c.newTransport(cloneConfig(c.cfg))
	if err != nil {
		var unavailable *TransportUnavailableError
		if errors.As(err, &unavailable) {
			return nil, err
		}
		return nil, &TransportUnavailableError{
			Provider:   c.cfg.Provider,
			Dependency: "transport",
			Err:        err,
		}
	}
	if transport == nil {
		return nil, &TransportUnavailableError{
			Provider:   c.cfg.Provider,
			Dependency: "transport",
			Remedy:     "the transport factory returned nothing",
		}
	}
	c.transport = transport

	c.logger.Debug("llm client ready",
		"provider", c.cfg.Provider,
		"model", c.cfg.Model,
		"max_attempts", c.cfg.MaxAttempts,
		"backoff_factor", c.cfg.BackoffFactor,
	)
	return c, nil
}

// Create builds a Client with default options. It exists so callers only
// need the package name.
func Create(cfg *config.LLMConfig) (*Client, error) {
	return New(cfg)
}

// WithClient builds a Client, hands it to fn and closes it on every exit path.
func WithClient(cfg *config.LLMConfig, fn func(*Client) error, opts ...Option) (err error) {
	c, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing llm client: %w", closeErr)
		}
	}()
	return fn(c)
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() config.LLMConfig {
	return cloneConfig(c.cfg)
}

// Close releases the transport. Only the first call has an effect.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if closer, ok := c.transport.(io.Closer); ok {
			c.closeErr = closer.Close()
		}
		c.logger.Debug("llm client closed", "error", c.closeErr)
	})
	return c.closeErr
}

// PromptOption overrides a setting for a single Prompt call.
type PromptOption func(*promptSettings)

type promptSettings struct {
	system      string
	model       string
	temperature *float64
	maxTokens   *int
}

// WithSystem prepends a system turn.
func WithSystem(system string) PromptOption {
	return func(p *promptSettings) { p.system = system }
}

// WithModel overrides the configured model for one call.
func WithModel(model string) PromptOption {
	return func(p *promptSettings) { p.model = model }
}

// WithTemperature overrides the configured temperature for one call.
func WithTemperature(temperature float64) PromptOption {
	return func(p *promptSettings) { p.temperature = &temperature }
}

// WithMaxTokens overrides the configured token limit for one call.
func WithMaxTokens(maxTokens int) PromptOption {
	return func(p *promptSettings) { p.maxTokens = &maxTokens }
}

// Prompt sends text as the user turn and returns the model's reply.
// Every transport failure is retried up to the configured attempt count with
// exponential backoff in between; only exhaustion is reported, as a
// *PromptFailedError wrapping the last failure.
func (c *Client) Prompt(ctx context.Context, text string, opts ...PromptOption) (string, error) {
	var settings promptSettings
	for _, opt := range opts {
		opt(&settings)
	}

	messages := composeMessages(text, settings.system)
	call := c.callOptions(settings)
	logger := c.logger.With("request_id", uuid.NewString(), "model", call.Model)

	loop := newRetryLoop(c.cfg.MaxAttempts, c.cfg.BackoffFactor)
	for loop.active() {
		logger.Debug("llm attempt", "attempt", loop.attempts+1, "max_attempts", loop.maxAttempts)

		result, err := c.call(ctx, slices.Clone(messages), call)
		delay, again := loop.record(result, err)
		if err != nil {
			logger.Warn("llm attempt failed",
				"attempt", loop.attempts,
				"error", err,
				"retry", again,
				"delay", delay,
			)
		}
		if !again {
			continue
		}
		if err := c.sleep(ctx, delay); err != nil {
			loop.abort(err)
		}
	}

	if err := loop.err(); err != nil {
		logger.Error("llm prompt failed", "attempts", loop.attempts, "error", err)
		return "", err
	}
	logger.Debug("llm prompt succeeded", "attempts", loop.attempts)
	return loop.result, nil
}

// composeMessages builds the turn sequence: optional system turn, then the user turn.
func composeMessages(text, system string) []Message {
	messages := make([]Message, 0, 2)
	if system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	return append(messages, Message{Role: RoleUser, Content: text})
}

// callOptions merges per-call overrides over the stored configuration.
func (c *Client) callOptions(p promptSettings) CallOptions {
	opts := CallOptions{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Timeout:     c.cfg.TimeoutDuration(),
	}
	if p.model != "" {
		opts.Model = p.model
	}
	if p.temperature != nil {
		opts.Temperature = p.temperature
	}
	if p.maxTokens != nil {
		opts.MaxTokens = p.maxTokens
	}
	opts.Temperature = clonePtr(opts.Temperature)
	opts.MaxTokens = clonePtr(opts.MaxTokens)
	return opts
}

// call performs one transport call, turning a panic into an ordinary error.
func (c *Client) call(ctx context.Context, messages []Message, opts CallOptions) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()
	return c.transport.Chat(ctx, messages, opts)
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func cloneConfig(cfg config.LLMConfig) config.LLMConfig {
	cfg.Temperature = clonePtr(cfg.Temperature)
	cfg.MaxTokens = clonePtr(cfg.MaxTokens)
	return cfg
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
