package llm

import (
	"context"
	"encoding/json"
	"time"
)

// connectivityPrompt is the fixed diagnostic prompt sent by TestConnectivity.
const connectivityPrompt = "Reply with the single word: pong"

// ConnectivityResult reports the outcome of a single connectivity probe.
// Exactly one of Response and Error is set, selected by Success.
type ConnectivityResult struct {
	Success  bool
	Response string
	Error    string
	Elapsed  time.Duration
	Model    string
}

// MarshalJSON renders the elapsed time in seconds and omits the absent field.
func (r ConnectivityResult) MarshalJSON() ([]byte, error) {
	type payload struct {
		Success     bool    `json:"success"`
		Response    *string `json:"response,omitempty"`
		Error       *string `json:"error,omitempty"`
		ElapsedTime float64 `json:"elapsed_time"`
		Model       string  `json:"model"`
	}
	p := payload{
		Success:     r.Success,
		ElapsedTime: r.Elapsed.Seconds(),
		Model:       r.Model,
	}
	if r.Success {
		p.Response = &r.Response
	} else {
		p.Error = &r.Error
	}
	return json.Marshal(p)
}

// TestConnectivity makes exactly one transport call with a small diagnostic
// prompt and times it. It does not retry and never fails: transport errors
// are reported in the result.
func (c *Client) TestConnectivity(ctx context.Context) ConnectivityResult {
	messages := composeMessages(connectivityPrompt, "")
	opts := c.callOptions(promptSettings{})

	start := c.now()
	text, err := c.call(ctx, messages, opts)
	elapsed := c.now().Sub(start)

	result := ConnectivityResult{
		Success: err == nil,
		Elapsed: elapsed,
		Model:   opts.Model,
	}
	if err != nil {
		result.Error = err.Error()
		c.logger.Warn("llm connectivity probe failed", "model", opts.Model, "elapsed", elapsed, "error", err)
		return result
	}
	result.Response = text
	c.logger.Debug("llm connectivity probe succeeded", "model", opts.Model, "elapsed", elapsed)
	return result
}
