package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errSimulated is returned by MockCoreLLM failures when no Error is set.
var errSimulated = errors.New("simulated failure")

// MockCoreLLM is a scriptable CoreLLM for middleware and seat tests.
// Configuration fields must be set before the first call.
type MockCoreLLM struct {
	mu sync.Mutex

	Response      string
	TokensIn      int
	TokensOut     int
	Error         error
	Model         string
	ResponseDelay time.Duration

	// FailUntilAttempt fails the first N calls with Error, then succeeds.
	FailUntilAttempt int

	// Respond, when set, replaces the static response.
	Respond func(prompt string, opts map[string]any) (string, error)

	calls      int
	lastPrompt string
	lastOpts   map[string]any
	timestamps []time.Time
}

// NewMockCoreLLM returns a mock that always succeeds.
func NewMockCoreLLM() *MockCoreLLM {
	return &MockCoreLLM{Response: "test response", TokensIn: 10, TokensOut: 20, Model: "test-model"}
}

// DoRequest records the call, waits ResponseDelay without holding the lock,
// and then answers as configured.
func (m *MockCoreLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.lastPrompt, m.lastOpts = prompt, opts
	m.timestamps = append(m.timestamps, time.Now())
	delay, respond := m.ResponseDelay, m.Respond
	m.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return "", 0, 0, ctx.Err()
		}
	}

	switch {
	case m.FailUntilAttempt > 0:
		if call <= m.FailUntilAttempt {
			return "", 0, 0, m.failure()
		}
	case m.Error != nil:
		return "", 0, 0, m.Error
	}
	if respond != nil {
		resp, err := respond(prompt, opts)
		if err != nil {
			return "", 0, 0, err
		}
		return resp, m.TokensIn, m.TokensOut, nil
	}
	return m.Response, m.TokensIn, m.TokensOut, nil
}

// failure is Error, or errSimulated when none is set.
func (m *MockCoreLLM) failure() error {
	if m.Error != nil {
		return m.Error
	}
	return errSimulated
}

func (m *MockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model
}

func (m *MockCoreLLM) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Model = model
}

// CallCount returns how many requests reached the mock.
func (m *MockCoreLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent prompt and options.
func (m *MockCoreLLM) LastRequest() (string, map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt, m.lastOpts
}

// Gap returns the time between calls i and j, or false if either is missing.
func (m *MockCoreLLM) Gap(i, j int) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || j < 0 || i >= len(m.timestamps) || j >= len(m.timestamps) {
		return 0, false
	}
	return m.timestamps[j].Sub(m.timestamps[i]), true
}
