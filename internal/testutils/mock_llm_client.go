package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ghostpass/senate/internal/ports"
)

// Default canned responses. Seat prompts contain "Submission to evaluate"
// and judge prompts contain "responding seats".
const (
	DefaultSeatResponse  = `{"stance":"approve","score":80,"confidence":0.8,"risk_flags":[],"key_points":["clear structure"],"counterpoints":[]}`
	DefaultJudgeResponse = `{"final_answer":"Approve with minor edits.","reasoning":"Seats broadly agree.","disagreement_explanation":""}`
)

// MockResponse pairs a case-insensitive prompt substring with a response.
type MockResponse struct {
	Pattern    string
	Response   string
	TokensUsed int
}

// MockLLMClient is a deterministic ports.LLMClient. Responses are matched
// by pattern in the order they were added; the empty pattern matches
// anything and is consulted last.
type MockLLMClient struct {
	mu        sync.Mutex
	model     string
	responses []MockResponse
	err       error
	delay     time.Duration
	prompts   []string
	options   []map[string]any
}

var _ ports.LLMClient = (*MockLLMClient)(nil)

// NewMockLLMClient returns a client answering seat and judge prompts with
// the default responses.
func NewMockLLMClient(model string) *MockLLMClient {
	m := &MockLLMClient{model: model}
	m.AddResponse(MockResponse{Pattern: "submission to evaluate", Response: DefaultSeatResponse, TokensUsed: 40})
	m.AddResponse(MockResponse{Pattern: "responding seats", Response: DefaultJudgeResponse, TokensUsed: 30})
	return m
}

// NewScriptedClient answers every prompt with response.
func NewScriptedClient(model, response string) *MockLLMClient {
	m := &MockLLMClient{model: model}
	m.AddResponse(MockResponse{Response: response, TokensUsed: 10})
	return m
}

// NewFailingClient fails every call with err.
func NewFailingClient(model string, err error) *MockLLMClient {
	return &MockLLMClient{model: model, err: err}
}

// AddResponse registers a pattern ahead of the catch-all.
func (m *MockLLMClient) AddResponse(r MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, r)
}

// SetDelay makes every call wait d or until its context ends.
func (m *MockLLMClient) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetError makes every subsequent call fail.
func (m *MockLLMClient) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	resp, _, _, err := m.CompleteWithUsage(ctx, prompt, options)
	return resp, err
}

func (m *MockLLMClient) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, options)
	delay, failWith := m.delay, m.err
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
	if err := ctx.Err(); err != nil {
		return "", 0, 0, err
	}
	if failWith != nil {
		return "", 0, 0, failWith
	}
	if prompt == "" {
		return "", 0, 0, fmt.Errorf("prompt cannot be empty")
	}

	r := m.match(prompt)
	in, _ := m.EstimateTokens(prompt)
	return r.Response, in, r.TokensUsed, nil
}

func (m *MockLLMClient) match(prompt string) MockResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	lower := strings.ToLower(prompt)
	var fallback *MockResponse
	for i := range m.responses {
		r := &m.responses[i]
		if r.Pattern == "" {
			if fallback == nil {
				fallback = r
			}
			continue
		}
		if strings.Contains(lower, strings.ToLower(r.Pattern)) {
			return *r
		}
	}
	if fallback != nil {
		return *fallback
	}
	return MockResponse{Response: "Mock response for testing purposes.", TokensUsed: 5}
}

// EstimateTokens assumes four characters per token, minimum one.
func (m *MockLLMClient) EstimateTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return max(1, len(text)/4), nil
}

func (m *MockLLMClient) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// Calls returns how many requests were made.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// LastPrompt returns the most recent prompt, or "".
func (m *MockLLMClient) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// LastOptions returns the most recent options map, or nil.
func (m *MockLLMClient) LastOptions() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.options) == 0 {
		return nil
	}
	return m.options[len(m.options)-1]
}
