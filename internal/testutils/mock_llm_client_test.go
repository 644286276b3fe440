package testutils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

func TestMockLLMClient_Complete(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		want    string
		wantErr bool
	}{
		{name: "seat prompt", prompt: "Submission to evaluate:\n<<<text>>>", want: DefaultSeatResponse},
		{name: "judge prompt", prompt: "Ballots from 3 responding seats:", want: DefaultJudgeResponse},
		{name: "unmatched", prompt: "hello", want: "Mock response for testing purposes."},
		{name: "empty prompt", prompt: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewMockLLMClient("m").Complete(context.Background(), tt.prompt, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMockLLMClient_PatternOrder(t *testing.T) {
	m := NewScriptedClient("m", "fallback")
	m.AddResponse(MockResponse{Pattern: "Alpha", Response: "a"})
	m.AddResponse(MockResponse{Pattern: "alpha beta", Response: "ab"})

	got, err := m.Complete(context.Background(), "ALPHA BETA", nil)
	require.NoError(t, err)
	assert.Equal(t, "a", got, "first registered pattern wins")

	got, err = m.Complete(context.Background(), "gamma", nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
	assert.Equal(t, 2, m.Calls())
	assert.Equal(t, "gamma", m.LastPrompt())
}

func TestMockLLMClient_DelayHonorsContext(t *testing.T) {
	m := NewMockLLMClient("m")
	m.SetDelay(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Complete(ctx, "anything", nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockLLMClient_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewFailingClient("m", boom).Complete(context.Background(), "x", nil)
	assert.ErrorIs(t, err, boom)
}

func TestMockSeatClients(t *testing.T) {
	c := NewMockLLMClient("m")
	clients := NewMockSeatClients().Set(1, c)

	got, err := clients.ClientFor(domain.Seat{ID: 1})
	require.NoError(t, err)
	assert.Same(t, c, got)

	_, err = clients.ClientFor(domain.Seat{ID: 2})
	assert.ErrorIs(t, err, ports.ErrNoClient)
	assert.Equal(t, 1, clients.Lookups(2))
}

func TestTestRoster(t *testing.T) {
	r := TestRoster(4)
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 4, r.Enabled())
}
