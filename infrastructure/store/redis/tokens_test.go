package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ghostpass/senate/internal/domain"
)

func TestTokenStore_TTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewTokenStore(nil, WithRetention(time.Hour))
	s.now = func() time.Time { return now }

	tests := []struct {
		name    string
		expires time.Time
		want    time.Duration
	}{
		{"future expiry adds retention", now.Add(30 * time.Minute), 90 * time.Minute},
		{"expired inside retention", now.Add(-30 * time.Minute), 30 * time.Minute},
		{"past retention floors at one second", now.Add(-2 * time.Hour), time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ttl(domain.DisclosureToken{ExpiresAt: tt.expires}))
		})
	}
}

func TestTokenKey(t *testing.T) {
	assert.Equal(t, "ghost:ref:abc", tokenKey("abc"))
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("redis://localhost:6379/2")
	assert.NoError(t, err)
	assert.Equal(t, 2, c.Options().DB)
	_ = c.Close()

	_, err = NewClient("not a url")
	assert.Error(t, err)
}
