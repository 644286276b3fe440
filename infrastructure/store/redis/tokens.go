// Package redis keeps disclosure tokens in Redis so every resolver replica
// sees the same lifecycle state.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

const (
	storeName = "redis"

	// tokenKeyPrefix namespaces token entries.
	tokenKeyPrefix = "ghost:ref:"

	// DefaultRetention keeps a token past its expiry so late scans resolve
	// as expired instead of not found.
	DefaultRetention = 7 * 24 * time.Hour
)

// TokenStore stores each token as JSON under its reference.
type TokenStore struct {
	client    redis.UniversalClient
	retention time.Duration
	now       func() time.Time
}

var _ ports.TokenStore = (*TokenStore)(nil)

// TokenStoreOption configures a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithRetention overrides DefaultRetention.
func WithRetention(d time.Duration) TokenStoreOption {
	return func(s *TokenStore) { s.retention = d }
}

// NewTokenStore returns a store over client. The client lifecycle is
// managed by the caller.
func NewTokenStore(client redis.UniversalClient, opts ...TokenStoreOption) *TokenStore {
	s := &TokenStore{client: client, retention: DefaultRetention, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewClient parses a redis:// URL into a client.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func tokenKey(ref string) string { return tokenKeyPrefix + ref }

// TokenByRef loads the token stored under ref.
func (s *TokenStore) TokenByRef(ctx context.Context, ref string) (domain.DisclosureToken, error) {
	raw, err := s.client.Get(ctx, tokenKey(ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.DisclosureToken{}, fmt.Errorf("ref lookup: %w", domain.ErrTokenNotFound)
	}
	if err != nil {
		return domain.DisclosureToken{}, ports.NewStoreError(storeName, "token_by_ref", err)
	}
	var tok domain.DisclosureToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return domain.DisclosureToken{}, ports.NewStoreError(storeName, "token_by_ref", fmt.Errorf("decode token: %w", err))
	}
	return tok, nil
}

// SaveToken writes tok under ref with a TTL of its remaining lifetime plus
// the retention window.
func (s *TokenStore) SaveToken(ctx context.Context, ref string, tok domain.DisclosureToken) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := s.client.Set(ctx, tokenKey(ref), raw, s.ttl(tok)).Err(); err != nil {
		return ports.NewStoreError(storeName, "save_token", err)
	}
	return nil
}

// Revoke marks the token under ref revoked at the given time. The update
// is applied in a WATCH transaction so a concurrent save is not lost.
func (s *TokenStore) Revoke(ctx context.Context, ref string, at time.Time) error {
	key := tokenKey(ref)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("ref lookup: %w", domain.ErrTokenNotFound)
		}
		if err != nil {
			return err
		}
		var tok domain.DisclosureToken
		if err := json.Unmarshal(raw, &tok); err != nil {
			return fmt.Errorf("decode token: %w", err)
		}
		if tok.RevokedAt != nil {
			return nil
		}
		revoked := at.UTC()
		tok.RevokedAt = &revoked
		updated, err := json.Marshal(tok)
		if err != nil {
			return fmt.Errorf("marshal token: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, s.ttl(tok))
			return nil
		})
		return err
	}, key)
	if errors.Is(err, domain.ErrTokenNotFound) {
		return err
	}
	if err != nil {
		return ports.NewStoreError(storeName, "revoke", err)
	}
	return nil
}

func (s *TokenStore) ttl(tok domain.DisclosureToken) time.Duration {
	ttl := tok.ExpiresAt.Sub(s.now()) + s.retention
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
