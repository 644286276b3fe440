package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// TokenStore maps opaque references to disclosure tokens.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]domain.DisclosureToken
}

var _ ports.TokenStore = (*TokenStore)(nil)

// NewTokenStore returns an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]domain.DisclosureToken)}
}

// Put stores tok under ref, replacing any previous token.
func (s *TokenStore) Put(ref string, tok domain.DisclosureToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok.AllowedClaims = slices.Clone(tok.AllowedClaims)
	s.tokens[ref] = tok
}

// SaveToken is Put behind the seeding interface shared with the durable
// stores.
func (s *TokenStore) SaveToken(ctx context.Context, ref string, tok domain.DisclosureToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Put(ref, tok)
	return nil
}

// Revoke marks the token under ref revoked at at. Revoking twice keeps the
// first time.
func (s *TokenStore) Revoke(ctx context.Context, ref string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[ref]
	if !ok {
		return fmt.Errorf("ref %q: %w", ref, domain.ErrTokenNotFound)
	}
	if tok.RevokedAt == nil {
		revoked := at.UTC()
		tok.RevokedAt = &revoked
		s.tokens[ref] = tok
	}
	return nil
}

// TokenByRef returns the token stored under ref.
func (s *TokenStore) TokenByRef(_ context.Context, ref string) (domain.DisclosureToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.tokens[ref]
	if !ok {
		return domain.DisclosureToken{}, fmt.Errorf("ref %q: %w", ref, domain.ErrTokenNotFound)
	}
	tok.AllowedClaims = slices.Clone(tok.AllowedClaims)
	return tok, nil
}

// SubjectStore holds subject records by user id.
type SubjectStore struct {
	mu       sync.RWMutex
	subjects map[string]domain.SubjectRecord
}

var _ ports.SubjectStore = (*SubjectStore)(nil)

// NewSubjectStore returns an empty store.
func NewSubjectStore() *SubjectStore {
	return &SubjectStore{subjects: make(map[string]domain.SubjectRecord)}
}

// Put stores rec under rec.UserID.
func (s *SubjectStore) Put(rec domain.SubjectRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[rec.UserID] = rec
}

// SaveSubject is Put behind the seeding interface.
func (s *SubjectStore) SaveSubject(ctx context.Context, rec domain.SubjectRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Put(rec)
	return nil
}

// Subject returns the user's record.
func (s *SubjectStore) Subject(_ context.Context, userID string) (domain.SubjectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.subjects[userID]
	if !ok {
		return domain.SubjectRecord{}, fmt.Errorf("user %q: %w", userID, domain.ErrSubjectNotFound)
	}
	return rec, nil
}

// AuditLog collects disclosure events.
type AuditLog struct {
	mu     sync.RWMutex
	events []domain.DisclosureEvent
}

var _ ports.AuditSink = (*AuditLog)(nil)

// NewAuditLog returns an empty log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// RecordDisclosure appends ev.
func (l *AuditLog) RecordDisclosure(ctx context.Context, ev domain.DisclosureEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ev.Claims = slices.Clone(ev.Claims)
	l.events = append(l.events, ev)
	return nil
}

// Events returns a copy of the recorded events in order.
func (l *AuditLog) Events() []domain.DisclosureEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.events)
}
