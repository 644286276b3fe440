package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// TokenStore reads disclosure tokens by reference.
type TokenStore struct {
	db *sql.DB
}

var _ ports.TokenStore = (*TokenStore)(nil)

// NewTokenStore returns a store over db.
func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// TokenByRef loads the token minted for ref.
func (s *TokenStore) TokenByRef(ctx context.Context, ref string) (domain.DisclosureToken, error) {
	var (
		tok     domain.DisclosureToken
		revoked sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT jti, user_id, purpose, expires_at, revoked_at, profile, allowed_claims
		FROM ghost_tokens WHERE ref = $1`, ref).
		Scan(&tok.JTI, &tok.UserID, &tok.Purpose, &tok.ExpiresAt, &revoked, &tok.Profile, pq.Array(&tok.AllowedClaims))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DisclosureToken{}, fmt.Errorf("ref lookup: %w", domain.ErrTokenNotFound)
	}
	if err != nil {
		return domain.DisclosureToken{}, wrap("token_by_ref", err)
	}
	if revoked.Valid {
		t := revoked.Time
		tok.RevokedAt = &t
	}
	return tok, nil
}

// SaveToken upserts a token under ref. Minting happens elsewhere; this
// exists for seeding and tests.
func (s *TokenStore) SaveToken(ctx context.Context, ref string, tok domain.DisclosureToken) error {
	claims := tok.AllowedClaims
	if claims == nil {
		claims = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ghost_tokens (ref, jti, user_id, purpose, expires_at, revoked_at, profile, allowed_claims)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ref) DO UPDATE SET
			jti = EXCLUDED.jti, user_id = EXCLUDED.user_id, purpose = EXCLUDED.purpose,
			expires_at = EXCLUDED.expires_at, revoked_at = EXCLUDED.revoked_at,
			profile = EXCLUDED.profile, allowed_claims = EXCLUDED.allowed_claims`,
		ref, tok.JTI, tok.UserID, tok.Purpose, tok.ExpiresAt, tok.RevokedAt, tok.Profile, pq.Array(claims))
	return wrap("save_token", err)
}

// Revoke sets revoked_at on the token under ref unless it is already
// revoked.
func (s *TokenStore) Revoke(ctx context.Context, ref string, at time.Time) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		WITH updated AS (
			UPDATE ghost_tokens SET revoked_at = $2
			WHERE ref = $1 AND revoked_at IS NULL
			RETURNING ref
		)
		SELECT EXISTS (SELECT 1 FROM ghost_tokens WHERE ref = $1)`, ref, at.UTC()).Scan(&exists)
	if err != nil {
		return wrap("revoke", err)
	}
	if !exists {
		return fmt.Errorf("ref lookup: %w", domain.ErrTokenNotFound)
	}
	return nil
}

// SubjectStore reads subject records kept as one JSONB column per section.
type SubjectStore struct {
	db *sql.DB
}

var _ ports.SubjectStore = (*SubjectStore)(nil)

// NewSubjectStore returns a store over db.
func NewSubjectStore(db *sql.DB) *SubjectStore {
	return &SubjectStore{db: db}
}

// Subject loads the user's records. NULL sections decode to nil.
func (s *SubjectStore) Subject(ctx context.Context, userID string) (domain.SubjectRecord, error) {
	var profile, identity, wallet, tox []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT profile, identity, wallet, tox FROM ghost_subjects WHERE user_id = $1`, userID).
		Scan(&profile, &identity, &wallet, &tox)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SubjectRecord{}, fmt.Errorf("subject lookup: %w", domain.ErrSubjectNotFound)
	}
	if err != nil {
		return domain.SubjectRecord{}, wrap("subject", err)
	}

	rec := domain.SubjectRecord{UserID: userID}
	if err := decodeSection(profile, &rec.Profile); err != nil {
		return domain.SubjectRecord{}, wrap("subject", fmt.Errorf("decode profile: %w", err))
	}
	if err := decodeSection(identity, &rec.Identity); err != nil {
		return domain.SubjectRecord{}, wrap("subject", fmt.Errorf("decode identity: %w", err))
	}
	if err := decodeSection(wallet, &rec.Wallet); err != nil {
		return domain.SubjectRecord{}, wrap("subject", fmt.Errorf("decode wallet: %w", err))
	}
	if err := decodeSection(tox, &rec.Tox); err != nil {
		return domain.SubjectRecord{}, wrap("subject", fmt.Errorf("decode tox: %w", err))
	}
	return rec, nil
}

// SaveSubject upserts every section of rec.
func (s *SubjectStore) SaveSubject(ctx context.Context, rec domain.SubjectRecord) error {
	profile, err := encodeSection(rec.Profile)
	if err != nil {
		return err
	}
	identity, err := encodeSection(rec.Identity)
	if err != nil {
		return err
	}
	wallet, err := encodeSection(rec.Wallet)
	if err != nil {
		return err
	}
	tox, err := encodeSection(rec.Tox)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ghost_subjects (user_id, profile, identity, wallet, tox)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			profile = EXCLUDED.profile, identity = EXCLUDED.identity,
			wallet = EXCLUDED.wallet, tox = EXCLUDED.tox`,
		rec.UserID, profile, identity, wallet, tox)
	return wrap("save_subject", err)
}

// decodeSection leaves dst nil for a NULL column.
func decodeSection[T any](raw []byte, dst **T) error {
	if len(raw) == 0 {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}

// encodeSection maps a nil section to NULL.
func encodeSection[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal subject section: %w", err)
	}
	return raw, nil
}

// AuditStore appends disclosure events.
type AuditStore struct {
	db *sql.DB
}

var _ ports.AuditSink = (*AuditStore)(nil)

// NewAuditStore returns a store over db.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// RecordDisclosure inserts ev. Only claim names are stored.
func (s *AuditStore) RecordDisclosure(ctx context.Context, ev domain.DisclosureEvent) error {
	claims := ev.Claims
	if claims == nil {
		claims = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ghost_disclosure_audit
			(id, action, jti, user_id, partner_id, purpose, grade, claims, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.ID, ev.Action, ev.JTI, ev.UserID, ev.PartnerID, ev.Purpose, string(ev.Grade), pq.Array(claims), ev.OccurredAt)
	return wrap("record_disclosure", err)
}

// Events lists the events recorded for a token, oldest first.
func (s *AuditStore) Events(ctx context.Context, jti string) ([]domain.DisclosureEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, jti, user_id, partner_id, purpose, grade, claims, occurred_at
		FROM ghost_disclosure_audit WHERE jti = $1 ORDER BY occurred_at, id`, jti)
	if err != nil {
		return nil, wrap("events", err)
	}
	defer rows.Close()

	var out []domain.DisclosureEvent
	for rows.Next() {
		var (
			ev    domain.DisclosureEvent
			grade string
		)
		if err := rows.Scan(&ev.ID, &ev.Action, &ev.JTI, &ev.UserID, &ev.PartnerID, &ev.Purpose,
			&grade, pq.Array(&ev.Claims), &ev.OccurredAt); err != nil {
			return nil, wrap("events", err)
		}
		ev.Grade = domain.Grade(grade)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("events", err)
	}
	return out, nil
}
