package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ghostpass/senate/internal/domain"
)

// seedFile is the -seed document: disclosure tokens by reference, subject
// records, and references to revoke after the tokens are written.
type seedFile struct {
	Tokens   map[string]domain.DisclosureToken `json:"tokens"`
	Subjects []seedSubject                     `json:"subjects"`
	Revoked  map[string]time.Time              `json:"revoked"`
}

type seedSubject struct {
	UserID   string                 `json:"user_id"`
	Profile  *domain.ProfileRecord  `json:"profile"`
	Identity *domain.IdentityRecord `json:"identity"`
	Wallet   *domain.WalletRecord   `json:"wallet"`
	Tox      *domain.ToxRecord      `json:"tox"`
}

type tokenSeeder interface {
	SaveToken(ctx context.Context, ref string, tok domain.DisclosureToken) error
}

type tokenRevoker interface {
	Revoke(ctx context.Context, ref string, at time.Time) error
}

type subjectSeeder interface {
	SaveSubject(ctx context.Context, rec domain.SubjectRecord) error
}

var errSeedUnsupported = errors.New("store does not accept seed data")

func loadSeed(path string) (seedFile, error) {
	var seed seedFile
	raw, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("read seed file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return seed, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return seed, nil
}

// applySeed writes seed into the configured token and subject stores.
func applySeed(ctx context.Context, st *stores, seed seedFile, logger *slog.Logger) error {
	if len(seed.Tokens) > 0 || len(seed.Revoked) > 0 {
		tokens, ok := st.tokens.(tokenSeeder)
		if !ok {
			return fmt.Errorf("seed tokens: %T: %w", st.tokens, errSeedUnsupported)
		}
		for ref, tok := range seed.Tokens {
			if err := tokens.SaveToken(ctx, ref, tok); err != nil {
				return fmt.Errorf("seed token %q: %w", ref, err)
			}
		}
		if len(seed.Revoked) > 0 {
			revoker, ok := st.tokens.(tokenRevoker)
			if !ok {
				return fmt.Errorf("seed revocations: %T: %w", st.tokens, errSeedUnsupported)
			}
			for ref, at := range seed.Revoked {
				if err := revoker.Revoke(ctx, ref, at); err != nil {
					return fmt.Errorf("revoke %q: %w", ref, err)
				}
			}
		}
	}

	if len(seed.Subjects) > 0 {
		subjects, ok := st.subjects.(subjectSeeder)
		if !ok {
			return fmt.Errorf("seed subjects: %T: %w", st.subjects, errSeedUnsupported)
		}
		for _, s := range seed.Subjects {
			rec := domain.SubjectRecord{
				UserID:   s.UserID,
				Profile:  s.Profile,
				Identity: s.Identity,
				Wallet:   s.Wallet,
				Tox:      s.Tox,
			}
			if err := subjects.SaveSubject(ctx, rec); err != nil {
				return fmt.Errorf("seed subject %q: %w", s.UserID, err)
			}
		}
	}

	logger.Info("seed data loaded",
		"tokens", len(seed.Tokens),
		"revoked", len(seed.Revoked),
		"subjects", len(seed.Subjects),
	)
	return nil
}
