package supabase

import (
	"context"
	"fmt"

	supa "github.com/supabase-community/supabase-go"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// SubjectStore reads subject records from the ghost_subjects table, one
// JSON column per record section.
type SubjectStore struct {
	client *supa.Client
}

var _ ports.SubjectStore = (*SubjectStore)(nil)

// NewSubjectStore returns a store over client.
func NewSubjectStore(client *supa.Client) *SubjectStore {
	return &SubjectStore{client: client}
}

type subjectRow struct {
	UserID   string                 `json:"user_id"`
	Profile  *domain.ProfileRecord  `json:"profile"`
	Identity *domain.IdentityRecord `json:"identity"`
	Wallet   *domain.WalletRecord   `json:"wallet"`
	Tox      *domain.ToxRecord      `json:"tox"`
}

// Subject loads the user's row.
func (s *SubjectStore) Subject(ctx context.Context, userID string) (domain.SubjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.SubjectRecord{}, err
	}
	var rows []subjectRow
	_, err := s.client.From(SubjectsTable).
		Select("user_id,profile,identity,wallet,tox", "", false).
		Eq("user_id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return domain.SubjectRecord{}, wrap("subject", err)
	}
	if len(rows) == 0 {
		return domain.SubjectRecord{}, fmt.Errorf("subject lookup: %w", domain.ErrSubjectNotFound)
	}
	r := rows[0]
	return domain.SubjectRecord{
		UserID:   userID,
		Profile:  r.Profile,
		Identity: r.Identity,
		Wallet:   r.Wallet,
		Tox:      r.Tox,
	}, nil
}
