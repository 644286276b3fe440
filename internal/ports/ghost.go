package ports

import (
	"context"

	"github.com/ghostpass/senate/internal/domain"
)

// TokenStore looks up minted disclosure tokens.
type TokenStore interface {
	// TokenByRef returns the token for an opaque reference, or an error
	// wrapping domain.ErrTokenNotFound.
	TokenByRef(ctx context.Context, ref string) (domain.DisclosureToken, error)
}

// SubjectStore loads the raw records held about a user.
type SubjectStore interface {
	// Subject returns the user's records. A user with no records yields an
	// error wrapping domain.ErrSubjectNotFound.
	Subject(ctx context.Context, userID string) (domain.SubjectRecord, error)
}

// AuditSink records disclosure events.
type AuditSink interface {
	RecordDisclosure(ctx context.Context, ev domain.DisclosureEvent) error
}
