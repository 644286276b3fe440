package domain

import "time"

// SubjectRecord is the raw data held about a user. It is read by the signal
// resolver and must never be serialized into a response.
// Nil sections mean no record exists.
type SubjectRecord struct {
	UserID   string
	Profile  *ProfileRecord
	Identity *IdentityRecord
	Wallet   *WalletRecord
	Tox      *ToxRecord
}

// ProfileRecord is the user's self-declared profile.
type ProfileRecord struct {
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	PhotoURL    string    `json:"photo_url"`
	Bio         string    `json:"bio"`
	Interests   []string  `json:"interests"`
}

// Identity verification states.
const (
	IdentityVerified = "verified"
	IdentityPending  = "pending"
	IdentityFailed   = "failed"
)

// IdentityRecord is the outcome of document verification.
type IdentityRecord struct {
	Status         string     `json:"status"`
	VerifiedBy     string     `json:"verified_by"`
	VerifiedAt     time.Time  `json:"verified_at"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	DocumentExpiry *time.Time `json:"document_expiry"`
}

// Verified reports a completed verification.
func (r *IdentityRecord) Verified() bool { return r != nil && r.Status == IdentityVerified }

// WalletRecord is the user's stored-value balance.
type WalletRecord struct {
	BalanceCents   int64     `json:"balance_cents"`
	Currency       string    `json:"currency"`
	LinkedPartners []string  `json:"linked_partners"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Toxicology results.
const (
	ToxClear      = "clear"
	ToxRestricted = "restricted"
	ToxPending    = "pending"
)

// ToxRecord is the most recent toxicology screening.
type ToxRecord struct {
	Result    string    `json:"result"`
	Lab       string    `json:"lab"`
	TestedAt  time.Time `json:"tested_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
