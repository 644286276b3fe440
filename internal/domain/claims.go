package domain

import (
	"strings"
	"time"
)

// Claim names a user may place on a token's allow-list.
const (
	ClaimProfile       = "profile"
	ClaimIDVerified    = "id_verified"
	ClaimAgeVerified   = "age_verified"
	ClaimWalletTier    = "wallet_tier"
	ClaimFundsVerified = "funds_verified"
	ClaimBio           = "bio"
	ClaimToxStatus     = "tox_status"
)

// KnownClaims lists every claim the resolver understands.
var KnownClaims = []string{
	ClaimAgeVerified, ClaimBio, ClaimFundsVerified, ClaimIDVerified,
	ClaimProfile, ClaimToxStatus, ClaimWalletTier,
}

// Signal names emitted into packs.
const (
	SignalProfilePresent = "profile_present"
	SignalAccountTenure  = "account_tenure"
	SignalPhotoOnFile    = "photo_on_file"
	SignalIDVerified     = "id_verified"
	SignalAgeVerified    = "age_verified"
	SignalWalletTier     = "wallet_tier"
	SignalFundsVerified  = "funds_verified"
	SignalBioPresent     = "bio_present"
	SignalBioTags        = "bio_tags"
	SignalToxStatus      = "tox_status"
	SignalToxRecency     = "tox_recency"
)

// Tox status labels.
const (
	ToxStatusClear      = "clear"
	ToxStatusRestricted = "restricted"
	ToxStatusPending    = "pending"
	ToxStatusUnknown    = "unknown"
)

// DefaultMinimumAge is the admission age used when none is configured.
const DefaultMinimumAge = 21

// Derivation is the intermediate result of mapping a record through a
// token's allow-list. Pack has no grade yet.
type Derivation struct {
	Pack SignalPack

	// Claims are the allowed, known claim names that were evaluated.
	Claims []string

	IdentityRequested bool
	IdentityVerified  bool
	AgeRequested      bool
	AgeVerified       bool
	Restricted        bool
}

// StubPack is returned for tokens that disclose nothing. It shows only that
// a profile exists, so non-disclosure is not itself a negative signal.
func StubPack() SignalPack {
	p := NewSignalPack(GradeYellow, "Profile shared without details.")
	p.Set(SignalProfilePresent, BoolSignal(true), SignalMeta{
		Source: SourceUser, Strength: StrengthLow, Freshness: FreshnessLive,
	})
	return p
}

// DeriveSignals maps the record through every allowed claim family.
// minimumAge below 1 falls back to DefaultMinimumAge.
func DeriveSignals(tok DisclosureToken, rec SubjectRecord, now time.Time, minimumAge int) Derivation {
	if minimumAge < 1 {
		minimumAge = DefaultMinimumAge
	}
	d := Derivation{Pack: NewSignalPack(GradeGreen, "")}
	for _, claim := range KnownClaims {
		if tok.Allows(claim) {
			d.Claims = append(d.Claims, claim)
		}
	}

	if tok.Allows(ClaimProfile) {
		deriveProfile(&d, rec.Profile, now)
	}
	if tok.Allows(ClaimIDVerified) || tok.Allows(ClaimAgeVerified) {
		deriveIdentity(&d, rec.Identity, now, tok.Allows(ClaimAgeVerified), minimumAge)
	}
	if tok.Allows(ClaimWalletTier) || tok.Allows(ClaimFundsVerified) {
		deriveWallet(&d, rec.Wallet, now, tok.Allows(ClaimWalletTier), tok.Allows(ClaimFundsVerified))
	}
	if tok.Allows(ClaimBio) {
		deriveBio(&d, rec.Profile)
	}
	if tok.Allows(ClaimToxStatus) {
		deriveTox(&d, rec.Tox, now)
	}
	return d
}

func deriveProfile(d *Derivation, p *ProfileRecord, now time.Time) {
	meta := SignalMeta{Source: SourceUser, Strength: StrengthLow, Freshness: FreshnessLive}
	d.Pack.Set(SignalProfilePresent, BoolSignal(p != nil), meta)
	if p == nil {
		return
	}
	d.Pack.Set(SignalAccountTenure, bandSignal(TenureBand(p.CreatedAt, now)), meta)
	d.Pack.Set(SignalPhotoOnFile, BoolSignal(strings.TrimSpace(p.PhotoURL) != ""), meta)
}

func deriveIdentity(d *Derivation, r *IdentityRecord, now time.Time, wantAge bool, minimumAge int) {
	d.IdentityRequested = true
	d.AgeRequested = wantAge

	// An expired document no longer backs the verification.
	verified := r.Verified() && (r.DocumentExpiry == nil || r.DocumentExpiry.After(now))
	d.IdentityVerified = verified

	meta := SignalMeta{Source: SourceUser, Strength: StrengthLow, Freshness: FreshnessStale}
	if r != nil {
		meta.Freshness = FreshnessOf(r.VerifiedAt, now)
		if verified {
			meta.Strength = StrengthHigh
			if r.VerifiedBy != "" {
				meta.Source = SourceVerifiedPartner
			}
		}
	}
	d.Pack.Set(SignalIDVerified, BoolSignal(verified), meta)

	if wantAge {
		d.AgeVerified = verified && r.DateOfBirth != nil && AgeAtLeast(*r.DateOfBirth, now, minimumAge)
		d.Pack.Set(SignalAgeVerified, BoolSignal(d.AgeVerified), meta)
	}
}

func deriveWallet(d *Derivation, w *WalletRecord, now time.Time, wantTier, wantFunds bool) {
	meta := SignalMeta{Source: SourceUser, Strength: StrengthLow, Freshness: FreshnessStale}
	var cents int64
	var partners int
	if w != nil {
		cents = w.BalanceCents
		partners = len(w.LinkedPartners)
		meta.Freshness = FreshnessOf(w.UpdatedAt, now)
	}
	switch {
	case partners >= 2:
		meta.Source, meta.Strength = SourceMultiPartner, StrengthHigh
	case partners == 1:
		meta.Source, meta.Strength = SourceVerifiedPartner, StrengthStandard
	}

	if wantTier {
		d.Pack.Set(SignalWalletTier, bandSignal(BalanceBand(cents)), meta)
	}
	if wantFunds {
		d.Pack.Set(SignalFundsVerified, BoolSignal(cents > 0 && partners > 0), meta)
	}
}

func deriveBio(d *Derivation, p *ProfileRecord) {
	meta := SignalMeta{Source: SourceUser, Strength: StrengthLow, Freshness: FreshnessLive}
	var interests []string
	present := false
	if p != nil {
		interests = p.Interests
		present = strings.TrimSpace(p.Bio) != ""
	}
	d.Pack.Set(SignalBioPresent, BoolSignal(present), meta)
	d.Pack.Set(SignalBioTags, tagSignal(BioTags(interests)), meta)
}

func deriveTox(d *Derivation, t *ToxRecord, now time.Time) {
	meta := SignalMeta{Source: SourceUser, Strength: StrengthStandard, Freshness: FreshnessStale}
	if t == nil {
		d.Pack.Set(SignalToxStatus, bandSignal(ToxStatusUnknown), meta)
		return
	}
	if t.Lab != "" {
		meta.Source, meta.Strength = SourceVerifiedPartner, StrengthHigh
	}
	meta.Freshness = FreshnessOf(t.TestedAt, now)

	recency := ExpiryRecency(t.ExpiresAt, now)
	status := ToxStatusUnknown
	switch t.Result {
	case ToxRestricted:
		// Restrictions outlive the test's validity window.
		status = ToxStatusRestricted
		d.Restricted = true
	case ToxClear:
		if recency != RecencyLapsed {
			status = ToxStatusClear
		}
	case ToxPending:
		status = ToxStatusPending
	}
	d.Pack.Set(SignalToxStatus, bandSignal(status), meta)
	d.Pack.Set(SignalToxRecency, bandSignal(recency), meta)
}
