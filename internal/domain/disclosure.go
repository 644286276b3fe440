package domain

import (
	"encoding/json"
	"slices"
	"time"
)

// ProfileNothing is the disclosure profile that shares no claims.
const ProfileNothing = "nothing"

// DisclosureToken is a minted, time-bounded reference a user hands to a
// scanning party. The resolver only ever reads tokens.
type DisclosureToken struct {
	JTI           string     `json:"jti"`
	UserID        string     `json:"user_id"`
	Purpose       string     `json:"purpose"`
	ExpiresAt     time.Time  `json:"expires_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	Profile       string     `json:"profile"`
	AllowedClaims []string   `json:"allowed_claims"`
}

// IsExpired reports whether now is past the token's expiry.
func (t DisclosureToken) IsExpired(now time.Time) bool { return now.After(t.ExpiresAt) }

// IsRevoked reports whether the token was revoked. Revocation is permanent.
func (t DisclosureToken) IsRevoked() bool { return t.RevokedAt != nil }

// DisclosesNothing reports whether the token shares no claims at all.
func (t DisclosureToken) DisclosesNothing() bool {
	return t.Profile == ProfileNothing || len(t.AllowedClaims) == 0
}

// Allows reports whether the claim is on the token's allow-list.
func (t DisclosureToken) Allows(claim string) bool {
	return slices.Contains(t.AllowedClaims, claim)
}

// Grade is the resolver's traffic-light verdict.
type Grade string

const (
	GradeGreen  Grade = "green"
	GradeYellow Grade = "yellow"
	GradeRed    Grade = "red"
)

// Severity orders grades from green (0) to red (2).
func (g Grade) Severity() int {
	switch g {
	case GradeGreen:
		return 0
	case GradeYellow:
		return 1
	default:
		return 2
	}
}

// SignalSource says who stands behind a signal.
type SignalSource string

const (
	SourceUser            SignalSource = "user"
	SourceVerifiedPartner SignalSource = "verified_partner"
	SourceMultiPartner    SignalSource = "multi_partner"
)

// SignalStrength grades how much weight a signal can bear.
type SignalStrength string

const (
	StrengthLow      SignalStrength = "low"
	StrengthStandard SignalStrength = "standard"
	StrengthHigh     SignalStrength = "high"
)

// Freshness buckets how recently the underlying record was observed.
type Freshness string

const (
	FreshnessLive   Freshness = "live"
	FreshnessRecent Freshness = "recent"
	FreshnessStale  Freshness = "stale"
)

// SignalMeta annotates one signal.
type SignalMeta struct {
	Source    SignalSource   `json:"source"`
	Strength  SignalStrength `json:"strength"`
	Freshness Freshness      `json:"freshness"`
}

type signalKind uint8

const (
	kindBool signalKind = iota + 1
	kindBand
	kindTags
)

// SignalValue is a generalized claim value: a boolean, a band label or a set
// of vocabulary tags. Values can only be built through the constructors in
// this package, which accept categorical input only.
type SignalValue struct {
	kind signalKind
	flag bool
	band string
	tags []string
}

// BoolSignal wraps a yes/no fact.
func BoolSignal(v bool) SignalValue { return SignalValue{kind: kindBool, flag: v} }

func bandSignal(label string) SignalValue { return SignalValue{kind: kindBand, band: label} }

func tagSignal(tags []string) SignalValue {
	return SignalValue{kind: kindTags, tags: slices.Clone(tags)}
}

// Bool returns the boolean and whether the value is a boolean.
func (v SignalValue) Bool() (bool, bool) { return v.flag, v.kind == kindBool }

// Band returns the band label and whether the value is a band.
func (v SignalValue) Band() (string, bool) { return v.band, v.kind == kindBand }

// Tags returns the tags and whether the value is a tag set.
func (v SignalValue) Tags() ([]string, bool) { return slices.Clone(v.tags), v.kind == kindTags }

// MarshalJSON renders the bare value.
func (v SignalValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindBool:
		return json.Marshal(v.flag)
	case kindBand:
		return json.Marshal(v.band)
	case kindTags:
		if v.tags == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.tags)
	default:
		return []byte("null"), nil
	}
}

// SignalPack is the resolver's output. It carries grades, bands and tags
// only; raw record values never reach it.
type SignalPack struct {
	Grade     Grade                  `json:"grade"`
	Message   string                 `json:"message"`
	Signals   map[string]SignalValue `json:"signals"`
	Meta      map[string]SignalMeta  `json:"signal_meta"`
	Purpose   string                 `json:"purpose,omitempty"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty"`
	Reasons   []string               `json:"reasons,omitempty"`
}

// NewSignalPack returns an empty pack with the given grade and message.
func NewSignalPack(grade Grade, message string) SignalPack {
	return SignalPack{
		Grade:   grade,
		Message: message,
		Signals: map[string]SignalValue{},
		Meta:    map[string]SignalMeta{},
	}
}

// Set records a signal and its metadata.
func (p *SignalPack) Set(name string, v SignalValue, meta SignalMeta) {
	p.Signals[name] = v
	p.Meta[name] = meta
}

// Names returns the signal names in sorted order.
func (p SignalPack) Names() []string {
	names := make([]string, 0, len(p.Signals))
	for n := range p.Signals {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
