package domain

import (
	"slices"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Wallet balance bands.
const (
	BandNone     = "none"
	BandStarter  = "starter"
	BandStandard = "standard"
	BandPremium  = "premium"
	BandElite    = "elite"
)

// BalanceBand maps a balance in cents to a tier label.
// Thresholds: $50, $500, $5000.
func BalanceBand(cents int64) string {
	switch {
	case cents <= 0:
		return BandNone
	case cents < 5_000:
		return BandStarter
	case cents < 50_000:
		return BandStandard
	case cents < 500_000:
		return BandPremium
	default:
		return BandElite
	}
}

// Account tenure bands.
const (
	TenureNew         = "new"
	TenureEstablished = "established"
	TenureVeteran     = "veteran"
)

// TenureBand buckets account age: under 30 days, under a year, or older.
func TenureBand(created, now time.Time) string {
	age := now.Sub(created)
	switch {
	case age < 30*day:
		return TenureNew
	case age < 365*day:
		return TenureEstablished
	default:
		return TenureVeteran
	}
}

// Expiry recency categories.
const (
	RecencyCurrent  = "current"
	RecencyExpiring = "expiring"
	RecencyLapsed   = "lapsed"
)

// ExpiryRecency buckets the days left before expires.
func ExpiryRecency(expires, now time.Time) string {
	left := expires.Sub(now)
	switch {
	case left < 0:
		return RecencyLapsed
	case left < 14*day:
		return RecencyExpiring
	default:
		return RecencyCurrent
	}
}

// FreshnessOf buckets the age of an observation. A zero time is stale.
func FreshnessOf(observed, now time.Time) Freshness {
	if observed.IsZero() {
		return FreshnessStale
	}
	age := now.Sub(observed)
	switch {
	case age <= day:
		return FreshnessLive
	case age <= 30*day:
		return FreshnessRecent
	default:
		return FreshnessStale
	}
}

// AgeAtLeast reports whether someone born on dob has turned years by now.
func AgeAtLeast(dob, now time.Time, years int) bool {
	return !dob.AddDate(years, 0, 0).After(now)
}

// BioVocabulary is the closed set of interest tags a pack may carry.
var BioVocabulary = []string{
	"art", "cocktails", "comedy", "craft_beer", "dancing", "gaming",
	"hiphop", "house", "jazz", "karaoke", "late_night", "live_music",
	"rooftop", "sports", "techno", "wine",
}

// MaxBioTags caps the tags disclosed per pack.
const MaxBioTags = 5

// BioTags keeps the interests that match the vocabulary, sorted and capped.
func BioTags(interests []string) []string {
	tags := make([]string, 0, len(interests))
	for _, raw := range interests {
		tag := normalizeTag(raw)
		if _, ok := slices.BinarySearch(BioVocabulary, tag); ok && !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	slices.Sort(tags)
	if len(tags) > MaxBioTags {
		tags = tags[:MaxBioTags]
	}
	return tags
}

func normalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
