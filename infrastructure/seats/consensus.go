package seats

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ghostpass/senate/internal/domain"
)

// DefaultSimilarity is the normalized Levenshtein similarity at which two
// key points count as the same point.
const DefaultSimilarity = 0.8

var foldCaser = cases.Fold()

type pointCluster struct {
	label string
	key   string
	seats map[domain.SeatID]struct{}
}

// SharedPoints clusters the key points of online ballots and returns the
// label of every cluster raised by at least two distinct seats, in order of
// first appearance. The label is the first phrasing seen.
func SharedPoints(ballots []domain.Ballot, threshold float64) []string {
	var clusters []*pointCluster
	for _, b := range ballots {
		if !b.Online() {
			continue
		}
		for _, kp := range b.KeyPoints {
			key := normalizePoint(kp)
			if key == "" {
				continue
			}
			c := nearest(clusters, key, threshold)
			if c == nil {
				c = &pointCluster{label: strings.TrimSpace(kp), key: key, seats: map[domain.SeatID]struct{}{}}
				clusters = append(clusters, c)
			}
			c.seats[b.SeatID] = struct{}{}
		}
	}

	var shared []string
	for _, c := range clusters {
		if len(c.seats) >= 2 {
			shared = append(shared, c.label)
		}
	}
	return shared
}

func nearest(clusters []*pointCluster, key string, threshold float64) *pointCluster {
	var best *pointCluster
	bestScore := threshold
	for _, c := range clusters {
		if s := similarity(c.key, key); s >= bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

// normalizePoint case-folds, drops punctuation and collapses whitespace.
func normalizePoint(s string) string {
	s = foldCaser.String(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > utf8.RuneSelf:
			return r
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// similarity is 1 - distance/maxRunes, in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	s := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
	return max(0, s)
}
