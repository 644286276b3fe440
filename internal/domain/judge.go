package domain

import "math"

// ContestRule decides when a run's ballots disagree enough to flag.
// The zero value never contests; use DefaultContestRule for production values.
type ContestRule struct {
	// MinBlocks is the number of confident block votes that contests a run.
	MinBlocks int `yaml:"min_blocks" validate:"min=1"`

	// MaxScoreVariance is the score standard deviation above which a run is
	// contested.
	MaxScoreVariance float64 `yaml:"max_score_variance" validate:"gte=0"`

	// BlockConfidence is the exclusive confidence threshold for a block vote
	// to count toward MinBlocks.
	BlockConfidence float64 `yaml:"block_confidence" validate:"gte=0,lte=1"`
}

// DefaultContestRule returns blocks >= 2 or variance > 25, counting blocks
// with confidence above 0.7.
func DefaultContestRule() ContestRule {
	return ContestRule{MinBlocks: 2, MaxScoreVariance: 25, BlockConfidence: 0.7}
}

// Contested applies the rule to precomputed aggregates.
func (r ContestRule) Contested(blocks int, variance float64) bool {
	return blocks >= r.MinBlocks || variance > r.MaxScoreVariance
}

// Dispersion summarizes the online ballots of a run.
type Dispersion struct {
	// Online is the number of ballots that contributed.
	Online int

	// ScoreVariance is the population standard deviation of online scores.
	// The name is kept from the public API even though the value is a
	// standard deviation.
	ScoreVariance float64

	// BlocksCount counts online block votes above the confidence threshold.
	BlocksCount int

	// MeanScore is the unweighted mean of online scores.
	MeanScore float64
}

// MeasureDispersion computes aggregates over online ballots only.
func MeasureDispersion(ballots []Ballot, rule ContestRule) Dispersion {
	var d Dispersion
	var sum float64
	for _, b := range ballots {
		if !b.Online() {
			continue
		}
		d.Online++
		sum += b.Score
		if b.Stance == StanceBlock && b.Confidence > rule.BlockConfidence {
			d.BlocksCount++
		}
	}
	if d.Online == 0 {
		return d
	}

	d.MeanScore = sum / float64(d.Online)
	var sq float64
	for _, b := range ballots {
		if b.Online() {
			diff := b.Score - d.MeanScore
			sq += diff * diff
		}
	}
	d.ScoreVariance = math.Sqrt(sq / float64(d.Online))
	return d
}

// Participation is one seat's line in the judge's participation summary.
type Participation struct {
	SeatID    SeatID       `json:"seat_id"`
	SeatName  string       `json:"seat_name"`
	Provider  string       `json:"provider"`
	Model     string       `json:"model"`
	Responded bool         `json:"responded"`
	Status    BallotStatus `json:"status"`
	Weight    int          `json:"weight"`
	Stance    Stance       `json:"stance,omitempty"`
}

// Summarize builds the participation summary in ballot order.
func Summarize(ballots []Ballot, weights Weights) []Participation {
	out := make([]Participation, 0, len(ballots))
	for _, b := range ballots {
		p := Participation{
			SeatID:    b.SeatID,
			SeatName:  b.SeatName,
			Provider:  b.Provider,
			Model:     b.Model,
			Responded: b.Online(),
			Status:    b.Status,
			Weight:    weights[b.SeatID],
		}
		if p.Responded {
			p.Stance = b.Stance
		}
		out = append(out, p)
	}
	return out
}

// WeightedTally is the weighted-voting pass over online ballots.
type WeightedTally struct {
	// Score is the weight-averaged score. It falls back to the plain mean
	// when every online seat has zero weight.
	Score float64

	// StanceShare maps each stance to its share of online weight in [0, 1].
	StanceShare map[Stance]float64

	// Leading is the stance holding the largest share; ties keep the more
	// cautious stance (block, revise, abstain, approve).
	Leading Stance
}

var stanceCaution = []Stance{StanceBlock, StanceRevise, StanceAbstain, StanceApprove}

// Tally computes the weighted vote over online ballots.
func Tally(ballots []Ballot, weights Weights) WeightedTally {
	t := WeightedTally{StanceShare: map[Stance]float64{}, Leading: StanceAbstain}
	var total, scoreSum, plainSum float64
	online := 0
	raw := map[Stance]float64{}
	for _, b := range ballots {
		if !b.Online() {
			continue
		}
		w := float64(weights[b.SeatID])
		online++
		total += w
		scoreSum += w * b.Score
		plainSum += b.Score
		raw[b.Stance] += w
	}
	if online == 0 {
		return t
	}
	if total == 0 {
		t.Score = plainSum / float64(online)
		return t
	}

	t.Score = scoreSum / total
	best := -1.0
	for _, st := range stanceCaution {
		share := raw[st] / total
		if share > 0 {
			t.StanceShare[st] = share
		}
		if share > best {
			best, t.Leading = share, st
		}
	}
	return t
}

// JudgeOutput is the synthesized verdict of one run.
type JudgeOutput struct {
	// FinalAnswer is never empty; degraded runs carry a fallback answer.
	FinalAnswer string `json:"final_answer"`

	Reasoning               string `json:"reasoning,omitempty"`
	DisagreementExplanation string `json:"disagreement_explanation,omitempty"`

	ParticipationSummary []Participation `json:"participation_summary"`

	Contested bool `json:"contested"`

	// TraceID is unique per synthesis.
	TraceID string `json:"trace_id"`

	ScoreVariance float64 `json:"score_variance"`
	BlocksCount   int     `json:"blocks_count"`

	WeightedScore float64            `json:"weighted_score"`
	StanceShare   map[Stance]float64 `json:"stance_share"`
	LeadingStance Stance             `json:"leading_stance"`

	// SharedPoints are key points raised by at least two online seats.
	SharedPoints []string `json:"shared_points,omitempty"`

	// Degraded is set when the synthesis call failed or had nothing to read.
	Degraded bool `json:"degraded"`

	JudgeModel string `json:"judge_model,omitempty"`
}
