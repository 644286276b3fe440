// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ghostpass/senate/internal/domain"
)

// SeatClients resolves the model client serving a seat.
type SeatClients interface {
	// ClientFor returns the client for the seat's provider/model pair.
	// An error means the seat cannot be reached, for example because the
	// provider has no API key configured.
	ClientFor(seat domain.Seat) (LLMClient, error)
}

// SeatEvaluator produces one seat's ballot. Implementations never fail:
// every problem is folded into the ballot's status.
type SeatEvaluator interface {
	Evaluate(ctx context.Context, seat domain.Seat, text string) domain.Ballot
}

// Synthesizer turns a full ballot set into one judged verdict.
// Implementations never fail; failed synthesis yields a degraded output.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, ballots []domain.Ballot, weights domain.Weights) domain.JudgeOutput
}

// CalibrationStore holds the current seat weights and their audit trail.
type CalibrationStore interface {
	// CurrentWeights returns the stored weights. found is false when no
	// calibration has ever been saved.
	CurrentWeights(ctx context.Context) (w domain.Weights, found bool, err error)

	// RunInTx runs fn inside one transaction. The writes fn performs are
	// committed together when fn returns nil and discarded otherwise.
	RunInTx(ctx context.Context, fn func(w CalibrationWriter) error) error

	// History lists audit entries, newest first. limit <= 0 means no limit.
	History(ctx context.Context, limit int) ([]domain.CalibrationAudit, error)
}

// CalibrationWriter is the transactional view handed to RunInTx callbacks.
type CalibrationWriter interface {
	SaveWeights(ctx context.Context, w domain.Weights, actorID string) error
	AppendAudit(ctx context.Context, entry domain.CalibrationAudit) error
}

// RunRecorder persists completed runs. Callers treat failures as
// non-fatal.
type RunRecorder interface {
	RecordRun(ctx context.Context, run domain.Run) error
}
