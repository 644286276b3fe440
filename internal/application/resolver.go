package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

// ResolutionStatus classifies how a reference resolved.
type ResolutionStatus string

const (
	ResolutionOK          ResolutionStatus = "ok"
	ResolutionNotFound    ResolutionStatus = "not_found"
	ResolutionGone        ResolutionStatus = "gone"
	ResolutionUnavailable ResolutionStatus = "unavailable"
)

// ReasonLookupFailed marks packs produced because a store could not be read.
const ReasonLookupFailed = "lookup_failed"

// ResolveRequest is a partner's scan of a ghost reference.
type ResolveRequest struct {
	GhostRef  string
	PartnerID string
}

// Resolution is the pack returned to the partner and how it was reached.
type Resolution struct {
	Status ResolutionStatus
	Pack   domain.SignalPack
}

// ResolverDeps wires a Resolver. Tokens and Subjects are required.
type ResolverDeps struct {
	Tokens   ports.TokenStore
	Subjects ports.SubjectStore
	// Audit receives one event per resolution. Nil disables auditing.
	Audit ports.AuditSink

	Policy     domain.GradePolicy
	MinimumAge int

	Metrics ports.MetricsCollector
	Logger  *slog.Logger
}

// Resolver turns a ghost reference into a graded signal pack. It never
// returns raw record values, and every outcome is failure-closed: a pack
// that could not be built from fresh data is red.
type Resolver struct {
	tokens     ports.TokenStore
	subjects   ports.SubjectStore
	audit      ports.AuditSink
	policy     domain.GradePolicy
	minimumAge int
	metrics    ports.MetricsCollector
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewResolver returns a resolver. A policy without precedence is replaced by
// domain.DefaultGradePolicy.
func NewResolver(deps ResolverDeps) (*Resolver, error) {
	if deps.Tokens == nil || deps.Subjects == nil {
		return nil, domain.ErrInvalidConfiguration
	}
	r := &Resolver{
		tokens:     deps.Tokens,
		subjects:   deps.Subjects,
		audit:      deps.Audit,
		policy:     deps.Policy,
		minimumAge: deps.MinimumAge,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}
	if len(r.policy.Precedence) == 0 {
		r.policy = domain.DefaultGradePolicy()
	}
	if r.minimumAge <= 0 {
		r.minimumAge = domain.DefaultMinimumAge
	}
	if r.metrics == nil {
		r.metrics = nopMetrics{}
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r, nil
}

// Resolve looks up the token behind the reference, checks its lifecycle
// and maps the subject's records through the token's allow-list.
// Revocation is checked before expiry.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) Resolution {
	start := r.now()
	ctx, span := r.tracer.Start(ctx, "ghost.resolve", trace.WithAttributes(
		attribute.String("ghost.partner_id", req.PartnerID),
	))
	defer span.End()

	res, ev := r.resolve(ctx, req, start)
	ev.ID = uuid.NewString()
	ev.PartnerID = req.PartnerID
	ev.Grade = res.Pack.Grade
	ev.OccurredAt = start.UTC()
	if ev.Claims == nil {
		ev.Claims = []string{}
	}
	r.record(ctx, ev)

	span.SetAttributes(
		attribute.String("ghost.status", string(res.Status)),
		attribute.String("ghost.grade", string(res.Pack.Grade)),
	)
	if res.Status == ResolutionUnavailable {
		span.SetStatus(codes.Error, ReasonLookupFailed)
	}
	r.metrics.RecordCounter(ports.MetricResolutions, 1, map[string]string{
		"status": string(res.Status),
		"grade":  string(res.Pack.Grade),
	})
	r.metrics.RecordHistogram(ports.MetricResolveDuration, r.now().Sub(start).Seconds(), nil)
	return res
}

func (r *Resolver) resolve(ctx context.Context, req ResolveRequest, now time.Time) (Resolution, domain.DisclosureEvent) {
	if req.GhostRef == "" {
		return redResolution(ResolutionNotFound, domain.MessageNotFound),
			domain.DisclosureEvent{Action: domain.ActionNotFound}
	}

	tok, err := r.tokens.TokenByRef(ctx, req.GhostRef)
	switch {
	case errors.Is(err, domain.ErrTokenNotFound):
		return redResolution(ResolutionNotFound, domain.MessageNotFound),
			domain.DisclosureEvent{Action: domain.ActionNotFound}
	case err != nil:
		r.logger.ErrorContext(ctx, "token lookup failed", "partner_id", req.PartnerID, "error", err)
		return lookupFailed(), domain.DisclosureEvent{Action: domain.ActionLookupFailed}
	}

	ev := domain.DisclosureEvent{JTI: tok.JTI, UserID: tok.UserID, Purpose: tok.Purpose}
	switch {
	case tok.IsRevoked():
		ev.Action = domain.ActionRevoked
		return redResolution(ResolutionGone, domain.MessageRevoked), ev
	case tok.IsExpired(now):
		ev.Action = domain.ActionExpired
		return redResolution(ResolutionGone, domain.MessageExpired), ev
	case tok.DisclosesNothing():
		ev.Action = domain.ActionStub
		pack := domain.StubPack()
		stamp(&pack, tok)
		return Resolution{Status: ResolutionOK, Pack: pack}, ev
	}

	rec, err := r.subjects.Subject(ctx, tok.UserID)
	switch {
	case errors.Is(err, domain.ErrSubjectNotFound):
		rec = domain.SubjectRecord{UserID: tok.UserID}
	case err != nil:
		r.logger.ErrorContext(ctx, "subject lookup failed", "jti", tok.JTI, "error", err)
		ev.Action = domain.ActionLookupFailed
		return lookupFailed(), ev
	}

	d := domain.DeriveSignals(tok, rec, now, r.minimumAge)
	graded := r.policy.Grade(tok.Purpose, d)
	pack := d.Pack
	pack.Grade = graded.Grade
	pack.Message = graded.Message
	pack.Reasons = graded.Reasons
	stamp(&pack, tok)

	ev.Action = domain.ActionResolved
	ev.Claims = slices.Clone(d.Claims)
	return Resolution{Status: ResolutionOK, Pack: pack}, ev
}

func stamp(p *domain.SignalPack, tok domain.DisclosureToken) {
	p.Purpose = tok.Purpose
	exp := tok.ExpiresAt.UTC()
	p.ExpiresAt = &exp
}

func redResolution(status ResolutionStatus, message string) Resolution {
	return Resolution{Status: status, Pack: domain.NewSignalPack(domain.GradeRed, message)}
}

func lookupFailed() Resolution {
	res := redResolution(ResolutionUnavailable, domain.MessageUnavailable)
	res.Pack.Reasons = []string{ReasonLookupFailed}
	return res
}

// record writes the disclosure event. A failed write is logged and never
// changes the pack already decided.
func (r *Resolver) record(ctx context.Context, ev domain.DisclosureEvent) {
	if r.audit == nil {
		return
	}
	if err := r.audit.RecordDisclosure(ctx, ev); err != nil {
		r.logger.ErrorContext(ctx, "failed to record disclosure event",
			"action", ev.Action,
			"jti", ev.JTI,
			"error", err,
		)
	}
}
