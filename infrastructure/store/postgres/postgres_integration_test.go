//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ghostpass/senate/infrastructure/store/postgres"
	"github.com/ghostpass/senate/internal/domain"
	"github.com/ghostpass/senate/internal/ports"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	db        *sql.DB
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()
	c, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("senate"),
		tcpostgres.WithUsername("senate"),
		tcpostgres.WithPassword("senate"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = c

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.db, err = postgres.Open(ctx, dsn)
	s.Require().NoError(err)
	s.Require().NoError(postgres.Migrate(ctx, s.db))
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		_ = testcontainers.TerminateContainer(s.container)
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.db.Exec(`TRUNCATE senate_calibration, senate_calibration_audit, senate_runs,
		ghost_tokens, ghost_subjects, ghost_disclosure_audit`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestMigrateIsIdempotent() {
	s.Require().NoError(postgres.Migrate(context.Background(), s.db))
}

func (s *PostgresStoreSuite) TestCalibrationCommit() {
	ctx := context.Background()
	store := postgres.NewCalibrationStore(s.db)
	w := domain.Weights{1: 50, 2: 50}

	_, found, err := store.CurrentWeights(ctx)
	s.Require().NoError(err)
	s.False(found)

	err = store.RunInTx(ctx, func(tx ports.CalibrationWriter) error {
		if err := tx.SaveWeights(ctx, w, "emp-1"); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, domain.CalibrationAudit{
			ID: uuid.NewString(), ActorID: "emp-1", Weights: w, Summary: "set", ChangedAt: time.Now().UTC(),
		})
	})
	s.Require().NoError(err)

	got, found, err := store.CurrentWeights(ctx)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(w, got)

	hist, err := store.History(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(hist, 1)
	s.Equal(w, hist[0].Weights)
}

func (s *PostgresStoreSuite) TestCalibrationRollback() {
	ctx := context.Background()
	store := postgres.NewCalibrationStore(s.db)
	boom := errors.New("audit failed")

	err := store.RunInTx(ctx, func(tx ports.CalibrationWriter) error {
		if err := tx.SaveWeights(ctx, domain.Weights{1: 100}, "emp-1"); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, found, err := store.CurrentWeights(ctx)
	s.Require().NoError(err)
	s.False(found, "weights must not survive a failed transaction")
	hist, err := store.History(ctx, 0)
	s.Require().NoError(err)
	s.Empty(hist)
}

func (s *PostgresStoreSuite) TestCalibrationHistoryNewestFirst() {
	ctx := context.Background()
	store := postgres.NewCalibrationStore(s.db)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 3 {
		s.Require().NoError(store.RunInTx(ctx, func(tx ports.CalibrationWriter) error {
			return tx.AppendAudit(ctx, domain.CalibrationAudit{
				ID: uuid.NewString(), ActorID: "emp", Weights: domain.Weights{1: 100},
				Summary: "change", ChangedAt: base.Add(time.Duration(i) * time.Hour),
			})
		}))
	}
	hist, err := store.History(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(hist, 2)
	s.True(hist[0].ChangedAt.After(hist[1].ChangedAt))
}

func (s *PostgresStoreSuite) TestRunRoundTrip() {
	ctx := context.Background()
	store := postgres.NewRunStore(s.db)
	run := domain.Run{
		ID:        uuid.NewString(),
		TraceID:   "sen_" + uuid.NewString(),
		UserID:    "u-1",
		InputText: "Ship the new onboarding flow.",
		Ballots: []domain.Ballot{{
			SeatID: 1, SeatName: "Analyst", Status: domain.StatusOnline, Stance: domain.StanceApprove, Score: 80, Confidence: 0.9,
		}},
		Judge:        domain.JudgeOutput{FinalAnswer: "Approve.", Contested: true},
		WeightsUsed:  domain.Weights{1: 100},
		ProcessingMS: 1200,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(store.RecordRun(ctx, run))

	got, err := store.RunByTraceID(ctx, run.TraceID)
	s.Require().NoError(err)
	s.Equal(run.ID, got.ID)
	s.Equal(run.Ballots[0].Stance, got.Ballots[0].Stance)
	s.True(got.Judge.Contested)
	s.Equal(run.WeightsUsed, got.WeightsUsed)

	s.Error(store.RecordRun(ctx, run), "duplicate run id")
}

func (s *PostgresStoreSuite) TestTokenLookup() {
	ctx := context.Background()
	store := postgres.NewTokenStore(s.db)
	revoked := time.Now().UTC().Truncate(time.Microsecond)
	tok := domain.DisclosureToken{
		JTI: "jti-1", UserID: "u-1", Purpose: "admission",
		ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond),
		RevokedAt: &revoked, Profile: "door",
		AllowedClaims: []string{domain.ClaimIDVerified, domain.ClaimAgeVerified},
	}
	s.Require().NoError(store.SaveToken(ctx, "ref-1", tok))

	got, err := store.TokenByRef(ctx, "ref-1")
	s.Require().NoError(err)
	s.Equal(tok.AllowedClaims, got.AllowedClaims)
	s.Require().NotNil(got.RevokedAt)
	s.True(got.RevokedAt.Equal(revoked))

	_, err = store.TokenByRef(ctx, "ref-missing")
	s.ErrorIs(err, domain.ErrTokenNotFound)
}

func (s *PostgresStoreSuite) TestTokenRevoke() {
	ctx := context.Background()
	store := postgres.NewTokenStore(s.db)
	s.Require().NoError(store.SaveToken(ctx, "ref-2", domain.DisclosureToken{
		JTI: "jti-2", UserID: "u-1", Purpose: "admission",
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
	}))

	at := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(store.Revoke(ctx, "ref-2", at))
	s.Require().NoError(store.Revoke(ctx, "ref-2", at.Add(time.Minute)), "second revoke is a no-op")

	got, err := store.TokenByRef(ctx, "ref-2")
	s.Require().NoError(err)
	s.Require().NotNil(got.RevokedAt)
	s.True(got.RevokedAt.Equal(at))

	s.ErrorIs(store.Revoke(ctx, "ref-missing", at), domain.ErrTokenNotFound)
}

func (s *PostgresStoreSuite) TestSubjectSections() {
	ctx := context.Background()
	store := postgres.NewSubjectStore(s.db)
	rec := domain.SubjectRecord{
		UserID:   "u-1",
		Identity: &domain.IdentityRecord{Status: domain.IdentityVerified, VerifiedBy: "veriff"},
	}
	s.Require().NoError(store.SaveSubject(ctx, rec))

	got, err := store.Subject(ctx, "u-1")
	s.Require().NoError(err)
	s.Nil(got.Profile)
	s.Nil(got.Wallet)
	s.Require().NotNil(got.Identity)
	s.True(got.Identity.Verified())

	_, err = store.Subject(ctx, "u-2")
	s.ErrorIs(err, domain.ErrSubjectNotFound)
}

func (s *PostgresStoreSuite) TestDisclosureAudit() {
	ctx := context.Background()
	store := postgres.NewAuditStore(s.db)
	ev := domain.DisclosureEvent{
		ID: uuid.NewString(), Action: domain.ActionResolved, JTI: "jti-1", UserID: "u-1",
		PartnerID: "club-9", Purpose: "admission", Grade: domain.GradeGreen,
		Claims: []string{domain.ClaimIDVerified}, OccurredAt: time.Now().UTC(),
	}
	s.Require().NoError(store.RecordDisclosure(ctx, ev))

	events, err := store.Events(ctx, "jti-1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(domain.ActionResolved, events[0].Action)
	s.Equal([]string{domain.ClaimIDVerified}, events[0].Claims)
	s.Equal(domain.GradeGreen, events[0].Grade)
}
