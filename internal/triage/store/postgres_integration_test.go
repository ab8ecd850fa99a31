//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pontes/internal/triage/models"
	"pontes/internal/triage/store"
	"pontes/pkg/platform/sentinel"
	"pontes/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "triage_records"))
}

func newTestRecord(userID string, at time.Time) *models.Record {
	completedAt := at
	return &models.Record{
		UserID:         userID,
		Branch:         models.BranchNotArrived,
		CatalogVersion: "2026.1",
		LegalStatus:    models.LegalStatusPending,
		LanguageLevel:  models.LanguageLevelNative,
		Location:       "Porto",
		ArrivalDate:    "2026-09-01",
		Interests:      []string{"healthcare", "tech"},
		Urgencies:      []string{"job_search"},
		Answers: models.Answers{
			"in_portugal":      models.Text("no"),
			"portuguese_level": models.Text("fluent"),
			"interests":        models.List("healthcare", "tech"),
		},
		Completed:   true,
		CompletedAt: &completedAt,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Microsecond)
	userID := uuid.NewString()

	_, err := s.store.FindByUserID(ctx, userID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	created, err := s.store.Upsert(ctx, newTestRecord(userID, at))
	s.Require().NoError(err)

	found, err := s.store.FindByUserID(ctx, userID)
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)
	s.Equal(models.BranchNotArrived, found.Branch)
	s.Equal(models.LanguageLevelNative, found.LanguageLevel)
	s.Empty(found.WorkStatus)
	s.Equal("Porto", found.Location)
	s.Equal([]string{"healthcare", "tech"}, found.Interests)
	s.Equal([]string{"job_search"}, found.Urgencies)
	s.True(found.Answers.Equal(newTestRecord(userID, at).Answers))
	s.True(found.Completed)
	s.True(at.Equal(*found.CompletedAt))
}

// TestResubmissionUpdatesInPlace verifies a second submission updates the
// existing row and advances completed_at.
func (s *PostgresStoreSuite) TestResubmissionUpdatesInPlace() {
	ctx := context.Background()
	first := time.Now().UTC().Truncate(time.Microsecond)
	second := first.Add(time.Hour)
	userID := uuid.NewString()

	created, err := s.store.Upsert(ctx, newTestRecord(userID, first))
	s.Require().NoError(err)
	updated, err := s.store.Upsert(ctx, newTestRecord(userID, second))
	s.Require().NoError(err)

	s.Equal(created.ID, updated.ID)
	s.True(second.Equal(*updated.CompletedAt))
	s.True(first.Equal(updated.CreatedAt))

	var count int
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM triage_records WHERE user_id = $1`, userID).Scan(&count))
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestBranchSwitchReplacesVocabulary() {
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Microsecond)
	userID := uuid.NewString()

	resident := newTestRecord(userID, at)
	resident.Branch = models.BranchResident
	resident.WorkStatus = models.WorkStatusEmployed
	_, err := s.store.Upsert(ctx, resident)
	s.Require().NoError(err)

	switched := newTestRecord(userID, at.Add(time.Minute))
	switched.LegalStatus = ""
	merged, err := s.store.Upsert(ctx, switched)
	s.Require().NoError(err)

	s.Equal(models.BranchNotArrived, merged.Branch)
	s.Empty(merged.WorkStatus)
	s.Empty(merged.LegalStatus)
}

// TestConcurrentFirstSubmission verifies racing first submissions for one
// user produce exactly one row and no errors.
func (s *PostgresStoreSuite) TestConcurrentFirstSubmission() {
	ctx := context.Background()
	userID := uuid.NewString()
	at := time.Now().UTC().Truncate(time.Microsecond)
	const goroutines = 20

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.store.Upsert(ctx, newTestRecord(userID, at.Add(time.Duration(i)*time.Second))); err != nil {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load())
	var count int
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM triage_records WHERE user_id = $1`, userID).Scan(&count))
	s.Equal(1, count)
}
