package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"triagebot/internal/model"
	"triagebot/internal/repository"
	"triagebot/pkg/config"
	"triagebot/pkg/db"
)

func newSQLiteRepo(t *testing.T) repository.TriageRepository {
	t.Helper()
	ctx := context.Background()
	conn, err := db.NewSQLite(ctx, config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "triage.db")}, zap.NewNop())
	require.NoError(t, err)
	repo, err := repository.NewSQLiteTriageRepository(ctx, conn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newScheduler(t *testing.T, repo repository.TriageRepository, notifier Notifier) *ReminderScheduler {
	t.Helper()
	s, err := NewReminderScheduler(repo, notifier, ReminderOptions{Target: "#inbox"}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestRunSweepRemindsEachRecordOnce(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	subjects := []string{"first", "second", "third"}
	for _, s := range subjects {
		_, err := repo.CreateRecord(ctx, "ana@example.com", s, model.CategoryUrgent)
		require.NoError(t, err)
	}

	notifier := &fakeNotifier{}
	s := newScheduler(t, repo, notifier)

	payloads, err := s.RunSweep(ctx)
	require.NoError(t, err)
	require.Len(t, payloads, 3)
	for i, p := range payloads {
		assert.Equal(t, subjects[i], p.Subject)
		assert.Equal(t, "ana@example.com", p.Sender)
		assert.Equal(t, model.CategoryUrgent, p.Category)
	}

	delivered := notifier.all()
	require.Len(t, delivered, 3)
	assert.Equal(t, "#inbox", delivered[0].target)
	assert.Contains(t, delivered[0].payload.Text(), "🔹 *Subject:* first")

	again, err := s.RunSweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, notifier.all(), 3)

	pending, err := repo.ListUnreminded(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunSweepDeliveryFailureIsNotRetried(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	id, err := repo.CreateRecord(ctx, "s", "subject", model.CategoryGeneral)
	require.NoError(t, err)

	notifier := &fakeNotifier{err: errors.New("chat api down")}
	s := newScheduler(t, repo, notifier)

	payloads, err := s.RunSweep(ctx)
	require.NoError(t, err)
	require.Len(t, payloads, 1)

	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, rec.Reminded)

	payloads, err = s.RunSweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, payloads)
	assert.Len(t, notifier.all(), 1)
}

func TestRunSweepOnlyDeliversClaimedRecords(t *testing.T) {
	repo := newMemoryRepo()
	ctx := context.Background()
	for _, s := range []string{"a", "b", "c"} {
		_, err := repo.CreateRecord(ctx, "s", s, model.CategoryGeneral)
		require.NoError(t, err)
	}
	repo.stolen[2] = true

	notifier := &fakeNotifier{}
	s := newScheduler(t, repo, notifier)

	payloads, err := s.RunSweep(ctx)
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Equal(t, int64(1), payloads[0].RecordID)
	assert.Equal(t, int64(3), payloads[1].RecordID)
	assert.Len(t, notifier.all(), 2)
}

func TestRunSweepStoreErrorReturnsPartialResult(t *testing.T) {
	repo := newMemoryRepo()
	ctx := context.Background()
	for _, s := range []string{"a", "b", "c"} {
		_, err := repo.CreateRecord(ctx, "s", s, model.CategoryGeneral)
		require.NoError(t, err)
	}
	repo.markErr[2] = errStore

	s := newScheduler(t, repo, &fakeNotifier{})
	payloads, err := s.RunSweep(ctx)
	require.ErrorIs(t, err, errStore)
	require.Len(t, payloads, 1)
	assert.Equal(t, int64(1), payloads[0].RecordID)

	repo.listErr = errStore
	_, err = s.RunSweep(ctx)
	require.ErrorIs(t, err, errStore)
}

func TestNewReminderSchedulerValidates(t *testing.T) {
	_, err := NewReminderScheduler(nil, nil, ReminderOptions{}, nil)
	require.Error(t, err)

	_, err = NewReminderScheduler(newMemoryRepo(), nil, ReminderOptions{Schedule: "not a cron"}, nil)
	require.Error(t, err)

	_, err = NewReminderScheduler(newMemoryRepo(), nil, ReminderOptions{Schedule: "0 0 30 2 *"}, nil)
	require.ErrorIs(t, err, ErrScheduleNeverFires)
}

func TestNextRunFollowsSchedule(t *testing.T) {
	s := newScheduler(t, newMemoryRepo(), nil)

	after := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC).Equal(s.NextRun(after)))

	before := time.Date(2026, 1, 1, 8, 59, 0, 0, time.UTC)
	assert.True(t, time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC).Equal(s.NextRun(before)))
}

type stepSchedule struct{ d time.Duration }

func (s stepSchedule) Next(t time.Time) time.Time { return t.Add(s.d) }

func TestRunSweepsUntilCancelled(t *testing.T) {
	repo := newMemoryRepo()
	_, err := repo.CreateRecord(context.Background(), "s", "subject", model.CategoryUrgent)
	require.NoError(t, err)

	notifier := &fakeNotifier{notify: make(chan struct{}, 1)}
	s := newScheduler(t, repo, notifier)
	s.schedule = stepSchedule{d: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-notifier.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a reminder to be delivered")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	assert.Len(t, notifier.all(), 1)
}

type neverSchedule struct{}

func (neverSchedule) Next(time.Time) time.Time { return time.Time{} }

func TestRunStopsWhenScheduleNeverFires(t *testing.T) {
	repo := newMemoryRepo()
	_, err := repo.CreateRecord(context.Background(), "s", "subject", model.CategoryUrgent)
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	s := newScheduler(t, repo, notifier)
	s.schedule = neverSchedule{}

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrScheduleNeverFires)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler kept running on a schedule that never fires")
	}
	assert.Empty(t, notifier.all())
}
