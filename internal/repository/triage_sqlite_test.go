package repository

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"triagebot/internal/model"
	"triagebot/pkg/config"
	"triagebot/pkg/db"
)

func newSQLiteRepo(t *testing.T) *SQLiteTriageRepository {
	t.Helper()
	ctx := context.Background()
	conn, err := db.NewSQLite(ctx, config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "triage.db")}, zap.NewNop())
	require.NoError(t, err)

	repo, err := NewSQLiteTriageRepository(ctx, conn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestCreateAndGet(t *testing.T) {
	repo := newSQLiteRepo(t)
	fixed := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	ctx := context.Background()

	id, err := repo.CreateRecord(ctx, "ana@example.com", "Invoice overdue", model.CategoryUrgent)
	require.NoError(t, err)
	require.Positive(t, id)

	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "ana@example.com", rec.Sender)
	assert.Equal(t, "Invoice overdue", rec.Subject)
	assert.Equal(t, model.CategoryUrgent, rec.Category)
	assert.False(t, rec.Reminded)
	assert.True(t, fixed.Equal(rec.CreatedAt), "created_at = %s", rec.CreatedAt)
}

func TestGetMissing(t *testing.T) {
	repo := newSQLiteRepo(t)
	_, err := repo.Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestListUnremindedOrdersByID(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	var ids []int64
	for _, subject := range []string{"first", "second", "third"} {
		id, err := repo.CreateRecord(ctx, "s", subject, model.CategoryGeneral)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	claimed, err := repo.MarkReminded(ctx, ids[1])
	require.NoError(t, err)
	require.True(t, claimed)

	records, err := repo.ListUnreminded(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ids[0], records[0].ID)
	assert.Equal(t, ids[2], records[1].ID)
	assert.Equal(t, "third", records[1].Subject)
}

func TestListUnremindedEmpty(t *testing.T) {
	repo := newSQLiteRepo(t)
	records, err := repo.ListUnreminded(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMarkRemindedIsIdempotentClaim(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	id, err := repo.CreateRecord(ctx, "s", "subject", model.CategoryFollowUp)
	require.NoError(t, err)

	claimed, err := repo.MarkReminded(ctx, id)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.MarkReminded(ctx, id)
	require.NoError(t, err)
	assert.False(t, claimed)

	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, rec.Reminded)

	claimed, err = repo.MarkReminded(ctx, id+100)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestConcurrentClaimsSucceedOnce(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	id, err := repo.CreateRecord(ctx, "s", "subject", model.CategoryUrgent)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.MarkReminded(ctx, id)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestStoreErrorsSurface(t *testing.T) {
	repo := newSQLiteRepo(t)
	require.NoError(t, repo.Close())

	_, err := repo.CreateRecord(context.Background(), "s", "subject", model.CategoryGeneral)
	require.Error(t, err)
	_, err = repo.ListUnreminded(context.Background())
	require.Error(t, err)
}
