package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/querymap/internal/testutil"
	"github.com/leapstack-labs/querymap/pkg/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(MemoryPath))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())
	return store
}

func sampleRun() *Run {
	return &Run{
		Source:         "queries.csv",
		Threshold:      0.8,
		Records:        4,
		FallbackRecs:   1,
		UnresolvedRefs: 2,
		Inventory: []inventory.Table{
			{Name: "Customers", Columns: []string{"customer_id", "id", "total"}},
			{Name: "Orders", Columns: []string{"customer_id", "id", "total"}},
			{Name: "Sales", Columns: []string{"col1", "col2", "col3"}},
		},
		Groups: []inventory.Group{
			{
				Members:       []string{"Customers", "Orders"},
				SharedColumns: []string{"customer_id", "id", "total"},
				Score:         "1.00",
			},
		},
	}
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(MemoryPath))
	assert.NoError(t, store.Close())

	// closing an unopened store is a no-op
	assert.NoError(t, NewSQLiteStore(nil).Close())
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// applying again is a no-op
	require.NoError(t, store.Migrate())

	for _, table := range []string{"runs", "run_tables", "run_groups"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s", table)
		_ = rows.Close()
	}
}

func TestSQLiteStore_Unopened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	assert.Error(t, store.Migrate())
	assert.Error(t, store.SaveRun(ctx, sampleRun()))
	_, err := store.ListRuns(ctx, 0)
	assert.Error(t, err)
	_, err = store.GetRun(ctx, "x")
	assert.Error(t, err)
}

func TestSQLiteStore_SaveAndGetRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := sampleRun()
	require.NoError(t, store.SaveRun(ctx, run))
	require.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())
	assert.Equal(t, 3, run.TableCount)
	assert.Equal(t, 1, run.GroupCount)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "queries.csv", got.Source)
	assert.InDelta(t, 0.8, got.Threshold, 1e-9)
	assert.Equal(t, 4, got.Records)
	assert.Equal(t, 1, got.FallbackRecs)
	assert.Equal(t, 2, got.UnresolvedRefs)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, run.Inventory, got.Inventory)
	assert.Equal(t, run.Groups, got.Groups)
}

func TestSQLiteStore_SaveRunWithoutGroups(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := &Run{ID: "fixed-id", Threshold: 1}
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Empty(t, got.Inventory)
	assert.Empty(t, got.Groups)
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, &Run{ID: "same"}))
	assert.Error(t, store.SaveRun(ctx, &Run{ID: "same"}))
}

func TestSQLiteStore_GetRunNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		run := sampleRun()
		run.ID = id
		run.CreatedAt = base.Add(time.Duration(i) * 1500 * time.Millisecond)
		require.NoError(t, store.SaveRun(ctx, run))
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "all", limit: 0, want: []string{"third", "second", "first"}},
		{name: "limited", limit: 2, want: []string{"third", "second"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := store.ListRuns(ctx, tt.limit)
			require.NoError(t, err)

			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
				assert.Nil(t, r.Inventory)
				assert.Equal(t, 3, r.TableCount)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSQLiteStore_SaveRunRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO run_tables").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	store := NewSQLiteStoreWithDB(db, nil)
	err = store.SaveRun(context.Background(), sampleRun())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_GetRunNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM runs WHERE id = ?").
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "source", "threshold", "records", "fallback_records",
			"unresolved_refs", "table_count", "group_count", "created_at",
		}))

	store := NewSQLiteStoreWithDB(db, nil)
	_, err = store.GetRun(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
