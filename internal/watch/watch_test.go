package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/querymap/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queries.csv")
	other := filepath.Join(dir, "other.csv")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- File(ctx, path, 20*time.Millisecond, testutil.NewTestLogger(t), func(context.Context) {
			calls.Add(1)
		})
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("b"), 0o600))
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestFile_MissingDirectory(t *testing.T) {
	err := File(context.Background(), filepath.Join(t.TempDir(), "nope", "queries.csv"), 0, nil, func(context.Context) {})
	assert.Error(t, err)
}
