package modindex

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_RecordAndLookup(t *testing.T) {
	ix, err := Open(MemoryPath)
	require.NoError(t, err)
	defer ix.Close()
	ctx := context.Background()

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	require.NoError(t, ix.Record(ctx, map[string]time.Time{"/lib/a.jar": t1, "/lib/b.jar": t1}))
	require.NoError(t, ix.Record(ctx, map[string]time.Time{"/lib/a.jar": t2}))
	require.NoError(t, ix.Record(ctx, nil))

	got, ok, err := ix.Lookup(ctx, "/lib/a.jar")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, t2.Equal(got), "latest record wins")

	_, ok, err = ix.Lookup(ctx, "/lib/missing.jar")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := ix.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "/lib/a.jar", all[0].File)
	assert.Equal(t, "/lib/b.jar", all[1].File)
	assert.True(t, t1.Equal(all[1].Modified))
}

func TestIndex_IsStale(t *testing.T) {
	ix, err := Open(MemoryPath)
	require.NoError(t, err)
	defer ix.Close()
	ctx := context.Background()

	recorded := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ix.Record(ctx, map[string]time.Time{"/lib/a.jar": recorded}))

	tests := []struct {
		name  string
		file  string
		mtime time.Time
		want  bool
	}{
		{"never recorded", "/lib/new.jar", recorded, true},
		{"unchanged", "/lib/a.jar", recorded, false},
		{"older", "/lib/a.jar", recorded.Add(-time.Minute), false},
		{"newer", "/lib/a.jar", recorded.Add(time.Nanosecond), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stale, err := ix.IsStale(ctx, tt.file, tt.mtime)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stale)
		})
	}
}

func TestIndex_OnDiskConcurrentWriters(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state", "index.db")
	ctx := context.Background()

	first, err := Open(dbPath)
	require.NoError(t, err)
	defer first.Close()
	second, err := Open(dbPath)
	require.NoError(t, err)
	defer second.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i, ix := range []*Index{first, second} {
		wg.Add(1)
		go func(i int, ix *Index) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				err := ix.Record(ctx, map[string]time.Time{
					filepath.Join("/lib", string(rune('a'+i)), string(rune('0'+j))): base.Add(time.Duration(j) * time.Second),
				})
				assert.NoError(t, err)
			}
		}(i, ix)
	}
	wg.Wait()

	all, err := first.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 20)
	assert.Equal(t, dbPath, first.Path())
}
