package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/prompter/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func sampleTake(id string, size int, ended time.Time) model.Take {
	return model.Take{
		ID:           id,
		Mode:         model.ModeRecord,
		StartedAt:    ended.Add(-30 * time.Second),
		EndedAt:      ended,
		Elapsed:      30,
		NearLimit:    size > 2,
		LimitReached: false,
		FontSize:     24,
		Speed:        4.5,
		Excerpt:      "line one\nline two",
		ClipID:       "clip-" + id,
		ClipMIME:     "video/webm",
		ClipExt:      ".webm",
		ClipSize:     size,
	}
}

func TestInsertAndListTakes(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.InsertTake(ctx, sampleTake("a", 3, base), []byte("abc")))
	failed := sampleTake("b", 0, base.Add(time.Minute))
	failed.ClipErr = "clip encoding failed"
	require.NoError(t, st.InsertTake(ctx, failed, nil))

	takes, err := st.ListTakes(ctx)
	require.NoError(t, err)
	require.Len(t, takes, 2)
	assert.Equal(t, sampleTake("a", 3, base), takes[0])
	assert.Equal(t, "b", takes[1].ID)
	assert.Equal(t, "clip encoding failed", takes[1].ClipErr)
	assert.False(t, takes[1].HasClip())
}

func TestLatestTakeSkipsTakesWithoutClip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

	_, err := st.LatestTake(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.InsertTake(ctx, sampleTake("a", 3, base), []byte("abc")))
	require.NoError(t, st.InsertTake(ctx, sampleTake("b", 0, base.Add(time.Minute)), nil))

	latest, err := st.LatestTake(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", latest.ID)

	data, err := st.ClipData(ctx, latest.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	_, err = st.ClipData(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetExportPath(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.InsertTake(ctx, sampleTake("a", 3, time.Now().UTC()), []byte("abc")))

	require.NoError(t, st.SetExportPath(ctx, "a", "/tmp/video.webm"))
	takes, err := st.ListTakes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/video.webm", takes[0].ExportPath)

	assert.ErrorIs(t, st.SetExportPath(ctx, "missing", "x"), ErrNotFound)
}

func TestDuplicateTakeRollsBack(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	take := sampleTake("a", 3, time.Now().UTC())
	require.NoError(t, st.InsertTake(ctx, take, []byte("abc")))
	require.Error(t, st.InsertTake(ctx, take, []byte("abc")))

	takes, err := st.ListTakes(ctx)
	require.NoError(t, err)
	assert.Len(t, takes, 1)
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "takes.db")
	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.InsertTake(context.Background(), sampleTake("a", 1, time.Now().UTC()), []byte("x")))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	takes, err := st.ListTakes(context.Background())
	require.NoError(t, err)
	assert.Len(t, takes, 1)
}
