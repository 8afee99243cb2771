package job

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"physlib-backend/internal/infrastructure/cachetest"
	"physlib-backend/internal/infrastructure/storagetest"
)

func tempKey(bookID string, age time.Duration) string {
	stagedAt := time.Now().Add(-age).UnixMilli()
	return fmt.Sprintf("temp/temp_%s_%d_abc123_cover.jpg", bookID, stagedAt)
}

func TestParseTempObjectKey(t *testing.T) {
	key := tempKey("book-1", 0)
	bookID, stagedAt, ok := parseTempObjectKey(key)
	require.True(t, ok)
	assert.Equal(t, "book-1", bookID)
	assert.WithinDuration(t, time.Now(), stagedAt, time.Second)

	_, _, ok = parseTempObjectKey("temp/random-object")
	assert.False(t, ok)
	_, _, ok = parseTempObjectKey("temp/temp_book_notanumber_x_y.jpg")
	assert.False(t, ok)
}

func TestSweepTempObjects_RemovesOrphans(t *testing.T) {
	stage := storagetest.NewFakeStage()
	cacheClient := cachetest.NewFakeCache()
	handler := NewSweepTempObjectsHandler(stage, cacheClient, 30*time.Minute)
	ctx := context.Background()

	orphan := tempKey("book-dead", time.Hour)
	recent := tempKey("book-new", time.Minute)
	live := tempKey("book-live", time.Hour)

	for _, key := range []string{orphan, recent, live} {
		require.NoError(t, stage.Upload(ctx, key, []byte("x"), "image/jpeg"))
	}
	// book-live has an open session in the activity index.
	require.NoError(t, cacheClient.Set(ctx, "upload:session:sess-1", "book-live", time.Hour))

	require.NoError(t, handler.ProcessTask(ctx, nil))

	assert.False(t, stage.Has(orphan), "old object without a session should be swept")
	assert.True(t, stage.Has(recent), "recent object should survive")
	assert.True(t, stage.Has(live), "object for a live session should survive")
}

func TestSweepTempObjects_IgnoresPermanentObjects(t *testing.T) {
	stage := storagetest.NewFakeStage()
	handler := NewSweepTempObjectsHandler(stage, cachetest.NewFakeCache(), 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, stage.Upload(ctx, "book-1/1700000000000_abc123.jpg", []byte("x"), "image/jpeg"))
	require.NoError(t, handler.ProcessTask(ctx, nil))

	assert.True(t, stage.Has("book-1/1700000000000_abc123.jpg"))
}
