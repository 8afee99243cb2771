package upload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"physlib-backend/internal/config"
	"physlib-backend/internal/infrastructure/storage"
	"physlib-backend/internal/infrastructure/storagetest"
)

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxFileSizeBytes: 5 * 1024 * 1024,
		MaxRetries:       3,
		RetryBaseDelay:   time.Millisecond,
		SessionIdleTTL:   30 * time.Minute,
	}
}

func newTestSession(t *testing.T, hasExistingCover bool) (*Session, *storagetest.FakeStage) {
	t.Helper()

	stage := storagetest.NewFakeStage()
	processor := storage.NewImageProcessor(testUploadConfig().MaxFileSizeBytes)
	session := NewSession("sess-1", "book-1", hasExistingCover, testUploadConfig(), stage, processor)
	return session, stage
}

func jpegFile(name string, size int) FileInput {
	return FileInput{
		Name:        name,
		ContentType: "image/jpeg",
		Data:        make([]byte, size),
	}
}

func TestSession_AcceptFiles_StagesUploads(t *testing.T) {
	session, stage := newTestSession(t, false)

	accepted, rejected := session.AcceptFiles([]FileInput{
		jpegFile("front.jpg", 100),
		jpegFile("back.jpg", 200),
	})
	require.Len(t, accepted, 2)
	require.Empty(t, rejected)

	session.Wait()

	images := session.Images()
	require.Len(t, images, 2)
	for _, img := range images {
		assert.Equal(t, StateUploaded, img.State)
		assert.Equal(t, 100, img.ProgressPercent)
		assert.NotEmpty(t, img.RemoteTempPath)
		assert.True(t, stage.Has(img.RemoteTempPath))
	}
	assert.Len(t, stage.Keys("temp/"), 2)
}

func TestSession_AcceptFiles_RejectsInvalidFiles(t *testing.T) {
	session, _ := newTestSession(t, false)

	accepted, rejected := session.AcceptFiles([]FileInput{
		{Name: "notes.pdf", ContentType: "application/pdf", Data: make([]byte, 100)},
		jpegFile("huge.jpg", 6*1024*1024),
		jpegFile("ok.jpg", 100),
	})
	session.Wait()

	require.Len(t, accepted, 1)
	require.Len(t, rejected, 2)
	assert.Equal(t, "notes.pdf", rejected[0].FileName)
	assert.Equal(t, "huge.jpg", rejected[1].FileName)
	assert.Contains(t, rejected[1].Reason, "5MB")
}

func TestSession_FirstAcceptedImageBecomesCover(t *testing.T) {
	session, _ := newTestSession(t, false)

	accepted, _ := session.AcceptFiles([]FileInput{
		jpegFile("a.jpg", 10),
		jpegFile("b.jpg", 10),
	})
	session.Wait()

	images := session.Images()
	require.Len(t, images, 2)
	assert.True(t, images[0].IsCover)
	assert.False(t, images[1].IsCover)
	assert.Equal(t, accepted[0], images[0].ID)
}

func TestSession_NoCoverStealWhenBookHasCover(t *testing.T) {
	session, _ := newTestSession(t, true)

	session.AcceptFiles([]FileInput{jpegFile("a.jpg", 10)})
	session.Wait()

	images := session.Images()
	require.Len(t, images, 1)
	assert.False(t, images[0].IsCover)
}

func TestSession_UploadFailsAfterRetriesExhausted(t *testing.T) {
	session, stage := newTestSession(t, false)
	stage.FailUploads(10)

	accepted, _ := session.AcceptFiles([]FileInput{jpegFile("a.jpg", 10)})
	require.Len(t, accepted, 1)
	session.Wait()

	images := session.Images()
	require.Len(t, images, 1)
	assert.Equal(t, StateFailed, images[0].State)
	assert.Equal(t, 3, images[0].RetryCount)
	assert.Equal(t, 0, images[0].ProgressPercent)
	assert.Contains(t, images[0].ErrorMessage, "4 attempts")

	// One initial attempt plus three retries, no more.
	assert.Equal(t, 4, stage.UploadCalls)
}

func TestSession_UploadRecoversOnRetry(t *testing.T) {
	session, stage := newTestSession(t, false)
	stage.FailUploads(2)

	session.AcceptFiles([]FileInput{jpegFile("a.jpg", 10)})
	session.Wait()

	images := session.Images()
	require.Len(t, images, 1)
	assert.Equal(t, StateUploaded, images[0].State)
	assert.Equal(t, 2, images[0].RetryCount)
	assert.Equal(t, 3, stage.UploadCalls)
}

func TestSession_RetryDetectsLostAcknowledgement(t *testing.T) {
	session, stage := newTestSession(t, false)
	stage.LoseUploadAcks(1)

	session.AcceptFiles([]FileInput{jpegFile("a.jpg", 10)})
	session.Wait()

	images := session.Images()
	require.Len(t, images, 1)
	assert.Equal(t, StateUploaded, images[0].State)

	// The retry probed storage, found the object from the first attempt
	// and did not upload a duplicate.
	assert.Equal(t, 1, stage.UploadCalls)
	assert.GreaterOrEqual(t, stage.ListCalls, 1)
	assert.Len(t, stage.Keys("temp/"), 1)
}

func TestSession_CancelInFlightUpload(t *testing.T) {
	session, stage := newTestSession(t, false)
	stage.FailUploads(1)
	// Park the retry backoff until the context is cancelled so the
	// upload stays observably in flight.
	parked := make(chan struct{})
	session.sleep = func(ctx context.Context, d time.Duration) error {
		close(parked)
		<-ctx.Done()
		return ctx.Err()
	}

	accepted, _ := session.AcceptFiles([]FileInput{jpegFile("a.jpg", 10)})
	require.Len(t, accepted, 1)
	<-parked
	require.True(t, session.Uploading())

	err := session.CancelUpload(accepted[0])
	require.NoError(t, err)
	session.Wait()

	assert.Empty(t, session.Images())
	assert.False(t, session.Uploading())
	assert.Equal(t, 1, stage.UploadCalls)
	assert.Empty(t, stage.Keys("temp/"))
}

func TestSession_CancelUnknownImage(t *testing.T) {
	session, _ := newTestSession(t, false)
	err := session.CancelUpload("nope")
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestSession_RemoveImageDeletesTempObject(t *testing.T) {
	session, stage := newTestSession(t, false)

	accepted, _ := session.AcceptFiles([]FileInput{jpegFile("a.jpg", 10)})
	session.Wait()
	require.Len(t, stage.Keys("temp/"), 1)

	err := session.RemoveImage(context.Background(), accepted[0])
	require.NoError(t, err)

	assert.Empty(t, session.Images())
	assert.Empty(t, stage.Keys("temp/"))
}

func TestSession_RemoveImageSurvivesStorageFailure(t *testing.T) {
	session, stage := newTestSession(t, false)

	accepted, _ := session.AcceptFiles([]FileInput{jpegFile("a.jpg", 10)})
	session.Wait()

	stage.FailRemoves(true)
	err := session.RemoveImage(context.Background(), accepted[0])
	require.NoError(t, err)
	assert.Empty(t, session.Images())
}

func TestSession_RemovingCoverPromotesNextImage(t *testing.T) {
	session, _ := newTestSession(t, false)

	accepted, _ := session.AcceptFiles([]FileInput{
		jpegFile("a.jpg", 10),
		jpegFile("b.jpg", 10),
		jpegFile("c.jpg", 10),
	})
	session.Wait()

	err := session.RemoveImage(context.Background(), accepted[0])
	require.NoError(t, err)

	images := session.Images()
	require.Len(t, images, 2)
	assert.True(t, images[0].IsCover)
	assert.False(t, images[1].IsCover)
}

func TestSession_SetCoverIsExclusive(t *testing.T) {
	session, _ := newTestSession(t, false)

	accepted, _ := session.AcceptFiles([]FileInput{
		jpegFile("a.jpg", 10),
		jpegFile("b.jpg", 10),
	})
	session.Wait()

	unsetExisting, err := session.SetCover(accepted[1])
	require.NoError(t, err)
	assert.True(t, unsetExisting)

	images := session.Images()
	var covers int
	for _, img := range images {
		if img.IsCover {
			covers++
			assert.Equal(t, accepted[1], img.ID)
		}
	}
	assert.Equal(t, 1, covers)
}

func TestSession_FinalizeReturnsOnlyUploadedImages(t *testing.T) {
	session, stage := newTestSession(t, false)

	// First file exhausts its retries, second succeeds.
	stage.FailUploads(4)
	session.AcceptFiles([]FileInput{jpegFile("bad.jpg", 10)})
	session.Wait()

	accepted, _ := session.AcceptFiles([]FileInput{jpegFile("good.jpg", 10)})
	session.Wait()

	ready := session.Finalize()
	require.Len(t, ready, 1)
	assert.Equal(t, accepted[0], ready[0].ID)
	assert.Equal(t, StateUploaded, ready[0].State)

	// The failed image stays visible in the session state.
	assert.Len(t, session.Images(), 2)
}

func TestSession_CloseSweepsUnrelocatedTempObjects(t *testing.T) {
	session, stage := newTestSession(t, false)

	session.AcceptFiles([]FileInput{
		jpegFile("a.jpg", 10),
		jpegFile("b.jpg", 10),
	})
	session.Wait()
	require.Len(t, stage.Keys("temp/"), 2)

	session.Close(context.Background())
	assert.Empty(t, stage.Keys("temp/"))
}

func TestSession_MarkRelocatedSkipsSweep(t *testing.T) {
	session, stage := newTestSession(t, false)

	accepted, _ := session.AcceptFiles([]FileInput{
		jpegFile("a.jpg", 10),
		jpegFile("b.jpg", 10),
	})
	session.Wait()

	// Pretend the save step moved the first image to permanent storage.
	session.MarkRelocated(accepted[:1])
	session.Close(context.Background())

	images := session.Images()
	require.Len(t, images, 2)
	assert.True(t, stage.Has(images[0].RemoteTempPath))
	assert.False(t, stage.Has(images[1].RemoteTempPath))
}

func TestSession_AcceptFilesAfterClose(t *testing.T) {
	session, _ := newTestSession(t, false)
	session.Close(context.Background())

	accepted, rejected := session.AcceptFiles([]FileInput{jpegFile("a.jpg", 10)})
	assert.Empty(t, accepted)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].Reason, "closed")
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	session, stage := newTestSession(t, false)

	session.AcceptFiles([]FileInput{jpegFile("a.jpg", 10)})
	session.Wait()

	session.Close(context.Background())
	removeCalls := stage.RemoveCalls
	session.Close(context.Background())
	assert.Equal(t, removeCalls, stage.RemoveCalls)
}
