package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"physlib-backend/internal/domains/book/model"
	"physlib-backend/internal/domains/upload"
	"physlib-backend/internal/infrastructure/storagetest"
)

type fakeBookRepo struct {
	updateDraftErr   error
	updateDraftCalls int
	setCoverCalls    int
	lastCoverURL     *string
	book             *model.Book
}

func (f *fakeBookRepo) Create(ctx context.Context, book *model.Book) error { return nil }
func (f *fakeBookRepo) GetByID(ctx context.Context, id string) (*model.Book, error) {
	return f.book, nil
}
func (f *fakeBookRepo) GetBySlug(ctx context.Context, slug string) (*model.Book, error) {
	return f.book, nil
}
func (f *fakeBookRepo) List(ctx context.Context, filter *model.BookFilter) ([]model.Book, int, error) {
	return nil, 0, nil
}
func (f *fakeBookRepo) UpdateDraft(ctx context.Context, bookID string, draft *model.BookDraft, expectedUpdatedAt time.Time) (*model.Book, error) {
	f.updateDraftCalls++
	if f.updateDraftErr != nil {
		return nil, f.updateDraftErr
	}
	return f.book, nil
}
func (f *fakeBookRepo) SetCoverURL(ctx context.Context, bookID string, coverURL *string) error {
	f.setCoverCalls++
	f.lastCoverURL = coverURL
	return nil
}
func (f *fakeBookRepo) SoftDelete(ctx context.Context, bookID string, deletedAt time.Time) error {
	return nil
}
func (f *fakeBookRepo) IncrementViewCount(ctx context.Context, bookID string, delta int) error {
	return nil
}
func (f *fakeBookRepo) GenerateUniqueSlug(ctx context.Context, baseSlug string) (string, error) {
	return baseSlug, nil
}
func (f *fakeBookRepo) CheckISBNExistsExcept(ctx context.Context, isbn, excludeID string) (bool, error) {
	return false, nil
}
func (f *fakeBookRepo) ListMostViewed(ctx context.Context, limit int) ([]model.BookListItem, error) {
	return nil, nil
}
func (f *fakeBookRepo) ListAllForExport(ctx context.Context) ([]model.Book, error) {
	return nil, nil
}

type fakeImageRepo struct {
	maxOrder       int
	createBatchErr error

	createBatchCalls int
	inserted         []*model.BookImage
}

func (f *fakeImageRepo) CreateBatch(ctx context.Context, images []*model.BookImage) error {
	f.createBatchCalls++
	if f.createBatchErr != nil {
		return f.createBatchErr
	}
	f.inserted = append(f.inserted, images...)
	return nil
}
func (f *fakeImageRepo) GetByID(ctx context.Context, id string) (*model.BookImage, error) {
	return nil, model.ErrImageNotFound
}
func (f *fakeImageRepo) GetByBookID(ctx context.Context, bookID string) ([]*model.BookImage, error) {
	return nil, nil
}
func (f *fakeImageRepo) MaxDisplayOrder(ctx context.Context, bookID string) (int, error) {
	return f.maxOrder, nil
}
func (f *fakeImageRepo) UnsetAllCovers(ctx context.Context, bookID string) error { return nil }
func (f *fakeImageRepo) SetCover(ctx context.Context, imageID string) error      { return nil }
func (f *fakeImageRepo) UpdateAltText(ctx context.Context, imageID string, altText *string) error {
	return nil
}
func (f *fakeImageRepo) UpdateVariants(ctx context.Context, imageID string, medium, thumbnail string) error {
	return nil
}
func (f *fakeImageRepo) UpdateStatus(ctx context.Context, imageID, status, errorMsg string) error {
	return nil
}
func (f *fakeImageRepo) Delete(ctx context.Context, imageID string) error        { return nil }
func (f *fakeImageRepo) DeleteByBookID(ctx context.Context, bookID string) error { return nil }

type fakeLinkRepo struct {
	deleteErr error
	insertErr error

	deleteCalls int
	insertCalls int
	lastLinks   []string
}

func (f *fakeLinkRepo) DeleteByBookID(ctx context.Context, bookID string) error {
	f.deleteCalls++
	return f.deleteErr
}
func (f *fakeLinkRepo) InsertLinks(ctx context.Context, bookID string, categoryIDs []string) error {
	f.insertCalls++
	if f.insertErr != nil {
		return f.insertErr
	}
	f.lastLinks = categoryIDs
	return nil
}
func (f *fakeLinkRepo) ListByBookID(ctx context.Context, bookID string) ([]model.CategorySummary, error) {
	return nil, nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type coordinatorFixture struct {
	coordinator *SaveCoordinator
	stage       *storagetest.FakeStage
	bookRepo    *fakeBookRepo
	imageRepo   *fakeImageRepo
	linkRepo    *fakeLinkRepo
	enqueuer    *fakeEnqueuer
	bookID      uuid.UUID
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()

	bookID := uuid.New()
	f := &coordinatorFixture{
		stage:     storagetest.NewFakeStage(),
		bookRepo:  &fakeBookRepo{book: &model.Book{ID: bookID}},
		imageRepo: &fakeImageRepo{maxOrder: -1},
		linkRepo:  &fakeLinkRepo{},
		enqueuer:  &fakeEnqueuer{},
		bookID:    bookID,
	}
	f.coordinator = NewSaveCoordinator(f.stage, f.bookRepo, f.imageRepo, f.linkRepo, f.enqueuer)
	return f
}

// stageImage puts a temp object into the fake stage and returns a ready
// staged image pointing at it.
func (f *coordinatorFixture) stageImage(t *testing.T, id, name string, isCover bool) upload.StagedImage {
	t.Helper()

	tempPath := "temp/temp_" + f.bookID.String() + "_1700000000000_abc123_" + name
	err := f.stage.Upload(context.Background(), tempPath, []byte("img"), "image/jpeg")
	require.NoError(t, err)

	return upload.StagedImage{
		ID:             id,
		FileName:       name,
		Size:           3,
		MIMEType:       "image/jpeg",
		IsCover:        isCover,
		State:          upload.StateUploaded,
		RemoteTempPath: tempPath,
	}
}

func testDraft() *model.BookDraft {
	return &model.BookDraft{
		Title:             "Classical Mechanics",
		ExpectedUpdatedAt: time.Now(),
	}
}

func TestSaveCoordinator_SaveHappyPath(t *testing.T) {
	f := newCoordinatorFixture(t)
	ready := []upload.StagedImage{
		f.stageImage(t, "img-1", "front.jpg", true),
		f.stageImage(t, "img-2", "back.jpg", false),
	}

	result, err := f.coordinator.Save(context.Background(), f.bookID.String(), testDraft(), ready, []string{"cat-1"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ImagesProcessed)
	assert.Equal(t, []string{"img-1", "img-2"}, result.RelocatedIDs)

	// Temp objects were moved under the book's permanent prefix.
	assert.Empty(t, f.stage.Keys("temp/"))
	assert.Len(t, f.stage.Keys(f.bookID.String()+"/"), 2)

	require.Len(t, f.imageRepo.inserted, 2)
	assert.Equal(t, 0, f.imageRepo.inserted[0].DisplayOrder)
	assert.Equal(t, 1, f.imageRepo.inserted[1].DisplayOrder)
	assert.True(t, f.imageRepo.inserted[0].IsCover)

	assert.Equal(t, 1, f.bookRepo.setCoverCalls)
	require.NotNil(t, f.bookRepo.lastCoverURL)

	assert.Equal(t, 1, f.linkRepo.deleteCalls)
	assert.Equal(t, 1, f.linkRepo.insertCalls)
	assert.Equal(t, []string{"cat-1"}, f.linkRepo.lastLinks)

	assert.Len(t, f.enqueuer.tasks, 2)
}

func TestSaveCoordinator_DisplayOrderContinuesAfterExisting(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.imageRepo.maxOrder = 4
	ready := []upload.StagedImage{
		f.stageImage(t, "img-1", "a.jpg", false),
		f.stageImage(t, "img-2", "b.jpg", false),
	}

	_, err := f.coordinator.Save(context.Background(), f.bookID.String(), testDraft(), ready, nil)
	require.NoError(t, err)

	require.Len(t, f.imageRepo.inserted, 2)
	assert.Equal(t, 5, f.imageRepo.inserted[0].DisplayOrder)
	assert.Equal(t, 6, f.imageRepo.inserted[1].DisplayOrder)
}

func TestSaveCoordinator_MoveFailureDropsImageOnly(t *testing.T) {
	f := newCoordinatorFixture(t)
	ready := []upload.StagedImage{
		f.stageImage(t, "img-1", "a.jpg", true),
		f.stageImage(t, "img-2", "b.jpg", false),
	}
	f.stage.FailMove(ready[0].RemoteTempPath)

	result, err := f.coordinator.Save(context.Background(), f.bookID.String(), testDraft(), ready, nil)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ImagesProcessed)
	assert.Equal(t, []string{"img-2"}, result.RelocatedIDs)
	require.Len(t, f.imageRepo.inserted, 1)
	assert.False(t, f.imageRepo.inserted[0].IsCover)
	// The dropped image's temp object stays behind for the sweep.
	assert.True(t, f.stage.Has(ready[0].RemoteTempPath))
}

func TestSaveCoordinator_BookUpdateFailureShortCircuits(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.bookRepo.updateDraftErr = model.ErrBookConflict
	ready := []upload.StagedImage{f.stageImage(t, "img-1", "a.jpg", true)}

	result, err := f.coordinator.Save(context.Background(), f.bookID.String(), testDraft(), ready, []string{"cat-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrBookConflict))
	assert.Nil(t, result)

	// Relocation already happened, nothing after step 2 ran.
	assert.Equal(t, 1, f.stage.MoveCalls)
	assert.Equal(t, 0, f.imageRepo.createBatchCalls)
	assert.Equal(t, 0, f.linkRepo.deleteCalls)
	assert.Equal(t, 0, f.linkRepo.insertCalls)
	assert.Empty(t, f.enqueuer.tasks)
}

func TestSaveCoordinator_ImageInsertFailureIsFatal(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.imageRepo.createBatchErr = errors.New("insert exploded")
	ready := []upload.StagedImage{f.stageImage(t, "img-1", "a.jpg", true)}

	_, err := f.coordinator.Save(context.Background(), f.bookID.String(), testDraft(), ready, []string{"cat-1"})
	require.Error(t, err)

	// The book row was already updated; category links never ran.
	assert.Equal(t, 1, f.bookRepo.updateDraftCalls)
	assert.Equal(t, 0, f.linkRepo.deleteCalls)
}

func TestSaveCoordinator_CategoryFailureIsSwallowed(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.linkRepo.deleteErr = errors.New("delete exploded")

	result, err := f.coordinator.Save(context.Background(), f.bookID.String(), testDraft(), nil, []string{"cat-1"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, f.linkRepo.deleteCalls)
	// Insert is skipped once the delete failed.
	assert.Equal(t, 0, f.linkRepo.insertCalls)
}

func TestSaveCoordinator_EmptyCategorySetOnlyDeletes(t *testing.T) {
	f := newCoordinatorFixture(t)

	result, err := f.coordinator.Save(context.Background(), f.bookID.String(), testDraft(), nil, nil)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, f.linkRepo.deleteCalls)
	assert.Equal(t, 0, f.linkRepo.insertCalls)
}

func TestSaveCoordinator_NoImagesSkipsImageStep(t *testing.T) {
	f := newCoordinatorFixture(t)

	result, err := f.coordinator.Save(context.Background(), f.bookID.String(), testDraft(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.ImagesProcessed)
	assert.Equal(t, 0, f.imageRepo.createBatchCalls)
	assert.Equal(t, 0, f.bookRepo.setCoverCalls)
	assert.Empty(t, f.enqueuer.tasks)
}
