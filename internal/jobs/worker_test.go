package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) ImportCatalog(ctx context.Context, filePath string, opts importer.Options) (*importer.ImportResult, error) {
	args := m.Called(filePath, opts)
	result, _ := args.Get(0).(*importer.ImportResult)
	return result, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishImportCompleted(ctx context.Context, job *models.ImportJob) error {
	return m.Called(job.ID).Error(0)
}

func (m *mockPublisher) PublishImportFailed(ctx context.Context, job *models.ImportJob) error {
	return m.Called(job.ID).Error(0)
}

func newTestWorker(t *testing.T, runner Runner, cfg WorkerConfig) (*Worker, *Store) {
	t.Helper()
	s, _ := newTestStore(t)
	logger, _ := test.NewNullLogger()
	return NewWorker(s, runner, cfg, logger), s
}

func TestWorker_ProcessCompleted(t *testing.T) {
	dir := t.TempDir()
	upload := filepath.Join(dir, "job.csv")
	require.NoError(t, os.WriteFile(upload, []byte("name,price\n"), 0o644))

	runner := new(mockRunner)
	publisher := new(mockPublisher)
	w, s := newTestWorker(t, runner, WorkerConfig{Publisher: publisher, StorageDir: dir})

	job, err := s.Enqueue(context.Background(), upload, models.ImportFormatCSV, true)
	require.NoError(t, err)

	runner.On("ImportCatalog", upload, importer.Options{
		ReplaceExisting: true,
		Format:          models.ImportFormatCSV,
		JobID:           job.ID,
	}).Return(&importer.ImportResult{SuccessCount: 2, ErrorMessages: []string{}, Duplicates: []string{"Whey"}}, nil)
	publisher.On("PublishImportCompleted", job.ID).Return(nil)

	require.NoError(t, w.Process(context.Background(), job.ID))

	got, err := s.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusCompleted, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 2, got.Summary.SuccessCount)
	assert.Equal(t, 1, got.Summary.DuplicateCount)
	assert.Equal(t, "Imported 2 products (1 duplicates skipped, 0 errors)", got.Summary.Message)

	_, statErr := os.Stat(upload)
	assert.True(t, os.IsNotExist(statErr))
	runner.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestWorker_ProcessFailed(t *testing.T) {
	runner := new(mockRunner)
	publisher := new(mockPublisher)
	w, s := newTestWorker(t, runner, WorkerConfig{Publisher: publisher})

	job, err := s.Enqueue(context.Background(), "/outside/catalog.csv", "", false)
	require.NoError(t, err)

	accessErr := &importer.FileAccessError{Path: "/outside/catalog.csv", Err: importer.ErrFileNotFound}
	runner.On("ImportCatalog", "/outside/catalog.csv", mock.Anything).Return(nil, accessErr)
	publisher.On("PublishImportFailed", job.ID).Return(errors.New("nats down"))

	err = w.Process(context.Background(), job.ID)
	assert.ErrorIs(t, err, importer.ErrFileNotFound)

	got, err := s.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusFailed, got.Status)
	assert.Contains(t, got.Error, "file not found")
	assert.Nil(t, got.Summary)
	publisher.AssertExpectations(t)
}

func TestWorker_ProcessCancelledRequeues(t *testing.T) {
	runner := new(mockRunner)
	w, s := newTestWorker(t, runner, WorkerConfig{})

	job, err := s.Enqueue(context.Background(), "/data/catalog.csv", "", false)
	require.NoError(t, err)
	_, err = s.Next(context.Background(), 0)
	require.NoError(t, err)

	runner.On("ImportCatalog", "/data/catalog.csv", mock.Anything).
		Return(&importer.ImportResult{SuccessCount: 1}, context.Canceled)

	require.NoError(t, w.Process(context.Background(), job.ID))

	got, err := s.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusPending, got.Status)

	id, err := s.Next(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, job.ID, id)

	leased, err := s.AcquireLease(context.Background(), job.ID, time.Second)
	require.NoError(t, err)
	assert.True(t, leased, "requeued job must not stay leased")
}

func TestWorker_ProcessUnknownJob(t *testing.T) {
	w, _ := newTestWorker(t, new(mockRunner), WorkerConfig{})

	err := w.Process(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestWorker_ProcessHoldsLeaseWhileRunning(t *testing.T) {
	s, mr := newTestStore(t)
	logger, _ := test.NewNullLogger()
	runner := new(mockRunner)
	w := NewWorker(s, runner, WorkerConfig{}, logger)

	job, err := s.Enqueue(context.Background(), "/data/catalog.csv", models.ImportFormatCSV, false)
	require.NoError(t, err)

	runner.On("ImportCatalog", "/data/catalog.csv", mock.Anything).
		Run(func(mock.Arguments) {
			assert.True(t, mr.Exists("catalog_import:lease:"+job.ID))
		}).
		Return(&importer.ImportResult{SuccessCount: 1}, nil)

	require.NoError(t, w.Process(context.Background(), job.ID))
	assert.False(t, mr.Exists("catalog_import:lease:"+job.ID))
	runner.AssertExpectations(t)
}

func TestWorker_ProcessSkipsLeasedJob(t *testing.T) {
	runner := new(mockRunner)
	w, s := newTestWorker(t, runner, WorkerConfig{})

	job, err := s.Enqueue(context.Background(), "/data/catalog.csv", models.ImportFormatCSV, false)
	require.NoError(t, err)
	leased, err := s.AcquireLease(context.Background(), job.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, leased)

	require.NoError(t, w.Process(context.Background(), job.ID))

	got, err := s.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusPending, got.Status)
	runner.AssertNotCalled(t, "ImportCatalog", mock.Anything, mock.Anything)
}

func TestWorker_ProcessSkipsFinishedJob(t *testing.T) {
	runner := new(mockRunner)
	w, s := newTestWorker(t, runner, WorkerConfig{})

	job, err := s.Enqueue(context.Background(), "/data/catalog.csv", models.ImportFormatCSV, false)
	require.NoError(t, err)
	job.Status = models.ImportStatusCompleted
	require.NoError(t, s.Save(context.Background(), job))

	require.NoError(t, w.Process(context.Background(), job.ID))
	runner.AssertNotCalled(t, "ImportCatalog", mock.Anything, mock.Anything)
}

func TestWorker_RecoverStaleRequeuesOrphanedJob(t *testing.T) {
	w, s := newTestWorker(t, new(mockRunner), WorkerConfig{})
	ctx := context.Background()

	job, err := s.Enqueue(ctx, "/data/catalog.csv", models.ImportFormatCSV, false)
	require.NoError(t, err)
	_, err = s.Next(ctx, 0)
	require.NoError(t, err)
	job.Status = models.ImportStatusProcessing
	require.NoError(t, s.Save(ctx, job))

	w.recoverStale(ctx)

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusPending, got.Status)
	id, err := s.Next(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, job.ID, id)
}
