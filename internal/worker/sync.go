package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"classroom-photo-sync/internal/logger"
	"classroom-photo-sync/internal/model"
	"classroom-photo-sync/internal/queue"
	"classroom-photo-sync/internal/sync"
	"classroom-photo-sync/pkg/errors"

	"github.com/rs/zerolog"
)

// Uploader runs one bulk upload for a teacher.
type Uploader interface {
	UploadSelected(ctx context.Context, teacherID string, photoIDs []int64) (*sync.Result, error)
}

type ResultSaver interface {
	Save(ctx context.Context, summary model.SyncSummary) error
}

type SyncWorker struct {
	uploader Uploader
	results  ResultSaver
	consumer *queue.Consumer
	now      func() time.Time
	log      zerolog.Logger
}

func NewSyncWorker(uploader Uploader, results ResultSaver, consumer *queue.Consumer) *SyncWorker {
	return &SyncWorker{
		uploader: uploader,
		results:  results,
		consumer: consumer,
		now:      time.Now,
		log:      logger.Get(),
	}
}

// Start blocks until ctx is cancelled. Jobs run one after another on the
// calling goroutine.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting sync worker")
	return w.consumer.ConsumeSyncQueue(ctx, w.handleMessage)
}

func (w *SyncWorker) handleMessage(ctx context.Context, data []byte) error {
	var job model.SyncJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal sync job")
		return err
	}
	if job.ID == "" {
		return fmt.Errorf("sync job without id")
	}

	// The summary of a job taken off the queue is stored even during shutdown.
	ctx = context.WithoutCancel(ctx)

	log := w.log.With().Str("job_id", job.ID).Str("teacher_id", job.TeacherID).Logger()
	log.Info().Int("photos", len(job.PhotoIDs)).Msg("Processing sync job")

	summary, runErr := w.run(ctx, job)
	summary.JobID = job.ID

	if err := w.results.Save(ctx, summary); err != nil {
		log.Error().Err(err).Msg("Failed to store sync summary")
		return err
	}

	log.Info().
		Str("status", summary.Status).
		Int("succeeded", summary.Succeeded).
		Int("attempted", summary.Attempted).
		Msg("Sync job finished")

	// Storage failures are worth a second look from the dead-letter queue.
	if stderrors.Is(runErr, errors.ErrStorage) {
		return runErr
	}
	return nil
}

func (w *SyncWorker) run(ctx context.Context, job model.SyncJob) (model.SyncSummary, error) {
	result, err := w.uploader.UploadSelected(ctx, job.TeacherID, job.PhotoIDs)
	if result == nil {
		return model.SyncSummary{
			Status:   model.SyncStatusFailed,
			Message:  errorMessage(err),
			Items:    []model.SyncItem{},
			Finished: w.now().UTC(),
		}, err
	}

	summary := result.Summary()
	if err != nil && !stderrors.Is(err, errors.ErrNothingUploaded) {
		summary.Message = err.Error()
	}
	return summary, err
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
