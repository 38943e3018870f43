package sync

import (
	"context"
	"fmt"
	"os"
	"time"

	"classroom-photo-sync/internal/db"
	"classroom-photo-sync/internal/logger"
	"classroom-photo-sync/internal/model"
	"classroom-photo-sync/internal/storage"
	"classroom-photo-sync/pkg/errors"

	"github.com/rs/zerolog"
)

// Outcome is the result of one item in a bulk run: either a location or a
// cause, never both.
type Outcome struct {
	PhotoID  int64
	Sequence int
	Location *storage.Location
	Err      error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

type Result struct {
	Outcomes  []Outcome
	Attempted int
	Succeeded int
}

// SucceededIDs lists the photos whose upload was confirmed, in selection order.
func (r *Result) SucceededIDs() []int64 {
	var ids []int64
	for _, o := range r.Outcomes {
		if o.OK() {
			ids = append(ids, o.PhotoID)
		}
	}
	return ids
}

func (r *Result) Summary() model.SyncSummary {
	summary := model.SyncSummary{
		Attempted: r.Attempted,
		Succeeded: r.Succeeded,
		Items:     make([]model.SyncItem, 0, len(r.Outcomes)),
		Finished:  time.Now().UTC(),
	}

	switch {
	case r.Succeeded == 0:
		summary.Status = model.SyncStatusFailed
		summary.Message = errors.ErrNothingUploaded.Error()
	case r.Succeeded < r.Attempted:
		summary.Status = model.SyncStatusPartial
	default:
		summary.Status = model.SyncStatusCompleted
	}
	if r.Succeeded > 0 {
		summary.Message = UploadMessage(r.Succeeded, r.Attempted)
	}

	for _, o := range r.Outcomes {
		item := model.SyncItem{PhotoID: o.PhotoID, Sequence: o.Sequence}
		if o.Location != nil {
			item.Key = o.Location.Key
			item.Location = o.Location.URL
		}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		summary.Items = append(summary.Items, item)
	}
	return summary
}

func UploadMessage(succeeded, attempted int) string {
	return fmt.Sprintf("Successfully uploaded %d out of %d photos", succeeded, attempted)
}

type Service struct {
	repo     db.Repository
	uploader storage.Uploader
	readFile func(path string) ([]byte, error)
	log      zerolog.Logger
}

func NewService(repo db.Repository, uploader storage.Uploader) *Service {
	return &Service{
		repo:     repo,
		uploader: uploader,
		readFile: os.ReadFile,
		log:      logger.Get(),
	}
}

// UploadSelected uploads the selected photos of one teacher one at a time and
// flags the confirmed subset as uploaded in a single batch. A failing item is
// logged and recorded in its Outcome; it never stops the run. Once started the
// run covers the whole selection, even if ctx is cancelled.
func (s *Service) UploadSelected(ctx context.Context, teacherID string, photoIDs []int64) (*Result, error) {
	photoIDs = distinct(photoIDs)
	if len(photoIDs) == 0 {
		return nil, errors.ErrNoSelection
	}
	if err := s.uploader.Check(); err != nil {
		s.log.Error().Err(err).Str("teacher_id", teacherID).Msg("Upload target not configured")
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)

	log := s.log.With().Str("teacher_id", teacherID).Int("selected", len(photoIDs)).Logger()
	log.Info().Msg("Starting bulk upload")

	photos, err := s.repo.FindByIDs(ctx, teacherID, photoIDs)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load selected photos")
		return nil, err
	}

	byID := make(map[int64]model.CapturedPhoto, len(photos))
	for _, p := range photos {
		byID[p.ID] = p
	}

	result := &Result{Outcomes: make([]Outcome, 0, len(photoIDs))}
	for i, id := range photoIDs {
		// The counter advances on every attempt, successful or not.
		sequence := i + 1
		outcome := s.uploadOne(ctx, byID, id, sequence)
		if outcome.OK() {
			result.Succeeded++
		} else {
			log.Error().Err(outcome.Err).Int64("photo_id", id).Int("sequence", sequence).Msg("Photo upload failed, continuing")
		}
		result.Attempted++
		result.Outcomes = append(result.Outcomes, outcome)
	}

	uploaded := result.SucceededIDs()
	if len(uploaded) == 0 {
		log.Warn().Int("attempted", result.Attempted).Msg("No photos were uploaded")
		return result, errors.ErrNothingUploaded
	}

	if err := s.repo.MarkUploadedBatch(ctx, uploaded); err != nil {
		log.Error().Err(err).Msg("Failed to mark photos as uploaded")
		return result, err
	}

	log.Info().Int("succeeded", result.Succeeded).Int("attempted", result.Attempted).Msg("Bulk upload completed")
	return result, nil
}

// distinct drops repeated ids, keeping the first occurrence of each.
func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *Service) uploadOne(ctx context.Context, photos map[int64]model.CapturedPhoto, id int64, sequence int) Outcome {
	outcome := Outcome{PhotoID: id, Sequence: sequence}

	photo, ok := photos[id]
	if !ok {
		outcome.Err = errors.ErrPhotoNotFound
		return outcome
	}
	if photo.Uploaded {
		outcome.Err = errors.ErrAlreadyUploaded
		return outcome
	}

	payload, err := s.readFile(photo.FilePath)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	loc, err := s.uploader.Upload(ctx, payload, photo.Org(), photo.TeacherID, sequence)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	outcome.Location = loc
	return outcome
}
