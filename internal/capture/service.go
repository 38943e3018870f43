package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"classroom-photo-sync/internal/db"
	"classroom-photo-sync/internal/logger"
	"classroom-photo-sync/internal/model"

	"github.com/rs/zerolog"
)

// Service keeps captured images in a local directory and records them as
// pending uploads.
type Service struct {
	repo db.Repository
	dir  string
	log  zerolog.Logger
}

func NewService(repo db.Repository, dir string) *Service {
	return &Service{
		repo: repo,
		dir:  dir,
		log:  logger.Get(),
	}
}

// Save writes src to "{teacherID}_{capturedAt}.jpg" under the photo directory
// and inserts an unuploaded record carrying the teacher's current org tags.
func (s *Service) Save(ctx context.Context, teacher model.Teacher, src io.Reader, capturedAt int64) (*model.CapturedPhoto, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photo dir: %w", err)
	}

	path, err := s.writeFile(teacher.ID, src, capturedAt)
	if err != nil {
		return nil, err
	}

	log := s.log.With().Str("teacher_id", teacher.ID).Str("file", path).Logger()

	id, err := s.repo.Insert(ctx, teacher.ID, teacher.Org(), path, capturedAt)
	if err != nil {
		log.Error().Err(err).Msg("Failed to record captured photo")
		if rmErr := os.Remove(path); rmErr != nil {
			log.Warn().Err(rmErr).Msg("Failed to remove orphaned photo file")
		}
		return nil, err
	}

	log.Info().Int64("photo_id", id).Msg("Photo captured and saved locally")

	return &model.CapturedPhoto{
		ID:         id,
		TeacherID:  teacher.ID,
		School:     teacher.School,
		Branch:     teacher.Branch,
		Class:      teacher.Class,
		FilePath:   path,
		CapturedAt: capturedAt,
	}, nil
}

func (s *Service) writeFile(teacherID string, src io.Reader, capturedAt int64) (string, error) {
	name := fmt.Sprintf("%s_%d.jpg", teacherID, capturedAt)
	path := filepath.Join(s.dir, name)

	// O_EXCL keeps two captures in the same millisecond from sharing a file.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	for i := 1; os.IsExist(err) && i < 100; i++ {
		path = filepath.Join(s.dir, fmt.Sprintf("%s_%d_%d.jpg", teacherID, capturedAt, i))
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", fmt.Errorf("create photo file: %w", err)
	}

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write photo file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close photo file: %w", err)
	}

	return path, nil
}
