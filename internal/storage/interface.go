package storage

import (
	"context"

	"classroom-photo-sync/internal/model"
)

// Location describes where an uploaded photo landed.
type Location struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	URL    string `json:"url"`
	ETag   string `json:"etag,omitempty"`
}

// Uploader puts one photo payload under its deterministic key. A sequence
// of zero means a single upload; positive values mark a position in a bulk run.
// Check reports unusable settings without doing any I/O.
type Uploader interface {
	Check() error
	Upload(ctx context.Context, payload []byte, org model.Org, teacherID string, sequence int) (*Location, error)
}
