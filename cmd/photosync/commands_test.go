package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"classroom-photo-sync/internal/config"
	"classroom-photo-sync/internal/model"
	"classroom-photo-sync/internal/storage"
	"classroom-photo-sync/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUploader struct {
	fail map[string]bool
}

func (u stubUploader) Check() error {
	return nil
}

func (u stubUploader) Upload(ctx context.Context, payload []byte, org model.Org, teacherID string, sequence int) (*storage.Location, error) {
	if u.fail[string(payload)] {
		return nil, errors.NewUploadError(teacherID, stderrors.New("timeout"))
	}
	return &storage.Location{Key: string(payload)}, nil
}

func newTestApp(t *testing.T, uploader storage.Uploader) (*app, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, "photos.db")
	cfg.Photos.Dir = filepath.Join(dir, "photos")

	out := &bytes.Buffer{}
	return &app{
		cfg: cfg,
		out: out,
		newUploader: func(*config.Config) (storage.Uploader, error) {
			return uploader, nil
		},
	}, out
}

func run(a *app, args ...string) error {
	root := newRootCommand(a)
	root.SetArgs(args)
	return root.Execute()
}

func writeImage(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), content+".jpg")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRosterAndRequestCode(t *testing.T) {
	a, out := newTestApp(t, nil)

	require.NoError(t, run(a, "roster"))
	assert.Contains(t, out.String(), "Neha Kapoor")

	out.Reset()
	require.NoError(t, run(a, "request-code", "--mobile", "9000000005"))
	assert.Equal(t, "Your OTP is: 555555\n", out.String())

	assert.ErrorIs(t, run(a, "request-code", "--mobile", "1111111"), errors.ErrNotRegistered)
}

func TestMigrate(t *testing.T) {
	a, out := newTestApp(t, nil)
	require.NoError(t, run(a, "migrate"))
	require.NoError(t, run(a, "migrate"))
	assert.Contains(t, out.String(), "Database ready")
	assert.FileExists(t, a.cfg.Database.Path)
}

func TestCommandsRequireValidCode(t *testing.T) {
	a, _ := newTestApp(t, nil)
	assert.ErrorIs(t, run(a, "list", "--mobile", "9000000001", "--code", "000000"), errors.ErrInvalidCode)
	assert.Error(t, run(a, "list"))
}

func TestCaptureListUploadDelete(t *testing.T) {
	a, out := newTestApp(t, stubUploader{fail: map[string]bool{"bad": true}})
	login := []string{"--mobile", "9000000001", "--code", "111111"}

	require.NoError(t, run(a, append([]string{"capture", writeImage(t, "good"), "--captured-at", "1000"}, login...)...))
	require.NoError(t, run(a, append([]string{"capture", writeImage(t, "bad"), "--captured-at", "2000"}, login...)...))
	assert.Contains(t, out.String(), "Saved photo 1")

	out.Reset()
	require.NoError(t, run(a, append([]string{"upload", "--all-pending"}, login...)...))
	assert.Contains(t, out.String(), "#2 failed")
	assert.Contains(t, out.String(), "Successfully uploaded 1 out of 2 photos")

	out.Reset()
	require.NoError(t, run(a, append([]string{"list", "--pending"}, login...)...))
	assert.Contains(t, out.String(), "1_2000.jpg")
	assert.NotContains(t, out.String(), "1_1000.jpg")

	err := run(a, append([]string{"upload", "2"}, login...)...)
	assert.ErrorIs(t, err, errors.ErrNothingUploaded)
	assert.ErrorIs(t, run(a, append([]string{"upload"}, login...)...), errors.ErrNoSelection)

	out.Reset()
	require.NoError(t, run(a, append([]string{"delete", "1", "2", "7"}, login...)...))
	assert.Equal(t, "Deleted 2 photos\n", out.String())

	assert.Error(t, run(a, append([]string{"delete", "x"}, login...)...))
}

func TestUploadWithoutCredentials(t *testing.T) {
	a, _ := newTestApp(t, nil)
	a.newUploader = newS3Uploader
	login := []string{"--mobile", "9000000001", "--code", "111111"}

	require.NoError(t, run(a, append([]string{"capture", writeImage(t, "good")}, login...)...))

	err := run(a, append([]string{"upload", "1"}, login...)...)
	assert.ErrorIs(t, err, errors.ErrConfig)
}
