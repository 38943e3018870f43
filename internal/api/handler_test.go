package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"classroom-photo-sync/internal/auth"
	"classroom-photo-sync/internal/capture"
	"classroom-photo-sync/internal/config"
	"classroom-photo-sync/internal/db"
	"classroom-photo-sync/internal/model"
	"classroom-photo-sync/internal/roster"
	"classroom-photo-sync/internal/storage"
	"classroom-photo-sync/internal/sync"
	"classroom-photo-sync/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.UnixMilli(1_700_000_000_000)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

type recordingUploader struct {
	failOn   map[string]bool
	keys     []string
	checkErr error
}

func (u *recordingUploader) Check() error {
	return u.checkErr
}

func (u *recordingUploader) Upload(ctx context.Context, payload []byte, org model.Org, teacherID string, sequence int) (*storage.Location, error) {
	if u.failOn[string(payload)] {
		return nil, errors.NewUploadError(org.School, stderrors.New("connection reset"))
	}
	key := storage.ObjectKey(org, teacherID, testNow, sequence)
	u.keys = append(u.keys, key)
	return &storage.Location{Key: key, URL: "https://bucket.example/" + key}, nil
}

type memJobs struct {
	jobs []model.SyncJob
}

func (m *memJobs) EnqueueSyncJob(ctx context.Context, job model.SyncJob) (model.SyncJob, error) {
	job.ID = "job-1"
	m.jobs = append(m.jobs, job)
	return job, nil
}

type memResults struct {
	byID map[string]model.SyncSummary
}

func (m *memResults) Save(ctx context.Context, summary model.SyncSummary) error {
	m.byID[summary.JobID] = summary
	return nil
}

func (m *memResults) Get(ctx context.Context, jobID string) (*model.SyncSummary, error) {
	s, ok := m.byID[jobID]
	if !ok {
		return nil, errors.ErrJobNotFound
	}
	return &s, nil
}

type testServer struct {
	router   *gin.Engine
	repo     db.Repository
	uploader *recordingUploader
	jobs     *memJobs
	results  *memResults
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	dir := t.TempDir()

	cfg := config.Default()
	repo := db.NewRepository(filepath.Join(dir, "photos.db"))
	require.NoError(t, repo.EnsureSchema(ctx))

	r, err := roster.Load(ctx, "")
	require.NoError(t, err)

	uploader := &recordingUploader{failOn: map[string]bool{}}
	jobs := &memJobs{}
	results := &memResults{byID: map[string]model.SyncSummary{}}

	h := NewHandler(cfg, auth.NewAuthenticator(r), repo,
		capture.NewService(repo, filepath.Join(dir, "photos")),
		sync.NewService(repo, uploader), jobs, results)

	router := gin.New()
	SetupRoutes(router, h)
	return &testServer{router: router, repo: repo, uploader: uploader, jobs: jobs, results: results}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, mobile, otp string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{Mobile: mobile, OTP: otp})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (s *testServer) capture(t *testing.T, content, contentType, capturedAt string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="photo"; filename="shot.jpg"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	if capturedAt != "" {
		require.NoError(t, mw.WriteField("captured_at", capturedAt))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestRequestCode(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/request-code", model.RequestCodeRequest{Mobile: "9000000003"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.RequestCodeResponse
	decode(t, w, &resp)
	assert.Equal(t, "333333", resp.OTP)

	w = s.do(t, http.MethodPost, "/api/v1/auth/request-code", model.RequestCodeRequest{Mobile: "1234567"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginLogoutAndGuard(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/photos", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/auth/me", nil).Code)

	w := s.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{Mobile: "9000000001", OTP: "222222"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s.login(t, "9000000001", "111111")
	w = s.do(t, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Aarav Sharma")
	assert.NotContains(t, w.Body.String(), "111111")

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/auth/logout", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/auth/logout", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/photos", nil).Code)
}

func TestCaptureListAndStats(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "9000000001", "111111")

	w := s.capture(t, "first", "image/jpeg", "1000")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first model.CapturedPhoto
	decode(t, w, &first)
	assert.Equal(t, "Greenwood High", first.School)
	assert.Equal(t, int64(1000), first.CapturedAt)

	require.Equal(t, http.StatusCreated, s.capture(t, "second", "image/jpeg", "2000").Code)
	assert.Equal(t, http.StatusBadRequest, s.capture(t, "text", "text/plain", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.capture(t, "x", "image/jpeg", "soon").Code)

	w = s.do(t, http.MethodPost, "/api/v1/photos/"+itoa(first.ID)+"/uploaded", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Photos []model.CapturedPhoto `json:"photos"`
		Count  int                   `json:"count"`
	}
	decode(t, s.do(t, http.MethodGet, "/api/v1/photos?pending=true", nil), &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, int64(2000), list.Photos[0].CapturedAt)

	decode(t, s.do(t, http.MethodGet, "/api/v1/photos", nil), &list)
	assert.Equal(t, 2, list.Count)

	var counts model.PhotoCounts
	decode(t, s.do(t, http.MethodGet, "/api/v1/photos/stats", nil), &counts)
	assert.Equal(t, model.PhotoCounts{Total: 2, Uploaded: 1, Pending: 1}, counts)
}

func TestPhotosAreScopedToTeacher(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "9000000001", "111111")

	var photo model.CapturedPhoto
	decode(t, s.capture(t, "mine", "image/jpeg", "1"), &photo)

	s.login(t, "9000000002", "222222")
	var list struct {
		Count int `json:"count"`
	}
	decode(t, s.do(t, http.MethodGet, "/api/v1/photos", nil), &list)
	assert.Zero(t, list.Count)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/v1/photos/"+itoa(photo.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/v1/photos/"+itoa(photo.ID)+"/uploaded", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/api/v1/photos/abc", nil).Code)

	_, err := s.repo.Get(context.Background(), photo.ID)
	assert.NoError(t, err)
}

func TestDeletePhotos(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "9000000001", "111111")

	var a, b model.CapturedPhoto
	decode(t, s.capture(t, "a", "image/jpeg", "1"), &a)
	decode(t, s.capture(t, "b", "image/jpeg", "2"), &b)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/photos/delete", model.PhotoIDsRequest{}).Code)

	w := s.do(t, http.MethodPost, "/api/v1/photos/delete", model.PhotoIDsRequest{PhotoIDs: []int64{a.ID, 999}})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Deleted []int64 `json:"deleted"`
	}
	decode(t, w, &resp)
	assert.Equal(t, []int64{a.ID}, resp.Deleted)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/v1/photos/"+itoa(b.ID), nil).Code)

	all, err := s.repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUploadPhotos(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "9000000001", "111111")

	var a, b, c model.CapturedPhoto
	decode(t, s.capture(t, "A", "image/jpeg", "1"), &a)
	decode(t, s.capture(t, "B", "image/jpeg", "2"), &b)
	decode(t, s.capture(t, "C", "image/jpeg", "3"), &c)
	s.uploader.failOn["B"] = true

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/sync/upload", model.PhotoIDsRequest{}).Code)

	w := s.do(t, http.MethodPost, "/api/v1/sync/upload", model.PhotoIDsRequest{PhotoIDs: []int64{a.ID, b.ID, c.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary model.SyncSummary
	decode(t, w, &summary)
	assert.Equal(t, model.SyncStatusPartial, summary.Status)
	assert.Equal(t, "Successfully uploaded 2 out of 3 photos", summary.Message)
	assert.Equal(t, []string{
		storage.ObjectKey(a.Org(), "1", testNow, 1),
		storage.ObjectKey(c.Org(), "1", testNow, 3),
	}, s.uploader.keys)

	pending, err := s.repo.ListByOwnerAndOrg(context.Background(), "1", a.Org(), true)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)

	w = s.do(t, http.MethodPost, "/api/v1/sync/upload", model.PhotoIDsRequest{PhotoIDs: []int64{b.ID}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	decode(t, w, &summary)
	assert.Equal(t, model.SyncStatusFailed, summary.Status)
}

func TestSyncJobs(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "9000000004", "444444")

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/sync/jobs", model.PhotoIDsRequest{}).Code)

	w := s.do(t, http.MethodPost, "/api/v1/sync/jobs", model.PhotoIDsRequest{PhotoIDs: []int64{5, 6}})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, s.jobs.jobs, 1)
	assert.Equal(t, "4", s.jobs.jobs[0].TeacherID)
	assert.Equal(t, []int64{5, 6}, s.jobs.jobs[0].PhotoIDs)

	var summary model.SyncSummary
	decode(t, s.do(t, http.MethodGet, "/api/v1/sync/jobs/job-1", nil), &summary)
	assert.Equal(t, model.SyncStatusQueued, summary.Status)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/sync/jobs/other", nil).Code)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestUploadWithUnconfiguredStorage(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "9000000001", "111111")

	var a model.CapturedPhoto
	decode(t, s.capture(t, "A", "image/jpeg", "1"), &a)
	s.uploader.checkErr = errors.ConfigError{Problems: []string{"AWS S3 bucket not configured"}}

	w := s.do(t, http.MethodPost, "/api/v1/sync/upload", model.PhotoIDsRequest{PhotoIDs: []int64{a.ID}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "AWS S3 bucket not configured")
	assert.Empty(t, s.uploader.keys)

	pending, err := s.repo.ListByOwnerAndOrg(context.Background(), "1", a.Org(), true)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
