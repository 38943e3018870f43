package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"classroom-photo-sync/internal/auth"
	"classroom-photo-sync/internal/capture"
	"classroom-photo-sync/internal/config"
	"classroom-photo-sync/internal/db"
	"classroom-photo-sync/internal/logger"
	"classroom-photo-sync/internal/model"
	"classroom-photo-sync/internal/sync"
	"classroom-photo-sync/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// JobQueue accepts bulk sync jobs for the sync worker.
type JobQueue interface {
	EnqueueSyncJob(ctx context.Context, job model.SyncJob) (model.SyncJob, error)
}

type JobResults interface {
	Save(ctx context.Context, summary model.SyncSummary) error
	Get(ctx context.Context, jobID string) (*model.SyncSummary, error)
}

type Handler struct {
	cfg     *config.Config
	auth    *auth.Authenticator
	session *auth.Session // one slot for the whole server; the last login wins
	repo    db.Repository
	capture *capture.Service
	syncer  *sync.Service
	jobs    JobQueue
	results JobResults
	now     func() time.Time
	log     zerolog.Logger
}

// NewHandler wires the HTTP surface. jobs and results may be nil, in which
// case the queued sync routes answer 503.
func NewHandler(
	cfg *config.Config,
	authenticator *auth.Authenticator,
	repo db.Repository,
	captureService *capture.Service,
	syncService *sync.Service,
	jobs JobQueue,
	results JobResults,
) *Handler {
	return &Handler{
		cfg:     cfg,
		auth:    authenticator,
		session: auth.NewSession(),
		repo:    repo,
		capture: captureService,
		syncer:  syncService,
		jobs:    jobs,
		results: results,
		now:     time.Now,
		log:     logger.Get(),
	}
}

func (h *Handler) RequestCode(c *gin.Context) {
	var req model.RequestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	code, err := h.auth.RequestCode(strings.TrimSpace(req.Mobile))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, model.RequestCodeResponse{Mobile: req.Mobile, OTP: code})
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	teacher, err := h.auth.Login(h.session, strings.TrimSpace(req.Mobile), strings.TrimSpace(req.OTP))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"teacher": teacher})
}

func (h *Handler) Logout(c *gin.Context) {
	h.auth.Logout(h.session)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"teacher": currentTeacher(c)})
}

func (h *Handler) ListPhotos(c *gin.Context) {
	teacher := currentTeacher(c)
	pending := c.Query("pending") == "true"

	photos, err := h.repo.ListByOwnerAndOrg(c.Request.Context(), teacher.ID, teacher.Org(), pending)
	if err != nil {
		h.fail(c, err)
		return
	}
	if photos == nil {
		photos = []model.CapturedPhoto{}
	}

	c.JSON(http.StatusOK, gin.H{"photos": photos, "count": len(photos)})
}

// CapturePhoto stores the multipart "photo" field. An optional "captured_at"
// form value (epoch ms) records when the shutter fired; it defaults to now.
func (h *Handler) CapturePhoto(c *gin.Context) {
	teacher := currentTeacher(c)

	if limit := h.cfg.Server.MaxUploadBytes; limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	header, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing photo file"})
		return
	}
	if !acceptedImageType(header.Header.Get("Content-Type")) {
		h.fail(c, errors.ErrInvalidFileFormat)
		return
	}

	capturedAt := h.now().UnixMilli()
	if v := c.PostForm("captured_at"); v != "" {
		capturedAt, err = strconv.ParseInt(v, 10, 64)
		if err != nil || capturedAt <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid captured_at"})
			return
		}
	}

	src, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer src.Close()

	photo, err := h.capture.Save(c.Request.Context(), teacher, src, capturedAt)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, photo)
}

func acceptedImageType(contentType string) bool {
	switch {
	case contentType == "", contentType == "application/octet-stream":
		return true
	default:
		return strings.HasPrefix(contentType, "image/")
	}
}

func (h *Handler) PhotoStats(c *gin.Context) {
	teacher := currentTeacher(c)

	counts, err := h.repo.Counts(c.Request.Context(), teacher.ID, teacher.Org())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, counts)
}

func (h *Handler) DeletePhoto(c *gin.Context) {
	photo, ok := h.ownedPhoto(c)
	if !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), photo.ID); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": []int64{photo.ID}})
}

// DeletePhotos removes the teacher's records among the given ids. Ids that
// are unknown or owned by someone else are skipped.
func (h *Handler) DeletePhotos(c *gin.Context) {
	teacher := currentTeacher(c)

	var req model.PhotoIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.PhotoIDs) == 0 {
		h.fail(c, errors.ErrNoSelection)
		return
	}

	ctx := c.Request.Context()
	photos, err := h.repo.FindByIDs(ctx, teacher.ID, req.PhotoIDs)
	if err != nil {
		h.fail(c, err)
		return
	}

	ids := make([]int64, 0, len(photos))
	for _, p := range photos {
		ids = append(ids, p.ID)
	}
	if err := h.repo.DeleteBatch(ctx, ids); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": ids})
}

func (h *Handler) MarkUploaded(c *gin.Context) {
	photo, ok := h.ownedPhoto(c)
	if !ok {
		return
	}

	if err := h.repo.MarkUploaded(c.Request.Context(), photo.ID); err != nil {
		h.fail(c, err)
		return
	}

	photo.Uploaded = true
	c.JSON(http.StatusOK, photo)
}

// UploadPhotos runs the bulk upload inside the request and answers with its
// summary.
func (h *Handler) UploadPhotos(c *gin.Context) {
	teacher := currentTeacher(c)

	var req model.PhotoIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.syncer.UploadSelected(c.Request.Context(), teacher.ID, req.PhotoIDs)
	switch {
	case stderrors.Is(err, errors.ErrNothingUploaded):
		c.JSON(http.StatusBadGateway, result.Summary())
	case err != nil && result == nil:
		h.fail(c, err)
	case err != nil:
		summary := result.Summary()
		summary.Message = err.Error()
		c.JSON(http.StatusInternalServerError, summary)
	default:
		c.JSON(http.StatusOK, result.Summary())
	}
}

func (h *Handler) EnqueueSync(c *gin.Context) {
	if h.jobs == nil || h.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Sync queue is not available"})
		return
	}
	teacher := currentTeacher(c)

	var req model.PhotoIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.PhotoIDs) == 0 {
		h.fail(c, errors.ErrNoSelection)
		return
	}

	ctx := c.Request.Context()
	job, err := h.jobs.EnqueueSyncJob(ctx, model.SyncJob{
		TeacherID: teacher.ID,
		PhotoIDs:  req.PhotoIDs,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue sync job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue sync job"})
		return
	}

	queued := model.SyncSummary{JobID: job.ID, Status: model.SyncStatusQueued, Items: []model.SyncItem{}}
	if err := h.results.Save(ctx, queued); err != nil {
		h.log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to record queued job")
	}

	h.log.Info().
		Str("job_id", job.ID).
		Str("teacher_id", teacher.ID).
		Int("photos", len(job.PhotoIDs)).
		Msg("Sync job enqueued")

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Sync job queued successfully",
		"job":     job,
	})
}

func (h *Handler) GetSyncJob(c *gin.Context) {
	if h.results == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Sync queue is not available"})
		return
	}

	summary, err := h.results.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

// ownedPhoto resolves :id to a photo of the current teacher, writing the
// error response itself when it cannot.
func (h *Handler) ownedPhoto(c *gin.Context) (*model.CapturedPhoto, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid photo ID"})
		return nil, false
	}

	photo, err := h.repo.Get(c.Request.Context(), id)
	if err == nil && photo.TeacherID != currentTeacher(c).ID {
		err = errors.ErrPhotoNotFound
	}
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return photo, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && !stderrors.Is(err, errors.ErrConfig) {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrNotRegistered),
		stderrors.Is(err, errors.ErrPhotoNotFound),
		stderrors.Is(err, errors.ErrJobNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrInvalidCode),
		stderrors.Is(err, errors.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrNoSelection),
		stderrors.Is(err, errors.ErrInvalidFileFormat):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrAlreadyUploaded):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrConfig):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
