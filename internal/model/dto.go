package model

import "time"

type RequestCodeRequest struct {
	Mobile string `json:"mobile" binding:"required"`
}

type RequestCodeResponse struct {
	Mobile string `json:"mobile"`
	OTP    string `json:"otp"`
}

type LoginRequest struct {
	Mobile string `json:"mobile" binding:"required"`
	OTP    string `json:"otp" binding:"required"`
}

type PhotoIDsRequest struct {
	PhotoIDs []int64 `json:"photo_ids"`
}

// SyncJob is the queued form of a bulk sync request. Keys come from each
// record's stored org, so the job carries no org of its own.
type SyncJob struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacher_id"`
	PhotoIDs  []int64   `json:"photo_ids"`
	QueuedAt  time.Time `json:"queued_at"`
}

type SyncItem struct {
	PhotoID  int64  `json:"photo_id"`
	Sequence int    `json:"sequence"`
	Key      string `json:"key,omitempty"`
	Location string `json:"location,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SyncSummary reports the outcome of one bulk sync run.
type SyncSummary struct {
	JobID     string     `json:"job_id,omitempty"`
	Status    string     `json:"status"`
	Attempted int        `json:"attempted"`
	Succeeded int        `json:"succeeded"`
	Items     []SyncItem `json:"items"`
	Message   string     `json:"message,omitempty"`
	Finished  time.Time  `json:"finished_at"`
}

const (
	SyncStatusQueued    = "QUEUED"
	SyncStatusCompleted = "COMPLETED"
	SyncStatusPartial   = "PARTIAL"
	SyncStatusFailed    = "FAILED"
)
