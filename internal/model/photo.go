package model

import "time"

// CapturedPhoto is one row of the captured_photos table. CapturedAt and
// CreatedAt are epoch milliseconds.
type CapturedPhoto struct {
	ID         int64  `json:"id" db:"id"`
	TeacherID  string `json:"teacher_id" db:"teacherId"`
	School     string `json:"school" db:"school"`
	Branch     string `json:"branch" db:"branch"`
	Class      string `json:"class" db:"class"`
	FilePath   string `json:"file_path" db:"filePath"`
	CapturedAt int64  `json:"captured_at" db:"capturedAt"`
	Uploaded   bool   `json:"uploaded" db:"uploaded"`
	CreatedAt  int64  `json:"created_at" db:"createdAt"`
}

func (p CapturedPhoto) Org() Org {
	return Org{School: p.School, Branch: p.Branch, Class: p.Class}
}

func (p CapturedPhoto) CapturedTime() time.Time {
	return time.UnixMilli(p.CapturedAt)
}

type PhotoCounts struct {
	Total    int `json:"total"`
	Uploaded int `json:"uploaded"`
	Pending  int `json:"pending"`
}
