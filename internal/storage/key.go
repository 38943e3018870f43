package storage

import (
	"fmt"
	"strconv"
	"time"

	"classroom-photo-sync/internal/model"
)

const (
	ContentTypeJPEG = "image/jpeg"
	photoExt        = ".jpg"
)

// ObjectKey builds "{school}/{branch}/{class}/{teacherID}_{epochMillis}[_{sequence}].jpg".
func ObjectKey(org model.Org, teacherID string, at time.Time, sequence int) string {
	suffix := ""
	if sequence > 0 {
		suffix = "_" + strconv.Itoa(sequence)
	}
	return fmt.Sprintf("%s/%s/%s/%s_%d%s%s",
		org.School, org.Branch, org.Class, teacherID, at.UnixMilli(), suffix, photoExt)
}
