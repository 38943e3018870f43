package roster

import (
	"classroom-photo-sync/internal/model"
)

// Roster is a fixed lookup table of teachers keyed by mobile number.
type Roster struct {
	teachers []model.Teacher
	byMobile map[string]int
}

// New builds a roster from already validated entries.
func New(teachers []model.Teacher) *Roster {
	r := &Roster{
		teachers: make([]model.Teacher, len(teachers)),
		byMobile: make(map[string]int, len(teachers)),
	}
	copy(r.teachers, teachers)
	for i, t := range r.teachers {
		r.byMobile[t.Mobile] = i
	}
	return r
}

func (r *Roster) FindByMobile(mobile string) (model.Teacher, bool) {
	i, ok := r.byMobile[mobile]
	if !ok {
		return model.Teacher{}, false
	}
	return r.teachers[i], true
}

// Verify returns the entry only when both mobile and code match exactly.
func (r *Roster) Verify(mobile, otp string) (model.Teacher, bool) {
	t, ok := r.FindByMobile(mobile)
	if !ok || t.OTP != otp {
		return model.Teacher{}, false
	}
	return t, true
}

func (r *Roster) All() []model.Teacher {
	out := make([]model.Teacher, len(r.teachers))
	copy(out, r.teachers)
	return out
}

func (r *Roster) Len() int {
	return len(r.teachers)
}
