package roster

import (
	"context"
	"regexp"

	"classroom-photo-sync/internal/model"
	"classroom-photo-sync/pkg/errors"
)

type Validator struct {
	mobileRegex *regexp.Regexp
}

func NewValidator() *Validator {
	return &Validator{
		mobileRegex: regexp.MustCompile(`^\+?[0-9]{6,15}$`),
	}
}

func (v *Validator) Validate(ctx context.Context, teachers []model.Teacher) error {
	if len(teachers) == 0 {
		return errors.ErrSchemaValidation
	}

	seen := make(map[string]bool, len(teachers))
	for _, t := range teachers {
		if err := v.validateTeacher(t); err != nil {
			return err
		}
		if seen[t.Mobile] {
			return errors.ValidationError{
				Field:   "mobile",
				Value:   t.Mobile,
				Message: "duplicate mobile number",
			}
		}
		seen[t.Mobile] = true
	}

	return nil
}

func (v *Validator) validateTeacher(t model.Teacher) error {
	if t.ID == "" {
		return errors.ValidationError{
			Field:   "id",
			Value:   t.ID,
			Message: "id cannot be empty",
		}
	}

	if !v.mobileRegex.MatchString(t.Mobile) {
		return errors.ValidationError{
			Field:   "mobile",
			Value:   t.Mobile,
			Message: "must be 6-15 digits",
		}
	}

	if t.OTP == "" {
		return errors.ValidationError{
			Field:   "otp",
			Value:   t.OTP,
			Message: "one-time code cannot be empty",
		}
	}

	// School, branch and class end up in remote object keys.
	if t.School == "" || t.Branch == "" || t.Class == "" {
		return errors.ValidationError{
			Field:   "org",
			Value:   t.Org(),
			Message: "school, branch and class are required",
		}
	}

	return nil
}
