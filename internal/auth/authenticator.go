package auth

import (
	"classroom-photo-sync/internal/logger"
	"classroom-photo-sync/internal/model"
	"classroom-photo-sync/pkg/errors"

	"github.com/rs/zerolog"
)

// Roster is the lookup the authenticator needs.
type Roster interface {
	FindByMobile(mobile string) (model.Teacher, bool)
	Verify(mobile, otp string) (model.Teacher, bool)
}

type Authenticator struct {
	roster Roster
	log    zerolog.Logger
}

func NewAuthenticator(roster Roster) *Authenticator {
	return &Authenticator{
		roster: roster,
		log:    logger.Get(),
	}
}

// RequestCode returns the fixed code of a registered mobile. There is no
// dispatch channel: the caller shows the code to the user.
func (a *Authenticator) RequestCode(mobile string) (string, error) {
	t, ok := a.roster.FindByMobile(mobile)
	if !ok {
		a.log.Warn().Str("mobile", mobile).Msg("Code requested for unregistered mobile")
		return "", errors.ErrNotRegistered
	}

	a.log.Info().Str("teacher_id", t.ID).Msg("One-time code generated")
	return t.OTP, nil
}

// Login stores the matching teacher in session. On mismatch the session is
// left as it was.
func (a *Authenticator) Login(session *Session, mobile, otp string) (model.Teacher, error) {
	t, ok := a.roster.Verify(mobile, otp)
	if !ok {
		a.log.Warn().Str("mobile", mobile).Msg("Login rejected")
		return model.Teacher{}, errors.ErrInvalidCode
	}

	session.set(t)
	a.log.Info().Str("teacher_id", t.ID).Msg("Login successful")
	return t, nil
}

func (a *Authenticator) Logout(session *Session) {
	session.Clear()
}
