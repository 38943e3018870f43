package auth

import (
	"context"
	"testing"

	"classroom-photo-sync/internal/roster"
	"classroom-photo-sync/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthenticator(t *testing.T) (*Authenticator, *roster.Roster) {
	t.Helper()
	r, err := roster.Load(context.Background(), "")
	require.NoError(t, err)
	return NewAuthenticator(r), r
}

func TestRequestCode(t *testing.T) {
	a, r := newAuthenticator(t)

	for _, teacher := range r.All() {
		code, err := a.RequestCode(teacher.Mobile)
		require.NoError(t, err)
		assert.Equal(t, teacher.OTP, code)
	}

	_, err := a.RequestCode("1234567890")
	assert.ErrorIs(t, err, errors.ErrNotRegistered)
}

func TestLoginSetsSessionOnlyOnSuccess(t *testing.T) {
	a, _ := newAuthenticator(t)
	session := NewSession()

	_, err := a.Login(session, "9000000001", "999999")
	assert.ErrorIs(t, err, errors.ErrInvalidCode)
	assert.False(t, session.IsLoggedIn())

	teacher, err := a.Login(session, "9000000001", "111111")
	require.NoError(t, err)
	assert.Equal(t, "1", teacher.ID)

	current, ok := session.Current()
	require.True(t, ok)
	assert.Equal(t, teacher, current)
}

func TestFailedLoginKeepsExistingSession(t *testing.T) {
	a, _ := newAuthenticator(t)
	session := NewSession()

	_, err := a.Login(session, "9000000003", "333333")
	require.NoError(t, err)

	_, err = a.Login(session, "9000000004", "000000")
	require.ErrorIs(t, err, errors.ErrInvalidCode)

	current, ok := session.Current()
	require.True(t, ok)
	assert.Equal(t, "3", current.ID)
}

func TestLoginOverwritesSession(t *testing.T) {
	a, _ := newAuthenticator(t)
	session := NewSession()

	_, err := a.Login(session, "9000000001", "111111")
	require.NoError(t, err)
	_, err = a.Login(session, "9000000008", "888888")
	require.NoError(t, err)

	current, ok := session.Current()
	require.True(t, ok)
	assert.Equal(t, "8", current.ID)
}

func TestLogoutIsIdempotent(t *testing.T) {
	a, _ := newAuthenticator(t)
	session := NewSession()

	a.Logout(session)
	assert.False(t, session.IsLoggedIn())

	_, err := a.Login(session, "9000000002", "222222")
	require.NoError(t, err)

	a.Logout(session)
	a.Logout(session)
	_, ok := session.Current()
	assert.False(t, ok)
}
