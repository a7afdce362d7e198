package vaultwarden

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultadmin/internal/vaulttest"
	"vaultadmin/models"
)

func newTestAdmin(t *testing.T, s *vaulttest.Server) *AdminClient {
	t.Helper()
	a, err := NewAdmin(s.URL, s.AdminToken)
	require.NoError(t, err)
	return a
}

func TestNewAdminValidation(t *testing.T) {
	_, err := NewAdmin("", "token")
	assert.ErrorIs(t, err, ErrURLRequired)

	_, err = NewAdmin("http://vault", "  ")
	assert.ErrorIs(t, err, ErrTokenRequired)

	a, err := NewAdmin("http://vault/", "token")
	require.NoError(t, err)
	assert.Equal(t, "http://vault/admin", a.baseURL)
}

func TestSessionCookieReused(t *testing.T) {
	s := vaulttest.NewServer(t)
	s.AddAdminUser("carol@example.com")
	a := newTestAdmin(t, s)

	_, err := a.GetAllUsers()
	require.NoError(t, err)
	_, err = a.GetAllUsers()
	require.NoError(t, err)

	assert.Equal(t, 1, s.AdminLoginCalls)
}

func TestAdminLoginRejected(t *testing.T) {
	s := vaulttest.NewServer(t)
	a, err := NewAdmin(s.URL, "wrong-token")
	require.NoError(t, err)

	_, err = a.GetAllUsers()
	assert.ErrorIs(t, err, ErrAdminLogin)
}

func TestGetUserByEmailAndID(t *testing.T) {
	s := vaulttest.NewServer(t)
	seeded := s.AddAdminUser("carol@example.com")
	a := newTestAdmin(t, s)

	user, err := a.GetUser("carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)
	assert.Equal(t, models.UserStatusEnabled, user.EffectiveStatus())

	user, err = a.GetUser(seeded.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", user.Email)

	_, err = a.GetUser("nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = a.GetUser("not-an-id-or-email")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestInvite(t *testing.T) {
	s := vaulttest.NewServer(t)
	s.AddAdminUser("carol@example.com")
	a := newTestAdmin(t, s)

	user, err := a.Invite("dave@example.com")
	require.NoError(t, err)
	assert.Equal(t, "dave@example.com", user.Email)
	assert.NotNil(t, s.FindAdminUser("dave@example.com"))

	// The index was invalidated; the new account is immediately resolvable.
	found, err := a.GetUser("dave@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = a.Invite("carol@example.com")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestSetUserEnabled(t *testing.T) {
	s := vaulttest.NewServer(t)
	seeded := s.AddAdminUser("carol@example.com")
	a := newTestAdmin(t, s)

	require.NoError(t, a.SetUserEnabled(seeded.ID, false))
	assert.False(t, seeded.Enabled)

	user, err := a.GetUser("carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusDisabled, user.EffectiveStatus())

	require.NoError(t, a.SetUserEnabled(seeded.ID, true))
	assert.True(t, seeded.Enabled)
}

func TestRemove2FA(t *testing.T) {
	s := vaulttest.NewServer(t)
	seeded := s.AddAdminUser("carol@example.com")
	seeded.TwoFactor = true
	a := newTestAdmin(t, s)

	require.NoError(t, a.Remove2FA("carol@example.com"))
	assert.False(t, seeded.TwoFactor)
}

func TestDeleteRemovesAccount(t *testing.T) {
	s := vaulttest.NewServer(t)
	seeded := s.AddAdminUser("carol@example.com")
	a := newTestAdmin(t, s)

	require.NoError(t, a.Delete(seeded.ID))
	assert.Nil(t, s.FindAdminUser("carol@example.com"))

	_, err := a.GetUser("carol@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
