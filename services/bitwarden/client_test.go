package bitwarden

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultadmin/internal/vaulttest"
	"vaultadmin/services/remote"
)

func newTestClient(t *testing.T, s *vaulttest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := New(s.URL, s.Email, s.Password, s.ClientID, s.ClientSecret, opts...)
	require.NoError(t, err)
	return c
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name    string
		args    [5]string
		wantErr error
	}{
		{"missing base url", [5]string{"", "a@b.c", "pw", "id", "secret"}, ErrBaseURLRequired},
		{"missing email", [5]string{"http://vault", "", "pw", "id", "secret"}, ErrEmailRequired},
		{"missing password", [5]string{"http://vault", "a@b.c", "", "id", "secret"}, ErrPasswordRequired},
		{"missing client id", [5]string{"http://vault", "a@b.c", "pw", "", "secret"}, ErrClientIDRequired},
		{"missing client secret", [5]string{"http://vault", "a@b.c", "pw", "id", ""}, ErrClientSecretRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.args[0], tc.args[1], tc.args[2], tc.args[3], tc.args[4])
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	c, err := New("http://vault/", "a@b.c", "pw", "id", "secret")
	require.NoError(t, err)
	assert.Equal(t, "http://vault", c.baseURL)
}

func TestLoginOnceForConsecutiveRequests(t *testing.T) {
	s := vaulttest.NewServer(t)
	c := newTestClient(t, s)

	_, err := c.Sync(true)
	require.NoError(t, err)
	_, err = c.Sync(true)
	require.NoError(t, err)

	assert.Equal(t, 1, s.LoginCalls)
	assert.Equal(t, 0, s.RefreshCalls)
}

func TestExpiredTokenRefreshesWithoutRelogin(t *testing.T) {
	s := vaulttest.NewServer(t)

	current := time.Now()
	c := newTestClient(t, s, WithClock(func() time.Time { return current }))

	_, err := c.Sync(true)
	require.NoError(t, err)
	require.Equal(t, 1, s.LoginCalls)

	// An instant exactly equal to the expiry counts as expired.
	current = current.Add(time.Duration(s.ExpiresIn) * time.Second)
	_, err = c.Sync(true)
	require.NoError(t, err)

	assert.Equal(t, 1, s.LoginCalls)
	assert.Equal(t, 1, s.RefreshCalls)
}

func TestLiveTokenJustBeforeExpiryIsReused(t *testing.T) {
	s := vaulttest.NewServer(t)

	current := time.Now()
	c := newTestClient(t, s, WithClock(func() time.Time { return current }))

	_, err := c.Sync(true)
	require.NoError(t, err)

	current = current.Add(time.Duration(s.ExpiresIn)*time.Second - time.Nanosecond)
	_, err = c.Sync(true)
	require.NoError(t, err)

	assert.Equal(t, 1, s.LoginCalls)
	assert.Equal(t, 0, s.RefreshCalls)
}

func TestLoginRejectedCredentials(t *testing.T) {
	s := vaulttest.NewServer(t)
	c, err := New(s.URL, s.Email, s.Password, s.ClientID, "wrong-secret")
	require.NoError(t, err)

	_, err = c.Sync(true)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestLoginWrongPasswordFailsUnwrap(t *testing.T) {
	s := vaulttest.NewServer(t)
	c, err := New(s.URL, s.Email, "not the password", s.ClientID, s.ClientSecret)
	require.NoError(t, err)

	_, err = c.Sync(true)
	assert.ErrorIs(t, err, ErrAuthentication)
	// The credentials were accepted; the MAC check on the wrapped key failed.
	assert.Equal(t, 1, s.LoginCalls)
}

func TestRequestErrorCarriesStatusAndBody(t *testing.T) {
	s := vaulttest.NewServer(t)
	c := newTestClient(t, s)

	err := c.Request(http.MethodGet, "api/no-such-endpoint", nil, nil, nil)
	require.Error(t, err)

	var reqErr *remote.Error
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusNotFound, reqErr.StatusCode)
	assert.Equal(t, http.MethodGet, reqErr.Method)
	assert.NotEmpty(t, reqErr.Body)
}

func TestAuthenticatedUser(t *testing.T) {
	s := vaulttest.NewServer(t)
	c := newTestClient(t, s)

	claims, err := c.AuthenticatedUser()
	require.NoError(t, err)
	assert.Equal(t, s.Email, claims.Email)
	assert.Equal(t, 1, s.LoginCalls)
}

func TestSyncCachedUntilForceRefresh(t *testing.T) {
	s := vaulttest.NewServer(t)
	s.AddOrg("First")
	c := newTestClient(t, s)

	sync, err := c.Sync(false)
	require.NoError(t, err)
	require.Len(t, sync.Profile.Organizations, 1)

	s.AddOrg("Second")

	sync, err = c.Sync(false)
	require.NoError(t, err)
	assert.Len(t, sync.Profile.Organizations, 1)

	sync, err = c.Sync(true)
	require.NoError(t, err)
	assert.Len(t, sync.Profile.Organizations, 2)
}
