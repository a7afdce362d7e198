package bitwarden

import (
	"crypto/rsa"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vaultadmin/internal/keycrypt"
	"vaultadmin/models"
)

// sessionToken is the session state owned by the client: the issued tokens,
// the expiry instant computed once at acquisition, and the key hierarchy
// unwrapped at login. It is never handed out by value; callers only see the
// bearer string.
type sessionToken struct {
	models.ConnectToken

	expiresAt     time.Time
	userKey       *keycrypt.SymmetricKey
	orgPrivateKey *rsa.PrivateKey
}

// expired reports whether the token is unusable at the given instant. An
// exactly-equal instant counts as expired; there is no grace window.
func (t *sessionToken) expired(now time.Time) bool {
	return !now.Before(t.expiresAt)
}

// ensureValid makes the session usable: a live token is a no-op, an expired
// token with a refresh token is exchanged without re-deriving the master
// key, and anything else performs a full client-credentials login.
func (c *Client) ensureValid() error {
	if c.token != nil && !c.token.expired(c.now()) {
		return nil
	}
	if c.token != nil && c.token.RefreshToken != "" {
		return c.refresh()
	}
	return c.login()
}

// bearer returns the current access token. Callers must run ensureValid
// immediately before every use.
func (c *Client) bearer() string {
	if c.token == nil {
		return ""
	}
	return c.token.AccessToken
}

// login exchanges the client credentials for tokens and unwraps the key
// hierarchy: master key from password+email, user key from the wrapped Key
// field, organization private key from the wrapped PrivateKey field.
func (c *Client) login() error {
	form := url.Values{
		"grant_type":       {"client_credentials"},
		"client_id":        {c.clientID},
		"client_secret":    {c.clientSecret},
		"scope":            {"api"},
		"deviceType":       {deviceType},
		"deviceIdentifier": {c.deviceID},
		"deviceName":       {deviceName},
	}

	body, err := c.postForm("identity/connect/token", form)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	var connect models.ConnectToken
	if err := models.Unmarshal(body, &connect); err != nil {
		return fmt.Errorf("%w: decode token response: %v", ErrAuthentication, err)
	}

	token := &sessionToken{
		ConnectToken: connect,
		expiresAt:    c.now().Add(time.Duration(connect.ExpiresIn) * time.Second),
	}

	master, err := keycrypt.MasterKey(c.password, c.email, connect.Kdf,
		connect.KdfIterations, connect.KdfMemory, connect.KdfParallelism)
	if err != nil {
		return fmt.Errorf("%w: derive master key: %v", ErrAuthentication, err)
	}
	stretched, err := keycrypt.StretchKey(master)
	if err != nil {
		return fmt.Errorf("%w: stretch master key: %v", ErrAuthentication, err)
	}

	wrappedUserKey, err := keycrypt.ParseCipherString(connect.Key)
	if err != nil {
		return fmt.Errorf("%w: parse wrapped user key: %v", ErrAuthentication, err)
	}
	rawUserKey, err := keycrypt.DecryptSymmetric(wrappedUserKey, stretched)
	if err != nil {
		return fmt.Errorf("%w: unwrap user key (wrong password?): %v", ErrAuthentication, err)
	}
	if token.userKey, err = keycrypt.NewSymmetricKey(rawUserKey); err != nil {
		return fmt.Errorf("%w: user key: %v", ErrAuthentication, err)
	}

	wrappedPrivateKey, err := keycrypt.ParseCipherString(connect.PrivateKey)
	if err != nil {
		return fmt.Errorf("%w: parse wrapped private key: %v", ErrAuthentication, err)
	}
	der, err := keycrypt.DecryptSymmetric(wrappedPrivateKey, token.userKey)
	if err != nil {
		return fmt.Errorf("%w: unwrap private key: %v", ErrAuthentication, err)
	}
	if token.orgPrivateKey, err = keycrypt.ParsePrivateKey(der); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	c.token = token

	if claims, err := parseAccessClaims(connect.AccessToken); err == nil && claims.Email != "" {
		log.Printf("bitwarden: authenticated as %s (sub %s)", claims.Email, claims.Subject)
	}
	return nil
}

// refresh exchanges the refresh token for a new access token, keeping the
// unwrapped keys from the original login.
func (c *Client) refresh() error {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.token.RefreshToken},
	}

	body, err := c.postForm("identity/connect/token", form)
	if err != nil {
		return fmt.Errorf("%w: refresh: %v", ErrAuthentication, err)
	}

	var connect models.ConnectToken
	if err := models.Unmarshal(body, &connect); err != nil {
		return fmt.Errorf("%w: decode refresh response: %v", ErrAuthentication, err)
	}

	c.token.AccessToken = connect.AccessToken
	if connect.RefreshToken != "" {
		c.token.RefreshToken = connect.RefreshToken
	}
	c.token.ExpiresIn = connect.ExpiresIn
	c.token.expiresAt = c.now().Add(time.Duration(connect.ExpiresIn) * time.Second)
	return nil
}

// AccessClaims are the claims of interest inside the issued access token.
type AccessClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Premium bool   `json:"premium"`
	jwt.RegisteredClaims
}

// parseAccessClaims decodes the access token payload without verifying the
// signature; the token was just received over the authenticated channel and
// is only inspected for identity metadata.
func parseAccessClaims(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// AuthenticatedUser ensures a valid session and returns the identity claims
// of the current access token.
func (c *Client) AuthenticatedUser() (*AccessClaims, error) {
	if err := c.ensureValid(); err != nil {
		return nil, err
	}
	return parseAccessClaims(c.token.AccessToken)
}
