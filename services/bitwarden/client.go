// Package bitwarden is the authenticated client for the vault data API:
// it owns the token lifecycle, the key hierarchy unwrapped at login, and
// the typed entity layer over organizations, collections, members and
// ciphers.
package bitwarden

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"vaultadmin/models"
	"vaultadmin/services/remote"
)

var (
	ErrBaseURLRequired      = errors.New("bitwarden: base url is required")
	ErrEmailRequired        = errors.New("bitwarden: account email is required")
	ErrPasswordRequired     = errors.New("bitwarden: account password is required")
	ErrClientIDRequired     = errors.New("bitwarden: client id is required")
	ErrClientSecretRequired = errors.New("bitwarden: client secret is required")

	ErrAuthentication       = errors.New("bitwarden: authentication failed")
	ErrNoProfile            = errors.New("bitwarden: sync snapshot has no profile")
	ErrOrganizationNotFound = errors.New("bitwarden: organization not found")
	ErrUserNotFound         = errors.New("bitwarden: organization user not found")
	ErrCollectionNotFound   = errors.New("bitwarden: collection not found")
)

const (
	// deviceType 21 is "SDK" in the server's DeviceType enum.
	deviceType = "21"
	deviceName = "vaultadmin"

	defaultTimeout = 30 * time.Second
)

// Client is an authenticated vault API client. A Client instance is meant
// for single-threaded use: the session credential and the entity caches it
// hands out are instance-scoped mutable state.
type Client struct {
	baseURL      string
	email        string
	password     string
	clientID     string
	clientSecret string
	deviceID     string

	httpClient *http.Client
	now        func() time.Time

	token    *sessionToken
	syncData *models.SyncData
}

// Option customizes a Client at construction.
type Option func(*Client)

// WithTimeout overrides the fixed per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithDeviceID pins the device identifier sent on login instead of a
// generated one.
func WithDeviceID(id string) Option {
	return func(c *Client) { c.deviceID = id }
}

// WithClock injects the time source used to compute and check token expiry.
// Both sides of the comparison always use the same clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New validates the connection parameters and returns a client. No network
// call happens until the first request needs a session.
func New(baseURL, email, password, clientID, clientSecret string, opts ...Option) (*Client, error) {
	switch {
	case strings.TrimSpace(baseURL) == "":
		return nil, ErrBaseURLRequired
	case strings.TrimSpace(email) == "":
		return nil, ErrEmailRequired
	case password == "":
		return nil, ErrPasswordRequired
	case strings.TrimSpace(clientID) == "":
		return nil, ErrClientIDRequired
	case strings.TrimSpace(clientSecret) == "":
		return nil, ErrClientSecretRequired
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		email:        email,
		password:     password,
		clientID:     clientID,
		clientSecret: clientSecret,
		deviceID:     uuid.NewString(),
		httpClient:   &http.Client{Timeout: defaultTimeout},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request performs an authenticated JSON request and decodes the response
// into out (which may be nil for calls whose body is irrelevant). Every
// caller funnels through here: the session is validated first, the bearer
// token attached, and any status >= 400 surfaces as a *remote.Error.
func (c *Client) Request(method, path string, query url.Values, body, out any) error {
	if err := c.ensureValid(); err != nil {
		return err
	}

	data, err := c.do(method, path, query, body, "Bearer "+c.bearer())
	if err != nil {
		return err
	}
	if out != nil && len(data) > 0 {
		if err := models.Unmarshal(data, out); err != nil {
			return fmt.Errorf("bitwarden: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// do issues a single HTTP round trip without touching the session. The
// login and refresh calls use it directly since they establish the
// authentication everything else depends on.
func (c *Client) do(method, path string, query url.Values, body any, authorization string) ([]byte, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("bitwarden: encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("bitwarden: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "*/*")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bitwarden: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	return remote.CheckResponse(resp)
}

// postForm posts a form-encoded body, used only by the token endpoint.
func (c *Client) postForm(path string, form url.Values) ([]byte, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("bitwarden: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bitwarden: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	return remote.CheckResponse(resp)
}

// Sync returns the account snapshot, fetching it on first use or when
// forceRefresh is set.
func (c *Client) Sync(forceRefresh bool) (*models.SyncData, error) {
	if c.syncData != nil && !forceRefresh {
		return c.syncData, nil
	}
	var sync models.SyncData
	if err := c.Request(http.MethodGet, "api/sync", nil, nil, &sync); err != nil {
		return nil, err
	}
	c.syncData = &sync
	return c.syncData, nil
}

// Email returns the account email the client authenticates as.
func (c *Client) Email() string {
	return c.email
}
