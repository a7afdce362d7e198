// Package vaultwarden is the client for the server's admin interface:
// cookie-session authentication against the admin secret token, a cached
// user index, and the account lifecycle workflows built on top of it.
package vaultwarden

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"vaultadmin/models"
	"vaultadmin/services/remote"
)

var (
	ErrURLRequired   = errors.New("vaultwarden: admin url is required")
	ErrTokenRequired = errors.New("vaultwarden: admin secret token is required")

	ErrAdminLogin   = errors.New("vaultwarden: admin login failed")
	ErrUserNotFound = errors.New("vaultwarden: user not found")
	ErrUserExists   = errors.New("vaultwarden: user already exists")
)

// sessionCookie is the name of the admin session cookie the server issues.
const sessionCookie = "VW_ADMIN"

const defaultTimeout = 30 * time.Second

// AdminClient talks to the admin interface. Authentication is a session
// cookie obtained by posting the admin secret token to the admin root; the
// cookie jar drops the cookie at expiry, which is what triggers a re-login.
//
// The client keeps a local user index (by id and by email) because the
// server offers no query-by-email endpoint. The index is invalidated and
// rebuilt on any mutating call and on explicit refresh.
type AdminClient struct {
	baseURL     string
	adminURL    *url.URL
	secretToken string
	httpClient  *http.Client

	usersByID map[uuid.UUID]models.VaultwardenUser
	idByEmail map[string]uuid.UUID
}

// AdminOption customizes an AdminClient at construction.
type AdminOption func(*AdminClient)

// WithAdminTimeout overrides the fixed per-request timeout.
func WithAdminTimeout(d time.Duration) AdminOption {
	return func(a *AdminClient) { a.httpClient.Timeout = d }
}

// NewAdmin validates the connection parameters and returns an admin client.
func NewAdmin(baseURL, secretToken string, opts ...AdminOption) (*AdminClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrURLRequired
	}
	if strings.TrimSpace(secretToken) == "" {
		return nil, ErrTokenRequired
	}

	root := strings.TrimRight(baseURL, "/") + "/admin"
	adminURL, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("vaultwarden: parse admin url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("vaultwarden: cookie jar: %w", err)
	}

	a := &AdminClient{
		baseURL:     root,
		adminURL:    adminURL,
		secretToken: secretToken,
		httpClient:  &http.Client{Jar: jar, Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// PreloadUsers fills the user index up front. Optional; the index is
// otherwise populated on first lookup.
func (a *AdminClient) PreloadUsers() error {
	_, err := a.GetAllUsers()
	return err
}

// ensureSession re-authenticates whenever the jar no longer yields the
// session cookie (first use, or the cookie expired and was dropped).
func (a *AdminClient) ensureSession() error {
	for _, cookie := range a.httpClient.Jar.Cookies(a.adminURL) {
		if cookie.Name == sessionCookie {
			return nil
		}
	}

	form := url.Values{"token": {a.secretToken}}
	resp, err := a.httpClient.PostForm(a.baseURL, form)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAdminLogin, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: status %d", ErrAdminLogin, resp.StatusCode)
	}

	for _, cookie := range a.httpClient.Jar.Cookies(a.adminURL) {
		if cookie.Name == sessionCookie {
			return nil
		}
	}
	return fmt.Errorf("%w: no %s cookie issued", ErrAdminLogin, sessionCookie)
}

// request performs an authenticated admin call and decodes the JSON
// response into out when non-nil.
func (a *AdminClient) request(method, path string, body, out any) error {
	if err := a.ensureSession(); err != nil {
		return err
	}

	endpoint := a.baseURL + "/" + strings.TrimLeft(path, "/")
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("vaultwarden: encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("vaultwarden: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vaultwarden: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := remote.CheckResponse(resp)
	if err != nil {
		return err
	}
	if out != nil && len(data) > 0 {
		if err := models.Unmarshal(data, out); err != nil {
			return fmt.Errorf("vaultwarden: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// invalidateIndex drops the cached user index; the next lookup rebuilds it.
func (a *AdminClient) invalidateIndex() {
	a.usersByID = nil
	a.idByEmail = nil
}

// GetAllUsers fetches every user record and rebuilds the local index.
func (a *AdminClient) GetAllUsers() ([]models.VaultwardenUser, error) {
	var users []models.VaultwardenUser
	if err := a.request(http.MethodGet, "users", nil, &users); err != nil {
		return nil, err
	}

	a.usersByID = make(map[uuid.UUID]models.VaultwardenUser, len(users))
	a.idByEmail = make(map[string]uuid.UUID, len(users))
	for _, user := range users {
		a.usersByID[user.ID] = user
		a.idByEmail[user.Email] = user.ID
	}
	return users, nil
}

// GetUser resolves a search term that is either an email known to the index
// or a user id, and fetches the record. An email absent from a freshly
// populated index is ErrUserNotFound — there is no textual search.
func (a *AdminClient) GetUser(search string) (*models.VaultwardenUser, error) {
	if a.idByEmail == nil {
		if _, err := a.GetAllUsers(); err != nil {
			return nil, err
		}
	}

	var id uuid.UUID
	if known, ok := a.idByEmail[search]; ok {
		id = known
	} else if strings.Contains(search, "@") {
		// An email that is not in the freshly built index does not exist.
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, search)
	} else {
		parsed, err := uuid.Parse(search)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is neither a known email nor an id", ErrUserNotFound, search)
		}
		id = parsed
	}

	var user models.VaultwardenUser
	if err := a.request(http.MethodGet, fmt.Sprintf("users/%s", id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Invite creates an invited user account. Inviting an email that already
// has an account is ErrUserExists.
func (a *AdminClient) Invite(email string) (*models.VaultwardenUser, error) {
	payload := struct {
		Email string `json:"email"`
	}{Email: email}

	var user models.VaultwardenUser
	err := a.request(http.MethodPost, "invite", payload, &user)
	a.invalidateIndex()
	if err != nil {
		var reqErr *remote.Error
		if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusConflict {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return nil, err
	}
	return &user, nil
}

// Delete removes the account entirely.
func (a *AdminClient) Delete(id uuid.UUID) error {
	log.Printf("vaultwarden: deleting account %s", id)
	err := a.request(http.MethodPost, fmt.Sprintf("users/%s/delete", id), nil, nil)
	a.invalidateIndex()
	return err
}

// SetUserEnabled enables or disables the account. Disabling also
// deauthorizes all of the account's sessions.
func (a *AdminClient) SetUserEnabled(id uuid.UUID, enabled bool) error {
	action := "disable"
	if enabled {
		action = "enable"
	}
	err := a.request(http.MethodPost, fmt.Sprintf("users/%s/%s", id, action), nil, nil)
	a.invalidateIndex()
	return err
}

// Remove2FA strips the account's two-factor configuration.
func (a *AdminClient) Remove2FA(email string) error {
	user, err := a.GetUser(email)
	if err != nil {
		return err
	}
	err = a.request(http.MethodPost, fmt.Sprintf("users/%s/remove-2fa", user.ID), nil, nil)
	a.invalidateIndex()
	return err
}
