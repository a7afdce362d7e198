// Package vaulttest is a stateful in-memory Vaultwarden double for tests:
// it serves the token endpoint with real wrapped key material, the vault
// data API over seeded organizations, and the cookie-authenticated admin
// interface.
package vaulttest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"vaultadmin/internal/keycrypt"
	"vaultadmin/models"
)

// Low iteration count keeps the PBKDF2 derivation cheap in tests.
const testIterations = 1000

// Server is the fake vault server plus the seeded state behind it.
type Server struct {
	URL string

	Email        string
	Password     string
	ClientID     string
	ClientSecret string
	AdminToken   string
	ExpiresIn    int

	UserKey *keycrypt.SymmetricKey
	RSAKey  *rsa.PrivateKey

	LoginCalls      int
	RefreshCalls    int
	AdminLoginCalls int
	Writes          []string

	Orgs  []*Org
	Users []*AdminUser

	wrappedUserKey    string
	wrappedPrivateKey string
	accessCounter     int

	httpServer *httptest.Server
	t          *testing.T
}

// Org is one seeded organization.
type Org struct {
	ID           uuid.UUID
	Name         string
	Key          *keycrypt.SymmetricKey
	Forbidden    bool // every data endpoint answers 403
	NotInProfile bool // omitted from the acting account's sync profile

	Collections []*Collection
	Members     []*Member
	Ciphers     []*Cipher

	wrappedKey string
}

// Collection is one seeded collection with its access list.
type Collection struct {
	ID     uuid.UUID
	Name   string
	Access []Access
}

// Access is one collection access grant, keyed by membership id.
type Access struct {
	MemberID      uuid.UUID
	ReadOnly      bool
	HidePasswords bool
}

// Member is one seeded organization membership.
type Member struct {
	ID        uuid.UUID
	Email     string
	Status    models.OrganizationUserStatus
	Type      models.OrganizationUserType
	AccessAll bool
	Grants    []Access // Access.MemberID reused as collection id here
	TwoFactor bool
}

// Cipher is one seeded vault item.
type Cipher struct {
	ID            uuid.UUID
	Name          string
	Type          models.CipherType
	CollectionIDs []uuid.UUID
}

// AdminUser is one account visible to the admin interface.
type AdminUser struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Enabled   bool
	TwoFactor bool
	Orgs      []*Org
}

// NewServer builds the fake with fresh key material and starts it.
func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		Email:        "admin@example.com",
		Password:     "correct horse battery staple",
		ClientID:     "user.11111111-2222-3333-4444-555555555555",
		ClientSecret: "secret",
		AdminToken:   "admin-secret-token",
		ExpiresIn:    3600,
		t:            t,
	}

	master, err := keycrypt.MasterKey(s.Password, s.Email, models.KdfPBKDF2, testIterations, 0, 0)
	if err != nil {
		t.Fatalf("vaulttest: master key: %v", err)
	}
	stretched, err := keycrypt.StretchKey(master)
	if err != nil {
		t.Fatalf("vaulttest: stretch key: %v", err)
	}
	if s.UserKey, err = keycrypt.GenerateSymmetricKey(); err != nil {
		t.Fatalf("vaulttest: user key: %v", err)
	}
	wrappedUser, err := keycrypt.EncryptSymmetric(s.UserKey.Bytes(), stretched)
	if err != nil {
		t.Fatalf("vaulttest: wrap user key: %v", err)
	}
	s.wrappedUserKey = wrappedUser.String()

	if s.RSAKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
		t.Fatalf("vaulttest: rsa key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(s.RSAKey)
	if err != nil {
		t.Fatalf("vaulttest: marshal rsa key: %v", err)
	}
	wrappedPriv, err := keycrypt.EncryptSymmetric(der, s.UserKey)
	if err != nil {
		t.Fatalf("vaulttest: wrap private key: %v", err)
	}
	s.wrappedPrivateKey = wrappedPriv.String()

	s.httpServer = httptest.NewServer(s.router())
	s.URL = s.httpServer.URL
	t.Cleanup(s.httpServer.Close)
	return s
}

// AddOrg seeds an organization with its own symmetric key.
func (s *Server) AddOrg(name string) *Org {
	key, err := keycrypt.GenerateSymmetricKey()
	if err != nil {
		s.t.Fatalf("vaulttest: org key: %v", err)
	}
	wrapped, err := keycrypt.EncryptWithPublicKey(key.Bytes(), &s.RSAKey.PublicKey)
	if err != nil {
		s.t.Fatalf("vaulttest: wrap org key: %v", err)
	}
	org := &Org{ID: uuid.New(), Name: name, Key: key, wrappedKey: wrapped.String()}
	s.Orgs = append(s.Orgs, org)
	return org
}

// AddCollection seeds a collection granting access to the given memberships.
func (o *Org) AddCollection(name string, memberIDs ...uuid.UUID) *Collection {
	coll := &Collection{ID: uuid.New(), Name: name}
	for _, id := range memberIDs {
		coll.Access = append(coll.Access, Access{MemberID: id})
	}
	o.Collections = append(o.Collections, coll)
	return coll
}

// AddMember seeds a confirmed membership with grants on the given
// collections.
func (o *Org) AddMember(email string, typ models.OrganizationUserType, accessAll bool, collectionIDs ...uuid.UUID) *Member {
	m := &Member{
		ID:        uuid.New(),
		Email:     email,
		Status:    models.OrgUserStatusConfirmed,
		Type:      typ,
		AccessAll: accessAll,
	}
	for _, id := range collectionIDs {
		m.Grants = append(m.Grants, Access{MemberID: id})
	}
	o.Members = append(o.Members, m)
	return m
}

// AddCipher seeds a vault item in the given collections.
func (o *Org) AddCipher(name string, collectionIDs ...uuid.UUID) *Cipher {
	c := &Cipher{ID: uuid.New(), Name: name, Type: models.CipherTypeLogin, CollectionIDs: collectionIDs}
	o.Ciphers = append(o.Ciphers, c)
	return c
}

// AddAdminUser seeds an enabled account with the given org memberships.
func (s *Server) AddAdminUser(email string, orgs ...*Org) *AdminUser {
	u := &AdminUser{ID: uuid.New(), Email: email, Name: email, Enabled: true, Orgs: orgs}
	s.Users = append(s.Users, u)
	return u
}

// FindAdminUser returns the seeded account with the email, or nil.
func (s *Server) FindAdminUser(email string) *AdminUser {
	for _, u := range s.Users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

// CountWrites returns how many mutating requests hit the exact method+path.
func (s *Server) CountWrites(method, path string) int {
	want := method + " " + path
	n := 0
	for _, w := range s.Writes {
		if w == want {
			n++
		}
	}
	return n
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/identity/connect/token", s.handleToken).Methods(http.MethodPost)
	r.HandleFunc("/api/sync", s.handleSync).Methods(http.MethodGet)

	r.HandleFunc("/api/organizations/{org}", s.orgHandler(s.handleGetOrg)).Methods(http.MethodGet)
	r.HandleFunc("/api/organizations/{org}/collections", s.orgHandler(s.handleListCollections)).Methods(http.MethodGet)
	r.HandleFunc("/api/organizations/{org}/collections", s.orgHandler(s.handleCreateCollection)).Methods(http.MethodPost)
	r.HandleFunc("/api/organizations/{org}/collections/{coll}", s.orgHandler(s.handleDeleteCollection)).Methods(http.MethodDelete)
	r.HandleFunc("/api/organizations/{org}/collections/{coll}/users", s.orgHandler(s.handleCollectionUsers)).Methods(http.MethodGet)
	r.HandleFunc("/api/organizations/{org}/collections/{coll}/users", s.orgHandler(s.handleSetCollectionUsers)).Methods(http.MethodPut)
	r.HandleFunc("/api/organizations/{org}/users", s.orgHandler(s.handleListMembers)).Methods(http.MethodGet)
	r.HandleFunc("/api/organizations/{org}/users/invite", s.orgHandler(s.handleInviteMember)).Methods(http.MethodPost)
	r.HandleFunc("/api/organizations/{org}/users/{member}", s.orgHandler(s.handleGetMember)).Methods(http.MethodGet)
	r.HandleFunc("/api/organizations/{org}/users/{member}", s.orgHandler(s.handleUpdateMember)).Methods(http.MethodPost)
	r.HandleFunc("/api/organizations/{org}/users/{member}", s.orgHandler(s.handleDeleteMember)).Methods(http.MethodDelete)

	r.HandleFunc("/api/ciphers/organization-details", s.handleOrgCiphers).Methods(http.MethodGet)
	r.HandleFunc("/api/ciphers/{cipher}/collections", s.handleCipherCollections).Methods(http.MethodPost)
	r.HandleFunc("/api/ciphers/{cipher}", s.handleDeleteCipher).Methods(http.MethodDelete)

	r.HandleFunc("/admin", s.handleAdminLogin).Methods(http.MethodPost)
	r.HandleFunc("/admin/users", s.adminHandler(s.handleAdminUsers)).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id}", s.adminHandler(s.handleAdminGetUser)).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id}/{action}", s.adminHandler(s.handleAdminUserAction)).Methods(http.MethodPost)
	r.HandleFunc("/admin/invite", s.adminHandler(s.handleAdminInvite)).Methods(http.MethodPost)

	return s.recordWrites(r)
}

func (s *Server) recordWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			s.Writes = append(s.Writes, r.Method+" "+r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	switch r.PostFormValue("grant_type") {
	case "client_credentials":
		if r.PostFormValue("client_id") != s.ClientID || r.PostFormValue("client_secret") != s.ClientSecret {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_client"})
			return
		}
		s.LoginCalls++
	case "refresh_token":
		if r.PostFormValue("refresh_token") != "refresh-token-1" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
			return
		}
		s.RefreshCalls++
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unsupported_grant_type"})
		return
	}

	s.accessCounter++
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  s.mintAccessToken(),
		"refresh_token": "refresh-token-1",
		"expires_in":    s.ExpiresIn,
		"token_type":    "Bearer",
		"scope":         "api",
		"Key":           s.wrappedUserKey,
		"PrivateKey":    s.wrappedPrivateKey,
		"Kdf":           0,
		"KdfIterations": testIterations,
	})
}

func (s *Server) mintAccessToken() string {
	claims := jwt.MapClaims{
		"sub":     "11111111-2222-3333-4444-555555555555",
		"email":   s.Email,
		"name":    "Acting Admin",
		"premium": true,
		"jti":     fmt.Sprintf("access-%d", s.accessCounter),
		"exp":     time.Now().Add(time.Duration(s.ExpiresIn) * time.Second).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("vaulttest-signing-key"))
	if err != nil {
		s.t.Fatalf("vaulttest: mint token: %v", err)
	}
	return token
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if !s.requireBearer(w, r) {
		return
	}

	orgs := []map[string]any{}
	for _, org := range s.Orgs {
		if org.NotInProfile || org.Forbidden {
			continue
		}
		orgs = append(orgs, map[string]any{
			"Id":      org.ID,
			"Name":    org.Name,
			"Key":     org.wrappedKey,
			"Status":  2,
			"Type":    0,
			"Enabled": true,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"Ciphers":     []any{},
		"Collections": []any{},
		"Folders":     []any{},
		"Policies":    []any{},
		"Sends":       []any{},
		"Profile": map[string]any{
			"Id":            "11111111-2222-3333-4444-555555555555",
			"Email":         s.Email,
			"Name":          "Acting Admin",
			"Key":           s.wrappedUserKey,
			"Organizations": orgs,
			"_Status":       0,
			"SecurityStamp": "stamp",
		},
	})
}

// orgHandler resolves the organization and enforces the Forbidden flag.
func (s *Server) orgHandler(next func(http.ResponseWriter, *http.Request, *Org)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireBearer(w, r) {
			return
		}
		id, err := uuid.Parse(mux.Vars(r)["org"])
		if err != nil {
			http.Error(w, "bad organization id", http.StatusBadRequest)
			return
		}
		for _, org := range s.Orgs {
			if org.ID == id {
				if org.Forbidden {
					http.Error(w, "insufficient permissions", http.StatusForbidden)
					return
				}
				next(w, r, org)
				return
			}
		}
		http.Error(w, "organization not found", http.StatusNotFound)
	}
}

func (s *Server) handleGetOrg(w http.ResponseWriter, _ *http.Request, org *Org) {
	writeJSON(w, http.StatusOK, map[string]any{"Id": org.ID, "Name": org.Name, "Object": "organization"})
}

func (s *Server) encryptName(org *Org, name string) string {
	cs, err := keycrypt.EncryptSymmetric([]byte(name), org.Key)
	if err != nil {
		s.t.Fatalf("vaulttest: encrypt name: %v", err)
	}
	return cs.String()
}

func (s *Server) decryptName(org *Org, encrypted string) string {
	cs, err := keycrypt.ParseCipherString(encrypted)
	if err != nil {
		s.t.Fatalf("vaulttest: parse name: %v", err)
	}
	plain, err := keycrypt.DecryptSymmetric(cs, org.Key)
	if err != nil {
		s.t.Fatalf("vaulttest: decrypt name: %v", err)
	}
	return string(plain)
}

func (s *Server) handleListCollections(w http.ResponseWriter, _ *http.Request, org *Org) {
	data := []map[string]any{}
	for _, coll := range org.Collections {
		data = append(data, map[string]any{
			"Id":             coll.ID,
			"OrganizationId": org.ID,
			"Name":           s.encryptName(org, coll.Name),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"Data": data, "Object": "list"})
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request, org *Org) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	coll := &Collection{ID: uuid.New(), Name: s.decryptName(org, payload.Name)}
	org.Collections = append(org.Collections, coll)
	writeJSON(w, http.StatusOK, map[string]any{
		"Id":             coll.ID,
		"OrganizationId": org.ID,
		"Name":           payload.Name,
	})
}

func (org *Org) findCollection(id uuid.UUID) *Collection {
	for _, coll := range org.Collections {
		if coll.ID == id {
			return coll
		}
	}
	return nil
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request, org *Org) {
	id, _ := uuid.Parse(mux.Vars(r)["coll"])
	for i, coll := range org.Collections {
		if coll.ID == id {
			org.Collections = append(org.Collections[:i], org.Collections[i+1:]...)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	http.Error(w, "collection not found", http.StatusNotFound)
}

func accessJSON(list []Access) []map[string]any {
	out := []map[string]any{}
	for _, a := range list {
		out = append(out, map[string]any{
			"Id":            a.MemberID,
			"ReadOnly":      a.ReadOnly,
			"HidePasswords": a.HidePasswords,
		})
	}
	return out
}

func (s *Server) handleCollectionUsers(w http.ResponseWriter, r *http.Request, org *Org) {
	id, _ := uuid.Parse(mux.Vars(r)["coll"])
	coll := org.findCollection(id)
	if coll == nil {
		http.Error(w, "collection not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, accessJSON(coll.Access))
}

func (s *Server) handleSetCollectionUsers(w http.ResponseWriter, r *http.Request, org *Org) {
	id, _ := uuid.Parse(mux.Vars(r)["coll"])
	coll := org.findCollection(id)
	if coll == nil {
		http.Error(w, "collection not found", http.StatusNotFound)
		return
	}
	var payload []struct {
		ID            uuid.UUID `json:"id"`
		ReadOnly      bool      `json:"readOnly"`
		HidePasswords bool      `json:"hidePasswords"`
	}
	if err := decodeBody(r, &payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	coll.Access = nil
	for _, entry := range payload {
		coll.Access = append(coll.Access, Access{MemberID: entry.ID, ReadOnly: entry.ReadOnly, HidePasswords: entry.HidePasswords})
	}
	w.WriteHeader(http.StatusOK)
}

func memberJSON(org *Org, m *Member) map[string]any {
	grants := []map[string]any{}
	for _, g := range m.Grants {
		grants = append(grants, map[string]any{
			"Id":            g.MemberID,
			"ReadOnly":      g.ReadOnly,
			"HidePasswords": g.HidePasswords,
		})
	}
	return map[string]any{
		"Id":               m.ID,
		"OrganizationId":   org.ID,
		"Email":            m.Email,
		"Status":           int(m.Status),
		"Type":             int(m.Type),
		"AccessAll":        m.AccessAll,
		"Collections":      grants,
		"TwoFactorEnabled": m.TwoFactor,
	}
}

func (s *Server) handleListMembers(w http.ResponseWriter, _ *http.Request, org *Org) {
	data := []map[string]any{}
	for _, m := range org.Members {
		data = append(data, memberJSON(org, m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"Data": data, "Object": "list"})
}

func (org *Org) findMember(id uuid.UUID) *Member {
	for _, m := range org.Members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// FindMember returns the membership for an email, or nil.
func (o *Org) FindMember(email string) *Member {
	for _, m := range o.Members {
		if m.Email == email {
			return m
		}
	}
	return nil
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request, org *Org) {
	id, _ := uuid.Parse(mux.Vars(r)["member"])
	m := org.findMember(id)
	if m == nil {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, memberJSON(org, m))
}

type accessPayload struct {
	Collections []struct {
		ID            uuid.UUID `json:"id"`
		ReadOnly      bool      `json:"readOnly"`
		HidePasswords bool      `json:"hidePasswords"`
	} `json:"collections"`
	AccessAll bool `json:"accessAll"`
	Type      int  `json:"type"`
}

func (p accessPayload) grants() []Access {
	out := make([]Access, 0, len(p.Collections))
	for _, c := range p.Collections {
		out = append(out, Access{MemberID: c.ID, ReadOnly: c.ReadOnly, HidePasswords: c.HidePasswords})
	}
	return out
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request, org *Org) {
	id, _ := uuid.Parse(mux.Vars(r)["member"])
	m := org.findMember(id)
	if m == nil {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	var payload accessPayload
	if err := decodeBody(r, &payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m.Grants = payload.grants()
	m.AccessAll = payload.AccessAll
	m.Type = models.OrganizationUserType(payload.Type)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request, org *Org) {
	id, _ := uuid.Parse(mux.Vars(r)["member"])
	for i, m := range org.Members {
		if m.ID == id {
			org.Members = append(org.Members[:i], org.Members[i+1:]...)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	http.Error(w, "member not found", http.StatusNotFound)
}

func (s *Server) handleInviteMember(w http.ResponseWriter, r *http.Request, org *Org) {
	var payload struct {
		Emails []string `json:"emails"`
		accessPayload
	}
	if err := decodeBody(r, &payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, email := range payload.Emails {
		if org.FindMember(email) != nil {
			http.Error(w, "user is already invited", http.StatusBadRequest)
			return
		}
		org.Members = append(org.Members, &Member{
			ID:        uuid.New(),
			Email:     email,
			Status:    models.OrgUserStatusInvited,
			Type:      models.OrganizationUserType(payload.Type),
			AccessAll: payload.AccessAll,
			Grants:    payload.grants(),
		})
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleOrgCiphers(w http.ResponseWriter, r *http.Request) {
	if !s.requireBearer(w, r) {
		return
	}
	id, err := uuid.Parse(r.URL.Query().Get("organizationId"))
	if err != nil {
		http.Error(w, "bad organization id", http.StatusBadRequest)
		return
	}
	for _, org := range s.Orgs {
		if org.ID != id {
			continue
		}
		if org.Forbidden {
			http.Error(w, "insufficient permissions", http.StatusForbidden)
			return
		}
		data := []map[string]any{}
		for _, c := range org.Ciphers {
			data = append(data, map[string]any{
				"Id":             c.ID,
				"OrganizationId": org.ID,
				"Type":           int(c.Type),
				"Name":           s.encryptName(org, c.Name),
				"CollectionIds":  c.CollectionIDs,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"Data": data, "Object": "list"})
		return
	}
	http.Error(w, "organization not found", http.StatusNotFound)
}

func (s *Server) findCipher(id uuid.UUID) *Cipher {
	for _, org := range s.Orgs {
		for _, c := range org.Ciphers {
			if c.ID == id {
				return c
			}
		}
	}
	return nil
}

func (s *Server) handleCipherCollections(w http.ResponseWriter, r *http.Request) {
	if !s.requireBearer(w, r) {
		return
	}
	id, _ := uuid.Parse(mux.Vars(r)["cipher"])
	c := s.findCipher(id)
	if c == nil {
		http.Error(w, "cipher not found", http.StatusNotFound)
		return
	}
	var payload struct {
		CollectionIDs []uuid.UUID `json:"collectionIds"`
	}
	if err := decodeBody(r, &payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.CollectionIDs = payload.CollectionIDs
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteCipher(w http.ResponseWriter, r *http.Request) {
	if !s.requireBearer(w, r) {
		return
	}
	id, _ := uuid.Parse(mux.Vars(r)["cipher"])
	for _, org := range s.Orgs {
		for i, c := range org.Ciphers {
			if c.ID == id {
				org.Ciphers = append(org.Ciphers[:i], org.Ciphers[i+1:]...)
				w.WriteHeader(http.StatusOK)
				return
			}
		}
	}
	http.Error(w, "cipher not found", http.StatusNotFound)
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if r.PostFormValue("token") != s.AdminToken {
		http.Error(w, "invalid admin token", http.StatusUnauthorized)
		return
	}
	s.AdminLoginCalls++
	http.SetCookie(w, &http.Cookie{
		Name:    "VW_ADMIN",
		Value:   fmt.Sprintf("session-%d", s.AdminLoginCalls),
		Path:    "/",
		Expires: time.Now().Add(20 * time.Minute),
	})
	w.WriteHeader(http.StatusOK)
}

// adminHandler enforces the session cookie.
func (s *Server) adminHandler(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("VW_ADMIN"); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func adminUserJSON(u *AdminUser) map[string]any {
	orgs := []map[string]any{}
	for _, org := range u.Orgs {
		orgs = append(orgs, map[string]any{"Id": org.ID, "Name": org.Name, "Object": "organization"})
	}
	status := 0
	if !u.Enabled {
		status = 2
	}
	return map[string]any{
		"Id":               u.ID,
		"Email":            u.Email,
		"Name":             u.Name,
		"UserEnabled":      u.Enabled,
		"TwoFactorEnabled": u.TwoFactor,
		"CreatedAt":        "2024-01-01 00:00:00",
		"Object":           "profile",
		"Organizations":    orgs,
		"_Status":          status,
	}
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, _ *http.Request) {
	data := []map[string]any{}
	for _, u := range s.Users {
		data = append(data, adminUserJSON(u))
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleAdminGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "bad user id", http.StatusBadRequest)
		return
	}
	for _, u := range s.Users {
		if u.ID == id {
			writeJSON(w, http.StatusOK, adminUserJSON(u))
			return
		}
	}
	http.Error(w, "user not found", http.StatusNotFound)
}

func (s *Server) handleAdminUserAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(w, "bad user id", http.StatusBadRequest)
		return
	}
	for i, u := range s.Users {
		if u.ID != id {
			continue
		}
		switch vars["action"] {
		case "delete":
			s.Users = append(s.Users[:i], s.Users[i+1:]...)
			// Account deletion cascades to organization memberships.
			for _, org := range s.Orgs {
				for j, m := range org.Members {
					if m.Email == u.Email {
						org.Members = append(org.Members[:j], org.Members[j+1:]...)
						break
					}
				}
			}
		case "enable":
			u.Enabled = true
		case "disable":
			u.Enabled = false
		case "remove-2fa":
			u.TwoFactor = false
		default:
			http.Error(w, "unknown action", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Error(w, "user not found", http.StatusNotFound)
}

func (s *Server) handleAdminInvite(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if s.FindAdminUser(payload.Email) != nil {
		http.Error(w, "user already exists", http.StatusConflict)
		return
	}
	u := &AdminUser{ID: uuid.New(), Email: payload.Email, Name: payload.Email, Enabled: true}
	s.Users = append(s.Users, u)
	writeJSON(w, http.StatusOK, adminUserJSON(u))
}

func (s *Server) requireBearer(w http.ResponseWriter, r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if len(auth) < len("Bearer ") || auth[:len("Bearer ")] != "Bearer " {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
