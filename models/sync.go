package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProfileOrganization is an organization membership as reported inside the
// authenticated user's profile. Key holds the organization symmetric key
// wrapped with the user's RSA public key.
type ProfileOrganization struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Key     string    `json:"key,omitempty"`
	Status  int       `json:"status"`
	Type    int       `json:"type"`
	Enabled bool      `json:"enabled"`
	Seats   *int      `json:"seats,omitempty"`
}

// UserProfile is the profile section of a sync snapshot.
type UserProfile struct {
	ID                 uuid.UUID             `json:"id"`
	Email              string                `json:"email"`
	EmailVerified      bool                  `json:"emailVerified"`
	Name               string                `json:"name"`
	Key                string                `json:"key"`
	PrivateKey         string                `json:"privateKey,omitempty"`
	MasterPasswordHint string                `json:"masterPasswordHint,omitempty"`
	Organizations      []ProfileOrganization `json:"organizations"`
	Premium            bool                  `json:"premium"`
	TwoFactorEnabled   bool                  `json:"twoFactorEnabled"`
	SecurityStamp      string                `json:"securityStamp"`
	ForcePasswordReset bool                  `json:"forcePasswordReset"`
	Culture            string                `json:"culture,omitempty"`
	Object             string                `json:"object,omitempty"`

	// Vaultwarden reports the account state in a private field, emitted as
	// either "_status" or "_Status".
	Status UserStatus `json:"_status"`
}

// SyncData is the full account snapshot returned by GET api/sync. Only the
// profile is interpreted; the remaining sections are preserved opaquely for
// callers that need pass-through fidelity.
type SyncData struct {
	Ciphers     []json.RawMessage `json:"ciphers"`
	Collections []json.RawMessage `json:"collections"`
	Domains     json.RawMessage   `json:"domains,omitempty"`
	Folders     []json.RawMessage `json:"folders"`
	Policies    []json.RawMessage `json:"policies"`
	Profile     UserProfile       `json:"profile"`
	Sends       []json.RawMessage `json:"sends"`
	Object      string            `json:"object,omitempty"`
}

// UserOrganization is the id+name membership stub attached to admin-side
// user records.
type UserOrganization struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Object string    `json:"object,omitempty"`
}

// VaultwardenUser is a user record from the admin interface. This is a
// distinct identity space from organization membership records: ID here is
// the account id, not a membership id.
type VaultwardenUser struct {
	ID                 uuid.UUID          `json:"id"`
	Email              string             `json:"email"`
	EmailVerified      bool               `json:"emailVerified"`
	Name               string             `json:"name"`
	CreatedAt          string             `json:"createdAt,omitempty"`
	LastActive         string             `json:"lastActive,omitempty"`
	UserEnabled        bool               `json:"userEnabled"`
	TwoFactorEnabled   bool               `json:"twoFactorEnabled"`
	ForcePasswordReset bool               `json:"forcePasswordReset"`
	SecurityStamp      string             `json:"securityStamp,omitempty"`
	Object             string             `json:"object,omitempty"`
	Organizations      []UserOrganization `json:"organizations"`
	Status             UserStatus         `json:"_status"`
}

// EffectiveStatus folds the enabled flag into the reported status: a user
// with UserEnabled false is disabled regardless of the raw status field.
func (u VaultwardenUser) EffectiveStatus() UserStatus {
	if !u.UserEnabled {
		return UserStatusDisabled
	}
	return u.Status
}

// CreatedTime parses the CreatedAt timestamp, returning the zero time when
// absent or unparseable.
func (u VaultwardenUser) CreatedTime() time.Time {
	if u.CreatedAt == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05.000000"} {
		if ts, err := time.Parse(layout, u.CreatedAt); err == nil {
			return ts
		}
	}
	return time.Time{}
}
