package bitwarden

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"vaultadmin/models"
)

// UserCollection is one collection grant on a member record.
type UserCollection struct {
	CollectionID  uuid.UUID `json:"id"`
	ReadOnly      bool      `json:"readOnly"`
	HidePasswords bool      `json:"hidePasswords"`
}

// OrganizationUserDetails is a typed view over one organization membership.
// ID is the membership id (distinct from the account id in UserID). The
// collection grant list is the unit of mutation: every write serializes
// exactly {collections, groups, accessAll, type}.
type OrganizationUserDetails struct {
	client *Client

	ID               uuid.UUID                     `json:"id"`
	UserID           *uuid.UUID                    `json:"userId,omitempty"`
	OrganizationID   uuid.UUID                     `json:"organizationId"`
	Email            string                        `json:"email"`
	Status           models.OrganizationUserStatus `json:"status"`
	Type             models.OrganizationUserType   `json:"type"`
	AccessAll        bool                          `json:"accessAll"`
	ExternalID       string                        `json:"externalId,omitempty"`
	ResetPasswordKey string                        `json:"resetPasswordEnrolled,omitempty"`
	Collections      []UserCollection              `json:"collections"`
	Groups           []uuid.UUID                   `json:"groups,omitempty"`
	TwoFactorEnabled bool                          `json:"twoFactorEnabled"`
}

// AddCollections grants the given collections. Adding an already-present id
// is a no-op on the grant list, but the write is still issued so the
// operation stays a plain idempotent set update.
func (m *OrganizationUserDetails) AddCollections(ids []uuid.UUID) error {
	m.Collections = mergeGrants(m.Collections, ids)
	return m.pushAccess()
}

// RemoveCollections revokes the given collections; absent ids are no-ops on
// the grant list, and the write is still issued.
func (m *OrganizationUserDetails) RemoveCollections(ids []uuid.UUID) error {
	m.Collections = filterGrants(m.Collections, ids)
	return m.pushAccess()
}

// UpdateCollections replaces the grant list with exactly the given ids.
func (m *OrganizationUserDetails) UpdateCollections(ids []uuid.UUID) error {
	grants := make([]UserCollection, 0, len(ids))
	for _, id := range ids {
		grants = append(grants, UserCollection{CollectionID: id})
	}
	m.Collections = grants
	return m.pushAccess()
}

// AddCollectionsIfMissing is the short-circuiting variant kept for callers
// of the legacy invite helper: when every id is already granted it returns
// false without issuing any request.
func (m *OrganizationUserDetails) AddCollectionsIfMissing(ids []uuid.UUID) (bool, error) {
	merged := mergeGrants(m.Collections, ids)
	if len(merged) == len(m.Collections) {
		return false, nil
	}
	m.Collections = merged
	return true, m.pushAccess()
}

// RemoveCollectionsIfPresent short-circuits analogously for removal: no
// request is issued unless at least one id is currently granted.
func (m *OrganizationUserDetails) RemoveCollectionsIfPresent(ids []uuid.UUID) (bool, error) {
	filtered := filterGrants(m.Collections, ids)
	if len(filtered) == len(m.Collections) {
		return false, nil
	}
	m.Collections = filtered
	return true, m.pushAccess()
}

// pushAccess writes the member's current access state back to the server.
func (m *OrganizationUserDetails) pushAccess() error {
	groups := m.Groups
	if groups == nil {
		groups = []uuid.UUID{}
	}
	payload := struct {
		Collections []UserCollection            `json:"collections"`
		Groups      []uuid.UUID                 `json:"groups"`
		AccessAll   bool                        `json:"accessAll"`
		Type        models.OrganizationUserType `json:"type"`
	}{
		Collections: m.Collections,
		Groups:      groups,
		AccessAll:   m.AccessAll,
		Type:        m.Type,
	}
	path := fmt.Sprintf("api/organizations/%s/users/%s", m.OrganizationID, m.ID)
	return m.client.Request(http.MethodPost, path, nil, payload, nil)
}

// Delete removes the membership from the organization.
func (m *OrganizationUserDetails) Delete() error {
	path := fmt.Sprintf("api/organizations/%s/users/%s", m.OrganizationID, m.ID)
	return m.client.Request(http.MethodDelete, path, nil, nil, nil)
}

func mergeGrants(current []UserCollection, ids []uuid.UUID) []UserCollection {
	merged := append([]UserCollection{}, current...)
	for _, id := range ids {
		present := false
		for _, grant := range merged {
			if grant.CollectionID == id {
				present = true
				break
			}
		}
		if !present {
			merged = append(merged, UserCollection{CollectionID: id})
		}
	}
	return merged
}

func filterGrants(current []UserCollection, ids []uuid.UUID) []UserCollection {
	filtered := make([]UserCollection, 0, len(current))
	for _, grant := range current {
		drop := false
		for _, id := range ids {
			if grant.CollectionID == id {
				drop = true
				break
			}
		}
		if !drop {
			filtered = append(filtered, grant)
		}
	}
	return filtered
}
