package bitwarden

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// OrganizationCollection is a typed view over one collection. Name holds
// the decrypted plaintext; it is never serialized back without
// re-encryption. Instances are always constructed by their parent
// organization, which hands them the client and organization id explicitly.
type OrganizationCollection struct {
	client *Client

	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Name           string    `json:"name"`
	ExternalID     string    `json:"externalId,omitempty"`
}

// CollectionMember is one entry of a collection's access list. ID is the
// organization membership id of the user holding the grant.
type CollectionMember struct {
	ID            uuid.UUID `json:"id"`
	ReadOnly      bool      `json:"readOnly"`
	HidePasswords bool      `json:"hidePasswords"`
}

// Users fetches the collection's access list.
func (cl *OrganizationCollection) Users() ([]CollectionMember, error) {
	var members []CollectionMember
	path := fmt.Sprintf("api/organizations/%s/collections/%s/users", cl.OrganizationID, cl.ID)
	if err := cl.client.Request(http.MethodGet, path, memberQuery(), nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// SetUsers overwrites the collection's access list with the given grants.
func (cl *OrganizationCollection) SetUsers(members []CollectionMember) error {
	if members == nil {
		members = []CollectionMember{}
	}
	path := fmt.Sprintf("api/organizations/%s/collections/%s/users", cl.OrganizationID, cl.ID)
	return cl.client.Request(http.MethodPut, path, nil, members, nil)
}

// Delete removes the collection. Callers that hold the parent organization
// should prefer Organization.DeleteCollection, which also reloads the
// collection cache.
func (cl *OrganizationCollection) Delete() error {
	path := fmt.Sprintf("api/organizations/%s/collections/%s", cl.OrganizationID, cl.ID)
	return cl.client.Request(http.MethodDelete, path, nil, nil, nil)
}
