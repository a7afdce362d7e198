package bitwarden

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"vaultadmin/models"
)

// CipherDetails is a typed view over one vault item. Name holds the
// decrypted plaintext. Collection membership is the unit of mutation.
type CipherDetails struct {
	client *Client

	ID             uuid.UUID         `json:"id"`
	OrganizationID uuid.UUID         `json:"organizationId"`
	Type           models.CipherType `json:"type"`
	Name           string            `json:"name"`
	CollectionIDs  []uuid.UUID       `json:"collectionIds"`
}

// AddCollections adds the item to the given collections. Already-present
// ids collapse via set semantics; the write is still issued.
func (ci *CipherDetails) AddCollections(ids []uuid.UUID) error {
	current := ci.CollectionIDs
	for _, id := range ids {
		present := false
		for _, existing := range current {
			if existing == id {
				present = true
				break
			}
		}
		if !present {
			current = append(current, id)
		}
	}
	ci.CollectionIDs = current
	return ci.pushCollections()
}

// RemoveCollections removes the item from the given collections; absent ids
// are no-ops on the list, and the write is still issued.
func (ci *CipherDetails) RemoveCollections(ids []uuid.UUID) error {
	filtered := make([]uuid.UUID, 0, len(ci.CollectionIDs))
	for _, existing := range ci.CollectionIDs {
		drop := false
		for _, id := range ids {
			if existing == id {
				drop = true
				break
			}
		}
		if !drop {
			filtered = append(filtered, existing)
		}
	}
	ci.CollectionIDs = filtered
	return ci.pushCollections()
}

// UpdateCollections replaces the item's collection membership entirely.
func (ci *CipherDetails) UpdateCollections(ids []uuid.UUID) error {
	ci.CollectionIDs = ids
	return ci.pushCollections()
}

func (ci *CipherDetails) pushCollections() error {
	ids := ci.CollectionIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	payload := struct {
		CollectionIDs []uuid.UUID `json:"collectionIds"`
	}{CollectionIDs: ids}
	path := fmt.Sprintf("api/ciphers/%s/collections", ci.ID)
	return ci.client.Request(http.MethodPost, path, nil, payload, nil)
}

// Delete removes the vault item.
func (ci *CipherDetails) Delete() error {
	return ci.client.Request(http.MethodDelete, fmt.Sprintf("api/ciphers/%s", ci.ID), nil, nil, nil)
}
