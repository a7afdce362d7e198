package bitwarden

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"vaultadmin/internal/keycrypt"
	"vaultadmin/models"
)

// dataList is the {"data": [...]} envelope the server wraps list responses
// in.
type dataList[T any] struct {
	Data   []T    `json:"data"`
	Object string `json:"object,omitempty"`
}

// memberQuery asks the server to inline collection and group grants on
// member records.
func memberQuery() url.Values {
	return url.Values{
		"includeCollections": {"true"},
		"includeGroups":      {"true"},
	}
}

// Organization is a typed view over one organization. Collections, members
// and ciphers are fetched lazily and cached per instance; each cache is
// invalidated independently with a forceRefresh flag.
type Organization struct {
	client *Client

	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Object string    `json:"object,omitempty"`

	key         *keycrypt.SymmetricKey
	collections []*OrganizationCollection
	members     []*OrganizationUserDetails
	ciphers     []*CipherDetails
}

// Organization fetches an organization by id and binds it to the client.
func (c *Client) Organization(id uuid.UUID) (*Organization, error) {
	org := &Organization{client: c}
	if err := c.Request(http.MethodGet, fmt.Sprintf("api/organizations/%s", id), nil, nil, org); err != nil {
		return nil, err
	}
	org.ID = id
	return org, nil
}

// Key unwraps and caches the organization symmetric key. The key is located
// by scanning the authenticated profile's organization list for a matching
// id — exactly one or zero entries match, and zero is a lookup failure.
func (o *Organization) Key() (*keycrypt.SymmetricKey, error) {
	if o.key != nil {
		return o.key, nil
	}

	sync, err := o.client.Sync(false)
	if err != nil {
		return nil, err
	}

	var wrapped string
	for _, porg := range sync.Profile.Organizations {
		if porg.ID == o.ID {
			wrapped = porg.Key
			break
		}
	}
	if wrapped == "" {
		return nil, fmt.Errorf("%w: %s not in profile", ErrOrganizationNotFound, o.ID)
	}

	cs, err := keycrypt.ParseCipherString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("bitwarden: organization %s key: %w", o.ID, err)
	}
	raw, err := keycrypt.DecryptWithPrivateKey(cs, o.client.token.orgPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("bitwarden: unwrap organization %s key: %w", o.ID, err)
	}
	key, err := keycrypt.NewSymmetricKey(raw)
	if err != nil {
		return nil, fmt.Errorf("bitwarden: organization %s key: %w", o.ID, err)
	}

	o.key = key
	return o.key, nil
}

// Collections returns the organization's collections with decrypted names,
// from cache unless forceRefresh is set or no snapshot exists yet.
func (o *Organization) Collections(forceRefresh bool) ([]*OrganizationCollection, error) {
	if o.collections != nil && !forceRefresh {
		return o.collections, nil
	}
	collections, err := o.fetchCollections()
	if err != nil {
		return nil, err
	}
	o.collections = collections
	return o.collections, nil
}

func (o *Organization) fetchCollections() ([]*OrganizationCollection, error) {
	var list dataList[*OrganizationCollection]
	path := fmt.Sprintf("api/organizations/%s/collections", o.ID)
	if err := o.client.Request(http.MethodGet, path, nil, nil, &list); err != nil {
		return nil, err
	}

	orgKey, err := o.Key()
	if err != nil {
		return nil, err
	}

	// Names travel encrypted under the organization key; a collection is
	// never handed to callers before its name is decrypted.
	for _, coll := range list.Data {
		coll.client = o.client
		coll.OrganizationID = o.ID
		name, err := decryptName(coll.Name, orgKey)
		if err != nil {
			return nil, fmt.Errorf("bitwarden: collection %s name: %w", coll.ID, err)
		}
		coll.Name = name
	}
	return list.Data, nil
}

// Collection returns the cached collection with the exact decrypted name,
// or ErrCollectionNotFound.
func (o *Organization) Collection(name string) (*OrganizationCollection, error) {
	collections, err := o.Collections(false)
	if err != nil {
		return nil, err
	}
	for _, coll := range collections {
		if coll.Name == name {
			return coll, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in organization %s", ErrCollectionNotFound, name, o.ID)
}

// CreateCollection creates a collection, re-encrypting the plaintext name
// under the organization key, and appends the decrypted result to the
// cache.
func (o *Organization) CreateCollection(name string) (*OrganizationCollection, error) {
	orgKey, err := o.Key()
	if err != nil {
		return nil, err
	}
	encrypted, err := keycrypt.EncryptSymmetric([]byte(name), orgKey)
	if err != nil {
		return nil, fmt.Errorf("bitwarden: encrypt collection name: %w", err)
	}

	payload := struct {
		Name   string `json:"name"`
		Groups []any  `json:"groups"`
		Users  []any  `json:"users"`
	}{Name: encrypted.String(), Groups: []any{}, Users: []any{}}

	coll := &OrganizationCollection{client: o.client, OrganizationID: o.ID}
	path := fmt.Sprintf("api/organizations/%s/collections", o.ID)
	if err := o.client.Request(http.MethodPost, path, nil, payload, coll); err != nil {
		return nil, err
	}
	coll.Name = name

	if o.collections != nil {
		o.collections = append(o.collections, coll)
	}
	return coll, nil
}

// DeleteCollection removes a collection and reloads the collection cache so
// subsequent reads are consistent.
func (o *Organization) DeleteCollection(id uuid.UUID) error {
	path := fmt.Sprintf("api/organizations/%s/collections/%s", o.ID, id)
	if err := o.client.Request(http.MethodDelete, path, nil, nil, nil); err != nil {
		return err
	}
	collections, err := o.fetchCollections()
	if err != nil {
		return err
	}
	o.collections = collections
	return nil
}

// Users returns the organization's member records, from cache unless
// forceRefresh is set or no snapshot exists yet.
func (o *Organization) Users(forceRefresh bool) ([]*OrganizationUserDetails, error) {
	if o.members != nil && !forceRefresh {
		return o.members, nil
	}
	members, err := o.fetchUsers()
	if err != nil {
		return nil, err
	}
	o.members = members
	return o.members, nil
}

func (o *Organization) fetchUsers() ([]*OrganizationUserDetails, error) {
	var list dataList[*OrganizationUserDetails]
	path := fmt.Sprintf("api/organizations/%s/users", o.ID)
	if err := o.client.Request(http.MethodGet, path, memberQuery(), nil, &list); err != nil {
		return nil, err
	}
	for _, member := range list.Data {
		member.client = o.client
		member.OrganizationID = o.ID
	}
	return list.Data, nil
}

// User fetches a single member record directly by membership id.
func (o *Organization) User(id uuid.UUID) (*OrganizationUserDetails, error) {
	member := &OrganizationUserDetails{client: o.client, OrganizationID: o.ID}
	path := fmt.Sprintf("api/organizations/%s/users/%s", o.ID, id)
	if err := o.client.Request(http.MethodGet, path, memberQuery(), nil, member); err != nil {
		return nil, err
	}
	return member, nil
}

// UserSearch finds a member by exact email match over the cached member
// list, populating the cache first when empty. There is no fuzzy matching;
// an absent email is ErrUserNotFound.
func (o *Organization) UserSearch(email string) (*OrganizationUserDetails, error) {
	members, err := o.Users(false)
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		if member.Email == email {
			return member, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in organization %s", ErrUserNotFound, email, o.ID)
}

// InviteOptions carries the access granted to an invited email.
type InviteOptions struct {
	Collections []UserCollection
	AccessAll   bool
	Type        models.OrganizationUserType
}

// Invite sends an organization invitation and refreshes the member cache so
// subsequent reads include the pending membership.
func (o *Organization) Invite(email string, opts InviteOptions) error {
	collections := opts.Collections
	if collections == nil {
		collections = []UserCollection{}
	}
	payload := struct {
		Emails      []string                    `json:"emails"`
		Collections []UserCollection            `json:"collections"`
		Groups      []any                       `json:"groups"`
		AccessAll   bool                        `json:"accessAll"`
		Type        models.OrganizationUserType `json:"type"`
	}{
		Emails:      []string{email},
		Collections: collections,
		Groups:      []any{},
		AccessAll:   opts.AccessAll,
		Type:        opts.Type,
	}

	path := fmt.Sprintf("api/organizations/%s/users/invite", o.ID)
	if err := o.client.Request(http.MethodPost, path, nil, payload, nil); err != nil {
		return err
	}

	members, err := o.fetchUsers()
	if err != nil {
		return err
	}
	o.members = members
	return nil
}

// Ciphers returns the organization's vault items with decrypted names, from
// cache unless forceRefresh is set or no snapshot exists yet.
func (o *Organization) Ciphers(forceRefresh bool) ([]*CipherDetails, error) {
	if o.ciphers != nil && !forceRefresh {
		return o.ciphers, nil
	}
	ciphers, err := o.fetchCiphers()
	if err != nil {
		return nil, err
	}
	o.ciphers = ciphers
	return o.ciphers, nil
}

func (o *Organization) fetchCiphers() ([]*CipherDetails, error) {
	var list dataList[*CipherDetails]
	query := url.Values{"organizationId": {o.ID.String()}}
	if err := o.client.Request(http.MethodGet, "api/ciphers/organization-details", query, nil, &list); err != nil {
		return nil, err
	}

	orgKey, err := o.Key()
	if err != nil {
		return nil, err
	}
	for _, ciph := range list.Data {
		ciph.client = o.client
		ciph.OrganizationID = o.ID
		name, err := decryptName(ciph.Name, orgKey)
		if err != nil {
			return nil, fmt.Errorf("bitwarden: cipher %s name: %w", ciph.ID, err)
		}
		ciph.Name = name
	}
	return list.Data, nil
}

// CiphersInCollection filters the organization's ciphers to those
// referencing the given collection.
func (o *Organization) CiphersInCollection(collectionID uuid.UUID, forceRefresh bool) ([]*CipherDetails, error) {
	ciphers, err := o.Ciphers(forceRefresh)
	if err != nil {
		return nil, err
	}
	var filtered []*CipherDetails
	for _, ciph := range ciphers {
		for _, id := range ciph.CollectionIDs {
			if id == collectionID {
				filtered = append(filtered, ciph)
				break
			}
		}
	}
	return filtered, nil
}

// decryptName opens an encrypted name field with the organization key.
func decryptName(encrypted string, key *keycrypt.SymmetricKey) (string, error) {
	cs, err := keycrypt.ParseCipherString(encrypted)
	if err != nil {
		return "", err
	}
	plain, err := keycrypt.DecryptSymmetric(cs, key)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
