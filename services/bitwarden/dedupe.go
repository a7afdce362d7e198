package bitwarden

import (
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
)

// DeduplicateCollections merges collections that share a decrypted name
// within one organization. For each duplicated name the surviving primary
// is the collection with the most distinct users at the time of iteration
// (ties go to the LAST maximal count encountered — the comparison is >=,
// preserved deliberately). The primary's access list is overwritten with
// the union of all grants across the group, every vault item referencing a
// duplicate is re-pointed at the primary, and the duplicates are deleted.
//
// The first failing step aborts the whole run. There is no rollback:
// partial reassignment may persist and a later run picks up where this one
// stopped. Running it on an already-deduplicated organization is a no-op.
func (c *Client) DeduplicateCollections(orgID uuid.UUID) error {
	org, err := c.Organization(orgID)
	if err != nil {
		return err
	}
	collections, err := org.Collections(true)
	if err != nil {
		return err
	}

	// Group by decrypted name, keeping encounter order of both names and
	// group members.
	groups := make(map[string][]*OrganizationCollection)
	var names []string
	for _, coll := range collections {
		if _, seen := groups[coll.Name]; !seen {
			names = append(names, coll.Name)
		}
		groups[coll.Name] = append(groups[coll.Name], coll)
	}

	for _, name := range names {
		group := groups[name]
		if len(group) < 2 {
			continue
		}
		log.Printf("bitwarden: deduplicating %d collections named %q in organization %s", len(group), name, orgID)
		if err := c.mergeCollectionGroup(org, group); err != nil {
			return fmt.Errorf("bitwarden: deduplicate %q: %w", name, err)
		}
	}
	return nil
}

func (c *Client) mergeCollectionGroup(org *Organization, group []*OrganizationCollection) error {
	var primary *OrganizationCollection
	maxUsers := 0
	union := make(map[uuid.UUID]CollectionMember)

	for _, coll := range group {
		members, err := coll.Users()
		if err != nil {
			return err
		}
		if len(members) >= maxUsers {
			primary = coll
			maxUsers = len(members)
		}
		for _, member := range members {
			union[member.ID] = member
		}
	}

	merged := make([]CollectionMember, 0, len(union))
	for _, member := range union {
		merged = append(merged, member)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ID.String() < merged[j].ID.String()
	})
	if err := primary.SetUsers(merged); err != nil {
		return err
	}

	for _, coll := range group {
		if coll == primary {
			continue
		}

		// Fresh item list per duplicate: earlier re-pointing changed
		// memberships.
		ciphers, err := org.CiphersInCollection(coll.ID, true)
		if err != nil {
			return err
		}
		for _, ciph := range ciphers {
			ids := replaceCollectionID(ciph.CollectionIDs, coll.ID, primary.ID)
			if err := ciph.UpdateCollections(ids); err != nil {
				return err
			}
		}

		if err := org.DeleteCollection(coll.ID); err != nil {
			return err
		}
	}
	return nil
}

// replaceCollectionID drops old from the set and adds replacement,
// collapsing duplicates.
func replaceCollectionID(ids []uuid.UUID, old, replacement uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	present := false
	for _, id := range ids {
		if id == old {
			continue
		}
		if id == replacement {
			present = true
		}
		out = append(out, id)
	}
	if !present {
		out = append(out, replacement)
	}
	return out
}
