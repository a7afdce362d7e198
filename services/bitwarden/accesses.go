package bitwarden

import (
	"errors"
	"log"

	"github.com/google/uuid"
)

// OrgAccess pairs an organization handle with the membership record a user
// holds there.
type OrgAccess struct {
	Org    *Organization
	Member *OrganizationUserDetails
}

// UserOrgAccesses discovers, for each claimed organization, the membership
// record the email holds there — through the acting credential. An
// organization the acting credential cannot reach is recorded as a warning
// and skipped rather than failing the whole discovery: the returned flag
// tells the caller the picture is incomplete and lets it decide whether to
// proceed. An organization without a membership for the email is skipped
// silently.
func (c *Client) UserOrgAccesses(email string, orgIDs []uuid.UUID) (map[uuid.UUID]*OrgAccess, bool) {
	accesses := make(map[uuid.UUID]*OrgAccess)
	warned := false

	for _, orgID := range orgIDs {
		org, err := c.Organization(orgID)
		if err != nil {
			log.Printf("bitwarden: organization %s not reachable by acting account: %v", orgID, err)
			warned = true
			continue
		}
		member, err := org.UserSearch(email)
		if errors.Is(err, ErrUserNotFound) {
			continue
		}
		if err != nil {
			log.Printf("bitwarden: members of organization %s not readable by acting account: %v", orgID, err)
			warned = true
			continue
		}
		accesses[orgID] = &OrgAccess{Org: org, Member: member}
	}

	return accesses, warned
}
