package vaultwarden

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"vaultadmin/models"
	"vaultadmin/services/bitwarden"
)

var (
	// ErrConfirmationRequired is returned when a workflow needs an explicit
	// go-ahead but no decision function was supplied.
	ErrConfirmationRequired = errors.New("vaultwarden: confirmation required to proceed")

	// ErrResetDeclined is returned when the supplied decision function
	// declined the reset; no side effects have happened.
	ErrResetDeclined = errors.New("vaultwarden: account reset declined")
)

// DecisionFunc resolves a confirmation request raised by a workflow. It
// receives the warning text and returns whether to proceed. Workflows never
// read the console themselves; interactive callers plug a prompt in here.
type DecisionFunc func(warning string) bool

// Both workflows run the same forward-only state machine:
// discover organizations -> (confirm, reset only) -> mutate the target
// account -> re-grant on the new identity. Once the mutation step starts
// there is no rollback.

// ResetAccount deletes the account behind email and re-invites the same
// email with the access it held before: per accessible organization, the
// identical collection grants, access-all flag and member type. When the
// acting credential could not reach every claimed organization the picture
// is incomplete, and the workflow asks decide before doing anything; a nil
// decide aborts with ErrConfirmationRequired, a declining decide with
// ErrResetDeclined — both without side effects.
func (a *AdminClient) ResetAccount(email string, bw *bitwarden.Client, decide DecisionFunc) error {
	user, err := a.GetUser(email)
	if err != nil {
		return err
	}

	accesses, warned := bw.UserOrgAccesses(email, membershipIDs(user))
	if warned {
		warning := fmt.Sprintf("some organizations of %s are not reachable by the acting account; their access cannot be restored after the reset", email)
		if decide == nil {
			return fmt.Errorf("%w: %s", ErrConfirmationRequired, warning)
		}
		if !decide(warning) {
			log.Printf("vaultwarden: reset of %s cancelled", email)
			return fmt.Errorf("%w: %s", ErrResetDeclined, email)
		}
		log.Printf("vaultwarden: resetting %s despite incomplete access information", email)
	}

	if err := a.Delete(user.ID); err != nil {
		return err
	}

	if len(accesses) == 0 {
		// No accessible organization held a membership: plain re-invite.
		if _, err := a.Invite(email); err != nil {
			return err
		}
		return nil
	}
	reinvite(accesses, email)
	return nil
}

// TransferAccountRights grants newEmail the organization access that
// previousEmail holds, then disables (never deletes) the previous account.
// Unreachable organizations are logged, not confirmed: the transfer always
// proceeds. The disable is unconditional once the invite pass completes,
// even when individual invites failed to grant anything.
func (a *AdminClient) TransferAccountRights(previousEmail, newEmail string, bw *bitwarden.Client) error {
	user, err := a.GetUser(previousEmail)
	if err != nil {
		return err
	}

	accesses, warned := bw.UserOrgAccesses(previousEmail, membershipIDs(user))
	if warned {
		log.Printf("vaultwarden: some organizations of %s are not reachable by the acting account; their access will not transfer", previousEmail)
	}

	if len(accesses) == 0 {
		if _, err := a.Invite(newEmail); err != nil && !errors.Is(err, ErrUserExists) {
			return err
		}
	} else {
		reinvite(accesses, newEmail)
	}

	return a.SetUserEnabled(user.ID, false)
}

// reinvite grants email the recorded access in every discovered
// organization. Inviting an email that is already a member is a soft
// failure: logged and skipped, never raised, so the remaining grants and
// the caller's follow-up mutation still happen.
func reinvite(accesses map[uuid.UUID]*bitwarden.OrgAccess, email string) {
	for orgID, access := range accesses {
		opts := bitwarden.InviteOptions{
			Collections: access.Member.Collections,
			AccessAll:   access.Member.AccessAll,
			Type:        access.Member.Type,
		}
		if err := access.Org.Invite(email, opts); err != nil {
			log.Printf("vaultwarden: invite of %s into organization %s failed (already a member?): %v", email, orgID, err)
		}
	}
}

func membershipIDs(user *models.VaultwardenUser) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(user.Organizations))
	for _, org := range user.Organizations {
		ids = append(ids, org.ID)
	}
	return ids
}
