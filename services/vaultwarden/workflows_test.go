package vaultwarden

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultadmin/internal/vaulttest"
	"vaultadmin/models"
	"vaultadmin/services/bitwarden"
)

func newTestBitwarden(t *testing.T, s *vaulttest.Server) *bitwarden.Client {
	t.Helper()
	c, err := bitwarden.New(s.URL, s.Email, s.Password, s.ClientID, s.ClientSecret)
	require.NoError(t, err)
	return c
}

func TestResetAccountRestoresAccess(t *testing.T) {
	s := vaulttest.NewServer(t)
	org := s.AddOrg("Operations")
	coll := org.AddCollection("Credentials")
	org.AddMember("dave@example.com", models.OrgUserTypeManager, false, coll.ID)
	seeded := s.AddAdminUser("dave@example.com", org)

	a := newTestAdmin(t, s)
	bw := newTestBitwarden(t, s)

	require.NoError(t, a.ResetAccount("dave@example.com", bw, nil))

	// The old account is gone; the membership was recreated as an invite
	// carrying the grants, type and access-all flag it had before.
	assert.Nil(t, s.FindAdminUser("dave@example.com"))
	member := org.FindMember("dave@example.com")
	require.NotNil(t, member)
	assert.NotEqual(t, seeded.ID, member.ID)
	assert.Equal(t, models.OrgUserStatusInvited, member.Status)
	assert.Equal(t, models.OrgUserTypeManager, member.Type)
	assert.False(t, member.AccessAll)
	require.Len(t, member.Grants, 1)
	assert.Equal(t, coll.ID, member.Grants[0].MemberID)
}

func TestResetAccountRequiresConfirmation(t *testing.T) {
	s := vaulttest.NewServer(t)
	org := s.AddOrg("Hidden")
	org.Forbidden = true
	s.AddAdminUser("dave@example.com", org)

	a := newTestAdmin(t, s)
	bw := newTestBitwarden(t, s)

	err := a.ResetAccount("dave@example.com", bw, nil)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.NotNil(t, s.FindAdminUser("dave@example.com"))
}

func TestResetAccountDeclined(t *testing.T) {
	s := vaulttest.NewServer(t)
	org := s.AddOrg("Hidden")
	org.Forbidden = true
	seeded := s.AddAdminUser("dave@example.com", org)

	a := newTestAdmin(t, s)
	bw := newTestBitwarden(t, s)

	var prompted string
	decide := func(warning string) bool {
		prompted = warning
		return false
	}

	err := a.ResetAccount("dave@example.com", bw, decide)
	assert.ErrorIs(t, err, ErrResetDeclined)
	assert.Contains(t, prompted, "dave@example.com")

	// Declining has no side effects: no deletion, no invites.
	assert.NotNil(t, s.FindAdminUser("dave@example.com"))
	assert.Equal(t, 0, s.CountWrites("POST", "/admin/users/"+seeded.ID.String()+"/delete"))
	assert.Equal(t, 0, s.CountWrites("POST", "/admin/invite"))
}

func TestResetAccountConfirmedProceedsPartially(t *testing.T) {
	s := vaulttest.NewServer(t)

	reachable := s.AddOrg("Reachable")
	coll := reachable.AddCollection("Credentials")
	reachable.AddMember("dave@example.com", models.OrgUserTypeUser, false, coll.ID)

	hidden := s.AddOrg("Hidden")
	hidden.Forbidden = true

	s.AddAdminUser("dave@example.com", reachable, hidden)

	a := newTestAdmin(t, s)
	bw := newTestBitwarden(t, s)

	decide := func(string) bool { return true }
	require.NoError(t, a.ResetAccount("dave@example.com", bw, decide))

	assert.Nil(t, s.FindAdminUser("dave@example.com"))
	member := reachable.FindMember("dave@example.com")
	require.NotNil(t, member)
	assert.Equal(t, models.OrgUserStatusInvited, member.Status)
}

func TestResetAccountWithoutMemberships(t *testing.T) {
	s := vaulttest.NewServer(t)
	seeded := s.AddAdminUser("loner@example.com")

	a := newTestAdmin(t, s)
	bw := newTestBitwarden(t, s)

	require.NoError(t, a.ResetAccount("loner@example.com", bw, nil))

	// No organization held a membership: the account was recreated through
	// a plain admin invite.
	recreated := s.FindAdminUser("loner@example.com")
	require.NotNil(t, recreated)
	assert.NotEqual(t, seeded.ID, recreated.ID)
}

func TestResetAccountUnknownUser(t *testing.T) {
	s := vaulttest.NewServer(t)
	a := newTestAdmin(t, s)
	bw := newTestBitwarden(t, s)

	err := a.ResetAccount("ghost@example.com", bw, nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTransferAccountRights(t *testing.T) {
	s := vaulttest.NewServer(t)
	org := s.AddOrg("Operations")
	org.AddMember("old@example.com", models.OrgUserTypeAdmin, true)
	seeded := s.AddAdminUser("old@example.com", org)

	a := newTestAdmin(t, s)
	bw := newTestBitwarden(t, s)

	require.NoError(t, a.TransferAccountRights("old@example.com", "new@example.com", bw))

	// The successor holds the same access: access-all with no explicit
	// collection grants, same member type.
	member := org.FindMember("new@example.com")
	require.NotNil(t, member)
	assert.True(t, member.AccessAll)
	assert.Empty(t, member.Grants)
	assert.Equal(t, models.OrgUserTypeAdmin, member.Type)

	// The previous account is disabled, never deleted.
	require.NotNil(t, s.FindAdminUser("old@example.com"))
	assert.False(t, seeded.Enabled)
	assert.NotNil(t, org.FindMember("old@example.com"))
}

func TestTransferToExistingMemberStillDisables(t *testing.T) {
	s := vaulttest.NewServer(t)
	org := s.AddOrg("Operations")
	coll := org.AddCollection("Credentials")
	org.AddMember("old@example.com", models.OrgUserTypeUser, false, coll.ID)
	existing := org.AddMember("new@example.com", models.OrgUserTypeUser, false)
	seeded := s.AddAdminUser("old@example.com", org)
	s.AddAdminUser("new@example.com", org)

	a := newTestAdmin(t, s)
	bw := newTestBitwarden(t, s)

	// The invite collides with the existing membership; that is a soft
	// failure and the disable still happens.
	require.NoError(t, a.TransferAccountRights("old@example.com", "new@example.com", bw))

	assert.False(t, seeded.Enabled)
	// The existing membership is untouched.
	assert.Empty(t, existing.Grants)
}

func TestTransferWithoutMemberships(t *testing.T) {
	s := vaulttest.NewServer(t)
	seeded := s.AddAdminUser("old@example.com")

	a := newTestAdmin(t, s)
	bw := newTestBitwarden(t, s)

	require.NoError(t, a.TransferAccountRights("old@example.com", "new@example.com", bw))
	assert.NotNil(t, s.FindAdminUser("new@example.com"))
	assert.False(t, seeded.Enabled)

	// A successor that already has an account is tolerated.
	require.NoError(t, a.SetUserEnabled(seeded.ID, true))
	require.NoError(t, a.TransferAccountRights("old@example.com", "new@example.com", bw))
	assert.False(t, seeded.Enabled)
}
