package cmd

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"vaultadmin/internal/output"
	"vaultadmin/services/vaultwarden"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage server accounts through the admin interface",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

var usersGetCmd = &cobra.Command{
	Use:   "get EMAIL|ID",
	Short: "Show one account with its organization memberships",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersGet,
}

var usersInviteCmd = &cobra.Command{
	Use:   "invite EMAIL",
	Short: "Invite a new account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersInvite,
}

var usersEnableCmd = &cobra.Command{
	Use:   "enable EMAIL|ID",
	Short: "Enable a disabled account",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runUsersSetEnabled(args[0], true) },
}

var usersDisableCmd = &cobra.Command{
	Use:   "disable EMAIL|ID",
	Short: "Disable an account and deauthorize its sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runUsersSetEnabled(args[0], false) },
}

var usersRemove2FACmd = &cobra.Command{
	Use:   "remove-2fa EMAIL",
	Short: "Strip an account's two-factor configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersRemove2FA,
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete EMAIL|ID",
	Short: "Delete an account permanently",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersDelete,
}

var usersResetCmd = &cobra.Command{
	Use:   "reset EMAIL",
	Short: "Delete and re-invite an account, restoring its organization access",
	Long: `Reset deletes the account, then re-invites the same email into every
organization it belonged to with the same collection grants, access-all
flag and member type. The account owner sets a fresh master password when
accepting the invitations.

When the acting account cannot see all of the target's organizations the
restored access would be incomplete; the command asks for confirmation
before touching anything (pass --yes to skip the prompt).`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersReset,
}

var usersTransferCmd = &cobra.Command{
	Use:   "transfer OLD_EMAIL NEW_EMAIL",
	Short: "Grant one account's organization access to another, then disable the old one",
	Args:  cobra.ExactArgs(2),
	RunE:  runUsersTransfer,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersGetCmd)
	usersCmd.AddCommand(usersInviteCmd)
	usersCmd.AddCommand(usersEnableCmd)
	usersCmd.AddCommand(usersDisableCmd)
	usersCmd.AddCommand(usersRemove2FACmd)
	usersCmd.AddCommand(usersDeleteCmd)
	usersCmd.AddCommand(usersResetCmd)
	usersCmd.AddCommand(usersTransferCmd)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	admin, err := newAdminClient()
	if err != nil {
		return err
	}
	users, err := admin.GetAllUsers()
	if err != nil {
		return err
	}

	table := output.NewTable([]string{"EMAIL", "NAME", "STATUS", "2FA", "ORGS", "ID"})
	for _, user := range users {
		table.AddRow([]string{
			user.Email,
			user.Name,
			user.EffectiveStatus().String(),
			strconv.FormatBool(user.TwoFactorEnabled),
			strconv.Itoa(len(user.Organizations)),
			user.ID.String(),
		})
	}
	table.Render()
	return nil
}

func runUsersGet(cmd *cobra.Command, args []string) error {
	admin, err := newAdminClient()
	if err != nil {
		return err
	}
	user, err := admin.GetUser(args[0])
	if err != nil {
		return err
	}

	p := printer()
	p.Print("%s %s", p.Bold("Email:"), user.Email)
	p.Print("%s %s", p.Bold("Name:"), user.Name)
	p.Print("%s %s", p.Bold("ID:"), user.ID)
	p.Print("%s %s", p.Bold("Status:"), user.EffectiveStatus())
	p.Print("%s %t", p.Bold("Two-factor:"), user.TwoFactorEnabled)
	if created := user.CreatedTime(); !created.IsZero() {
		p.Print("%s %s", p.Bold("Created:"), created.Format("2006-01-02 15:04:05"))
	}
	if len(user.Organizations) > 0 {
		p.Print("%s", p.Bold("Organizations:"))
		for _, org := range user.Organizations {
			p.Print("  %s (%s)", org.Name, org.ID)
		}
	}
	return nil
}

func runUsersInvite(cmd *cobra.Command, args []string) error {
	admin, err := newAdminClient()
	if err != nil {
		return err
	}
	user, err := admin.Invite(args[0])
	if err != nil {
		return err
	}
	printer().Success("invited %s (id %s)", user.Email, user.ID)
	return nil
}

func runUsersSetEnabled(search string, enabled bool) error {
	admin, err := newAdminClient()
	if err != nil {
		return err
	}
	user, err := admin.GetUser(search)
	if err != nil {
		return err
	}
	if err := admin.SetUserEnabled(user.ID, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	printer().Success("%s %s", state, user.Email)
	return nil
}

func runUsersRemove2FA(cmd *cobra.Command, args []string) error {
	admin, err := newAdminClient()
	if err != nil {
		return err
	}
	if err := admin.Remove2FA(args[0]); err != nil {
		return err
	}
	printer().Success("removed two-factor configuration of %s", args[0])
	return nil
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	admin, err := newAdminClient()
	if err != nil {
		return err
	}
	user, err := admin.GetUser(args[0])
	if err != nil {
		return err
	}
	if !confirm("deleting " + user.Email + " cannot be undone") {
		return errors.New("cancelled")
	}
	if err := admin.Delete(user.ID); err != nil {
		return err
	}
	printer().Success("deleted %s", user.Email)
	return nil
}

func runUsersReset(cmd *cobra.Command, args []string) error {
	admin, err := newAdminClient()
	if err != nil {
		return err
	}
	bw, err := newVaultClient()
	if err != nil {
		return err
	}

	email := args[0]
	err = admin.ResetAccount(email, bw, confirm)
	if errors.Is(err, vaultwarden.ErrResetDeclined) {
		printer().Info("reset of %s cancelled, nothing changed", email)
		return nil
	}
	if err != nil {
		return err
	}
	printer().Success("reset %s: account re-invited with its previous access", email)
	return nil
}

func runUsersTransfer(cmd *cobra.Command, args []string) error {
	admin, err := newAdminClient()
	if err != nil {
		return err
	}
	bw, err := newVaultClient()
	if err != nil {
		return err
	}

	previous, next := args[0], args[1]
	if err := admin.TransferAccountRights(previous, next, bw); err != nil {
		return err
	}
	printer().Success("transferred access of %s to %s; %s is now disabled", previous, next, previous)
	return nil
}
