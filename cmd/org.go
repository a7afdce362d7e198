package cmd

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vaultadmin/internal/output"
)

var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Inspect and maintain organizations through the vault API",
}

var orgCollectionsCmd = &cobra.Command{
	Use:   "collections ORG_ID",
	Short: "List an organization's collections with decrypted names",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrgCollections,
}

var orgMembersCmd = &cobra.Command{
	Use:   "members ORG_ID",
	Short: "List an organization's members with their access",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrgMembers,
}

var orgCreateCollectionCmd = &cobra.Command{
	Use:   "create-collection ORG_ID NAME",
	Short: "Create a collection, encrypting the name under the organization key",
	Args:  cobra.ExactArgs(2),
	RunE:  runOrgCreateCollection,
}

var orgDedupeCmd = &cobra.Command{
	Use:   "dedupe ORG_ID",
	Short: "Merge same-named collections into one",
	Long: `Dedupe merges collections that share a decrypted name. Per duplicated
name the collection with the most users survives, its access list becomes
the union of the group's grants, vault items are re-pointed at it, and
the other collections are deleted. Safe to run repeatedly.`,
	Args: cobra.ExactArgs(1),
	RunE: runOrgDedupe,
}

func init() {
	rootCmd.AddCommand(orgCmd)
	orgCmd.AddCommand(orgCollectionsCmd)
	orgCmd.AddCommand(orgMembersCmd)
	orgCmd.AddCommand(orgCreateCollectionCmd)
	orgCmd.AddCommand(orgDedupeCmd)
}

func runOrgCollections(cmd *cobra.Command, args []string) error {
	orgID, err := uuid.Parse(args[0])
	if err != nil {
		return err
	}
	bw, err := newVaultClient()
	if err != nil {
		return err
	}
	org, err := bw.Organization(orgID)
	if err != nil {
		return err
	}
	collections, err := org.Collections(true)
	if err != nil {
		return err
	}

	printer().Info("%d collections in %s", len(collections), org.Name)
	table := output.NewTable([]string{"NAME", "USERS", "ID"})
	for _, coll := range collections {
		members, err := coll.Users()
		if err != nil {
			return err
		}
		table.AddRow([]string{coll.Name, strconv.Itoa(len(members)), coll.ID.String()})
	}
	table.Render()
	return nil
}

func runOrgMembers(cmd *cobra.Command, args []string) error {
	orgID, err := uuid.Parse(args[0])
	if err != nil {
		return err
	}
	bw, err := newVaultClient()
	if err != nil {
		return err
	}
	org, err := bw.Organization(orgID)
	if err != nil {
		return err
	}
	members, err := org.Users(true)
	if err != nil {
		return err
	}

	printer().Info("%d members in %s", len(members), org.Name)
	table := output.NewTable([]string{"EMAIL", "TYPE", "STATUS", "ACCESS ALL", "COLLECTIONS"})
	for _, member := range members {
		table.AddRow([]string{
			member.Email,
			member.Type.String(),
			member.Status.String(),
			strconv.FormatBool(member.AccessAll),
			strconv.Itoa(len(member.Collections)),
		})
	}
	table.Render()
	return nil
}

func runOrgCreateCollection(cmd *cobra.Command, args []string) error {
	orgID, err := uuid.Parse(args[0])
	if err != nil {
		return err
	}
	bw, err := newVaultClient()
	if err != nil {
		return err
	}
	org, err := bw.Organization(orgID)
	if err != nil {
		return err
	}
	coll, err := org.CreateCollection(args[1])
	if err != nil {
		return err
	}
	printer().Success("created collection %q (id %s)", coll.Name, coll.ID)
	return nil
}

func runOrgDedupe(cmd *cobra.Command, args []string) error {
	orgID, err := uuid.Parse(args[0])
	if err != nil {
		return err
	}
	bw, err := newVaultClient()
	if err != nil {
		return err
	}
	if err := bw.DeduplicateCollections(orgID); err != nil {
		return err
	}
	printer().Success("deduplicated collections of organization %s", orgID)
	return nil
}
