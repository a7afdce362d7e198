package cmd

import (
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity behind the configured API credentials",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	bw, err := newVaultClient()
	if err != nil {
		return err
	}
	claims, err := bw.AuthenticatedUser()
	if err != nil {
		return err
	}

	p := printer()
	p.Print("%s %s", p.Bold("Email:"), claims.Email)
	p.Print("%s %s", p.Bold("Name:"), claims.Name)
	p.Print("%s %s", p.Bold("User ID:"), claims.Subject)
	p.Print("%s %t", p.Bold("Premium:"), claims.Premium)
	return nil
}
