// Package cmd contains all CLI commands for vaultadmin.
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"vaultadmin/internal/output"
	"vaultadmin/services/bitwarden"
	"vaultadmin/services/vaultwarden"
)

var (
	cfgFile    string
	logFile    string
	noColor    bool
	assumeYes  bool
	version    = "dev"
	errMissing = errors.New("missing configuration")
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vaultadmin",
	Short: "Vaultwarden administration CLI",
	Long: `vaultadmin manages a Vaultwarden server through its admin interface and
the vault data API: user accounts, organization collections and the
account lifecycle workflows built on them.

Example usage:
  vaultadmin users list                          # List all accounts
  vaultadmin users invite dev@example.com        # Invite a new account
  vaultadmin users reset dev@example.com         # Reset an account, keeping its access
  vaultadmin users transfer old@x.com new@x.com  # Hand rights over to a new account
  vaultadmin org collections <org-id>            # List an organization's collections
  vaultadmin org dedupe <org-id>                 # Merge same-named collections`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI.
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .vaultadmin.yaml)")
	rootCmd.PersistentFlags().String("url", "", "Vaultwarden server URL")
	rootCmd.PersistentFlags().String("admin-token", "", "admin interface secret token")
	rootCmd.PersistentFlags().String("email", "", "acting account email")
	rootCmd.PersistentFlags().String("password", "", "acting account master password")
	rootCmd.PersistentFlags().String("client-id", "", "acting account API client id")
	rootCmd.PersistentFlags().String("client-secret", "", "acting account API client secret")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "assume yes on confirmation prompts")

	_ = viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("url"))
	_ = viper.BindPFlag("server.admin_token", rootCmd.PersistentFlags().Lookup("admin-token"))
	_ = viper.BindPFlag("account.email", rootCmd.PersistentFlags().Lookup("email"))
	_ = viper.BindPFlag("account.password", rootCmd.PersistentFlags().Lookup("password"))
	_ = viper.BindPFlag("account.client_id", rootCmd.PersistentFlags().Lookup("client-id"))
	_ = viper.BindPFlag("account.client_secret", rootCmd.PersistentFlags().Lookup("client-secret"))
}

// initConfig reads the config file and environment. Precedence is flags,
// then VAULTADMIN_* environment variables, then the config file.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".vaultadmin")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("VAULTADMIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	if logFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	return nil
}

func printer() *output.Printer {
	return output.NewPrinter(!noColor)
}

// newAdminClient builds the admin interface client from the configuration.
func newAdminClient() (*vaultwarden.AdminClient, error) {
	url := viper.GetString("server.url")
	token := viper.GetString("server.admin_token")
	if url == "" {
		return nil, fmt.Errorf("%w: server url (--url or VAULTADMIN_SERVER_URL)", errMissing)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: admin token (--admin-token or VAULTADMIN_SERVER_ADMIN_TOKEN)", errMissing)
	}
	return vaultwarden.NewAdmin(url, token)
}

// newVaultClient builds the vault data API client from the configuration.
func newVaultClient() (*bitwarden.Client, error) {
	url := viper.GetString("server.url")
	if url == "" {
		return nil, fmt.Errorf("%w: server url (--url or VAULTADMIN_SERVER_URL)", errMissing)
	}
	return bitwarden.New(url,
		viper.GetString("account.email"),
		viper.GetString("account.password"),
		viper.GetString("account.client_id"),
		viper.GetString("account.client_secret"),
	)
}

// confirm prompts on the terminal unless --yes was given.
func confirm(warning string) bool {
	if assumeYes {
		return true
	}
	printer().Warning("%s", warning)
	fmt.Fprint(os.Stderr, "Proceed anyway? [y/N] ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
