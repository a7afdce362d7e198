package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestRootCmd_Help(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"--help"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("root --help failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "vaultadmin") {
		t.Errorf("expected help output to contain 'vaultadmin', got:\n%s", out)
	}
}

func TestRootCmd_SubcommandsList(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"--help"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("root --help failed: %v", err)
	}

	out := buf.String()
	for _, name := range []string{"users", "org", "whoami", "version"} {
		if !strings.Contains(out, name) {
			t.Errorf("expected help output to list %q command, got:\n%s", name, out)
		}
	}
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"nonexistent-command"})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for unknown command, got nil")
	}
}

func TestNewAdminClient_MissingConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	if _, err := newAdminClient(); err == nil {
		t.Fatal("expected error without server url, got nil")
	}

	viper.Set("server.url", "http://vault.local")
	if _, err := newAdminClient(); err == nil {
		t.Fatal("expected error without admin token, got nil")
	}

	viper.Set("server.admin_token", "token")
	if _, err := newAdminClient(); err != nil {
		t.Fatalf("expected admin client, got error: %v", err)
	}
}

func TestConfirm_AssumeYes(t *testing.T) {
	assumeYes = true
	t.Cleanup(func() { assumeYes = false })

	if !confirm("anything") {
		t.Error("expected confirm to return true with --yes")
	}
}
