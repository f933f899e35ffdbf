package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/polardev/polardev/pkg/polardev/config"
)

// newConfigCmd creates the `polardev config` command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration and credentials",
	}

	cmd.AddCommand(newConfigSetKeyCmd(), newConfigShowCmd())
	return cmd
}

func newConfigSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Store the generation API key in the OS keyring",
		Long: `Read the API key from the terminal (not echoed) and store it in
the operating system's keyring, so it never touches config files.`,
		RunE: runConfigSetKey,
	}
}

func runConfigSetKey(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := buildLogger(cmd, cfg)

	if !config.KeyringAvailable() {
		return fmt.Errorf("OS keyring is not available; set GROQ_API_KEY in the environment instead")
	}

	var key string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print("API key: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading key: %w", err)
		}
		key = strings.TrimSpace(string(raw))
	} else {
		// Piped input for scripted setups.
		var line string
		if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
			return fmt.Errorf("reading key from stdin: %w", err)
		}
		key = strings.TrimSpace(line)
	}

	if key == "" {
		return fmt.Errorf("empty key")
	}

	return config.MigrateKeyToKeyring(key, logger)
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (secrets masked)",
		RunE:  runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("discord:\n")
	fmt.Printf("  token: %s\n", maskSecret(cfg.Discord.Token))
	fmt.Printf("  guild_id: %s\n", cfg.Discord.GuildID)
	fmt.Printf("  admin_roles: %s\n", strings.Join(cfg.Discord.AdminRoles, ", "))
	fmt.Printf("  chat_category: %s\n", cfg.Discord.ChatCategory)
	fmt.Printf("  creation_cost: %.2f\n", cfg.Discord.CreationCost)
	fmt.Printf("  creation_timeout_seconds: %d\n", cfg.Discord.CreationTimeoutSeconds)
	fmt.Printf("studio:\n")
	fmt.Printf("  base_url: %s\n", cfg.Studio.BaseURL)
	fmt.Printf("  api_key: %s\n", maskSecret(cfg.Studio.APIKey))
	fmt.Printf("  models: %s\n", strings.Join(cfg.Studio.Models, ", "))
	fmt.Printf("ledger:\n")
	fmt.Printf("  data_dir: %s\n", cfg.Ledger.DataDir)
	fmt.Printf("health:\n")
	fmt.Printf("  enabled: %v\n", cfg.Health.Enabled)
	fmt.Printf("  addr: %s\n", cfg.Health.Addr)

	return nil
}

// maskSecret hides all but the last four characters of a secret.
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if config.IsEnvReference(s) {
		return s
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
