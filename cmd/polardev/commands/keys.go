package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polardev/polardev/pkg/polardev/ledger"
)

// newKeysCmd creates the `polardev keys` command group for managing
// redemption keys from the terminal.
func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage redemption keys",
	}

	cmd.AddCommand(newKeysNewCmd(), newKeysListCmd())
	return cmd
}

func newKeysNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Issue new redemption keys",
		Long: `Issue one or more single-use keys directly into the ledger.

Examples:
  polardev keys new --credits 5
  polardev keys new --credits 1 --quantity 3`,
		RunE: runKeysNew,
	}

	cmd.Flags().Float64("credits", 1.0, "credits each key is worth")
	cmd.Flags().Int("quantity", 1, "how many keys to issue")
	return cmd
}

func runKeysNew(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := buildLogger(cmd, cfg)

	credits, _ := cmd.Flags().GetFloat64("credits")
	quantity, _ := cmd.Flags().GetInt("quantity")
	if credits <= 0 {
		return fmt.Errorf("credits must be positive")
	}
	if quantity < 1 {
		quantity = 1
	}

	store, err := ledger.Open(cfg.Ledger.DataDir, logger)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}

	fmt.Printf("Issued %d key(s) worth %.2f credits each:\n", quantity, credits)
	issued := 0
	for issued < quantity {
		token := ledger.GenerateToken()
		if err := store.CreateKey(token, "cli", credits); err != nil {
			continue
		}
		fmt.Println("  " + token)
		issued++
	}

	return nil
}

func newKeysListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issued keys",
		RunE:  runKeysList,
	}

	cmd.Flags().Bool("all", false, "include used keys")
	return cmd
}

func runKeysList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := buildLogger(cmd, cfg)

	store, err := ledger.Open(cfg.Ledger.DataDir, logger)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}

	showAll, _ := cmd.Flags().GetBool("all")

	keys := store.Keys()
	if len(keys) == 0 {
		fmt.Println("No keys issued yet.")
		return nil
	}

	for token, key := range keys {
		if key.Used && !showAll {
			continue
		}
		status := "unused"
		if key.Used {
			status = fmt.Sprintf("used by %s", key.UsedBy)
		}
		fmt.Printf("%s  %.2f credits  %s\n", token, key.Credits, status)
	}
	return nil
}
