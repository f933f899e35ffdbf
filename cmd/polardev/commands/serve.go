package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polardev/polardev/pkg/polardev/bot"
	"github.com/polardev/polardev/pkg/polardev/config"
	"github.com/polardev/polardev/pkg/polardev/health"
	"github.com/polardev/polardev/pkg/polardev/ledger"
	"github.com/polardev/polardev/pkg/polardev/studio"
)

// newServeCmd creates the `polardev serve` command that runs the bot.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot and keep-alive server",
		Long: `Connect to Discord, register slash commands and serve creations
until interrupted.

Examples:
  polardev serve
  polardev serve --config ./polardev.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := buildLogger(cmd, cfg)

	// Keyring wins over env/config for both secrets.
	config.ResolveSecrets(cfg, logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := ledger.Open(cfg.Ledger.DataDir, logger)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}

	gen := studio.New(cfg.Studio, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var healthSrv *health.Server
	if cfg.Health.Enabled {
		healthSrv = health.New(cfg.Health.Addr, logger)
		healthSrv.Start()
	}

	b := bot.New(cfg.Discord, store, gen, logger)
	if err := b.Connect(ctx); err != nil {
		return err
	}

	accounts, chats := store.Counts()
	logger.Info("PolarDev running. Press Ctrl+C to stop.",
		"accounts", accounts,
		"chats", chats,
		"creation_cost", cfg.Discord.CreationCost,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	done := make(chan struct{})
	go func() {
		_ = b.Close()
		if healthSrv != nil {
			_ = healthSrv.Shutdown(context.Background())
		}
		close(done)
	}()

	select {
	case <-done:
		logger.Info("stopped cleanly")
	case <-time.After(15 * time.Second):
		logger.Warn("shutdown timed out, exiting anyway")
	}

	return nil
}
