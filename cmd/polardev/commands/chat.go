package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/polardev/polardev/pkg/polardev/config"
	"github.com/polardev/polardev/pkg/polardev/studio"
)

// newChatCmd creates the `polardev chat` command: talk to the generation
// client directly, no Discord needed.
func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the Roblox assistant from the terminal",
		Long: `Send one message, or start an interactive session when no
argument is given.

Examples:
  polardev chat "how do I use RemoteEvents?"
  polardev chat`,
		Args: cobra.MaximumNArgs(1),
		RunE: runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := buildLogger(cmd, cfg)
	config.ResolveSecrets(cfg, logger)

	if cfg.Studio.APIKey == "" || config.IsEnvReference(cfg.Studio.APIKey) {
		return fmt.Errorf("no generation API key configured. Run: polardev config set-key")
	}

	gen := studio.New(cfg.Studio, logger)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) > 0 {
		fmt.Println(gen.Converse(ctx, args[0]))
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal; pass the message as an argument instead")
	}

	return runChatREPL(ctx, gen)
}

func runChatREPL(ctx context.Context, gen *studio.Client) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "polardev> ",
		HistoryFile:     os.TempDir() + "/polardev_chat_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("starting readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("PolarDev interactive chat. Type 'exit' to quit.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		fmt.Println(gen.Converse(ctx, line))
		fmt.Println()
	}
}
