// Package config defines the PolarDev configuration model: Discord bot
// settings, the generation API, the credit ledger, and the keep-alive
// health server.
package config

import (
	"fmt"

	"github.com/polardev/polardev/pkg/polardev/bot"
	"github.com/polardev/polardev/pkg/polardev/studio"
)

// Config is the root configuration, loaded from YAML with env expansion.
type Config struct {
	Discord bot.Config    `yaml:"discord"`
	Studio  studio.Config `yaml:"studio"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Health  HealthConfig  `yaml:"health"`
	Log     LogConfig     `yaml:"log"`
}

// LedgerConfig locates the flat-file credit ledger.
type LedgerConfig struct {
	// DataDir holds users.json, keys.json and chats.json.
	DataDir string `yaml:"data_dir"`
}

// HealthConfig controls the keep-alive HTTP server.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig controls logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns a Config with working defaults for everything except
// credentials.
func Default() *Config {
	return &Config{
		Discord: bot.DefaultConfig(),
		Studio:  studio.DefaultConfig(),
		Ledger: LedgerConfig{
			DataDir: "data",
		},
		Health: HealthConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the invariants a running bot depends on.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord.token is required (set DISCORD_TOKEN)")
	}
	if c.Discord.CreationCost <= 0 {
		return fmt.Errorf("discord.creation_cost must be positive, got %v", c.Discord.CreationCost)
	}
	if c.Discord.CreationTimeoutSeconds <= 0 {
		return fmt.Errorf("discord.creation_timeout_seconds must be positive, got %d", c.Discord.CreationTimeoutSeconds)
	}
	if c.Ledger.DataDir == "" {
		return fmt.Errorf("ledger.data_dir is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
