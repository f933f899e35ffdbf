// Package config – keyring.go stores credentials in the operating system's
// native keyring (Linux: Secret Service, macOS: Keychain, Windows:
// Credential Manager).
//
// Priority for resolving the generation API key:
//  1. OS keyring (encrypted by the OS, requires user session)
//  2. Environment variable (GROQ_API_KEY, OPENAI_API_KEY)
//  3. config value (least secure — plaintext on disk)
package config

import (
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "polardev"

	// keyringAPIKey is the key name for the generation API key.
	keyringAPIKey = "api_key"

	// keyringBotToken is the key name for the Discord bot token.
	keyringBotToken = "discord_token"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring. Returns empty string
// if not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// KeyringAvailable checks if the OS keyring is accessible.
func KeyringAvailable() bool {
	testKey := "__polardev_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// ResolveSecrets fills the config's API key and bot token from the keyring
// when present; env/config values already resolved by the loader are kept
// as fallback.
func ResolveSecrets(cfg *Config, logger *slog.Logger) {
	if val := GetKeyring(keyringAPIKey); val != "" {
		cfg.Studio.APIKey = val
		logger.Debug("API key loaded from OS keyring")
	} else if cfg.Studio.APIKey != "" && !IsEnvReference(cfg.Studio.APIKey) {
		logger.Debug("API key loaded from config/env")
	} else {
		logger.Warn("no generation API key found. Set one with: polardev config set-key")
	}

	if val := GetKeyring(keyringBotToken); val != "" {
		cfg.Discord.Token = val
		logger.Debug("Discord token loaded from OS keyring")
	}
}

// MigrateKeyToKeyring moves the generation API key into the OS keyring.
func MigrateKeyToKeyring(apiKey string, logger *slog.Logger) error {
	if err := StoreKeyring(keyringAPIKey, apiKey); err != nil {
		return fmt.Errorf("storing in keyring: %w", err)
	}
	logger.Info("API key stored in OS keyring",
		"service", keyringService,
		"hint", "You can now remove it from .env and config.yaml")
	return nil
}
