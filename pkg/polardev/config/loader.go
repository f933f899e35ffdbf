// Package config – loader.go loads YAML configuration with .env support and
// environment-variable expansion.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} or $VAR_NAME in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Z_][A-Z0-9_]*)`)

// LoadFile reads and parses a YAML configuration file. Loads .env files
// first and expands environment variables before parsing.
func LoadFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg, err := Parse([]byte(expanded))
	if err != nil {
		return nil, err
	}

	resolveSecrets(cfg)
	checkFilePermissions(path)

	return cfg, nil
}

// Parse parses YAML bytes into a Config, overlaying defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

// Load resolves the config from path, or from standard locations when path
// is empty. A missing file yields defaults plus env-resolved secrets, so
// the bot can run on environment variables alone.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FindFile()
	}
	if path == "" {
		loadEnvFiles()
		cfg := Default()
		resolveSecrets(cfg)
		return cfg, nil
	}
	return LoadFile(path)
}

// FindFile searches for config files in standard locations.
func FindFile() string {
	candidates := []string{
		"polardev.yaml",
		"polardev.yml",
		"config.yaml",
		"config.yml",
		"configs/polardev.yaml",
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// ---------- Internal ----------

// loadEnvFiles loads .env files from standard locations.
func loadEnvFiles() {
	envFiles := []string{
		".env",
		".env.local",
	}

	for _, f := range envFiles {
		// godotenv.Load does NOT overwrite existing env vars.
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR} and $VAR references in a string with their
// environment variable values.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if val, ok := os.LookupEnv(varName); ok {
			return val
		}

		// Leave unresolved placeholders in place.
		return match
	})
}

// resolveSecrets fills in config secrets from environment variables when
// the config value is empty or an unresolved placeholder.
func resolveSecrets(cfg *Config) {
	if cfg.Discord.Token == "" || IsEnvReference(cfg.Discord.Token) {
		if tok := os.Getenv("DISCORD_TOKEN"); tok != "" {
			cfg.Discord.Token = tok
		}
	}
	if cfg.Studio.APIKey == "" || IsEnvReference(cfg.Studio.APIKey) {
		if key := os.Getenv("GROQ_API_KEY"); key != "" {
			cfg.Studio.APIKey = key
		} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Studio.APIKey = key
		}
	}
}

// IsEnvReference checks if a string is an environment variable reference.
func IsEnvReference(s string) bool {
	return strings.HasPrefix(s, "${") || strings.HasPrefix(s, "$")
}

// checkFilePermissions warns if the config file is group/world-readable.
func checkFilePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	mode := info.Mode().Perm()
	if mode&0o044 != 0 {
		slog.Warn("config file has open permissions, consider restricting",
			"path", path,
			"current", fmt.Sprintf("%04o", mode),
			"recommended", "0600",
		)
	}
}
