package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the bot.
type Config struct {
	General   GeneralConfig   `json:"general" yaml:"general"`
	Line      LineConfig      `json:"line" yaml:"line"`
	Content   ContentConfig   `json:"content" yaml:"content"`
	Transform TransformConfig `json:"transform" yaml:"transform"`
	Dispatch  DispatchConfig  `json:"dispatch" yaml:"dispatch"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
}

type GeneralConfig struct {
	// BaseURL is the externally reachable URL the bot is served under;
	// stored content and static asset links are built from it.
	BaseURL  string `json:"baseUrl" yaml:"baseUrl"`
	LogLevel string `json:"logLevel" yaml:"logLevel"`
	LogFile  string `json:"logFile,omitempty" yaml:"logFile,omitempty"`
}

type LineConfig struct {
	ChannelSecret string `json:"channelSecret" yaml:"channelSecret"`
	ChannelToken  string `json:"channelToken" yaml:"channelToken"`
	Port          int    `json:"port" yaml:"port"`
	WebhookPath   string `json:"webhookPath" yaml:"webhookPath"`
}

type ContentConfig struct {
	Dir                  string `json:"dir" yaml:"dir"`
	StaticDir            string `json:"staticDir" yaml:"staticDir"`
	DBPath               string `json:"dbPath,omitempty" yaml:"dbPath,omitempty"` // blob ledger; empty disables it
	RetentionHours       int    `json:"retentionHours" yaml:"retentionHours"`
	SweepIntervalMinutes int    `json:"sweepIntervalMinutes" yaml:"sweepIntervalMinutes"`
}

type TransformConfig struct {
	ConvertPath    string `json:"convertPath" yaml:"convertPath"`
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	MaxConcurrent  int    `json:"maxConcurrent" yaml:"maxConcurrent"`
}

type DispatchConfig struct {
	MaxConcurrentEvents int `json:"maxConcurrentEvents" yaml:"maxConcurrentEvents"`
	BusBuffer           int `json:"busBuffer" yaml:"busBuffer"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.sinkbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sinkbot"
	}
	return filepath.Join(home, ".sinkbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads, env-expands, parses, and validates a config file. The
// format is chosen by extension: .yaml/.yml parse as YAML, everything
// else as JSON.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if isYAMLPath(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Content.Dir = ExpandPath(cfg.Content.Dir)
	cfg.Content.StaticDir = ExpandPath(cfg.Content.StaticDir)
	cfg.Content.DBPath = ExpandPath(cfg.Content.DBPath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

// Save writes the config to disk in the format the path's extension
// implies.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAMLPath(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.BaseURL == "" {
		errs = append(errs, "general.baseUrl is required")
	} else if !strings.HasPrefix(cfg.General.BaseURL, "http://") && !strings.HasPrefix(cfg.General.BaseURL, "https://") {
		errs = append(errs, "general.baseUrl must start with http:// or https://")
	}
	if strings.HasSuffix(cfg.General.BaseURL, "/") {
		errs = append(errs, "general.baseUrl must not end with a slash")
	}

	if cfg.Line.Port < 0 || cfg.Line.Port > 65535 {
		errs = append(errs, "line.port must be between 0 and 65535")
	}
	if cfg.Line.WebhookPath != "" && !strings.HasPrefix(cfg.Line.WebhookPath, "/") {
		errs = append(errs, "line.webhookPath must start with /")
	}

	if cfg.Content.Dir == "" {
		errs = append(errs, "content.dir is required")
	}
	if cfg.Content.RetentionHours < 1 {
		errs = append(errs, "content.retentionHours must be >= 1")
	}
	if cfg.Content.SweepIntervalMinutes < 1 {
		errs = append(errs, "content.sweepIntervalMinutes must be >= 1")
	}

	if cfg.Transform.TimeoutSeconds < 1 {
		errs = append(errs, "transform.timeoutSeconds must be >= 1")
	}
	if cfg.Transform.MaxConcurrent < 1 || cfg.Transform.MaxConcurrent > 64 {
		errs = append(errs, "transform.maxConcurrent must be between 1 and 64")
	}

	if cfg.Dispatch.MaxConcurrentEvents < 1 || cfg.Dispatch.MaxConcurrentEvents > 256 {
		errs = append(errs, "dispatch.maxConcurrentEvents must be between 1 and 256")
	}
	if cfg.Dispatch.BusBuffer < 1 {
		errs = append(errs, "dispatch.busBuffer must be >= 1")
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Endpoint, "/") {
		errs = append(errs, "metrics.endpoint must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
