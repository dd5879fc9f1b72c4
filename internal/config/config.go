package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level pipewatch configuration.
type Config struct {
	GitHub   GitHub   `mapstructure:"github"`
	AI       AI       `mapstructure:"ai"`
	Optimize Optimize `mapstructure:"optimize"`
	Output   Output   `mapstructure:"output"`
	Log      Log      `mapstructure:"log"`
}

// GitHub configures the run-history fetch.
type GitHub struct {
	Token    string `mapstructure:"token"`
	BaseURL  string `mapstructure:"base_url"`
	RunLimit int    `mapstructure:"run_limit"`
}

// AI configures the LLM suggestion source.
type AI struct {
	Enabled    bool          `mapstructure:"enabled"`
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	OllamaHost string        `mapstructure:"ollama_host"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Optimize configures the applier.
type Optimize struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	AutoApply           bool    `mapstructure:"auto_apply"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
}

// Log configures the structured logger.
type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location),
// applies PIPEWATCH_* environment overrides and returns a Config with all
// defaults applied.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", DefaultGitHub.BaseURL)
	v.SetDefault("github.run_limit", DefaultGitHub.RunLimit)
	v.SetDefault("ai.enabled", DefaultAI.Enabled)
	v.SetDefault("ai.provider", DefaultAI.Provider)
	v.SetDefault("ai.model", DefaultAI.Model)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.ollama_host", DefaultAI.OllamaHost)
	v.SetDefault("ai.timeout", DefaultAI.Timeout)
	v.SetDefault("optimize.confidence_threshold", DefaultOptimize.ConfidenceThreshold)
	v.SetDefault("optimize.auto_apply", DefaultOptimize.AutoApply)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("log.level", DefaultLog.Level)
	v.SetDefault("log.file", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(expandPath(DefaultConfigDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	applyWellKnownEnv(&cfg)
	cfg.Log.File = expandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyWellKnownEnv fills credentials from the conventional variables when
// they were not configured under the PIPEWATCH_ prefix.
func applyWellKnownEnv(cfg *Config) {
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if cfg.AI.APIKey == "" {
		switch cfg.AI.Provider {
		case ProviderOpenAI:
			cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		case ProviderAnthropic:
			cfg.AI.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
}

// Validate checks values that would otherwise fail later in a less obvious
// place.
func (c *Config) Validate() error {
	if t := c.Optimize.ConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("optimize.confidence_threshold must be within [0,1], got %v", t)
	}
	if c.GitHub.RunLimit < 1 {
		return fmt.Errorf("github.run_limit must be at least 1, got %d", c.GitHub.RunLimit)
	}
	switch c.AI.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama:
	default:
		return fmt.Errorf("unsupported ai.provider %q", c.AI.Provider)
	}
	return nil
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), DefaultConfigFile)
}
