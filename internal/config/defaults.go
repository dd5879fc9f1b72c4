// Package config provides configuration loading and defaults for pipewatch.
package config

import "time"

// DefaultConfigDir is the default location for pipewatch configuration.
const DefaultConfigDir = "~/.config/pipewatch"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// EnvPrefix namespaces environment overrides, e.g. PIPEWATCH_AI_ENABLED.
const EnvPrefix = "PIPEWATCH"

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// DefaultGitHub holds the default run-history settings.
var DefaultGitHub = GitHub{
	BaseURL:  "https://api.github.com",
	RunLimit: 30,
}

// DefaultAI holds the default AI source settings. The source is off unless
// enabled explicitly.
var DefaultAI = AI{
	Enabled:    false,
	Provider:   ProviderOpenAI,
	Model:      "gpt-4-turbo-preview",
	OllamaHost: "http://localhost:11434",
	Timeout:    60 * time.Second,
}

// DefaultOptimize holds the default applier settings.
var DefaultOptimize = Optimize{
	ConfidenceThreshold: 0.8,
	AutoApply:           false,
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
}

// DefaultLog holds the default logging settings. An empty file logs to
// stderr only.
var DefaultLog = Log{
	Level: "warn",
}
