package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/blackwell-systems/pipewatch/internal/ai"
	"github.com/blackwell-systems/pipewatch/internal/config"
	"github.com/blackwell-systems/pipewatch/internal/github"
	"github.com/blackwell-systems/pipewatch/internal/optimizer"
	"github.com/blackwell-systems/pipewatch/internal/output"
	"github.com/blackwell-systems/pipewatch/internal/suggest"
)

// runtime holds what every command needs after startup.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	cleanup func() error
}

// loadRuntime reads configuration and sets up color and logging according
// to the persistent flags.
func loadRuntime() (*runtime, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	output.SetNoColor(output.ColorDisabled(flagNoColor, cfg.Output.Color))

	level := config.ParseLevel(cfg.Log.Level)
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger, cleanup := config.SetupLogger(cfg.Log.File, level)

	return &runtime{cfg: cfg, logger: logger, cleanup: cleanup}, nil
}

func (r *runtime) close() {
	if err := r.cleanup(); err != nil {
		r.logger.Warn("closing log file", "error", err)
	}
}

func (r *runtime) githubClient() *github.Client {
	return github.NewClient(r.cfg.GitHub.Token, r.cfg.GitHub.BaseURL)
}

// optimizer builds the analysis pipeline. The AI source is attached when
// enabled by config or forced by the command; a source that cannot be
// constructed is logged and left out.
func (r *runtime) optimizer(forceAI bool) *optimizer.Optimizer {
	var source optimizer.SuggestionSource
	if forceAI || r.cfg.AI.Enabled {
		src, err := ai.NewSource(r.cfg.AI, r.logger)
		if err != nil {
			r.logger.Warn("ai source disabled", "provider", r.cfg.AI.Provider, "error", err)
		} else {
			source = src
		}
	}
	return optimizer.New(suggest.NewEngine(), r.githubClient(), source, r.logger)
}

// runLimit returns the flag value when set, otherwise the configured limit.
func (r *runtime) runLimit(flagValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return r.cfg.GitHub.RunLimit
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
