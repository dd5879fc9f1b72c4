package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/pipewatch/internal/ai"
	"github.com/blackwell-systems/pipewatch/internal/config"
	"github.com/blackwell-systems/pipewatch/internal/github"
	"github.com/blackwell-systems/pipewatch/internal/output"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and credentials",
	Long: `Run a series of health checks against your pipewatch configuration:
the config file, GitHub credentials, the AI provider and the log file.
Prints a pass/fail line for each check and a summary of how many passed.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// doctorCheck holds the result of a single health check.
type doctorCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// doctorOutput is the JSON-serializable result of the doctor command.
type doctorOutput struct {
	Checks      []doctorCheck `json:"checks"`
	PassedCount int           `json:"passed"`
	TotalCount  int           `json:"total"`
}

const doctorTimeout = 10 * time.Second

func runDoctor(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
	defer cancel()

	checks := []doctorCheck{
		checkConfigFile(flagConfig),
		checkGitHubToken(rt.cfg.GitHub.Token),
		checkGitHubAPI(ctx, rt.githubClient()),
		checkAIProvider(rt.cfg.AI),
		checkLogFile(rt.cfg.Log.File),
	}

	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(w, doctorOutput{
			Checks:      checks,
			PassedCount: passed,
			TotalCount:  len(checks),
		})
	}

	fmt.Fprintln(w, output.Section("Doctor"))
	fmt.Fprintln(w)
	for _, c := range checks {
		renderDoctorCheck(w, c)
	}
	fmt.Fprintln(w)

	summary := fmt.Sprintf("%d/%d checks passed", passed, len(checks))
	if passed == len(checks) {
		fmt.Fprintf(w, " %s\n\n", output.StyleSuccess.Render(summary))
	} else {
		fmt.Fprintf(w, " %s\n\n", output.StyleWarning.Render(summary))
	}
	return nil
}

func renderDoctorCheck(w io.Writer, c doctorCheck) {
	var indicator string
	if c.Passed {
		indicator = output.StyleSuccess.Render("✓")
	} else {
		indicator = output.StyleWarning.Render("✗")
	}
	label := output.StyleBold.Render(c.Name)
	detail := output.StyleMuted.Render(c.Message)
	fmt.Fprintf(w, "  %s  %-30s %s\n", indicator, label, detail)
}

// checkConfigFile passes when the config file exists, or when no file is
// present and defaults are in use. An explicit --config path must exist.
func checkConfigFile(explicit string) doctorCheck {
	path := explicit
	if path == "" {
		path = config.ConfigPath()
	}
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return doctorCheck{Name: "Config file", Passed: true, Message: path}
	case errors.Is(err, os.ErrNotExist) && explicit == "":
		return doctorCheck{Name: "Config file", Passed: true, Message: "not found, using defaults"}
	default:
		return doctorCheck{Name: "Config file", Passed: false, Message: err.Error()}
	}
}

func checkGitHubToken(token string) doctorCheck {
	if token == "" {
		return doctorCheck{
			Name:    "GitHub token",
			Passed:  false,
			Message: "not set (GITHUB_TOKEN); unauthenticated requests are rate limited",
		}
	}
	return doctorCheck{Name: "GitHub token", Passed: true, Message: "set"}
}

func checkGitHubAPI(ctx context.Context, client *github.Client) doctorCheck {
	if err := client.CheckAuth(ctx); err != nil {
		msg := err.Error()
		if errors.Is(err, github.ErrUnauthorized) {
			msg = "token rejected by GitHub"
		}
		return doctorCheck{Name: "GitHub API", Passed: false, Message: msg}
	}
	return doctorCheck{Name: "GitHub API", Passed: true, Message: "reachable"}
}

// checkAIProvider reports whether the configured provider can be built.
// A disabled AI source passes.
func checkAIProvider(cfg config.AI) doctorCheck {
	name := fmt.Sprintf("AI provider (%s)", cfg.Provider)
	if !cfg.Enabled {
		return doctorCheck{Name: name, Passed: true, Message: "disabled"}
	}
	if _, err := ai.NewSource(cfg, nil); err != nil {
		return doctorCheck{Name: name, Passed: false, Message: err.Error()}
	}
	return doctorCheck{Name: name, Passed: true, Message: "model " + cfg.Model}
}

// checkLogFile verifies the log file's directory exists so the file logger
// can open it.
func checkLogFile(path string) doctorCheck {
	if path == "" {
		return doctorCheck{Name: "Log file", Passed: true, Message: "stderr only"}
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return doctorCheck{Name: "Log file", Passed: false, Message: fmt.Sprintf("directory not found: %s", dir)}
	}
	if !info.IsDir() {
		return doctorCheck{Name: "Log file", Passed: false, Message: fmt.Sprintf("not a directory: %s", dir)}
	}
	return doctorCheck{Name: "Log file", Passed: true, Message: path}
}
