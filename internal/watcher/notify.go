package watcher

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// Notify sends a desktop notification for alert: osascript on macOS,
// notify-send on Linux. Without either it writes the alert to stderr.
func Notify(alert Alert) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title "pipewatch" subtitle %q`, alert.Message, alert.Title)
		if err := exec.Command("osascript", "-e", script).Run(); err == nil {
			return nil
		}
	case "linux":
		if _, err := exec.LookPath("notify-send"); err == nil {
			if err := exec.Command("notify-send", "pipewatch: "+alert.Title, alert.Message).Run(); err == nil {
				return nil
			}
		}
	}
	return WriteAlert(os.Stderr, alert)
}

// WriteAlert writes alert as a single plain line.
func WriteAlert(w io.Writer, alert Alert) error {
	_, err := fmt.Fprintf(w, "[%s] %s: %s\n", alert.Level, alert.Title, alert.Message)
	return err
}
