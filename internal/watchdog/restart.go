package watchdog

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// restartTimeout bounds a single restart command.
const restartTimeout = 10 * time.Second

// CommandRestarter restarts the gateway by running a configured command,
// e.g. ["systemctl", "--user", "restart", "openclaw-gateway"].
type CommandRestarter struct {
	// Command is the restart command and its arguments.
	Command []string
}

// Restart runs the configured command. A non-zero exit is a failed
// attempt, not an error: the watchdog retries failed attempts itself.
func (r *CommandRestarter) Restart(ctx context.Context) (RestartResult, error) {
	if len(r.Command) == 0 {
		return RestartResult{Success: false, Output: "no restart command configured"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, restartTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if output == "" {
			output = err.Error()
		}
		return RestartResult{Success: false, Output: output}, nil
	}
	if output == "" {
		output = "restarted"
	}
	return RestartResult{Success: true, Output: output}, nil
}
