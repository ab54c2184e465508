package cmdlog

import (
	"waybacktweets/internal/logging"
	"waybacktweets/internal/metrics"
)

// Run wraps one CLI command invocation with outcome logging and counters.
func Run(cmd string, log logging.Logger, f func() error) error {
	metrics.IncCommandRun(cmd)
	err := f()
	if err != nil {
		metrics.IncCommandError(cmd)
		log.Error(cmd+"_error", map[string]any{"error": err.Error()})
	} else {
		log.Info(cmd+"_ok", nil)
	}
	return err
}
