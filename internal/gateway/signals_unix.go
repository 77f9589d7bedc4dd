//go:build unix

package gateway

import (
	"os"
	"syscall"
)

// ShutdownSignals returns the signals that start draining.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGHUP, syscall.SIGTERM}
}
