//go:build unix

package semaphores

import (
	"os"
	"os/signal"
	"syscall"
)

// NotifyTermination relays SIGINT and SIGTERM to c.
func NotifyTermination(c chan os.Signal) {
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
}
