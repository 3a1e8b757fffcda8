//go:build !windows

package main

import (
	"os"
	"syscall"
)

// terminationSignals lists the signals that stop the metrics endpoint.
// SIGTERM is what most process managers send to request shutdown.
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
