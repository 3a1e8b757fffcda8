//go:build windows

package main

import (
	"os"
)

// terminationSignals lists the signals that stop the metrics endpoint.
// Windows primarily uses os.Interrupt (Ctrl+C).
var terminationSignals = []os.Signal{os.Interrupt}
