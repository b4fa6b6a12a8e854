//go:build !windows

package main

import (
	"log"

	"github.com/kbinani/screenshot"
)

func enableDPIAwareness() {}

func logMonitorConfiguration() {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		log.Printf("MONITOR: no active display detected")
		return
	}
	b := screenshot.GetDisplayBounds(0)
	log.Printf("MONITOR: %d displays, primary %dx%d", n, b.Dx(), b.Dy())
}
