//go:build windows

package main

import (
	"log"

	"golang.org/x/sys/windows"
)

// enableDPIAwareness asks for per-monitor DPI awareness so captures and
// overlay placement use physical pixels.
func enableDPIAwareness() {
	setProcessDpiAwareness := windows.NewLazySystemDLL("Shcore.dll").NewProc("SetProcessDpiAwareness")
	const processPerMonitorDPIAware = 2
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret != 0 {
			log.Printf("DPI: SetProcessDpiAwareness failed, error code: %d", ret)
		}
		return
	}

	setProcessDPIAware := windows.NewLazySystemDLL("user32.dll").NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err != nil {
		log.Printf("DPI: no DPI awareness API available")
		return
	}
	if ret, _, _ := setProcessDPIAware.Call(); ret == 0 {
		log.Printf("DPI: SetProcessDPIAware failed")
	}
}

// logMonitorConfiguration records the display layout; only the primary
// display can be captured.
func logMonitorConfiguration() {
	getSystemMetrics := windows.NewLazySystemDLL("user32.dll").NewProc("GetSystemMetrics")
	const (
		smCXScreen  = 0
		smCYScreen  = 1
		smCMonitors = 80
	)
	count, _, _ := getSystemMetrics.Call(smCMonitors)
	w, _, _ := getSystemMetrics.Call(smCXScreen)
	h, _, _ := getSystemMetrics.Call(smCYScreen)
	log.Printf("MONITOR: %d monitors, primary %dx%d", count, w, h)
	if count > 1 {
		log.Printf("MONITOR: selection covers the primary display only")
	}
}
