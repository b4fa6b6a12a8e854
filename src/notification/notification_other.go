//go:build !windows

package notification

// Non-Windows builds only log.
func showMessageBox(title, message string) {}
