package singleinstance

import (
	"os"
	"strconv"
)

const (
	defaultPortStart = 49600
	defaultPortEnd   = 49650
)

// getPortRange returns the inclusive TCP port range from
// SINGLEINSTANCE_PORT_START and SINGLEINSTANCE_PORT_END. Invalid values
// fall back to the defaults; the range is clamped to [1024, 65535].
func getPortRange() (int, int) {
	start := envInt("SINGLEINSTANCE_PORT_START", defaultPortStart)
	end := envInt("SINGLEINSTANCE_PORT_END", defaultPortEnd)
	if start < 1024 {
		start = 1024
	}
	if end > 65535 {
		end = 65535
	}
	if end < start {
		start, end = end, start
	}
	return start, end
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// PortRange exposes the effective range for logging.
func PortRange() (int, int) { return getPortRange() }
