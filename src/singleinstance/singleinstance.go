package singleinstance

// Single-instance ownership and trigger delegation over loopback TCP.

import (
	"context"
)

// Server owns the TCP endpoint and answers trigger requests.
type Server interface {
	// Start binds the first port of the configured range. It fails when the
	// port is taken, which means another resident is running.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next trigger request, or ctx error.
	Next(ctx context.Context) (Conn, error)
	Close() error
}

// Conn is one pending trigger request.
type Conn interface {
	Request() Request
	// RespondSuccess sends the translated text back.
	RespondSuccess(text string) error
	// RespondError sends a human-readable failure message.
	RespondError(msg string) error
	Close() error
}

// Request is a single trigger request. Clipboard asks the resident to also
// copy the translation to its clipboard.
type Request struct {
	Clipboard bool
}

// Client delegates a capture to a resident instance.
type Client interface {
	// TryTrigger scans the port range, performs the PING handshake and sends
	// TRANSLATE. If no resident answers it returns delegated=false, err=nil.
	TryTrigger(ctx context.Context, req Request) (delegated bool, text string, err error)
}

func NewServer() Server { return newTcpServer() }

func NewClient() Client { return newTcpClient() }
