package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

type tcpClient struct{}

func newTcpClient() Client { return &tcpClient{} }

func (c *tcpClient) TryTrigger(ctx context.Context, req Request) (bool, string, error) {
	port, ok := DetectResidentPort(ctx)
	if !ok {
		return false, "", nil
	}
	addr := net.JoinHostPort(residentHost, strconv.Itoa(port))

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return false, "", nil
	}
	defer conn.Close()

	// Unblock the read when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	line := translateCommand
	if req.Clipboard {
		line += " " + clipboardFlag
	}
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(line + "\n"); err != nil {
		return true, "", err
	}
	if err := w.Flush(); err != nil {
		return true, "", err
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return true, "", ctxErr
		}
		return true, "", fmt.Errorf("resident closed the connection: %w", err)
	}
	body, _ := io.ReadAll(br)
	switch status {
	case successStatus:
		return true, string(body), nil
	case errorStatus:
		return true, "", errors.New(string(body))
	default:
		return true, "", fmt.Errorf("unexpected reply %q", status)
	}
}
