package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	residentHost     = "127.0.0.1"
	pingRequest      = "PING\n"
	pongResponse     = "PONG\n"
	translateCommand = "TRANSLATE"
	clipboardFlag    = "CLIPBOARD"
	successStatus    = "SUCCESS\n"
	errorStatus      = "ERROR\n"
)

type tcpServer struct {
	mu       sync.Mutex
	lis      net.Listener
	incoming chan *tcpConn
	port     int
	closed   bool
}

func newTcpServer() Server { return &tcpServer{incoming: make(chan *tcpConn, 8)} }

func (s *tcpServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	start, _ := getPortRange()
	addr := fmt.Sprintf("%s:%d", residentHost, start)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("singleinstance: failed to bind %s: %v", addr, err)
		return err
	}
	s.lis = lis
	s.port = start
	log.Printf("singleinstance: listening on %s", addr)
	go s.acceptLoop(ctx, lis)
	return nil
}

func (s *tcpServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *tcpServer) acceptLoop(ctx context.Context, lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			return
		}
		remote := c.RemoteAddr().String()
		_ = c.SetDeadline(time.Now().Add(3 * time.Second))
		br := bufio.NewReader(c)
		line, _ := br.ReadString('\n')
		bw := bufio.NewWriter(c)

		if line == pingRequest {
			log.Printf("singleinstance: PING from %s -> PONG", remote)
			_, _ = bw.WriteString(pongResponse)
			_ = bw.Flush()
			_ = c.Close()
			continue
		}

		req, ok := parseRequest(line)
		if !ok {
			log.Printf("singleinstance: unknown request %q from %s", strings.TrimSpace(line), remote)
			_, _ = bw.WriteString(errorStatus + "unknown request")
			_ = bw.Flush()
			_ = c.Close()
			continue
		}

		// The capture can take as long as the user needs to select a region.
		_ = c.SetDeadline(time.Time{})
		log.Printf("singleinstance: TRANSLATE from %s (clipboard=%v)", remote, req.Clipboard)
		select {
		case s.incoming <- &tcpConn{c: c, r: req, w: bw}:
		case <-ctx.Done():
			_ = c.Close()
			return
		}
	}
}

func parseRequest(line string) (Request, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != translateCommand {
		return Request{}, false
	}
	req := Request{}
	for _, f := range fields[1:] {
		if f == clipboardFlag {
			req.Clipboard = true
		}
	}
	return req, true
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case tc, ok := <-s.incoming:
		if !ok {
			return nil, context.Canceled
		}
		return tc, nil
	}
}

func (s *tcpServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.lis != nil {
		_ = s.lis.Close()
		s.lis = nil
	}
	return nil
}

type tcpConn struct {
	c    net.Conn
	r    Request
	w    *bufio.Writer
	once sync.Once
}

func (tc *tcpConn) Request() Request { return tc.r }

func (tc *tcpConn) RespondSuccess(text string) error {
	if _, err := tc.w.WriteString(successStatus + text); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) RespondError(msg string) error {
	if _, err := tc.w.WriteString(errorStatus + msg); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) Close() error {
	var err error
	tc.once.Do(func() { err = tc.c.Close() })
	return err
}
