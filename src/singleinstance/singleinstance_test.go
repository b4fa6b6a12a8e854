package singleinstance

import (
	"context"
	"strconv"
	"testing"
	"time"
)

// usePorts pins the range to a single free-looking port for the test.
func usePorts(t *testing.T, port int) {
	t.Helper()
	t.Setenv("SINGLEINSTANCE_PORT_START", strconv.Itoa(port))
	t.Setenv("SINGLEINSTANCE_PORT_END", strconv.Itoa(port))
}

func TestServerClientRoundTrip(t *testing.T) {
	usePorts(t, 49631)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback TCP unavailable in this environment: %v", err)
	}
	defer srv.Close()

	type reply struct {
		delegated bool
		text      string
		err       error
	}
	replyCh := make(chan reply, 1)
	go func() {
		delegated, text, err := NewClient().TryTrigger(ctx, Request{Clipboard: true})
		replyCh <- reply{delegated, text, err}
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !conn.Request().Clipboard {
		t.Errorf("expected clipboard request")
	}
	if err := conn.RespondSuccess("Merhaba dünya"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	_ = conn.Close()

	r := <-replyCh
	if r.err != nil || !r.delegated || r.text != "Merhaba dünya" {
		t.Fatalf("unexpected reply: %+v", r)
	}
}

func TestServerErrorReply(t *testing.T) {
	usePorts(t, 49632)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback TCP unavailable in this environment: %v", err)
	}
	defer srv.Close()

	errCh := make(chan error, 1)
	go func() {
		_, _, err := NewClient().TryTrigger(ctx, Request{})
		errCh <- err
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	_ = conn.RespondError("Busy, please retry")
	_ = conn.Close()

	if err := <-errCh; err == nil || err.Error() != "Busy, please retry" {
		t.Fatalf("expected busy error, got %v", err)
	}
}

func TestSecondServerFailsToBind(t *testing.T) {
	usePorts(t, 49633)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := NewServer()
	if err := first.Start(ctx); err != nil {
		t.Skipf("loopback TCP unavailable in this environment: %v", err)
	}
	defer first.Close()

	if port, ok := DetectResidentPort(ctx); !ok || port != 49633 {
		t.Fatalf("expected resident on 49633, got %d %v", port, ok)
	}
	if err := NewServer().Start(ctx); err == nil {
		t.Fatal("expected second server to fail")
	}
}

func TestNoResident(t *testing.T) {
	usePorts(t, 49634)
	delegated, _, err := NewClient().TryTrigger(context.Background(), Request{})
	if delegated || err != nil {
		t.Fatalf("expected no delegation, got %v %v", delegated, err)
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		line string
		want Request
		ok   bool
	}{
		{"TRANSLATE\n", Request{}, true},
		{"TRANSLATE CLIPBOARD\n", Request{Clipboard: true}, true},
		{"STDOUT\n", Request{}, false},
		{"\n", Request{}, false},
	}
	for _, tt := range tests {
		got, ok := parseRequest(tt.line)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseRequest(%q) = %+v, %v", tt.line, got, ok)
		}
	}
}

func TestPortRangeClamp(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "80")
	t.Setenv("SINGLEINSTANCE_PORT_END", "70000")
	start, end := PortRange()
	if start != 1024 || end != 65535 {
		t.Fatalf("got %d-%d", start, end)
	}
}
