package relay

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"testing"
	"time"
)

// startEchoListener accepts one connection, writes payload, then reads one
// line into lines.
func startEchoListener(t *testing.T, payload []byte, lines chan<- string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if len(payload) > 0 {
			_, _ = conn.Write(payload)
		}
		if lines != nil {
			line, err := bufio.NewReader(conn).ReadString('\n')
			if err == nil {
				lines <- line
			}
		}
	}()
	return ln.Addr().String()
}

func TestDialAndReceive(t *testing.T) {
	addr := startEchoListener(t, []byte("<prompt/>"), nil)

	conn, err := Dial(context.Background(), addr, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	select {
	case chunk := <-conn.Chunks():
		if string(chunk) != "<prompt/>" {
			t.Fatalf("chunk = %q, want <prompt/>", chunk)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no chunk received")
	}
}

func TestSendAppendsNewline(t *testing.T) {
	lines := make(chan string, 1)
	addr := startEchoListener(t, nil, lines)

	conn, err := Dial(context.Background(), addr, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := conn.Send(context.Background(), "look"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case line := <-lines:
		if line != "look\n" {
			t.Fatalf("server got %q, want %q", line, "look\n")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the command")
	}
}

func TestChunksCloseOnDisconnect(t *testing.T) {
	addr := startEchoListener(t, []byte("bye"), nil)

	conn, err := Dial(context.Background(), addr, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	// Drain until closed; the listener side closes after writing.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-conn.Chunks():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Chunks never closed after disconnect")
		}
	}
}

func TestCloseUnblocksStalledReceive(t *testing.T) {
	// Enough data that the receive loop fills the chunk channel and blocks
	// on the send while nobody is reading.
	payload := bytes.Repeat([]byte("x"), 512*1024)
	addr := startEchoListener(t, payload, nil)

	conn, err := Dial(context.Background(), addr, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	// Let the receive loop stall on the full channel before closing.
	time.Sleep(100 * time.Millisecond)
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Chunks must still close even though nothing drained it before Close.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-conn.Chunks():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Chunks never closed; receive loop is stuck")
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	addr := startEchoListener(t, nil, nil)

	conn, err := Dial(context.Background(), addr, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestDialFailure(t *testing.T) {
	// A port that is almost certainly closed.
	_, err := Dial(context.Background(), "127.0.0.1:1", nil)
	if err == nil {
		t.Fatal("Dial succeeded against a closed port")
	}
}
