// Package relay maintains the TCP link to the local relay process.
//
// The relay speaks the game's markup dialect inbound and accepts plain
// newline-terminated commands outbound. This package only moves bytes:
// reconnection and backoff belong to whoever owns the connection lifecycle.
package relay

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"pkt.systems/pslog"
)

const (
	dialTimeout = 5 * time.Second
	readBufSize = 4096

	// Outbound flood control. Game servers disconnect clients that spam
	// commands, so sends are paced rather than failed.
	sendRate  = 4
	sendBurst = 8
)

// Conn is one live connection to the relay. It satisfies the session
// package's ChunkSource contract.
type Conn struct {
	conn    net.Conn
	chunks  chan []byte
	done    chan struct{} // closed by Close; unblocks a stalled chunk send
	limiter *rate.Limiter
	log     pslog.Logger

	closeOnce sync.Once
}

// Dial connects to the relay at addr (host:port) and starts the receive
// loop.
func Dial(ctx context.Context, addr string, logger pslog.Logger) (*Conn, error) {
	if logger == nil {
		logger = pslog.NewWithOptions(io.Discard, pslog.Options{})
	}
	dialer := net.Dialer{Timeout: dialTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", addr, err)
	}

	c := &Conn{
		conn:    netConn,
		chunks:  make(chan []byte, 32),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(sendRate), sendBurst),
		log:     logger.With("relay", addr),
	}
	go c.receive()
	c.log.Info("connected to relay")
	return c, nil
}

// Chunks delivers inbound byte chunks in arrival order. The channel closes
// when the connection ends for any reason.
func (c *Conn) Chunks() <-chan []byte {
	return c.chunks
}

// Send writes one command to the relay with a trailing newline, pacing
// through the flood limiter first.
func (c *Conn) Send(ctx context.Context, cmd string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send pacing: %w", err)
	}
	if _, err := c.conn.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	return nil
}

// Close shuts the connection down. Idempotent; the receive loop ends and
// Chunks closes shortly after, even when nobody is draining it.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// receive reads the socket until it fails and hands out copies of each
// chunk, preserving arrival order.
func (c *Conn) receive() {
	defer close(c.chunks)
	buf := make([]byte, readBufSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case c.chunks <- chunk:
			case <-c.done:
				// The consumer is gone; do not block here forever.
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				c.log.Warn("relay read ended", "err", err)
			} else {
				c.log.Info("relay closed the connection")
			}
			return
		}
	}
}
