// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

import (
	"errors"
	"net"
	"sync/atomic"
	"time"
)

// NetTransport adapts a net.Conn to the Pacer's Transport interface. It
// follows the retry contract the teacher's Forwarder documented for its
// own non-blocking I/O: a short write deadline stands in for a genuinely
// non-blocking socket, and a deadline timeout is reported as ErrWouldBlock
// so the caller retries the same write later rather than treating it as
// fatal (spec §4.4 step 4).
type NetTransport struct {
	conn       net.Conn
	writeDelay time.Duration
	closed     atomic.Bool
}

// NewNetTransport wraps conn. writeDelay bounds how long a single Write may
// block before NetTransport reports ErrWouldBlock instead of blocking the
// connection's goroutine indefinitely; zero selects a conservative 50ms.
func NewNetTransport(conn net.Conn, writeDelay time.Duration) *NetTransport {
	if writeDelay <= 0 {
		writeDelay = 50 * time.Millisecond
	}
	return &NetTransport{conn: conn, writeDelay: writeDelay}
}

// Write implements Transport. It returns ErrTransportInactive once Close
// has been called, ErrWouldBlock on a write-deadline timeout, or the
// underlying conn error otherwise.
func (t *NetTransport) Write(b []byte) (int, error) {
	if t.closed.Load() {
		return 0, ErrTransportInactive
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeDelay)); err != nil {
		return 0, err
	}
	n, err := t.conn.Write(b)
	if err == nil {
		return n, nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return n, ErrWouldBlock
	}
	return n, err
}

// Active implements Transport.
func (t *NetTransport) Active() bool { return !t.closed.Load() }

// Close marks the transport inactive and closes the underlying connection.
func (t *NetTransport) Close() error {
	t.closed.Store(true)
	return t.conn.Close()
}
