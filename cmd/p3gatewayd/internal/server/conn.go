// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/xid"

	"code.vintagenet.io/p3"
	"code.vintagenet.io/p3/metrics"
)

const tickInterval = 1 * time.Second

// conn owns one accepted net.Conn end to end: the ConnectionHandler that
// implements the wire protocol, and the bookkeeping p3gatewayd itself needs
// (correlation id, idle-heartbeat sweep decision).
type conn struct {
	id               string
	nc               net.Conn
	h                *p3.ConnectionHandler
	log              p3.Logger
	stats            *metrics.Stats
	started          time.Time
	handshakeCounted bool
}

func newConn(nc net.Conn, opts p3.Options, log p3.Logger, stats *metrics.Stats) *conn {
	id := xid.New().String()
	tr := p3.NewNetTransport(nc, 100*time.Millisecond)
	return &conn{
		id:      id,
		nc:      nc,
		h:       p3.NewConnectionHandler(tr, nullHandler{}, id, opts),
		log:     log,
		stats:   stats,
		started: time.Now(),
	}
}

// serve reads chunks from nc and feeds them to the ConnectionHandler until
// the connection closes, ctx is cancelled, or the heartbeat budget is
// exhausted without an ACK (spec §7 Peer-silence; the "may close" decision
// this repo has made, DESIGN.md).
func (c *conn) serve(ctx context.Context, registry *registry) {
	registry.add(c)
	defer registry.remove(c.id)
	defer c.nc.Close()

	c.stats.ConnectionsOpen.Inc()
	defer c.stats.ConnectionsOpen.Dec()

	defer func() {
		discarded := c.h.Close()
		if discarded > 0 {
			c.stats.BufferDiscards.Add(float64(discarded))
		}
	}()

	done := make(chan struct{})
	go c.heartbeatLoop(ctx, done)
	defer close(done)

	buf := make([]byte, 4096)
	for {
		_ = c.nc.SetReadDeadline(time.Now().Add(2 * tickInterval))
		n, err := c.nc.Read(buf)
		if n > 0 {
			c.stats.FramesIn.Inc()
			if herr := c.h.HandleChunk(buf[:n]); herr != nil {
				c.log.Warnf("p3: connection %s: fatal: %v", c.id, herr)
				return
			}
			if sess := c.h.Session(); sess.Init != nil && !c.handshakeCounted {
				c.stats.HandshakesTotal.WithLabelValues(sess.Platform.String()).Inc()
				c.handshakeCounted = true
			}
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				select {
				case <-ctx.Done():
					return
				default:
					continue
				}
			}
			if !errors.Is(err, io.EOF) {
				c.log.Debugf("p3: connection %s: read: %v", c.id, err)
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (c *conn) heartbeatLoop(ctx context.Context, done <-chan struct{}) {
	t := time.NewTicker(tickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case now := <-t.C:
			sent, exhausted := c.h.Tick(now)
			if sent {
				c.stats.HeartbeatAttempts.Inc()
				c.stats.FramesOut.Inc()
			}
			if exhausted {
				c.log.Infof("p3: connection %s: heartbeat budget exhausted, closing", c.id)
				c.nc.Close()
				return
			}
			c.stats.OutstandingWindow.Set(float64(c.h.Sequence().Outstanding()))
		}
	}
}

// snapshot renders a single human-readable line of diagnostic state for the
// admin listener.
func (c *conn) snapshot() string {
	sess := c.h.Session()
	return fmt.Sprintf(
		"id=%s platform=%s uptime=%s outstanding=%d waiting_for_ack=%t pending=%d",
		c.id, sess.Platform, time.Since(c.started).Round(time.Second),
		c.h.Sequence().Outstanding(), c.h.Pacer().IsWaitingForAck(), c.h.Pacer().PendingCount(),
	)
}

// registry tracks live connections for the admin/debug snapshot listener.
type registry struct {
	mu sync.RWMutex
	m  map[string]*conn
}

func newRegistry() *registry { return &registry{m: make(map[string]*conn)} }

func (r *registry) add(c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[c.id] = c
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
}

func (r *registry) snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lines := make([]string, 0, len(r.m))
	for _, c := range r.m {
		lines = append(lines, c.snapshot())
	}
	return lines
}
