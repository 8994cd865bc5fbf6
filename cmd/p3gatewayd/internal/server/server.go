// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package server wires cmd/p3gatewayd's net.Listener accept loop to
// p3.ConnectionHandler, following nishisan-dev-n-backup's internal/server
// Run/RunWithListener shape: a backoff-guarded accept loop, a ticker-driven
// periodic housekeeping goroutine, and one handler goroutine per accepted
// connection.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"code.vintagenet.io/p3"
	"code.vintagenet.io/p3/config"
	"code.vintagenet.io/p3/metrics"
)

// Run listens on cfg.Listen.Address and blocks, handling connections until
// ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, log p3.Logger, stats *metrics.Stats) error {
	ln, err := net.Listen("tcp", cfg.Listen.Address)
	if err != nil {
		return fmt.Errorf("server: listening on %s: %w", cfg.Listen.Address, err)
	}
	defer ln.Close()
	log.Infof("p3: listening on %s", cfg.Listen.Address)

	return RunWithListener(ctx, ln, cfg, log, stats)
}

// RunWithListener is Run with an already-open listener, so tests can bind
// an ephemeral port instead of a fixed configured address.
func RunWithListener(ctx context.Context, ln net.Listener, cfg *config.Config, log p3.Logger, stats *metrics.Stats) error {
	reg := newRegistry()
	opts := cfg.ToOptions(log)

	if cfg.Admin.Enabled && cfg.Admin.SocketPath != "" {
		go func() {
			if err := serveAdmin(ctx, cfg.Admin.SocketPath, reg); err != nil {
				log.Warnf("p3: admin listener: %v", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	consecutiveErrors := 0
	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				consecutiveErrors++
				log.Warnf("p3: accept: %v (consecutive=%d)", err, consecutiveErrors)
				if consecutiveErrors > 5 {
					delay := time.Duration(consecutiveErrors) * 100 * time.Millisecond
					if delay > 5*time.Second {
						delay = 5 * time.Second
					}
					time.Sleep(delay)
				}
				continue
			}
		}
		consecutiveErrors = 0

		c := newConn(nc, opts, log, stats)
		go c.serve(ctx, reg)
	}
}
