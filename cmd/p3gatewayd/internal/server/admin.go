// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"net"
	"os"
	"strings"

	"code.vintagenet.io/p3/internal/bo"
)

// serveAdmin listens on a local Unix socket and, on every accepted
// connection, writes one snapshot of live connection state: a 4-byte
// native-byte-order record count (bo.Native(), spec §11's one genuinely
// host-order-sensitive piece of the core) followed by one text line per
// connection, then closes. This is a read-only interactive debugging aid,
// not a wire protocol of its own.
func serveAdmin(ctx context.Context, socketPath string, reg *registry) error {
	_ = os.Remove(socketPath)
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		c, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				continue
			}
		}
		go writeAdminSnapshot(c, reg)
	}
}

func writeAdminSnapshot(c net.Conn, reg *registry) {
	defer c.Close()
	lines := reg.snapshot()

	var count [4]byte
	bo.Native().PutUint32(count[:], uint32(len(lines)))
	if _, err := c.Write(count[:]); err != nil {
		return
	}
	_, _ = c.Write([]byte(strings.Join(lines, "\n") + "\n"))
}
