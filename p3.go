// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package p3 implements the core of a server for the legacy "P3" framed
// protocol spoken by vintage AOL 3.0-era client software.
//
// Scope and design:
//   - Framing: the wire format is a fixed 8-byte header (magic, CRC-16,
//     declared length, TX sequence, RX sequence, type) followed by an
//     optional application payload and an optional trailing 0x0D terminator.
//     FrameCodec splits an arbitrary byte buffer into zero or more complete
//     frames and never blocks on a partial frame — the caller retains the
//     remainder via TcpReassembler and resumes on the next read.
//   - Sequencing: SequenceEngine owns the wrapped TX/RX ring described by
//     internal/ring and enforces the single documented invariant that
//     matters for interoperating with this protocol family: outgoing DATA
//     frames carry strictly ring-increasing sequence numbers, while control
//     frames always restate the last DATA sequence rather than minting a new
//     one.
//   - Pacing: Pacer is a deferred-drain scheduler. It never sends more than a
//     bounded number of outstanding DATA frames and degrades to heartbeats
//     when the peer goes silent.
//   - Reassembly: StreamAssembler groups frames carrying the same stream
//     identifier until ConnectionOrchestrator recognizes an end-of-stream
//     marker in the opaque application payload.
//
// This package treats encoded application payloads as opaque bytes; it does
// not interpret, compile, or decode FDO atoms. Application semantics,
// authentication, persistence, and transport acceptance live outside this
// package — see package dispatch for the seam the orchestrator calls
// through.
package p3

import "code.hybscloud.com/iox"

// These are re-exported as package-level aliases, mirroring the teacher
// library's convention, so callers never need to import iox directly to
// recognize the core's non-blocking control-flow signals.
var (
	// ErrWouldBlock means "no further progress without waiting". The Pacer
	// surfaces this when the transport is not currently writable.
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrMore means a partial completion occurred and the caller should
	// call again to continue an in-flight operation.
	ErrMore = iox.ErrMore
)
