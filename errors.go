// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports an invalid configuration, nil dependency,
	// or out-of-range argument (e.g. TcpReassembler.Remainder given an
	// offset outside [0, len(combined)]).
	ErrInvalidArgument = errors.New("p3: invalid argument")

	// ErrTooLong reports a declared frame length exceeding the wire format's
	// representable range.
	ErrTooLong = errors.New("p3: message too long")

	// ErrShortFrame reports a frame buffer too small to contain a valid
	// header (fewer than 6 bytes) passed to an operation that requires a
	// complete frame.
	ErrShortFrame = errors.New("p3: short frame")

	// ErrBadCRC reports a frame whose CRC-16 did not validate.
	ErrBadCRC = errors.New("p3: bad crc")

	// ErrSequenceInvariant reports that a SequenceEngine post-condition was
	// violated (e.g. a control-frame restamp whose TX does not equal
	// lastSentServerDataTX). This is a fatal-connection condition: the
	// protocol engine has a bug or the peer is not speaking P3.
	ErrSequenceInvariant = errors.New("p3: sequence engine invariant violated")

	// ErrUnknownToken reports a frame carrying a token the dispatcher does
	// not recognize. Skippable: the frame is dropped, the connection stays
	// open.
	ErrUnknownToken = errors.New("p3: unknown token")

	// ErrTransportInactive reports that the underlying transport is no
	// longer usable (closed, reset). Transport-transient: the Pacer aborts
	// the current drain; it does not close the connection itself.
	ErrTransportInactive = errors.New("p3: transport inactive")
)

// BufferOverflow reports that TcpReassembler's resource caps (spec §4.1)
// were exceeded: either the combined buffer would exceed the 64KiB cap, or
// more than the configured number of consecutive calls produced no
// progress.
type BufferOverflow struct {
	// Size is the buffered length that triggered the overflow.
	Size int
	// Attempts is the number of consecutive no-progress accumulation
	// attempts observed, or 0 if the overflow was a pure size violation.
	Attempts int
}

func (e *BufferOverflow) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("p3: tcp reassembly buffer overflow: %d bytes after %d stalled attempts", e.Size, e.Attempts)
	}
	return fmt.Sprintf("p3: tcp reassembly buffer overflow: %d bytes", e.Size)
}

// Is allows errors.Is(err, p3.ErrBufferOverflow) to match any *BufferOverflow
// value without callers needing to inspect its fields.
func (e *BufferOverflow) Is(target error) bool {
	_, ok := target.(*BufferOverflow)
	return ok
}

// ErrBufferOverflow is a zero-value sentinel usable with errors.Is to detect
// any *BufferOverflow.
var ErrBufferOverflow = &BufferOverflow{}
