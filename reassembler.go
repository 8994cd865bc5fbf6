// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

// TcpReassembler holds any trailing bytes from one TCP read that did not
// form a complete frame and presents their concatenation with the next
// read (spec §4.1). It is owned exclusively by one ConnectionOrchestrator
// for the lifetime of one connection.
type TcpReassembler struct {
	buf              []byte
	stallAttempts    int
	maxBuffer        int
	maxStallAttempts int
}

// NewTcpReassembler constructs a TcpReassembler with the given resource
// caps. A maxBuffer or maxStallAttempts of zero selects the documented
// defaults (65536 bytes, 10 attempts).
func NewTcpReassembler(maxBuffer, maxStallAttempts int) *TcpReassembler {
	if maxBuffer <= 0 {
		maxBuffer = DefaultOptions().ReassemblerMaxBuffer
	}
	if maxStallAttempts <= 0 {
		maxStallAttempts = DefaultOptions().ReassemblerMaxStallAttempts
	}
	return &TcpReassembler{maxBuffer: maxBuffer, maxStallAttempts: maxStallAttempts}
}

// Prepare returns newBytes concatenated with any held remainder. It fails
// with *BufferOverflow when the combined length would exceed the configured
// cap, or when more than maxStallAttempts consecutive calls would still
// leave a non-empty, non-progressing remainder.
func (r *TcpReassembler) Prepare(newBytes []byte) ([]byte, error) {
	combined := len(r.buf) + len(newBytes)
	if combined > r.maxBuffer {
		return nil, &BufferOverflow{Size: combined}
	}
	if r.buf == nil {
		return newBytes, nil
	}
	if r.stallAttempts >= r.maxStallAttempts {
		return nil, &BufferOverflow{Size: combined, Attempts: r.stallAttempts}
	}
	out := make([]byte, 0, combined)
	out = append(out, r.buf...)
	out = append(out, newBytes...)
	return out, nil
}

// Remainder stores combined[nProcessed:] as the new buffered state. It
// fails with *BufferOverflow if the remainder alone exceeds the configured
// cap, and with ErrInvalidArgument if nProcessed is outside [0, len(combined)].
//
// The stall-attempt counter resets whenever progress is made (nProcessed >
// 0) or no remainder is left; it increments when a non-empty remainder
// persists without any bytes having been consumed.
func (r *TcpReassembler) Remainder(combined []byte, nProcessed int) error {
	if nProcessed < 0 || nProcessed > len(combined) {
		return ErrInvalidArgument
	}
	rem := combined[nProcessed:]
	if len(rem) > r.maxBuffer {
		return &BufferOverflow{Size: len(rem)}
	}
	if len(rem) == 0 {
		r.buf = nil
		r.stallAttempts = 0
		return nil
	}
	if nProcessed > 0 {
		r.stallAttempts = 0
	} else {
		r.stallAttempts++
	}
	r.buf = make([]byte, len(rem))
	copy(r.buf, rem)
	return nil
}

// Clear releases any buffered state, returning the number of bytes
// discarded for diagnostics.
func (r *TcpReassembler) Clear() int {
	n := len(r.buf)
	r.buf = nil
	r.stallAttempts = 0
	return n
}

// Buffered returns the number of bytes currently held.
func (r *TcpReassembler) Buffered() int { return len(r.buf) }
