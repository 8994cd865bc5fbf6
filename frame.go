// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

import (
	"encoding/binary"

	"code.vintagenet.io/p3/internal/crc16"
)

// Wire format constants (spec §6.1, §6.2).
const (
	// Magic is the first byte of every frame.
	Magic byte = 0x5A

	// Terminator is the optional single trailing byte that may follow a
	// frame on the wire.
	Terminator byte = 0x0D

	headerLen = 8 // magic, crc(2), length(2), tx, rx, type
)

// Packet types (spec §6.2). TypeINIT is the wire-observed value for the
// startup probe; it is numerically the logical INIT type (0x23) with the
// control-family high nibble (0xA0..0xAF) forced on, the same pattern
// TypeWindowOpen/TypeKeepAlive/TypeWindowOpenNoResp follow for their own
// logical types.
const (
	TypeDATA      byte = 0x20
	TypeSS        byte = 0x21
	TypeSSR       byte = 0x22
	TypeINITBase  byte = 0x23
	TypeACK       byte = 0x24
	TypeNAK       byte = 0x25
	TypeHEARTBEAT byte = 0x26

	TypeINIT            byte = 0xA3
	TypeWindowOpen      byte = 0xA4
	TypeKeepAlive       byte = 0xA5
	TypeWindowOpenNoResp byte = 0xA6
)

func isControlFamily(typ byte) bool { return typ&0xF0 == 0xA0 }

// Frame is the in-memory representation of a wire frame. buf always holds
// exactly the core frame bytes (6+declared-length), never the optional
// trailing terminator; Terminated records whether a terminator was present
// on the wire (inbound) or should be emitted (outbound).
type Frame struct {
	buf        []byte
	Terminated bool
}

// newFrameFromBytes wraps a defensive copy of core (the 6+L core bytes,
// without terminator) in a *Frame.
func newFrameFromBytes(core []byte, terminated bool) *Frame {
	buf := make([]byte, len(core))
	copy(buf, core)
	return &Frame{buf: buf, Terminated: terminated}
}

// Bytes returns the core frame bytes (never including the terminator).
func (f *Frame) Bytes() []byte { return f.buf }

// WireBytes returns the bytes as they should appear on the wire, including
// the trailing terminator if Terminated is set.
func (f *Frame) WireBytes() []byte {
	if !f.Terminated {
		return f.buf
	}
	out := make([]byte, len(f.buf)+1)
	copy(out, f.buf)
	out[len(out)-1] = Terminator
	return out
}

func (f *Frame) Len() int { return len(f.buf) }

func (f *Frame) CRC() uint16           { return binary.BigEndian.Uint16(f.buf[1:3]) }
func (f *Frame) DeclaredLength() int   { return int(binary.BigEndian.Uint16(f.buf[3:5])) }
func (f *Frame) TX() uint8             { return f.buf[5] }
func (f *Frame) RX() uint8             { return f.buf[6] }
func (f *Frame) Type() byte            { return f.buf[7] }
func (f *Frame) SetTX(tx uint8)        { f.buf[5] = tx }
func (f *Frame) SetRX(rx uint8)        { f.buf[6] = rx }

// content returns the bytes after the 8-byte fixed header: length
// DeclaredLength()-2 per the wire format's length accounting (spec §3).
func (f *Frame) content() []byte {
	if len(f.buf) <= headerLen {
		return nil
	}
	return f.buf[headerLen:]
}

// IsShortControl reports whether f matches the 9-byte short control shape:
// declared length 3, type in the 0xA0..0xAF family excluding the INIT wire
// value 0xA3 (spec §3, §4.2).
func (f *Frame) IsShortControl() bool {
	return f.Len() == 9 && f.DeclaredLength() == 3 && isControlFamily(f.Type()) && f.Type() != TypeINIT
}

// IsExtended reports whether f carries an explicit big-endian stream
// identifier at bytes 10-11 (application payload starting at byte 12)
// rather than the non-stream shape (payload starting at byte 8, spec §3).
// Only DATA frames use the embedded-stream-id shape: INIT and the other
// control-carrying full-frame types have fixed payload layouts that start
// immediately after the token, regardless of length, so they are never
// treated as extended (see DESIGN.md).
func (f *Frame) IsExtended() bool {
	return f.Type() == TypeDATA && len(f.content()) >= 4
}

// Token returns the two-byte application command token at bytes 8-9, when
// present.
func (f *Frame) Token() (tok [2]byte, ok bool) {
	c := f.content()
	if len(c) < 2 {
		return tok, false
	}
	tok[0], tok[1] = c[0], c[1]
	return tok, true
}

// StreamID returns the big-endian stream identifier at bytes 10-11 when f
// is extended.
func (f *Frame) StreamID() (id uint16, ok bool) {
	if !f.IsExtended() {
		return 0, false
	}
	c := f.content()
	return binary.BigEndian.Uint16(c[2:4]), true
}

// Payload returns the application payload: bytes after byte 12 for
// extended frames, or bytes after byte 8 (including the token, by
// convention) for non-stream frames.
func (f *Frame) Payload() []byte {
	c := f.content()
	if f.IsExtended() {
		if len(c) <= 4 {
			return nil
		}
		return c[4:]
	}
	return c
}

// ValidateCRC reports whether the frame's declared CRC-16 matches the
// CRC-16 computed over bytes [3:] of the core frame.
func (f *Frame) ValidateCRC() bool {
	return f.CRC() == crc16.Checksum(f.buf[3:])
}

// Finalize recomputes the declared length field from the buffer's current
// size and the CRC-16 over bytes [3:], writing both into the header. It
// must be called on the core frame bytes only, before any terminator is
// considered (spec §4.2 finalize).
func Finalize(f *Frame) {
	l := len(f.buf) - 6
	binary.BigEndian.PutUint16(f.buf[3:5], uint16(l))
	crc := crc16.Checksum(f.buf[3:])
	binary.BigEndian.PutUint16(f.buf[1:3], crc)
}

// NewDataFrame builds an unstamped full DATA frame (TX/RX left at zero;
// SequenceEngine.Restamp fills them in before the frame is ever put on the
// wire) carrying token and, if streamID is non-nil, an explicit stream
// identifier at bytes 10-11 (spec §4.2 encode_data).
//
// A trailing terminator is requested unless payload already ends with
// Terminator.
func NewDataFrame(token [2]byte, streamID *uint16, payload []byte) *Frame {
	return newContentFrame(TypeDATA, token, streamID, payload)
}

// NewControlFrame builds an unstamped short control frame (9 bytes:
// header + single 0x0D payload byte). typ is normally in the 0xA0..0xAF
// family (spec §3); the heartbeat probe (TypeHEARTBEAT, 0x26) uses the
// same 9-byte shape.
func NewControlFrame(typ byte) *Frame {
	buf := make([]byte, headerLen+1)
	buf[0] = Magic
	buf[7] = typ
	buf[headerLen] = Terminator
	f := &Frame{buf: buf}
	Finalize(f)
	return f
}

func newContentFrame(typ byte, token [2]byte, streamID *uint16, payload []byte) *Frame {
	content := make([]byte, 0, 4+len(payload))
	content = append(content, token[0], token[1])
	if streamID != nil {
		var sid [2]byte
		binary.BigEndian.PutUint16(sid[:], *streamID)
		content = append(content, sid[:]...)
	}
	content = append(content, payload...)

	buf := make([]byte, headerLen+len(content))
	buf[0] = Magic
	buf[7] = typ
	copy(buf[headerLen:], content)

	f := &Frame{buf: buf}
	f.Terminated = len(payload) == 0 || payload[len(payload)-1] != Terminator
	Finalize(f)
	return f
}

// SplitEmbeddedStreamID strips the leading embedded stream-id bytes a raw
// application payload carries in front of its real content, per the token
// case matrix (spec §3): the number of embedded bytes depends on the
// upper/lower case pattern of the two token characters. This is used when
// wrapping a dispatch-supplied payload into an extended DATA frame whose
// stream id must move into the frame's own bytes 10-11 rather than stay
// embedded in the payload.
func SplitEmbeddedStreamID(token [2]byte, payload []byte) (streamID uint16, rest []byte, ok bool) {
	n := embeddedStreamIDBytes(token)
	if n == 0 {
		return 0, payload, false
	}
	if len(payload) < n {
		return 0, payload, false
	}
	switch n {
	case 2:
		streamID = uint16(payload[0])<<8 | uint16(payload[1])
	case 3:
		streamID = uint16(payload[1])<<8 | uint16(payload[2])
	case 4:
		streamID = uint16(payload[2])<<8 | uint16(payload[3])
	}
	return streamID, payload[n:], true
}

func embeddedStreamIDBytes(token [2]byte) int {
	upper0 := isUpperASCII(token[0])
	upper1 := isUpperASCII(token[1])
	switch {
	case upper0 && upper1:
		return 2
	case upper0 && !upper1:
		return 3
	case !upper0 && !upper1:
		return 4
	default: // lower UPPER
		return 0
	}
}

func isUpperASCII(b byte) bool { return b >= 'A' && b <= 'Z' }

// Split scans buf for complete frames, returning the frames found in order
// and the number of leading bytes consumed. Any trailing bytes that do not
// yet form a complete frame are left unconsumed for the caller to retain
// via TcpReassembler (spec §4.2).
func Split(buf []byte) (frames []*Frame, consumed int) {
	i := 0
	for i < len(buf) {
		if buf[i] != Magic {
			i++
			continue
		}
		if i+9 <= len(buf) {
			typ := buf[i+7]
			l := int(buf[i+3])<<8 | int(buf[i+4])
			if isControlFamily(typ) && typ != TypeINIT && l == 3 {
				frames = append(frames, newFrameFromBytes(buf[i:i+9], false))
				i += 9
				continue
			}
		}

		if i+headerLen > len(buf) {
			break // wait for more header bytes
		}
		l := int(buf[i+3])<<8 | int(buf[i+4])
		total := 6 + l
		if total < headerLen {
			// Malformed: declared length too small to hold even the fixed
			// header. Tolerant resync: advance one byte, no error.
			i++
			continue
		}
		if i+total > len(buf) {
			break // wait for the rest of this frame
		}
		terminated := false
		end := i + total
		if end < len(buf) && buf[end] == Terminator {
			terminated = true
		}
		frames = append(frames, newFrameFromBytes(buf[i:end], terminated))
		i = end
		if terminated {
			i++
		}
	}
	return frames, i
}
