// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

import (
	"bytes"
	"time"
)

// streamEntry is the ordered sequence of frame copies accepted for one
// stream identifier, plus the arrival time of the first fragment (spec
// §3 StreamAssemblyEntry).
type streamEntry struct {
	frames    []*Frame
	firstSeen time.Time
}

// StreamAssembler groups incoming application frames by stream identifier
// until the caller recognizes an end-of-stream marker (spec §4.5). It is
// owned by ConnectionOrchestrator and cleared on close.
type StreamAssembler struct {
	entries map[uint16]*streamEntry
}

// NewStreamAssembler constructs an empty StreamAssembler.
func NewStreamAssembler() *StreamAssembler {
	return &StreamAssembler{entries: make(map[uint16]*streamEntry)}
}

// Accept appends a defensive copy of frame to the entry for streamID.
func (a *StreamAssembler) Accept(streamID uint16, frame *Frame) {
	e, ok := a.entries[streamID]
	if !ok {
		e = &streamEntry{firstSeen: time.Now()}
		a.entries[streamID] = e
	}
	cp := newFrameFromBytes(frame.Bytes(), frame.Terminated)
	e.frames = append(e.frames, cp)
}

// Take removes and returns the accumulated frame sequence for streamID, or
// (nil, false) if nothing was accumulated for it.
func (a *StreamAssembler) Take(streamID uint16) ([]*Frame, bool) {
	e, ok := a.entries[streamID]
	if !ok {
		return nil, false
	}
	delete(a.entries, streamID)
	return e.frames, true
}

// Has reports whether streamID currently has accumulated frames.
func (a *StreamAssembler) Has(streamID uint16) bool {
	_, ok := a.entries[streamID]
	return ok
}

// Clear discards the accumulated entry for streamID, if any.
func (a *StreamAssembler) Clear(streamID uint16) { delete(a.entries, streamID) }

// ClearAll discards all accumulated entries.
func (a *StreamAssembler) ClearAll() { a.entries = make(map[uint16]*streamEntry) }

// Size returns the number of distinct stream identifiers currently held.
func (a *StreamAssembler) Size() int { return len(a.entries) }

// IsEmpty reports whether the assembler holds no entries.
func (a *StreamAssembler) IsEmpty() bool { return len(a.entries) == 0 }

// End-of-stream marker prefixes recognized in the opaque FDO payload (spec
// §4.5). The first pattern is the common case; the remaining three are
// accepted but logged as uncommon, pending future narrowing (spec §9 open
// question).
var (
	endMarkerCommon     = []byte{0x00, 0x03, 0x01, 0x00}
	endMarkerAlt1       = []byte{0x00, 0x03, 0x00}
	endMarkerAlt2       = []byte{0x00, 0x02, 0x01, 0x00}
	endMarkerAlt3       = []byte{0x00, 0x01, 0x01, 0x00}
)

// IsEndOfStream scans payload (the application payload after the 12-byte
// extended header) for one of the documented end-of-stream marker prefixes.
// It reports whether a marker was found and, if so, whether it was one of
// the three uncommon variants worth logging (spec §4.5, §9).
func IsEndOfStream(payload []byte) (found bool, uncommon bool) {
	if len(payload) >= 2 {
		switch {
		case payload[0] == 0x00 && (payload[1] == 0x04 || payload[1] == 0x05):
			// Large-atom continuation: never an end marker.
			return false, false
		}
	}
	if bytes.HasPrefix(payload, endMarkerCommon) {
		return true, false
	}
	if bytes.HasPrefix(payload, endMarkerAlt1) {
		return true, true
	}
	if bytes.HasPrefix(payload, endMarkerAlt2) {
		return true, true
	}
	if bytes.HasPrefix(payload, endMarkerAlt3) {
		return true, true
	}
	return false, false
}
