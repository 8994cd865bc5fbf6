// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

import "code.vintagenet.io/p3/internal/ring"

// SequenceEngine owns the wrapped TX/RX sequence ring for one connection
// (spec §4.3). It is modified only on the connection's single-threaded
// execution context.
type SequenceEngine struct {
	lastClientTX        uint8
	lastAckedServerTX   uint8
	lastSentServerDataTX uint8
	lastStampedControlTX uint8

	startupSeeded     bool
	haveSentFirstData bool

	log Logger
}

// NewSequenceEngine constructs a SequenceEngine seeded at the ring's lowest
// value, matching a freshly accepted connection before any bytes have been
// exchanged.
func NewSequenceEngine(log Logger) *SequenceEngine {
	if log == nil {
		log = nopLogger{}
	}
	return &SequenceEngine{
		lastClientTX:         ring.Low,
		lastAckedServerTX:    ring.Low,
		lastSentServerDataTX: ring.Low,
		lastStampedControlTX: ring.Low,
		log:                  log,
	}
}

// ObserveIncoming updates engine state from a received frame (spec §4.3).
func (e *SequenceEngine) ObserveIncoming(f *Frame) {
	if f.Len() < 6 || f.buf[0] != Magic {
		return
	}
	e.lastClientTX = f.TX()

	if f.Len() >= headerLen {
		rx := f.RX()
		if rx >= ring.Low && rx <= ring.High && ring.Ahead(e.lastAckedServerTX, rx) {
			e.lastAckedServerTX = rx
		}
	}

	if !e.startupSeeded && isInitFrame(f) {
		e.lastSentServerDataTX = f.RX()
		if e.lastSentServerDataTX < ring.Low {
			e.lastSentServerDataTX = ring.Low
		}
		e.startupSeeded = true
	}
}

func isInitFrame(f *Frame) bool {
	if f.Type() != TypeINIT {
		return false
	}
	tok, ok := f.Token()
	if ok && tok[0] == 0x0C && tok[1] == 0x03 {
		return true
	}
	return len(f.Payload()) == 52
}

// NextDataTX returns the sequence value the next advancing DATA restamp
// would assign, without mutating state.
func (e *SequenceEngine) NextDataTX() uint8 {
	return ring.Wrap(int(e.lastSentServerDataTX) + 1)
}

// Outstanding returns the number of server-sent DATA frames not yet
// acknowledged by the client.
func (e *SequenceEngine) Outstanding() int {
	return ring.Distance(e.lastAckedServerTX, e.lastSentServerDataTX)
}

// Restamp rewrites frame's TX, RX, length, and CRC immediately before
// sending, based on current engine state (spec §4.3). For DATA frames with
// advance set, this also advances lastSentServerDataTX and sets
// haveSentFirstData.
func (e *SequenceEngine) Restamp(f *Frame, isData, advance bool) error {
	if isData {
		if advance {
			f.SetTX(e.NextDataTX())
		} else {
			f.SetTX(e.lastSentServerDataTX)
		}
		f.SetRX(e.lastClientTX)
		if advance {
			e.lastSentServerDataTX = f.TX()
			e.haveSentFirstData = true
		}
	} else {
		f.SetTX(e.lastSentServerDataTX)
		f.SetRX(e.lastClientTX)
		e.lastStampedControlTX = f.TX()
		if e.lastStampedControlTX != e.lastSentServerDataTX {
			e.log.Warnf("p3: sequence engine bug: control tx %#x != last data tx %#x", e.lastStampedControlTX, e.lastSentServerDataTX)
			return ErrSequenceInvariant
		}
	}
	Finalize(f)
	return nil
}

// OnPiggybackAck is an informational hook the Pacer calls after
// ObserveIncoming frees window slots; the engine itself derives freed slots
// from ObserveIncoming, this entry point exists purely so the Pacer can
// resume deterministically in the same tick (spec §4.3).
func (e *SequenceEngine) OnPiggybackAck(freedSlots int) {}

// LastClientTX, LastAckedServerTX, and LastSentServerDataTX expose read-only
// snapshots of engine state for diagnostics (e.g. the admin snapshot
// listener) and tests.
func (e *SequenceEngine) LastClientTX() uint8         { return e.lastClientTX }
func (e *SequenceEngine) LastAckedServerTX() uint8    { return e.lastAckedServerTX }
func (e *SequenceEngine) LastSentServerDataTX() uint8 { return e.lastSentServerDataTX }
func (e *SequenceEngine) HaveSentFirstData() bool     { return e.haveSentFirstData }
func (e *SequenceEngine) StartupSeeded() bool         { return e.startupSeeded }
