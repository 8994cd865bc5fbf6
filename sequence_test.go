// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

import (
	"testing"

	"code.vintagenet.io/p3/internal/ring"
)

func TestNewSequenceEngine_SeedsAtRingLow(t *testing.T) {
	e := NewSequenceEngine(nil)
	if e.LastClientTX() != ring.Low {
		t.Errorf("LastClientTX() = %#x, want %#x", e.LastClientTX(), ring.Low)
	}
	if e.LastAckedServerTX() != ring.Low {
		t.Errorf("LastAckedServerTX() = %#x, want %#x", e.LastAckedServerTX(), ring.Low)
	}
	if e.StartupSeeded() {
		t.Errorf("StartupSeeded() = true before any frame observed")
	}
}

func TestObserveIncoming_TracksClientTXAndAdvancesAck(t *testing.T) {
	e := NewSequenceEngine(nil)
	f := NewControlFrame(TypeKeepAlive)
	f.SetTX(0x20)
	f.SetRX(0x15)
	Finalize(f)

	e.ObserveIncoming(f)

	if e.LastClientTX() != 0x20 {
		t.Errorf("LastClientTX() = %#x, want 0x20", e.LastClientTX())
	}
	if e.LastAckedServerTX() != 0x15 {
		t.Errorf("LastAckedServerTX() = %#x, want 0x15", e.LastAckedServerTX())
	}
}

func TestObserveIncoming_RepeatedAckIsANoop(t *testing.T) {
	e := NewSequenceEngine(nil)
	e.lastAckedServerTX = 0x20

	f := NewControlFrame(TypeKeepAlive)
	f.SetTX(0x30)
	f.SetRX(0x20) // same value already recorded: ring.Ahead must report no movement
	Finalize(f)

	e.ObserveIncoming(f)

	if e.LastAckedServerTX() != 0x20 {
		t.Errorf("LastAckedServerTX() = %#x, want unchanged 0x20", e.LastAckedServerTX())
	}
}

func TestObserveIncoming_SeedsStartupOnceFromInit(t *testing.T) {
	e := NewSequenceEngine(nil)
	init := newContentFrame(TypeINIT, [2]byte{0x0C, 0x03}, nil, make([]byte, 4))
	init.SetRX(0x22)
	Finalize(init)

	e.ObserveIncoming(init)

	if !e.StartupSeeded() {
		t.Fatalf("StartupSeeded() = false after INIT frame observed")
	}
	if e.LastSentServerDataTX() != 0x22 {
		t.Errorf("LastSentServerDataTX() = %#x, want 0x22", e.LastSentServerDataTX())
	}

	// A second INIT with a different RX must not reseed.
	second := newContentFrame(TypeINIT, [2]byte{0x0C, 0x03}, nil, make([]byte, 4))
	second.SetRX(0x40)
	Finalize(second)
	e.ObserveIncoming(second)

	if e.LastSentServerDataTX() != 0x22 {
		t.Errorf("LastSentServerDataTX() = %#x after second INIT, want unchanged 0x22", e.LastSentServerDataTX())
	}
}

func TestRestamp_DataAdvanceMovesSequenceForward(t *testing.T) {
	e := NewSequenceEngine(nil)
	start := e.LastSentServerDataTX()

	f := NewDataFrame([2]byte{'A', 'B'}, nil, []byte("x"))
	if err := e.Restamp(f, true, true); err != nil {
		t.Fatalf("Restamp: %v", err)
	}
	if f.TX() != ring.Wrap(int(start)+1) {
		t.Errorf("TX() = %#x, want %#x", f.TX(), ring.Wrap(int(start)+1))
	}
	if !e.HaveSentFirstData() {
		t.Errorf("HaveSentFirstData() = false after advancing restamp")
	}
	if e.LastSentServerDataTX() != f.TX() {
		t.Errorf("LastSentServerDataTX() = %#x, want %#x", e.LastSentServerDataTX(), f.TX())
	}
}

func TestRestamp_DataRetransmitDoesNotAdvance(t *testing.T) {
	e := NewSequenceEngine(nil)
	f1 := NewDataFrame([2]byte{'A', 'B'}, nil, []byte("x"))
	if err := e.Restamp(f1, true, true); err != nil {
		t.Fatalf("Restamp: %v", err)
	}
	before := e.LastSentServerDataTX()

	retry := NewDataFrame([2]byte{'A', 'B'}, nil, []byte("x"))
	if err := e.Restamp(retry, true, false); err != nil {
		t.Fatalf("Restamp retry: %v", err)
	}
	if retry.TX() != before {
		t.Errorf("retry TX() = %#x, want unchanged %#x", retry.TX(), before)
	}
	if e.LastSentServerDataTX() != before {
		t.Errorf("LastSentServerDataTX() moved on retransmit: %#x != %#x", e.LastSentServerDataTX(), before)
	}
}

func TestRestamp_ControlUsesLastDataTXIdentity(t *testing.T) {
	e := NewSequenceEngine(nil)
	data := NewDataFrame([2]byte{'A', 'B'}, nil, []byte("x"))
	if err := e.Restamp(data, true, true); err != nil {
		t.Fatalf("Restamp data: %v", err)
	}

	ctrl := NewControlFrame(TypeKeepAlive)
	if err := e.Restamp(ctrl, false, false); err != nil {
		t.Fatalf("Restamp control: %v", err)
	}
	if ctrl.TX() != e.LastSentServerDataTX() {
		t.Errorf("control TX() = %#x, want last data TX %#x", ctrl.TX(), e.LastSentServerDataTX())
	}
}

func TestOutstanding_ReflectsUnackedData(t *testing.T) {
	e := NewSequenceEngine(nil)
	if e.Outstanding() != 0 {
		t.Fatalf("Outstanding() = %d before any data sent, want 0", e.Outstanding())
	}
	for i := 0; i < 3; i++ {
		f := NewDataFrame([2]byte{'A', 'B'}, nil, []byte("x"))
		if err := e.Restamp(f, true, true); err != nil {
			t.Fatalf("Restamp %d: %v", i, err)
		}
	}
	if e.Outstanding() != 3 {
		t.Fatalf("Outstanding() = %d, want 3", e.Outstanding())
	}

	ack := NewControlFrame(TypeKeepAlive)
	ack.SetRX(e.LastSentServerDataTX())
	Finalize(ack)
	e.ObserveIncoming(ack)

	if e.Outstanding() != 0 {
		t.Fatalf("Outstanding() after full ack = %d, want 0", e.Outstanding())
	}
}
