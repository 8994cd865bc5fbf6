// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

import (
	"testing"
	"time"

	"code.vintagenet.io/p3/dispatch"
)

// recordingTransport is a deterministic in-memory Transport double, in the
// teacher's net.Pipe()-free table-driven test style.
type recordingTransport struct {
	active bool
	writes [][]byte
	block  bool
}

func (t *recordingTransport) Write(b []byte) (int, error) {
	if t.block {
		return 0, ErrWouldBlock
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	t.writes = append(t.writes, cp)
	return len(b), nil
}

func (t *recordingTransport) Active() bool { return t.active }

// recordingHandler is a minimal dispatch.Handler double.
type recordingHandler struct {
	messages []dispatch.Message
	goodbyes int
}

func (h *recordingHandler) Handle(msg dispatch.Message, sess dispatch.Session) error {
	h.messages = append(h.messages, msg)
	return nil
}

func (h *recordingHandler) Goodbye(sess dispatch.Session) error {
	h.goodbyes++
	return nil
}

func buildFrame(t *testing.T, tx, rx, typ byte, content []byte) []byte {
	t.Helper()
	buf := make([]byte, headerLen+len(content))
	buf[0] = Magic
	buf[5] = tx
	buf[6] = rx
	buf[7] = typ
	copy(buf[headerLen:], content)
	f := &Frame{buf: buf}
	Finalize(f)
	return f.Bytes()
}

func TestHandleChunk_InitHandshakeMac(t *testing.T) {
	tp := &recordingTransport{active: true}
	h := &recordingHandler{}
	ch := NewConnectionHandler(tp, h, "conn-1", DefaultOptions())

	init := buildFrame(t, 0x10, 0x10, TypeINIT, append([]byte{0x0C, 0x03}, make([]byte, 6)...))
	if err := ch.HandleChunk(init); err != nil {
		t.Fatalf("HandleChunk: %v", err)
	}
	if ch.Session().Platform != PlatformMac {
		t.Fatalf("platform = %v, want mac", ch.Session().Platform)
	}
	if len(tp.writes) != 2 {
		t.Fatalf("writes = %d, want 2 (keepalive-pong + handshake)", len(tp.writes))
	}
}

func TestHandleChunk_InitHandshakeWindows(t *testing.T) {
	tp := &recordingTransport{active: true}
	h := &recordingHandler{}
	ch := NewConnectionHandler(tp, h, "conn-2", DefaultOptions())

	// Content length 50 bytes => declared length 52 (total = 6+L, L = content+2),
	// matching DetectHandshakePlatform's declared-length-52 Windows rule.
	content := make([]byte, 50)
	content[0] = 1 // platform byte: windows
	init := buildFrame(t, 0x10, 0x10, TypeINIT, content)
	if err := ch.HandleChunk(init); err != nil {
		t.Fatalf("HandleChunk: %v", err)
	}
	if ch.Session().Platform != PlatformWindows {
		t.Fatalf("platform = %v, want windows", ch.Session().Platform)
	}
	if len(tp.writes) != 2 {
		t.Fatalf("writes = %d, want 2", len(tp.writes))
	}
}

func TestHandleChunk_NonStreamMessageDispatched(t *testing.T) {
	tp := &recordingTransport{active: true}
	h := &recordingHandler{}
	ch := NewConnectionHandler(tp, h, "conn-3", DefaultOptions())

	frame := buildFrame(t, 0x10, 0x10, TypeDATA, []byte{'X', 'Y'})
	if err := ch.HandleChunk(frame); err != nil {
		t.Fatalf("HandleChunk: %v", err)
	}
	if len(h.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(h.messages))
	}
	if h.messages[0].Token != ([2]byte{'X', 'Y'}) {
		t.Fatalf("token = %v", h.messages[0].Token)
	}
}

func TestHandleChunk_StreamAccumulatesUntilEndMarker(t *testing.T) {
	tp := &recordingTransport{active: true}
	h := &recordingHandler{}
	ch := NewConnectionHandler(tp, h, "conn-4", DefaultOptions())

	mid := buildFrame(t, 0x10, 0x10, TypeDATA, append([]byte{'A', 'B', 0x00, 0x01}, 0x01, 0x02, 0x03))
	if err := ch.HandleChunk(mid); err != nil {
		t.Fatalf("HandleChunk mid: %v", err)
	}
	if len(h.messages) != 0 {
		t.Fatalf("messages delivered before end marker: %d", len(h.messages))
	}
	if ch.Streams().Size() != 1 {
		t.Fatalf("stream entries = %d, want 1", ch.Streams().Size())
	}

	last := buildFrame(t, 0x11, 0x10, TypeDATA, append([]byte{'A', 'B', 0x00, 0x01}, 0x00, 0x03, 0x01, 0x00))
	if err := ch.HandleChunk(last); err != nil {
		t.Fatalf("HandleChunk last: %v", err)
	}
	if len(h.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(h.messages))
	}
	if len(h.messages[0].Frames) != 2 {
		t.Fatalf("frames in message = %d, want 2", len(h.messages[0].Frames))
	}
	if ch.Streams().Size() != 0 {
		t.Fatalf("stream entry not cleared after delivery")
	}
}

func TestHandleChunk_SplitAcrossReads(t *testing.T) {
	tp := &recordingTransport{active: true}
	h := &recordingHandler{}
	ch := NewConnectionHandler(tp, h, "conn-5", DefaultOptions())

	full := buildFrame(t, 0x10, 0x10, TypeDATA, []byte{'X', 'Y', 'h'})
	if err := ch.HandleChunk(full[:3]); err != nil {
		t.Fatalf("HandleChunk part1: %v", err)
	}
	if len(h.messages) != 0 {
		t.Fatalf("premature dispatch on partial frame")
	}
	if err := ch.HandleChunk(full[3:]); err != nil {
		t.Fatalf("HandleChunk part2: %v", err)
	}
	if len(h.messages) != 1 {
		t.Fatalf("messages = %d, want 1 after remainder delivered", len(h.messages))
	}
}

func TestClose_ReportsDiscardedBufferAndCallsGoodbye(t *testing.T) {
	tp := &recordingTransport{active: true}
	h := &recordingHandler{}
	ch := NewConnectionHandler(tp, h, "conn-6", DefaultOptions())

	full := buildFrame(t, 0x10, 0x10, TypeDATA, []byte{'X', 'Y'})
	_ = ch.HandleChunk(full[:2]) // partial, left buffered

	discarded := ch.Close()
	if discarded != 2 {
		t.Fatalf("discarded = %d, want 2", discarded)
	}
	if h.goodbyes != 1 {
		t.Fatalf("goodbyes = %d, want 1", h.goodbyes)
	}
	if ch.Streams().Size() != 0 {
		t.Fatalf("streams not cleared on close")
	}

	if err := ch.HandleChunk(full); err != ErrTransportInactive {
		t.Fatalf("HandleChunk after close: %v, want ErrTransportInactive", err)
	}
}

func TestTick_HeartbeatExhaustion(t *testing.T) {
	tp := &recordingTransport{active: true}
	h := &recordingHandler{}
	opts := DefaultOptions()
	opts.HeartbeatInterval = time.Millisecond
	opts.HeartbeatMaxAttempts = 2
	opts.SoftThrottle = 1 // one sent frame fills the window; the second stays queued and arms the heartbeat
	ch := NewConnectionHandler(tp, h, "conn-7", opts)

	sess := &dispatchSession{h: ch}
	sess.SendData([2]byte{'X', 'Y'}, nil, []byte("payload"))
	sess.SendData([2]byte{'X', 'Y'}, nil, []byte("payload"))
	ch.Pacer().Drain()

	now := time.Now()
	sent1, exhausted1 := ch.Tick(now.Add(time.Second))
	if !sent1 || exhausted1 {
		t.Fatalf("first heartbeat: sent=%v exhausted=%v", sent1, exhausted1)
	}
	sent2, exhausted2 := ch.Tick(now.Add(2 * time.Second))
	if !sent2 || !exhausted2 {
		t.Fatalf("second heartbeat: sent=%v exhausted=%v, want true true", sent2, exhausted2)
	}
}
