// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

import (
	"errors"
	"time"

	"code.vintagenet.io/p3/dispatch"
)

// SessionState is the minimal, core-visible per-connection state (spec §3).
// The core does not own user identity; everything beyond Platform/Init/
// SequenceSeeded belongs to external collaborators.
type SessionState struct {
	Platform        Platform
	Init            *InitRecord
	SequenceSeeded  bool
	ConnectionID    string
}

// ConnectionHandler composes the five core components for one connection
// and implements the dataflow described in spec §2 and §4.6.
type ConnectionHandler struct {
	reassembler *TcpReassembler
	codec       struct{} // FrameCodec is stateless; Split/Finalize are package funcs.
	sequence    *SequenceEngine
	pacer       *Pacer
	streams     *StreamAssembler

	session SessionState
	opts    Options
	log     Logger

	handler dispatch.Handler

	closed bool
}

// NewConnectionHandler constructs a ConnectionHandler bound to tp (the
// outbound transport) and handler (the external token dispatcher). opts'
// zero values are filled with DefaultOptions.
func NewConnectionHandler(tp Transport, handler dispatch.Handler, connectionID string, opts Options) *ConnectionHandler {
	opts.setDefaults()
	seq := NewSequenceEngine(opts.Logger)
	return &ConnectionHandler{
		reassembler: NewTcpReassembler(opts.ReassemblerMaxBuffer, opts.ReassemblerMaxStallAttempts),
		sequence:    seq,
		pacer:       NewPacer(tp, seq, opts),
		streams:     NewStreamAssembler(),
		session:     SessionState{ConnectionID: connectionID},
		opts:        opts,
		log:         opts.Logger,
		handler:     handler,
	}
}

// Sequence exposes the connection's SequenceEngine for diagnostics/tests.
func (h *ConnectionHandler) Sequence() *SequenceEngine { return h.sequence }

// Pacer exposes the connection's Pacer for diagnostics/tests.
func (h *ConnectionHandler) Pacer() *Pacer { return h.pacer }

// Streams exposes the connection's StreamAssembler for diagnostics/tests.
func (h *ConnectionHandler) Streams() *StreamAssembler { return h.streams }

// Session returns a snapshot of the connection's SessionState.
func (h *ConnectionHandler) Session() SessionState { return h.session }

// HandleChunk processes one TCP read's worth of bytes through the full
// inbound dataflow (spec §4.6): reassemble, split into frames, update
// sequencing, classify and route each frame, then drain the Pacer.
//
// A returned error is always fatal-connection (spec §7): the caller must
// close the connection. Non-fatal conditions (skippable frames, unknown
// tokens, transport-transient backpressure) are logged internally and do
// not propagate here.
func (h *ConnectionHandler) HandleChunk(chunk []byte) error {
	if h.closed {
		return ErrTransportInactive
	}

	data, err := h.reassembler.Prepare(chunk)
	if err != nil {
		return err
	}

	h.pacer.SetDrainsDeferred(true)

	frames, consumed := Split(data)
	for _, f := range frames {
		h.processFrame(f)
	}

	if err := h.reassembler.Remainder(data, consumed); err != nil {
		return err
	}

	h.pacer.SetDrainsDeferred(false)
	if !h.pacer.IsWaitingForAck() && h.pacer.HasPending() {
		h.pacer.DrainLimited(h.opts.MaxBurstFrames)
	}
	return nil
}

func (h *ConnectionHandler) processFrame(f *Frame) {
	before := h.sequence.Outstanding()
	h.sequence.ObserveIncoming(f)
	after := h.sequence.Outstanding()
	if after < before {
		h.pacer.OnPiggybackAck(before - after)
	}

	if f.IsShortControl() {
		h.routeShortControl(f)
		return
	}

	if f.Type() == TypeINIT {
		h.routeInit(f)
		return
	}

	h.routeStreamFrame(f)
}

func (h *ConnectionHandler) routeShortControl(f *Frame) {
	switch f.Type() {
	case TypeWindowOpen:
		h.pacer.OnWindowOpenShortAck()
	case TypeKeepAlive:
		// No drain triggered by a bare keep-alive.
	case TypeWindowOpenNoResp:
		// Unlike 0xA4, 0xA6 additionally drains once the current read
		// batch's deferral ends — but drains are deferred for the whole
		// batch (SetDrainsDeferred(true) in HandleChunk), so any drain
		// attempted here is a guaranteed no-op. HandleChunk's step 5
		// already issues that post-deferral drain unconditionally once
		// IsWaitingForAck is false, which this call just cleared; no
		// separate call is needed here.
		h.pacer.OnWindowOpenShortAck()
	default:
		h.log.Debugf("p3: unhandled short control type %#x", f.Type())
	}
}

func (h *ConnectionHandler) routeInit(f *Frame) {
	rec := ParseInit(f.Payload())
	h.session.Init = rec
	h.session.SequenceSeeded = h.sequence.StartupSeeded()

	platform := DetectHandshakePlatform(f)
	h.session.Platform = platform

	if err := SendHandshake(h.pacer, platform); err != nil {
		h.log.Warnf("p3: handshake send failed for connection %s: %v", h.session.ConnectionID, err)
	}
}

func (h *ConnectionHandler) routeStreamFrame(f *Frame) {
	tok, ok := f.Token()
	if !ok {
		h.log.Debugf("p3: frame without token, type %#x, dropped", f.Type())
		return
	}

	if !f.IsExtended() {
		// No stream id: deliver as a single-frame message immediately.
		h.deliver(tok, 0, []*Frame{f})
		return
	}

	streamID, _ := f.StreamID()
	end, uncommon := IsEndOfStream(f.Payload())
	if uncommon {
		h.log.Debugf("p3: uncommon end-of-stream marker matched for stream %#x", streamID)
	}

	if !end {
		h.streams.Accept(streamID, f)
		return
	}

	h.streams.Accept(streamID, f)
	frames, _ := h.streams.Take(streamID)
	h.deliver(tok, streamID, frames)
}

func (h *ConnectionHandler) deliver(token [2]byte, streamID uint16, frames []*Frame) {
	msg := dispatch.Message{
		Token:    token,
		StreamID: streamID,
		Frames:   framePayloads(frames),
	}
	if h.handler == nil {
		return
	}
	if err := h.handler.Handle(msg, &dispatchSession{h: h}); err != nil {
		if errors.Is(err, dispatch.ErrUnknownToken) {
			h.log.Debugf("p3: unknown token %q, frame dropped", string(token[:]))
			return
		}
		h.log.Warnf("p3: token handler error for %q: %v", string(token[:]), err)
	}
}

func framePayloads(frames []*Frame) [][]byte {
	out := make([][]byte, len(frames))
	for i, f := range frames {
		out[i] = f.Payload()
	}
	return out
}

// Resume notifies the Pacer that the transport has become writable again.
func (h *ConnectionHandler) Resume() { h.pacer.Resume() }

// Tick lets the caller drive time-based behavior (heartbeats) without an
// internal timer goroutine, matching spec §5's model where suspension
// points are limited to transport writability and the executor's own
// scheduler. The caller should invoke this periodically, e.g. once per
// second, while the connection is open.
func (h *ConnectionHandler) Tick(now time.Time) (heartbeatSent, heartbeatsExhausted bool) {
	if h.closed {
		return false, false
	}
	return h.pacer.MaybeHeartbeat(now)
}

// Close executes the documented cancellation sequence (spec §5): cancel the
// heartbeat, clear pending pacer state, clear stream assembler entries,
// report the discarded TCP buffer size, and attempt a best-effort goodbye
// through the dispatcher before marking the handler closed.
func (h *ConnectionHandler) Close() (discardedBufferBytes int) {
	if h.closed {
		return 0
	}
	h.pacer.Close()
	h.streams.ClearAll()
	discarded := h.reassembler.Clear()
	if h.handler != nil {
		if err := h.handler.Goodbye(&dispatchSession{h: h}); err != nil {
			h.log.Debugf("p3: goodbye hook error for connection %s: %v", h.session.ConnectionID, err)
		}
	}
	h.closed = true
	return discarded
}

// dispatchSession adapts ConnectionHandler to dispatch.Session, the narrow
// read/send surface external token handlers get instead of the whole
// handler (spec §1: token handlers are external collaborators consuming
// only the interfaces the core exposes).
type dispatchSession struct{ h *ConnectionHandler }

func (s *dispatchSession) ConnectionID() string { return s.h.session.ConnectionID }

func (s *dispatchSession) Platform() string { return s.h.session.Platform.String() }

func (s *dispatchSession) SendData(token [2]byte, streamID *uint16, payload []byte) {
	s.h.pacer.Enqueue(NewDataFrame(token, streamID, payload), "dispatch-data")
}

func (s *dispatchSession) SendControl(typ byte) {
	s.h.pacer.EnqueuePriority(NewControlFrame(typ), "dispatch-control")
}
