// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Transport is the narrow write surface the Pacer drains onto. It models
// exactly the three outcomes the Pacer's drain loop needs to distinguish
// (spec §4.4 step 4): a successful write, a not-currently-writable
// transport (ErrWouldBlock), and a dead transport (ErrTransportInactive).
type Transport interface {
	// Write sends b. It returns ErrWouldBlock if the transport cannot
	// accept more bytes right now, or ErrTransportInactive if the
	// transport is closed/broken.
	Write(b []byte) (int, error)
	// Active reports whether the transport is still usable.
	Active() bool
}

type pendingChunk struct {
	frame    *Frame
	label    string
	priority bool
}

// Pacer queues outbound frames and drains them under the window and
// backpressure limits described in spec §4.4.
type Pacer struct {
	tp   Transport
	seq  *SequenceEngine
	log  Logger
	opts Options

	queue []pendingChunk

	deferred bool

	needAck     bool
	needResume  bool
	heartbeatAt time.Time
	hbAttempts  int

	limiter *rate.Limiter
}

// NewPacer constructs a Pacer bound to tp and seq. opts supplies
// MaxBurstFrames, InterFrameDelay, SoftThrottle, HardLimit, and the
// heartbeat cadence (spec §4.4 Configuration).
func NewPacer(tp Transport, seq *SequenceEngine, opts Options) *Pacer {
	opts.setDefaults()
	p := &Pacer{tp: tp, seq: seq, log: opts.Logger, opts: opts}
	if opts.InterFrameDelay > 0 {
		p.limiter = rate.NewLimiter(rate.Every(opts.InterFrameDelay), 1)
	}
	return p
}

// Enqueue appends frame to the tail of the FIFO send queue.
func (p *Pacer) Enqueue(frame *Frame, label string) {
	p.queue = append(p.queue, pendingChunk{frame: frame, label: label})
}

// EnqueuePriority inserts frame at the head of the queue, ahead of any
// ordinary queued data (spec §4.4: priority control frames).
func (p *Pacer) EnqueuePriority(frame *Frame, label string) {
	p.queue = append([]pendingChunk{{frame: frame, label: label, priority: true}}, p.queue...)
}

// SetDrainsDeferred controls whether Drain/DrainLimited send anything.
// ConnectionOrchestrator sets this true while a read batch is in progress,
// then false afterward, so outbound writes never interleave mid-batch
// (spec §4.6 steps 2 and 5).
func (p *Pacer) SetDrainsDeferred(deferred bool) { p.deferred = deferred }

// HasPending reports whether the queue holds any frames.
func (p *Pacer) HasPending() bool { return len(p.queue) > 0 }

// IsWaitingForAck reports whether the Pacer is holding back sends pending a
// peer ACK (window exhaustion). Transport backpressure is reported
// separately by NeedResume.
func (p *Pacer) IsWaitingForAck() bool { return p.needAck }

// NeedResume reports whether the last drain stopped on transport
// backpressure.
func (p *Pacer) NeedResume() bool { return p.needResume }

// PendingCount returns the number of queued, undrained frames.
func (p *Pacer) PendingCount() int { return len(p.queue) }

// Drain sends as many queued frames as the window and transport allow, with
// no cap on the number of frames per call.
func (p *Pacer) Drain() { p.drain(-1) }

// DrainLimited behaves like Drain but sends at most n frames.
func (p *Pacer) DrainLimited(n int) { p.drain(n) }

func (p *Pacer) drain(maxFrames int) {
	if p.deferred {
		return
	}
	if len(p.queue) == 0 {
		return
	}

	outstanding := p.seq.Outstanding()
	if outstanding >= p.opts.SoftThrottle {
		p.needAck = true
		p.scheduleHeartbeat()
		return
	}
	effectiveMax := p.opts.SoftThrottle - outstanding
	if maxFrames >= 0 && maxFrames < effectiveMax {
		effectiveMax = maxFrames
	}
	if effectiveMax <= 0 {
		return
	}

	if !p.tp.Active() {
		p.log.Warnf("p3: pacer drain aborted, transport inactive")
		return
	}

	sent := 0
	for sent < effectiveMax && len(p.queue) > 0 {
		chunk := p.queue[0]
		isData := chunk.frame.Type() == TypeDATA

		if isData && p.seq.Outstanding()+1 > p.opts.HardLimit {
			break
		}

		if err := p.seq.Restamp(chunk.frame, isData, isData); err != nil {
			p.log.Warnf("p3: pacer restamp failed for %q: %v", chunk.label, err)
			p.queue = p.queue[1:]
			continue
		}

		_, werr := p.tp.Write(chunk.frame.WireBytes())
		if werr != nil {
			if werr == ErrWouldBlock {
				p.needResume = true
				return
			}
			if werr == ErrTransportInactive {
				p.log.Warnf("p3: pacer drain aborted, transport inactive")
				return
			}
			p.log.Warnf("p3: pacer write failed for %q: %v", chunk.label, werr)
			p.queue = p.queue[1:]
			continue
		}

		p.queue = p.queue[1:]
		sent++

		if isData && p.limiter != nil && len(p.queue) > 0 {
			// Blocks only this connection's goroutine; other connections'
			// Pacers run independently (spec §5: worker-thread model, not a
			// shared cooperative loop).
			_ = p.limiter.Wait(context.Background())
		}
	}

	if len(p.queue) > 0 {
		// Frames remain queued whether the hard limit, the soft-throttle
		// clamp, or the caller's own burst cap stopped this call short —
		// in every case the peer now owes an ACK before more can go out,
		// so the pending-ACK episode starts here rather than waiting for
		// some hypothetical next Drain call to notice on entry.
		p.needAck = true
		p.scheduleHeartbeat()
	}
}

func (p *Pacer) scheduleHeartbeat() {
	if p.heartbeatAt.IsZero() {
		p.heartbeatAt = time.Now().Add(p.opts.HeartbeatInterval)
	}
}

// Resume clears a pending backpressure condition and re-attempts a full
// drain. The transport layer calls this when writability returns.
func (p *Pacer) Resume() {
	if !p.needResume {
		return
	}
	p.needResume = false
	p.Drain()
}

// OnWindowOpenShortAck handles a bare window-open control frame (type
// 0xA4): it clears the pending-ACK state and cancels the heartbeat, but
// deliberately does not drain — the caller decides when to drain (spec
// §4.4).
func (p *Pacer) OnWindowOpenShortAck() {
	p.needAck = false
	p.cancelHeartbeat()
}

// OnPiggybackAck handles an ordinary incoming frame whose RX advanced
// last_acked_server_tx by at least one slot: clears pending-ACK state,
// cancels the heartbeat, and drains immediately.
func (p *Pacer) OnPiggybackAck(freed int) {
	if freed <= 0 {
		return
	}
	p.needAck = false
	p.cancelHeartbeat()
	p.seq.OnPiggybackAck(freed)
	p.Drain()
}

func (p *Pacer) cancelHeartbeat() {
	p.heartbeatAt = time.Time{}
	p.hbAttempts = 0
}

// SendControlImmediately bypasses the queue and window entirely for
// critical control frames (heartbeats, forced ACKs, disconnect notices) as
// well as the DATA-typed handshake templates (spec §6.4). It still
// restamps via SequenceEngine, deriving isData from the frame's own Type()
// the same way drain() does, so a DATA-typed frame sent through this path
// advances the TX sequence instead of silently being treated as a
// non-advancing control restamp.
func (p *Pacer) SendControlImmediately(frame *Frame, label string) error {
	isData := frame.Type() == TypeDATA
	if err := p.seq.Restamp(frame, isData, isData); err != nil {
		return err
	}
	if !p.tp.Active() {
		return ErrTransportInactive
	}
	_, err := p.tp.Write(frame.WireBytes())
	return err
}

// MaybeHeartbeat checks whether a scheduled heartbeat deadline has passed
// and, if so, sends a heartbeat probe (type 0x26, spec §4.4) and reschedules
// the next one. It reports whether the heartbeat budget
// (HeartbeatMaxAttempts) has been exhausted, which the orchestrator may use
// as a close-connection signal.
func (p *Pacer) MaybeHeartbeat(now time.Time) (sent bool, exhausted bool) {
	if p.heartbeatAt.IsZero() || now.Before(p.heartbeatAt) {
		return false, false
	}
	if p.hbAttempts >= p.opts.HeartbeatMaxAttempts {
		return false, true
	}
	hb := NewControlFrame(TypeHEARTBEAT)
	if err := p.SendControlImmediately(hb, "heartbeat"); err != nil {
		p.log.Warnf("p3: heartbeat send failed: %v", err)
	}
	p.hbAttempts++
	p.heartbeatAt = now.Add(p.opts.HeartbeatInterval)
	if p.hbAttempts >= p.opts.HeartbeatMaxAttempts {
		return true, true
	}
	return true, false
}

// ClearPending releases all queued frames and resets need-ack/need-resume
// state and the heartbeat schedule.
func (p *Pacer) ClearPending() {
	p.queue = nil
	p.needAck = false
	p.needResume = false
	p.cancelHeartbeat()
}

// Close is equivalent to ClearPending (spec §4.4).
func (p *Pacer) Close() { p.ClearPending() }
