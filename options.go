// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

import "time"

// Options configures a ConnectionHandler and its Pacer.
//
// InterFrameDelay (pacer.inter.frame.delay.ms) is the only recognized
// process-wide option that changes the core's behaviour; UploadPhaseTimeout
// (upload.phase.timeout.ms) is carried but not used here. The remaining
// fields cover
// policy knobs spec.md documents as fixed constants but which implementers
// are expected to expose as configuration (spec §9: "expose it as a
// configurable knob").
type Options struct {
	// MaxBurstFrames caps how many queued frames ConnectionHandler drains
	// (via Pacer.DrainLimited) after each read batch. Pacer.Drain itself is
	// not capped by it. Default 10.
	MaxBurstFrames int

	// InterFrameDelay is the delay between successive DATA sends while the
	// queue remains non-empty. Configuration key: pacer.inter.frame.delay.ms.
	// Default 5ms. Zero means no delay: setDefaults replaces only a negative
	// value.
	InterFrameDelay time.Duration

	// SoftThrottle is the outstanding-window value at or above which the
	// Pacer stops starting new DATA sends. Default 8.
	SoftThrottle int

	// HardLimit is the outstanding-window value that must never be
	// exceeded. Default 16.
	HardLimit int

	// HeartbeatInterval is how long the Pacer waits for an ACK before
	// emitting a heartbeat probe. Default 12s.
	HeartbeatInterval time.Duration

	// HeartbeatMaxAttempts caps the number of heartbeat probes sent for one
	// pending-ACK episode. Default 10.
	HeartbeatMaxAttempts int

	// ReassemblerMaxBuffer caps TcpReassembler's held byte count. Default
	// 65536.
	ReassemblerMaxBuffer int

	// ReassemblerMaxStallAttempts caps consecutive Prepare/Remainder calls
	// that leave a non-empty, non-progressing remainder. Default 10.
	ReassemblerMaxStallAttempts int

	// UploadPhaseTimeout is a cross-collaborator timeout (spec §6.5,
	// upload.phase.timeout.ms). This package does not enforce it, and
	// dispatch.Session does not expose it to handlers; it is only stored in
	// Options.
	UploadPhaseTimeout time.Duration

	// Logger receives diagnostic output. Defaults to a no-op logger.
	Logger Logger
}

// DefaultOptions returns the documented default policy values (spec §4.4,
// §4.1).
func DefaultOptions() Options {
	return Options{
		MaxBurstFrames:              10,
		InterFrameDelay:             5 * time.Millisecond,
		SoftThrottle:                8,
		HardLimit:                   16,
		HeartbeatInterval:           12 * time.Second,
		HeartbeatMaxAttempts:        10,
		ReassemblerMaxBuffer:        65536,
		ReassemblerMaxStallAttempts: 10,
		UploadPhaseTimeout:          30 * time.Second,
		Logger:                      nopLogger{},
	}
}

func (o *Options) setDefaults() {
	d := DefaultOptions()
	if o.MaxBurstFrames <= 0 {
		o.MaxBurstFrames = d.MaxBurstFrames
	}
	if o.InterFrameDelay < 0 {
		o.InterFrameDelay = d.InterFrameDelay
	}
	if o.SoftThrottle <= 0 {
		o.SoftThrottle = d.SoftThrottle
	}
	if o.HardLimit <= 0 {
		o.HardLimit = d.HardLimit
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = d.HeartbeatInterval
	}
	if o.HeartbeatMaxAttempts <= 0 {
		o.HeartbeatMaxAttempts = d.HeartbeatMaxAttempts
	}
	if o.ReassemblerMaxBuffer <= 0 {
		o.ReassemblerMaxBuffer = d.ReassemblerMaxBuffer
	}
	if o.ReassemblerMaxStallAttempts <= 0 {
		o.ReassemblerMaxStallAttempts = d.ReassemblerMaxStallAttempts
	}
	if o.UploadPhaseTimeout <= 0 {
		o.UploadPhaseTimeout = d.UploadPhaseTimeout
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
}

// Option mutates Options, following the functional-options convention used
// throughout this package's teacher library.
type Option func(*Options)

// WithMaxBurstFrames overrides MaxBurstFrames.
func WithMaxBurstFrames(n int) Option { return func(o *Options) { o.MaxBurstFrames = n } }

// WithInterFrameDelay overrides InterFrameDelay.
func WithInterFrameDelay(d time.Duration) Option { return func(o *Options) { o.InterFrameDelay = d } }

// WithSoftThrottle overrides SoftThrottle.
func WithSoftThrottle(n int) Option { return func(o *Options) { o.SoftThrottle = n } }

// WithHardLimit overrides HardLimit.
func WithHardLimit(n int) Option { return func(o *Options) { o.HardLimit = n } }

// WithHeartbeat overrides the heartbeat interval and max attempts together.
func WithHeartbeat(interval time.Duration, maxAttempts int) Option {
	return func(o *Options) {
		o.HeartbeatInterval = interval
		o.HeartbeatMaxAttempts = maxAttempts
	}
}

// WithUploadPhaseTimeout overrides UploadPhaseTimeout.
func WithUploadPhaseTimeout(d time.Duration) Option {
	return func(o *Options) { o.UploadPhaseTimeout = d }
}

// WithLogger overrides Logger.
func WithLogger(l Logger) Option { return func(o *Options) { o.Logger = l } }
