// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

import (
	"testing"
	"time"
)

func TestOptions_SetDefaultsFillsZeroFields(t *testing.T) {
	var o Options
	o.setDefaults()

	d := DefaultOptions()
	if o.MaxBurstFrames != d.MaxBurstFrames {
		t.Errorf("MaxBurstFrames = %d, want %d", o.MaxBurstFrames, d.MaxBurstFrames)
	}
	if o.SoftThrottle != d.SoftThrottle {
		t.Errorf("SoftThrottle = %d, want %d", o.SoftThrottle, d.SoftThrottle)
	}
	if o.HardLimit != d.HardLimit {
		t.Errorf("HardLimit = %d, want %d", o.HardLimit, d.HardLimit)
	}
	if o.HeartbeatInterval != d.HeartbeatInterval {
		t.Errorf("HeartbeatInterval = %v, want %v", o.HeartbeatInterval, d.HeartbeatInterval)
	}
	if o.Logger == nil {
		t.Errorf("Logger left nil after setDefaults")
	}
}

func TestOptions_SetDefaultsPreservesExplicitValues(t *testing.T) {
	o := Options{SoftThrottle: 2, HardLimit: 4, MaxBurstFrames: 1}
	o.setDefaults()

	if o.SoftThrottle != 2 || o.HardLimit != 4 || o.MaxBurstFrames != 1 {
		t.Fatalf("setDefaults overwrote explicit values: %+v", o)
	}
}

func TestOptions_FunctionalOptionsPattern(t *testing.T) {
	apply := func(opts ...Option) Options {
		o := Options{}
		for _, fn := range opts {
			fn(&o)
		}
		return o
	}

	o := apply(
		WithMaxBurstFrames(20),
		WithInterFrameDelay(10*time.Millisecond),
		WithSoftThrottle(4),
		WithHardLimit(8),
		WithHeartbeat(30*time.Second, 5),
		WithUploadPhaseTimeout(time.Minute),
	)

	if o.MaxBurstFrames != 20 {
		t.Errorf("MaxBurstFrames = %d, want 20", o.MaxBurstFrames)
	}
	if o.InterFrameDelay != 10*time.Millisecond {
		t.Errorf("InterFrameDelay = %v, want 10ms", o.InterFrameDelay)
	}
	if o.SoftThrottle != 4 || o.HardLimit != 8 {
		t.Errorf("SoftThrottle/HardLimit = %d/%d, want 4/8", o.SoftThrottle, o.HardLimit)
	}
	if o.HeartbeatInterval != 30*time.Second || o.HeartbeatMaxAttempts != 5 {
		t.Errorf("heartbeat = %v/%d, want 30s/5", o.HeartbeatInterval, o.HeartbeatMaxAttempts)
	}
	if o.UploadPhaseTimeout != time.Minute {
		t.Errorf("UploadPhaseTimeout = %v, want 1m", o.UploadPhaseTimeout)
	}
}
