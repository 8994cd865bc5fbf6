// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

import (
	"encoding/binary"
	"testing"
)

func TestParseInit_ShortPayloadNotError(t *testing.T) {
	r := ParseInit([]byte{2})
	if r.Platform != PlatformMac {
		t.Fatalf("Platform = %v, want mac", r.Platform)
	}
	if r.FullyParsed {
		t.Fatalf("FullyParsed = true for a 1-byte payload")
	}
}

func TestParseInit_Tier1(t *testing.T) {
	payload := []byte{1, 3, 7, 0, 0x20, 0x10}
	r := ParseInit(payload)
	if r.Platform != PlatformWindows {
		t.Fatalf("Platform = %v, want windows", r.Platform)
	}
	if r.VersionMajor != 3 || r.VersionMinor != 7 {
		t.Fatalf("version = %d.%d, want 3.7", r.VersionMajor, r.VersionMinor)
	}
	if r.MachineMemory != 0x20 || r.AppMemory != 0x10 {
		t.Fatalf("memory = %d/%d, want 0x20/0x10", r.MachineMemory, r.AppMemory)
	}
	if r.FullyParsed {
		t.Fatalf("FullyParsed = true for a 6-byte payload")
	}
}

func TestParseInit_Tier2(t *testing.T) {
	payload := make([]byte, 22)
	payload[0] = 1
	binary.BigEndian.PutUint16(payload[0x06:0x08], 0x1234)
	payload[0x08] = 6
	payload[0x09] = 15
	binary.BigEndian.PutUint16(payload[0x0A:0x0C], 0x0099)

	r := ParseInit(payload)
	if r.PCType != 0x1234 {
		t.Fatalf("PCType = %#x, want 0x1234", r.PCType)
	}
	if r.ReleaseMonth != 6 || r.ReleaseDay != 15 {
		t.Fatalf("release = %d/%d, want 6/15", r.ReleaseMonth, r.ReleaseDay)
	}
	if r.CustomerClass != 0x0099 {
		t.Fatalf("CustomerClass = %#x, want 0x0099", r.CustomerClass)
	}
	if r.FullyParsed {
		t.Fatalf("FullyParsed = true for a 22-byte payload")
	}
}

func TestParseInit_Tier3FullyParsed(t *testing.T) {
	payload := make([]byte, 52)
	payload[0] = 1
	binary.BigEndian.PutUint32(payload[0x1A:0x1E], 0x0A0B0C0D)
	payload[0x1E] = 4
	binary.BigEndian.PutUint16(payload[0x1F:0x21], 800)
	binary.BigEndian.PutUint16(payload[0x21:0x23], 600)
	for i := 0; i < 4; i++ {
		binary.BigEndian.PutUint16(payload[0x28+i*2:0x28+i*2+2], uint16(0x0100+i))
	}
	payload[0x30] = 9

	r := ParseInit(payload)
	if !r.FullyParsed {
		t.Fatalf("FullyParsed = false for a 52-byte payload")
	}
	if r.WindowsVersion != 0x0A0B0C0D {
		t.Fatalf("WindowsVersion = %#x", r.WindowsVersion)
	}
	if r.HorizontalRes != 800 || r.VerticalRes != 600 {
		t.Fatalf("resolution = %dx%d, want 800x600", r.HorizontalRes, r.VerticalRes)
	}
	if r.Language[3] != 0x0103 {
		t.Fatalf("Language[3] = %#x, want 0x0103", r.Language[3])
	}
	if r.ConnectSpeed != 9 {
		t.Fatalf("ConnectSpeed = %d, want 9", r.ConnectSpeed)
	}
}

func TestClassifyPlatform(t *testing.T) {
	tests := []struct {
		b    byte
		want Platform
	}{
		{1, PlatformWindows},
		{2, PlatformMac},
		{3, PlatformDOS},
		{127, PlatformMac},
		{200, PlatformMac},
		{0, PlatformUnknown},
		{50, PlatformUnknown},
	}
	for _, tt := range tests {
		if got := classifyPlatform(tt.b); got != tt.want {
			t.Errorf("classifyPlatform(%d) = %v, want %v", tt.b, got, tt.want)
		}
	}
}

func TestDetectHandshakePlatform_MacTokenOverridesLength(t *testing.T) {
	f := newContentFrame(TypeINIT, [2]byte{0x0C, 0x03}, nil, make([]byte, 2))
	if got := DetectHandshakePlatform(f); got != PlatformMac {
		t.Fatalf("DetectHandshakePlatform() = %v, want mac", got)
	}
}

func TestDetectHandshakePlatform_Declared52MeansWindows(t *testing.T) {
	// declared length L = content length + 2; content = 2-byte token + payload,
	// so a 48-byte payload yields content length 50 and L = 52.
	payload := make([]byte, 48)
	f := newContentFrame(TypeINIT, [2]byte{'X', 'Y'}, nil, payload)
	if got := f.DeclaredLength(); got != 52 {
		t.Fatalf("DeclaredLength() = %d, want 52 (test fixture bug)", got)
	}
	if got := DetectHandshakePlatform(f); got != PlatformWindows {
		t.Fatalf("DetectHandshakePlatform() = %v, want windows", got)
	}
}

func TestDetectHandshakePlatform_UnknownOtherwise(t *testing.T) {
	f := newContentFrame(TypeINIT, [2]byte{'X', 'Y'}, nil, []byte{1, 2, 3})
	if got := DetectHandshakePlatform(f); got != PlatformUnknown {
		t.Fatalf("DetectHandshakePlatform() = %v, want unknown", got)
	}
}
