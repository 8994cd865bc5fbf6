// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

import "encoding/binary"

// Platform identifies the client platform detected from the INIT probe
// (spec §3 SessionState, §6.3).
type Platform uint8

const (
	PlatformUnknown Platform = iota
	PlatformWindows
	PlatformMac
	PlatformDOS
)

func (p Platform) String() string {
	switch p {
	case PlatformWindows:
		return "windows"
	case PlatformMac:
		return "mac"
	case PlatformDOS:
		return "dos"
	default:
		return "unknown"
	}
}

// InitRecord holds the parsed fields of the 0xA3 startup probe (spec §6.3).
// Payload shorter than the full 52-byte Windows layout is tier-parsed as
// available; FullyParsed reports whether tier-3 (all fields) was available.
type InitRecord struct {
	Platform Platform

	VersionMajor   uint8
	VersionMinor   uint8
	MachineMemory  uint8
	AppMemory      uint8
	PCType         uint16
	ReleaseMonth   uint8
	ReleaseDay     uint8
	CustomerClass  uint16

	UDOTimestamp   uint32
	DOSVersion     uint16
	SessionFlags   uint16
	VideoType      uint8
	ProcessorType  uint8
	MediaType      uint32

	WindowsVersion uint32
	MemoryMode     uint8
	HorizontalRes  uint16
	VerticalRes    uint16
	NumColors      uint16
	Region         uint16
	Language       [4]uint16
	ConnectSpeed   uint8

	FullyParsed bool
}

// ParseInit parses the application payload of an 0xA3 INIT frame per the
// tiered layout in spec §6.3. Tier-1 (platform/version/reserved/memory) is
// always parsed when at least 6 bytes are present; tier-2 requires at least
// 22 bytes; tier-3 (the full 52-byte Windows layout) requires at least 52
// bytes. A short payload is not an error (spec §7 Handshake-anomaly): the
// record is returned with FullyParsed=false and whatever tiers fit.
func ParseInit(payload []byte) *InitRecord {
	r := &InitRecord{}
	if len(payload) < 1 {
		return r
	}
	r.Platform = classifyPlatform(payload[0])

	if len(payload) >= 6 {
		r.VersionMajor = payload[1]
		r.VersionMinor = payload[2]
		// payload[3] reserved
		r.MachineMemory = payload[4]
		r.AppMemory = payload[5]
	}
	if len(payload) < 22 {
		return r
	}
	r.PCType = binary.BigEndian.Uint16(payload[0x06:0x08])
	r.ReleaseMonth = payload[0x08]
	r.ReleaseDay = payload[0x09]
	r.CustomerClass = binary.BigEndian.Uint16(payload[0x0A:0x0C])
	r.UDOTimestamp = binary.BigEndian.Uint32(payload[0x0C:0x10])
	r.DOSVersion = binary.BigEndian.Uint16(payload[0x10:0x12])
	r.SessionFlags = binary.BigEndian.Uint16(payload[0x12:0x14])
	r.VideoType = payload[0x14]
	r.ProcessorType = payload[0x15]
	if len(payload) < 52 {
		return r
	}
	r.MediaType = binary.BigEndian.Uint32(payload[0x16:0x1A])
	r.WindowsVersion = binary.BigEndian.Uint32(payload[0x1A:0x1E])
	r.MemoryMode = payload[0x1E]
	r.HorizontalRes = binary.BigEndian.Uint16(payload[0x1F:0x21])
	r.VerticalRes = binary.BigEndian.Uint16(payload[0x21:0x23])
	r.NumColors = binary.BigEndian.Uint16(payload[0x23:0x25])
	// payload[0x25] filler
	r.Region = binary.BigEndian.Uint16(payload[0x26:0x28])
	for i := 0; i < 4; i++ {
		off := 0x28 + i*2
		r.Language[i] = binary.BigEndian.Uint16(payload[off : off+2])
	}
	r.ConnectSpeed = payload[0x30]
	r.FullyParsed = true
	return r
}

func classifyPlatform(b byte) Platform {
	switch {
	case b == 1:
		return PlatformWindows
	case b == 2:
		return PlatformMac
	case b == 3:
		return PlatformDOS
	case b >= 127:
		return PlatformMac
	default:
		return PlatformUnknown
	}
}

// DetectHandshakePlatform applies the orchestrator's handshake-selection
// rule (spec §4.6.d): a token of 0x0C03 means Mac regardless of declared
// length; otherwise a declared application-payload length of exactly 52
// bytes means Windows. Anything else is left unknown and receives no
// handshake templates.
func DetectHandshakePlatform(f *Frame) Platform {
	if tok, ok := f.Token(); ok && tok[0] == 0x0C && tok[1] == 0x03 {
		return PlatformMac
	}
	if f.DeclaredLength() == 52 {
		return PlatformWindows
	}
	return PlatformUnknown
}
