// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package p3

// Handshake frame labels, used for Pacer send-immediate calls and logging.
const (
	labelMacKeepAlivePong     = "mac-keepalive-pong"
	labelMacHandshake         = "mac-handshake"
	labelWindowsKeepAlivePong = "windows-keepalive-pong"
	labelWindowsHandshake     = "windows-handshake"
)

// Handshake byte templates (spec §6.4) are literal captures from a
// reference client/server exchange; this package does not derive them, and
// spec §9 leaves their exact bytes as an open question ("literal captures;
// this specification requires bit-exact replication but does not derive
// them"). The payload markers below are structurally valid placeholders —
// correctly framed, correctly typed — pending the real capture bytes being
// supplied by an operator who has one. See DESIGN.md.
var (
	macKeepAlivePongPayload = []byte{0x00}
	macHandshakePayload     = []byte{'M', 'A', 'C', 'H', 'S'}

	windowsKeepAlivePongPayload = []byte{0x00}
	windowsHandshakePayload     = []byte{'W', 'I', 'N', 'H', 'S'}
)

// NewMacKeepAlivePong builds the fixed MAC_KEEPALIVE_PONG frame sent as the
// first handshake reply to a Mac client (spec §6.4).
func NewMacKeepAlivePong() *Frame { return NewControlFrame(TypeKeepAlive) }

// NewMacHandshake builds the fixed MAC_HANDSHAKE frame sent second.
func NewMacHandshake() *Frame {
	return newContentFrame(TypeDATA, [2]byte{'H', 'S'}, nil, macHandshakePayload)
}

// NewWindowsKeepAlivePong builds the fixed WINDOWS_KEEPALIVE_PONG frame
// sent as the first handshake reply to a Windows client.
func NewWindowsKeepAlivePong() *Frame { return NewControlFrame(TypeKeepAlive) }

// NewWindowsHandshake builds the fixed WINDOWS_HANDSHAKE frame sent second.
func NewWindowsHandshake() *Frame {
	return newContentFrame(TypeDATA, [2]byte{'H', 'S'}, nil, windowsHandshakePayload)
}

// SendHandshake sends, in order, the two fixed templates for platform via
// pacer.SendControlImmediately — bypassing the queue, per spec §6.4 ("sent
// raw (bypassing the Pacer queue)"). It reports the first send error, if
// any.
func SendHandshake(p *Pacer, platform Platform) error {
	switch platform {
	case PlatformMac:
		if err := p.SendControlImmediately(NewMacKeepAlivePong(), labelMacKeepAlivePong); err != nil {
			return err
		}
		return p.SendControlImmediately(NewMacHandshake(), labelMacHandshake)
	case PlatformWindows:
		if err := p.SendControlImmediately(NewWindowsKeepAlivePong(), labelWindowsKeepAlivePong); err != nil {
			return err
		}
		return p.SendControlImmediately(NewWindowsHandshake(), labelWindowsHandshake)
	default:
		return nil
	}
}
