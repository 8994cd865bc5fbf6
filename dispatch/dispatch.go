// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dispatch defines the narrow contract the p3 core calls through to
// reach application-layer token handlers. The core never imports auth,
// session-directory, or FDO-atom-compiler packages directly; everything
// above framing/sequencing/pacing/reassembly talks to the core only through
// this interface, so those layers can evolve independently of the wire
// protocol (spec §1 Non-goals).
package dispatch

import "errors"

// ErrUnknownToken is returned by Handler.Handle when no registered
// application handler recognizes msg.Token. The core logs this at debug
// level and drops the frame; it is not a fatal-connection error.
var ErrUnknownToken = errors.New("dispatch: unknown token")

// Message is one fully reassembled application unit delivered to a Handler:
// either a single non-stream frame's payload, or every payload accumulated
// for a stream identifier up to and including the frame that carried the
// end-of-stream marker.
type Message struct {
	// Token is the two-byte application command token from the frame's
	// content (spec §3).
	Token [2]byte
	// StreamID is the stream identifier the frames were grouped under, or
	// zero for a non-stream message.
	StreamID uint16
	// Frames holds the ordered application payloads: one element for a
	// non-stream message, or one per accumulated frame for a stream message.
	Frames [][]byte
}

// Session is the reply surface a Handler gets in place of the whole
// connection: enough to answer on the same connection without reaching
// into Pacer, SequenceEngine, or transport internals directly.
type Session interface {
	// ConnectionID returns the correlation id assigned to this connection.
	ConnectionID() string
	// Platform returns the detected client platform ("windows", "mac",
	// "dos", or "unknown").
	Platform() string
	// SendData queues an application payload for the given token and
	// optional stream id through the connection's Pacer.
	SendData(token [2]byte, streamID *uint16, payload []byte)
	// SendControl queues a short control frame of the given wire type
	// ahead of ordinary queued data.
	SendControl(typ byte)
}

// Handler is the application-layer collaborator the core dispatches
// reassembled messages to. Implementations live outside this module (auth,
// session directory, FDO atom compiler) and are injected into
// NewConnectionHandler.
type Handler interface {
	// Handle processes one reassembled Message. Returning ErrUnknownToken
	// tells the core this was an unrecognized token, logged at debug level
	// rather than as a handler failure.
	Handle(msg Message, sess Session) error
	// Goodbye is called once, best-effort, during connection close so the
	// application layer can flush or notify session-directory state. Errors
	// are logged, never propagated to the transport close path.
	Goodbye(sess Session) error
}
