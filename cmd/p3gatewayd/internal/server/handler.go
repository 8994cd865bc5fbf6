// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

import "code.vintagenet.io/p3/dispatch"

// nullHandler is the default dispatch.Handler wired when no application
// layer is registered. The auth/session-directory/FDO-atom-compiler
// collaborators the core deliberately excludes (spec §1 Non-goals) are
// expected to supply a real Handler; until one is injected, p3gatewayd
// still needs to speak the wire protocol end to end, so this stands in and
// reports every token as unrecognized.
type nullHandler struct{}

func (nullHandler) Handle(msg dispatch.Message, sess dispatch.Session) error {
	return dispatch.ErrUnknownToken
}

func (nullHandler) Goodbye(sess dispatch.Session) error { return nil }
