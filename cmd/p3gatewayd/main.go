// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command p3gatewayd accepts AOL 3.0-era P3 client connections and
// dispatches reassembled application messages to a pluggable handler.
package main

import "code.vintagenet.io/p3/cmd/p3gatewayd/internal/cmd"

func main() {
	cmd.Execute()
}
