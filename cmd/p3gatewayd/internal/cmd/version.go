// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at link time with -X, following the pack's version-stamping
// convention (postmanlabs-observability-cli/version).
var (
	buildVersion = "0.0.0-dev"
	buildCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print p3gatewayd's version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "p3gatewayd %s (%s)\n", buildVersion, buildCommit)
		return nil
	},
}
