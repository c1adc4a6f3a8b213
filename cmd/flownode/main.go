/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// The flownode command runs a passkey identity node.
package main

import (
	"github.com/spf13/cobra"

	"github.com/flowssi/flownode/cmd/flownode/startcmd"
	"github.com/flowssi/flownode/pkg/common/log"
)

var logger = log.New("flownode/main")

func main() {
	rootCmd := &cobra.Command{
		Use: "flownode",
	}

	rootCmd.AddCommand(startcmd.New())

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("failed to run flownode: %v", err)
	}
}
