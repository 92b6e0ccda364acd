/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blesschain/blessd/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the blessd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("blessd %s\n", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
