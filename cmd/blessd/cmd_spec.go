/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blesschain/blessd/internal/chainspec"
)

var specValidateOnly bool

var specCmd = &cobra.Command{
	Use:   "spec [id-or-path]",
	Short: "Print a resolved chain spec",
	Long:  "Resolve a chain spec by built-in id (dev, local) or file path, validate it, and print it as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSpec,
}

func init() {
	specCmd.Flags().BoolVar(&specValidateOnly, "validate", false, "validate the spec without printing it")
	rootCmd.AddCommand(specCmd)
}

func runSpec(cmd *cobra.Command, args []string) error {
	idOrPath := "dev"
	if len(args) == 1 {
		idOrPath = args[0]
	}

	spec, err := chainspec.Load(idOrPath)
	if err != nil {
		return err
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid chain spec %s: %w", spec.ID, err)
	}

	if specValidateOnly {
		fmt.Printf("chain spec %s is valid\n", spec.ID)
		return nil
	}

	rendered, err := spec.Render()
	if err != nil {
		return err
	}
	fmt.Print(rendered)
	return nil
}
