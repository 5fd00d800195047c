package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for resscan
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resscan",
		Short: "Pooled resource scanner for archives, directories and object stores",
		Long: `resscan lists the resources inside containers (jar/zip/tar archives,
directory trees and S3 bucket prefixes) that match an inclusion policy.

Containers are read through a bounded pool of reusable readers, so many
containers can be scanned concurrently without reopening archives.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewCatCommand())
	cmd.AddCommand(NewStaleCommand())

	return cmd
}
