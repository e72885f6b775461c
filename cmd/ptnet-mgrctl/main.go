// Command ptnet-mgrctl is the operator companion to ptnet-mgrd: it opens the
// node store read-only (or writes a single fwu_state goal) and prints a
// generated JSON Schema for the daemon's configuration file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ptnet-mgrctl",
		Short:         "ptnet-mgr operator companion",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newNodesCmd())
	cmd.AddCommand(newSchemaCmd())
	return cmd
}
