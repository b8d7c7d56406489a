// Package cmd holds the donation-nodes command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	config string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "donation-nodes",
		Short: "CharitysPurse donation trigger nodes",
		Long: "donation-nodes runs cursor-driven donation triggers against the CharitysPurse\n" +
			"list endpoint, either as a long-running poller with an HTTP API or one invocation at a time.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
	}
	root.PersistentFlags().StringVar(&rootFlags.config, "config", "", "path to a YAML config file (default ./donation-nodes.yaml if present)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newPollCmd())
	root.AddCommand(newNodesCmd())
	root.AddCommand(newCredentialsCmd())
	root.AddCommand(newStateCmd())
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
