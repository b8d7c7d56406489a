package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"donation-nodes/pkg/clients/charityspurse"
	"donation-nodes/pkg/credentials"
	"donation-nodes/pkg/donation"
	"donation-nodes/pkg/engine"
	"donation-nodes/pkg/engine/handlers"
)

type catalogDoc struct {
	Nodes       []engine.NodeDescription `yaml:"nodes"`
	Credentials []credentials.Descriptor `yaml:"credentials"`
}

func newNodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "Print the node and credential catalog as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Descriptions are static, so no config is loaded and no request is made.
			registry := handlers.NewRegistry(charityspurse.NewHTTPClient(0), donation.DefaultGate())
			doc := catalogDoc{
				Nodes:       registry.Descriptions(),
				Credentials: credentials.Descriptors(),
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("encode catalog: %w", err)
			}
			return enc.Close()
		},
	}
}
