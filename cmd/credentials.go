package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"donation-nodes/pkg/credentials"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Inspect and test configured credentials",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "test [name]",
		Short: "Run the smoke-test request for a credential type",
		Long: fmt.Sprintf(`Issues the credential type's test request (a list call pinned to the epoch)
with the configured key. name defaults to %s.`, credentials.CharitysPurseName),
		Args: cobra.MaximumNArgs(1),
		RunE: runCredentialsTest,
	})
	return cmd
}

func runCredentialsTest(cmd *cobra.Command, args []string) error {
	name := credentials.CharitysPurseName
	if len(args) == 1 {
		name = args[0]
	}

	a, err := newApp(cmd.Context(), rootFlags.config)
	if err != nil {
		return err
	}
	defer a.Close()

	return testCredentials(cmd, a, name)
}

func testCredentials(cmd *cobra.Command, a *app, name string) error {
	if err := credentials.TestByName(cmd.Context(), a.runtime.Credentials(), a.client, name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", name)
	return nil
}
