package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"donation-nodes/pkg/donation"
)

var stateFlags struct {
	instance string
	ids      bool
}

func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the persisted cursor of an instance",
		RunE:  runState,
	}
	f := cmd.Flags()
	f.StringVar(&stateFlags.instance, "instance", "", "instance id from the config (required)")
	f.BoolVar(&stateFlags.ids, "ids", false, "also list processed record ids")
	_ = cmd.MarkFlagRequired("instance")
	return cmd
}

func runState(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), rootFlags.config)
	if err != nil {
		return err
	}
	defer a.Close()

	return printState(cmd, a, stateFlags.instance, stateFlags.ids)
}

func printState(cmd *cobra.Command, a *app, id string, withIDs bool) error {
	cur, err := a.runtime.State(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Instance:   %s\n", id)
	fmt.Fprintf(out, "Since:      %s\n", donation.FormatSince(cur.Since()))
	if cur.NextPollAt.IsZero() {
		fmt.Fprintf(out, "Next poll:  now\n")
	} else {
		fmt.Fprintf(out, "Next poll:  %s\n", donation.FormatSince(cur.NextPollAt))
	}
	fmt.Fprintf(out, "Processed:  %d\n", len(cur.ProcessedIDs))

	if withIDs && len(cur.ProcessedIDs) > 0 {
		ids := make([]string, 0, len(cur.ProcessedIDs))
		for id := range cur.ProcessedIDs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(out, "  %s\n", id)
		}
	}
	return nil
}
