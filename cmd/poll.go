package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"donation-nodes/pkg/host"
)

var pollFlags struct {
	instance string
}

func newPollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Invoke one instance once and print emitted items as JSON lines",
		RunE:  runPoll,
	}
	cmd.Flags().StringVar(&pollFlags.instance, "instance", "", "instance id from the config (required)")
	_ = cmd.MarkFlagRequired("instance")
	return cmd
}

func runPoll(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), rootFlags.config)
	if err != nil {
		return err
	}
	defer a.Close()

	return pollOnce(cmd, a, pollFlags.instance)
}

func pollOnce(cmd *cobra.Command, a *app, id string) error {
	inst, ok := a.runtime.Instance(id)
	if !ok {
		return fmt.Errorf("poll %s: %w", id, host.ErrUnknownInstance)
	}

	res, err := a.runtime.Invoke(cmd.Context(), id)
	if err != nil {
		return err
	}
	if res.Items == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "no new items")
		return nil
	}
	return host.NewWriterSink(cmd.OutOrStdout()).Emit(cmd.Context(), inst, res.Items)
}
