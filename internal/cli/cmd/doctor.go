package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"whisperctl/internal/config"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Check that the transcription server is reachable and healthy",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := config.Options()
			client := newClient(opts, newLogger(cmd.ErrOrStderr(), opts.Verbose))
			h, err := client.Health(cmd.Context())
			if err != nil {
				return &ExitError{Code: ExitUnreachable, Err: fmt.Errorf("server %s: %w", opts.Server, err)}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Server:  %s\n", opts.Server)
			fmt.Fprintf(cmd.OutOrStdout(), "Status:  %s (%s)\n", h.Status, h.Service)
			if h.Status != "healthy" {
				return &ExitError{Code: ExitUnreachable, Err: fmt.Errorf("server %s reports %q", opts.Server, h.Status)}
			}
			return nil
		},
	}
}
