package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"whisperctl/internal/config"
	"whisperctl/internal/model"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "models",
		Short:         "List the Whisper models offered by the server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := config.Options()
			client := newClient(opts, newLogger(cmd.ErrOrStderr(), opts.Verbose))
			models, err := client.Models(cmd.Context())
			if err != nil {
				return exitError(err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSIZE\t")
			for _, m := range models {
				id := m.ID
				if id == model.DefaultModel {
					id += " *"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t\n", id, m.Name, m.Size)
			}
			return w.Flush()
		},
	}
}
