package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"whisperctl/internal/api"
	"whisperctl/internal/config"
	"whisperctl/internal/util/format"
)

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "upload <file>",
		Short:         "Upload a file without starting a transcription",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := config.Options()
			path := args[0]
			size, err := api.CheckUpload(path)
			if err != nil {
				return exitError(err)
			}
			client := newClient(opts, newLogger(cmd.ErrOrStderr(), opts.Verbose))
			resp, err := client.Upload(cmd.Context(), path)
			if err != nil {
				return exitError(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File ID:   %s\n", resp.FileID)
			fmt.Fprintf(out, "File:      %s (%s)\n", filepath.Base(path), format.HumanizeBytes(size))
			fmt.Fprintf(out, "Estimated: %.1f min\n", resp.EstimatedTime)
			return nil
		},
	}
}
