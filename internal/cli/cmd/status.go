package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"whisperctl/internal/config"
	"whisperctl/internal/job"
	"whisperctl/internal/model"
	"whisperctl/internal/util"
	"whisperctl/internal/util/format"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "status <file-id>",
		Short:         "Show the server-side status of a job",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := config.Options()
			client := newClient(opts, newLogger(cmd.ErrOrStderr(), opts.Verbose))
			st, err := client.Status(cmd.Context(), args[0])
			if err != nil {
				return exitError(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status:   %s\n", st.Status)
			fmt.Fprintf(out, "Progress: %d%%\n", st.Progress)
			if st.Stage != "" {
				fmt.Fprintf(out, "Stage:    %s\n", st.Stage)
			}
			if st.ProcessingTime != nil {
				fmt.Fprintf(out, "Time:     %s\n", format.Seconds(*st.ProcessingTime))
			}
			if st.Status == model.StatusError {
				return exitError(&job.JobError{JobID: args[0], Message: st.Message})
			}
			return nil
		},
	}
}

func newResultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "result <file-id>",
		Short:         "Fetch a finished transcript and save it as transcript.txt",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := config.Options()
			client := newClient(opts, newLogger(cmd.ErrOrStderr(), opts.Verbose))
			res, err := client.Result(cmd.Context(), args[0])
			if err != nil {
				return exitError(err)
			}
			tr := res.Transcript()
			path, err := util.WriteTranscriptFile(opts.OutDir, tr.Text)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("write transcript: %w", err)}
			}
			out := cmd.OutOrStdout()
			if show, _ := cmd.Flags().GetBool("print"); show {
				fmt.Fprintln(out, tr.Text)
			}
			fmt.Fprintf(out, "Saved: %s (%d words, %d characters, %s)\n",
				path, tr.WordCount, tr.CharCount, format.Seconds(tr.ProcessingTime))
			return nil
		},
	}
	cmd.Flags().Bool("print", false, "Also print the transcript to stdout")
	return cmd
}

