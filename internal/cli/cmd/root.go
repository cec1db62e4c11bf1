package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"whisperctl/internal/api"
	"whisperctl/internal/config"
	"whisperctl/internal/job"
	"whisperctl/internal/model"
)

const (
	ExitOK          = 0
	ExitCLIError    = 1
	ExitUnreachable = 2
	ExitUploadError = 3
	ExitSubmitError = 4
	ExitJobFailed   = 5
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "whisperctl [file]",
		Short:         "Transcribe audio with a Whisper transcription server",
		Long:          "whisperctl uploads an audio or video file to a Whisper transcription server, follows the job with a live progress bar and saves the transcript as transcript.txt.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Init(cmd); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runTranscribe(cmd, args[0])
		},
	}

	// Persistent flags available to all subcommands
	pf := root.PersistentFlags()
	pf.StringP("server", "s", api.DefaultServer, "Transcription server base URL")
	pf.StringP("out-dir", "o", ".", "Directory for transcript.txt")
	pf.BoolP("verbose", "v", false, "Log HTTP requests and state changes to stderr")
	pf.Duration("timeout", 0, "Per-request timeout, e.g. 30s (0 disables)")
	pf.Duration("poll-interval", job.PollInterval, "Time between status checks")

	// `whisperctl <file>` is shorthand for `whisperctl transcribe <file>`.
	bindTranscribeFlags(root.Flags())

	root.AddCommand(newTranscribeCmd())
	root.AddCommand(newUploadCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newResultCmd())
	root.AddCommand(newModelsCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindTranscribeFlags(fs *pflag.FlagSet) {
	fs.StringP("model", "m", model.DefaultModel, "Whisper model size (see 'whisperctl models')")
	fs.StringP("language", "l", model.DefaultLanguage, "Spoken language: auto, zh, en, ja, ko")
	fs.Bool("timestamps", false, "Ask the server to include timestamps")
	fs.Bool("no-ui", false, "Disable TUI; use plain textual output")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}

// Helpers

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newClient(opts model.CLIOptions, log *slog.Logger) *api.Client {
	return api.New(opts.Server, api.WithTimeout(opts.Timeout), api.WithLogger(log))
}

// exitError maps an operation failure to its process exit code.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee
	}
	code := ExitCLIError
	var (
		ue *api.UploadError
		se *api.SubmissionError
		je *job.JobError
	)
	switch {
	case unreachable(err):
		code = ExitUnreachable
	case errors.As(err, &je):
		code = ExitJobFailed
	case errors.As(err, &se):
		code = ExitSubmitError
	case errors.As(err, &ue):
		code = ExitUploadError
	}
	return &ExitError{Code: code, Err: err}
}

// unreachable reports whether err means no HTTP exchange with the server
// took place.
func unreachable(err error) bool {
	var he *api.HTTPError
	if errors.As(err, &he) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
