package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"whisperctl/internal/api"
	"whisperctl/internal/config"
	"whisperctl/internal/job"
	"whisperctl/internal/loop"
	"whisperctl/internal/model"
	"whisperctl/internal/progress"
	"whisperctl/internal/ui"
	"whisperctl/internal/util"
	"whisperctl/internal/util/format"
)

func newTranscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "transcribe <file>",
		Short:         "Upload a file, follow the job and save the transcript",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, args[0])
		},
	}
	bindTranscribeFlags(cmd.Flags())
	return cmd
}

func runTranscribe(cmd *cobra.Command, path string) error {
	opts := config.Options()
	opts.NoUI, _ = cmd.Flags().GetBool("no-ui")
	opts.Transcribe.IncludeTimestamps, _ = cmd.Flags().GetBool("timestamps")

	if !lo.Contains(model.Languages, opts.Transcribe.Language) {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("invalid --language: %q (valid: %s)",
			opts.Transcribe.Language, joinOr(model.Languages))}
	}
	size, err := api.CheckUpload(path)
	if err != nil {
		return exitError(err)
	}
	if err := util.EnsureDir(opts.OutDir); err != nil {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("failed to create output dir: %v", err)}
	}

	tui := useTUI(opts, isTerminal())
	logOut := cmd.ErrOrStderr()
	if tui {
		// The TUI owns the terminal; warnings reach it through the reporter.
		logOut = nopWriter{}
	}
	log := newLogger(logOut, opts.Verbose)
	client := newClient(opts, log)

	ctx := cmd.Context()
	if err := checkModel(ctx, client, opts.Transcribe.ModelSize, log); err != nil {
		return err
	}

	var (
		view ui.Model
		next progress.Reporter
	)
	if tui {
		view = ui.NewModel(ctx, path, opts.Server)
		ctx = view.Context()
		next = view.Reporter()
	} else {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Uploading %s (%s, est. %.1f min)\n", filepath.Base(path), format.HumanizeBytes(size), api.EstimateMinutes(size))
		next = newPlainReporter(out, cmd.ErrOrStderr())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := newSession(opts.OutDir, next, log)
	lp := loop.New()
	ctl := job.NewController(client, lp,
		job.WithReporter(sess),
		job.WithLogger(log),
		job.WithIntervals(opts.PollInterval, 0, 0),
	)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = lp.Run(ctx)
	}()
	lp.Post(func() {
		ctl.SubmitFile(ctx, path, func(fileID string, err error) {
			if err != nil {
				sess.fail(err)
				return
			}
			ctl.StartJob(ctx, fileID, opts.Transcribe, func(err error) {
				if err != nil {
					sess.fail(err)
				}
			})
		})
	})

	if tui {
		if _, err := ui.Run(ctx, view); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("tui stopped", "err", err)
			cancel()
		}
	}
	select {
	case <-sess.done:
	case <-ctx.Done():
	}
	cancel()
	<-loopDone

	res, ok := sess.outcome()
	if !ok {
		return &ExitError{Code: ExitCLIError, Err: errors.New("interrupted")}
	}
	return exitError(res.Err)
}

// checkModel rejects model ids the server does not list. A failed lookup
// is not fatal; the server validates again on submission.
func checkModel(ctx context.Context, client *api.Client, id string, log *slog.Logger) error {
	models, err := client.Models(ctx)
	if err != nil {
		log.Warn("could not load model list", "err", err)
		return nil
	}
	if len(models) == 0 || lo.ContainsBy(models, func(m model.ModelInfo) bool { return m.ID == id }) {
		return nil
	}
	ids := lo.Map(models, func(m model.ModelInfo, _ int) string { return m.ID })
	return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("invalid --model: %q (valid: %s)", id, joinOr(ids))}
}

// useTUI picks the interactive renderer. Verbose runs stay in plain mode
// so debug logging on stderr does not interleave with the TUI.
func useTUI(opts model.CLIOptions, tty bool) bool {
	return tty && !opts.NoUI && !opts.Verbose
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
