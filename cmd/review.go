package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/crev/internal/client"
	"github.com/joescharf/crev/internal/output"
	"github.com/joescharf/crev/internal/review"
	"github.com/joescharf/crev/internal/watch"
)

var (
	reviewJSON  bool
	reviewWatch bool
)

// stdinFunc returns the reader used for '-' and piped input, replaceable in tests.
var stdinFunc = func() (io.Reader, bool) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return os.Stdin, false
	}
	return os.Stdin, info.Mode()&os.ModeCharDevice == 0
}

var reviewCmd = &cobra.Command{
	Use:   "review [file]",
	Short: "Submit code for review and print the result",
	Long: `Submit code to the review service and print the analysis, issues and report.

The code is read from the file argument, from stdin when the argument is
'-' or input is piped, and otherwise defaults to a small sample function.

With --watch the file is re-submitted every time it is saved. Submissions
are never cancelled; whichever response arrives last is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
		defer stop()
		return reviewRun(ctx, args)
	},
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewJSON, "json", false, "Print the normalized review as JSON")
	reviewCmd.Flags().BoolVarP(&reviewWatch, "watch", "w", false, "Re-submit the file whenever it changes")
	rootCmd.AddCommand(reviewCmd)
}

// newController builds a submission controller against the configured endpoint.
func newController() (*review.Controller, error) {
	c, err := client.New(viper.GetString("endpoint"), nil)
	if err != nil {
		return nil, err
	}
	return review.NewController(c, review.DefaultConfig())
}

// readCode resolves the code to review from args and stdin.
func readCode(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read %s: %w", args[0], err)
		}
		return string(data), nil
	}

	in, piped := stdinFunc()
	if (len(args) == 1 && args[0] == "-") || piped {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	return review.SampleCode, nil
}

func reviewRun(ctx context.Context, args []string) error {
	if reviewWatch && (len(args) != 1 || args[0] == "-") {
		return fmt.Errorf("--watch needs a file argument")
	}

	code, err := readCode(args)
	if err != nil {
		return err
	}

	ctrl, err := newController()
	if err != nil {
		return err
	}
	ui.VerboseLog("Submitting %d bytes to %s", len(code), viper.GetString("endpoint"))

	if reviewWatch {
		return watchRun(ctx, ctrl, args[0], code)
	}

	out := <-ctrl.Submit(ctx, code)
	if err := printStatus(ctrl.Status()); err != nil {
		return err
	}
	if out.Err != nil {
		return reportedError{fmt.Errorf("review failed: %w", out.Err)}
	}
	return nil
}

// printStatus renders st for humans or, with --json, as the normalized view.
func printStatus(st review.Status) error {
	if !reviewJSON {
		ui.Status(st)
		return nil
	}
	enc := json.NewEncoder(ui.Out)
	enc.SetIndent("", "  ")
	switch st.Phase {
	case review.PhaseSucceeded:
		return enc.Encode(review.Normalize(st.Response))
	case review.PhaseFailed:
		return enc.Encode(map[string]string{"error": st.Err.Error()})
	default:
		return nil
	}
}

// watchRun submits code now and again on every save until ctx is done.
// Output from the watcher and from resolving submissions shares printMu so
// one review is never interleaved with another.
func watchRun(ctx context.Context, ctrl *review.Controller, path, code string) error {
	var printMu sync.Mutex
	ctrl.Subscribe(func(st review.Status) {
		printMu.Lock()
		defer printMu.Unlock()
		ui.VerboseLog("Submission %d %s (%d in flight)", st.Generation, output.PhaseColor(st.Phase), st.InFlight)
		if st.Phase == review.PhasePending {
			return
		}
		if err := printStatus(st); err != nil {
			ui.Error("%v", err)
		}
	})

	w, err := watch.New(path, 0, func(p string) {
		data, err := os.ReadFile(p)
		printMu.Lock()
		if err != nil {
			ui.Warning("read %s: %v", p, err)
		} else {
			ui.Info("%s changed, re-submitting", path)
		}
		printMu.Unlock()
		if err == nil {
			ctrl.Submit(ctx, string(data))
		}
	})
	if err != nil {
		return err
	}

	ui.Info("Watching %s (Ctrl+C to stop)", path)
	ctrl.Submit(ctx, code)

	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
