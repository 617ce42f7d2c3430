package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/opt"
	"github.com/roach88/weft/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Pass     string // optional - filter events to one pass
}

// JournalRun is a run with its events.
type JournalRun struct {
	Run    store.RunRecord `json:"run"`
	Events []opt.Event     `json:"events"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal [run-id]",
		Short: "Inspect recorded optimizer runs",
		Long: `List the runs recorded by optimize --journal, or show one run and
the pass events it recorded, in order.

The run ID "latest" selects the most recent run.

Examples:
  weft journal --db ./weft.db
  weft journal --db ./weft.db latest
  weft journal --db ./weft.db 0190c7a6-... --pass value_number`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Pass, "pass", "", "show only events of this pass")

	return cmd
}

func runJournal(opts *JournalOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, err)
	}
	defer st.Close()

	if len(args) == 0 {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, err)
		}
		return formatter.Success(runs, func(w io.Writer) error {
			return outputRunsText(w, runs)
		})
	}

	run, err := readRun(ctx, st, args[0])
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, err)
	}

	var events []opt.Event
	if opts.Pass != "" {
		events, err = st.ReadPassEvents(ctx, run.ID, opts.Pass)
	} else {
		events, err = st.ReadEvents(ctx, run.ID)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, err)
	}

	result := JournalRun{Run: run, Events: events}
	return formatter.Success(result, func(w io.Writer) error {
		return outputRunText(w, result, opts.Verbose)
	})
}

func readRun(ctx context.Context, st *store.Store, id string) (store.RunRecord, error) {
	if id == "latest" {
		return st.LatestRun(ctx)
	}
	return st.ReadRun(ctx, id)
}

func outputRunsText(w io.Writer, runs []store.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	for _, r := range runs {
		_, err := fmt.Fprintf(w, "%4d  %s  %-8s  %s  iterations=%d converged=%t\n",
			r.Seq, r.ID, r.Status, r.Program, r.Iterations, r.Converged)
		if err != nil {
			return err
		}
	}
	return nil
}

func outputRunText(w io.Writer, r JournalRun, verbose bool) error {
	run := r.Run
	fmt.Fprintf(w, "Run %s (#%d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "  program:    %s\n", run.Program)
	if run.Source != "" {
		fmt.Fprintf(w, "  source:     %s\n", run.Source)
	}
	fmt.Fprintf(w, "  status:     %s\n", run.Status)
	if run.Error != "" {
		fmt.Fprintf(w, "  error:      %s\n", run.Error)
	}
	fmt.Fprintf(w, "  iterations: %d (converged=%t, rollbacks=%d)\n", run.Iterations, run.Converged, run.Rollbacks)
	fmt.Fprintf(w, "  input:      %s\n", run.InputFingerprint)
	if run.OutputFingerprint != "" {
		fmt.Fprintf(w, "  output:     %s\n", run.OutputFingerprint)
	}
	fmt.Fprintln(w)

	if len(r.Events) == 0 {
		_, err := fmt.Fprintln(w, "No events.")
		return err
	}
	fmt.Fprintln(w, "Events:")
	for _, e := range r.Events {
		mark := " "
		switch {
		case e.RolledBack:
			mark = "!"
		case e.Changed:
			mark = "*"
		}
		fn := e.Function
		if fn == "" {
			fn = "-"
		}
		fmt.Fprintf(w, "  %s [%d] %-12s %-12s %s\n", mark, e.Iteration, e.Pass, fn, e.Fingerprint)
		if verbose && e.Detail != "" {
			fmt.Fprintf(w, "        %s\n", e.Detail)
		}
	}
	return nil
}
