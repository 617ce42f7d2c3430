package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/backend"
	"github.com/roach88/weft/internal/ic"
	"github.com/roach88/weft/internal/opt"
	"github.com/roach88/weft/internal/store"
)

// OptimizeOptions holds flags for the optimize command.
type OptimizeOptions struct {
	*RootOptions
	settingsFlags
	Journal string // journal database path
	Output  string // output file path
	Listing bool   // write a backend listing instead of the IC tree
	Strict  bool   // fail when the passes do not converge

	// IDs overrides the journal's run IDs (for testing).
	IDs store.IDGenerator
}

// OptimizeResult is the JSON payload of optimize.
type OptimizeResult struct {
	Program           string   `json:"program"`
	RunID             string   `json:"run_id,omitempty"`
	Iterations        int      `json:"iterations"`
	Converged         bool     `json:"converged"`
	Rollbacks         int      `json:"rollbacks"`
	InputFingerprint  string   `json:"input_fingerprint"`
	OutputFingerprint string   `json:"output_fingerprint"`
	PrunedFunctions   []string `json:"pruned_functions,omitempty"`
	PrunedBuiltins    []string `json:"pruned_builtins,omitempty"`
	Output            string   `json:"output,omitempty"`
	Text              string   `json:"text,omitempty"`
}

// NewOptimizeCommand creates the optimize command.
func NewOptimizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OptimizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "optimize <program.yaml>",
		Short: "Optimize a program",
		Long: `Load a program fixture, run the enabled optimizer passes and print
the optimized IC tree.

Examples:
  weft optimize prog.yaml
  weft optimize prog.yaml --config weft.toml --journal ./weft.db
  weft optimize prog.yaml --skip pipeline,prune -o prog.ic`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(opts, args[0], cmd)
		},
	}

	opts.settingsFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the run in this SQLite journal")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().BoolVar(&opts.Listing, "listing", false, "write a backend listing instead of the IC tree")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit 1 when the passes do not converge")

	return cmd
}

func runOptimize(opts *OptimizeOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr())

	settings, err := opts.resolve()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSettings, err)
	}
	prog, err := loadProgram(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeProgram, err)
	}
	formatter.VerboseLog("Loaded %s: %d function(s)", prog.Name, len(prog.Program.Functions))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result := OptimizeResult{
		Program:          prog.Name,
		InputFingerprint: ic.FormatFingerprint(ic.Fingerprint(prog.Program)),
	}

	var journal opt.Journal
	var run *store.Run
	if opts.Journal != "" {
		var storeOpts []store.Option
		if opts.IDs != nil {
			storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDs))
		}
		st, err := store.Open(opts.Journal, storeOpts...)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		run, err = st.BeginRun(ctx, store.RunInfo{
			Program:          prog.Name,
			Source:           prog.Source,
			Settings:         settings,
			InputFingerprint: ic.Fingerprint(prog.Program),
		})
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, err)
		}
		journal = run
		result.RunID = run.ID()
		formatter.VerboseLog("Journal run %s", run.ID())
	}

	res, err := opt.Optimize(ctx, logger, settings, prog.Program, journal)
	if err != nil {
		if run != nil {
			// The run is marked failed even when ctx was cancelled.
			if failErr := run.Fail(context.WithoutCancel(ctx), err); failErr != nil {
				logger.Error("error recording failure", "error", failErr)
			}
		}
		return formatter.Fail(ExitFailure, ErrCodeOptimize, err)
	}
	if run != nil {
		if err := run.Finish(ctx, res); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, err)
		}
	}

	result.Iterations = res.Iterations
	result.Converged = res.Converged
	result.Rollbacks = res.Rollbacks
	result.OutputFingerprint = ic.FormatFingerprint(res.Fingerprint)
	result.PrunedFunctions = res.Pruned.Functions
	result.PrunedBuiltins = res.Pruned.Builtins

	text := render(logger, prog.Program, opts.Listing)
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(text), 0o644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Errorf("writing output file: %w", err))
		}
		result.Output = opts.Output
	} else {
		result.Text = text
	}

	if opts.Strict && !res.Converged {
		err := fmt.Errorf("%s did not converge in %d iteration(s)", prog.Name, settings.MaxIterations)
		return formatter.Fail(ExitFailure, ErrCodeConverge, err)
	}

	return formatter.Success(result, func(w io.Writer) error {
		if opts.Output == "" {
			_, err := io.WriteString(w, text)
			return err
		}
		_, err := fmt.Fprintf(w, "Wrote %s (%d iteration(s), converged=%t)\n",
			opts.Output, res.Iterations, res.Converged)
		return err
	})
}

// render prints p as an IC tree, or as a listing of backend calls.
func render(logger *slog.Logger, p *ic.Program, listing bool) string {
	if !listing {
		return p.String()
	}
	l := backend.NewListing()
	p.Generate(logger, l)
	return l.String()
}
