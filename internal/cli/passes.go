package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/config"
)

// PassInfo describes one pass in execution order.
type PassInfo struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Summary string `json:"summary"`
}

// PassesResult is the JSON payload of passes.
type PassesResult struct {
	Entry         string                 `json:"entry"`
	MaxIterations int                    `json:"max_iterations"`
	Passes        []PassInfo             `json:"passes"`
	Refcount      config.RefcountOptions `json:"refcount"`
}

var passSummaries = map[string]string{
	"value_number": "replace congruent values, fold constants, inline closed waits",
	"refcount":     "merge, cancel and place refcount increments and decrements",
	"dead_code":    "remove unneeded vars and empty continuations",
	"pipeline":     "fuse one unblocked wait per block into its parent task",
	"prune":        "drop functions and builtins unreachable from the entry",
}

// NewPassesCommand creates the passes command.
func NewPassesCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &settingsFlags{}

	cmd := &cobra.Command{
		Use:   "passes",
		Short: "List optimizer passes and effective settings",
		Long: `List the optimizer passes in execution order and whether each is
enabled, after applying the settings file and flag overrides.

Examples:
  weft passes
  weft passes --config weft.cue --skip prune`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPasses(rootOpts, flags, cmd)
		},
	}

	flags.register(cmd)
	return cmd
}

func runPasses(opts *RootOptions, flags *settingsFlags, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	settings, err := flags.resolve()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSettings, err)
	}

	result := PassesResult{
		Entry:         settings.Entry,
		MaxIterations: settings.MaxIterations,
		Refcount:      settings.Refcount,
	}
	for _, name := range config.PassNames() {
		result.Passes = append(result.Passes, PassInfo{
			Name:    name,
			Enabled: settings.Enabled(name),
			Summary: passSummaries[name],
		})
	}

	return formatter.Success(result, func(w io.Writer) error {
		return outputPassesText(w, result)
	})
}

func outputPassesText(w io.Writer, r PassesResult) error {
	fmt.Fprintf(w, "entry: %s\n", r.Entry)
	fmt.Fprintf(w, "max_iterations: %d\n\n", r.MaxIterations)
	fmt.Fprintln(w, "Passes (in order):")
	for _, p := range r.Passes {
		mark := "✗"
		if p.Enabled {
			mark = "✓"
		}
		fmt.Fprintf(w, "  %s %-13s %s\n", mark, p.Name, p.Summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Refcount placement:")
	options := []struct {
		name string
		on   bool
	}{
		{"merge", r.Refcount.Merge},
		{"cancel", r.Refcount.Cancel},
		{"piggyback", r.Refcount.Piggyback},
		{"batch", r.Refcount.Batch},
		{"hoist", r.Refcount.Hoist},
	}
	for _, o := range options {
		_, err := fmt.Fprintf(w, "  %-10s %s\n", o.name+":", onOff(o.on))
		if err != nil {
			return err
		}
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
