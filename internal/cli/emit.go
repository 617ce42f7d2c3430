package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/weft/internal/backend"
	"github.com/roach88/weft/internal/opt"
)

// EmitOptions holds flags for the emit command.
type EmitOptions struct {
	*RootOptions
	settingsFlags
	Optimize bool
}

// EmitResult is the JSON payload of emit.
type EmitResult struct {
	Program string   `json:"program"`
	Lines   []string `json:"lines"`
}

// NewEmitCommand creates the emit command.
func NewEmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "emit <program.yaml>",
		Short: "Print the backend listing of a program",
		Long: `Generate a program through the listing backend and print one line
per backend call, indented by nesting.

With --optimize the passes run first.

Examples:
  weft emit prog.yaml
  weft emit prog.yaml --optimize --skip pipeline`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(opts, args[0], cmd)
		},
	}

	opts.settingsFlags.register(cmd)
	cmd.Flags().BoolVar(&opts.Optimize, "optimize", false, "run the optimizer before emitting")

	return cmd
}

func runEmit(opts *EmitOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr())

	prog, err := loadProgram(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeProgram, err)
	}
	if opts.Optimize {
		settings, err := opts.resolve()
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeSettings, err)
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if _, err := opt.Optimize(ctx, logger, settings, prog.Program, nil); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeOptimize, err)
		}
	}

	l := backend.NewListing()
	prog.Program.Generate(logger, l)
	result := EmitResult{Program: prog.Name, Lines: l.Lines()}
	return formatter.Success(result, func(w io.Writer) error {
		_, err := io.WriteString(w, l.String())
		return err
	})
}
