package opt

import (
	"log/slog"

	"github.com/roach88/weft/internal/ic"
)

// PruneStats lists what pruning dropped.
type PruneStats struct {
	Functions []string
	Builtins  []string
}

// Changed reports whether anything was dropped.
func (s PruneStats) Changed() bool { return len(s.Functions)+len(s.Builtins) > 0 }

// PruneFunctions drops functions and builtins not reachable from entry.
// A program without the entry function is left unchanged.
func PruneFunctions(logger *slog.Logger, p *ic.Program, entry string) PruneStats {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("pass", "prune")
	var stats PruneStats
	if p.Function(entry) == nil {
		logger.Warn("entry function not found, skipping", "entry", entry)
		return stats
	}

	g := BuildCallGraph(p)
	for _, group := range g.RecursiveGroups() {
		logger.Debug("recursive functions", "group", group)
	}
	keep := g.Reachable(entry)

	var funcs []*ic.Function
	for _, f := range p.Functions {
		if keep[f.Name] {
			funcs = append(funcs, f)
		} else {
			stats.Functions = append(stats.Functions, f.Name)
		}
	}
	p.Functions = funcs

	var builtins []*ic.Builtin
	for _, b := range p.Builtins {
		if keep[b.Name] {
			builtins = append(builtins, b)
		} else {
			stats.Builtins = append(stats.Builtins, b.Name)
		}
	}
	p.Builtins = builtins

	if stats.Changed() {
		logger.Debug("pruned", "functions", stats.Functions, "builtins", stats.Builtins)
	}
	return stats
}
