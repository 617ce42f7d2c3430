package opt

import (
	"sort"

	"github.com/roach88/weft/internal/ic"
)

// CallGraph maps each function to the functions and builtins it may
// invoke.
type CallGraph map[string][]string

// BuildCallGraph collects direct calls and, for async builtin ops with a
// registered implementation, an edge to the implementing name.
func BuildCallGraph(p *ic.Program) CallGraph {
	g := make(CallGraph)
	for _, f := range p.Functions {
		seen := make(map[string]bool)
		callees := []string{}
		add := func(name string) {
			if name != "" && !seen[name] {
				seen[name] = true
				callees = append(callees, name)
			}
		}
		ic.Walk(f.MainBlock, ic.Visitor{Instruction: func(in *ic.Instruction) {
			switch in.Op {
			case ic.OpCallFunc, ic.OpCallForeign:
				add(in.Func)
			case ic.OpAsyncOp, ic.OpLocalOp:
				add(p.OpImplementations[in.Builtin])
			}
		}})
		g[f.Name] = callees
	}
	return g
}

// Reachable returns every name reachable from entry, entry included.
func (g CallGraph) Reachable(entry string) map[string]bool {
	seen := map[string]bool{entry: true}
	work := []string{entry}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]
		for _, m := range g[n] {
			if !seen[m] {
				seen[m] = true
				work = append(work, m)
			}
		}
	}
	return seen
}

// RecursiveGroups returns the sets of mutually recursive functions,
// including functions that call themselves. Each group and the result
// are sorted.
func (g CallGraph) RecursiveGroups() [][]string {
	var groups [][]string
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || g.callsItself(scc[0]) {
			sort.Strings(scc)
			groups = append(groups, scc)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}

func (g CallGraph) callsItself(name string) bool {
	for _, m := range g[name] {
		if m == name {
			return true
		}
	}
	return false
}

// tarjanSCC finds the strongly connected components of g. Nodes are
// visited in name order so results are deterministic.
func tarjanSCC(g CallGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}
