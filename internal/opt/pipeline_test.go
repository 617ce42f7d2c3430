package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weft/internal/ic"
)

// TestPipeline_SingleCandidateInlined tests that the only unblocked wait
// in a block is merged into it.
func TestPipeline_SingleCandidateInlined(t *testing.T) {
	f := ic.NewFunction("main", nil, nil, ic.TaskSync)
	f.MainBlock.AddContinuation(newWait(printOp(ic.IntArg(2))))

	stats := Pipeline(discardLogger(), f)

	assert.Equal(t, PipelineStats{Fused: 1}, stats)
	assert.Empty(t, f.MainBlock.Continuations)
	assert.Equal(t, []string{"print(2)"}, instructionStrings(f.MainBlock))
}

// TestPipeline_CheapestDeferred tests that with several candidates the
// cheapest one runs last in a nested block and the others stay spawned.
func TestPipeline_CheapestDeferred(t *testing.T) {
	file := typed("data", ic.TypeFile)
	n := future("n")
	f := ic.NewFunction("main", []*ic.Var{file, n}, nil, ic.TaskSync)

	reader := newWait()
	copied := reader.Block.Declare(typed("copied", ic.TypeFile))
	reader.Block.Add(ic.AsyncOp(ic.BuiltinCopy, copied, ic.VarArg(file)), printOp(ic.VarArg(copied)))
	printer := newWait(printOp(ic.VarArg(n)))
	f.MainBlock.AddContinuation(reader)
	f.MainBlock.AddContinuation(printer)

	stats := Pipeline(discardLogger(), f)

	assert.Equal(t, PipelineStats{Fused: 1, Deferred: 1}, stats)
	require.Len(t, f.MainBlock.Continuations, 2)
	assert.Same(t, reader, f.MainBlock.Continuations[0])
	nested, ok := f.MainBlock.Continuations[1].(*ic.NestedBlock)
	require.True(t, ok)
	assert.True(t, nested.RunLast())
	assert.Equal(t, []string{"print(n)"}, instructionStrings(nested.Block))
}

// TestPipeline_IneligibleWaitsKept tests that blocked, parallel, placed and
// cross-context waits are never fused.
func TestPipeline_IneligibleWaitsKept(t *testing.T) {
	x, width := future("x"), future("width")
	f := ic.NewFunction("main", []*ic.Var{x, width}, nil, ic.TaskSync)

	blocked := ic.NewWait("", []ic.WaitVar{{Var: x}}, ic.WaitOnly, false, ic.TaskLocal, nil)
	blocked.Block.Add(printOp(ic.VarArg(x)))
	parallel := ic.NewWait("", nil, ic.WaitTaskDispatch, false, ic.TaskLocal,
		ic.TaskProps{ic.PropParallelism: ic.VarArg(width)})
	parallel.Block.Add(printOp(ic.IntArg(1)))
	placed := ic.NewWait("", nil, ic.WaitTaskDispatch, false, ic.TaskLocal,
		ic.TaskProps{ic.PropLocation: ic.IntArg(0)})
	placed.Block.Add(printOp(ic.IntArg(2)))
	worker := ic.NewWait("", nil, ic.WaitTaskDispatch, false, ic.TaskWorker, nil)
	worker.Block.Add(printOp(ic.IntArg(3)))
	for _, w := range []*ic.Wait{blocked, parallel, placed, worker} {
		f.MainBlock.AddContinuation(w)
	}

	stats := Pipeline(discardLogger(), f)

	assert.Zero(t, stats.Fused)
	assert.Len(t, f.MainBlock.Continuations, 4)
	assert.Empty(t, f.MainBlock.Statements)
}

// TestPipeline_NestedBlocks tests that each block fuses independently and
// a wait inside a worker task may fuse into that task.
func TestPipeline_NestedBlocks(t *testing.T) {
	f := ic.NewFunction("main", nil, nil, ic.TaskSync)
	worker := ic.NewWait("", nil, ic.WaitTaskDispatch, false, ic.TaskWorker, nil)
	inner := ic.NewWait("", nil, ic.WaitOnly, false, ic.TaskWorker, nil)
	inner.Block.Add(printOp(ic.IntArg(7)))
	worker.Block.AddContinuation(inner)
	f.MainBlock.AddContinuation(worker)

	stats := Pipeline(discardLogger(), f)

	assert.Equal(t, 1, stats.Fused)
	require.Len(t, f.MainBlock.Continuations, 1)
	assert.Empty(t, worker.Block.Continuations)
	assert.Equal(t, []string{"print(7)"}, instructionStrings(worker.Block))
}

// TestPipeline_PassingCost tests the per-type transfer costs.
func TestPipeline_PassingCost(t *testing.T) {
	p := &pipeliner{logger: discardLogger()}
	tests := []struct {
		name string
		typ  *ic.Type
		want int
	}{
		{"file", ic.TypeFile, costFile},
		{"file value", ic.ValFile, costFile},
		{"blob", ic.TypeBlob, costBlob},
		{"int future", ic.TypeInt, costFuture},
		{"array", ic.ArrayOf(ic.TypeInt), costFuture},
		{"ref", ic.RefTo(ic.TypeString), costFuture},
		{"int value", ic.ValInt, costValue},
		{"struct", ic.StructType("rec",
			ic.StructField{Name: "f", Type: ic.TypeFile},
			ic.StructField{Name: "n", Type: ic.TypeInt},
		), costFile + costFuture},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.passingCost(tt.typ))
		})
	}
}
