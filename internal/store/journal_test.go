package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weft/internal/config"
	"github.com/roach88/weft/internal/ic"
	"github.com/roach88/weft/internal/opt"
)

func testInfo(program string) RunInfo {
	return RunInfo{
		Program:          program,
		Source:           "testdata/" + program + ".yaml",
		Settings:         config.Default(),
		InputFingerprint: 0xabc,
	}
}

// TestBeginRun_Sequence tests that runs get generated IDs and increasing seq.
func TestBeginRun_Sequence(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("run-a", "run-b")))

	a, err := s.BeginRun(ctx, testInfo("first"))
	require.NoError(t, err)
	b, err := s.BeginRun(ctx, testInfo("second"))
	require.NoError(t, err)

	assert.Equal(t, "run-a", a.ID())
	assert.Equal(t, int64(1), a.Seq())
	assert.Equal(t, "run-b", b.ID())
	assert.Equal(t, int64(2), b.Seq())

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "first", runs[0].Program)
	assert.Equal(t, "second", runs[1].Program)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.Equal(t, ic.FormatFingerprint(0xabc), runs[0].InputFingerprint)
	if diff := cmp.Diff(config.Default(), runs[0].Settings); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-b", latest.ID)
}

// TestBeginRun_DuplicateID tests that a reused ID is rejected.
func TestBeginRun_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("dup", "dup")))

	_, err := s.BeginRun(ctx, testInfo("main"))
	require.NoError(t, err)
	_, err = s.BeginRun(ctx, testInfo("main"))
	assert.Error(t, err)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

// TestRun_RecordOrder tests that events read back in the order recorded.
func TestRun_RecordOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("run-1")))
	run, err := s.BeginRun(ctx, testInfo("main"))
	require.NoError(t, err)

	want := []opt.Event{
		{Iteration: 1, Pass: opt.PassValueNumber, Function: "main", Changed: true, Detail: "replaced=1", Fingerprint: "01"},
		{Iteration: 1, Pass: opt.PassRefcount, Function: "main", Fingerprint: "01"},
		{Iteration: 1, Pass: opt.PassValueNumber, Function: "helper", RolledBack: true, Detail: "unsafe", Fingerprint: "02"},
		{Iteration: 2, Pass: opt.PassPrune, Changed: true, Fingerprint: "03"},
	}
	for _, e := range want {
		require.NoError(t, run.Record(ctx, e))
	}

	got, err := s.ReadEvents(ctx, run.ID())
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	vn, err := s.ReadPassEvents(ctx, run.ID(), opt.PassValueNumber)
	require.NoError(t, err)
	require.Len(t, vn, 2)
	assert.Equal(t, "helper", vn[1].Function)
}

// TestRun_Finish tests that the result is stored on the run.
func TestRun_Finish(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("run-1")))
	run, err := s.BeginRun(ctx, testInfo("main"))
	require.NoError(t, err)

	require.NoError(t, run.Finish(ctx, opt.Result{
		Iterations:  3,
		Converged:   true,
		Rollbacks:   1,
		Fingerprint: 0xff,
	}))

	r, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, r.Status)
	assert.Equal(t, 3, r.Iterations)
	assert.True(t, r.Converged)
	assert.Equal(t, 1, r.Rollbacks)
	assert.Equal(t, ic.FormatFingerprint(0xff), r.OutputFingerprint)
	assert.Empty(t, r.Error)
}

// TestRun_Fail tests that a failure is stored with its message.
func TestRun_Fail(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("run-1")))
	run, err := s.BeginRun(ctx, testInfo("main"))
	require.NoError(t, err)

	require.NoError(t, run.Fail(ctx, errors.New("context canceled")))

	r, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, "context canceled", r.Error)
	assert.False(t, r.Converged)
}

// TestReadRun_NotFound tests the error for an unknown run.
func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = s.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

// TestReadEvents_Empty tests that a run without events reads as empty.
func TestReadEvents_Empty(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("run-1")))
	_, err := s.BeginRun(ctx, testInfo("main"))
	require.NoError(t, err)

	events, err := s.ReadEvents(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NotNil(t, events)
}

// TestRun_OptimizerJournal tests a run recorded by the optimizer itself.
func TestRun_OptimizerJournal(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(NewFixedGenerator("run-1")))

	p := ic.NewProgram()
	x := ic.NewVar("x", ic.TypeInt, ic.StorageStack, ic.DefLocalUser)
	y := ic.NewVar("y", ic.TypeInt, ic.StorageStack, ic.DefLocalUser)
	f := ic.NewFunction("main", nil, nil, ic.TaskSync)
	f.MainBlock.Declare(x)
	f.MainBlock.Declare(y)
	f.MainBlock.Add(ic.Store(x, ic.IntArg(2)), ic.AsyncOp(ic.BuiltinCopy, y, ic.VarArg(x)))
	w := ic.NewWait("", []ic.WaitVar{{Var: y}}, ic.WaitOnly, false, ic.TaskLocal, nil)
	w.Block.Add(ic.AsyncOp(ic.BuiltinPrint, nil, ic.VarArg(y)))
	f.MainBlock.AddContinuation(w)
	p.AddFunction(f)

	run, err := s.BeginRun(ctx, RunInfo{Program: "main", Settings: config.Default(), InputFingerprint: ic.Fingerprint(p)})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	res, err := opt.Optimize(ctx, logger, config.Default(), p, run)
	require.NoError(t, err)
	require.NoError(t, run.Finish(ctx, res))

	events, err := s.ReadEvents(ctx, "run-1")
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, opt.PassValueNumber, events[0].Pass)
	assert.Equal(t, opt.PassPrune, events[len(events)-1].Pass)

	r, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, r.Converged)
	assert.Equal(t, ic.FormatFingerprint(res.Fingerprint), r.OutputFingerprint)
	assert.Equal(t, res.Iterations, r.Iterations)
}
