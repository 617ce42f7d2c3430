package cli

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weft/internal/opt"
	"github.com/roach88/weft/internal/store"
)

// optimizeWithID runs optimize into db with a fixed run ID.
func optimizeWithID(t *testing.T, db, id string, extra ...string) {
	t.Helper()
	opts := &OptimizeOptions{
		RootOptions: &RootOptions{Format: "text"},
		Journal:     db,
		IDs:         store.NewFixedGenerator(id),
	}
	cmd := &cobra.Command{}
	opts.settingsFlags.register(cmd)
	require.NoError(t, cmd.ParseFlags(extra))
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	require.NoError(t, runOptimize(opts, copyWaitFixture, cmd))
}

func TestJournal_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "weft.db")
	out, _, err := execute(t, "journal", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)
}

func TestJournal_ListRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "weft.db")
	optimizeWithID(t, db, "run-1")
	optimizeWithID(t, db, "run-2", "--skip", "pipeline")

	out, _, err := execute(t, "--format", "json", "journal", "--db", db)
	require.NoError(t, err)

	status, runs, _ := decode[[]store.RunRecord](t, out)
	assert.Equal(t, "ok", status)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)
	assert.Equal(t, store.StatusFinished, runs[0].Status)
	assert.False(t, runs[1].Settings.Passes.Pipeline)

	text, _, err := execute(t, "journal", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, text, "run-1")
	assert.Contains(t, text, "copy_wait")
}

func TestJournal_ShowRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "weft.db")
	optimizeWithID(t, db, "run-1")

	out, _, err := execute(t, "--format", "json", "journal", "--db", db, "latest")
	require.NoError(t, err)

	_, res, _ := decode[JournalRun](t, out)
	assert.Equal(t, "run-1", res.Run.ID)
	assert.True(t, res.Run.Converged)
	require.NotEmpty(t, res.Events)
	assert.Equal(t, opt.PassValueNumber, res.Events[0].Pass)
	assert.Equal(t, opt.PassPrune, res.Events[len(res.Events)-1].Pass)

	out, _, err = execute(t, "--format", "json", "journal", "--db", db, "run-1", "--pass", "pipeline")
	require.NoError(t, err)
	_, res, _ = decode[JournalRun](t, out)
	require.NotEmpty(t, res.Events)
	for _, e := range res.Events {
		assert.Equal(t, opt.PassPipeline, e.Pass)
	}

	text, _, err := execute(t, "-v", "journal", "--db", db, "run-1")
	require.NoError(t, err)
	assert.Contains(t, text, "Run run-1 (#1)")
	assert.Contains(t, text, "status:     finished")
	assert.Contains(t, text, "Events:")
}

func TestJournal_NotFound(t *testing.T) {
	db := filepath.Join(t.TempDir(), "weft.db")
	out, _, err := execute(t, "--format", "json", "journal", "--db", db, "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, cliErr := decode[JournalRun](t, out)
	require.NotNil(t, cliErr)
	assert.Equal(t, ErrCodeNotFound, cliErr.Code)
}
