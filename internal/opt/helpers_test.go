package opt

import (
	"io"
	"log/slog"

	"github.com/roach88/weft/internal/ic"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func future(name string) *ic.Var {
	return ic.NewVar(name, ic.TypeInt, ic.StorageStack, ic.DefLocalUser)
}

func typed(name string, t *ic.Type) *ic.Var {
	return ic.NewVar(name, t, ic.StorageStack, ic.DefLocalUser)
}

func instructionStrings(b *ic.Block) []string {
	var out []string
	for _, in := range b.Instructions() {
		out = append(out, in.String())
	}
	return out
}

func newWait(body ...ic.Statement) *ic.Wait {
	w := ic.NewWait("", nil, ic.WaitOnly, false, ic.TaskLocal, nil)
	w.Block.Add(body...)
	return w
}

func printOp(a ic.Arg) *ic.Instruction {
	return ic.AsyncOp(ic.BuiltinPrint, nil, a)
}
