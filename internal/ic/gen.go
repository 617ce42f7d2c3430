package ic

import "fmt"

// Generate emits the instruction to b.
func (in *Instruction) Generate(b Backend, info *GenInfo) {
	switch in.Op {
	case OpComment:
		b.Comment(in.Text)
	case OpStore:
		genAssign(b, in.Outputs[0], in.Inputs[0])
	case OpLoad:
		genRetrieve(b, in.Outputs[0], in.Inputs[0].Var, in.Decr)
	case OpStoreRef:
		b.AssignRef(in.Outputs[0], in.Inputs[0].Var)
	case OpLoadRef:
		b.RetrieveRef(in.Outputs[0], in.Inputs[0].Var)
	case OpCopyRef:
		b.MakeAlias(in.Outputs[0], in.Inputs[0].Var)
	case OpAsyncOp:
		b.AsyncOp(in.Builtin, in.Output(), in.Inputs)
	case OpLocalOp:
		b.LocalOp(in.Builtin, in.Output(), in.Inputs)
	case OpArrayStore:
		b.ArrayInsert(in.Outputs[0], in.Inputs[0], in.Inputs[1].Var)
	case OpArrayLookup:
		b.ArrayLookup(in.Outputs[0], in.Inputs[0].Var, in.Inputs[1])
	case OpStructLookup:
		b.StructLookup(in.Outputs[0], in.Inputs[0].Var, in.Field)
	case OpCallFunc:
		b.CallFunction(in.Func, in.Outputs, in.Inputs, info.BlockingInputs(in.Func), info.Mode(in.Func))
	case OpCallForeign:
		b.CallForeign(in.Func, in.Outputs, in.Inputs)
	case OpIncrReaders:
		b.IncrReaders(in.Inputs[0].Var, in.Inputs[1])
	case OpDecrReaders:
		b.DecrReaders(in.Inputs[0].Var, in.Inputs[1])
	case OpIncrWriters:
		b.IncrWriters(in.Inputs[0].Var, in.Inputs[1])
	case OpDecrWriters:
		b.DecrWriters(in.Inputs[0].Var, in.Inputs[1])
	case OpLoopContinue:
		b.LoopContinue(in.Inputs, in.Passed, in.KeepOpen)
	case OpLoopBreak:
		b.LoopBreak(in.Passed, in.KeepOpen)
	default:
		panic(fmt.Sprintf("Generate: unhandled opcode %s", in.Op))
	}
}

func genAssign(b Backend, dst *Var, src Arg) {
	switch dst.Type.Prim {
	case PrimInt:
		b.AssignInt(dst, src)
	case PrimFloat:
		b.AssignFloat(dst, src)
	case PrimString:
		b.AssignString(dst, src)
	case PrimBool:
		b.AssignBool(dst, src)
	case PrimVoid:
		b.AssignVoid(dst, src)
	case PrimBlob:
		b.AssignBlob(dst, src)
	case PrimFile:
		b.AssignFile(dst, src)
	default:
		panic(fmt.Sprintf("genAssign: unhandled prim %s", dst.Type.Prim))
	}
}

func genRetrieve(b Backend, dst, src *Var, decr int64) {
	switch src.Type.Prim {
	case PrimInt:
		b.RetrieveInt(dst, src, decr)
	case PrimFloat:
		b.RetrieveFloat(dst, src, decr)
	case PrimString:
		b.RetrieveString(dst, src, decr)
	case PrimBool:
		b.RetrieveBool(dst, src, decr)
	case PrimVoid:
		b.RetrieveVoid(dst, src, decr)
	case PrimBlob:
		b.RetrieveBlob(dst, src, decr)
	case PrimFile:
		b.RetrieveFile(dst, src, decr)
	default:
		panic(fmt.Sprintf("genRetrieve: unhandled prim %s", src.Type.Prim))
	}
}
