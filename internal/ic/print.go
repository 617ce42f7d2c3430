package ic

import "strings"

// Indent is one level of pretty-print indentation.
const Indent = "  "

// Pretty writes the block's declarations, statements, continuations and
// cleanups, one per line.
func (b *Block) Pretty(sb *strings.Builder, indent string) {
	for _, v := range b.Vars {
		sb.WriteString(indent + "declare " + v.Declaration() + "\n")
	}
	for _, s := range b.Statements {
		switch s := s.(type) {
		case *Instruction:
			sb.WriteString(indent + s.String() + "\n")
		case Continuation:
			s.Pretty(sb, indent)
		}
	}
	for _, c := range b.Continuations {
		c.Pretty(sb, indent)
	}
	for _, cu := range b.Cleanups {
		sb.WriteString(indent + "cleanup " + cu.Var.Name + ": " + cu.Action.String() + "\n")
	}
}

// String pretty-prints the block without indentation.
func (b *Block) String() string {
	var sb strings.Builder
	b.Pretty(&sb, "")
	return sb.String()
}

// String pretty-prints the function.
func (f *Function) String() string {
	var sb strings.Builder
	f.Pretty(&sb)
	return sb.String()
}

// PrettyContinuation renders a single continuation.
func PrettyContinuation(c Continuation) string {
	var sb strings.Builder
	c.Pretty(&sb, "")
	return sb.String()
}
