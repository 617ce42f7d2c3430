package fixture

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Document is the YAML form of a program.
type Document struct {
	IRVersion         string            `yaml:"ir_version"`
	Name              string            `yaml:"name,omitempty"`
	Description       string            `yaml:"description,omitempty"`
	Packages          []string          `yaml:"packages,omitempty"`
	Structs           []StructDoc       `yaml:"structs,omitempty"`
	Builtins          []BuiltinDoc      `yaml:"builtins,omitempty"`
	OpImplementations map[string]string `yaml:"op_implementations,omitempty"`
	Globals           []GlobalDoc       `yaml:"globals,omitempty"`
	Functions         []FunctionDoc     `yaml:"functions"`
}

type StructDoc struct {
	Name   string     `yaml:"name"`
	Fields []FieldDoc `yaml:"fields"`
}

type FieldDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type BuiltinDoc struct {
	Name    string   `yaml:"name"`
	Inputs  []string `yaml:"inputs,omitempty"`
	Outputs []string `yaml:"outputs,omitempty"`
	Impure  bool     `yaml:"impure,omitempty"`
}

type GlobalDoc struct {
	Name  string `yaml:"name"`
	Value Operand `yaml:"value"`
}

type FunctionDoc struct {
	Name     string   `yaml:"name"`
	Mode     string   `yaml:"mode,omitempty"`
	Inputs   []VarDoc `yaml:"inputs,omitempty"`
	Outputs  []VarDoc `yaml:"outputs,omitempty"`
	Blocking []string `yaml:"blocking,omitempty"`
	Block    BlockDoc `yaml:"block"`
}

// VarDoc declares a variable. Storage defaults to local for value types
// and stack otherwise.
type VarDoc struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Storage string `yaml:"storage,omitempty"`
	Def     string `yaml:"def,omitempty"`
	Mapping string `yaml:"mapping,omitempty"`
}

type BlockDoc struct {
	Vars          []VarDoc          `yaml:"vars,omitempty"`
	Statements    []StatementDoc    `yaml:"statements,omitempty"`
	Continuations []ContinuationDoc `yaml:"continuations,omitempty"`
	Cleanups      []CleanupDoc      `yaml:"cleanups,omitempty"`
}

// StatementDoc is an instruction, or a conditional when If or Switch is
// set.
type StatementDoc struct {
	InstructionDoc `yaml:",inline"`
	If             *IfDoc     `yaml:"if,omitempty"`
	Switch         *SwitchDoc `yaml:"switch,omitempty"`
}

type InstructionDoc struct {
	Op       string    `yaml:"op,omitempty"`
	Builtin  string    `yaml:"builtin,omitempty"`
	Func     string    `yaml:"func,omitempty"`
	Field    string    `yaml:"field,omitempty"`
	Text     string    `yaml:"text,omitempty"`
	Impure   bool      `yaml:"impure,omitempty"`
	Decr     int64     `yaml:"decr,omitempty"`
	Out      []string  `yaml:"out,omitempty"`
	In       []Operand `yaml:"in,omitempty"`
	Passed   []string  `yaml:"passed,omitempty"`
	KeepOpen []string  `yaml:"keep_open,omitempty"`
}

type CleanupDoc struct {
	Var            string `yaml:"var"`
	InstructionDoc `yaml:",inline"`
}

type IfDoc struct {
	Cond Operand  `yaml:"cond"`
	Then BlockDoc `yaml:"then"`
	Else BlockDoc `yaml:"else,omitempty"`
}

type SwitchDoc struct {
	Cond    Operand   `yaml:"cond"`
	Cases   []CaseDoc `yaml:"cases,omitempty"`
	Default *BlockDoc `yaml:"default,omitempty"`
}

type CaseDoc struct {
	Label int64    `yaml:"label"`
	Block BlockDoc `yaml:"block"`
}

// ContinuationDoc holds exactly one non-conditional continuation.
type ContinuationDoc struct {
	Wait     *WaitDoc    `yaml:"wait,omitempty"`
	Loop     *LoopDoc    `yaml:"loop,omitempty"`
	Foreach  *ForeachDoc `yaml:"foreach,omitempty"`
	Range    *RangeDoc   `yaml:"range,omitempty"`
	Nested   *BlockDoc   `yaml:"nested,omitempty"`
	RunLast  bool        `yaml:"run_last,omitempty"`
	Passed   []string    `yaml:"passed,omitempty"`
	KeepOpen []string    `yaml:"keep_open,omitempty"`
}

type WaitDoc struct {
	Proc      string             `yaml:"proc,omitempty"`
	Vars      []string           `yaml:"vars,omitempty"`
	Explicit  []string           `yaml:"explicit,omitempty"`
	Mode      string             `yaml:"mode,omitempty"`
	Recursive bool               `yaml:"recursive,omitempty"`
	Target    string             `yaml:"target,omitempty"`
	Props     map[string]Operand `yaml:"props,omitempty"`
	Block     BlockDoc           `yaml:"block"`
}

type LoopDoc struct {
	Name  string       `yaml:"name"`
	Vars  []LoopVarDoc `yaml:"vars,omitempty"`
	Block BlockDoc     `yaml:"block"`
}

// LoopVarDoc declares a loop variable, or reuses an enclosing one when
// Outer is set.
type LoopVarDoc struct {
	VarDoc   `yaml:",inline"`
	Init     Operand `yaml:"init"`
	Blocking bool    `yaml:"blocking,omitempty"`
	Outer    bool    `yaml:"outer,omitempty"`
}

type ForeachDoc struct {
	Container string   `yaml:"container"`
	Member    VarDoc   `yaml:"member"`
	Key       *VarDoc  `yaml:"key,omitempty"`
	Split     int      `yaml:"split,omitempty"`
	Block     BlockDoc `yaml:"block"`
}

type RangeDoc struct {
	Var   VarDoc   `yaml:"var"`
	Start Operand  `yaml:"start"`
	End   Operand  `yaml:"end"`
	Step  *Operand `yaml:"step,omitempty"`
	Split int      `yaml:"split,omitempty"`
	Block BlockDoc `yaml:"block"`
}

// OperandKind says how an Operand was written.
type OperandKind int

const (
	OperandVar OperandKind = iota
	OperandInt
	OperandFloat
	OperandString
	OperandBool
)

// Operand is an unresolved instruction argument.
type Operand struct {
	Kind  OperandKind
	Name  string
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

func (o *Operand) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: operand must be a scalar", n.Line)
	}
	var err error
	switch n.ShortTag() {
	case "!!int":
		o.Kind = OperandInt
		o.Int, err = strconv.ParseInt(n.Value, 0, 64)
	case "!!float":
		o.Kind = OperandFloat
		o.Float, err = strconv.ParseFloat(n.Value, 64)
	case "!!bool":
		o.Kind = OperandBool
		err = n.Decode(&o.Bool)
	case "!!str":
		if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			o.Kind = OperandString
			o.Str = n.Value
		} else {
			o.Kind = OperandVar
			o.Name = n.Value
		}
	default:
		return fmt.Errorf("line %d: unsupported operand %q", n.Line, n.Value)
	}
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	return nil
}
