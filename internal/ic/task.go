package ic

import (
	"fmt"
	"sort"
	"strings"
)

// TaskMode is where spawned work executes.
type TaskMode int

const (
	TaskSync TaskMode = iota
	TaskLocal
	TaskLocalControl
	TaskControl
	TaskWorker
)

var taskModeNames = [...]string{"sync", "local", "local_control", "control", "worker"}

func (m TaskMode) String() string {
	if int(m) < 0 || int(m) >= len(taskModeNames) {
		return fmt.Sprintf("taskmode(%d)", int(m))
	}
	return taskModeNames[m]
}

// ParseTaskMode maps a task mode name to its TaskMode.
func ParseTaskMode(name string) (TaskMode, bool) {
	for i, n := range taskModeNames {
		if n == name {
			return TaskMode(i), true
		}
	}
	return 0, false
}

// ExecContext is the kind of worker a block runs on.
type ExecContext int

const (
	ContextControl ExecContext = iota
	ContextWorker
)

func (c ExecContext) String() string {
	if c == ContextWorker {
		return "worker"
	}
	return "control"
}

// TaskPropKey names a task property.
type TaskPropKey string

const (
	PropParallelism TaskPropKey = "parallelism"
	PropLocation    TaskPropKey = "location"
)

// TaskProps are optional properties attached to spawned tasks.
type TaskProps map[TaskPropKey]Arg

// Clone copies the props.
func (p TaskProps) Clone() TaskProps {
	if p == nil {
		return nil
	}
	c := make(TaskProps, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Vars returns the vars used as property values.
func (p TaskProps) Vars() []*Var {
	var out []*Var
	for _, k := range p.keys() {
		if a := p[k]; a.IsVar() {
			out = append(out, a.Var)
		}
	}
	return out
}

func (p TaskProps) keys() []TaskPropKey {
	keys := make([]TaskPropKey, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (p TaskProps) rename(renames Renames) {
	for k, v := range p {
		p[k] = renames.Arg(v)
	}
}

func (p TaskProps) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.keys() {
		parts = append(parts, string(k)+"="+p[k].String())
	}
	return strings.Join(parts, " ")
}
