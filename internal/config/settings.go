package config

// Settings selects which passes run and how.
type Settings struct {
	// Entry is the function pruning starts from.
	Entry string `json:"entry" yaml:"entry" toml:"entry"`

	// MaxIterations bounds the value-number/refcount/dead-code loop.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations" toml:"max_iterations"`

	Passes   Passes          `json:"passes" yaml:"passes" toml:"passes"`
	Refcount RefcountOptions `json:"refcount" yaml:"refcount" toml:"refcount"`
}

// Passes enables or disables each optimization pass.
type Passes struct {
	ValueNumber bool `json:"value_number" yaml:"value_number" toml:"value_number"`
	Refcount    bool `json:"refcount" yaml:"refcount" toml:"refcount"`
	DeadCode    bool `json:"dead_code" yaml:"dead_code" toml:"dead_code"`
	Pipeline    bool `json:"pipeline" yaml:"pipeline" toml:"pipeline"`
	Prune       bool `json:"prune" yaml:"prune" toml:"prune"`
}

// RefcountOptions controls refcount placement.
type RefcountOptions struct {
	// Merge combines counts recorded against struct member aliases with
	// the struct that owns the refcount.
	Merge bool `json:"merge" yaml:"merge" toml:"merge"`

	// Cancel nets increments against decrements of the same var.
	Cancel bool `json:"cancel" yaml:"cancel" toml:"cancel"`

	// Piggyback folds a final reader decrement into the last load.
	Piggyback bool `json:"piggyback" yaml:"piggyback" toml:"piggyback"`

	// Batch emits at most one instruction per var and direction.
	Batch bool `json:"batch" yaml:"batch" toml:"batch"`

	// Hoist moves increments to the top of their block.
	Hoist bool `json:"hoist" yaml:"hoist" toml:"hoist"`
}

// Any reports whether any placement option is on.
func (o RefcountOptions) Any() bool {
	return o.Merge || o.Cancel || o.Piggyback || o.Batch || o.Hoist
}

// DefaultEntry is the entry function used when none is configured.
const DefaultEntry = "main"

// DefaultMaxIterations bounds the fixed-point loop by default.
const DefaultMaxIterations = 10

// Default returns settings with every pass and option enabled.
func Default() Settings {
	return Settings{
		Entry:         DefaultEntry,
		MaxIterations: DefaultMaxIterations,
		Passes: Passes{
			ValueNumber: true,
			Refcount:    true,
			DeadCode:    true,
			Pipeline:    true,
			Prune:       true,
		},
		Refcount: RefcountOptions{
			Merge:     true,
			Cancel:    true,
			Piggyback: true,
			Batch:     true,
			Hoist:     true,
		},
	}
}

// PassNames lists the pass names in execution order.
func PassNames() []string {
	return []string{"value_number", "refcount", "dead_code", "pipeline", "prune"}
}

// Enabled reports whether the named pass is on. Unknown names are off.
func (s Settings) Enabled(pass string) bool {
	switch pass {
	case "value_number":
		return s.Passes.ValueNumber
	case "refcount":
		return s.Passes.Refcount
	case "dead_code":
		return s.Passes.DeadCode
	case "pipeline":
		return s.Passes.Pipeline
	case "prune":
		return s.Passes.Prune
	}
	return false
}

// WithPass returns a copy of s with the named pass turned on or off. ok is
// false for an unknown name.
func (s Settings) WithPass(pass string, on bool) (out Settings, ok bool) {
	out = s
	switch pass {
	case "value_number":
		out.Passes.ValueNumber = on
	case "refcount":
		out.Passes.Refcount = on
	case "dead_code":
		out.Passes.DeadCode = on
	case "pipeline":
		out.Passes.Pipeline = on
	case "prune":
		out.Passes.Prune = on
	default:
		return s, false
	}
	return out, true
}
