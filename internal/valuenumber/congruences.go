package valuenumber

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/weft/internal/ic"
)

// Congruences is the value-numbering state for one scope.
type Congruences struct {
	logger  *slog.Logger
	prog    *ic.Program
	context string
	parent  *Congruences

	track    *ClosedVarTracker
	byValue  *CongruentSets
	byAlias  *CongruentSets
	assigned map[string]bool
	declared map[string]bool
}

// NewCongruences creates root state for optimizing the function named
// context. Every global constant of prog is known to hold its literal.
func NewCongruences(logger *slog.Logger, prog *ic.Program, context string) *Congruences {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Congruences{
		logger:   logger,
		prog:     prog,
		context:  context,
		track:    NewClosedVarTracker(),
		byValue:  NewCongruentSets(ic.CongValue),
		byAlias:  NewCongruentSets(ic.CongAlias),
		assigned: make(map[string]bool),
		declared: make(map[string]bool),
	}
	c.addGlobalConsts()
	return c
}

// addGlobalConsts records load(c) => literal for every global constant.
func (c *Congruences) addGlobalConsts() {
	if c.prog == nil {
		return
	}
	for _, name := range c.prog.GlobalConstNames() {
		val, _ := c.prog.LookupGlobalConst(name)
		v := ic.GlobalConstVar(name, val)
		c.byValue.AddValue(ic.NewCV(ic.OpLoad, "", ic.VarArg(v)).Key(), val)
	}
}

// EnterContinuation creates child state for a block entered at the
// parent's statement index stmtIndex.
func (c *Congruences) EnterContinuation(stmtIndex int) *Congruences {
	l := &Congruences{
		logger:   c.logger,
		prog:     c.prog,
		context:  c.context,
		parent:   c,
		track:    c.track.EnterContinuation(stmtIndex),
		byValue:  c.byValue.Child(),
		byAlias:  c.byAlias.Child(),
		assigned: make(map[string]bool),
		declared: make(map[string]bool),
	}
	l.addGlobalConsts()
	return l
}

// Declare makes vars accessible as replacements in this scope.
func (c *Congruences) Declare(vars ...*ic.Var) {
	for _, v := range vars {
		c.declared[v.Name] = true
	}
}

func (c *Congruences) accessible(v *ic.Var) bool {
	if v.Storage == ic.StorageGlobalConst {
		return true
	}
	for s := c; s != nil; s = s.parent {
		if s.declared[v.Name] {
			return true
		}
	}
	return false
}

func (c *Congruences) wasAssigned(key string) bool {
	for s := c; s != nil; s = s.parent {
		if s.assigned[key] {
			return true
		}
	}
	return false
}

func (c *Congruences) sets(typ ic.CongruenceType) *CongruentSets {
	if typ == ic.CongAlias {
		return c.byAlias
	}
	return c.byValue
}

// Update records the fact vl, established at stmtIndex.
func (c *Congruences) Update(vl ic.ValLoc, stmtIndex int) error {
	c.logger.Debug("congruence update", "fact", vl.String(), "type", vl.CongType().String())
	if vl.CongType() == ic.CongAlias {
		if err := c.update(c.byAlias, vl.Location, vl.Value, vl.IsAssign, true, stmtIndex); err != nil {
			return err
		}
	}
	// Closedness goes on the alias canonical before the value merge so a
	// closed var can be picked to represent the value.
	c.markClosedLoc(vl.Location, stmtIndex, vl.Closed)
	if err := c.update(c.byValue, vl.Location, vl.Value, vl.IsAssign, true, stmtIndex); err != nil {
		return err
	}
	return c.markAssigned(vl)
}

func (c *Congruences) update(sets *CongruentSets, location ic.Arg, value ic.ComputedValue,
	isAssign ic.IsAssign, addInverses bool, stmtIndex int) error {
	canonLoc := sets.FindArg(location)
	key, copyOf, isCopy := c.canonicalize(sets.Type(), value)

	if isCopy {
		if err := c.mergeSets(sets, value, copyOf, canonLoc, isAssign, stmtIndex); err != nil {
			return err
		}
	} else if existing, ok := sets.FindValue(key); ok {
		if err := c.mergeSets(sets, value, existing, canonLoc, isAssign, stmtIndex); err != nil {
			return err
		}
	} else {
		sets.AddValue(key, canonLoc)
	}

	if addInverses {
		return c.addInverses(value, canonLoc, stmtIndex)
	}
	return nil
}

// addInverses records facts implied by a store or load.
func (c *Congruences) addInverses(value ic.ComputedValue, canonLoc ic.Arg, stmtIndex int) error {
	if len(value.Inputs) != 1 {
		return nil
	}
	in := value.Inputs[0]
	switch value.Op {
	case ic.OpStore:
		// store(v) => x gives load(x) => v.
		if !canonLoc.IsVar() {
			return nil
		}
		return c.update(c.byValue, in, ic.NewCV(ic.OpLoad, "", canonLoc), ic.AssignNo, false, stmtIndex)
	case ic.OpLoad:
		// load(x) => v gives store(v) => x.
		return c.update(c.byValue, in, ic.NewCV(ic.OpStore, "", canonLoc), ic.AssignNo, false, stmtIndex)
	}
	return nil
}

// canonicalize resolves value's inputs to their canonical members. A copy
// collapses to the canonical member of its input.
func (c *Congruences) canonicalize(typ ic.CongruenceType, value ic.ComputedValue) (key string, copyOf ic.Arg, isCopy bool) {
	if value.IsCopy() {
		return "", c.sets(typ).FindArg(value.Inputs[0]), true
	}
	return c.canonicalValue(value).Key(), ic.Arg{}, false
}

func (c *Congruences) canonicalValue(value ic.ComputedValue) ic.ComputedValue {
	inputs := make([]ic.Arg, len(value.Inputs))
	for i, in := range value.Inputs {
		if value.CongType() == ic.CongAlias && i == 0 {
			inputs[i] = c.byAlias.FindArg(in)
		} else {
			inputs[i] = c.byValue.FindArg(in)
		}
	}
	if ic.BuiltinOp(value.Subop).IsCommutative() && len(inputs) == 2 &&
		(value.Op == ic.OpAsyncOp || value.Op == ic.OpLocalOp) &&
		inputs[1].Key() < inputs[0].Key() {
		inputs[0], inputs[1] = inputs[1], inputs[0]
	}
	return ic.ComputedValue{Op: value.Op, Subop: value.Subop, Inputs: inputs}
}

func (c *Congruences) mergeSets(sets *CongruentSets, value ic.ComputedValue, oldArg, newArg ic.Arg,
	newIsAssign ic.IsAssign, stmtIndex int) error {
	oldArg, newArg = sets.FindArg(oldArg), sets.FindArg(newArg)
	if oldArg.Equal(newArg) {
		return nil
	}
	if err := c.checkNoContradiction(sets.Type(), value, oldArg, newArg); err != nil {
		return err
	}
	winner, loser := c.preferred(sets, oldArg, newArg, newIsAssign, stmtIndex)
	if sets.Type() == ic.CongValue && loser.IsVar() && loser.Var.IsMapped() {
		// A mapped var's file name distinguishes it; never substitute for it.
		return nil
	}
	if sets.Type() == ic.CongAlias && winner.IsVar() && loser.IsVar() {
		// Keep closedness learned for the loser reachable from the winner.
		c.track.copyEntry(winner.Var, loser.Var, stmtIndex)
	}
	sets.Union(winner, loser)
	return nil
}

func (c *Congruences) checkNoContradiction(typ ic.CongruenceType, value ic.ComputedValue, a, b ic.Arg) error {
	if typ == ic.CongValue {
		if a.IsConst() && b.IsConst() && !a.Equal(b) {
			c.logger.Warn("conflicting values detected during optimization",
				"value", value.String(), "a", a.String(), "b", b.String(), "function", c.context)
			return newUnsafe(UnsafeConflictingValues, c.context, value.String(), "%s != %s", a, b)
		}
		return nil
	}
	if a.IsVar() && b.IsVar() && !a.Var.IsAlias() && !b.Var.IsAlias() && !a.Var.Equal(b.Var) {
		c.logger.Warn("conflicting aliases detected during optimization",
			"value", value.String(), "a", a.String(), "b", b.String(), "function", c.context)
		return newUnsafe(UnsafeConflictingAliases, c.context, value.String(), "%s and %s are distinct handles", a, b)
	}
	return nil
}

// isConst reports literals and global constant vars.
func isConst(a ic.Arg) bool {
	return a.IsConst() || a.Var.Storage == ic.StorageGlobalConst
}

// preferred picks the canonical member for the union of two sets.
// Replacing a closed var with a non-closed one would be unsound, so the
// order matters.
func (c *Congruences) preferred(sets *CongruentSets, oldArg, newArg ic.Arg,
	newIsAssign ic.IsAssign, stmtIndex int) (winner, loser ic.Arg) {
	if sets.Type() == ic.CongValue {
		if isConst(oldArg) {
			return oldArg, newArg
		}
		if isConst(newArg) {
			return newArg, oldArg
		}
		// A direct store to the new location is not substituted away.
		if newIsAssign == ic.AssignToValue {
			return newArg, oldArg
		}
	} else {
		if !oldArg.Var.IsAlias() {
			return oldArg, newArg
		}
		if !newArg.Var.IsAlias() {
			return newArg, oldArg
		}
	}

	if !c.accessible(oldArg.Var) && c.accessible(newArg.Var) {
		return newArg, oldArg
	}

	if sets.Type() == ic.CongValue {
		if c.IsRecClosed(newArg.Var, stmtIndex) && !c.IsRecClosed(oldArg.Var, stmtIndex) {
			return newArg, oldArg
		}
		if c.IsClosed(newArg.Var, stmtIndex) && !c.IsClosed(oldArg.Var, stmtIndex) {
			return newArg, oldArg
		}
	}
	return oldArg, newArg
}

func (c *Congruences) markAssigned(vl ic.ValLoc) error {
	var path []ic.Arg
	switch vl.IsAssign {
	case ic.AssignNo:
		return nil
	case ic.AssignToLocation:
		if !vl.Location.IsVar() {
			panic("markAssigned: cannot assign constant " + vl.Location.String())
		}
		path = []ic.Arg{vl.Location}
	case ic.AssignToValue:
		if vl.Value.Op != ic.OpArrayLookup || len(vl.Value.Inputs) != 2 {
			panic("markAssigned: cannot track assignment to " + vl.Value.String())
		}
		path = []ic.Arg{
			c.byAlias.FindArg(vl.Value.Inputs[0]),
			c.byValue.FindArg(vl.Value.Inputs[1]),
		}
	}
	key := assignKey(path)
	if c.wasAssigned(key) {
		printable := printablePath(path)
		c.logger.Warn("double assignment detected during optimization",
			"location", printable, "function", c.context)
		return newUnsafe(UnsafeDoubleAssignment, c.context, printable, "location written twice")
	}
	c.assigned[key] = true
	return nil
}

func assignKey(path []ic.Arg) string {
	keys := make([]string, len(path))
	for i, a := range path {
		keys[i] = a.Key()
	}
	return strings.Join(keys, "/")
}

func printablePath(path []ic.Arg) string {
	var sb strings.Builder
	sb.WriteString(path[0].String())
	for _, a := range path[1:] {
		sb.WriteString("[" + a.String() + "]")
	}
	return sb.String()
}

func trackClosed(v *ic.Var) bool {
	return !v.AlwaysClosed()
}

func (c *Congruences) canonicalAlias(v *ic.Var) *ic.Var {
	canon := c.byAlias.FindArg(ic.VarArg(v))
	if !canon.IsVar() {
		panic("alias congruence with constant canonical member: " + canon.String())
	}
	return canon.Var
}

// MarkClosed records that v is closed from stmtIndex on.
func (c *Congruences) MarkClosed(v *ic.Var, stmtIndex int, recursive bool) {
	if !trackClosed(v) {
		return
	}
	// A primitive future has no contents.
	recursive = recursive || v.Type.IsPrimFuture()
	c.track.Close(c.canonicalAlias(v), stmtIndex, recursive)
}

func (c *Congruences) markClosedLoc(location ic.Arg, stmtIndex int, closed ic.Closed) {
	if closed == ic.ClosedMaybeNot || !location.IsVar() {
		return
	}
	c.MarkClosed(location.Var, stmtIndex, closed == ic.ClosedYesRecursive)
}

// IsClosed reports whether v is known closed at stmtIndex.
func (c *Congruences) IsClosed(v *ic.Var, stmtIndex int) bool {
	return c.isClosed(v, stmtIndex, false)
}

// IsRecClosed reports whether v and everything it contains is known closed
// at stmtIndex.
func (c *Congruences) IsRecClosed(v *ic.Var, stmtIndex int) bool {
	return c.isClosed(v, stmtIndex, true)
}

// IsArgClosed is IsClosed for args; constants are always closed.
func (c *Congruences) IsArgClosed(a ic.Arg, stmtIndex int) bool {
	return a.IsConst() || c.IsClosed(a.Var, stmtIndex)
}

func (c *Congruences) isClosed(v *ic.Var, stmtIndex int, recursive bool) bool {
	if !trackClosed(v) {
		return true
	}
	canon := c.canonicalAlias(v)
	if c.track.IsClosed(canon, stmtIndex, recursive) {
		return true
	}
	// Closedness is recorded on whatever was canonical at the time; check
	// sets merged in since.
	for _, merged := range c.byAlias.AllMerged(ic.VarArg(canon)) {
		if !merged.IsVar() {
			continue
		}
		if c.track.IsClosed(merged.Var, stmtIndex, recursive) {
			c.track.copyEntry(canon, merged.Var, stmtIndex)
			return true
		}
	}
	return false
}

// ClosedSet returns the subset of vars known closed at stmtIndex.
func (c *Congruences) ClosedSet(vars []*ic.Var, stmtIndex int, recursive bool) ic.VarSet {
	out := ic.NewVarSet()
	for _, v := range vars {
		if c.isClosed(v, stmtIndex, recursive) {
			out.Add(v)
		}
	}
	return out
}

// ScopeClosed returns vars closed in this scope, including former
// canonicals merged into them here.
func (c *Congruences) ScopeClosed(recursiveOnly bool) []*ic.Var {
	vars := c.track.ScopeClosed(recursiveOnly)
	seen := ic.NewVarSet(vars...)
	for _, v := range vars {
		for _, m := range c.byAlias.MergedThisScope(ic.VarArg(v)) {
			if m.IsVar() && !seen.Has(m.Var) {
				seen.Add(m.Var)
			}
		}
	}
	return seen.Sorted()
}

// Replacements returns the renames in effect for read positions of the
// given congruence type.
func (c *Congruences) Replacements(typ ic.CongruenceType) ic.Renames {
	return c.sets(typ).Replacements(c.accessible)
}

// FindValue returns the canonical location of value, if known.
func (c *Congruences) FindValue(value ic.ComputedValue) (ic.Arg, bool) {
	if value.IsCopy() {
		return c.sets(value.CongType()).FindArg(value.Inputs[0]), true
	}
	return c.sets(value.CongType()).FindValue(c.canonicalValue(value).Key())
}

// FindRetrieveResult returns what a load from v would produce, if known.
func (c *Congruences) FindRetrieveResult(v *ic.Var) (ic.Arg, bool) {
	return c.FindValue(ic.NewCV(ic.OpLoad, "", ic.VarArg(v)))
}

// ConstantValue returns the literal held by a, if known. Literals hold
// themselves; futures hold what a load would produce.
func (c *Congruences) ConstantValue(a ic.Arg) (ic.Arg, bool) {
	if a.IsConst() {
		return a, true
	}
	if a.Var.Type.IsPrimValue() {
		canon := c.byValue.FindArg(a)
		return canon, canon.IsConst()
	}
	if a.Var.Type.IsPrimFuture() {
		if val, ok := c.FindRetrieveResult(a.Var); ok && val.IsConst() {
			return val, true
		}
	}
	return ic.Arg{}, false
}

// Dump renders the state for debug logging.
func (c *Congruences) Dump() string {
	var sb strings.Builder
	sb.WriteString(c.byAlias.String())
	sb.WriteString(c.byValue.String())
	closed := c.track.ScopeClosed(false)
	names := make([]string, len(closed))
	for i, v := range closed {
		names[i] = v.Name
	}
	sort.Strings(names)
	sb.WriteString("closed: " + strings.Join(names, ", ") + "\n")
	return sb.String()
}

// Replacement returns the canonical member that may stand in for v in read
// position, if it differs from v and is accessible here.
func (c *Congruences) Replacement(typ ic.CongruenceType, v *ic.Var) (ic.Arg, bool) {
	canon := c.sets(typ).FindArg(ic.VarArg(v))
	if canon.IsVar() && (canon.Var.Equal(v) || !c.accessible(canon.Var)) {
		return ic.Arg{}, false
	}
	return canon, true
}

// EnterLoop creates state for a loop body. Loop vars are rebound on every
// iteration, so nothing learned outside carries in except accessibility
// and prior assignments.
func (c *Congruences) EnterLoop() *Congruences {
	l := &Congruences{
		logger:   c.logger,
		prog:     c.prog,
		context:  c.context,
		parent:   c,
		track:    NewClosedVarTracker(),
		byValue:  NewCongruentSets(ic.CongValue),
		byAlias:  NewCongruentSets(ic.CongAlias),
		assigned: make(map[string]bool),
		declared: make(map[string]bool),
	}
	l.addGlobalConsts()
	return l
}
