package refcount

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/weft/internal/config"
	"github.com/roach88/weft/internal/ic"
)

// Stats counts what one run of Optimize did.
type Stats struct {
	Candidates  int
	Emitted     int
	Piggybacked int
	Cancelled   int64
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Candidates += o.Candidates
	s.Emitted += o.Emitted
	s.Piggybacked += o.Piggybacked
	s.Cancelled += o.Cancelled
}

// pending is one refcount change awaiting placement.
type pending struct {
	key    AliasKey
	owner  *ic.Var
	rc     ic.RefCountType
	dir    Dir
	amount int64 // always positive
	index  int   // original statement index
	slot   int   // emitted before fixed statement slot
}

func (c *pending) signed() int64 {
	if c.dir == DirDecr {
		return -c.amount
	}
	return c.amount
}

func (c *pending) group() string {
	return fmt.Sprintf("%s/%s/%s", c.key, c.rc, c.dir)
}

type pass struct {
	logger *slog.Logger
	opts   config.RefcountOptions
	stats  Stats
}

// Optimize rewrites the literal refcount instructions of every block in
// f according to opts. With every option off f is left untouched.
func Optimize(logger *slog.Logger, opts config.RefcountOptions, f *ic.Function) Stats {
	if !opts.Any() {
		return Stats{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &pass{logger: logger.With("pass", "refcount", "function", f.Name), opts: opts}
	p.block(f.MainBlock, nil)
	return p.stats
}

func (p *pass) block(b *ic.Block, parent *AliasTracker) {
	t := NewRCTracker(parent)
	for _, s := range b.Statements {
		if in, ok := s.(*ic.Instruction); ok {
			t.Update(in)
		}
	}

	var cands []*pending
	var fixed []ic.Statement
	var fixedIndex []int
	fixedBefore := make([]int, len(b.Statements))
	for i, s := range b.Statements {
		fixedBefore[i] = len(fixed)
		if in, ok := s.(*ic.Instruction); ok {
			if c := p.candidate(t, in, i); c != nil {
				cands = append(cands, c)
				continue
			}
		}
		fixed = append(fixed, s)
		fixedIndex = append(fixedIndex, i)
	}

	if len(cands) > 0 {
		p.stats.Candidates += len(cands)
		p.place(b, t, cands, fixed, fixedIndex, fixedBefore)
	}

	for _, c := range b.AllContinuations() {
		for _, blk := range c.Blocks() {
			if blk != nil {
				p.block(blk, t.Aliases())
			}
		}
	}
}

// candidate returns in as a pending change if the pass may move it.
func (p *pass) candidate(t *RCTracker, in *ic.Instruction, i int) *pending {
	if !in.Op.IsRefcount() {
		return nil
	}
	v, amount := in.RefcountTarget()
	if amount.Kind != ic.ArgInt || amount.Int <= 0 {
		return nil
	}
	rc, incr := ic.RefcountKind(in.Op)
	key := t.CountKey(v)
	owner := t.RefCountVar(key)
	if owner.IsAlias() || !ic.TrackRefCount(owner, rc) {
		return nil
	}
	if !p.opts.Merge && owner.Name != v.Name {
		return nil
	}
	dir := DirIncr
	if !incr {
		dir = DirDecr
	}
	return &pending{key: key, owner: owner, rc: rc, dir: dir, amount: amount.Int, index: i}
}

func (p *pass) place(b *ic.Block, t *RCTracker, cands []*pending, fixed []ic.Statement, fixedIndex, fixedBefore []int) {
	for _, c := range cands {
		t.IncrKey(c.key, c.rc, c.signed())
	}
	t.Canonicalize()
	for _, c := range cands {
		c.key = t.CountKey(c.owner)
	}

	if p.opts.Cancel {
		cands = p.cancel(b, t, cands)
	}
	if p.opts.Batch {
		cands = batch(cands)
	}

	end := len(fixed) - trailingTerminators(fixed)
	for _, c := range cands {
		c.slot = fixedBefore[c.index]
		if p.opts.Hoist {
			if c.dir == DirIncr {
				c.slot = 0
			} else {
				c.slot = end
			}
		}
	}
	for _, c := range cands {
		t.Cancel(c.key, c.rc, -c.signed())
	}
	if p.opts.Piggyback {
		cands = p.piggyback(b, fixed, cands)
	}
	if err := t.CheckZero(); err != nil {
		panic(fmt.Sprintf("refcount: counts left after emission in %s block: %v", b.Kind, err))
	}

	b.Statements = layout(fixed, cands)
	p.stats.Emitted += len(cands)
	p.logger.Debug("placed refcounts", "block", b.Kind.String(), "emitted", len(cands))
}

// cancel nets increments against decrements of the same key and kind,
// unless an increment protects a use that a later decrement releases.
func (p *pass) cancel(b *ic.Block, t *RCTracker, cands []*pending) []*pending {
	type pair struct{ incr, decr []*pending }
	groups := make(map[string]*pair)
	var order []string
	for _, c := range cands {
		g := fmt.Sprintf("%s/%s", c.key, c.rc)
		pr, ok := groups[g]
		if !ok {
			pr = &pair{}
			groups[g] = pr
			order = append(order, g)
		}
		if c.dir == DirIncr {
			pr.incr = append(pr.incr, c)
		} else {
			pr.decr = append(pr.decr, c)
		}
	}

	for _, g := range order {
		pr := groups[g]
		if len(pr.incr) == 0 || len(pr.decr) == 0 {
			continue
		}
		if protectsUse(b, pr.incr, pr.decr) {
			continue
		}
		m := min(total(pr.incr), total(pr.decr))
		key, rc := pr.incr[0].key, pr.incr[0].rc
		t.Cancel(key, rc, m)
		t.Cancel(key, rc, -m)
		p.stats.Cancelled += m
		p.logger.Debug("cancelled refcounts", "key", key.String(), "type", rc.String(), "amount", m)

		// Keep the earliest increments and the latest decrements.
		consume(pr.incr, m, true)
		consume(pr.decr, m, false)
	}

	out := cands[:0]
	for _, c := range cands {
		if c.amount > 0 {
			out = append(out, c)
		}
	}
	return out
}

func total(cs []*pending) int64 {
	var n int64
	for _, c := range cs {
		n += c.amount
	}
	return n
}

// consume removes m from cs, starting at the end when fromEnd is set.
func consume(cs []*pending, m int64, fromEnd bool) {
	for k := range cs {
		c := cs[k]
		if fromEnd {
			c = cs[len(cs)-1-k]
		}
		take := min(m, c.amount)
		c.amount -= take
		m -= take
		if m == 0 {
			return
		}
	}
}

// protectsUse reports an increment followed by a use of the owner and
// then a decrement.
func protectsUse(b *ic.Block, incr, decr []*pending) bool {
	names := map[string]bool{incr[0].owner.Name: true}
	first := incr[0].index
	for _, c := range incr {
		first = min(first, c.index)
	}
	last := -1
	for _, c := range decr {
		last = max(last, c.index)
	}
	for k := first + 1; k < last; k++ {
		if in, ok := b.Statements[k].(*ic.Instruction); ok && in.Op.IsRefcount() {
			continue
		}
		if statementUses(b.Statements[k], names) {
			return true
		}
	}
	return false
}

// batch combines changes of the same key, kind and direction into one.
// Increments take the earliest position and decrements the latest.
func batch(cands []*pending) []*pending {
	byGroup := make(map[string]*pending)
	var out []*pending
	for _, c := range cands {
		g := c.group()
		if first, ok := byGroup[g]; ok {
			first.amount += c.amount
			if c.dir == DirIncr {
				first.index = min(first.index, c.index)
			} else {
				first.index = max(first.index, c.index)
			}
			continue
		}
		byGroup[g] = c
		out = append(out, c)
	}
	return out
}

// piggyback moves a readers decrement onto the last load of its var when
// nothing after that load uses the var.
func (p *pass) piggyback(b *ic.Block, fixed []ic.Statement, cands []*pending) []*pending {
	consumed := make(map[*pending]bool)
	byOwner := make(map[string][]*pending)
	var owners []string
	for _, c := range cands {
		if c.rc != ic.RCReaders {
			continue
		}
		if _, ok := byOwner[c.owner.Name]; !ok {
			owners = append(owners, c.owner.Name)
		}
		byOwner[c.owner.Name] = append(byOwner[c.owner.Name], c)
	}

	for _, name := range owners {
		load := lastLoad(fixed, name)
		if load < 0 {
			continue
		}
		names := map[string]bool{name: true}
		if usedAfter(b, fixed, load, names) {
			continue
		}
		var decrs []*pending
		ok := true
		for _, c := range byOwner[name] {
			if c.slot <= load {
				continue
			}
			if c.dir != DirDecr {
				ok = false
				break
			}
			decrs = append(decrs, c)
		}
		if !ok || len(decrs) == 0 {
			continue
		}
		in := fixed[load].(*ic.Instruction)
		for _, c := range decrs {
			in.Decr += c.amount
			consumed[c] = true
		}
		p.stats.Piggybacked += len(decrs)
		p.logger.Debug("piggybacked decrement", "var", name, "load", in.String())
	}

	out := cands[:0]
	for _, c := range cands {
		if !consumed[c] {
			out = append(out, c)
		}
	}
	return out
}

func lastLoad(fixed []ic.Statement, name string) int {
	for k := len(fixed) - 1; k >= 0; k-- {
		in, ok := fixed[k].(*ic.Instruction)
		if ok && in.Op == ic.OpLoad && in.Inputs[0].Var.Name == name {
			return k
		}
	}
	return -1
}

func usedAfter(b *ic.Block, fixed []ic.Statement, k int, names map[string]bool) bool {
	for _, s := range fixed[k+1:] {
		if statementUses(s, names) {
			return true
		}
	}
	for _, c := range b.Continuations {
		if continuationUses(c, names) {
			return true
		}
	}
	for _, cu := range b.Cleanups {
		if names[cu.Var.Name] || instructionUses(cu.Action, names) {
			return true
		}
	}
	return false
}

func trailingTerminators(fixed []ic.Statement) int {
	n := 0
	for k := len(fixed) - 1; k >= 0; k-- {
		in, ok := fixed[k].(*ic.Instruction)
		if !ok || (in.Op != ic.OpLoopContinue && in.Op != ic.OpLoopBreak) {
			break
		}
		n++
	}
	return n
}

// layout interleaves pending changes with the fixed statements.
func layout(fixed []ic.Statement, cands []*pending) []ic.Statement {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].slot != cands[j].slot {
			return cands[i].slot < cands[j].slot
		}
		return cands[i].index < cands[j].index
	})
	out := make([]ic.Statement, 0, len(fixed)+len(cands))
	k := 0
	for slot := 0; slot <= len(fixed); slot++ {
		for ; k < len(cands) && cands[k].slot == slot; k++ {
			c := cands[k]
			op := ic.RefcountOpcode(c.rc, c.dir == DirIncr)
			out = append(out, ic.Refcount(op, c.owner, ic.IntArg(c.amount)))
		}
		if slot < len(fixed) {
			out = append(out, fixed[slot])
		}
	}
	return out
}

func statementUses(s ic.Statement, names map[string]bool) bool {
	switch s := s.(type) {
	case *ic.Instruction:
		return instructionUses(s, names)
	case ic.Continuation:
		return continuationUses(s, names)
	}
	return false
}

func instructionUses(in *ic.Instruction, names map[string]bool) bool {
	return anyNamed(in.InputVars(), names) || anyNamed(in.Outputs, names)
}

func continuationUses(c ic.Continuation, names map[string]bool) bool {
	header := func(c ic.Continuation) bool {
		return anyNamed(c.RequiredVars(false), names) ||
			anyNamed(c.PassedVars(), names) ||
			anyNamed(c.KeepOpenVars(), names)
	}
	if header(c) {
		return true
	}
	found := false
	v := ic.Visitor{
		Instruction: func(in *ic.Instruction) {
			found = found || instructionUses(in, names)
		},
		Continuation: func(c ic.Continuation) {
			found = found || header(c)
		},
	}
	for _, blk := range c.Blocks() {
		if blk != nil {
			ic.Walk(blk, v)
		}
	}
	return found
}

func anyNamed(vars []*ic.Var, names map[string]bool) bool {
	for _, v := range vars {
		if v != nil && names[v.Name] {
			return true
		}
	}
	return false
}
