// Package pattern implements the name-regex matcher: a bespoke pattern
// language operating over sequences of name components rather than
// characters. It is the core of the trust-schema engine — patterns chain
// rules to signers to anchors, and every hop of a certificate chain is
// authorised by a pattern match.
//
// A compiled Pattern is a tree of nodes grounded in ndn-cxx's own regex
// engine design: ComponentLiteral/ComponentRegex/ComponentSet leaves,
// Repeat and BackRefGroup combinators, and a PatternList sequencer under
// one Top wrapper that requires full consumption of the input name.
package pattern

import (
	"trustschema/pkg/helper/errors"
	"trustschema/pkg/ndn"
)

// node is the compiled representation of one pattern element. All
// matching, derivation and inference operations are expressed as methods
// over this interface so that PatternList can treat its children
// uniformly regardless of concrete shape.
type node interface {
	// id is a stable, compile-time-assigned identity used to memoize
	// candidateEnds within a single Match call.
	id() int

	// candidateEnds returns, sorted longest-first (greedy preference),
	// every end position e such that this node matches name[start:e],
	// without considering anything past limit.
	candidateEnds(ms *matchState, start, limit int) []int

	// bind walks a match already known to span name[start:end) (e must be
	// an element returned by candidateEnds(start, ...)) and records any
	// capturing-group bindings it contains into bt.
	bind(ms *matchState, start, end int, bt *BackRefTable)

	// derivePattern renders this node back to pattern source, substituting
	// bound groups in bt for their literal content.
	derivePattern(bt *BackRefTable) (string, error)
}

// Pattern is a compiled, immutable name-regex ready to match, derive, or
// infer against names. It is safe for concurrent use: matching is
// side-effect-free over the Pattern value itself, and per-call state lives
// in a fresh BackRefTable.
type Pattern struct {
	source string
	top    *topNode
	groups int // number of capturing groups, i.e. len(BackRefTable slots)
}

// Source returns the original pattern text this Pattern was compiled from.
func (p *Pattern) Source() string { return p.source }

// Groups returns the number of capturing groups declared by this pattern.
func (p *Pattern) Groups() int { return p.groups }

// BackRefTable accumulates capturing-group bindings produced by a Match,
// an explicit derive(examples), or an inferPattern call. Groups are
// addressed 0-based internally; the surface syntax's $1, $2, ... back-
// references are 1-based, translated at the edges (parser, expand,
// signer-arg resolution).
type BackRefTable struct {
	bound []ndn.Name
	set   []bool
}

func newBackRefTable(n int) *BackRefTable {
	return &BackRefTable{bound: make([]ndn.Name, n), set: make([]bool, n)}
}

// NewEmptyBackRefTable returns an all-unbound table of n slots. Deriving a
// pattern against it leaves every group rendered verbatim (each group's own
// derivePattern falls back to re-wrapping its inner source when unbound) —
// used when there is no concrete name to bind against yet, only a rule's
// own declared pattern structure.
func NewEmptyBackRefTable(n int) *BackRefTable { return newBackRefTable(n) }

// Set records the binding for group idx (0-based). Passing a nil Name
// records an explicit empty binding (the signer grammar's "null").
func (bt *BackRefTable) Set(idx int, value ndn.Name) {
	if idx < 0 || idx >= len(bt.bound) {
		return
	}
	bt.bound[idx] = value
	bt.set[idx] = true
}

// Get returns the bound Name for group idx and whether it was set.
func (bt *BackRefTable) Get(idx int) (ndn.Name, bool) {
	if idx < 0 || idx >= len(bt.bound) {
		return nil, false
	}
	return bt.bound[idx], bt.set[idx]
}

// Len returns the number of group slots this table holds.
func (bt *BackRefTable) Len() int { return len(bt.bound) }

// matchState threads per-call memoization through a single Match
// invocation; it never outlives one top-level match attempt.
type matchState struct {
	name ndn.Name
	memo map[memoKey][]int
}

type memoKey struct {
	node  int
	start int
}

func newMatchState(name ndn.Name) *matchState {
	return &matchState{name: name, memo: make(map[memoKey][]int)}
}

func (ms *matchState) ends(n node, start, limit int) []int {
	key := memoKey{node: n.id(), start: start}
	if cached, ok := ms.memo[key]; ok {
		return clampEnds(cached, limit)
	}
	computed := n.candidateEnds(ms, start, len(ms.name))
	ms.memo[key] = computed
	return clampEnds(computed, limit)
}

func clampEnds(ends []int, limit int) []int {
	out := ends[:0:0]
	for _, e := range ends {
		if e <= limit {
			out = append(out, e)
		}
	}
	return out
}

// Match reports whether the Pattern matches the entire given name.
func (p *Pattern) Match(name ndn.Name) bool {
	ms := newMatchState(name)
	for _, e := range ms.ends(p.top, 0, len(name)) {
		if e == len(name) {
			return true
		}
	}
	return false
}

// MatchBindings matches the pattern against name and, on success, returns
// the populated BackRefTable recording every capturing group's bound
// range. The second return is false if the pattern does not match.
func (p *Pattern) MatchBindings(name ndn.Name) (*BackRefTable, bool) {
	ms := newMatchState(name)
	ends := ms.ends(p.top, 0, len(name))
	found := false
	for _, e := range ends {
		if e == len(name) {
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}
	bt := newBackRefTable(p.groups)
	p.top.bind(ms, 0, len(name), bt)
	return bt, true
}

// MatchResult returns the full matched name: for a successful match this
// is simply the input name (Top always consumes it completely), mirroring
// the $0 back-reference used by expand().
func (p *Pattern) MatchResult(name ndn.Name) (ndn.Name, bool) {
	if !p.Match(name) {
		return nil, false
	}
	return name, true
}

// DerivePattern renders a fresh, concrete pattern string for this Pattern
// given already-bound back-references. Used both after a Match (project
// the pattern that was just matched) and after explicitly seeding a table
// from a signer's example arguments (project a candidate's pattern with
// its groups substituted).
func (p *Pattern) DerivePattern(bt *BackRefTable) (string, error) {
	return p.top.derivePattern(bt)
}

// DeriveWithExamples binds this Pattern's groups positionally to examples
// (group i ← examples[i]; a nil entry renders as an empty/dropped slot,
// the signer grammar's "null") and renders the resulting concrete pattern
// string. This is the operation the chain algorithm calls as
// `candidate.pattern.derive(examples)`.
func (p *Pattern) DeriveWithExamples(examples []ndn.Name) (string, error) {
	bt := newBackRefTable(p.groups)
	for i, ex := range examples {
		if i >= p.groups {
			break
		}
		bt.Set(i, ex)
	}
	return p.DerivePattern(bt)
}

// Expand renders template (a concatenation of <literal> tokens and $k
// back-references) into a concrete Name, using bt for $1.. and the whole
// matched name for $0.
func (p *Pattern) Expand(name ndn.Name, template string) (ndn.Name, error) {
	bt, ok := p.MatchBindings(name)
	if !ok {
		return nil, errors.Newf("pattern does not match name, cannot expand")
	}
	return expand(template, name, bt)
}

// InferPattern binds one example Name per capturing group (in declaration
// order), requiring each group's own sub-matcher to fully consume its
// example, then renders the resulting concrete pattern the same way
// DeriveWithExamples does. It fails with ErrInferMismatch if arities
// differ or an example is not fully matched by its group.
func (p *Pattern) InferPattern(examples []ndn.Name) (string, error) {
	if len(examples) != p.groups {
		return "", errors.InferMismatchf("pattern has %d groups, got %d examples", p.groups, len(examples))
	}
	bt := newBackRefTable(p.groups)
	for idx, group := range p.top.allGroups() {
		example := examples[idx]
		ms := newMatchState(example)
		ends := ms.ends(group.inner, 0, len(example))
		reached := false
		for _, e := range ends {
			if e == len(example) {
				reached = true
				break
			}
		}
		if !reached {
			return "", errors.InferMismatchf("group %d example %q not fully matched", idx+1, example.String())
		}
		group.inner.bind(ms, 0, len(example), bt)
		bt.Set(idx, example)
	}
	return p.DerivePattern(bt)
}
