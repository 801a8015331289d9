package pattern

import (
	"regexp"
	"strings"

	"trustschema/pkg/ndn"
)

// regexNode matches exactly one component whose URI-escaped form matches a
// character-level regex. A plain literal token like <ucla> is simply a
// regex with no metacharacters, so literal and regex tokens share this one
// node type, the way ndn-cxx's own ComponentMatcher does.
type regexNode struct {
	nid    int
	source string
	re     *regexp.Regexp
}

func (n *regexNode) id() int { return n.nid }

func (n *regexNode) candidateEnds(ms *matchState, start, limit int) []int {
	if start >= len(ms.name) {
		return nil
	}
	if n.re.MatchString(ms.name[start].String()) {
		return []int{start + 1}
	}
	return nil
}

func (n *regexNode) bind(ms *matchState, start, end int, bt *BackRefTable) {}

func (n *regexNode) derivePattern(bt *BackRefTable) (string, error) {
	return "<" + n.source + ">", nil
}

// wildcardNode is the bare <> token: matches any single component.
type wildcardNode struct {
	nid int
}

func (n *wildcardNode) id() int { return n.nid }

func (n *wildcardNode) candidateEnds(ms *matchState, start, limit int) []int {
	if start >= len(ms.name) {
		return nil
	}
	return []int{start + 1}
}

func (n *wildcardNode) bind(ms *matchState, start, end int, bt *BackRefTable) {}

func (n *wildcardNode) derivePattern(bt *BackRefTable) (string, error) { return "<>", nil }

// setMember is one alternative inside a ComponentSet, compiled the same way
// a standalone component token is.
type setMember struct {
	source string
	re     *regexp.Regexp
}

// setNode is a positive or negated union of component matchers: [<a><b>]
// or [^<a><b>].
type setNode struct {
	nid     int
	negate  bool
	members []setMember
}

func (n *setNode) id() int { return n.nid }

func (n *setNode) candidateEnds(ms *matchState, start, limit int) []int {
	if start >= len(ms.name) {
		return nil
	}
	s := ms.name[start].String()
	matched := false
	for _, m := range n.members {
		if m.re.MatchString(s) {
			matched = true
			break
		}
	}
	if n.negate {
		matched = !matched
	}
	if matched {
		return []int{start + 1}
	}
	return nil
}

func (n *setNode) bind(ms *matchState, start, end int, bt *BackRefTable) {}

func (n *setNode) derivePattern(bt *BackRefTable) (string, error) {
	var b strings.Builder
	b.WriteByte('[')
	if n.negate {
		b.WriteByte('^')
	}
	for _, m := range n.members {
		b.WriteByte('<')
		b.WriteString(m.source)
		b.WriteByte('>')
	}
	b.WriteByte(']')
	return b.String(), nil
}

// repeatNode wraps inner with a {min,max} repetition count; max == -1 means
// unbounded (the "*" and "+" quantifiers).
type repeatNode struct {
	nid    int
	inner  node
	min    int
	max    int
	suffix string
}

func (n *repeatNode) id() int { return n.nid }

// candidateEnds explores increasing repetition counts breadth-first,
// requiring each repetition to make forward progress (e > p) so a
// zero-width inner match cannot loop forever. Since every step strictly
// advances position and position is bounded by len(name), this always
// terminates even when max is unbounded.
func (n *repeatNode) candidateEnds(ms *matchState, start, limit int) []int {
	var results []int
	if n.min <= 0 {
		results = append(results, start)
	}
	current := map[int]bool{start: true}
	reps := 0
	for len(current) > 0 {
		if n.max != -1 && reps >= n.max {
			break
		}
		reps++
		next := map[int]bool{}
		for p := range current {
			for _, e := range ms.ends(n.inner, p, limit) {
				if e > p {
					next[e] = true
				}
			}
		}
		if len(next) == 0 {
			break
		}
		current = next
		if reps >= n.min {
			for p := range current {
				results = append(results, p)
			}
		}
	}
	return dedupeDescending(results)
}

func (n *repeatNode) bind(ms *matchState, start, end int, bt *BackRefTable) {
	n.bindFrom(ms, start, end, 0, bt)
}

// bindFrom binds in chronological repetition order (earliest repetition
// first), so that when the same group sits inside the repeated element,
// its last iteration is the last bind call and therefore the one whose
// value survives — the usual backtracking-regex convention.
func (n *repeatNode) bindFrom(ms *matchState, pos, end, reps int, bt *BackRefTable) bool {
	if pos == end && reps >= n.min {
		return true
	}
	if n.max != -1 && reps >= n.max {
		return false
	}
	for _, e := range ms.ends(n.inner, pos, end) {
		if e <= pos {
			continue
		}
		n.inner.bind(ms, pos, e, bt)
		if n.bindFrom(ms, e, end, reps+1, bt) {
			return true
		}
	}
	return false
}

func (n *repeatNode) derivePattern(bt *BackRefTable) (string, error) {
	inner, err := n.inner.derivePattern(bt)
	if err != nil {
		return "", err
	}
	return inner + n.suffix, nil
}

// groupNode is a capturing group, (...) in pattern source. idx is its
// 0-based position in declaration order, matching $<idx+1> back-references.
type groupNode struct {
	nid   int
	inner node
	idx   int
}

func (n *groupNode) id() int { return n.nid }

func (n *groupNode) candidateEnds(ms *matchState, start, limit int) []int {
	return ms.ends(n.inner, start, limit)
}

func (n *groupNode) bind(ms *matchState, start, end int, bt *BackRefTable) {
	bt.Set(n.idx, ms.name.Sub(start, end))
	n.inner.bind(ms, start, end, bt)
}

// derivePattern renders a bound group as the literal, escaped expansion of
// its bound example (dropping the group syntax entirely — the derived
// pattern no longer needs to capture what it was only just told). An
// unbound group (no Match/derive-with-examples ever reached it) falls back
// to its original, still-parenthesized source.
func (n *groupNode) derivePattern(bt *BackRefTable) (string, error) {
	if bt != nil {
		if value, ok := bt.Get(n.idx); ok {
			return renderLiteralName(value), nil
		}
	}
	inner, err := n.inner.derivePattern(bt)
	if err != nil {
		return "", err
	}
	return "(" + inner + ")", nil
}

// listNode is a sequence of sibling elements matched in order.
type listNode struct {
	nid      int
	children []node
}

func (n *listNode) id() int { return n.nid }

func (n *listNode) candidateEnds(ms *matchState, start, limit int) []int {
	current := map[int]bool{start: true}
	for _, child := range n.children {
		next := map[int]bool{}
		for p := range current {
			for _, e := range ms.ends(child, p, limit) {
				next[e] = true
			}
		}
		current = next
		if len(current) == 0 {
			break
		}
	}
	results := make([]int, 0, len(current))
	for p := range current {
		results = append(results, p)
	}
	return dedupeDescending(results)
}

func (n *listNode) bind(ms *matchState, start, end int, bt *BackRefTable) {
	n.bindFrom(ms, 0, start, end, bt)
}

func (n *listNode) bindFrom(ms *matchState, idx, pos, end int, bt *BackRefTable) bool {
	if idx == len(n.children) {
		return pos == end
	}
	child := n.children[idx]
	for _, e := range ms.ends(child, pos, end) {
		if n.bindFrom(ms, idx+1, e, end, bt) {
			child.bind(ms, pos, e, bt)
			return true
		}
	}
	return false
}

func (n *listNode) derivePattern(bt *BackRefTable) (string, error) {
	var b strings.Builder
	for _, child := range n.children {
		s, err := child.derivePattern(bt)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// topNode is the whole compiled pattern. It adds nothing to matching beyond
// its single list child; it exists to anchor the group declaration order
// used by inferPattern and to give Pattern a stable root to hold onto.
type topNode struct {
	nid        int
	inner      *listNode
	groupsList []*groupNode
}

func (n *topNode) id() int { return n.nid }

func (n *topNode) candidateEnds(ms *matchState, start, limit int) []int {
	return n.inner.candidateEnds(ms, start, limit)
}

func (n *topNode) bind(ms *matchState, start, end int, bt *BackRefTable) {
	n.inner.bind(ms, start, end, bt)
}

func (n *topNode) derivePattern(bt *BackRefTable) (string, error) {
	return n.inner.derivePattern(bt)
}

func (n *topNode) allGroups() []*groupNode { return n.groupsList }

func dedupeDescending(vals []int) []int {
	seen := make(map[int]bool, len(vals))
	out := vals[:0:0]
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] < out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

const reservedPatternChars = `.[]{}()*+?|^$\`

// renderLiteralName renders a Name as a sequence of <component> tokens
// suitable for splicing back into pattern source, escaping any reserved
// pattern metacharacter found in a component's URI-escaped text.
func renderLiteralName(name ndn.Name) string {
	var b strings.Builder
	for _, c := range name {
		b.WriteByte('<')
		b.WriteString(escapeComponentLiteral(c.String()))
		b.WriteByte('>')
	}
	return b.String()
}

func escapeComponentLiteral(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(reservedPatternChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
