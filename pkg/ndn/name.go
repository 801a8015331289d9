// Package ndn provides the hierarchical name data model shared by the
// pattern matcher, the schema interpreter, and the validator: an ordered
// sequence of opaque octet-string components.
package ndn

import (
	"bytes"
	"net/url"
	"strings"
)

// Component is one opaque element of a Name. Components compare and order
// by their raw octets; there is no implied text encoding.
type Component []byte

// Equal reports whether two components hold identical octets.
func (c Component) Equal(other Component) bool {
	return bytes.Equal(c, other)
}

// Compare returns -1, 0, or 1 the way bytes.Compare does, giving names a
// well-defined total order.
func (c Component) Compare(other Component) int {
	return bytes.Compare(c, other)
}

func (c Component) String() string {
	return url.PathEscape(string(c))
}

// Name is an ordered sequence of components. The empty Name is valid and
// represents the root.
type Name []Component

// ParseName decodes a "/"-separated URI-style name, where each component is
// percent-escaped individually. A leading or trailing "/" is ignored, so
// both "/a/b" and "a/b/" parse to the same two-component name. The root
// name is the empty string.
func ParseName(uri string) (Name, error) {
	uri = strings.Trim(uri, "/")
	if uri == "" {
		return Name{}, nil
	}
	parts := strings.Split(uri, "/")
	name := make(Name, 0, len(parts))
	for _, p := range parts {
		decoded, err := url.PathUnescape(p)
		if err != nil {
			return nil, err
		}
		name = append(name, Component(decoded))
	}
	return name, nil
}

// String renders the name back to its URI form.
func (n Name) String() string {
	if len(n) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, c := range n {
		b.WriteByte('/')
		b.WriteString(c.String())
	}
	return b.String()
}

// Equal reports whether two names hold the same component sequence.
func (n Name) Equal(other Name) bool {
	if len(n) != len(other) {
		return false
	}
	for i := range n {
		if !n[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Compare orders names lexicographically by component, the way NDN names
// compare: a strict prefix sorts before any name it is a prefix of.
func (n Name) Compare(other Name) int {
	for i := 0; i < len(n) && i < len(other); i++ {
		if c := n[i].Compare(other[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(n) < len(other):
		return -1
	case len(n) > len(other):
		return 1
	default:
		return 0
	}
}

// IsPrefixOf reports whether n is a prefix (not necessarily strict) of other.
func (n Name) IsPrefixOf(other Name) bool {
	if len(n) > len(other) {
		return false
	}
	for i := range n {
		if !n[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Prefix returns the first k components of n. A negative k counts back
// from the end, mirroring ndn-cxx's Name::getPrefix(-1) idiom used by
// TrustAnchor.KeyName (the certificate name with its final component
// stripped).
func (n Name) Prefix(k int) Name {
	if k < 0 {
		k = len(n) + k
	}
	if k < 0 {
		k = 0
	}
	if k > len(n) {
		k = len(n)
	}
	out := make(Name, k)
	copy(out, n[:k])
	return out
}

// Sub returns the sub-sequence n[begin:end]. Out-of-range bounds are
// clamped rather than panicking, since the matcher probes ranges
// speculatively while backtracking.
func (n Name) Sub(begin, end int) Name {
	if begin < 0 {
		begin = 0
	}
	if end > len(n) {
		end = len(n)
	}
	if begin > end {
		begin = end
	}
	out := make(Name, end-begin)
	copy(out, n[begin:end])
	return out
}

// Append returns a new name with extra components appended, leaving n
// untouched.
func (n Name) Append(extra ...Component) Name {
	out := make(Name, 0, len(n)+len(extra))
	out = append(out, n...)
	out = append(out, extra...)
	return out
}

// Concat joins a sequence of names into one, used by inferPattern to turn
// a per-group example list into one flat name to match against.
func Concat(names ...Name) Name {
	total := 0
	for _, n := range names {
		total += len(n)
	}
	out := make(Name, 0, total)
	for _, n := range names {
		out = append(out, n...)
	}
	return out
}
