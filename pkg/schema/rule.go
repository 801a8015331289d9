// Package schema implements the rule store and signer grammar (C2) and
// the schema-document interpreter (C4): parsing an INFO-style trust
// schema, resolving a packet's name to the rule that governs it, and
// walking the signer chain to decide whether a key locator is authorised.
package schema

import (
	"strconv"
	"strings"

	"trustschema/pkg/helper/errors"
	"trustschema/pkg/ndn"
	"trustschema/pkg/pattern"
)

// BackRef is one signer argument: either null (ignore this slot) or a $k
// reference into the owning rule's capture groups, k >= 1.
type BackRef struct {
	Index int
}

func (b BackRef) IsNull() bool { return b.Index == 0 }

// Signer is one alternative in a rule's signer alternation: "id(args)".
type Signer struct {
	ID   string
	Args []BackRef
}

// Rule pairs a name pattern with the signer alternation that may sign any
// name it matches (spec.md §3).
type Rule struct {
	ID      string
	Pattern *pattern.Pattern
	Signers []Signer
}

// Bind resolves one signer's argument list into concrete example Names:
// $k (k>=1) is group k-1 of bt, and null renders as a nil entry (an
// explicitly empty slot, never conflated with an unbound group). The
// signer grammar has no $0: parseBackRef rejects it and Index 0 marks null.
func (r *Rule) Bind(signer Signer, matched ndn.Name, bt *pattern.BackRefTable) ([]ndn.Name, error) {
	examples := make([]ndn.Name, len(signer.Args))
	for i, arg := range signer.Args {
		if arg.IsNull() {
			continue
		}
		v, err := pattern.ResolveBackRef(arg.Index, matched, bt)
		if err != nil {
			return nil, err
		}
		examples[i] = v
	}
	return examples, nil
}

// MaxBackRefIndex returns the highest capture-group index any signer of r
// refers to, used to validate a rule declares enough groups for its own
// signer arguments.
func (r *Rule) MaxBackRefIndex() int {
	max := 0
	for _, s := range r.Signers {
		for _, a := range s.Args {
			if a.Index > max {
				max = a.Index
			}
		}
	}
	return max
}

// ParseSigners parses the signer grammar: "id1(args1)|id2(args2)|…",
// whitespace ignored throughout, an empty argument list legal ("id()").
func ParseSigners(s string) ([]Signer, error) {
	compact := strings.Join(strings.Fields(s), "")
	if compact == "" {
		return nil, errors.Parsef("empty signer expression")
	}
	parts := strings.Split(compact, "|")
	signers := make([]Signer, 0, len(parts))
	for _, part := range parts {
		signer, err := parseOneSigner(part)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}
	return signers, nil
}

func parseOneSigner(s string) (Signer, error) {
	open := strings.IndexByte(s, '(')
	if open == -1 || !strings.HasSuffix(s, ")") {
		return Signer{}, errors.Parsef("malformed signer %q", s)
	}
	id := s[:open]
	if id == "" {
		return Signer{}, errors.Parsef("signer missing id in %q", s)
	}
	argsText := s[open+1 : len(s)-1]
	var args []BackRef
	if argsText != "" {
		for _, a := range strings.Split(argsText, ",") {
			br, err := parseBackRef(a)
			if err != nil {
				return Signer{}, err
			}
			args = append(args, br)
		}
	}
	return Signer{ID: id, Args: args}, nil
}

func parseBackRef(s string) (BackRef, error) {
	if s == "null" {
		return BackRef{Index: 0}, nil
	}
	if !strings.HasPrefix(s, "$") {
		return BackRef{}, errors.Parsef("invalid signer argument %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n <= 0 {
		return BackRef{}, errors.Parsef("invalid back-reference %q", s)
	}
	return BackRef{Index: n}, nil
}
