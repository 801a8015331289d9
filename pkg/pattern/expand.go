package pattern

import (
	"net/url"
	"strconv"
	"strings"

	"trustschema/pkg/helper/errors"
	"trustschema/pkg/ndn"
)

// expand renders a template — a concatenation of <literal> tokens, $k
// back-references, and a small set of named functions — into a concrete
// Name. $0 is the whole matched name; $1.. address capturing groups in
// declaration order.
//
// The named-function form ($keyless(...)) supplements the plain $k
// substitution grammar with the handful of helpers a real schema document
// needs beyond raw splicing, grounded on the original implementation's
// name-function module.
func expand(template string, name ndn.Name, bt *BackRefTable) (ndn.Name, error) {
	toks, err := parseExpandTemplate(template)
	if err != nil {
		return nil, err
	}
	var out ndn.Name
	for _, t := range toks {
		switch t.kind {
		case expandLiteral:
			out = append(out, ndn.Component(t.text))
		case expandBackRef:
			part, err := ResolveBackRef(t.index, name, bt)
			if err != nil {
				return nil, err
			}
			out = ndn.Concat(out, part)
		case expandFunc:
			part, err := callExpandFunction(t.name, t.args, name, bt)
			if err != nil {
				return nil, err
			}
			out = ndn.Concat(out, part)
		}
	}
	return out, nil
}

// ResolveBackRef resolves one $k reference against name ($0, the whole
// matched name) or bt ($k, k>=1, 0-based group k-1). It is exported so the
// schema package's signer-argument binding (rule.bind(signer.args) in the
// chain algorithm) can reuse the same resolution rule expand() uses.
func ResolveBackRef(idx int, name ndn.Name, bt *BackRefTable) (ndn.Name, error) {
	if idx == 0 {
		return name, nil
	}
	v, ok := bt.Get(idx - 1)
	if !ok {
		return nil, errors.ExpandRangef("back-reference $%d not bound", idx)
	}
	return v, nil
}

// callExpandFunction implements the small named-function table. Only
// $keyless is supported: given a full key name (.../KEY/<key-id>), it
// strips the trailing KEY/<key-id> pair to recover the owning identity
// name, the inverse of the planner's own deriveIdentityName.
func callExpandFunction(name string, args []string, matched ndn.Name, bt *BackRefTable) (ndn.Name, error) {
	switch name {
	case "keyless":
		if len(args) != 1 {
			return nil, errors.ExpandRangef("$keyless takes exactly one argument, got %d", len(args))
		}
		v, err := resolveBackRefArg(args[0], matched, bt)
		if err != nil {
			return nil, err
		}
		if len(v) >= 2 && string(v[len(v)-2]) == "KEY" {
			return v[:len(v)-2], nil
		}
		return v, nil
	default:
		return nil, errors.ExpandRangef("unknown expand function %q", name)
	}
}

func resolveBackRefArg(arg string, name ndn.Name, bt *BackRefTable) (ndn.Name, error) {
	if !strings.HasPrefix(arg, "$") {
		return nil, errors.ExpandRangef("function argument %q must be a back-reference", arg)
	}
	idx, err := strconv.Atoi(arg[1:])
	if err != nil {
		return nil, errors.ExpandRangef("invalid back-reference %q", arg)
	}
	return ResolveBackRef(idx, name, bt)
}

type expandTokKind int

const (
	expandLiteral expandTokKind = iota
	expandBackRef
	expandFunc
)

type expandTok struct {
	kind  expandTokKind
	text  string // expandLiteral: the decoded literal component value
	index int    // expandBackRef: 0 for $0, else the 1-based group number
	name  string // expandFunc: function name
	args  []string
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}

func parseExpandTemplate(s string) ([]expandTok, error) {
	var toks []expandTok
	i := 0
	for i < len(s) {
		switch s[i] {
		case '<':
			rel := strings.IndexByte(s[i+1:], '>')
			if rel == -1 {
				return nil, errors.ExpandRangef("unterminated literal token at offset %d", i)
			}
			end := i + 1 + rel
			content := s[i+1 : end]
			decoded, err := url.PathUnescape(content)
			if err != nil {
				return nil, errors.ExpandRangef("invalid literal token %q: %v", content, err)
			}
			toks = append(toks, expandTok{kind: expandLiteral, text: decoded})
			i = end + 1
		case '$':
			i++
			start := i
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				i++
			}
			if i > start {
				idx, err := strconv.Atoi(s[start:i])
				if err != nil {
					return nil, errors.ExpandRangef("invalid back-reference at offset %d", start)
				}
				toks = append(toks, expandTok{kind: expandBackRef, index: idx})
				continue
			}
			for i < len(s) && isAlnum(s[i]) {
				i++
			}
			if i == start {
				return nil, errors.ExpandRangef("invalid $ reference at offset %d", start)
			}
			fname := s[start:i]
			var args []string
			if i < len(s) && s[i] == '(' {
				rel := strings.IndexByte(s[i:], ')')
				if rel == -1 {
					return nil, errors.ExpandRangef("unterminated function arguments at offset %d", i)
				}
				argsText := s[i+1 : i+rel]
				if strings.TrimSpace(argsText) != "" {
					for _, a := range strings.Split(argsText, ",") {
						args = append(args, strings.TrimSpace(a))
					}
				}
				i += rel + 1
			}
			toks = append(toks, expandTok{kind: expandFunc, name: fname, args: args})
		default:
			return nil, errors.ExpandRangef("unexpected character %q at offset %d in expand template", s[i], i)
		}
	}
	return toks, nil
}
