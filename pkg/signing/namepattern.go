package signing

import (
	"net/url"
	"strings"

	"trustschema/pkg/helper/errors"
	"trustschema/pkg/ndn"
)

// patternToken is one top-level <...> element of a fully-derived pattern
// string together with whatever quantifier suffix follows it. By the time
// the planner sees a derived pattern, every group back-reference has
// already been resolved to literal components (or left as a bare <>
// wildcard) — there are no nested groups, sets, or character regexes left
// to parse, just a flat run of component tokens.
type patternToken struct {
	body  string
	quant string
}

func (t patternToken) isWildcard() bool { return t.body == "" }

// splitPatternTokens walks a derived pattern string left to right,
// splitting it into its top-level <...> tokens. It does not need the full
// generality of pkg/pattern's compiler (groups, sets, character regexes)
// since derivation has already flattened those away.
func splitPatternTokens(src string) ([]patternToken, error) {
	var toks []patternToken
	i := 0
	for i < len(src) {
		if src[i] != '<' {
			return nil, errors.Parsef("derived pattern %q: expected '<' at offset %d", src, i)
		}
		j := i + 1
		var body strings.Builder
		for j < len(src) && src[j] != '>' {
			if src[j] == '\\' && j+1 < len(src) {
				body.WriteByte(src[j+1])
				j += 2
				continue
			}
			body.WriteByte(src[j])
			j++
		}
		if j >= len(src) {
			return nil, errors.Parsef("derived pattern %q: unterminated token starting at %d", src, i)
		}
		tok := patternToken{body: body.String()}
		k := j + 1
		switch {
		case k < len(src) && (src[k] == '*' || src[k] == '+' || src[k] == '?'):
			tok.quant = string(src[k])
			k++
		case k < len(src) && src[k] == '{':
			end := strings.IndexByte(src[k:], '}')
			if end < 0 {
				return nil, errors.Parsef("derived pattern %q: unterminated quantifier at %d", src, k)
			}
			tok.quant = src[k : k+end+1]
			k += end + 1
		}
		toks = append(toks, tok)
		i = k
	}
	return toks, nil
}

// findKeyBoundary locates the <KEY> marker spec.md §4.7 step 4 uses to
// split a derived pattern into an identity-name prefix and a
// key-specifier tail (<ksk...>, <dsk...>, <ID-CERT>, <><><>, or <>*).
func findKeyBoundary(toks []patternToken) (prefix, tail []patternToken, found bool) {
	for i, t := range toks {
		if t.body == "KEY" {
			return toks[:i], toks[i:], true
		}
	}
	return nil, nil, false
}

// isKSKTail reports whether the key-specifier tail names a
// key-signing-key convention (<ksk...>) as opposed to a data-signing-key
// or plain identity-certificate one.
func isKSKTail(tail []patternToken) bool {
	for _, t := range tail {
		if strings.HasPrefix(strings.ToLower(t.body), "ksk") {
			return true
		}
	}
	return false
}

// unescapeComponentLiteral reverses pkg/pattern's escapeComponentLiteral:
// a backslash in a rendered literal token only ever precedes one of the
// reserved pattern metacharacters, so removing it is unambiguous.
func unescapeComponentLiteral(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
		escaped = false
	}
	return b.String()
}

// concretizeName turns a run of prefix tokens into an actual Name: a
// literal token's body is the component's URI-escaped text (as rendered
// by pkg/pattern's renderLiteralName), so it is unescaped and then
// percent-decoded back into raw octets; a bare <> wildcard — the
// "residual <>" spec.md §4.7 step 4(c) describes — is replaced by a
// freshly generated component, since a concrete identity name cannot
// contain an unbound slot.
func concretizeName(toks []patternToken, randomComponent func() ndn.Component) (ndn.Name, error) {
	name := make(ndn.Name, 0, len(toks))
	for _, t := range toks {
		if t.isWildcard() {
			name = append(name, randomComponent())
			continue
		}
		raw, err := url.PathUnescape(unescapeComponentLiteral(t.body))
		if err != nil {
			return nil, errors.Decodef("cannot decode pattern literal %q: %v", t.body, err)
		}
		name = append(name, ndn.Component(raw))
	}
	return name, nil
}
