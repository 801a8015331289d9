package schema

import (
	"strconv"
	"strings"
	"time"

	"trustschema/pkg/helper/errors"
)

// The schema document format is INFO-style: nested key -> value blocks.
//   any true
//   rule { id "pkt" name "(<>*)<ucla>(<>)<cs><><>*" signer "k1($1,$2)" }
//   anchor { id "k1" name "<ndn><edu><ucla><KEY><1>" file "ucla.cert" refresh "1h" }
//   sig-req { hash "sha-256" signing "rsa|ecdsa" key-size "112" }
// Key ordering within a rule or anchor block is significant (spec.md §4.2):
// id -> name -> signer for rules; id -> name -> (file|base64) -> optional
// refresh for anchors. Any other ordering, a missing key, or a trailing key
// is a load-time Parse error.

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokLBrace
	tokRBrace
)

type token struct {
	kind tokenKind
	text string
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

func lex(s string) ([]token, error) {
	var toks []token
	i, n := 0, len(s)
	for i < n {
		c := s[i]
		switch {
		case isSpace(c):
			i++
		case c == '#':
			for i < n && s[i] != '\n' {
				i++
			}
		case c == '{':
			toks = append(toks, token{tokLBrace, "{"})
			i++
		case c == '}':
			toks = append(toks, token{tokRBrace, "}"})
			i++
		case c == '"':
			j := i + 1
			var b strings.Builder
			for j < n && s[j] != '"' {
				if s[j] == '\\' && j+1 < n {
					b.WriteByte(s[j+1])
					j += 2
					continue
				}
				b.WriteByte(s[j])
				j++
			}
			if j >= n {
				return nil, errors.Parsef("unterminated string literal")
			}
			toks = append(toks, token{tokString, b.String()})
			i = j + 1
		default:
			j := i
			for j < n && !isSpace(s[j]) && s[j] != '{' && s[j] != '}' && s[j] != '"' && s[j] != '#' {
				j++
			}
			if j == i {
				return nil, errors.Parsef("unexpected character %q", string(c))
			}
			toks = append(toks, token{tokIdent, s[i:j]})
			i = j
		}
	}
	return toks, nil
}

// kv is one key/string-value pair inside a block, in the order it
// appeared — block validation depends on that order.
type kv struct{ key, value string }

type blockDecl struct{ pairs []kv }

type document struct {
	anySet        bool
	anyValue      bool
	rules         []blockDecl
	interestRules []blockDecl
	anchors       []blockDecl
	sigReq        []kv
}

func parseDocument(toks []token) (*document, error) {
	doc := &document{}
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.kind != tokIdent {
			return nil, errors.Parsef("expected a top-level keyword, got %q", t.text)
		}
		switch t.text {
		case "any":
			i++
			if i >= len(toks) || toks[i].kind != tokIdent {
				return nil, errors.Parsef("any requires true or false")
			}
			switch toks[i].text {
			case "true":
				doc.anyValue = true
			case "false":
				doc.anyValue = false
			default:
				return nil, errors.Parsef("invalid any value %q", toks[i].text)
			}
			doc.anySet = true
			i++
		case "rule", "interest-rule", "anchor", "sig-req":
			blockType := t.text
			i++
			block, next, err := parseBlock(toks, i)
			if err != nil {
				return nil, err
			}
			i = next
			switch blockType {
			case "rule":
				doc.rules = append(doc.rules, block)
			case "interest-rule":
				doc.interestRules = append(doc.interestRules, block)
			case "anchor":
				doc.anchors = append(doc.anchors, block)
			case "sig-req":
				doc.sigReq = block.pairs
			}
		default:
			return nil, errors.Parsef("unknown top-level key %q", t.text)
		}
	}
	return doc, nil
}

func parseBlock(toks []token, i int) (blockDecl, int, error) {
	if i >= len(toks) || toks[i].kind != tokLBrace {
		return blockDecl{}, i, errors.Parsef("expected '{'")
	}
	i++
	var pairs []kv
	for i < len(toks) && toks[i].kind != tokRBrace {
		if toks[i].kind != tokIdent {
			return blockDecl{}, i, errors.Parsef("expected a key, got %q", toks[i].text)
		}
		key := toks[i].text
		i++
		if i >= len(toks) || toks[i].kind != tokString {
			return blockDecl{}, i, errors.Parsef("expected a string value for key %q", key)
		}
		pairs = append(pairs, kv{key: key, value: toks[i].text})
		i++
	}
	if i >= len(toks) {
		return blockDecl{}, i, errors.Parsef("unterminated block")
	}
	i++ // consume '}'
	return blockDecl{pairs: pairs}, i, nil
}

// expectOrder validates a block declares exactly the given keys, in
// exactly that order, and returns them as a map for convenience.
func (b blockDecl) expectOrder(keys ...string) (map[string]string, error) {
	if len(b.pairs) != len(keys) {
		return nil, errors.Parsef("expected keys %v, got %d entries", keys, len(b.pairs))
	}
	out := make(map[string]string, len(keys))
	for i, want := range keys {
		if b.pairs[i].key != want {
			return nil, errors.Parsef("expected key %q at position %d, got %q", want, i, b.pairs[i].key)
		}
		out[want] = b.pairs[i].value
	}
	return out, nil
}

// anchorFields validates an anchor block's id -> name -> (file|base64) ->
// optional refresh ordering.
func (b blockDecl) anchorFields() (id, name, file, base64Data, refresh string, err error) {
	if len(b.pairs) < 3 {
		return "", "", "", "", "", errors.Parsef("anchor block requires at least id, name, file or base64")
	}
	if b.pairs[0].key != "id" || b.pairs[1].key != "name" {
		return "", "", "", "", "", errors.Parsef("anchor block must begin with id, name")
	}
	id = b.pairs[0].value
	name = b.pairs[1].value
	switch b.pairs[2].key {
	case "file":
		file = b.pairs[2].value
	case "base64":
		base64Data = b.pairs[2].value
	default:
		return "", "", "", "", "", errors.Parsef("anchor block's third key must be file or base64, got %q", b.pairs[2].key)
	}
	switch len(b.pairs) {
	case 3:
	case 4:
		if b.pairs[3].key != "refresh" {
			return "", "", "", "", "", errors.Parsef("anchor block's fourth key must be refresh, got %q", b.pairs[3].key)
		}
		refresh = b.pairs[3].value
	default:
		return "", "", "", "", "", errors.Parsef("anchor block has trailing keys")
	}
	return id, name, file, base64Data, refresh, nil
}

// parseRefreshDuration parses the "<N><unit>" refresh grammar; N == 0
// means "use the default", 3600 seconds.
func parseRefreshDuration(s string) (time.Duration, error) {
	if s == "" {
		return 3600 * time.Second, nil
	}
	unit := s[len(s)-1]
	numPart := s[:len(s)-1]
	n, err := strconv.Atoi(numPart)
	if err != nil {
		return 0, errors.Parsef("invalid refresh duration %q: %v", s, err)
	}
	if n == 0 {
		return 3600 * time.Second, nil
	}
	switch unit {
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 's':
		return time.Duration(n) * time.Second, nil
	default:
		return 0, errors.Parsef("invalid refresh unit %q", string(unit))
	}
}
