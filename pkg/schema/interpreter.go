package schema

import (
	"encoding/base64"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"trustschema/pkg/anchor"
	"trustschema/pkg/cert"
	"trustschema/pkg/helper/errors"
	"trustschema/pkg/helper/log"
	"trustschema/pkg/ndn"
	"trustschema/pkg/pattern"
)

// SignerDerivation is one (signerId, derivedPattern) pair produced by
// DeriveSignerPatternFromName / DerivePatternFromRuleID — the signing
// planner's raw material for walking the chain (spec.md §4.7).
type SignerDerivation struct {
	SignerID string
	Pattern  string
}

// candidate unifies a Rule's or a TrustAnchor's pattern behind the one
// operation the chain algorithm needs: deriving a concrete pattern given
// example Names for its groups.
type candidate struct {
	pat *pattern.Pattern
}

func (c candidate) derive(examples []ndn.Name) (string, error) {
	return c.pat.DeriveWithExamples(examples)
}

// Interpreter is the schema engine's query surface (C4): load a document,
// check a signature against the configured requirement, and decide
// whether a key locator authorises a data or interest name via the chain
// algorithm.
type Interpreter struct {
	log           log.Logger
	anchors       *anchor.Container
	dataRules     *Store
	interestRules *Store
	requirement   *Requirement
	anyMode       bool
	baseDir       string
}

func NewInterpreter(logger log.Logger, anchors *anchor.Container) *Interpreter {
	return &Interpreter{
		log:           logger,
		anchors:       anchors,
		dataRules:     NewStore(),
		interestRules: NewStore(),
		requirement:   NewRequirement(),
	}
}

func (in *Interpreter) DataRules() *Store     { return in.dataRules }
func (in *Interpreter) InterestRules() *Store { return in.interestRules }
func (in *Interpreter) AnyMode() bool         { return in.anyMode }

// Load parses a schema document and replaces all rule/anchor/requirement
// state. It always starts from reset(); a parse failure leaves the
// interpreter empty rather than partially loaded.
func (in *Interpreter) Load(input string, filename string) (err error) {
	in.reset()
	defer func() {
		if err != nil {
			in.reset()
		}
	}()
	in.baseDir = filepath.Dir(filename)

	toks, err := lex(input)
	if err != nil {
		return err
	}
	doc, err := parseDocument(toks)
	if err != nil {
		return err
	}
	if doc.anySet {
		in.anyMode = doc.anyValue
	}
	for _, b := range doc.rules {
		if err := in.loadRule(in.dataRules, b); err != nil {
			return err
		}
	}
	for _, b := range doc.interestRules {
		if err := in.loadRule(in.interestRules, b); err != nil {
			return err
		}
	}
	for _, b := range doc.anchors {
		if err := in.loadAnchor(b); err != nil {
			return err
		}
	}
	if doc.sigReq != nil {
		if err := in.loadSigReq(doc.sigReq); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) reset() {
	in.dataRules.Reset()
	in.interestRules.Reset()
	in.anchors.Reset()
	in.requirement = NewRequirement()
	in.anyMode = false
}

func (in *Interpreter) loadRule(store *Store, b blockDecl) error {
	fields, err := b.expectOrder("id", "name", "signer")
	if err != nil {
		return err
	}
	p, err := pattern.Compile(fields["name"])
	if err != nil {
		return err
	}
	signers, err := ParseSigners(fields["signer"])
	if err != nil {
		return err
	}
	rule := &Rule{ID: fields["id"], Pattern: p, Signers: signers}
	if rule.MaxBackRefIndex() > p.Groups() {
		return errors.Parsef("rule %q: signer refers to group %d but pattern only declares %d", rule.ID, rule.MaxBackRefIndex(), p.Groups())
	}
	return store.Add(rule)
}

func (in *Interpreter) loadAnchor(b blockDecl) error {
	id, name, file, base64Data, refresh, err := b.anchorFields()
	if err != nil {
		return err
	}
	p, err := pattern.Compile(name)
	if err != nil {
		return err
	}
	a := &anchor.TrustAnchor{ID: id, Pattern: p}
	switch {
	case file != "":
		a.Kind = anchor.Dynamic
		a.FilePath = filepath.Join(in.baseDir, file)
		period, err := parseRefreshDuration(refresh)
		if err != nil {
			return err
		}
		a.RefreshPeriod = period
		c, err := in.anchors.Reader().ReadCertificate(a.FilePath)
		if err != nil {
			return errors.Loadf("anchor %q: %v", id, err)
		}
		a.Certificate = c
		a.KeyName = c.KeyName()
		a.LastRefresh = time.Now()
	case base64Data != "":
		a.Kind = anchor.Static
		raw, err := base64.StdEncoding.DecodeString(base64Data)
		if err != nil {
			return errors.Loadf("anchor %q: invalid base64 certificate: %v", id, err)
		}
		c, err := in.anchors.Reader().DecodeCertificate(raw)
		if err != nil {
			return errors.Loadf("anchor %q: %v", id, err)
		}
		a.Certificate = c
		a.KeyName = c.KeyName()
	default:
		return errors.Parsef("anchor %q: neither file nor base64 given", id)
	}
	return in.anchors.Insert(a)
}

func (in *Interpreter) loadSigReq(pairs []kv) error {
	req := NewRequirement()
	seen := make(map[string]bool)
	for _, p := range pairs {
		if seen[p.key] {
			return errors.Parsef("duplicate sig-req key %q", p.key)
		}
		seen[p.key] = true
		switch p.key {
		case "hash":
			if p.value != "sha-256" {
				return errors.Parsef("unsupported sig-req hash %q", p.value)
			}
		case "signing":
			for _, tok := range strings.Split(p.value, "|") {
				t, ok := cert.ParseType(strings.TrimSpace(tok))
				if !ok {
					return errors.Parsef("unknown signing policy %q", tok)
				}
				req.Policies[t] = true
			}
		case "key-size":
			n, err := strconv.Atoi(p.value)
			if err != nil {
				return errors.Parsef("invalid key-size %q: %v", p.value, err)
			}
			req.MinKeyBits = n
		case "curves":
			req.AllowedCurves = strings.Split(p.value, "|")
		default:
			return errors.Parsef("unknown sig-req key %q", p.key)
		}
	}
	in.requirement = req
	return nil
}

// CheckSignature applies the configured Requirement to sig.
func (in *Interpreter) CheckSignature(sig cert.Signature) bool {
	return in.requirement.Check(sig)
}

// CheckDataRule decides whether keyLocatorName may sign name, by walking
// the data-rule chain algorithm (spec.md §4.4).
func (in *Interpreter) CheckDataRule(name, keyLocatorName ndn.Name) (bool, error) {
	return in.checkRule(in.dataRules, name, keyLocatorName)
}

// CheckInterestRule is structurally identical to CheckDataRule but starts
// from the interest-rule population; both resolve signer references
// against data-rules and anchors, never against interest-rules (a signed
// Interest's own immediate signer is the only interest-rule hop — every
// certificate above it is ordinary Data, governed by data-rules).
func (in *Interpreter) CheckInterestRule(name, keyLocatorName ndn.Name) (bool, error) {
	return in.checkRule(in.interestRules, name, keyLocatorName)
}

func (in *Interpreter) checkRule(store *Store, name, keyLocatorName ndn.Name) (bool, error) {
	if in.anyMode {
		return true, nil
	}
	matchedAny := false
	for _, rule := range store.Ordered() {
		bt, ok := rule.Pattern.MatchBindings(name)
		if !ok {
			continue
		}
		matchedAny = true
		for _, signer := range rule.Signers {
			examples, err := rule.Bind(signer, name, bt)
			if err != nil {
				return false, err
			}
			for _, c := range in.resolveSignerID(signer.ID) {
				derivedSrc, err := c.derive(examples)
				if err != nil {
					continue
				}
				derived, err := pattern.Compile(derivedSrc)
				if err != nil {
					continue
				}
				if derived.Match(keyLocatorName) {
					return true, nil
				}
			}
		}
	}
	if !matchedAny {
		return false, errors.NoRulef("no rule matches name %q", name.String())
	}
	return false, errors.NoChainf("no signer chain for name %q authorises key %q", name.String(), keyLocatorName.String())
}

// resolveSignerID implements invariant 1 of spec.md §3: a signer's id
// resolves first to a data-rule, then a static or dynamic anchor — tried
// in that order, but exhaustively (both are returned if both exist), so a
// schema may declare an intermediate-CA rule and a root anchor
// independently under the same id.
func (in *Interpreter) resolveSignerID(id string) []candidate {
	var out []candidate
	if rule, ok := in.dataRules.ByID(id); ok {
		out = append(out, candidate{pat: rule.Pattern})
	}
	if a, ok := in.anchors.ByID(id); ok {
		out = append(out, candidate{pat: a.Pattern})
	}
	return out
}

// DeriveSignerPatternFromName is the signing planner's step 1 (spec.md
// §4.7): for the first data-rule matching name, return every
// (signerId, derivedPattern) pair its signer alternation offers.
func (in *Interpreter) DeriveSignerPatternFromName(name ndn.Name) ([]SignerDerivation, error) {
	for _, rule := range in.dataRules.Ordered() {
		bt, ok := rule.Pattern.MatchBindings(name)
		if !ok {
			continue
		}
		return in.deriveForSigners(rule, name, bt)
	}
	return nil, errors.NoRulef("no rule matches name %q", name.String())
}

// DerivePatternFromRuleID continues the planner's walk one level up the
// chain from a rule id instead of a concrete name (spec.md §4.7 step 3).
// There is no packet name to match at this point — only the rule's own
// declared pattern — so its groups are left unbound. A signer with no
// arguments, or only null ones, still derives from each candidate's own
// pattern; a $k argument has nothing bound to it here, so the call fails
// with ExpandRange. No concrete name substitution happens at this level.
func (in *Interpreter) DerivePatternFromRuleID(ruleID string) ([]SignerDerivation, error) {
	rule, ok := in.dataRules.ByID(ruleID)
	if !ok {
		return nil, errors.NoChainf("no rule with id %q", ruleID)
	}
	bt := pattern.NewEmptyBackRefTable(rule.Pattern.Groups())
	return in.deriveForSigners(rule, nil, bt)
}

func (in *Interpreter) deriveForSigners(rule *Rule, matched ndn.Name, bt *pattern.BackRefTable) ([]SignerDerivation, error) {
	var out []SignerDerivation
	for _, signer := range rule.Signers {
		examples, err := rule.Bind(signer, matched, bt)
		if err != nil {
			return nil, err
		}
		for _, c := range in.resolveSignerID(signer.ID) {
			derived, err := c.derive(examples)
			if err != nil {
				continue
			}
			out = append(out, SignerDerivation{SignerID: signer.ID, Pattern: derived})
		}
	}
	return out, nil
}

// GetCertificate looks an anchor's certificate up by key-locator name,
// falling back to a rule/anchor id when the caller has one (the signing
// planner's terminal-anchor check).
func (in *Interpreter) GetCertificate(keyLocatorName ndn.Name, ruleOrAnchorID string) (*cert.Certificate, bool) {
	if keyLocatorName != nil {
		if a, ok := in.anchors.ByKeyName(keyLocatorName); ok {
			return a.Certificate, true
		}
	}
	if ruleOrAnchorID != "" {
		if a, ok := in.anchors.ByID(ruleOrAnchorID); ok {
			return a.Certificate, true
		}
	}
	return nil, false
}

// IsAnchorID reports whether id names a trust anchor — the signing
// planner's chain-termination test (spec.md §4.7 step 2).
func (in *Interpreter) IsAnchorID(id string) bool {
	_, ok := in.anchors.ByID(id)
	return ok
}
