package signing

import (
	"fmt"
	"time"

	"trustschema/pkg/cert"
	"trustschema/pkg/helper/errors"
	"trustschema/pkg/helper/log"
	"trustschema/pkg/metrics"
	"trustschema/pkg/ndn"
	"trustschema/pkg/schema"
)

// KeyAlgorithm selects which key-pair generator entry point the planner
// calls for a freshly materialised identity.
type KeyAlgorithm int

const (
	RSA KeyAlgorithm = iota
	ECDSA
)

// Config bounds the planner's key-material choices. The schema itself
// never states an algorithm (spec.md leaves RSA vs ECDSA, key size, and
// curve a deployment decision made once per trust domain).
type Config struct {
	Algorithm  KeyAlgorithm
	MinRSABits int
	ECDSACurve string
	// ValidityPeriod is how long a freshly issued intermediate
	// certificate is valid for. spec.md's Open Question 2 flags the
	// source's own computation of this as uninitialised/buggy
	// (`notAfter + days(365)` from a zero value); the fix is to compute
	// it from notBefore, which is what this field feeds.
	ValidityPeriod time.Duration
	Subject        []SubjectDescription
}

// DefaultConfig mirrors spec.md Open Question 2's fix: a fresh
// certificate is valid for 365 days from its own notBefore, not from
// whatever notAfter happened to hold beforehand.
func DefaultConfig() Config {
	return Config{
		Algorithm:      RSA,
		MinRSABits:     2048,
		ECDSACurve:     "P-256",
		ValidityPeriod: 365 * 24 * time.Hour,
	}
}

// Planner is the DFS signing-chain constructor of C7.
type Planner struct {
	log     log.Logger
	schema  *schema.Interpreter
	keygen  KeyGenerator
	cfg     Config
	metrics *metrics.Registry

	counter int
	chain   []ndn.Name
}

func New(logger log.Logger, schemaInterp *schema.Interpreter, keygen KeyGenerator, cfg Config) *Planner {
	return &Planner{log: logger, schema: schemaInterp, keygen: keygen, cfg: cfg}
}

// SetMetrics attaches a metrics registry after construction.
func (p *Planner) SetMetrics(r *metrics.Registry) { p.metrics = r }

// ChainNames returns the certificate names materialised by the most
// recent Sign call, in root-to-leaf order. Design note §9: the source
// clears this list at the start of every sign() call, which this package
// does too (see Sign).
func (p *Planner) ChainNames() []ndn.Name { return p.chain }

type chainStep struct {
	signerID string
	pattern  string
	isAnchor bool
}

// Sign materialises whatever identities are missing between packet's name
// and a trust anchor, then signs packet with the resulting leaf key.
func (p *Planner) Sign(packet *cert.Certificate, now time.Time) error {
	if err := p.sign(packet, now); err != nil {
		if p.metrics != nil {
			p.metrics.RecordSignOperation("failure", 0)
		}
		return err
	}
	if p.metrics != nil {
		p.metrics.RecordSignOperation("success", len(p.chain))
	}
	return nil
}

func (p *Planner) sign(packet *cert.Certificate, now time.Time) error {
	p.chain = nil
	p.counter = 0

	chain, err := p.deriveChain(packet.Name)
	if err != nil {
		return err
	}
	reverseChainSteps(chain) // root-down, per spec.md §4.7 step 4

	anchor := chain[0]
	if !anchor.isAnchor {
		return errors.NoChainf("signing chain for %q does not terminate at a trust anchor", packet.Name.String())
	}
	anchorCert, ok := p.schema.GetCertificate(nil, anchor.signerID)
	if !ok {
		return errors.NoChainf("trust anchor %q has no certificate on file", anchor.signerID)
	}
	signerKeyName := anchorCert.KeyName()
	signerCertName := anchorCert.Name

	for _, step := range chain[1:] {
		identity, isKSK, err := p.deriveIdentityName(step.pattern, now)
		if err != nil {
			return err
		}

		var keyName ndn.Name
		switch p.cfg.Algorithm {
		case ECDSA:
			keyName, err = p.keygen.GenerateECDSAKeyPairAsDefault(identity, isKSK, p.cfg.ECDSACurve)
		default:
			keyName, err = p.keygen.GenerateRSAKeyPairAsDefault(identity, isKSK, p.cfg.MinRSABits)
		}
		if err != nil {
			return err
		}

		notBefore := now
		notAfter := notBefore.Add(p.cfg.ValidityPeriod) // Open Question 2 fix: derived from notBefore, not a stale notAfter
		intermediate, err := p.keygen.PrepareUnsignedIdentityCertificate(keyName, signerKeyName, notBefore, notAfter, p.cfg.Subject)
		if err != nil {
			return err
		}
		if err := p.keygen.Sign(intermediate, signerCertName); err != nil {
			return err
		}
		if err := p.keygen.AddCertificateAsIdentityDefault(intermediate); err != nil {
			return err
		}

		p.chain = append(p.chain, intermediate.Name)
		signerKeyName, signerCertName = keyName, intermediate.Name
	}

	return p.keygen.Sign(packet, signerCertName)
}

// deriveChain implements spec.md §4.7 steps 1-3: a depth-first walk from
// name's own signer candidates up through rule-to-rule references until
// one reaches a trust anchor, backtracking on dead ends and refusing to
// revisit a pattern already on the current path.
func (p *Planner) deriveChain(name ndn.Name) ([]chainStep, error) {
	candidates, err := p.schema.DeriveSignerPatternFromName(name)
	if err != nil {
		return nil, err
	}
	for i, c := range candidates {
		if chain, ok := p.extendChain(c, nil); ok {
			return chain, nil
		}
		if i < len(candidates)-1 && p.metrics != nil {
			p.metrics.RecordSignBacktrack()
		}
	}
	return nil, errors.NoChainf("no signer chain for %q reaches a trust anchor", name.String())
}

func (p *Planner) extendChain(c schema.SignerDerivation, seen []string) ([]chainStep, bool) {
	for _, s := range seen {
		if s == c.Pattern {
			return nil, false
		}
	}
	seen = append(seen, c.Pattern)
	step := chainStep{signerID: c.SignerID, pattern: c.Pattern}

	if p.schema.IsAnchorID(c.SignerID) {
		step.isAnchor = true
		return []chainStep{step}, true
	}

	candidates, err := p.schema.DerivePatternFromRuleID(c.SignerID)
	if err != nil {
		return nil, false
	}
	for i, next := range candidates {
		if rest, ok := p.extendChain(next, seen); ok {
			return append([]chainStep{step}, rest...), true
		}
		if i < len(candidates)-1 && p.metrics != nil {
			p.metrics.RecordSignBacktrack()
		}
	}
	return nil, false
}

func reverseChainSteps(s []chainStep) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// deriveIdentityName implements spec.md §4.7 step 4(a-c) and fixes Open
// Question 1: the source computes the identity-name prefix in a local
// variable declared separately in every branch of an if/else-if chain, so
// it never escapes to the scope that actually uses it and the prefix
// silently comes out empty. Here the prefix is returned directly from the
// one function that computes it, so there is no outer scope for it to
// fail to escape to.
func (p *Planner) deriveIdentityName(derivedPattern string, now time.Time) (ndn.Name, bool, error) {
	toks, err := splitPatternTokens(derivedPattern)
	if err != nil {
		return nil, false, err
	}
	prefix, tail, found := findKeyBoundary(toks)
	if !found {
		return nil, false, errors.NoChainf("derived pattern %q has no <KEY> boundary", derivedPattern)
	}
	identity, err := concretizeName(prefix, func() ndn.Component { return p.randomComponent(now) })
	if err != nil {
		return nil, false, err
	}
	return identity, isKSKTail(tail), nil
}

// randomComponent fabricates a component from the current wall clock
// (spec.md §4.7 step 4(c)), with a per-call counter so two residual <>
// slots materialised within the same Sign call never collide even if the
// clock doesn't advance between them.
func (p *Planner) randomComponent(now time.Time) ndn.Component {
	p.counter++
	return ndn.Component(fmt.Sprintf("%x-%d", now.UnixNano(), p.counter))
}
