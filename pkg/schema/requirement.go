package schema

import "trustschema/pkg/cert"

// minRSABytesForLevel maps a declared minKeyBits to the RSA modulus byte
// length the security-level table (spec.md §4.4) requires:
// [112,128) -> 256, [128,192) -> 384, [192,256) -> 960, >=256 -> 1920.
// ECDSA key sizes are never checked; DigestSha256 carries no key at all.
func minRSABytesForLevel(minKeyBits int) int {
	switch {
	case minKeyBits >= 256:
		return 1920
	case minKeyBits >= 192:
		return 960
	case minKeyBits >= 128:
		return 384
	case minKeyBits >= 112:
		return 256
	default:
		return 0
	}
}

// Requirement is the sig-req block: a set of allowed signature policies
// (evaluated by membership, not declaration order) plus the RSA minimum
// key-size bound.
type Requirement struct {
	Policies map[cert.Type]bool
	MinKeyBits int
	// AllowedCurves optionally restricts accepted ECDSA curve names.
	// Empty means accept any curve — the documented default, since
	// ECDSA key sizes are not checked. Supplemented from the original
	// signature-requirement module's curve allow-list, which the
	// distilled spec omits.
	AllowedCurves []string
}

func NewRequirement() *Requirement {
	return &Requirement{Policies: make(map[cert.Type]bool)}
}

func (r *Requirement) Allows(t cert.Type) bool { return r.Policies[t] }

// Check implements checkSignature (spec.md §4.4): the signature's type
// must be in Policies, and for RSA its key size must clear the security-
// level table for MinKeyBits.
func (r *Requirement) Check(sig cert.Signature) bool {
	if !r.Allows(sig.Info.Type) {
		return false
	}
	switch sig.Info.Type {
	case cert.Sha256WithRsa:
		return sig.KeyBits/8 >= minRSABytesForLevel(r.MinKeyBits)
	case cert.Sha256WithEcdsa:
		if len(r.AllowedCurves) == 0 {
			return true
		}
		for _, c := range r.AllowedCurves {
			if c == sig.Curve {
				return true
			}
		}
		return false
	case cert.DigestSha256:
		return true
	default:
		return false
	}
}
