package cert

import "trustschema/pkg/ndn"

// Type enumerates the signature policies a sig-req block may allow.
type Type int

const (
	DigestSha256 Type = iota
	Sha256WithRsa
	Sha256WithEcdsa
)

func (t Type) String() string {
	switch t {
	case DigestSha256:
		return "digest-sha256"
	case Sha256WithRsa:
		return "rsa"
	case Sha256WithEcdsa:
		return "ecdsa"
	default:
		return "unknown"
	}
}

// ParseType parses the sig-req document's "signing" alternation tokens
// ("rsa", "ecdsa", "digest-sha256").
func ParseType(s string) (Type, bool) {
	switch s {
	case "rsa", "sha256-with-rsa":
		return Sha256WithRsa, true
	case "ecdsa", "sha256-with-ecdsa":
		return Sha256WithEcdsa, true
	case "digest-sha256", "digest":
		return DigestSha256, true
	default:
		return 0, false
	}
}

// Info is the decoded signature metadata embedded in a packet: its type
// and, for key-based types, the key-locator name.
type Info struct {
	Type       Type
	KeyLocator ndn.Name
}

// Signature bundles the decoded Info with the raw bytes and the signing
// key's size — the only key-material property the security-level table
// (spec.md §4.4) ever inspects.
type Signature struct {
	Info    Info
	Value   []byte
	KeyBits int    // RSA modulus or ECDSA curve size, in bits; 0 for DigestSha256
	Curve   string // ECDSA curve name (e.g. "P-256"); empty unless Sha256WithEcdsa
}
