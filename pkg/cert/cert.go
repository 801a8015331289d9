// Package cert defines the certificate-record and signature shapes the
// schema engine consumes but does not itself decode: spec.md §6 names
// these abstractly ("a name; a public-key info blob; notBefore/notAfter
// bounds; a content-type marker for key") and leaves wire encoding out of
// scope. This package gives them a concrete, minimal Go shape so the rest
// of the engine has something to type-check against.
package cert

import (
	"time"

	"trustschema/pkg/ndn"
)

// ContentType distinguishes a certificate's payload kind. The engine only
// ever needs to tell a key apart from ordinary data.
type ContentType int

const (
	ContentTypeBlob ContentType = iota
	ContentTypeKey
)

// PublicKeyInfo is an opaque public-key blob. The core never parses its
// bytes; verification is delegated to a Verifier (see signature.go).
type PublicKeyInfo []byte

// Certificate is the subset of a certificate record the validator and the
// signing planner actually touch. A certificate is itself an NDN Data
// packet, so it carries its own Signature/SignedBytes: the validator must
// be able to chain into a fetched certificate's own signer just like any
// other packet (spec.md §4.6 step 7's "recurse").
type Certificate struct {
	Name        ndn.Name
	PublicKey   PublicKeyInfo
	NotBefore   time.Time
	NotAfter    time.Time
	ContentType ContentType
	Signature   Signature
	SignedBytes []byte
}

// IsKey reports whether this certificate carries a key (as opposed to
// ordinary application data — the planner never produces the latter, but
// a loaded anchor file conceivably could be malformed).
func (c *Certificate) IsKey() bool { return c.ContentType == ContentTypeKey }

// KeyName is the certificate name with its final component stripped:
// certificateName.prefix(-1), exactly the value spec.md §3 defines
// TrustAnchor.keyName to be.
func (c *Certificate) KeyName() ndn.Name { return c.Name.Prefix(-1) }

// ValidAt reports whether t falls within [NotBefore, NotAfter].
func (c *Certificate) ValidAt(t time.Time) bool {
	return !t.Before(c.NotBefore) && !t.After(c.NotAfter)
}
