// Package signing implements the signing planner (C7): given a packet
// whose name is to be signed under a loaded schema, it walks the rule
// graph to a trust anchor, materialising whatever intermediate
// identities/certificates are missing so the resulting packet validates.
package signing

import (
	"time"

	"trustschema/pkg/cert"
	"trustschema/pkg/ndn"
)

// SubjectDescription is one attribute of an identity certificate's
// subject-name block (spec.md §6's "subject[]" argument to
// prepareUnsignedIdentityCertificate) — kept as an opaque type/value pair
// since the core never interprets subject attributes itself.
type SubjectDescription struct {
	Type  string
	Value string
}

// KeyGenerator is the external collaborator that owns key material
// (spec.md §6): the planner never generates, stores, or touches a private
// key itself, only decides which identities need one and in what order
// they must be signed.
type KeyGenerator interface {
	GenerateRSAKeyPairAsDefault(identity ndn.Name, isKSK bool, minBits int) (ndn.Name, error)
	GenerateECDSAKeyPairAsDefault(identity ndn.Name, isKSK bool, curve string) (ndn.Name, error)
	PrepareUnsignedIdentityCertificate(keyName ndn.Name, signerKeyName ndn.Name, notBefore, notAfter time.Time, subject []SubjectDescription) (*cert.Certificate, error)
	Sign(c *cert.Certificate, certName ndn.Name) error
	AddCertificateAsIdentityDefault(c *cert.Certificate) error
}
