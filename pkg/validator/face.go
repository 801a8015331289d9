package validator

import (
	"context"

	"trustschema/pkg/cert"
	"trustschema/pkg/ndn"
)

// Face is the network I/O collaborator (spec.md §6): express an Interest
// for a key-locator name and get back the certificate it resolves to.
// The source models this as onData/onTimeout callbacks; Go's idiomatic
// equivalent is a context-bounded call returning (result, error), which
// is what every blocking collaborator in this codebase looks like.
type Face interface {
	ExpressInterest(ctx context.Context, keyLocatorName ndn.Name) (*cert.Certificate, error)
}

// Verifier performs the cryptographic check itself. Crypto primitives are
// out of scope for the core (spec.md §1); the validator only orchestrates
// which key and which bytes get checked against which signature.
type Verifier interface {
	// Verify checks sig against signedBytes using the given public key.
	Verify(sig cert.Signature, signedBytes []byte, key cert.PublicKeyInfo) (bool, error)
	// VerifyDigest checks a DigestSha256 signature directly, without a key.
	VerifyDigest(sig cert.Signature, signedBytes []byte) (bool, error)
}
