// Package validator implements the validator state machine (C6): given a
// Data packet or a signed Interest, decide whether a chain of
// certificates connects its signing key back to a trust anchor, with
// every hop authorised by the loaded schema.
package validator

import (
	"time"

	"trustschema/pkg/cert"
	"trustschema/pkg/ndn"
)

// MinSignedInterestLength is the minimum name length (in components) a
// signed Interest must carry: the signature-info and signature-value
// components appended to the application name (spec.md §4.6 step 2).
const MinSignedInterestLength = 2

// Packet is the decoded shape the validator evaluates. Wire decoding is
// an external concern (spec.md §1); callers are expected to have already
// parsed a packet's SignatureInfo/SignatureValue (for an Interest, from
// its last two name components) before calling Validate.
type Packet struct {
	Name ndn.Name
	// IsInterest distinguishes a signed Interest from a Data packet; only
	// Interests carry a replay-relevant Timestamp and are subject to the
	// MinSignedInterestLength precondition.
	IsInterest bool
	Signature  cert.Signature
	// SignedBytes is the portion of the packet actually covered by
	// Signature — opaque to the validator, handed straight to Verifier.
	SignedBytes []byte
	// Timestamp is the signed Interest's embedded timestamp. Ignored for
	// Data packets.
	Timestamp time.Time
}

// certPacket wraps a fetched certificate as a Packet so it can be run
// back through validateStep — a certificate is itself Data, signed by
// its own issuer, and must satisfy the same chain rules as anything else.
func certPacket(c *cert.Certificate) Packet {
	return Packet{
		Name:        c.Name,
		IsInterest:  false,
		Signature:   c.Signature,
		SignedBytes: c.SignedBytes,
	}
}
