package keygen

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"math/big"

	sigstoresig "github.com/sigstore/sigstore/pkg/signature"

	"trustschema/pkg/cert"
)

// publicKeyExponent is assumed for every RSA key this store ever
// generates — crypto/rsa.GenerateKey always produces 65537 — so
// reconstructing a signature.Verifier from the raw modulus bytes kept in
// PublicKeyInfo needs no separately carried exponent.
const publicKeyExponent = 65537

// Verifier implements validator.Verifier against sigstore's uniform
// Signer/Verifier wrapper, the same primitive the teacher's cosign
// integration uses to check container signatures regardless of key type.
type Verifier struct{}

func NewVerifier() *Verifier { return &Verifier{} }

func (v *Verifier) Verify(sig cert.Signature, signedBytes []byte, key cert.PublicKeyInfo) (bool, error) {
	verifier, err := verifierFor(sig.Info.Type, key)
	if err != nil {
		return false, err
	}
	if err := verifier.VerifySignature(bytes.NewReader(sig.Value), bytes.NewReader(signedBytes)); err != nil {
		return false, nil
	}
	return true, nil
}

func (v *Verifier) VerifyDigest(sig cert.Signature, signedBytes []byte) (bool, error) {
	want := sha256.Sum256(signedBytes)
	return bytes.Equal(sig.Value, want[:]), nil
}

func verifierFor(t cert.Type, key cert.PublicKeyInfo) (sigstoresig.Verifier, error) {
	switch t {
	case cert.Sha256WithEcdsa:
		x, y := elliptic.Unmarshal(elliptic.P256(), key)
		if x == nil {
			return nil, fmt.Errorf("invalid ecdsa public key bytes")
		}
		pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
		return sigstoresig.LoadECDSAVerifier(pub, crypto.SHA256)
	case cert.Sha256WithRsa:
		n := new(big.Int).SetBytes(key)
		pub := &rsa.PublicKey{N: n, E: publicKeyExponent}
		return sigstoresig.LoadRSAPKCS1v15Verifier(pub, crypto.SHA256)
	default:
		return nil, fmt.Errorf("unsupported signature type %q", t.String())
	}
}
