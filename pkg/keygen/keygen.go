// Package keygen provides a concrete KeyGenerator (for pkg/signing) and
// Verifier (for pkg/validator) pair backed by sigstore's signature
// primitives — the same library the teacher's cosign integration wraps
// for uniform Signer/Verifier handling across key types.
package keygen

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	sigstoresig "github.com/sigstore/sigstore/pkg/signature"

	"trustschema/pkg/cert"
	"trustschema/pkg/ndn"
	"trustschema/pkg/signing"
)

// KeyStore generates and retains private key material for identities the
// signing planner materialises, and signs certificates/packets with it on
// request. It implements signing.KeyGenerator.
type KeyStore struct {
	curve elliptic.Curve

	mu   sync.Mutex
	keys map[string]crypto.PrivateKey // keyed by key name
}

func NewKeyStore() *KeyStore {
	return &KeyStore{curve: elliptic.P256(), keys: map[string]crypto.PrivateKey{}}
}

func (k *KeyStore) curveFor(name string) elliptic.Curve {
	switch name {
	case "P-384":
		return elliptic.P384()
	case "P-521":
		return elliptic.P521()
	default:
		return elliptic.P256()
	}
}

func (k *KeyStore) GenerateRSAKeyPairAsDefault(identity ndn.Name, isKSK bool, minBits int) (ndn.Name, error) {
	priv, err := rsa.GenerateKey(rand.Reader, minBits)
	if err != nil {
		return nil, fmt.Errorf("generating rsa key for %q: %w", identity.String(), err)
	}
	return k.storeKey(identity, isKSK, priv)
}

func (k *KeyStore) GenerateECDSAKeyPairAsDefault(identity ndn.Name, isKSK bool, curve string) (ndn.Name, error) {
	priv, err := ecdsa.GenerateKey(k.curveFor(curve), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ecdsa key for %q: %w", identity.String(), err)
	}
	return k.storeKey(identity, isKSK, priv)
}

// ImportPrivateKey registers priv directly under keyName, without going
// through storeKey's identity+KEY+suffix naming — for a key this store
// didn't generate itself, such as a pre-existing trust anchor's signing
// key that a caller needs loaded before Sign can issue anything directly
// under that anchor.
func (k *KeyStore) ImportPrivateKey(keyName ndn.Name, priv crypto.PrivateKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[keyName.String()] = priv
}

func (k *KeyStore) storeKey(identity ndn.Name, isKSK bool, priv crypto.PrivateKey) (ndn.Name, error) {
	suffix := ndn.Component("dsk-1")
	if isKSK {
		suffix = ndn.Component("ksk-1")
	}
	keyName := identity.Append(ndn.Component("KEY"), suffix)

	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[keyName.String()] = priv
	return keyName, nil
}

func (k *KeyStore) PrepareUnsignedIdentityCertificate(keyName, signerKeyName ndn.Name, notBefore, notAfter time.Time, subject []signing.SubjectDescription) (*cert.Certificate, error) {
	k.mu.Lock()
	priv, ok := k.keys[keyName.String()]
	k.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no private key generated for %q", keyName.String())
	}

	pub, err := publicKeyBytes(priv)
	if err != nil {
		return nil, err
	}

	return &cert.Certificate{
		Name:        keyName.Append(ndn.Component("ID-CERT")),
		PublicKey:   cert.PublicKeyInfo(pub),
		NotBefore:   notBefore,
		NotAfter:    notAfter,
		ContentType: cert.ContentTypeKey,
	}, nil
}

// Sign signs c's name bytes with the private key named certName's signer
// (signerKeyName is implicit in how the planner calls this — the caller
// always passes the certificate name of the identity whose key should
// sign, and that identity's key was generated by this same store).
func (k *KeyStore) Sign(c *cert.Certificate, certName ndn.Name) error {
	keyName := certName.Prefix(-1)
	k.mu.Lock()
	priv, ok := k.keys[keyName.String()]
	k.mu.Unlock()
	if !ok {
		return fmt.Errorf("no private key for signer %q", keyName.String())
	}

	signer, err := loadSigner(priv)
	if err != nil {
		return err
	}
	signedBytes := []byte(c.Name.String())
	sigBytes, err := signer.SignMessage(bytes.NewReader(signedBytes))
	if err != nil {
		return fmt.Errorf("signing %q: %w", c.Name.String(), err)
	}

	bits, curve := keyStrengthOf(priv)
	c.SignedBytes = signedBytes
	c.Signature = cert.Signature{
		Info:    cert.Info{Type: sigTypeFor(priv), KeyLocator: keyName},
		Value:   sigBytes,
		KeyBits: bits,
		Curve:   curve,
	}
	return nil
}

// keyStrengthOf reports the key-material properties the security-level
// table (sig-req's key-size/curves clauses) checks: the RSA modulus size
// in bits, or the ECDSA curve's standard name.
func keyStrengthOf(priv crypto.PrivateKey) (bits int, curve string) {
	switch key := priv.(type) {
	case *rsa.PrivateKey:
		return key.N.BitLen(), ""
	case *ecdsa.PrivateKey:
		return key.Curve.Params().BitSize, curveName(key.Curve)
	default:
		return 0, ""
	}
}

func curveName(c elliptic.Curve) string {
	switch c {
	case elliptic.P384():
		return "P-384"
	case elliptic.P521():
		return "P-521"
	default:
		return "P-256"
	}
}

func (k *KeyStore) AddCertificateAsIdentityDefault(c *cert.Certificate) error {
	return nil
}

func sigTypeFor(priv crypto.PrivateKey) cert.Type {
	switch priv.(type) {
	case *ecdsa.PrivateKey:
		return cert.Sha256WithEcdsa
	default:
		return cert.Sha256WithRsa
	}
}

func loadSigner(priv crypto.PrivateKey) (sigstoresig.Signer, error) {
	switch key := priv.(type) {
	case *ecdsa.PrivateKey:
		return sigstoresig.LoadECDSASignerVerifier(key, crypto.SHA256)
	case *rsa.PrivateKey:
		return sigstoresig.LoadRSAPKCS1v15SignerVerifier(key, crypto.SHA256)
	default:
		return nil, fmt.Errorf("unsupported private key type %T", priv)
	}
}

func publicKeyBytes(priv crypto.PrivateKey) ([]byte, error) {
	switch key := priv.(type) {
	case *ecdsa.PrivateKey:
		return elliptic.Marshal(key.Curve, key.PublicKey.X, key.PublicKey.Y), nil
	case *rsa.PrivateKey:
		return key.PublicKey.N.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported private key type %T", priv)
	}
}

