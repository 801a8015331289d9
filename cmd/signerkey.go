package cmd

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// loadSignerPrivateKey reads a PEM-encoded private key from disk for an
// identity this invocation of `sign` didn't itself generate — typically a
// pre-existing trust anchor whose key material lives outside this CLI.
// It accepts the formats a key is realistically handed over in: PKCS8,
// PKCS1 (RSA), and SEC1 (EC).
func loadSignerPrivateKey(path string) (crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signer key %q: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("signer key %q: no PEM block found", path)
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("signer key %q: unrecognised private key encoding", path)
}
