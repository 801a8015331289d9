package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trustschema/pkg/cert"
	"trustschema/pkg/ndn"
	"trustschema/pkg/validator"
)

// certDoc is the CLI's own JSON encoding of a cert.Certificate. Wire
// decoding is explicitly out of the engine's scope (spec.md §1); this
// package gives the command-line tooling one concrete, self-contained
// format to read and write so `validate`/`sign`/`anchors` are runnable
// against plain files instead of a live NDN network stack.
type certDoc struct {
	Name        string   `json:"name"`
	PublicKey   string   `json:"publicKey"`
	NotBefore   time.Time `json:"notBefore"`
	NotAfter    time.Time `json:"notAfter"`
	ContentType string   `json:"contentType,omitempty"`
	Signature   *sigDoc  `json:"signature,omitempty"`
	SignedBytes string   `json:"signedBytes,omitempty"`
}

type sigDoc struct {
	Type       string `json:"type"`
	KeyLocator string `json:"keyLocator,omitempty"`
	Value      string `json:"value"`
	KeyBits    int    `json:"keyBits,omitempty"`
	Curve      string `json:"curve,omitempty"`
}

func encodeCertificate(c *cert.Certificate) (*certDoc, error) {
	doc := &certDoc{
		Name:      c.Name.String(),
		PublicKey: base64.StdEncoding.EncodeToString(c.PublicKey),
		NotBefore: c.NotBefore,
		NotAfter:  c.NotAfter,
	}
	if c.IsKey() {
		doc.ContentType = "key"
	}
	if len(c.SignedBytes) > 0 {
		doc.SignedBytes = base64.StdEncoding.EncodeToString(c.SignedBytes)
	}
	if c.Signature.Value != nil || c.Signature.Info.KeyLocator != nil {
		doc.Signature = &sigDoc{
			Type:       c.Signature.Info.Type.String(),
			Value:      base64.StdEncoding.EncodeToString(c.Signature.Value),
			KeyBits:    c.Signature.KeyBits,
			Curve:      c.Signature.Curve,
		}
		if c.Signature.Info.KeyLocator != nil {
			doc.Signature.KeyLocator = c.Signature.Info.KeyLocator.String()
		}
	}
	return doc, nil
}

func decodeCertDoc(doc *certDoc) (*cert.Certificate, error) {
	name, err := ndn.ParseName(doc.Name)
	if err != nil {
		return nil, fmt.Errorf("decoding certificate name %q: %w", doc.Name, err)
	}
	pub, err := base64.StdEncoding.DecodeString(doc.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("decoding certificate %q public key: %w", doc.Name, err)
	}
	c := &cert.Certificate{
		Name:      name,
		PublicKey: cert.PublicKeyInfo(pub),
		NotBefore: doc.NotBefore,
		NotAfter:  doc.NotAfter,
	}
	if doc.ContentType == "key" {
		c.ContentType = cert.ContentTypeKey
	}
	if doc.SignedBytes != "" {
		signedBytes, err := base64.StdEncoding.DecodeString(doc.SignedBytes)
		if err != nil {
			return nil, fmt.Errorf("decoding certificate %q signed bytes: %w", doc.Name, err)
		}
		c.SignedBytes = signedBytes
	}
	if doc.Signature != nil {
		sigType, ok := cert.ParseType(doc.Signature.Type)
		if !ok {
			return nil, fmt.Errorf("certificate %q: unknown signature type %q", doc.Name, doc.Signature.Type)
		}
		value, err := base64.StdEncoding.DecodeString(doc.Signature.Value)
		if err != nil {
			return nil, fmt.Errorf("decoding certificate %q signature value: %w", doc.Name, err)
		}
		var keyLocator ndn.Name
		if doc.Signature.KeyLocator != "" {
			keyLocator, err = ndn.ParseName(doc.Signature.KeyLocator)
			if err != nil {
				return nil, fmt.Errorf("decoding certificate %q key locator: %w", doc.Name, err)
			}
		}
		c.Signature = cert.Signature{
			Info:    cert.Info{Type: sigType, KeyLocator: keyLocator},
			Value:   value,
			KeyBits: doc.Signature.KeyBits,
			Curve:   doc.Signature.Curve,
		}
	}
	return c, nil
}

// fileCertificateReader implements anchor.CertificateReader against the
// certDoc JSON format: ReadCertificate reads a dynamic anchor's file
// directly, DecodeCertificate parses a static anchor's base64-decoded
// bytes as the same JSON shape.
type fileCertificateReader struct{}

func (fileCertificateReader) ReadCertificate(path string) (*cert.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading anchor certificate file %q: %w", path, err)
	}
	var doc certDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing anchor certificate file %q: %w", path, err)
	}
	return decodeCertDoc(&doc)
}

func (fileCertificateReader) DecodeCertificate(raw []byte) (*cert.Certificate, error) {
	var doc certDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing inline anchor certificate: %w", err)
	}
	return decodeCertDoc(&doc)
}

// directoryFace answers ExpressInterest from a local directory of certDoc
// JSON files, one per key name, named by a filesystem-safe escape of the
// key locator's URI. It exists so `validate`/`sign` are runnable against
// a flat directory of certificates without standing up the gRPC
// certificate repository pkg/face talks to.
type directoryFace struct {
	dir string
}

func newDirectoryFace(dir string) *directoryFace { return &directoryFace{dir: dir} }

func certFileName(name ndn.Name) string {
	return base64.RawURLEncoding.EncodeToString([]byte(name.String())) + ".json"
}

func (f *directoryFace) ExpressInterest(ctx context.Context, keyLocatorName ndn.Name) (*cert.Certificate, error) {
	path := filepath.Join(f.dir, certFileName(keyLocatorName))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fetching certificate for %q from %q: %w", keyLocatorName.String(), f.dir, err)
	}
	var doc certDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing certificate for %q: %w", keyLocatorName.String(), err)
	}
	return decodeCertDoc(&doc)
}

// writeCertFile stores c in dir using the same naming scheme
// directoryFace.ExpressInterest looks it up by, so a certificate this CLI
// signs can immediately be fetched back by a later validate run.
func writeCertFile(dir string, c *cert.Certificate) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating certificate directory %q: %w", dir, err)
	}
	doc, err := encodeCertificate(c)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding certificate %q: %w", c.Name.String(), err)
	}
	path := filepath.Join(dir, certFileName(c.KeyName()))
	return os.WriteFile(path, data, 0o644)
}

func writeCertDocFile(path string, doc *certDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding certificate: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// packetDoc is the JSON shape `validate` reads a packet to check from.
type packetDoc struct {
	Name       string    `json:"name"`
	IsInterest bool      `json:"isInterest,omitempty"`
	Signature  sigDoc    `json:"signature"`
	SignedBytes string   `json:"signedBytes"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

func loadPacket(path string) (validator.Packet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return validator.Packet{}, fmt.Errorf("reading packet file %q: %w", path, err)
	}
	var doc packetDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return validator.Packet{}, fmt.Errorf("parsing packet file %q: %w", path, err)
	}
	name, err := ndn.ParseName(doc.Name)
	if err != nil {
		return validator.Packet{}, fmt.Errorf("decoding packet name %q: %w", doc.Name, err)
	}
	sigType, ok := cert.ParseType(doc.Signature.Type)
	if !ok {
		return validator.Packet{}, fmt.Errorf("packet %q: unknown signature type %q", doc.Name, doc.Signature.Type)
	}
	value, err := base64.StdEncoding.DecodeString(doc.Signature.Value)
	if err != nil {
		return validator.Packet{}, fmt.Errorf("decoding packet %q signature value: %w", doc.Name, err)
	}
	var keyLocator ndn.Name
	if doc.Signature.KeyLocator != "" {
		keyLocator, err = ndn.ParseName(doc.Signature.KeyLocator)
		if err != nil {
			return validator.Packet{}, fmt.Errorf("decoding packet %q key locator: %w", doc.Name, err)
		}
	}
	signedBytes, err := base64.StdEncoding.DecodeString(doc.SignedBytes)
	if err != nil {
		return validator.Packet{}, fmt.Errorf("decoding packet %q signed bytes: %w", doc.Name, err)
	}
	return validator.Packet{
		Name:       name,
		IsInterest: doc.IsInterest,
		Signature: cert.Signature{
			Info:    cert.Info{Type: sigType, KeyLocator: keyLocator},
			Value:   value,
			KeyBits: doc.Signature.KeyBits,
			Curve:   doc.Signature.Curve,
		},
		SignedBytes: signedBytes,
		Timestamp:   doc.Timestamp,
	}, nil
}
