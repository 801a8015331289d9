package cmd

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustschema/pkg/cert"
	"trustschema/pkg/ndn"
)

func mustParseName(t *testing.T, uri string) ndn.Name {
	t.Helper()
	n, err := ndn.ParseName(uri)
	require.NoError(t, err)
	return n
}

func sampleCertificate(t *testing.T) *cert.Certificate {
	t.Helper()
	return &cert.Certificate{
		Name:      mustParseName(t, "/ndn/site/KEY/1/ID-CERT/1"),
		PublicKey: cert.PublicKeyInfo([]byte("fake-public-key-bytes")),
		NotBefore: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:  time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		ContentType: cert.ContentTypeKey,
		Signature: cert.Signature{
			Info:  cert.Info{Type: cert.Sha256WithRsa, KeyLocator: mustParseName(t, "/ndn/KEY/1")},
			Value: []byte("fake-signature-bytes"),
		},
		SignedBytes: []byte("/ndn/site/KEY/1/ID-CERT/1"),
	}
}

func TestEncodeDecodeCertificateRoundTrips(t *testing.T) {
	original := sampleCertificate(t)

	doc, err := encodeCertificate(original)
	require.NoError(t, err)

	decoded, err := decodeCertDoc(doc)
	require.NoError(t, err)

	assert.Equal(t, original.Name.String(), decoded.Name.String())
	assert.Equal(t, original.PublicKey, decoded.PublicKey)
	assert.True(t, original.NotBefore.Equal(decoded.NotBefore))
	assert.True(t, original.NotAfter.Equal(decoded.NotAfter))
	assert.Equal(t, original.ContentType, decoded.ContentType)
	assert.Equal(t, original.Signature.Info.Type, decoded.Signature.Info.Type)
	assert.Equal(t, original.Signature.Info.KeyLocator.String(), decoded.Signature.Info.KeyLocator.String())
	assert.Equal(t, original.Signature.Value, decoded.Signature.Value)
	assert.Equal(t, original.SignedBytes, decoded.SignedBytes)
}

func TestDirectoryFaceFetchesWrittenCertificate(t *testing.T) {
	dir := t.TempDir()
	c := sampleCertificate(t)
	require.NoError(t, writeCertFile(dir, c))

	face := newDirectoryFace(dir)
	fetched, err := face.ExpressInterest(context.Background(), c.KeyName())
	require.NoError(t, err)
	assert.Equal(t, c.Name.String(), fetched.Name.String())
}

func TestDirectoryFaceMissingCertificateFails(t *testing.T) {
	face := newDirectoryFace(t.TempDir())
	_, err := face.ExpressInterest(context.Background(), mustParseName(t, "/nowhere/KEY/1"))
	assert.Error(t, err)
}

func TestFileCertificateReaderReadsAndDecodes(t *testing.T) {
	dir := t.TempDir()
	c := sampleCertificate(t)
	doc, err := encodeCertificate(c)
	require.NoError(t, err)

	path := filepath.Join(dir, "anchor.json")
	require.NoError(t, writeCertDocFile(path, doc))

	reader := fileCertificateReader{}
	fromFile, err := reader.ReadCertificate(path)
	require.NoError(t, err)
	assert.Equal(t, c.Name.String(), fromFile.Name.String())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	fromBytes, err := reader.DecodeCertificate(raw)
	require.NoError(t, err)
	assert.Equal(t, c.Name.String(), fromBytes.Name.String())
}

func TestLoadPacketParsesSignedInterest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packet.json")
	content := `{
		"name": "/ndn/site/data/1/sig-info/sig-value",
		"isInterest": true,
		"signature": {
			"type": "rsa",
			"keyLocator": "/ndn/KEY/1",
			"value": "` + base64.StdEncoding.EncodeToString([]byte("sig")) + `"
		},
		"signedBytes": "` + base64.StdEncoding.EncodeToString([]byte("/ndn/site/data/1/sig-info")) + `",
		"timestamp": "2026-01-01T00:00:00Z"
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	pkt, err := loadPacket(path)
	require.NoError(t, err)
	assert.True(t, pkt.IsInterest)
	assert.Equal(t, "/ndn/site/data/1/sig-info/sig-value", pkt.Name.String())
	assert.Equal(t, cert.Sha256WithRsa, pkt.Signature.Info.Type)
	assert.Equal(t, "/ndn/KEY/1", pkt.Signature.Info.KeyLocator.String())
}

func TestLoadPacketMissingFileFails(t *testing.T) {
	_, err := loadPacket(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
