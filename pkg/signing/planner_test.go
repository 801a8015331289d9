package signing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustschema/pkg/anchor"
	"trustschema/pkg/cert"
	helpererrors "trustschema/pkg/helper/errors"
	"trustschema/pkg/metrics"
	"trustschema/pkg/ndn"
	"trustschema/pkg/schema"
)

func mustName(t *testing.T, uri string) ndn.Name {
	t.Helper()
	n, err := ndn.ParseName(uri)
	require.NoError(t, err)
	return n
}

type fakeAnchorReader struct {
	byRaw map[string]*cert.Certificate
}

func (f *fakeAnchorReader) ReadCertificate(path string) (*cert.Certificate, error) {
	return nil, errors.New("not used")
}
func (f *fakeAnchorReader) DecodeCertificate(raw []byte) (*cert.Certificate, error) {
	c, ok := f.byRaw[string(raw)]
	if !ok {
		return nil, errors.New("cannot decode")
	}
	return c, nil
}

func newRootAnchorInterpreter(t *testing.T, ruleDoc string) *schema.Interpreter {
	t.Helper()
	reader := &fakeAnchorReader{byRaw: map[string]*cert.Certificate{}}
	container := anchor.NewContainer(nil, reader)
	raw := []byte("root-cert-bytes")
	reader.byRaw[string(raw)] = &cert.Certificate{
		Name:      mustName(t, "/ndn/KEY/1"),
		PublicKey: cert.PublicKeyInfo("root-pub"),
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(time.Hour),
	}
	in := schema.NewInterpreter(nil, container)
	doc := ruleDoc + `
anchor { id "root" name "<ndn><KEY>" base64 "cm9vdC1jZXJ0LWJ5dGVz" }
sig-req { hash "sha-256" signing "rsa" key-size "112" }
`
	require.NoError(t, in.Load(doc, "/schemas/test.trust"))
	return in
}

// fakeKeyGenerator records every call the planner makes so tests can
// assert on materialization order without depending on real key material.
type fakeKeyGenerator struct {
	generatedIdentities []ndn.Name
	prepared            []*cert.Certificate
	signed              []ndn.Name
	addedIdentities     []*cert.Certificate
	nextKeySuffix       int
}

func (f *fakeKeyGenerator) GenerateRSAKeyPairAsDefault(identity ndn.Name, isKSK bool, minBits int) (ndn.Name, error) {
	f.generatedIdentities = append(f.generatedIdentities, identity)
	f.nextKeySuffix++
	suffix := "dsk"
	if isKSK {
		suffix = "ksk"
	}
	return identity.Append(ndn.Component("KEY")).Append(ndn.Component(suffix)), nil
}

func (f *fakeKeyGenerator) GenerateECDSAKeyPairAsDefault(identity ndn.Name, isKSK bool, curve string) (ndn.Name, error) {
	return f.GenerateRSAKeyPairAsDefault(identity, isKSK, 0)
}

func (f *fakeKeyGenerator) PrepareUnsignedIdentityCertificate(keyName, signerKeyName ndn.Name, notBefore, notAfter time.Time, subject []SubjectDescription) (*cert.Certificate, error) {
	c := &cert.Certificate{
		Name:      keyName.Append(ndn.Component("ID-CERT")),
		PublicKey: cert.PublicKeyInfo("fake-pub"),
		NotBefore: notBefore,
		NotAfter:  notAfter,
	}
	f.prepared = append(f.prepared, c)
	return c, nil
}

func (f *fakeKeyGenerator) Sign(c *cert.Certificate, certName ndn.Name) error {
	c.Signature = cert.Signature{Info: cert.Info{Type: cert.Sha256WithRsa, KeyLocator: certName}}
	f.signed = append(f.signed, c.Name)
	return nil
}

func (f *fakeKeyGenerator) AddCertificateAsIdentityDefault(c *cert.Certificate) error {
	f.addedIdentities = append(f.addedIdentities, c)
	return nil
}

func TestSignDirectlyUnderAnchorNeedsNoIntermediate(t *testing.T) {
	in := newRootAnchorInterpreter(t, `rule { id "data" name "(<ndn>)<>*" signer "root()" }`)
	kg := &fakeKeyGenerator{}
	p := New(nil, in, kg, DefaultConfig())

	packet := &cert.Certificate{Name: mustName(t, "/ndn/a/b")}
	err := p.Sign(packet, time.Now())
	require.NoError(t, err)

	assert.Empty(t, kg.generatedIdentities, "no intermediate identity should be created when the signer chain is one hop")
	assert.Empty(t, kg.prepared)
	require.Len(t, kg.signed, 1)
	assert.Equal(t, packet.Name, kg.signed[0])
	assert.Equal(t, mustName(t, "/ndn/KEY/1"), packet.Signature.Info.KeyLocator)
	assert.Empty(t, p.ChainNames())
}

func TestSignMultiHopMaterializesIntermediateCertificate(t *testing.T) {
	in := newRootAnchorInterpreter(t, `
rule { id "leaf" name "(<ndn>)(<>*)<data>" signer "mid($1)" }
rule { id "mid" name "(<>)<KEY><>" signer "root()" }
`)
	kg := &fakeKeyGenerator{}
	p := New(nil, in, kg, DefaultConfig())

	packet := &cert.Certificate{Name: mustName(t, "/ndn/a/b/data")}
	now := time.Now()
	err := p.Sign(packet, now)
	require.NoError(t, err)

	require.Len(t, kg.generatedIdentities, 1, "exactly one intermediate identity between leaf and anchor")
	require.Len(t, kg.prepared, 1)
	assert.Equal(t, now, kg.prepared[0].NotBefore)
	assert.Equal(t, now.Add(365*24*time.Hour), kg.prepared[0].NotAfter, "notAfter must be derived from notBefore, not a stale prior value")

	require.Len(t, kg.signed, 2, "the intermediate certificate and then the leaf packet")
	require.Len(t, kg.addedIdentities, 1)
	require.Len(t, p.ChainNames(), 1)
	assert.Equal(t, kg.prepared[0].Name, p.ChainNames()[0])

	assert.NotEqual(t, mustName(t, "/ndn/KEY/1"), packet.Signature.Info.KeyLocator, "the leaf is signed by the freshly materialised intermediate, not the anchor directly")
}

func TestSignClearsChainNamesBetweenCalls(t *testing.T) {
	in := newRootAnchorInterpreter(t, `
rule { id "leaf" name "(<ndn>)(<>*)<data>" signer "mid($1)" }
rule { id "mid" name "(<>)<KEY><>" signer "root()" }
`)
	kg := &fakeKeyGenerator{}
	p := New(nil, in, kg, DefaultConfig())

	first := &cert.Certificate{Name: mustName(t, "/ndn/a/b/data")}
	require.NoError(t, p.Sign(first, time.Now()))
	require.Len(t, p.ChainNames(), 1)

	second := &cert.Certificate{Name: mustName(t, "/ndn/x/y/data")}
	require.NoError(t, p.Sign(second, time.Now()))
	assert.Len(t, p.ChainNames(), 1, "a second Sign call must not see the previous call's materialized names")
}

func TestSignNoRuleMatchFails(t *testing.T) {
	in := newRootAnchorInterpreter(t, `rule { id "data" name "(<ndn>)<>*" signer "root()" }`)
	p := New(nil, in, &fakeKeyGenerator{}, DefaultConfig())

	packet := &cert.Certificate{Name: mustName(t, "/other/a/b")}
	err := p.Sign(packet, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, helpererrors.ErrNoRule)
}

func TestSignCyclicSignerGraphFailsWithNoChain(t *testing.T) {
	reader := &fakeAnchorReader{byRaw: map[string]*cert.Certificate{}}
	container := anchor.NewContainer(nil, reader)
	in := schema.NewInterpreter(nil, container)
	require.NoError(t, in.Load(`rule { id "data" name "<>*" signer "data()" }`, "/schemas/test.trust"))
	p := New(nil, in, &fakeKeyGenerator{}, DefaultConfig())

	packet := &cert.Certificate{Name: mustName(t, "/a/b")}
	err := p.Sign(packet, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, helpererrors.ErrNoChain)
}

func TestSplitPatternTokensAndKeyBoundary(t *testing.T) {
	toks, err := splitPatternTokens(`<ndn><a\>b><KEY><dsk-1>`)
	require.NoError(t, err)
	require.Len(t, toks, 4)
	assert.Equal(t, "ndn", toks[0].body)
	assert.Equal(t, "a>b", toks[1].body)

	prefix, tail, found := findKeyBoundary(toks)
	require.True(t, found)
	assert.Len(t, prefix, 2)
	assert.False(t, isKSKTail(tail))

	kskToks, err := splitPatternTokens(`<ndn><KEY><ksk-1>`)
	require.NoError(t, err)
	_, kskTail, found := findKeyBoundary(kskToks)
	require.True(t, found)
	assert.True(t, isKSKTail(kskTail))
}

func TestConcretizeNameReplacesResidualWildcardAndDecodesLiterals(t *testing.T) {
	toks, err := splitPatternTokens(`<ndn><a%20b>`)
	require.NoError(t, err)
	toks = append(toks, patternToken{})

	calls := 0
	name, err := concretizeName(toks, func() ndn.Component {
		calls++
		return ndn.Component("generated")
	})
	require.NoError(t, err)
	require.Len(t, name, 3)
	assert.Equal(t, ndn.Component("ndn"), name[0])
	assert.Equal(t, ndn.Component("a b"), name[1])
	assert.Equal(t, ndn.Component("generated"), name[2])
	assert.Equal(t, 1, calls)
}

func TestSignRecordsMetrics(t *testing.T) {
	in := newRootAnchorInterpreter(t, `
rule { id "leaf" name "(<ndn>)(<>*)<data>" signer "mid($1)" }
rule { id "mid" name "(<>)<KEY><>" signer "root()" }
`)
	reg := metrics.NewRegistry()
	p := New(nil, in, &fakeKeyGenerator{}, DefaultConfig())
	p.SetMetrics(reg)

	require.NoError(t, p.Sign(&cert.Certificate{Name: mustName(t, "/ndn/a/b/data")}, time.Now()))

	families, err := reg.Registerer().Gather()
	require.NoError(t, err)
	var sawSuccess bool
	for _, fam := range families {
		if fam.GetName() == "trustschema_sign_operations_total" {
			for _, m := range fam.GetMetric() {
				for _, l := range m.GetLabel() {
					if l.GetName() == "outcome" && l.GetValue() == "success" && m.GetCounter().GetValue() == 1 {
						sawSuccess = true
					}
				}
			}
		}
	}
	assert.True(t, sawSuccess, "expected one successful sign operation recorded in the registry")
}
