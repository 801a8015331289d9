package face

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"trustschema/pkg/cert"
	"trustschema/pkg/ndn"
)

type fakeClient struct {
	resp *FetchCertificateResponse
	err  error
	gotReq *FetchCertificateRequest
}

func (f *fakeClient) FetchCertificate(_ context.Context, req *FetchCertificateRequest, _ ...grpc.CallOption) (*FetchCertificateResponse, error) {
	f.gotReq = req
	return f.resp, f.err
}

func TestExpressInterestDecodesResponse(t *testing.T) {
	client := &fakeClient{resp: &FetchCertificateResponse{
		Name:                "/ndn/KEY/1",
		PublicKey:           []byte("pub"),
		NotBefore:           1000,
		NotAfter:            2000,
		SignatureType:       int32(cert.Sha256WithRsa),
		SignatureKeyLocator: "/ndn/KEY",
		SignatureValue:      []byte("sig"),
		KeyBits:             2048,
	}}
	f := &GRPCFace{client: client}

	keyLocator, err := ndn.ParseName("/ndn/KEY/1")
	require.NoError(t, err)

	c, err := f.ExpressInterest(context.Background(), keyLocator)
	require.NoError(t, err)
	assert.Equal(t, keyLocator.String(), client.gotReq.KeyLocatorName)
	assert.Equal(t, "/ndn/KEY/1", c.Name.String())
	assert.Equal(t, cert.Sha256WithRsa, c.Signature.Info.Type)
	assert.Equal(t, "/ndn/KEY", c.Signature.Info.KeyLocator.String())
	assert.Equal(t, 2048, c.Signature.KeyBits)
}

func TestExpressInterestPropagatesRPCError(t *testing.T) {
	client := &fakeClient{err: assert.AnError}
	f := &GRPCFace{client: client}

	_, err := f.ExpressInterest(context.Background(), ndn.Name{})
	require.Error(t, err)
}
