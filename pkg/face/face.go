// Package face provides a gRPC-backed Face (pkg/validator's fetch
// collaborator): ExpressInterest becomes a unary RPC against whatever
// certificate-repository service the deployment runs, the network
// equivalent of an NDN Interest/Data exchange for certificate retrieval.
package face

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"trustschema/pkg/cert"
	"trustschema/pkg/ndn"
)

// CertificateServiceClient is the RPC surface this package expects of a
// certificate repository. In production this would be generated from a
// .proto file; hand-defining it here keeps the planner/validator layers
// decoupled from a specific wire schema, the same approach the teacher's
// mesh client takes for its own cluster RPCs.
type CertificateServiceClient interface {
	FetchCertificate(ctx context.Context, req *FetchCertificateRequest, opts ...grpc.CallOption) (*FetchCertificateResponse, error)
}

type FetchCertificateRequest struct {
	KeyLocatorName string
}

type FetchCertificateResponse struct {
	Name                string
	PublicKey           []byte
	NotBefore           int64 // unix seconds
	NotAfter            int64
	SignatureType       int32
	SignatureKeyLocator string
	SignatureValue      []byte
	KeyBits             int32
	Curve               string
}

// GRPCFace dials a single certificate-repository endpoint and answers
// ExpressInterest by round-tripping a FetchCertificate RPC.
type GRPCFace struct {
	conn   *grpc.ClientConn
	client CertificateServiceClient
}

// DialOptions mirrors the subset of the teacher's mesh-client dial
// configuration relevant to a single long-lived upstream connection
// (message-size ceiling and keepalive; TLS is opt-in via tlsCredentials).
type DialOptions struct {
	Insecure            bool
	MaxCallRecvMsgBytes int
	MaxCallSendMsgBytes int
	KeepaliveTime       time.Duration
	KeepaliveTimeout    time.Duration
}

func DefaultDialOptions() DialOptions {
	return DialOptions{
		Insecure:            true,
		MaxCallRecvMsgBytes: 16 * 1024 * 1024,
		MaxCallSendMsgBytes: 16 * 1024 * 1024,
		KeepaliveTime:       30 * time.Second,
		KeepaliveTimeout:    10 * time.Second,
	}
}

// Dial connects to address and returns a GRPCFace wrapping client, a
// caller-supplied CertificateServiceClient constructed from the
// resulting *grpc.ClientConn (e.g. the generated client once a .proto is
// wired in) — kept as an explicit parameter rather than constructed here
// so this package never depends on generated pb code that does not exist
// yet.
func Dial(ctx context.Context, address string, opts DialOptions, newClient func(*grpc.ClientConn) CertificateServiceClient) (*GRPCFace, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(opts.MaxCallRecvMsgBytes),
			grpc.MaxCallSendMsgSize(opts.MaxCallSendMsgBytes),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                opts.KeepaliveTime,
			Timeout:             opts.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
	}
	if opts.Insecure {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(nil)))
	}

	conn, err := grpc.DialContext(ctx, address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dialing certificate service at %q: %w", address, err)
	}
	return &GRPCFace{conn: conn, client: newClient(conn)}, nil
}

func (f *GRPCFace) Close() error { return f.conn.Close() }

// ExpressInterest implements validator.Face.
func (f *GRPCFace) ExpressInterest(ctx context.Context, keyLocatorName ndn.Name) (*cert.Certificate, error) {
	resp, err := f.client.FetchCertificate(ctx, &FetchCertificateRequest{KeyLocatorName: keyLocatorName.String()})
	if err != nil {
		return nil, fmt.Errorf("fetching certificate for %q: %w", keyLocatorName.String(), err)
	}
	return decodeCertificate(resp)
}

func decodeCertificate(resp *FetchCertificateResponse) (*cert.Certificate, error) {
	name, err := ndn.ParseName(resp.Name)
	if err != nil {
		return nil, fmt.Errorf("decoding certificate name %q: %w", resp.Name, err)
	}
	var keyLocator ndn.Name
	if resp.SignatureKeyLocator != "" {
		keyLocator, err = ndn.ParseName(resp.SignatureKeyLocator)
		if err != nil {
			return nil, fmt.Errorf("decoding signature key locator %q: %w", resp.SignatureKeyLocator, err)
		}
	}

	return &cert.Certificate{
		Name:      name,
		PublicKey: cert.PublicKeyInfo(resp.PublicKey),
		NotBefore: time.Unix(resp.NotBefore, 0).UTC(),
		NotAfter:  time.Unix(resp.NotAfter, 0).UTC(),
		Signature: cert.Signature{
			Info:    cert.Info{Type: cert.Type(resp.SignatureType), KeyLocator: keyLocator},
			Value:   resp.SignatureValue,
			KeyBits: int(resp.KeyBits),
			Curve:   resp.Curve,
		},
	}, nil
}
