package validator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"trustschema/pkg/anchor"
	"trustschema/pkg/cert"
	"trustschema/pkg/certcache"
	"trustschema/pkg/helper/errors"
	"trustschema/pkg/helper/log"
	"trustschema/pkg/metrics"
	"trustschema/pkg/ndn"
	"trustschema/pkg/resilience"
	"trustschema/pkg/schema"
)

// Config bounds the validator's resource usage (spec.md §4.6, §5).
type Config struct {
	// StepLimit bounds the length of certificate chain followed per root
	// packet.
	StepLimit int
	// MaxTrackedKeys bounds the replay-timestamp map.
	MaxTrackedKeys int
	// KeyTimestampTTL is how long a replay-tracking entry survives
	// without being refreshed before it is opportunistically GC'd.
	KeyTimestampTTL time.Duration
	// GraceInterval is the replay window applied to a key's first-seen
	// Interest timestamp.
	GraceInterval time.Duration
	// MaxConcurrentRoots bounds how many root-level ValidateRequest calls
	// may run at once against one Validator. 0 means unbounded.
	MaxConcurrentRoots int
}

// DefaultConfig returns spec.md's stated defaults (stepLimit=10,
// maxTrackedKeys=1000) plus reasonable values for the two knobs the spec
// names but does not pin a default for.
func DefaultConfig() Config {
	return Config{
		StepLimit:          10,
		MaxTrackedKeys:     1000,
		KeyTimestampTTL:    time.Hour,
		GraceInterval:      3 * time.Second,
		MaxConcurrentRoots: 64,
	}
}

// Validator is the async recursive resolver of C6. One instance owns the
// certificate cache and the replay-timestamp map; per spec.md §5 these are
// read-write from the validator alone, so a single Validator is meant to
// back every concurrent validation root in a process.
type Validator struct {
	log        log.Logger
	schema     *schema.Interpreter
	anchors    *anchor.Container
	cache      *certcache.Cache
	face       Face
	verifier   Verifier
	resilience *resilience.Manager
	metrics    *metrics.Registry
	cfg        Config
	sem        *semaphore.Weighted

	mu       sync.Mutex
	lastSeen map[string]seenEntry
}

// SetMetrics attaches a metrics registry after construction.
func (v *Validator) SetMetrics(r *metrics.Registry) { v.metrics = r }

// New builds a Validator. resilienceMgr may be nil, in which case
// certificate fetches go straight to face with no circuit-breaking,
// retry, or rate-limiting applied.
func New(logger log.Logger, schemaInterp *schema.Interpreter, anchors *anchor.Container, cache *certcache.Cache, face Face, verifier Verifier, resilienceMgr *resilience.Manager, cfg Config) *Validator {
	return &Validator{
		log:        logger,
		schema:     schemaInterp,
		anchors:    anchors,
		cache:      cache,
		face:       face,
		verifier:   verifier,
		resilience: resilienceMgr,
		cfg:        cfg,
		sem:        newRootSemaphore(cfg.MaxConcurrentRoots),
		lastSeen:   make(map[string]seenEntry),
	}
}

// Validate runs the state machine for one packet, invoking exactly one of
// onSuccess or onFailure when the root reaches a terminal outcome.
// Concurrent roots may call Validate from separate goroutines against the
// same Validator; within one root, recursion into a fetched certificate's
// own chain is synchronous and depth-first — the parent's verification
// resumes only once the child's terminal outcome is known, matching
// spec.md §5's ordering guarantee.
func (v *Validator) Validate(ctx context.Context, pkt Packet, onSuccess func(Packet), onFailure func(Packet, error)) {
	start := time.Now()
	stepsReached := 0
	wrappedSuccess := func(p Packet) {
		if v.metrics != nil {
			v.metrics.RecordValidation("accept", time.Since(start), stepsReached)
		}
		onSuccess(p)
	}
	wrappedFailure := func(p Packet, err error) {
		if v.metrics != nil {
			v.metrics.RecordValidation("reject", time.Since(start), stepsReached)
		}
		onFailure(p, err)
	}
	v.validateStep(ctx, pkt, 0, &stepsReached, wrappedSuccess, wrappedFailure)
}

// validateStep advances the state machine by one hop. stepsReached is
// shared across the whole recursive chain for one root packet so metrics
// recorded at the top of Validate reflect how deep the chain actually
// went, not just the outermost hop's own count.
func (v *Validator) validateStep(ctx context.Context, pkt Packet, steps int, stepsReached *int, onSuccess func(Packet), onFailure func(Packet, error)) {
	*stepsReached = steps
	if err := ctx.Err(); err != nil {
		onFailure(pkt, err)
		return
	}

	if v.schema.AnyMode() {
		onSuccess(pkt)
		return
	}

	now := time.Now()
	keyName := pkt.Signature.Info.KeyLocator.String()

	if pkt.IsInterest {
		if len(pkt.Name) < MinSignedInterestLength {
			onFailure(pkt, errors.Decodef("Interest %q is not signed", pkt.Name.String()))
			return
		}
		if err := v.checkTimestamp(keyName, pkt.Timestamp, now, false); err != nil {
			if v.metrics != nil {
				v.metrics.RecordReplayRejection("pre-verify")
			}
			onFailure(pkt, err)
			return
		}
	}

	if !v.schema.CheckSignature(pkt.Signature) {
		onFailure(pkt, errors.PolicyRejectedf("signature policy rejected for key %q", keyName))
		return
	}

	var ruleErr error
	if pkt.IsInterest {
		_, ruleErr = v.schema.CheckInterestRule(pkt.Name, pkt.Signature.Info.KeyLocator)
	} else {
		_, ruleErr = v.schema.CheckDataRule(pkt.Name, pkt.Signature.Info.KeyLocator)
	}
	if ruleErr != nil {
		onFailure(pkt, ruleErr)
		return
	}

	if pkt.Signature.Info.Type == cert.DigestSha256 {
		ok, err := v.verifier.VerifyDigest(pkt.Signature, pkt.SignedBytes)
		if err != nil || !ok {
			onFailure(pkt, errors.BadSignaturef("digest verification failed for %q", pkt.Name.String()))
			return
		}
		v.finish(pkt, keyName, now, onSuccess, onFailure)
		return
	}

	if err := v.anchors.RefreshAnchors(now); err != nil && v.log != nil {
		v.log.WithError(err).Warn("anchor refresh failed during validation")
	}
	if a, ok := v.anchors.ByKeyName(pkt.Signature.Info.KeyLocator); ok {
		v.verifyAndFinish(pkt, a.Certificate, keyName, now, onSuccess, onFailure)
		return
	}
	if c, ok := v.cache.Get(pkt.Signature.Info.KeyLocator); ok {
		v.verifyAndFinish(pkt, c, keyName, now, onSuccess, onFailure)
		return
	}

	if steps >= v.cfg.StepLimit {
		if v.metrics != nil {
			v.metrics.RecordMaxStepsExceeded()
		}
		onFailure(pkt, errors.MaxStepsf("validation of %q exceeded step limit %d", pkt.Name.String(), v.cfg.StepLimit))
		return
	}

	fetched, err := v.fetchCertificate(ctx, pkt.Signature.Info.KeyLocator)
	if err != nil {
		onFailure(pkt, errors.BadSignaturef("certificate fetch for %q failed: %v", keyName, err))
		return
	}

	v.validateStep(ctx, certPacket(fetched), steps+1, stepsReached,
		func(Packet) {
			if fetched.ValidAt(now) {
				v.cache.Put(fetched)
			}
			v.verifyAndFinish(pkt, fetched, keyName, now, onSuccess, onFailure)
		},
		func(_ Packet, err error) {
			onFailure(pkt, err)
		},
	)
}

// fetchCertificate expresses the certificate-fetch Interest, wrapped in
// the resilience manager's circuit-breaker/bulkhead/retry/rate-limiter
// stack when one is configured — a single slow or flapping upstream face
// must not be allowed to stall every concurrent validation root.
func (v *Validator) fetchCertificate(ctx context.Context, keyLocatorName ndn.Name) (*cert.Certificate, error) {
	if v.resilience == nil {
		return v.face.ExpressInterest(ctx, keyLocatorName)
	}
	var fetched *cert.Certificate
	err := v.resilience.ExecuteWithResilience(ctx, "cert-fetch", func() error {
		var ferr error
		fetched, ferr = v.face.ExpressInterest(ctx, keyLocatorName)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	return fetched, nil
}

func (v *Validator) verifyAndFinish(pkt Packet, c *cert.Certificate, keyName string, now time.Time, onSuccess func(Packet), onFailure func(Packet, error)) {
	ok, err := v.verifier.Verify(pkt.Signature, pkt.SignedBytes, c.PublicKey)
	if err != nil || !ok {
		onFailure(pkt, errors.BadSignaturef("signature verification failed for key %q", keyName))
		return
	}
	v.finish(pkt, keyName, now, onSuccess, onFailure)
}

// finish commits the post-verify replay timestamp (Interests only) and
// reports success, or reports a replay failure if the commit itself
// detects one (two Interests for a brand new key racing through the
// optimistic pre-check).
func (v *Validator) finish(pkt Packet, keyName string, now time.Time, onSuccess func(Packet), onFailure func(Packet, error)) {
	if pkt.IsInterest {
		if err := v.checkTimestamp(keyName, pkt.Timestamp, now, true); err != nil {
			if v.metrics != nil {
				v.metrics.RecordReplayRejection("post-verify")
			}
			onFailure(pkt, err)
			return
		}
	}
	onSuccess(pkt)
}
