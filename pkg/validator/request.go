package validator

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// ValidationRequest names one root-level validation with a correlation id.
// spec.md §5 only requires that concurrent roots never block each other's
// ordering; it says nothing about how a Face matches an asynchronous
// response back to the request that triggered it. A Face backed by a
// message queue (rather than a synchronous RPC) needs something to
// correlate on, so every root gets a uuid threaded through the context for
// any ExpressInterest call made on its behalf.
type ValidationRequest struct {
	ID     uuid.UUID
	Packet Packet
}

// NewValidationRequest mints a fresh correlation id for pkt.
func NewValidationRequest(pkt Packet) ValidationRequest {
	return ValidationRequest{ID: uuid.New(), Packet: pkt}
}

type requestIDKey struct{}

// RequestIDFromContext returns the correlation id of the root validation
// this ctx was derived from, if any. A Face implementation calls this to
// tag its outgoing fetch with the id the eventual response should echo.
func RequestIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(requestIDKey{}).(uuid.UUID)
	return id, ok
}

// ValidateRequest is Validate with a correlation id and a bound on how many
// root validations may run concurrently against this Validator. Unlike the
// per-certificate step recursion inside one root (which is synchronous and
// depth-first per spec.md §5), independent roots are expected to run
// concurrently, and an unbounded number of them sharing one Face would let
// a slow upstream certificate repository pile up goroutines without limit.
// The bound is applied only at the root: once a root acquires its slot, its
// own recursive certificate fetches run without re-acquiring.
func (v *Validator) ValidateRequest(ctx context.Context, req ValidationRequest, onSuccess func(Packet), onFailure func(Packet, error)) {
	ctx = context.WithValue(ctx, requestIDKey{}, req.ID)

	if v.sem == nil {
		v.Validate(ctx, req.Packet, onSuccess, onFailure)
		return
	}

	if err := v.sem.Acquire(ctx, 1); err != nil {
		onFailure(req.Packet, err)
		return
	}
	defer v.sem.Release(1)
	v.Validate(ctx, req.Packet, onSuccess, onFailure)
}

func newRootSemaphore(maxConcurrentRoots int) *semaphore.Weighted {
	if maxConcurrentRoots <= 0 {
		return nil
	}
	return semaphore.NewWeighted(int64(maxConcurrentRoots))
}
