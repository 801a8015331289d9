package validator

import (
	"time"

	"trustschema/pkg/helper/errors"
)

// seenEntry is one signing key's replay-tracking state: the highest
// Interest timestamp ever accepted for it, and the wall-clock moment that
// was last updated (distinct from the timestamp itself, which is
// attacker-controlled input).
type seenEntry struct {
	maxTimestamp time.Time
	seenAt       time.Time
}

// checkTimestamp implements the replay-window check of spec.md §4.6/§9.
// It is called twice per signed Interest: once before signature
// verification with commit=false (reject an obvious replay on a known
// key without touching the map — a new key's optimistic grace-window
// check can't yet distinguish attacker from clock skew so it may only
// reject, never record), and once after verification succeeds with
// commit=true, which is the only call allowed to mutate state.
func (v *Validator) checkTimestamp(keyName string, ts time.Time, now time.Time, commit bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry, known := v.lastSeen[keyName]
	switch {
	case !known:
		low := now.Add(-v.cfg.GraceInterval)
		high := now.Add(v.cfg.GraceInterval)
		if ts.Before(low) || ts.After(high) {
			return errors.Replayf("timestamp %s for new key %q outside grace window [%s, %s]", ts, keyName, low, high)
		}
	default:
		if !ts.After(entry.maxTimestamp) {
			return errors.Replayf("timestamp %s for key %q is not strictly greater than last seen %s", ts, keyName, entry.maxTimestamp)
		}
	}

	if !commit {
		return nil
	}

	v.gcLocked(now)
	v.lastSeen[keyName] = seenEntry{maxTimestamp: ts, seenAt: now}
	for len(v.lastSeen) > v.cfg.MaxTrackedKeys {
		v.evictSmallestSeenLocked()
	}
	return nil
}

// gcLocked drops any entry whose wall-clock age exceeds KeyTimestampTTL.
// Caller holds v.mu.
func (v *Validator) gcLocked(now time.Time) {
	for k, e := range v.lastSeen {
		if now.Sub(e.seenAt) > v.cfg.KeyTimestampTTL {
			delete(v.lastSeen, k)
		}
	}
}

// evictSmallestSeenLocked drops the single entry with the oldest seenAt,
// used when the map is still over capacity after TTL-based GC. Caller
// holds v.mu.
func (v *Validator) evictSmallestSeenLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range v.lastSeen {
		if first || e.seenAt.Before(oldest) {
			oldestKey, oldest, first = k, e.seenAt, false
		}
	}
	if !first {
		delete(v.lastSeen, oldestKey)
	}
}
