// Package anchor implements the trust-anchor container (C3): a
// multi-index store over TrustAnchor records, indexed by key-name, by id,
// and — for dynamic anchors — by last-refresh time so the stalest entry
// is always found in O(log n).
package anchor

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"trustschema/pkg/cert"
	"trustschema/pkg/helper/errors"
	"trustschema/pkg/helper/log"
	"trustschema/pkg/ndn"
	"trustschema/pkg/pattern"
)

// Kind distinguishes a long-lived static anchor from one that re-reads
// its certificate file periodically.
type Kind int

const (
	Static Kind = iota
	Dynamic
)

// TrustAnchor is a terminal of a certificate chain (spec.md §3).
type TrustAnchor struct {
	ID            string
	Pattern       *pattern.Pattern
	Certificate   *cert.Certificate
	KeyName       ndn.Name
	Kind          Kind
	RefreshPeriod time.Duration
	LastRefresh   time.Time
	FilePath      string
}

// NameHash is the persistent, cross-process hash spec.md §6 mandates:
// the first 8 bytes of SHA-256 over the name's wire encoding, stable
// across processes that share index state via files (unlike a language-
// native hash, which is not guaranteed stable release to release).
func NameHash(name ndn.Name) uint64 {
	sum := sha256.Sum256(wireEncode(name))
	return binary.BigEndian.Uint64(sum[:8])
}

func wireEncode(name ndn.Name) []byte {
	var buf []byte
	var lenBuf [4]byte
	for _, c := range name {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(c)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, c...)
	}
	return buf
}

// volatileKey is the in-process map bucket key for the hot lookup path:
// xxhash over the name's URI form, chosen specifically so the common case
// (looking an anchor up during validation) never pays for a SHA-256 call.
// NameHash is the hash that stays stable across processes; no Container
// method computes or persists it.
func volatileKey(name ndn.Name) uint64 {
	return xxhash.Sum64String(name.String())
}

// CertificateReader loads or decodes certificate records on the engine's
// behalf; spec.md §6 leaves certificate decoding and filesystem access
// external to the core.
type CertificateReader interface {
	ReadCertificate(path string) (*cert.Certificate, error)
	DecodeCertificate(raw []byte) (*cert.Certificate, error)
}

// Container is the multi-index trust-anchor store.
type Container struct {
	mu        sync.RWMutex
	byKeyName map[uint64]*TrustAnchor
	byID      map[string]*TrustAnchor
	dynamic   []*TrustAnchor // kept sorted by LastRefresh ascending
	log       log.Logger
	reader    CertificateReader
}

func NewContainer(logger log.Logger, reader CertificateReader) *Container {
	return &Container{
		byKeyName: make(map[uint64]*TrustAnchor),
		byID:      make(map[string]*TrustAnchor),
		log:       logger,
		reader:    reader,
	}
}

func (c *Container) Reader() CertificateReader { return c.reader }

// Reset empties the container; called by Interpreter.Load before each
// re-populate.
func (c *Container) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKeyName = make(map[uint64]*TrustAnchor)
	c.byID = make(map[string]*TrustAnchor)
	c.dynamic = nil
}

func (c *Container) Insert(a *TrustAnchor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byID[a.ID]; exists {
		return errors.Loadf("duplicate trust anchor id %q", a.ID)
	}
	c.byID[a.ID] = a
	c.byKeyName[volatileKey(a.KeyName)] = a
	if a.Kind == Dynamic {
		c.insertDynamicLocked(a)
	}
	return nil
}

func (c *Container) insertDynamicLocked(a *TrustAnchor) {
	idx := sort.Search(len(c.dynamic), func(i int) bool {
		return c.dynamic[i].LastRefresh.After(a.LastRefresh)
	})
	c.dynamic = append(c.dynamic, nil)
	copy(c.dynamic[idx+1:], c.dynamic[idx:])
	c.dynamic[idx] = a
}

func (c *Container) ByID(id string) (*TrustAnchor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.byID[id]
	return a, ok
}

func (c *Container) ByKeyName(name ndn.Name) (*TrustAnchor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.byKeyName[volatileKey(name)]
	return a, ok
}

// All returns every loaded anchor, sorted by ID for stable, readable
// output (an `anchors` CLI command is the only caller that needs the
// full set at once; validation always looks a single anchor up by key
// name or id).
func (c *Container) All() []*TrustAnchor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	anchors := make([]*TrustAnchor, 0, len(c.byID))
	for _, a := range c.byID {
		anchors = append(anchors, a)
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].ID < anchors[j].ID })
	return anchors
}

// RefreshAnchors walks the dynamic index oldest-first, re-reading every
// anchor whose lastRefresh+refreshPeriod deadline has passed (spec.md
// §4.3), and leaves a.lastRefresh <= now for every touched anchor
// (invariant 4 of spec.md §3).
func (c *Container) RefreshAnchors(now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	touched := false
	for _, a := range c.dynamic {
		if a.LastRefresh.Add(a.RefreshPeriod).After(now) {
			break // sorted ascending; nothing further is due yet
		}
		fresh, err := c.reader.ReadCertificate(a.FilePath)
		if err != nil {
			return errors.Loadf("refresh anchor %q: %v", a.ID, err)
		}
		a.Certificate = fresh
		a.KeyName = fresh.KeyName()
		a.LastRefresh = now
		c.byKeyName[volatileKey(a.KeyName)] = a
		touched = true
		if c.log != nil {
			c.log.WithField("anchor_id", a.ID).Info("refreshed dynamic trust anchor")
		}
	}
	if touched {
		sort.Slice(c.dynamic, func(i, j int) bool {
			return c.dynamic[i].LastRefresh.Before(c.dynamic[j].LastRefresh)
		})
	}
	return nil
}
