package anchor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustschema/pkg/cert"
	"trustschema/pkg/ndn"
)

func mustName(t *testing.T, uri string) ndn.Name {
	t.Helper()
	n, err := ndn.ParseName(uri)
	require.NoError(t, err)
	return n
}

type fakeReader struct {
	byPath map[string]*cert.Certificate
}

func (f *fakeReader) ReadCertificate(path string) (*cert.Certificate, error) {
	c, ok := f.byPath[path]
	if !ok {
		return nil, fmt.Errorf("no certificate at %q", path)
	}
	return c, nil
}

func (f *fakeReader) DecodeCertificate(raw []byte) (*cert.Certificate, error) {
	return nil, fmt.Errorf("not used in this test")
}

func TestContainerByIDAndByKeyName(t *testing.T) {
	c := NewContainer(nil, &fakeReader{byPath: map[string]*cert.Certificate{}})
	a := &TrustAnchor{ID: "root", KeyName: mustName(t, "/ndn/KEY")}
	require.NoError(t, c.Insert(a))

	got, ok := c.ByID("root")
	require.True(t, ok)
	assert.Same(t, a, got)

	got, ok = c.ByKeyName(mustName(t, "/ndn/KEY"))
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = c.ByID("missing")
	assert.False(t, ok)
}

func TestContainerRejectsDuplicateID(t *testing.T) {
	c := NewContainer(nil, &fakeReader{byPath: map[string]*cert.Certificate{}})
	require.NoError(t, c.Insert(&TrustAnchor{ID: "a", KeyName: mustName(t, "/a")}))
	err := c.Insert(&TrustAnchor{ID: "a", KeyName: mustName(t, "/b")})
	assert.Error(t, err)
}

func TestRefreshAnchorsRereadsOnlyPastDeadline(t *testing.T) {
	reader := &fakeReader{byPath: map[string]*cert.Certificate{}}
	c := NewContainer(nil, reader)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	stale := &TrustAnchor{
		ID: "stale", KeyName: mustName(t, "/stale/KEY"), Kind: Dynamic,
		FilePath: "/anchors/stale.cert", RefreshPeriod: time.Hour,
		LastRefresh: now.Add(-2 * time.Hour),
	}
	fresh := &TrustAnchor{
		ID: "fresh", KeyName: mustName(t, "/fresh/KEY"), Kind: Dynamic,
		FilePath: "/anchors/fresh.cert", RefreshPeriod: time.Hour,
		LastRefresh: now.Add(-10 * time.Minute),
	}
	require.NoError(t, c.Insert(stale))
	require.NoError(t, c.Insert(fresh))

	reader.byPath["/anchors/stale.cert"] = &cert.Certificate{Name: mustName(t, "/stale/KEY/2")}
	reader.byPath["/anchors/fresh.cert"] = &cert.Certificate{Name: mustName(t, "/fresh/KEY/99")}

	require.NoError(t, c.RefreshAnchors(now))

	assert.True(t, stale.LastRefresh.Equal(now))
	assert.Equal(t, "/stale/KEY/2", stale.Certificate.Name.String())

	// fresh's deadline (lastRefresh + refreshPeriod = now - 10m + 1h) has
	// not passed yet, so it must be untouched (spec.md invariant: no
	// earlier than refreshPeriod after the last read).
	assert.True(t, fresh.LastRefresh.Equal(now.Add(-10*time.Minute)))
	assert.Nil(t, fresh.Certificate)
}

func TestRefreshAnchorsPropagatesReadError(t *testing.T) {
	reader := &fakeReader{byPath: map[string]*cert.Certificate{}}
	c := NewContainer(nil, reader)
	now := time.Now()
	a := &TrustAnchor{
		ID: "broken", KeyName: mustName(t, "/broken/KEY"), Kind: Dynamic,
		FilePath: "/missing.cert", RefreshPeriod: time.Minute,
		LastRefresh: now.Add(-time.Hour),
	}
	require.NoError(t, c.Insert(a))
	err := c.RefreshAnchors(now)
	assert.Error(t, err)
}

func TestContainerAllReturnsAnchorsSortedByID(t *testing.T) {
	c := NewContainer(nil, &fakeReader{byPath: map[string]*cert.Certificate{}})
	require.NoError(t, c.Insert(&TrustAnchor{ID: "zeta", KeyName: mustName(t, "/zeta/KEY")}))
	require.NoError(t, c.Insert(&TrustAnchor{ID: "alpha", KeyName: mustName(t, "/alpha/KEY")}))
	require.NoError(t, c.Insert(&TrustAnchor{ID: "mu", KeyName: mustName(t, "/mu/KEY")}))

	all := c.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"alpha", "mu", "zeta"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestContainerAllEmptyContainer(t *testing.T) {
	c := NewContainer(nil, &fakeReader{byPath: map[string]*cert.Certificate{}})
	assert.Empty(t, c.All())
}

func TestNameHashIsDeterministicAndSensitiveToOrder(t *testing.T) {
	a := mustName(t, "/a/b")
	b := mustName(t, "/b/a")
	assert.Equal(t, NameHash(a), NameHash(a))
	assert.NotEqual(t, NameHash(a), NameHash(b))
}
