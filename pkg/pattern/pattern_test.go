package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustschema/pkg/ndn"
)

func mustName(t *testing.T, uri string) ndn.Name {
	t.Helper()
	n, err := ndn.ParseName(uri)
	require.NoError(t, err)
	return n
}

func TestMatchLiteralAndWildcard(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		input   string
		want    bool
	}{
		{"exact literal", "<ndn><edu><ucla>", "/ndn/edu/ucla", true},
		{"literal mismatch", "<ndn><edu><ucla>", "/ndn/edu/berkeley", false},
		{"wildcard matches one", "<ndn><>", "/ndn/edu", true},
		{"wildcard does not skip", "<ndn><>", "/ndn/edu/ucla", false},
		{"star matches any count", "<ndn><>*", "/ndn/edu/ucla/key", true},
		{"star matches zero", "<ndn><>*", "/ndn", true},
		{"dot-star regex equivalent to star", "<ndn><.*>*", "/ndn/edu/ucla", true},
		{"plus requires one", "<ndn><>+", "/ndn", false},
		{"plus matches one or more", "<ndn><>+", "/ndn/edu/ucla", true},
		{"optional present", "<ndn><edu>?<ucla>", "/ndn/edu/ucla", true},
		{"optional absent", "<ndn><edu>?<ucla>", "/ndn/ucla", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Compile(tc.pattern)
			require.NoError(t, err)
			name := mustName(t, tc.input)
			assert.Equal(t, tc.want, p.Match(name))
		})
	}
}

func TestMatchSet(t *testing.T) {
	p, err := Compile("<ndn>[<edu><com>]<site>")
	require.NoError(t, err)
	assert.True(t, p.Match(mustName(t, "/ndn/edu/site")))
	assert.True(t, p.Match(mustName(t, "/ndn/com/site")))
	assert.False(t, p.Match(mustName(t, "/ndn/org/site")))
}

func TestMatchNegatedSet(t *testing.T) {
	p, err := Compile("<ndn>[^<edu>]<site>")
	require.NoError(t, err)
	assert.True(t, p.Match(mustName(t, "/ndn/com/site")))
	assert.False(t, p.Match(mustName(t, "/ndn/edu/site")))
}

func TestMatchExplicitZeroRepeat(t *testing.T) {
	// {0,0} only ever matches the empty range: the wrapped element never
	// gets a chance to consume a component.
	p, err := Compile("<ndn><edu>{0,0}<ucla>")
	require.NoError(t, err)
	assert.True(t, p.Match(mustName(t, "/ndn/ucla")))
	assert.False(t, p.Match(mustName(t, "/ndn/edu/ucla")))
}

func TestMatchBindingsCapturesGroups(t *testing.T) {
	p, err := Compile("(<>*)<ucla>(<>)<config><key><>*")
	require.NoError(t, err)
	name := mustName(t, "/ndn/edu/ucla/haitao/config/key/1")
	bt, ok := p.MatchBindings(name)
	require.True(t, ok)
	require.Equal(t, 2, p.Groups())

	g0, ok := bt.Get(0)
	require.True(t, ok)
	assert.Equal(t, "/ndn/edu", g0.String())

	g1, ok := bt.Get(1)
	require.True(t, ok)
	assert.Equal(t, "/haitao", g1.String())
}

func TestMatchBindingsRepeatedGroupKeepsLastIteration(t *testing.T) {
	// A group nested in a repeat rebinds on every iteration; only the
	// final repetition's span survives, matching ordinary backtracking
	// regex semantics.
	p, err := Compile("(<>)*")
	require.NoError(t, err)
	name := mustName(t, "/a/b/c")
	bt, ok := p.MatchBindings(name)
	require.True(t, ok)
	g0, ok := bt.Get(0)
	require.True(t, ok)
	assert.Equal(t, "/c", g0.String())
}

func TestDeriveWithExamples(t *testing.T) {
	p, err := Compile("(<>*)<ucla>(<>)<config><key><>*")
	require.NoError(t, err)

	derived, err := p.DeriveWithExamples([]ndn.Name{
		mustName(t, "/ndn/edu"),
		mustName(t, "/haitao"),
	})
	require.NoError(t, err)

	derivedPattern, err := Compile(derived)
	require.NoError(t, err)
	assert.True(t, derivedPattern.Match(mustName(t, "/ndn/edu/ucla/haitao/config/key/9")))
	assert.False(t, derivedPattern.Match(mustName(t, "/ndn/edu/ucla/someoneelse/config/key/9")))
}

func TestDeriveWithNullExample(t *testing.T) {
	// A nil example renders the group as an empty, dropped slot rather
	// than a literal — the signer grammar's "null" argument.
	p, err := Compile("(<a>)(<b>)")
	require.NoError(t, err)
	derived, err := p.DeriveWithExamples([]ndn.Name{nil, mustName(t, "/b")})
	require.NoError(t, err)
	assert.Equal(t, "<b>", derived)
}

func TestInferPatternRoundTrips(t *testing.T) {
	p, err := Compile("(<>*)<ucla>(<>)<config><key><>*")
	require.NoError(t, err)

	inferred, err := p.InferPattern([]ndn.Name{
		mustName(t, "/ndn/edu"),
		mustName(t, "/haitao"),
	})
	require.NoError(t, err)

	derived, err := Compile(inferred)
	require.NoError(t, err)
	assert.True(t, derived.Match(mustName(t, "/ndn/edu/ucla/haitao/config/key/1")))
}

func TestInferPatternMismatchArity(t *testing.T) {
	p, err := Compile("(<a>)(<b>)")
	require.NoError(t, err)
	_, err = p.InferPattern([]ndn.Name{mustName(t, "/a")})
	require.Error(t, err)
	assert.ErrorContains(t, err, "groups")
}

func TestInferPatternMismatchUnreachedGroup(t *testing.T) {
	// The example must be fully consumed by the group's own sub-matcher;
	// a literal-only group can never match a two-component example.
	p, err := Compile("(<a>)(<b>)")
	require.NoError(t, err)
	_, err = p.InferPattern([]ndn.Name{mustName(t, "/a/extra"), mustName(t, "/b")})
	require.Error(t, err)
}

func TestExpandBackReferences(t *testing.T) {
	p, err := Compile("<ndn>(<>)<ucla>(<>)<config><key><>*")
	require.NoError(t, err)
	name := mustName(t, "/ndn/edu/ucla/haitao/config/key/7")

	expanded, err := p.Expand(name, "<ndn><edu>$2<KEY>")
	require.NoError(t, err)
	assert.Equal(t, "/ndn/edu/haitao/KEY", expanded.String())
}

func TestExpandWholeMatchBackRef(t *testing.T) {
	p, err := Compile("<ndn><>*")
	require.NoError(t, err)
	name := mustName(t, "/ndn/edu/ucla")
	expanded, err := p.Expand(name, "$0<KEY>")
	require.NoError(t, err)
	assert.Equal(t, "/ndn/edu/ucla/KEY", expanded.String())
}

func TestExpandKeylessFunction(t *testing.T) {
	p, err := Compile("(<>*)")
	require.NoError(t, err)
	name := mustName(t, "/ndn/edu/ucla/KEY/123")
	expanded, err := p.Expand(name, "$keyless($1)")
	require.NoError(t, err)
	assert.Equal(t, "/ndn/edu/ucla", expanded.String())
}

func TestCompileErrors(t *testing.T) {
	cases := []string{
		"<unterminated",
		"(<a>",
		"[<a>",
		"<a>{2,1}",
		"<a>{x}",
	}
	for _, src := range cases {
		t.Run(src, func(t *testing.T) {
			_, err := Compile(src)
			assert.Error(t, err)
		})
	}
}

func TestNestedRepeatedGroupFlattening(t *testing.T) {
	// Supplemental edge case: a group nested inside another repeated
	// group, mirroring the richer fixtures exercised upstream.
	p, err := Compile("((<a><b>)*<c>)*")
	require.NoError(t, err)
	assert.True(t, p.Match(mustName(t, "/a/b/a/b/c/c")))
	assert.True(t, p.Match(mustName(t, "/c")))
	assert.False(t, p.Match(mustName(t, "/a/b")))
}

func TestEmptySetNegationMatchesAnything(t *testing.T) {
	p, err := Compile("[^]")
	require.NoError(t, err)
	assert.True(t, p.Match(mustName(t, "/anything")))
	assert.False(t, p.Match(mustName(t, "/two/components")))
}
