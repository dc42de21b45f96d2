package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkxedit/hkxedit/internal/hkx"
)

func loadGraph(t *testing.T) *hkx.File {
	t.Helper()
	f, err := hkx.Load("../../fixtures/behavior.xml", hkx.Options{})
	require.NoError(t, err)
	return f
}

func ids(records []ObjectRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestReferencesAndReferrers(t *testing.T) {
	g := loadGraph(t)
	assert.Equal(t, []string{"#0011", "#0012", "#0013", "#0014"}, ids(References(g, "#0010")))
	assert.Equal(t, []ObjectRecord{{ID: "#0002", Class: "hkbBehaviorGraph"}}, Referrers(g, "#0010"))
	assert.Empty(t, Referrers(g, "#0030"))
}

func TestShortestPath(t *testing.T) {
	g := loadGraph(t)
	assert.Equal(t,
		[]string{"#0001", "#0002", "#0010", "#0013", "#0017", "#0019", "#0020", "#0021"},
		ShortestPath(g, "#0001", "#0021"))
	assert.Equal(t, []string{"#0012"}, ShortestPath(g, "#0012", "#0012"))
	assert.Nil(t, ShortestPath(g, "#0021", "#0001"))
	assert.Nil(t, ShortestPath(g, "#0001", "#0030"))
}

func TestReconstructPathMissingParent(t *testing.T) {
	assert.Nil(t, ReconstructPath(map[string]string{"b": "a"}, "x", "b"))
}

func TestTraceDepth(t *testing.T) {
	g := loadGraph(t)

	hops := Trace(g, "#0017", 1)
	require.Len(t, hops, 2)
	assert.Equal(t, "#0018", hops[0].To.ID)
	assert.Equal(t, "hkbEventDrivenModifier", hops[0].To.Class)
	assert.Equal(t, "#0019", hops[1].To.ID)

	hops = Trace(g, "#0017", 2)
	require.Len(t, hops, 4)
	assert.Equal(t, 2, hops[2].Depth)
	assert.Equal(t, "#0019", hops[2].From.ID)
	assert.Equal(t, "#0020", hops[2].To.ID)
	assert.Equal(t, "#0022", hops[3].To.ID)

	assert.Empty(t, Trace(g, "#0021", 5))
}

func TestOrphans(t *testing.T) {
	g := loadGraph(t)
	assert.Equal(t, []string{"#0030"}, Orphans(g, "#0001"))
	assert.Equal(t, []string{"#0001", "#0030"}, Orphans(g))
}

func TestRank(t *testing.T) {
	g := loadGraph(t)
	ranks := Rank(g, 20, 0.85)
	require.Len(t, ranks, g.Len())
	assert.Greater(t, ranks["#0021"], ranks["#0030"])
	assert.Greater(t, ranks["#0010"], ranks["#0001"])

	top := TopObjects(g, 3)
	require.Len(t, top, 3)
	assert.GreaterOrEqual(t, top[0].Rank, top[1].Rank)
	assert.GreaterOrEqual(t, top[1].Rank, top[2].Rank)
	assert.Len(t, TopObjects(g, 100), g.Len())

	assert.Empty(t, Rank(emptyGraph{}, 20, 0.85))
}

type emptyGraph struct{}

func (emptyGraph) Objects() []string            { return nil }
func (emptyGraph) Class(string) string          { return "" }
func (emptyGraph) References(string) []string   { return nil }
func (emptyGraph) ReferencedBy(string) []string { return nil }
