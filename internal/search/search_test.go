package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkxedit/hkxedit/internal/behavior"
	"github.com/hkxedit/hkxedit/internal/hkx"
)

func loadFile(t *testing.T) *behavior.File {
	t.Helper()
	f, err := behavior.Load("../../fixtures/behavior.xml", hkx.Options{})
	require.NoError(t, err)
	return f
}

func TestSearchRanksNameMatches(t *testing.T) {
	index := Build(loadFile(t))
	require.Equal(t, 19, index.DocumentCount)

	results := Search(index, "idle clip", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "#0016", results[0].ID)

	results = Search(index, "footstep", 5)
	require.Len(t, results, 1)
	assert.Equal(t, "#0021", results[0].ID)

	results = Search(index, "0019", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "#0019", results[0].ID)
}

func TestSearchClassParts(t *testing.T) {
	index := Build(loadFile(t))
	var ids []string
	for _, r := range Search(index, "generator", 20) {
		ids = append(ids, r.ID)
	}
	assert.Contains(t, ids, "#0016")
	assert.Contains(t, ids, "#0017")
	assert.Contains(t, ids, "#0019")
	assert.NotContains(t, ids, "#0021")
}

func TestSearchTypoFallback(t *testing.T) {
	index := Build(loadFile(t))
	results := Search(index, "Idleclp", 3)
	require.NotEmpty(t, results)
	assert.Equal(t, "#0016", results[0].ID)
}

func TestSearchDeterministicOrdering(t *testing.T) {
	index := &Index{
		DocumentCount: 2,
		AvgDocLength:  1,
		DocFreq:       map[string]int{"alpha": 2},
		Documents: []Document{
			{ID: "b", Length: 1, Terms: map[string]int{"alpha": 1}},
			{ID: "a", Length: 1, Terms: map[string]int{"alpha": 1}},
		},
	}

	results := Search(index, "alpha", 2)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)

	assert.Nil(t, Search(nil, "alpha", 2))
	assert.Nil(t, Search(index, "  ", 2))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hkbclipgenerator", "hkb", "clip", "generator"}, tokenize("hkbClipGenerator"))
	assert.Equal(t, []string{"mode_single_play", "mode", "single", "play"}, tokenize("MODE_SINGLE_PLAY"))
	assert.Equal(t, []string{"animations", "idle", "hkx"}, tokenize(`Animations\Idle.hkx`))
}

func TestFilter(t *testing.T) {
	f := loadFile(t)
	cases := []struct {
		expr string
		want []string
	}{
		{`class == "hkbClipGenerator"`, []string{"#0016", "#0019"}},
		{`len(refby) == 0 && !essential`, []string{"#0030"}},
		{`"#0010" in refby`, []string{"#0011", "#0012", "#0013", "#0014"}},
		{`name startsWith "Run"`, []string{"#0013", "#0017", "#0019"}},
		{`params["name"] == "JumpGate"`, []string{"#0018"}},
		{`essential && len(refs) > 1`, []string{"#0002", "#0003"}},
		{`id == "#9999"`, nil},
	}
	for _, tc := range cases {
		got, err := Select(f, tc.expr)
		require.NoError(t, err, tc.expr)
		assert.Equal(t, tc.want, got, tc.expr)
	}
}

func TestFilterRejectsBadExpressions(t *testing.T) {
	_, err := Compile(`class ==`)
	assert.Error(t, err)
	_, err = Compile(`class`)
	assert.Error(t, err)
	_, err = Compile(`nosuchfield == 1`)
	assert.Error(t, err)

	filter, err := Compile(`essential`)
	require.NoError(t, err)
	assert.Equal(t, "essential", filter.String())
	ok, err := filter.Match(loadFile(t), "#0004")
	require.NoError(t, err)
	assert.True(t, ok)
}
