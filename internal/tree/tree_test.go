package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<?xml version="1.0" encoding="ascii"?>
<hkpackfile classversion="8" toplevelobject="#0001">
	<hksection name="__data__">
		<hkobject name="#0001" class="hkRootLevelContainer" signature="0x2772c11e">
			<hkparam name="label">a &amp; b &#9;</hkparam>
			<hkparam name="children" numelements="2">
				#0002
				#0003
			</hkparam>
			<hkparam name="names" numelements="1">
				<hkcstring>first</hkcstring>
			</hkparam>
		</hkobject>
	</hksection>
</hkpackfile>
`

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := ParseBytes([]byte(src))
	require.NoError(t, err)
	return doc
}

func TestParseBuildsArena(t *testing.T) {
	doc := mustParse(t, sample)

	assert.Equal(t, `<?xml version="1.0" encoding="ascii"?>`, doc.Declaration())
	assert.Equal(t, "hkpackfile", doc.Tag(doc.Root()))

	section := doc.FirstChildByTag(doc.Root(), "hksection")
	require.True(t, doc.Valid(section))
	object := doc.NthChild(section, 0)
	assert.Equal(t, "#0001", doc.Attr(object, "name"))
	assert.Equal(t, "hkRootLevelContainer", doc.Attr(object, "class"))

	children := doc.GetByName(object, "children")
	assert.Equal(t, []string{"#0002", "#0003"}, doc.Fields(children))
	second, ok := doc.Field(children, 1)
	assert.True(t, ok)
	assert.Equal(t, "#0003", second)
	_, ok = doc.Field(children, 2)
	assert.False(t, ok)

	assert.Equal(t, InvalidNode, doc.GetByName(object, "missing"))
	assert.Equal(t, InvalidNode, doc.NthChild(object, 10))
}

func TestParseKeepsEntitiesRaw(t *testing.T) {
	doc := mustParse(t, sample)
	section := doc.FirstChildByTag(doc.Root(), "hksection")
	label := doc.GetByName(doc.NthChild(section, 0), "label")
	assert.Equal(t, "a &amp; b &#9;", doc.Text(label))

	out := string(doc.Bytes())
	assert.Contains(t, out, `<hkparam name="label">a &amp; b &#9;</hkparam>`)

	again := mustParse(t, out)
	assert.Equal(t, out, string(again.Bytes()))
}

func TestParseRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"mismatched": `<a><b></a>`,
		"truncated":  `<a><b></b>`,
		"two roots":  `<a></a><b></b>`,
		"empty":      ``,
		"stray text": `<a></a>text`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBytes([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestAppendFragmentBumpsNumElements(t *testing.T) {
	doc := mustParse(t, sample)
	section := doc.FirstChildByTag(doc.Root(), "hksection")
	names := doc.GetByName(doc.NthChild(section, 0), "names")

	id, err := doc.AppendFragment(names, `<hkcstring>second</hkcstring>`)
	require.NoError(t, err)
	assert.Equal(t, "second", doc.Text(id))
	assert.Equal(t, names, doc.Parent(id))
	count, ok := doc.NumElements(names)
	assert.True(t, ok)
	assert.Equal(t, 2, count)
	assert.Equal(t, id, doc.NthChild(names, 1))

	_, err = doc.AppendFragment(names, `<hkcstring>broken`)
	assert.Error(t, err)
	count, _ = doc.NumElements(names)
	assert.Equal(t, 2, count)
	assert.Len(t, doc.Children(names), 2)
}

func TestRemoveKeepsOtherHandles(t *testing.T) {
	doc := mustParse(t, sample)
	section := doc.FirstChildByTag(doc.Root(), "hksection")
	object := doc.NthChild(section, 0)
	label := doc.GetByName(object, "label")
	names := doc.GetByName(object, "names")
	inner := doc.NthChild(names, 0)

	doc.Remove(names)
	assert.False(t, doc.Valid(names))
	assert.False(t, doc.Valid(inner))
	assert.True(t, doc.Valid(label))
	assert.Equal(t, InvalidNode, doc.GetByName(object, "names"))
	assert.NotContains(t, string(doc.Bytes()), "hkcstring")
}

func TestWalkVisitsInDocumentOrder(t *testing.T) {
	doc := mustParse(t, `<a><b><c></c></b><d></d></a>`)
	var tags []string
	doc.Walk(doc.Root(), func(id NodeID) bool {
		tags = append(tags, doc.Tag(id))
		return doc.Tag(id) != "b"
	})
	assert.Equal(t, []string{"a", "b", "d"}, tags)
}

func TestTypedAccessors(t *testing.T) {
	doc := mustParse(t, `<p><v> 42 </v></p>`)
	v := doc.FirstChildByTag(doc.Root(), "v")
	n, err := doc.Int(v)
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	doc.SetInt(v, -1)
	assert.Equal(t, "-1", doc.Text(v))
}

func TestCloneIsIndependent(t *testing.T) {
	doc := mustParse(t, sample)
	clone := doc.Clone()
	section := clone.FirstChildByTag(clone.Root(), "hksection")
	clone.SetAttr(clone.NthChild(section, 0), "class", "Changed")

	assert.True(t, strings.Contains(string(doc.Bytes()), "hkRootLevelContainer"))
	assert.True(t, strings.Contains(string(clone.Bytes()), `class="Changed"`))
}
