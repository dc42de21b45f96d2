package linked

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkxedit/hkxedit/internal/tree"
)

const tables = `<tables>
	<hkparam name="variableNames" numelements="3">
		<hkcstring>Speed</hkcstring>
		<hkcstring>Target</hkcstring>
		<hkcstring>Offset</hkcstring>
	</hkparam>
	<hkparam name="variableInfos" numelements="3">
		<hkobject><hkparam name="role"><hkobject><hkparam name="role">ROLE_DEFAULT</hkparam><hkparam name="flags">0</hkparam></hkobject></hkparam><hkparam name="type">VARIABLE_TYPE_REAL</hkparam></hkobject>
		<hkobject><hkparam name="role"><hkobject><hkparam name="role">ROLE_DEFAULT</hkparam><hkparam name="flags">0</hkparam></hkobject></hkparam><hkparam name="type">VARIABLE_TYPE_POINTER</hkparam></hkobject>
		<hkobject><hkparam name="role"><hkobject><hkparam name="role">ROLE_DEFAULT</hkparam><hkparam name="flags">0</hkparam></hkobject></hkparam><hkparam name="type">VARIABLE_TYPE_VECTOR4</hkparam></hkobject>
	</hkparam>
	<hkparam name="wordVariableValues" numelements="3">
		<hkobject><hkparam name="value">1065353216</hkparam></hkobject>
		<hkobject><hkparam name="value">0</hkparam></hkobject>
		<hkobject><hkparam name="value">1</hkparam></hkobject>
	</hkparam>
	<hkparam name="quadVariableValues" numelements="2">
		(0.000000 0.000000 0.000000 1.000000)
		(1.000000 2.000000 3.000000 4.000000)
	</hkparam>
	<hkparam name="variantVariableValues" numelements="1">
		#0042
	</hkparam>
	<hkparam name="eventNames" numelements="2">
		<hkcstring>Jump</hkcstring>
		<hkcstring>Land</hkcstring>
	</hkparam>
	<hkparam name="eventInfos" numelements="2">
		<hkobject><hkparam name="flags">0</hkparam></hkobject>
		<hkobject><hkparam name="flags">FLAG_SYNC_POINT</hkparam></hkobject>
	</hkparam>
	<hkparam name="characterPropertyNames" numelements="0"></hkparam>
	<hkparam name="characterPropertyInfos" numelements="0"></hkparam>
</tables>`

func parseTables(t *testing.T, src string) *tree.Document {
	t.Helper()
	doc, err := tree.ParseBytes([]byte(src))
	require.NoError(t, err)
	return doc
}

func param(doc *tree.Document, name string) tree.NodeID {
	return doc.GetByName(doc.Root(), name)
}

func newVariables(t *testing.T, doc *tree.Document) *VariableManager {
	t.Helper()
	vars, err := NewVariableManager(doc, VariableNodes{
		Names:    param(doc, "variableNames"),
		Infos:    param(doc, "variableInfos"),
		Values:   param(doc, "wordVariableValues"),
		Quads:    param(doc, "quadVariableValues"),
		Pointers: param(doc, "variantVariableValues"),
	}, nil)
	require.NoError(t, err)
	return vars
}

func newEvents(t *testing.T, doc *tree.Document) *EventManager {
	t.Helper()
	events, err := NewEventManager(doc, param(doc, "eventNames"), param(doc, "eventInfos"), nil)
	require.NoError(t, err)
	return events
}

func TestBuildReadsEntries(t *testing.T) {
	doc := parseTables(t, tables)
	vars := newVariables(t, doc)

	assert.Equal(t, 3, vars.Len())
	assert.Equal(t, []string{"Speed", "Target", "Offset"}, vars.Names())

	entry, ok := vars.EntryByName("target")
	require.True(t, ok)
	assert.Equal(t, 1, entry.Index)

	pointer, err := vars.Pointer(1)
	require.NoError(t, err)
	assert.Equal(t, "#0042", pointer)

	quad, err := vars.Quad(2)
	require.NoError(t, err)
	assert.Equal(t, Quad{1, 2, 3, 4}, quad)

	_, err = vars.Quad(0)
	assert.ErrorIs(t, err, ErrWrongType)

	events := newEvents(t, doc)
	flags, err := events.Flags(1)
	require.NoError(t, err)
	assert.Equal(t, "FLAG_SYNC_POINT", flags)
}

func TestBuildRejectsMismatchedContainers(t *testing.T) {
	doc := parseTables(t, tables)
	doc.SetNumElements(param(doc, "eventInfos"), 3)
	_, err := NewEventManager(doc, param(doc, "eventNames"), param(doc, "eventInfos"), nil)
	assert.ErrorIs(t, err, ErrInconsistent)

	doc = parseTables(t, tables)
	doc.Remove(doc.NthChild(param(doc, "eventInfos"), 1))
	doc.SetNumElements(param(doc, "eventInfos"), 1)
	_, err = NewEventManager(doc, param(doc, "eventNames"), param(doc, "eventInfos"), nil)
	assert.ErrorIs(t, err, ErrInconsistent)

	doc = parseTables(t, tables)
	doc.SetNumElements(param(doc, "quadVariableValues"), 3)
	_, err = NewVariableManager(doc, VariableNodes{
		Names:    param(doc, "variableNames"),
		Infos:    param(doc, "variableInfos"),
		Values:   param(doc, "wordVariableValues"),
		Quads:    param(doc, "quadVariableValues"),
		Pointers: param(doc, "variantVariableValues"),
	}, nil)
	assert.ErrorIs(t, err, ErrInconsistent)
}

func TestDeleteTombstonesAndLookupsSkipIt(t *testing.T) {
	doc := parseTables(t, tables)
	events := newEvents(t, doc)

	require.NoError(t, events.Delete(0))
	_, ok := events.Entry(0)
	assert.False(t, ok)
	_, ok = events.EntryByName("jump")
	assert.False(t, ok)
	assert.Equal(t, 2, events.Len())
	assert.Equal(t, 1, events.Live())
	assert.Len(t, doc.Children(param(doc, "eventNames")), 2)

	assert.ErrorIs(t, events.Delete(0), ErrNoEntry)
	assert.ErrorIs(t, events.Delete(7), ErrNoEntry)
}

func TestDeleteRefusesReferencedEntry(t *testing.T) {
	doc := parseTables(t, tables)
	events := newEvents(t, doc)
	events.SetUsageCheck(func(idx int) (string, bool) {
		return "#0007", idx == 1
	})

	err := events.Delete(1)
	var inUse *InUseError
	require.True(t, errors.As(err, &inUse))
	assert.Equal(t, "#0007", inUse.Blocker)
	assert.ErrorIs(t, err, ErrEntryInUse)
	_, ok := events.Entry(1)
	assert.True(t, ok)

	assert.NoError(t, events.Delete(0))
}

func TestAddAppendsToEveryContainer(t *testing.T) {
	doc := parseTables(t, tables)
	events := newEvents(t, doc)

	idx, err := events.AddEvent("Attack")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	for _, name := range []string{"eventNames", "eventInfos"} {
		count, ok := doc.NumElements(param(doc, name))
		require.True(t, ok)
		assert.Equal(t, 3, count, name)
	}
	name, ok := events.Name(2)
	require.True(t, ok)
	assert.Equal(t, "Attack", name)
}

func TestReindexCompactsAndIsIdempotent(t *testing.T) {
	doc := parseTables(t, tables)
	events := newEvents(t, doc)
	_, err := events.AddEvent("Attack")
	require.NoError(t, err)
	require.NoError(t, events.Delete(1))

	remap := events.Reindex()
	assert.Equal(t, map[int]int{0: 0, 2: 1}, remap)
	assert.Equal(t, []string{"Jump", "Attack"}, events.Names())
	count, _ := doc.NumElements(param(doc, "eventInfos"))
	assert.Equal(t, 2, count)
	assert.Len(t, doc.Children(param(doc, "eventInfos")), 2)

	assert.Equal(t, map[int]int{0: 0, 1: 1}, events.Reindex())
}

func TestVariableReindexCompactsSideTables(t *testing.T) {
	doc := parseTables(t, tables)
	vars := newVariables(t, doc)

	// Slot 0 of the quad table has no user before the delete.
	require.NoError(t, vars.Delete(1))
	remap := vars.Reindex()
	assert.Equal(t, map[int]int{0: 0, 2: 1}, remap)

	assert.Empty(t, vars.Pointers())
	count, _ := doc.NumElements(param(doc, "variantVariableValues"))
	assert.Equal(t, 0, count)

	assert.Equal(t, []Quad{{1, 2, 3, 4}}, vars.Quads())
	slot, err := vars.Value(1)
	require.NoError(t, err)
	assert.Equal(t, 0, slot)
	quad, err := vars.Quad(1)
	require.NoError(t, err)
	assert.Equal(t, Quad{1, 2, 3, 4}, quad)
	assert.Equal(t, "(1.000000 2.000000 3.000000 4.000000)", doc.Text(param(doc, "quadVariableValues")))

	assert.Equal(t, map[int]int{0: 0, 1: 1}, vars.Reindex())
}

func TestQuadRewriteKeepsUntouchedSlotText(t *testing.T) {
	src := strings.Replace(tables, "(0.000000 0.000000 0.000000 1.000000)", "(0 -0.0 0 1)", 1)
	doc := parseTables(t, src)
	vars := newVariables(t, doc)
	before := doc.Text(param(doc, "quadVariableValues"))

	require.NoError(t, vars.SetQuad(2, Quad{1, 2, 3, 4}))
	assert.Equal(t, before, doc.Text(param(doc, "quadVariableValues")))

	require.NoError(t, vars.SetQuad(2, Quad{5, 6, 7, 8}))
	assert.Equal(t, "(0 -0.0 0 1) (5.000000 6.000000 7.000000 8.000000)", doc.Text(param(doc, "quadVariableValues")))

	_, err := vars.AddVariable("Facing", TypeQuaternion)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.Text(param(doc, "quadVariableValues")), "(0 -0.0 0 1) (5.000000"))
}

func TestAddVariableAllocatesSlots(t *testing.T) {
	doc := parseTables(t, tables)
	vars := newVariables(t, doc)

	idx, err := vars.AddVariable("Facing", TypeQuaternion)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
	quad, err := vars.Quad(idx)
	require.NoError(t, err)
	assert.Equal(t, Quad{0, 0, 0, 1}, quad)
	count, _ := doc.NumElements(param(doc, "quadVariableValues"))
	assert.Equal(t, 3, count)

	idx, err = vars.AddVariable("Weapon", TypePointer)
	require.NoError(t, err)
	pointer, err := vars.Pointer(idx)
	require.NoError(t, err)
	assert.Equal(t, "null", pointer)
	require.NoError(t, vars.SetPointer(idx, "#0010"))
	assert.Equal(t, "#0042 #0010", doc.Text(param(doc, "variantVariableValues")))

	idx, err = vars.AddVariable("Grounded", TypeBool)
	require.NoError(t, err)
	require.NoError(t, vars.SetValue(idx, 1))
	typ, err := vars.Type(idx)
	require.NoError(t, err)
	assert.Equal(t, TypeBool, typ)

	_, err = vars.AddVariable("Bad", VariableType("VARIABLE_TYPE_STRING"))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestPropertyManager(t *testing.T) {
	doc := parseTables(t, tables)
	props, err := NewPropertyManager(doc, param(doc, "characterPropertyNames"), param(doc, "characterPropertyInfos"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, props.Len())

	idx, err := props.AddProperty("Ragdoll", TypePointer)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	typ, err := props.Type(idx)
	require.NoError(t, err)
	assert.Equal(t, TypePointer, typ)
	require.NoError(t, props.SetName(idx, "RagdollInstance"))
	name, _ := props.Name(idx)
	assert.Equal(t, "RagdollInstance", name)
}

func TestParseVariableType(t *testing.T) {
	typ, err := ParseVariableType("real")
	require.NoError(t, err)
	assert.Equal(t, TypeReal, typ)

	typ, err = ParseVariableType("VARIABLE_TYPE_INT32")
	require.NoError(t, err)
	assert.Equal(t, TypeInt32, typ)

	_, err = ParseVariableType("string")
	assert.ErrorIs(t, err, ErrUnknownType)
}
