package behavior

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkxedit/hkxedit/internal/hkx"
	"github.com/hkxedit/hkxedit/internal/linked"
	"github.com/hkxedit/hkxedit/internal/tree"
)

const fixture = "../../fixtures/behavior.xml"

func load(t *testing.T) *File {
	t.Helper()
	f, err := Load(fixture, hkx.Options{})
	require.NoError(t, err)
	return f
}

// nested returns the named param of the nth anonymous hkobject under list.
func nested(f *File, id, list string, n int, name string) tree.NodeID {
	doc := f.Document()
	return doc.GetByName(doc.NthChild(f.Param(id, list), n), name)
}

func TestLoadLocatesEssentials(t *testing.T) {
	f := load(t)
	assert.Equal(t, []string{"#0001", "#0002", "#0003", "#0004", "#0005"}, f.Essentials())
	assert.Equal(t, "#0002", f.Graph())
	assert.Equal(t, 4, f.Variables().Len())
	assert.Equal(t, 3, f.Events().Len())
	assert.Equal(t, 1, f.Properties().Len())
	assert.False(t, f.Dirty())

	for _, id := range f.Essentials() {
		assert.ErrorIs(t, f.DeleteObject(id), hkx.ErrEssential, id)
	}
	assert.NoError(t, f.DeleteObject("#0030"))
	assert.True(t, f.Dirty())
}

func TestLoadRejectsNonBehaviorFiles(t *testing.T) {
	_, err := Load("../../fixtures/skeleton.xml", hkx.Options{})
	assert.ErrorIs(t, err, hkx.ErrMalformed)

	data, err := os.ReadFile(fixture)
	require.NoError(t, err)
	broken := strings.Replace(string(data), `<hkparam name="stringData">#0004</hkparam>`, `<hkparam name="stringData">null</hkparam>`, 1)
	_, err = Parse(strings.NewReader(broken), "broken.xml", hkx.Options{})
	assert.ErrorIs(t, err, hkx.ErrMalformed)

	mismatched := strings.Replace(string(data), `<hkparam name="eventInfos" numelements="3">`, `<hkparam name="eventInfos" numelements="2">`, 1)
	_, err = Parse(strings.NewReader(mismatched), "mismatched.xml", hkx.Options{})
	assert.ErrorIs(t, err, hkx.ErrMalformed)
	assert.ErrorIs(t, err, linked.ErrInconsistent)
}

func TestClassifyBindings(t *testing.T) {
	f := load(t)
	doc := f.Document()

	variableBinding := nested(f, "#0011", "bindings", 0, "variableIndex")
	propertyBinding := nested(f, "#0011", "bindings", 1, "variableIndex")
	assert.True(t, IsVarNode(doc, variableBinding))
	assert.False(t, IsPropNode(doc, variableBinding))
	assert.True(t, IsPropNode(doc, propertyBinding))
	assert.False(t, IsVarNode(doc, propertyBinding))

	assert.True(t, IsVarNode(doc, f.Param("#0010", "syncVariableIndex")))
	assert.True(t, IsEvtNode(doc, f.Param("#0018", "activateEventId")))
	assert.True(t, IsEvtNode(doc, nested(f, "#0015", "events", 0, "id")))
	assert.Equal(t, KindNone, Classify(doc, f.Param("#0012", "stateId")))
}

func TestClassifyGenericIDNeedsEventContainer(t *testing.T) {
	doc, err := tree.ParseBytes([]byte(`<hkobject name="#0001" class="X" signature="0x1">
	<hkparam name="eventId">3</hkparam>
	<hkparam name="id">3</hkparam>
	<hkparam name="alarmEvent">
		<hkobject>
			<hkparam name="id">3</hkparam>
		</hkobject>
	</hkparam>
	<hkparam name="bones" numelements="1">
		<hkobject>
			<hkparam name="id">3</hkparam>
		</hkobject>
	</hkparam>
	<hkparam name="nested">
		<hkobject>
			<hkparam name="inner">
				<hkobject>
					<hkparam name="eventId">3</hkparam>
				</hkobject>
			</hkparam>
		</hkobject>
	</hkparam>
</hkobject>`))
	require.NoError(t, err)
	root := doc.Root()
	inner := func(param string) tree.NodeID {
		return doc.GetByName(doc.NthChild(doc.GetByName(root, param), 0), "id")
	}

	assert.True(t, IsEvtNode(doc, doc.GetByName(root, "eventId")))
	assert.False(t, IsEvtNode(doc, doc.GetByName(root, "id")))
	assert.True(t, IsEvtNode(doc, inner("alarmEvent")))
	assert.False(t, IsEvtNode(doc, inner("bones")))

	deep := doc.GetByName(doc.NthChild(doc.GetByName(doc.NthChild(doc.GetByName(root, "nested"), 0), "inner"), 0), "eventId")
	assert.True(t, IsEvtNode(doc, deep))
}

func TestClassifySequenceParams(t *testing.T) {
	doc, err := tree.ParseBytes([]byte(`<hksection name="__data__">
	<hkobject name="#0040" class="hkbSequence" signature="0x43182ca3">
		<hkparam name="variableSequencedData" numelements="1">#0041</hkparam>
		<hkparam name="enableEventId">2</hkparam>
		<hkparam name="disableEventId">-1</hkparam>
	</hkobject>
	<hkobject name="#0041" class="hkbVariableSequencedData" signature="0x37416fce">
		<hkparam name="data" numelements="0"></hkparam>
		<hkparam name="variableIndex">1</hkparam>
	</hkobject>
	<hkobject name="#0042" class="hkbSequence" signature="0x43182ca3">
		<hkparam name="variableSequencedData" numelements="1">
			<hkobject>
				<hkparam name="data" numelements="0"></hkparam>
				<hkparam name="variableIndex">0</hkparam>
			</hkobject>
		</hkparam>
	</hkobject>
	<hkobject name="#0043" class="hkbPoseMatchingGenerator" signature="0x29e271b4">
		<hkparam name="variableIndex">0</hkparam>
	</hkobject>
</hksection>`))
	require.NoError(t, err)
	objects := doc.Children(doc.Root())
	sequence, data, inline, other := objects[0], objects[1], objects[2], objects[3]

	assert.True(t, IsEvtNode(doc, doc.GetByName(sequence, "enableEventId")))
	assert.True(t, IsEvtNode(doc, doc.GetByName(sequence, "disableEventId")))
	assert.True(t, IsVarNode(doc, doc.GetByName(data, "variableIndex")))
	inlineIndex := doc.GetByName(doc.NthChild(doc.GetByName(inline, "variableSequencedData"), 0), "variableIndex")
	assert.True(t, IsVarNode(doc, inlineIndex))
	assert.Equal(t, KindNone, Classify(doc, doc.GetByName(other, "variableIndex")))
}

func TestFirstXRef(t *testing.T) {
	f := load(t)

	ref, ok := f.FirstXRef(KindEvent, 1)
	require.True(t, ok)
	assert.Equal(t, "#0015", ref.Object)
	assert.Len(t, f.XRefs(KindEvent, 1), 2)

	ref, ok = f.FirstXRef(KindEvent, 0)
	require.True(t, ok)
	assert.Equal(t, "#0014", ref.Object)

	_, ok = f.FirstXRef(KindEvent, 2)
	assert.False(t, ok)

	ref, ok = f.FirstXRef(KindProperty, 0)
	require.True(t, ok)
	assert.Equal(t, "#0011", ref.Object)
}

func TestDeleteReferencedEntryIsRefused(t *testing.T) {
	f := load(t)

	err := f.DeleteEvent(1)
	var inUse *linked.InUseError
	require.True(t, errors.As(err, &inUse))
	assert.Equal(t, "#0015", inUse.Blocker)
	assert.False(t, f.Dirty())
	_, ok := f.Events().Entry(1)
	assert.True(t, ok)

	assert.ErrorIs(t, f.DeleteProperty(0), linked.ErrEntryInUse)
	require.NoError(t, f.DeleteEvent(2))
	assert.True(t, f.Dirty())
}

func TestTombstoneThenReindexRewritesReferences(t *testing.T) {
	f := load(t)
	doc := f.Document()

	idx, err := f.AddEvent("Extra")
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
	require.NoError(t, f.SetParam("#0018", "deactivateEventId", "3"))

	require.NoError(t, f.DeleteEvent(2))
	remap := f.ReindexEvents()
	assert.Equal(t, map[int]int{0: 0, 1: 1, 3: 2}, remap)

	assert.Equal(t, "2", f.ParamText("#0018", "deactivateEventId"))
	assert.Equal(t, "0", f.ParamText("#0018", "activateEventId"))
	assert.Equal(t, "1", strings.TrimSpace(doc.Text(nested(f, "#0015", "events", 0, "id"))))
	assert.Equal(t, "-1", f.ParamText("#0010", "randomTransitionEventId"))
	assert.Equal(t, []string{"Jump", "Land", "Extra"}, f.Events().Names())
	count, _ := doc.NumElements(f.Param("#0003", "eventInfos"))
	assert.Equal(t, 3, count)

	assert.Equal(t, map[int]int{0: 0, 1: 1, 2: 2}, f.ReindexEvents())
}

func TestVariableReindexLeavesPropertyBindingsAlone(t *testing.T) {
	f := load(t)
	doc := f.Document()

	// Move the only variable use of index 0 to index 1. The property binding
	// that also holds 0 does not count as a variable use.
	doc.SetText(nested(f, "#0022", "bindings", 0, "variableIndex"), "1")
	require.NoError(t, f.DeleteVariable(0))

	remap := f.ReindexVariables()
	assert.Equal(t, map[int]int{1: 0, 2: 1, 3: 2}, remap)
	assert.Equal(t, "0", doc.ParamText(doc.NthChild(f.Param("#0011", "bindings"), 0), "variableIndex"))
	assert.Equal(t, "0", doc.ParamText(doc.NthChild(f.Param("#0022", "bindings"), 0), "variableIndex"))
	assert.Equal(t, "0", doc.ParamText(doc.NthChild(f.Param("#0011", "bindings"), 1), "variableIndex"))
	assert.Equal(t, []string{"IsRunning", "Offset", "Target"}, f.Variables().Names())

	quad, err := f.Variables().Quad(1)
	require.NoError(t, err)
	assert.Equal(t, linked.Quad{0, 1, 0, 0}, quad)
}

func TestCleanupThenReindexShrinksTables(t *testing.T) {
	f := load(t)

	late, err := f.AddVariable("Late", linked.TypeReal)
	require.NoError(t, err)
	require.NoError(t, f.SetParam("#0010", "syncVariableIndex", "4"))

	assert.Equal(t, 2, f.CleanupVariables())
	assert.Equal(t, 1, f.CleanupEvents())
	assert.Equal(t, 0, f.CleanupProperties())

	remaps := f.ReindexAll()
	assert.Equal(t, map[int]int{0: 0, 1: 1, late: 2}, remaps.Variables)
	assert.Equal(t, map[int]int{0: 0, 1: 1}, remaps.Events)
	assert.Equal(t, "2", f.ParamText("#0010", "syncVariableIndex"))

	assert.Equal(t, []string{"Speed", "IsRunning", "Late"}, f.Variables().Names())
	assert.Empty(t, f.Variables().Quads())
	assert.Empty(t, f.Variables().Pointers())
	count, _ := f.Document().NumElements(f.Param("#0005", "quadVariableValues"))
	assert.Equal(t, 0, count)
	assert.Empty(t, f.Check())
}

func TestSaveRoundTrip(t *testing.T) {
	original, err := os.ReadFile(fixture)
	require.NoError(t, err)

	f := load(t)
	out := filepath.Join(t.TempDir(), "saved.xml")
	require.NoError(t, f.Save(out))

	saved, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, string(original), string(saved))

	again, err := Load(out, hkx.Options{})
	require.NoError(t, err)
	assert.Equal(t, f.Objects(), again.Objects())
	for _, id := range f.Objects() {
		assert.Equal(t, f.Class(id), again.Class(id))
		assert.Equal(t, f.References(id), again.References(id))
	}
}

func TestSaveClearsDirtyAndPersistsCompaction(t *testing.T) {
	f := load(t)
	_, err := f.AddEvent("Extra")
	require.NoError(t, err)
	require.NoError(t, f.DeleteEvent(2))
	assert.True(t, f.Dirty())

	out := filepath.Join(t.TempDir(), "saved.xml")
	require.NoError(t, f.Save(out))
	assert.False(t, f.Dirty())

	again, err := Load(out, hkx.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Jump", "Land", "Extra"}, again.Events().Names())
}

func TestPointerVariableHoldsReference(t *testing.T) {
	f := load(t)
	const target = 3

	require.NoError(t, f.SetVariablePointer(target, "#0030"))
	assert.Equal(t, []string{"#0005"}, f.ReferencedBy("#0030"))
	assert.Contains(t, f.References("#0005"), "#0030")
	var blocked *hkx.IntegrityError
	require.ErrorAs(t, f.DeleteObject("#0030"), &blocked)
	assert.Equal(t, "#0005", blocked.Blocker)

	assert.ErrorIs(t, f.SetVariablePointer(target, "#0999"), hkx.ErrNoObject)
	assert.ErrorIs(t, f.SetVariablePointer(0, "#0030"), linked.ErrWrongType)

	require.NoError(t, f.SetVariablePointer(target, "null"))
	assert.Empty(t, f.ReferencedBy("#0030"))
	assert.NoError(t, f.DeleteObject("#0030"))
	assert.NoError(t, f.VerifyRefs())
}

func TestSaveDropsReferencesOfCompactedPointers(t *testing.T) {
	f := load(t)
	require.NoError(t, f.SetVariablePointer(3, "#0030"))
	require.NoError(t, f.DeleteVariable(3))

	out := filepath.Join(t.TempDir(), "saved.xml")
	require.NoError(t, f.Save(out))
	assert.Empty(t, f.Variables().Pointers())
	assert.Empty(t, f.ReferencedBy("#0030"))
	assert.NoError(t, f.VerifyRefs())

	again, err := Load(out, hkx.Options{})
	require.NoError(t, err)
	for _, id := range f.Objects() {
		assert.Equal(t, again.References(id), f.References(id), id)
		assert.Equal(t, again.ReferencedBy(id), f.ReferencedBy(id), id)
	}
	assert.NoError(t, f.DeleteObject("#0030"))
}

func TestSetVariableValuesMarkDirty(t *testing.T) {
	f := load(t)
	require.NoError(t, f.SetVariableValue(1, 1))
	assert.True(t, f.Dirty())
	value, err := f.Variables().Value(1)
	require.NoError(t, err)
	assert.Equal(t, 1, value)

	require.NoError(t, f.SetVariableQuad(2, linked.Quad{1, 2, 3, 4}))
	quad, err := f.Variables().Quad(2)
	require.NoError(t, err)
	assert.Equal(t, linked.Quad{1, 2, 3, 4}, quad)
	assert.ErrorIs(t, f.SetVariableValue(2, 7), linked.ErrWrongType)
}

func TestPreviewDoesNotMutate(t *testing.T) {
	f := load(t)
	assert.Equal(t, 2, f.CleanupVariables())
	before := string(f.Bytes())

	preview := string(f.Preview())
	assert.NotContains(t, preview, "<hkcstring>Offset</hkcstring>")
	assert.Contains(t, preview, `<hkparam name="variableNames" numelements="2">`)

	assert.Equal(t, before, string(f.Bytes()))
	assert.Equal(t, 4, f.Variables().Len())
	assert.Equal(t, 2, f.Variables().Live())
}

func TestCheckReportsDanglingIndex(t *testing.T) {
	f := load(t)
	assert.Empty(t, f.Check())

	require.NoError(t, f.SetParam("#0018", "activateEventId", "9"))
	problems := f.Check()
	require.Len(t, problems, 1)
	assert.Equal(t, "#0018", problems[0].ID)
	assert.Contains(t, problems[0].Message, "event index 9")
}

func TestCloneIsIndependent(t *testing.T) {
	f := load(t)
	clone := f.Clone()

	_, err := clone.AddVariable("OnlyInClone", linked.TypeBool)
	require.NoError(t, err)
	assert.Equal(t, 5, clone.Variables().Len())
	assert.Equal(t, 4, f.Variables().Len())
	assert.NotContains(t, string(f.Bytes()), "OnlyInClone")

	assert.ErrorIs(t, clone.DeleteEvent(1), linked.ErrEntryInUse)
	assert.ErrorIs(t, clone.DeleteObject("#0003"), hkx.ErrEssential)
}
