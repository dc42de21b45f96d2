package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkxedit/hkxedit/internal/tree"
)

func TestBuiltinTemplatesAreWellFormed(t *testing.T) {
	r := NewDefaultRegistry()
	for _, name := range r.Classes() {
		c, ok := r.Lookup(name)
		require.True(t, ok, name)

		doc, err := tree.ParseBytes([]byte(c.DefaultValue("#0123")))
		require.NoError(t, err, name)
		root := doc.Root()
		assert.Equal(t, "hkobject", doc.Tag(root), name)
		assert.Equal(t, "#0123", doc.Attr(root, "name"), name)
		assert.Equal(t, name, doc.Attr(root, "class"), name)
		assert.Empty(t, c.Validate(doc, root), name)
	}
}

func TestLookupUnknownClass(t *testing.T) {
	r := NewDefaultRegistry()
	_, ok := r.Lookup("hkbNoSuchGenerator")
	assert.False(t, ok)

	var nilRegistry *Registry
	_, ok = nilRegistry.Lookup("hkbStateMachine")
	assert.False(t, ok)
}

func TestValidateReportsDrift(t *testing.T) {
	r := NewDefaultRegistry()
	c, _ := r.Lookup("hkbStringEventPayload")

	doc, err := tree.ParseBytes([]byte(`<hkobject name="#0001" class="hkbStringEventPayload" signature="0xed04256a"><hkparam name="extra">1</hkparam></hkobject>`))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{`missing param "data"`, `unexpected param "extra"`}, c.Validate(doc, doc.Root()))
}

func TestLoadFileRegistersTemplates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `templates:
  - class: BSIsActiveModifier
    signature: "0xb0fde45a"
    body: |
      <hkparam name="variableBindingSet">null</hkparam>
      <hkparam name="bIsActive0">false</hkparam>
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r := NewDefaultRegistry()
	n, err := r.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, ok := r.Lookup("BSIsActiveModifier")
	require.True(t, ok)
	assert.Equal(t, "0xb0fde45a", c.Signature())
	assert.Contains(t, c.DefaultValue("#0002"), `name="#0002"`)
}

func TestLoadFileRejectsMalformedBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := "templates:\n  - class: Broken\n    body: \"<hkparam name=\\\"x\\\">\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r := NewRegistry()
	_, err := r.LoadFile(path)
	assert.Error(t, err)
	_, ok := r.Lookup("Broken")
	assert.False(t, ok)
}
