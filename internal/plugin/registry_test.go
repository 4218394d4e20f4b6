package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winter/internal/markup"
	"winter/internal/rules"
	"winter/internal/symbols"
)

type fakeBundle struct {
	name     string
	exts     []string
	caps     Capabilities
	triggers []string
}

func (b *fakeBundle) Name() string         { return b.name }
func (b *fakeBundle) Extensions() []string { return b.exts }

func (b *fakeBundle) Parse(path string, src []byte) (*markup.Document, error) {
	return markup.NewDocument(path, src)
}

func (b *fakeBundle) Schema() *symbols.Schema    { return &symbols.Schema{} }
func (b *fakeBundle) Rules() []rules.Rule        { return nil }
func (b *fakeBundle) Capabilities() Capabilities { return b.caps }

type completingBundle struct{ fakeBundle }

func (b *completingBundle) TriggerCharacters() []string { return b.triggers }
func (b *completingBundle) Complete(context.Context, string, []byte, int, int) []Completion {
	return nil
}

func TestRegistryRouting(t *testing.T) {
	wix := &completingBundle{fakeBundle{name: "wix", exts: []string{".wxs", "WXI", ".wxl"}, caps: CapDiagnostics | CapHover, triggers: []string{"<", " ", "\""}}}
	xml := &completingBundle{fakeBundle{name: "xml", exts: []string{"xml", ".wxl"}, caps: CapFormatting, triggers: []string{"<", "="}}}
	r := NewRegistry(wix, xml)

	b, ok := r.ForPath(`C:\src\Product.WXS`)
	require.True(t, ok)
	assert.Equal(t, "wix", b.Name())

	b, ok = r.ForPath("strings.wxl")
	require.True(t, ok)
	assert.Equal(t, "xml", b.Name(), "later registration wins")

	b, ok = r.ForURI("file:///home/u/proj/inc.wxi?x=1")
	require.True(t, ok)
	assert.Equal(t, "wix", b.Name())

	_, ok = r.ForURI("file:///home/u.d/README")
	assert.False(t, ok)
	_, ok = r.ForPath("noext")
	assert.False(t, ok)
	assert.False(t, r.Supports("a.txt"))

	assert.Equal(t, []string{"wxi", "wxl", "wxs", "xml"}, r.Extensions())
	assert.Equal(t, []string{" ", "\"", "<", "="}, r.TriggerCharacters())

	caps := r.Capabilities()
	assert.True(t, caps.Has(CapHover|CapFormatting))
	assert.False(t, caps.Has(CapReferences))
	assert.Len(t, r.Bundles(), 2)
}

func TestRegistryIgnoresNonCompleting(t *testing.T) {
	r := NewRegistry(&fakeBundle{name: "plain", exts: []string{"txt"}, triggers: []string{"@"}})
	assert.Empty(t, r.TriggerCharacters())
}
