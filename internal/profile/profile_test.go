package profile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsprogd/jsprogd/internal/profile"
	"github.com/jsprogd/jsprogd/internal/registry"
)

const doc = `
<profile name="test">
  <prologue>rumble = 0</prologue>
  <control type="key" code="BTN_TRIGGER">press_key(KEY_G)</control>
  <control type="axis" code="0x00">move_rel(REL_X, value)</control>
  <epilogue>rumble = nil</epilogue>
</profile>
`

func TestParseResolvesSymbolicAndNumericCodes(t *testing.T) {
	p, err := profile.Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, "test", p.Name)
	require.Equal(t, "rumble = 0", p.Prologue)
	require.Len(t, p.Bindings, 2)

	require.Equal(t, registry.Key, p.Bindings[0].Type)
	require.EqualValues(t, 0x120, p.Bindings[0].Code) // BTN_TRIGGER

	require.Equal(t, registry.Axis, p.Bindings[1].Type)
	require.EqualValues(t, 0x00, p.Bindings[1].Code)
}

func TestParseUnknownControlType(t *testing.T) {
	_, err := profile.Parse([]byte(`<profile><control type="dial" code="0">x()</control></profile>`))
	require.Error(t, err)
}

func TestParseUnknownSymbolicCode(t *testing.T) {
	_, err := profile.Parse([]byte(`<profile><control type="key" code="KEY_NOPE">x()</control></profile>`))
	require.Error(t, err)
}

func TestParseMalformedXML(t *testing.T) {
	_, err := profile.Parse([]byte(`<profile>`))
	require.Error(t, err)
}
