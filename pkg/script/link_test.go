package script

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, cat *Catalog, text string, kind ContainerKind, id uint32) *Container {
	t.Helper()
	c, err := CompileContainer(cat, text, kind, id)
	require.NoError(t, err)
	return c
}

func TestBytesHeaderAndMagic(t *testing.T) {
	cat := testCatalog(t)
	f := NewScriptFile(1)
	f.Add(mustCompile(t, cat, "Wait(1500)", ContainerScript, 0))
	f.Add(mustCompile(t, cat, "Halt()", ContainerScript, 1))

	data, layout, unresolved := f.Bytes()
	assert.Empty(t, unresolved)

	// Two header slots then the magic.
	assert.Equal(t, Magic, binary.LittleEndian.Uint16(data[8:]))
	assert.Equal(t, uint32(10), binary.LittleEndian.Uint32(data[0:]))
	assert.Equal(t, uint32(14), binary.LittleEndian.Uint32(data[4:]))

	require.Len(t, layout.Scripts, 2)
	assert.Equal(t, Placement{ID: 0, Offset: 10, Size: 4}, layout.Scripts[0])
	assert.Equal(t, Placement{ID: 1, Offset: 14, Size: 2}, layout.Scripts[1])

	// Wait(1500) encodes as 05 00 DC 05.
	assert.Equal(t, []byte{0x05, 0x00, 0xDC, 0x05}, data[10:14])
}

func TestBytesRelativeOffsets(t *testing.T) {
	cat := testCatalog(t)
	f := NewScriptFile(1)
	// Header: 2 scripts -> 10 bytes.
	// Script 0 at 10, size 4. Script 1 at 14: Jump (6) + Halt (2) = 8.
	// Function 2 at 22: Call (6).
	f.Add(mustCompile(t, cat, "Wait(1500)", ContainerScript, 0))
	f.Add(mustCompile(t, cat, "Jump(Function#2)\nHalt()", ContainerScript, 1))
	f.Add(mustCompile(t, cat, "Call(Script#0)", ContainerFunction, 2))

	data, layout, unresolved := f.Bytes()
	require.Empty(t, unresolved)
	require.Len(t, layout.Functions, 1)
	assert.Equal(t, 22, layout.Functions[0].Offset)

	// Jump's parameter bytes sit at p=16; target oB=22: rel = 22-(16+4).
	forward := int32(binary.LittleEndian.Uint32(data[16:]))
	assert.Equal(t, int32(2), forward)

	// Call's parameter bytes sit at p=24; target oA=10: rel = 10-(24+4).
	backward := int32(binary.LittleEndian.Uint32(data[24:]))
	assert.Equal(t, int32(-18), backward)

	// Linking does not consume the in-memory reference tags.
	assert.NotNil(t, f.Scripts[1].Commands[0].Params[0].Ref)
}

func TestBytesActionAlignment(t *testing.T) {
	cat := testCatalog(t)
	f := NewScriptFile(1)
	// Header 6 bytes, script size 3 -> Actions would start at 9 (odd).
	f.Add(mustCompile(t, cat, "Flag(1)", ContainerScript, 0))
	f.Add(mustCompile(t, cat, "Halt()", ContainerAction, 0))

	data, layout, _ := f.Bytes()
	require.Len(t, layout.Actions, 1)
	assert.Equal(t, 10, layout.Actions[0].Offset)
	assert.Equal(t, byte(0), data[9])
	assert.Equal(t, 12, len(data))

	// An even boundary gets no pad byte.
	f2 := NewScriptFile(1)
	f2.Add(mustCompile(t, cat, "Halt()", ContainerScript, 0))
	f2.Add(mustCompile(t, cat, "Halt()", ContainerAction, 0))
	_, layout2, _ := f2.Bytes()
	assert.Equal(t, 8, layout2.Actions[0].Offset)
}

func TestBytesUnresolvedReference(t *testing.T) {
	cat := testCatalog(t)
	f := NewScriptFile(1)
	f.Add(mustCompile(t, cat, "Jump(Function#9)", ContainerScript, 0))

	data, _, unresolved := f.Bytes()
	require.Len(t, unresolved, 1)
	u := unresolved[0]
	assert.Equal(t, ContainerScript, u.Source)
	assert.Equal(t, uint32(0), u.SourceID)
	assert.Equal(t, Reference{Kind: ContainerFunction, ID: 9}, u.Target)
	assert.Equal(t, 8, u.Position)
	assert.Contains(t, u.String(), "Function#9")

	// The write still completed; the placeholder bytes stay zero.
	assert.Equal(t, []byte{0, 0, 0, 0}, data[8:12])
}

func TestReadFileScriptsOnly(t *testing.T) {
	cat := testCatalog(t)
	f := NewScriptFile(7)
	f.Add(mustCompile(t, cat, "Wait(1500)\nHalt()", ContainerScript, 0))
	f.Add(mustCompile(t, cat, "SetVar(1, 2)", ContainerScript, 1))

	data, _, _ := f.Bytes()
	got, err := ReadFile(cat, data, 7)
	require.NoError(t, err)
	assert.True(t, f.Equal(got))
	assert.Equal(t, uint32(7), got.ID)
}

func TestReadFileRejectsGarbage(t *testing.T) {
	cat := testCatalog(t)
	_, err := ReadFile(cat, []byte{0x01, 0x02, 0x03}, 0)
	assert.ErrorIs(t, err, ErrInvalidMagic)

	_, err = ReadFile(cat, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestRoundTripWholeFile(t *testing.T) {
	cat := testCatalog(t)
	blob := `Script 0:
    Wait(1500)
    Jump(Function#1)
End
Script 1:
    SetVar(0x4000, 5)
    Halt()
End
Function 1:
    Data(1 2 3)
    Call(Action#0)
    Halt()
End
Action 0:
    Flag(255)
End`
	f, err := CompileFile(cat, 3, blob, blob, blob)
	require.NoError(t, err)

	data, layout, unresolved := f.Bytes()
	require.Empty(t, unresolved)

	got, err := ReadFileWithLayout(cat, data, 3, layout)
	require.NoError(t, err)

	// Pending references were resolved to concrete offsets on the way
	// through the binary; compare the relinked bytes.
	redata, relayout, reunresolved := got.Bytes()
	assert.Empty(t, reunresolved)
	assert.Equal(t, data, redata)
	assert.Equal(t, layout, relayout)
}

func TestReadFileWithLayoutUnknownOpcode(t *testing.T) {
	cat := testCatalog(t)
	f := NewScriptFile(1)
	f.Add(mustCompile(t, cat, "Halt()", ContainerScript, 0))

	data, layout, _ := f.Bytes()
	// Swap the Halt opcode for one the catalog has never heard of.
	binary.LittleEndian.PutUint16(data[layout.Scripts[0].Offset:], 0x0999)

	got, err := ReadFileWithLayout(cat, data, 1, layout)
	require.NoError(t, err)
	require.Len(t, got.Scripts[0].Commands, 1)
	assert.Equal(t, uint16(0x0999), got.Scripts[0].Commands[0].Opcode)
	assert.Empty(t, got.Scripts[0].Commands[0].Params)
}

func TestReadFileWithLayoutTruncated(t *testing.T) {
	cat := testCatalog(t)
	f := NewScriptFile(1)
	f.Add(mustCompile(t, cat, "Wait(1)", ContainerScript, 0))

	data, layout, _ := f.Bytes()
	_, err := ReadFileWithLayout(cat, data[:len(data)-1], 1, layout)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}
