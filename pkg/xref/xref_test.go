package xref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dstools/pkg/script"
)

func testFile(t *testing.T) *script.ScriptFile {
	t.Helper()
	cat, err := script.NewCatalog([]script.CommandSpec{
		{ID: 0x0002, Name: "Halt"},
		{ID: 0x0016, Name: "Jump", Params: []script.ParameterSpec{{Kind: script.KindOffset}}},
		{ID: 0x001A, Name: "Call", Params: []script.ParameterSpec{{Kind: script.KindOffset}}},
	})
	require.NoError(t, err)

	blob := `Script 0:
    Call(Function#1)
    Jump(Function#1)
    Call(Function#9)
End
Function 1:
    Call(Action#0)
    Halt()
End
Function 2:
    Halt()
End
Action 0:
    Halt()
End`
	f, err := script.CompileFile(cat, 1, blob, blob, blob)
	require.NoError(t, err)
	return f
}

func TestAnalyzeCallGraph(t *testing.T) {
	r := Analyze(testFile(t))

	s0 := script.Reference{Kind: script.ContainerScript, ID: 0}
	f1 := script.Reference{Kind: script.ContainerFunction, ID: 1}
	a0 := script.Reference{Kind: script.ContainerAction, ID: 0}

	// Duplicate references collapse to one edge.
	assert.Equal(t, []script.Reference{f1}, r.CallGraph[s0])
	assert.Equal(t, []script.Reference{a0}, r.CallGraph[f1])
	assert.Equal(t, []script.Reference{s0}, r.ReverseGraph[f1])
}

func TestAnalyzeMissingTargets(t *testing.T) {
	r := Analyze(testFile(t))

	require.Len(t, r.Missing, 1)
	assert.Equal(t, script.Reference{Kind: script.ContainerFunction, ID: 9}, r.Missing[0].Target)
	assert.Equal(t, script.Reference{Kind: script.ContainerScript, ID: 0}, r.Missing[0].From)
}

func TestAnalyzeUnreferenced(t *testing.T) {
	r := Analyze(testFile(t))

	require.Len(t, r.Unreferenced, 1)
	assert.Equal(t, script.Reference{Kind: script.ContainerFunction, ID: 2}, r.Unreferenced[0])
}

func TestAnalyzeMatchesLinkerDiagnostics(t *testing.T) {
	f := testFile(t)
	r := Analyze(f)
	_, _, unresolved := f.Bytes()

	require.Len(t, unresolved, len(r.Missing))
	assert.Equal(t, r.Missing[0].Target, unresolved[0].Target)
}

func TestFormat(t *testing.T) {
	out := Analyze(testFile(t)).Format()
	assert.Contains(t, out, "Script#0 -> Function#1")
	assert.Contains(t, out, "Missing targets:")
	assert.Contains(t, out, "Unreferenced:")
	assert.Contains(t, out, "Function#2")
}
