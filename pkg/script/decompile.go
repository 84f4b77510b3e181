package script

import (
	"fmt"
	"strings"
)

// DecompileContainer renders a container as re-compilable text: a
// "<Kind> <id>:" header, one indented command per line, an End
// terminator. Unknown opcodes render as CMD_0x<hex> with auto-detected
// parameter formatting; decompilation degrades, it never fails.
func DecompileContainer(cat *Catalog, c *Container) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %d:\n", c.Kind, c.ID))
	for i := range c.Commands {
		sb.WriteString("    ")
		sb.WriteString(decompileCommand(cat, &c.Commands[i]))
		sb.WriteString("\n")
	}
	sb.WriteString("End\n")
	return sb.String()
}

func decompileCommand(cat *Catalog, cmd *Command) string {
	spec := cat.LookupByID(cmd.Opcode)

	name := fmt.Sprintf("CMD_0x%04X", cmd.Opcode)
	if spec != nil {
		name = spec.Name
	}

	parts := make([]string, len(cmd.Params))
	for i := range cmd.Params {
		p := &cmd.Params[i]
		switch {
		case p.Ref != nil:
			// Still symbolic: the container has not been linked yet.
			parts[i] = p.Ref.String()
		case spec != nil && i < len(spec.Params):
			parts[i] = DecodeParameter(p.Bytes, spec.Params[i].Kind)
		default:
			parts[i] = DecodeParameterAuto(p.Bytes)
		}
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

// DecompileFile renders a whole file as one text blob with three
// labeled sections. The section labels are comments and each container
// carries its own header, so the output feeds straight back into
// CompileFile.
func DecompileFile(cat *Catalog, f *ScriptFile) string {
	var sb strings.Builder
	sections := []struct {
		label string
		list  []*Container
	}{
		{"Scripts", f.Scripts},
		{"Functions", f.Functions},
		{"Actions", f.Actions},
	}
	for i, s := range sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("// ===== %s =====\n", s.label))
		for _, c := range s.list {
			sb.WriteString("\n")
			sb.WriteString(DecompileContainer(cat, c))
		}
	}
	return sb.String()
}
