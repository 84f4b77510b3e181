package script

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Unresolved reports a symbolic reference whose target container was
// not part of the linked file. It is a content problem, not a toolchain
// failure: the write still completes and the placeholder bytes stay.
type Unresolved struct {
	Source   ContainerKind
	SourceID uint32
	Target   Reference
	Position int // absolute offset of the 4 unpatched bytes
}

func (u Unresolved) String() string {
	return fmt.Sprintf("%s %d references missing %s at byte 0x%X",
		u.Source, u.SourceID, u.Target, u.Position)
}

// Placement records where one container landed in the linked buffer.
type Placement struct {
	ID     uint32 `json:"id"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
}

// Layout is the linker's sidecar: the region boundaries the byte stream
// itself does not carry. The header only locates Script containers, so
// reading Function and Action regions back requires this (see ReadFile).
type Layout struct {
	Scripts   []Placement `json:"scripts"`
	Functions []Placement `json:"functions"`
	Actions   []Placement `json:"actions"`
}

// Bytes lays the file out and performs relocation:
//
//  1. one little-endian uint32 header slot per Script container
//  2. the 0xFD13 magic
//  3. Script, then Function container bytes, back to back
//  4. one zero pad byte iff the Action region would start odd
//  5. Action container bytes
//
// Pass one records every container's absolute offset; pass two patches
// each pending Offset parameter with target - (position + 4), the
// engine's pc-relative convention. Header slots are back-patched last.
// Missing targets are returned as diagnostics, never an abort.
func (f *ScriptFile) Bytes() ([]byte, *Layout, []Unresolved) {
	headerSize := 4*len(f.Scripts) + 2

	// Pass one: place every container.
	layout := &Layout{}
	offsets := make(map[Reference]int)
	pos := headerSize
	place := func(list []*Container, dst *[]Placement) {
		for _, c := range list {
			p := Placement{ID: c.ID, Offset: pos, Size: c.Size()}
			*dst = append(*dst, p)
			offsets[Reference{Kind: c.Kind, ID: c.ID}] = pos
			pos += p.Size
		}
	}
	place(f.Scripts, &layout.Scripts)
	place(f.Functions, &layout.Functions)
	padded := pos%2 == 1
	if padded {
		pos++ // Action region must start halfword-aligned
	}
	place(f.Actions, &layout.Actions)

	buf := make([]byte, pos)
	binary.LittleEndian.PutUint16(buf[4*len(f.Scripts):], Magic)

	// Write command streams.
	regions := [][]*Container{f.Scripts, f.Functions, f.Actions}
	placements := []*[]Placement{&layout.Scripts, &layout.Functions, &layout.Actions}
	for r, list := range regions {
		for i, c := range list {
			at := (*placements[r])[i].Offset
			for j := range c.Commands {
				cmd := &c.Commands[j]
				binary.LittleEndian.PutUint16(buf[at:], cmd.Opcode)
				at += 2
				for k := range cmd.Params {
					at += copy(buf[at:], cmd.Params[k].Bytes)
				}
			}
		}
	}

	// Pass two: patch pending references now that every target has an
	// address.
	var unresolved []Unresolved
	for r, list := range regions {
		for i, c := range list {
			at := (*placements[r])[i].Offset
			for j := range c.Commands {
				cmd := &c.Commands[j]
				at += 2
				for k := range cmd.Params {
					p := &cmd.Params[k]
					if p.Ref != nil {
						target, ok := offsets[*p.Ref]
						if ok {
							rel := int32(target - (at + 4))
							binary.LittleEndian.PutUint32(buf[at:], uint32(rel))
						} else {
							unresolved = append(unresolved, Unresolved{
								Source:   c.Kind,
								SourceID: c.ID,
								Target:   *p.Ref,
								Position: at,
							})
						}
					}
					at += p.Size()
				}
			}
		}
	}

	// Back-patch the header with the Script offsets.
	for i, p := range layout.Scripts {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(p.Offset))
	}

	return buf, layout, unresolved
}

// ReadFile reconstructs a script file from bytes using only the header.
// The header locates Script containers; each one's extent runs to the
// next header offset, the last to end of data. Function and Action
// regions are not self-delimited in this format and are NOT recovered
// here; use ReadFileWithLayout when the linker's Layout sidecar is
// available.
func ReadFile(cat *Catalog, data []byte, id uint32) (*ScriptFile, error) {
	headerOffsets, err := readHeader(data)
	if err != nil {
		return nil, err
	}

	f := NewScriptFile(id)
	if len(headerOffsets) == 0 {
		return f, nil
	}

	// Extents come from the sorted offsets; containers were written
	// back to back in header order.
	sorted := append([]int(nil), headerOffsets...)
	sort.Ints(sorted)
	end := func(start int) int {
		for _, o := range sorted {
			if o > start {
				return o
			}
		}
		return len(data)
	}

	for i, start := range headerOffsets {
		c, err := decodeContainer(cat, data, start, end(start), ContainerScript, uint32(i))
		if err != nil {
			return nil, fmt.Errorf("script %d: %w", i, err)
		}
		f.Scripts = append(f.Scripts, c)
	}
	return f, nil
}

// ReadFileWithLayout reconstructs all three regions from bytes plus the
// Layout sidecar produced when the file was linked.
func ReadFileWithLayout(cat *Catalog, data []byte, id uint32, layout *Layout) (*ScriptFile, error) {
	f := NewScriptFile(id)
	regions := []struct {
		kind       ContainerKind
		placements []Placement
	}{
		{ContainerScript, layout.Scripts},
		{ContainerFunction, layout.Functions},
		{ContainerAction, layout.Actions},
	}
	for _, r := range regions {
		for _, p := range r.placements {
			if p.Offset < 0 || p.Offset+p.Size > len(data) {
				return nil, fmt.Errorf("%s %d: %w", r.kind, p.ID, ErrUnexpectedEOF)
			}
			c, err := decodeContainer(cat, data, p.Offset, p.Offset+p.Size, r.kind, p.ID)
			if err != nil {
				return nil, fmt.Errorf("%s %d: %w", r.kind, p.ID, err)
			}
			f.Add(c)
		}
	}
	return f, nil
}

// readHeader collects script offsets up to the 0xFD13 magic.
func readHeader(data []byte) ([]int, error) {
	var offsets []int
	pos := 0
	for {
		if pos+2 > len(data) {
			return nil, ErrInvalidMagic
		}
		if binary.LittleEndian.Uint16(data[pos:]) == Magic {
			return offsets, nil
		}
		if pos+4 > len(data) {
			return nil, ErrInvalidMagic
		}
		offsets = append(offsets, int(binary.LittleEndian.Uint32(data[pos:])))
		pos += 4
	}
}

// decodeContainer walks [start, end) reading commands. A known opcode
// consumes exactly its declared parameter widths; an unknown opcode has
// no declared widths, so only its 2 bytes are consumed and decoding
// carries on.
func decodeContainer(cat *Catalog, data []byte, start, end int, kind ContainerKind, id uint32) (*Container, error) {
	if start < 0 || start > len(data) || end > len(data) || end < start {
		return nil, ErrUnexpectedEOF
	}
	c := &Container{Kind: kind, ID: id}
	pos := start
	for pos+2 <= end {
		opcode := binary.LittleEndian.Uint16(data[pos:])
		pos += 2

		spec := cat.LookupByID(opcode)
		if spec == nil {
			c.Commands = append(c.Commands, Command{Opcode: opcode})
			continue
		}

		cmd := Command{Opcode: opcode, Params: make([]Parameter, 0, spec.Arity())}
		for _, ps := range spec.Params {
			w := ps.DecodeWidth()
			if pos+w > end {
				return nil, fmt.Errorf("%w: %s at 0x%X", ErrUnexpectedEOF, spec.Name, pos)
			}
			cmd.Params = append(cmd.Params, Parameter{
				Kind:  ps.Kind,
				Bytes: append([]byte(nil), data[pos:pos+w]...),
			})
			pos += w
		}
		c.Commands = append(c.Commands, cmd)
	}
	return c, nil
}
