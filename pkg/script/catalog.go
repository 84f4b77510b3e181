package script

import (
	"fmt"
	"strings"
)

// ParameterSpec describes one parameter position of a command.
// Size overrides the kind's natural width when decoding; for Variable
// parameters it is the declared byte count consumed from the stream
// (defaulting to 1 when a catalog does not state one).
type ParameterSpec struct {
	Kind        ParameterKind
	Size        int
	Name        string
	Description string
}

// DecodeWidth returns the byte count this parameter occupies on disk.
func (p ParameterSpec) DecodeWidth() int {
	if p.Kind == KindVariable {
		if p.Size > 0 {
			return p.Size
		}
		return 1
	}
	return p.Kind.Width()
}

// CommandSpec is the immutable definition of one script command.
type CommandSpec struct {
	ID     uint16
	Name   string
	Params []ParameterSpec
}

// Arity returns the declared parameter count.
func (s *CommandSpec) Arity() int {
	return len(s.Params)
}

// Signature renders the command's declared shape for diagnostics,
// e.g. "Wait(Word frames)".
func (s *CommandSpec) Signature() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		if p.Name != "" {
			parts[i] = p.Kind.String() + " " + p.Name
		} else {
			parts[i] = p.Kind.String()
		}
	}
	return s.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Catalog is an immutable snapshot of the command database. A reload
// builds a new Catalog; in-flight compiles keep the snapshot they were
// given, so swapping catalogs never races a running operation.
type Catalog struct {
	byID   map[uint16]*CommandSpec
	byName map[string]*CommandSpec
	order  []uint16
}

// NewCatalog builds a snapshot from command definitions. Duplicate ids
// or names (case-insensitive) are rejected.
func NewCatalog(specs []CommandSpec) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[uint16]*CommandSpec, len(specs)),
		byName: make(map[string]*CommandSpec, len(specs)),
	}
	for i := range specs {
		s := specs[i]
		if _, ok := c.byID[s.ID]; ok {
			return nil, fmt.Errorf("%w: id 0x%04X", ErrDuplicateSpec, s.ID)
		}
		key := strings.ToLower(s.Name)
		if key == "" {
			return nil, fmt.Errorf("%w: id 0x%04X has no name", ErrDuplicateSpec, s.ID)
		}
		if _, ok := c.byName[key]; ok {
			return nil, fmt.Errorf("%w: name %q", ErrDuplicateSpec, s.Name)
		}
		s.Params = append([]ParameterSpec(nil), s.Params...)
		c.byID[s.ID] = &s
		c.byName[key] = &s
		c.order = append(c.order, s.ID)
	}
	return c, nil
}

// LookupByID finds a command definition by opcode, or nil.
func (c *Catalog) LookupByID(id uint16) *CommandSpec {
	return c.byID[id]
}

// LookupByName finds a command definition by name, case-insensitively,
// or nil.
func (c *Catalog) LookupByName(name string) *CommandSpec {
	return c.byName[strings.ToLower(name)]
}

// Len returns the number of definitions in the snapshot.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Commands returns the definitions in load order.
func (c *Catalog) Commands() []*CommandSpec {
	out := make([]*CommandSpec, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
