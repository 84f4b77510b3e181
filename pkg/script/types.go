// Package script handles DS event-script container compilation and
// decompilation. A script file packs three regions of command containers
// (Script, Function, Action) behind an offset header; cross-container
// references are resolved to relative offsets when the file is linked.
package script

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

// Magic terminates the script-offset header.
const Magic uint16 = 0xFD13

// MaxReferenceID is the largest container id a symbolic reference can name.
const MaxReferenceID = 1<<24 - 1

// Common errors
var (
	ErrInvalidMagic    = errors.New("invalid script file magic")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrUnknownOpcode   = errors.New("unknown opcode")
	ErrArityMismatch   = errors.New("wrong parameter count")
	ErrValueRange      = errors.New("value out of range")
	ErrBadLiteral      = errors.New("cannot parse literal")
	ErrReferenceRange  = errors.New("reference id exceeds 24 bits")
	ErrDuplicateSpec   = errors.New("duplicate command definition")
	ErrUnexpectedEOF   = errors.New("unexpected end of container data")
	ErrUnknownKind    = errors.New("unknown kind name")
	ErrEmptyParameter = errors.New("empty parameter")
)

// ParameterKind determines how a textual parameter is encoded.
type ParameterKind int

const (
	KindByte     ParameterKind = iota // 1 byte
	KindWord                          // 2 bytes, little-endian
	KindDWord                         // 4 bytes, little-endian
	KindOffset                        // 4 bytes, address or symbolic reference
	KindVariable                      // caller-determined run of raw bytes
)

// String returns the kind name used in catalogs and diagnostics.
func (k ParameterKind) String() string {
	switch k {
	case KindByte:
		return "Byte"
	case KindWord:
		return "Word"
	case KindDWord:
		return "DWord"
	case KindOffset:
		return "Offset"
	case KindVariable:
		return "Variable"
	default:
		return "unknown"
	}
}

// Width returns the encoded byte width, or 0 for Variable.
func (k ParameterKind) Width() int {
	switch k {
	case KindByte:
		return 1
	case KindWord:
		return 2
	case KindDWord, KindOffset:
		return 4
	default:
		return 0
	}
}

// Max returns the largest value the kind can hold. Variable parameters
// are lists of bytes, so each element shares the Byte bound.
func (k ParameterKind) Max() uint64 {
	switch k {
	case KindByte, KindVariable:
		return 0xFF
	case KindWord:
		return 0xFFFF
	default:
		return 0xFFFFFFFF
	}
}

// ParseParameterKind resolves a kind name, case-insensitively.
func ParseParameterKind(s string) (ParameterKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "byte":
		return KindByte, nil
	case "word":
		return KindWord, nil
	case "dword":
		return KindDWord, nil
	case "offset":
		return KindOffset, nil
	case "variable":
		return KindVariable, nil
	}
	return 0, ErrUnknownKind
}

// ContainerKind selects one of the three regions of a script file.
type ContainerKind int

const (
	ContainerScript ContainerKind = iota
	ContainerFunction
	ContainerAction
)

func (k ContainerKind) String() string {
	switch k {
	case ContainerScript:
		return "Script"
	case ContainerFunction:
		return "Function"
	case ContainerAction:
		return "Action"
	default:
		return "unknown"
	}
}

// ParseContainerKind resolves a region name, case-insensitively.
func ParseContainerKind(s string) (ContainerKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "script":
		return ContainerScript, true
	case "function":
		return ContainerFunction, true
	case "action":
		return ContainerAction, true
	}
	return 0, false
}

// Reference names a container symbolically. It exists only between
// parameter encoding and file linking; the written file carries the
// resolved relative offset instead.
type Reference struct {
	Kind ContainerKind
	ID   uint32
}

func (r Reference) String() string {
	return r.Kind.String() + "#" + strconv.FormatUint(uint64(r.ID), 10)
}

// Parameter is one encoded command parameter. Bytes always holds the
// on-disk width; Ref is set on Offset parameters that still await
// relocation, in which case Bytes is a 4-byte placeholder.
type Parameter struct {
	Kind  ParameterKind
	Bytes []byte
	Ref   *Reference
}

// Size returns the encoded width in bytes.
func (p *Parameter) Size() int {
	return len(p.Bytes)
}

// Command is one instruction instance: an opcode and its encoded
// parameters.
type Command struct {
	Opcode uint16
	Params []Parameter
}

// Size returns the command's byte length: 2-byte opcode plus parameters.
func (c *Command) Size() int {
	n := 2
	for i := range c.Params {
		n += c.Params[i].Size()
	}
	return n
}

// Equal reports whether two commands have the same opcode, parameter
// bytes and pending references.
func (c *Command) Equal(o *Command) bool {
	if c.Opcode != o.Opcode || len(c.Params) != len(o.Params) {
		return false
	}
	for i := range c.Params {
		a, b := &c.Params[i], &o.Params[i]
		if !bytes.Equal(a.Bytes, b.Bytes) {
			return false
		}
		if (a.Ref == nil) != (b.Ref == nil) {
			return false
		}
		if a.Ref != nil && *a.Ref != *b.Ref {
			return false
		}
	}
	return true
}

// Container is an ordered command sequence identified by (kind, id).
type Container struct {
	Kind     ContainerKind
	ID       uint32
	Commands []Command
}

// Size returns the container's byte length.
func (c *Container) Size() int {
	n := 0
	for i := range c.Commands {
		n += c.Commands[i].Size()
	}
	return n
}

// Equal reports whether two containers hold identical command streams.
func (c *Container) Equal(o *Container) bool {
	if c.Kind != o.Kind || c.ID != o.ID || len(c.Commands) != len(o.Commands) {
		return false
	}
	for i := range c.Commands {
		if !c.Commands[i].Equal(&o.Commands[i]) {
			return false
		}
	}
	return true
}

// ScriptFile is the top-level unit: three ordered container lists.
// It is not safe for concurrent mutation; one writer owns it.
type ScriptFile struct {
	ID        uint32
	Scripts   []*Container
	Functions []*Container
	Actions   []*Container
}

// NewScriptFile returns an empty file with the given numeric id.
func NewScriptFile(id uint32) *ScriptFile {
	return &ScriptFile{ID: id}
}

// Add appends a container to the region matching its kind.
func (f *ScriptFile) Add(c *Container) {
	switch c.Kind {
	case ContainerScript:
		f.Scripts = append(f.Scripts, c)
	case ContainerFunction:
		f.Functions = append(f.Functions, c)
	case ContainerAction:
		f.Actions = append(f.Actions, c)
	}
}

// Lookup finds a container by (kind, id), or nil.
func (f *ScriptFile) Lookup(kind ContainerKind, id uint32) *Container {
	for _, c := range f.region(kind) {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Remove deletes the container with (kind, id), reporting whether it
// was present.
func (f *ScriptFile) Remove(kind ContainerKind, id uint32) bool {
	list := f.region(kind)
	for i, c := range list {
		if c.ID == id {
			list = append(list[:i], list[i+1:]...)
			switch kind {
			case ContainerScript:
				f.Scripts = list
			case ContainerFunction:
				f.Functions = list
			case ContainerAction:
				f.Actions = list
			}
			return true
		}
	}
	return false
}

// Containers returns all containers in file order: Scripts, Functions,
// then Actions. The slice shares the file's container pointers.
func (f *ScriptFile) Containers() []*Container {
	out := make([]*Container, 0, len(f.Scripts)+len(f.Functions)+len(f.Actions))
	out = append(out, f.Scripts...)
	out = append(out, f.Functions...)
	out = append(out, f.Actions...)
	return out
}

// Equal reports whether two files hold identical containers in the same
// order.
func (f *ScriptFile) Equal(o *ScriptFile) bool {
	a, b := f.Containers(), o.Containers()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (f *ScriptFile) region(kind ContainerKind) []*Container {
	switch kind {
	case ContainerScript:
		return f.Scripts
	case ContainerFunction:
		return f.Functions
	case ContainerAction:
		return f.Actions
	default:
		return nil
	}
}
