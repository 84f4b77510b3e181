package script

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Named constants accepted wherever a numeric literal is. Matched
// case-insensitively, and only for literals that are not themselves
// valid numbers.
var namedConstants = map[string]uint64{
	"equal":          0,
	"notequal":       1,
	"less":           2,
	"lessorequal":    3,
	"greater":        4,
	"greaterorequal": 5,
	"false":          0,
	"true":           1,
	"null":           0,
	"none":           0,
}

var referenceRE = regexp.MustCompile(`^(?i)(script|function|action)#(\d+)$`)

// EncodeError reports a parameter that could not be encoded. Index is
// 1-based; the message names the command, the offending text and the
// expected kind and range so hand-edited scripts can be fixed without
// a debugger.
type EncodeError struct {
	Command string
	Index   int
	Text    string
	Kind    ParameterKind
	Err     error
}

func (e *EncodeError) Error() string {
	msg := fmt.Sprintf("parameter %d of %s: cannot encode %q as %s",
		e.Index, e.Command, e.Text, e.Kind)
	switch e.Err {
	case ErrValueRange:
		return fmt.Sprintf("%s: value out of range (0-%d)", msg, e.Kind.Max())
	case ErrReferenceRange:
		return fmt.Sprintf("%s: reference id out of range (0-%d)", msg, MaxReferenceID)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// EncodeParameter encodes one textual parameter for the given kind.
// command names the owning command and index is 1-based; both appear
// only in diagnostics.
func EncodeParameter(command string, index int, text string, kind ParameterKind) (Parameter, error) {
	fail := func(err error) (Parameter, error) {
		return Parameter{}, &EncodeError{Command: command, Index: index, Text: text, Kind: kind, Err: err}
	}

	lit := strings.TrimSpace(text)
	if lit == "" {
		return fail(ErrEmptyParameter)
	}

	switch kind {
	case KindVariable:
		elems := strings.FieldsFunc(lit, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(elems) == 0 {
			return fail(ErrEmptyParameter)
		}
		buf := make([]byte, len(elems))
		for i, e := range elems {
			v, err := parseScalar(e, 0xFF)
			if err != nil {
				return fail(err)
			}
			buf[i] = byte(v)
		}
		return Parameter{Kind: kind, Bytes: buf}, nil

	case KindOffset:
		if m := referenceRE.FindStringSubmatch(lit); m != nil {
			target, ok := ParseContainerKind(m[1])
			if !ok {
				return fail(ErrUnknownKind)
			}
			id, err := strconv.ParseUint(m[2], 10, 64)
			if err != nil || id > MaxReferenceID {
				return fail(ErrReferenceRange)
			}
			return Parameter{
				Kind:  kind,
				Bytes: make([]byte, 4),
				Ref:   &Reference{Kind: target, ID: uint32(id)},
			}, nil
		}
		// Address literals may be written @1234 or @0x1234. The
		// decompiler emits @ plus exactly 8 hex digits; that shape is
		// read back as hex so decode output re-encodes bit-identically.
		if rest, ok := strings.CutPrefix(lit, "@"); ok {
			lit = rest
			if isHex8(lit) {
				lit = "0x" + lit
			}
		}
		v, err := parseScalar(lit, kind.Max())
		if err != nil {
			return fail(err)
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v))
		return Parameter{Kind: kind, Bytes: buf}, nil

	default:
		v, err := parseScalar(lit, kind.Max())
		if err != nil {
			return fail(err)
		}
		buf := make([]byte, kind.Width())
		switch kind {
		case KindByte:
			buf[0] = byte(v)
		case KindWord:
			binary.LittleEndian.PutUint16(buf, uint16(v))
		case KindDWord:
			binary.LittleEndian.PutUint32(buf, uint32(v))
		}
		return Parameter{Kind: kind, Bytes: buf}, nil
	}
}

// parseScalar parses an unsigned literal: 0x-prefixed hex, plain
// decimal, or a named constant. The named-constant table is consulted
// only when the literal is not a valid number.
func parseScalar(lit string, max uint64) (uint64, error) {
	var v uint64
	var err error
	lower := strings.ToLower(lit)
	if strings.HasPrefix(lower, "0x") {
		v, err = strconv.ParseUint(lit[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(lit, 10, 64)
	}
	if err != nil {
		c, ok := namedConstants[lower]
		if !ok {
			return 0, ErrBadLiteral
		}
		v = c
	}
	if v > max {
		return 0, ErrValueRange
	}
	return v, nil
}

// DecodeParameter renders encoded parameter bytes back to text using
// the declared kind. Relocated Offset values render as @-prefixed
// 8-digit hex; the symbolic target they once named is not recoverable
// here.
func DecodeParameter(data []byte, kind ParameterKind) string {
	switch kind {
	case KindByte:
		if len(data) < 1 {
			return hexDump(data)
		}
		return strconv.Itoa(int(data[0]))
	case KindWord:
		if len(data) < 2 {
			return hexDump(data)
		}
		return strconv.Itoa(int(binary.LittleEndian.Uint16(data)))
	case KindDWord:
		if len(data) < 4 {
			return hexDump(data)
		}
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(data)), 10)
	case KindOffset:
		if len(data) < 4 {
			return hexDump(data)
		}
		return fmt.Sprintf("@%08X", binary.LittleEndian.Uint32(data))
	case KindVariable:
		parts := make([]string, len(data))
		for i, b := range data {
			parts[i] = strconv.Itoa(int(b))
		}
		return strings.Join(parts, " ")
	default:
		return hexDump(data)
	}
}

// DecodeParameterAuto renders parameter bytes without a kind hint:
// the common fixed widths as decimal, anything else as a hex dump.
func DecodeParameterAuto(data []byte) string {
	switch len(data) {
	case 1:
		return strconv.Itoa(int(data[0]))
	case 2:
		return strconv.Itoa(int(binary.LittleEndian.Uint16(data)))
	case 4:
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(data)), 10)
	default:
		return hexDump(data)
	}
}

func isHex8(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func hexDump(data []byte) string {
	return "0x" + strings.ToUpper(hex.EncodeToString(data))
}
