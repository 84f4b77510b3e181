package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LineClass classifies one line of script text.
type LineClass int

const (
	LineBlank   LineClass = iota
	LineComment           // // or # comment
	LineHeader            // "Script 3:" container header
	LineEnd               // "End" block terminator
	LineCommand           // a command invocation
)

// Line is one classified line of script text.
type Line struct {
	Class      LineClass
	Number     int // 1-based
	Name       string
	Params     []string
	HeaderKind ContainerKind
	HeaderID   uint32
}

// SyntaxError reports a line that looks like a command but matches
// neither grammar. Malformed-but-intended commands must fail loudly;
// silently skipping them is how scripts end up doing nothing.
type SyntaxError struct {
	Line       int
	Text       string
	Suggestion string
}

func (e *SyntaxError) Error() string {
	msg := fmt.Sprintf("line %d: cannot parse %q", e.Line, e.Text)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

var (
	headerRE = regexp.MustCompile(`^(?i)(script|function|action)\s+(\d+)\s*:\s*(?://.*|#.*)?$`)
	identRE  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)
)

// ParseLine classifies one line and, for commands, splits it into a
// name and raw parameter texts. Two grammars are accepted:
// Name(a, b, c) with top-level comma splitting, and bare Name a b c
// split on whitespace.
func ParseLine(text string, number int) (Line, error) {
	trimmed := strings.TrimSpace(text)
	line := Line{Number: number}

	switch {
	case trimmed == "":
		line.Class = LineBlank
		return line, nil
	case strings.HasPrefix(trimmed, "//"), strings.HasPrefix(trimmed, "#"):
		line.Class = LineComment
		return line, nil
	}

	if m := headerRE.FindStringSubmatch(trimmed); m != nil {
		kind, _ := ParseContainerKind(m[1])
		id, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return line, &SyntaxError{Line: number, Text: trimmed}
		}
		line.Class = LineHeader
		line.HeaderKind = kind
		line.HeaderID = uint32(id)
		return line, nil
	}

	if strings.EqualFold(trimmed, "end") {
		line.Class = LineEnd
		return line, nil
	}

	ident := identRE.FindString(trimmed)
	if ident == "" {
		return line, &SyntaxError{Line: number, Text: trimmed}
	}
	rest := strings.TrimSpace(trimmed[len(ident):])

	line.Class = LineCommand
	line.Name = ident

	// Call grammar: Name(a, b, ...).
	if strings.HasPrefix(rest, "(") {
		params, err := splitCallParams(rest, ident, number, trimmed)
		if err != nil {
			return line, err
		}
		line.Params = params
		return line, nil
	}

	// Bare grammar: Name a b c. Brackets in the tail mean a mangled
	// call; refuse rather than misread the parameters.
	if strings.ContainsAny(rest, "()") {
		return line, &SyntaxError{
			Line:       number,
			Text:       trimmed,
			Suggestion: ident + "(" + strings.Trim(rest, "() \t") + ")",
		}
	}
	if rest != "" {
		line.Params = strings.Fields(rest)
	}
	return line, nil
}

// splitCallParams splits "(a, b, c)" on top-level commas, tracking
// nesting across ()[]{} so a parameter may itself contain commas.
func splitCallParams(rest, ident string, number int, full string) ([]string, error) {
	depth := 0
	var params []string
	var cur strings.Builder
	closed := -1

	for i, r := range rest {
		if closed >= 0 {
			// Anything but trailing whitespace after the close is noise.
			if !strings.ContainsRune(" \t", r) {
				return nil, &SyntaxError{
					Line:       number,
					Text:       full,
					Suggestion: ident + rest[:closed+1],
				}
			}
			continue
		}
		switch r {
		case '(', '[', '{':
			depth++
			if depth > 1 {
				cur.WriteRune(r)
			}
		case ')', ']', '}':
			depth--
			if depth > 0 {
				cur.WriteRune(r)
			} else if depth == 0 {
				closed = i
			} else {
				return nil, &SyntaxError{Line: number, Text: full}
			}
		case ',':
			if depth == 1 {
				params = append(params, strings.TrimSpace(cur.String()))
				cur.Reset()
			} else {
				cur.WriteRune(r)
			}
		default:
			cur.WriteRune(r)
		}
	}
	if closed < 0 {
		return nil, &SyntaxError{
			Line:       number,
			Text:       full,
			Suggestion: ident + rest + ")",
		}
	}

	last := strings.TrimSpace(cur.String())
	if last != "" {
		params = append(params, last)
	} else if len(params) > 0 {
		// "Name(a,)" has a dangling comma.
		return nil, &SyntaxError{Line: number, Text: full}
	}
	for _, p := range params {
		if p == "" {
			return nil, &SyntaxError{Line: number, Text: full}
		}
	}
	return params, nil
}
