package script

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

// UnknownCommandError reports a command name absent from the catalog.
type UnknownCommandError struct {
	Name string
	Line int
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("line %d: %v: %s", e.Line, ErrUnknownCommand, e.Name)
}

func (e *UnknownCommandError) Unwrap() error {
	return ErrUnknownCommand
}

// ArityError reports a parameter-count mismatch against the declared
// signature.
type ArityError struct {
	Command   string
	Signature string
	Expected  int
	Got       int
	Line      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("line %d: %s: expected %d parameter(s), got %d; signature is %s",
		e.Line, e.Command, e.Expected, e.Got, e.Signature)
}

func (e *ArityError) Unwrap() error {
	return ErrArityMismatch
}

// CompileError wraps any compilation failure with the container it
// occurred in.
type CompileError struct {
	Kind ContainerKind
	ID   uint32
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.Kind, e.ID, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// CompileContainer compiles one container's text. Header lines of the
// target kind and End terminators inside the text are tolerated; blocks
// introduced by a header of a different kind are skipped whole. Any
// error aborts the container: no partial container is returned.
func CompileContainer(cat *Catalog, text string, kind ContainerKind, id uint32) (*Container, error) {
	c := &Container{Kind: kind, ID: id}
	wrap := func(err error) error {
		return &CompileError{Kind: kind, ID: id, Err: err}
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	skipping := false

	for scanner.Scan() {
		lineNo++
		line, err := ParseLine(scanner.Text(), lineNo)
		if err != nil {
			if skipping {
				continue
			}
			return nil, wrap(err)
		}

		switch line.Class {
		case LineBlank, LineComment:
			continue
		case LineHeader:
			// A stray header of another kind starts a foreign block;
			// skip it rather than misclassify its commands.
			skipping = line.HeaderKind != kind
			continue
		case LineEnd:
			skipping = false
			continue
		}

		if skipping {
			continue
		}

		cmd, err := compileCommand(cat, line)
		if err != nil {
			return nil, wrap(err)
		}
		c.Commands = append(c.Commands, *cmd)
	}
	if err := scanner.Err(); err != nil {
		return nil, wrap(err)
	}
	return c, nil
}

func compileCommand(cat *Catalog, line Line) (*Command, error) {
	spec := cat.LookupByName(line.Name)
	if spec == nil {
		return nil, &UnknownCommandError{Name: line.Name, Line: line.Number}
	}
	if len(line.Params) != spec.Arity() {
		return nil, &ArityError{
			Command:   spec.Name,
			Signature: spec.Signature(),
			Expected:  spec.Arity(),
			Got:       len(line.Params),
			Line:      line.Number,
		}
	}

	cmd := &Command{Opcode: spec.ID, Params: make([]Parameter, 0, spec.Arity())}
	for i, text := range line.Params {
		p, err := EncodeParameter(spec.Name, i+1, text, spec.Params[i].Kind)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line.Number, err)
		}
		cmd.Params = append(cmd.Params, p)
	}
	return cmd, nil
}

// CompileAll compiles every block of the given kind from a multi-block
// text. Blocks are introduced by "<Kind> <id>:" headers and optionally
// terminated by End lines; blocks of other kinds are skipped. Lines
// before the first header belong to no block and must be blank or
// comments.
func CompileAll(cat *Catalog, text string, kind ContainerKind) ([]*Container, error) {
	type block struct {
		id    uint32
		lines []string
		first int // line number of the header
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0

	var blocks []*block
	var cur *block
	inForeign := false

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line, err := ParseLine(raw, lineNo)
		if err != nil {
			if inForeign {
				continue
			}
			if cur == nil {
				return nil, err
			}
			cur.lines = append(cur.lines, raw)
			continue
		}

		switch line.Class {
		case LineHeader:
			if line.HeaderKind == kind {
				cur = &block{id: line.HeaderID, first: lineNo}
				blocks = append(blocks, cur)
				inForeign = false
			} else {
				cur = nil
				inForeign = true
			}
			continue
		case LineEnd:
			cur = nil
			inForeign = false
			continue
		case LineBlank, LineComment:
			if cur != nil {
				cur.lines = append(cur.lines, raw)
			}
			continue
		}

		if inForeign {
			continue
		}
		if cur == nil {
			return nil, &SyntaxError{
				Line:       lineNo,
				Text:       strings.TrimSpace(raw),
				Suggestion: fmt.Sprintf("%s <id>: before line %d", kind, lineNo),
			}
		}
		cur.lines = append(cur.lines, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// A bad block aborts that container only; the rest still compile so
	// batch callers see every problem in one pass.
	out := make([]*Container, 0, len(blocks))
	var errs []error
	for _, b := range blocks {
		// Leading newlines keep line numbers absolute within the blob:
		// the header sat on line b.first, content starts right after.
		body := strings.Repeat("\n", b.first) + strings.Join(b.lines, "\n")
		c, err := CompileContainer(cat, body, kind, b.id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	return out, errors.Join(errs...)
}

// CompileFile compiles the three regions of a script file. Each region
// text may be the same blob: CompileAll extracts only its own kind's
// blocks. Container failures do not stop the other containers; all
// errors come back joined, alongside the file holding every container
// that did compile.
func CompileFile(cat *Catalog, id uint32, scriptsText, functionsText, actionsText string) (*ScriptFile, error) {
	f := NewScriptFile(id)
	var errs []error

	regions := []struct {
		kind ContainerKind
		text string
	}{
		{ContainerScript, scriptsText},
		{ContainerFunction, functionsText},
		{ContainerAction, actionsText},
	}
	for _, r := range regions {
		containers, err := CompileAll(cat, r.text, r.kind)
		if err != nil {
			errs = append(errs, err)
		}
		for _, c := range containers {
			f.Add(c)
		}
	}
	return f, errors.Join(errs...)
}
