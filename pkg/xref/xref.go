// Package xref builds a cross-reference report over a compiled (not yet
// linked) script file: which containers reference which, which
// references have no target, and which Function/Action containers
// nothing points at. Running it before linking turns the linker's
// unresolved-reference diagnostics into an up-front report.
package xref

import (
	"fmt"
	"sort"
	"strings"

	"dstools/pkg/script"
)

// MissingRef is a reference whose target container is absent from the
// file.
type MissingRef struct {
	From   script.Reference
	Target script.Reference
}

func (m MissingRef) String() string {
	return fmt.Sprintf("%s references missing %s", m.From, m.Target)
}

// Report is the cross-reference graph of one script file.
type Report struct {
	// CallGraph maps a container to the containers it references, in
	// first-reference order without duplicates.
	CallGraph map[script.Reference][]script.Reference
	// ReverseGraph maps a container to the containers referencing it.
	ReverseGraph map[script.Reference][]script.Reference
	// Missing lists references with no target in the file.
	Missing []MissingRef
	// Unreferenced lists Function and Action containers nothing points
	// at. Scripts are entry points and are never listed.
	Unreferenced []script.Reference
}

// Analyze walks every pending reference in the file and builds the
// report. Already-linked files carry no pending references and produce
// an empty graph.
func Analyze(f *script.ScriptFile) *Report {
	r := &Report{
		CallGraph:    make(map[script.Reference][]script.Reference),
		ReverseGraph: make(map[script.Reference][]script.Reference),
	}

	present := make(map[script.Reference]bool)
	for _, c := range f.Containers() {
		present[script.Reference{Kind: c.Kind, ID: c.ID}] = true
	}

	referenced := make(map[script.Reference]bool)
	for _, c := range f.Containers() {
		from := script.Reference{Kind: c.Kind, ID: c.ID}
		seen := make(map[script.Reference]bool)
		for i := range c.Commands {
			cmd := &c.Commands[i]
			for j := range cmd.Params {
				ref := cmd.Params[j].Ref
				if ref == nil {
					continue
				}
				target := *ref
				referenced[target] = true
				if !present[target] {
					r.Missing = append(r.Missing, MissingRef{From: from, Target: target})
					continue
				}
				if !seen[target] {
					seen[target] = true
					r.CallGraph[from] = append(r.CallGraph[from], target)
					r.ReverseGraph[target] = append(r.ReverseGraph[target], from)
				}
			}
		}
	}

	for _, c := range f.Containers() {
		if c.Kind == script.ContainerScript {
			continue
		}
		ref := script.Reference{Kind: c.Kind, ID: c.ID}
		if !referenced[ref] {
			r.Unreferenced = append(r.Unreferenced, ref)
		}
	}

	return r
}

// Format renders the report as a readable listing.
func (r *Report) Format() string {
	var sb strings.Builder

	froms := make([]script.Reference, 0, len(r.CallGraph))
	for from := range r.CallGraph {
		froms = append(froms, from)
	}
	sortRefs(froms)

	sb.WriteString("References:\n")
	if len(froms) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, from := range froms {
		targets := make([]string, len(r.CallGraph[from]))
		for i, t := range r.CallGraph[from] {
			targets[i] = t.String()
		}
		sb.WriteString(fmt.Sprintf("  %s -> %s\n", from, strings.Join(targets, ", ")))
	}

	if len(r.Missing) > 0 {
		sb.WriteString("Missing targets:\n")
		for _, m := range r.Missing {
			sb.WriteString("  " + m.String() + "\n")
		}
	}
	if len(r.Unreferenced) > 0 {
		sb.WriteString("Unreferenced:\n")
		for _, u := range r.Unreferenced {
			sb.WriteString("  " + u.String() + "\n")
		}
	}
	return sb.String()
}

func sortRefs(refs []script.Reference) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].ID < refs[j].ID
	})
}
