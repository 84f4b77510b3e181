// Package catalog loads the command database that drives compilation
// and decompilation. Two JSON schemas are accepted: a simple array of
// commands, and a richer object keyed by hex opcode carrying explicit
// per-parameter byte widths. Either way the result is an immutable
// script.Catalog snapshot; reloading builds a new snapshot and never
// mutates one a running compile might hold.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"dstools/pkg/script"
)

var (
	ErrInvalidJSON   = errors.New("catalog is not valid JSON")
	ErrInvalidSchema = errors.New("catalog matches neither schema")
	ErrBadCommand    = errors.New("bad command definition")
)

// Load parses catalog JSON in either schema.
//
// Array schema:
//
//	[{"id": 5, "name": "Wait", "params": ["Word"]}, ...]
//
// Keyed schema:
//
//	{"0x0005": {"name": "Wait",
//	            "params": [{"type": "Word", "size": 2, "name": "frames"}]}}
func Load(data []byte) (*script.Catalog, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)

	var specs []script.CommandSpec
	var err error
	switch {
	case root.IsArray():
		specs, err = loadArray(root)
	case root.IsObject():
		specs, err = loadKeyed(root)
	default:
		return nil, ErrInvalidSchema
	}
	if err != nil {
		return nil, err
	}
	return script.NewCatalog(specs)
}

// LoadFile reads and parses a catalog file.
func LoadFile(path string) (*script.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	cat, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

func loadArray(root gjson.Result) ([]script.CommandSpec, error) {
	var specs []script.CommandSpec
	var err error
	root.ForEach(func(_, entry gjson.Result) bool {
		id := entry.Get("id")
		name := entry.Get("name")
		if !id.Exists() || !name.Exists() {
			err = fmt.Errorf("%w: entry %s needs id and name", ErrBadCommand, entry.Raw)
			return false
		}
		if id.Int() < 0 || id.Int() > 0xFFFF {
			err = fmt.Errorf("%w: id %d exceeds 16 bits", ErrBadCommand, id.Int())
			return false
		}
		spec := script.CommandSpec{ID: uint16(id.Int()), Name: name.String()}
		for _, p := range entry.Get("params").Array() {
			kind, kerr := script.ParseParameterKind(p.String())
			if kerr != nil {
				err = fmt.Errorf("%w: %s parameter %q", ErrBadCommand, spec.Name, p.String())
				return false
			}
			spec.Params = append(spec.Params, script.ParameterSpec{Kind: kind})
		}
		specs = append(specs, spec)
		return true
	})
	return specs, err
}

func loadKeyed(root gjson.Result) ([]script.CommandSpec, error) {
	var specs []script.CommandSpec
	var err error
	root.ForEach(func(key, entry gjson.Result) bool {
		id, perr := parseOpcodeKey(key.String())
		if perr != nil {
			err = perr
			return false
		}
		name := entry.Get("name")
		if !name.Exists() {
			err = fmt.Errorf("%w: %s has no name", ErrBadCommand, key.String())
			return false
		}
		spec := script.CommandSpec{ID: id, Name: name.String()}
		for _, p := range entry.Get("params").Array() {
			kind, kerr := script.ParseParameterKind(p.Get("type").String())
			if kerr != nil {
				err = fmt.Errorf("%w: %s parameter type %q",
					ErrBadCommand, spec.Name, p.Get("type").String())
				return false
			}
			spec.Params = append(spec.Params, script.ParameterSpec{
				Kind:        kind,
				Size:        int(p.Get("size").Int()),
				Name:        p.Get("name").String(),
				Description: p.Get("desc").String(),
			})
		}
		specs = append(specs, spec)
		return true
	})
	return specs, err
}

func parseOpcodeKey(key string) (uint16, error) {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(key)), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: opcode key %q", ErrBadCommand, key)
	}
	return uint16(v), nil
}
