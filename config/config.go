// Package config loads generation and baking settings from YAML or TOML.
//
// A document is read into a generic map, command-line overrides are applied
// to that map by dotted key, and each section is then decoded into its
// struct with weak typing, so "90" and 90 are both accepted for a number.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a document syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the syntax from a file extension. JSON is read as YAML.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
}

// Document is a parsed, not yet decoded configuration.
type Document struct {
	raw map[string]any
}

// NewDocument returns an empty document; every section takes its defaults.
func NewDocument() *Document { return &Document{raw: map[string]any{}} }

// Load reads and parses the file at path.
func Load(path string) (*Document, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	d, err := Parse(data, f)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return d, nil
}

// Parse parses data in the given format.
func Parse(data []byte, f Format) (*Document, error) {
	raw := map[string]any{}
	var err error
	switch f {
	case FormatYAML:
		if len(bytes.TrimSpace(data)) > 0 {
			err = yaml.Unmarshal(data, &raw)
		}
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	default:
		err = fmt.Errorf("unknown format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return &Document{raw: raw}, nil
}

// Set assigns value at a dotted key path, creating intermediate tables.
func (d *Document) Set(key string, value any) error {
	parts := strings.Split(key, ".")
	m := d.raw
	for i, p := range parts {
		if p == "" {
			return fmt.Errorf("config: empty segment in key %q", key)
		}
		if i == len(parts)-1 {
			m[p] = value
			return nil
		}
		next, ok := m[p]
		if !ok {
			child := map[string]any{}
			m[p] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("config: %s is not a table", strings.Join(parts[:i+1], "."))
		}
		m = child
	}
	return nil
}

// Apply applies overrides in order. Each is key=value, or key+=value to
// append to a list.
func (d *Document) Apply(overrides []string) error {
	for _, o := range overrides {
		k, v, ok := strings.Cut(o, "=")
		if !ok {
			return fmt.Errorf("config: override %q is not key=value", o)
		}
		k = strings.TrimSpace(k)
		if key, isAppend := strings.CutSuffix(k, "+"); isAppend {
			if err := d.append(key, v); err != nil {
				return err
			}
			continue
		}
		if err := d.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the raw value at a dotted key path.
func (d *Document) Get(key string) (any, bool) {
	var cur any = d.raw
	for _, p := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func (d *Document) append(key string, value string) error {
	var list []any
	cur, _ := d.Get(key)
	switch prev := cur.(type) {
	case nil:
	case []any:
		list = append(list, prev...)
	case []string:
		for _, s := range prev {
			list = append(list, s)
		}
	default:
		list = append(list, prev)
	}
	return d.Set(key, append(list, value))
}

// File is a decoded configuration. LSystem and Colonize are nil when
// their section is absent.
type File struct {
	LSystem  *LSystem
	Colonize *Colonize
	Raster   Raster
	Log      Log
}

// Decode decodes every section over its defaults and validates the result.
func (d *Document) Decode() (*File, error) {
	var unknown []string
	for k := range d.raw {
		switch k {
		case "lsystem", "colonize", "raster", "log":
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("config: unknown sections %s", strings.Join(unknown, ", "))
	}

	f := &File{Raster: DefaultRaster(), Log: DefaultLog()}
	if v, ok := d.raw["lsystem"]; ok {
		f.LSystem = DefaultLSystem()
		if err := decode("lsystem", v, f.LSystem); err != nil {
			return nil, err
		}
	}
	if v, ok := d.raw["colonize"]; ok {
		f.Colonize = DefaultColonize()
		if err := decode("colonize", v, f.Colonize); err != nil {
			return nil, err
		}
	}
	if v, ok := d.raw["raster"]; ok {
		if err := decode("raster", v, &f.Raster); err != nil {
			return nil, err
		}
	}
	if v, ok := d.raw["log"]; ok {
		if err := decode("log", v, &f.Log); err != nil {
			return nil, err
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadFile loads path (or starts empty when path is ""), applies overrides
// and decodes.
func LoadFile(path string, overrides []string) (*File, error) {
	d := NewDocument()
	if path != "" {
		var err error
		if d, err = Load(path); err != nil {
			return nil, err
		}
	}
	if err := d.Apply(overrides); err != nil {
		return nil, err
	}
	return d.Decode()
}

func decode(section string, in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("config: %s: %w", section, err)
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("config: %s: %w", section, err)
	}
	return nil
}

// Validate reports settings that make generation impossible. Everything
// else degrades at run time.
func (f *File) Validate() error {
	if err := f.Raster.validate(); err != nil {
		return err
	}
	if err := f.Log.validate(); err != nil {
		return err
	}
	if f.LSystem != nil {
		if err := f.LSystem.validate(); err != nil {
			return err
		}
	}
	if f.Colonize != nil {
		if err := f.Colonize.validate(); err != nil {
			return err
		}
	}
	return nil
}
