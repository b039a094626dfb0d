package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/prunepack/pkg/errors"
)

// Targets is one or many module IDs. Registry files may write a single
// string or a list.
type Targets []string

// UnmarshalJSON accepts "id" or ["a", "b"].
func (t *Targets) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Targets{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*t = list
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence.
func (t *Targets) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*t = Targets{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*t = list
		return nil
	}
	return fmt.Errorf("line %d: import pattern target must be a string or a list", value.Line)
}

// UnmarshalTOML accepts a string or an array of strings.
func (t *Targets) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		*t = Targets{v}
		return nil
	case []any:
		list := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("import pattern target must be a string, got %T", item)
			}
			list = append(list, s)
		}
		*t = list
		return nil
	}
	return fmt.Errorf("import pattern target must be a string or an array, got %T", data)
}

// file is the on-disk registry shape shared by every format.
type file struct {
	Modules        map[string]Module  `json:"modules" yaml:"modules" toml:"modules"`
	ImportPatterns map[string]Targets `json:"import_patterns" yaml:"import_patterns" toml:"import_patterns"`
	Barrel         string             `json:"barrel,omitempty" yaml:"barrel,omitempty" toml:"barrel,omitempty"`
	Symbols        map[string]string  `json:"symbols,omitempty" yaml:"symbols,omitempty" toml:"symbols,omitempty"`
}

// Load reads a registry file. The format is chosen by extension: .json,
// .yaml/.yml or .toml. A missing or malformed file is a CONFIG_LOAD_FAILURE.
func Load(path string, opts ...Option) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, err, "read registry %s", path)
	}
	reg, err := Parse(data, Format(path), opts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, err, "parse registry %s", path)
	}
	return reg, nil
}

// Format returns the registry format implied by a file name: "json", "yaml"
// or "toml". Unknown extensions are treated as JSON.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	}
	return "json"
}

// Parse decodes registry data in the given format.
func Parse(data []byte, format string, opts ...Option) (*Registry, error) {
	var f file
	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal(data, &f)
	case "toml":
		err = toml.Unmarshal(data, &f)
	case "json":
		err = json.Unmarshal(data, &f)
	default:
		return nil, errors.New(errors.ErrCodeConfigLoad, "unsupported registry format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if f.Modules == nil {
		return nil, errors.New(errors.ErrCodeConfigLoad, "registry has no modules section")
	}

	modules := make([]Module, 0, len(f.Modules))
	for id, m := range f.Modules {
		m.ID = id
		modules = append(modules, m)
	}

	prefixes := make([]string, 0, len(f.ImportPatterns))
	for p := range f.ImportPatterns {
		prefixes = append(prefixes, p)
	}
	slices.Sort(prefixes)
	patterns := make([]Pattern, 0, len(prefixes))
	for _, p := range prefixes {
		patterns = append(patterns, Pattern{Prefix: p, Targets: f.ImportPatterns[p]})
	}

	base := []Option{WithSymbols(f.Symbols)}
	if f.Barrel != "" {
		base = append(base, WithBarrel(f.Barrel))
	}
	return New(modules, patterns, append(base, opts...)...)
}
