package actions

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// overrideFile is the on-disk layout:
//
//	actions:
//	  ELABORATE:
//	    description: ...
//	    condition: ...
type overrideFile struct {
	Actions map[string]struct {
		Description string `yaml:"description"`
		Condition   string `yaml:"condition"`
	} `yaml:"actions"`
}

// LoadOverrides reads description and condition overrides keyed by action name.
func LoadOverrides(path string) (map[string]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read action overrides: %w", err)
	}
	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse action overrides %s: %w", path, err)
	}
	out := make(map[string]Override, len(f.Actions))
	for name, o := range f.Actions {
		out[strings.ToUpper(strings.TrimSpace(name))] = Override{
			Description: strings.TrimSpace(o.Description),
			Condition:   strings.TrimSpace(o.Condition),
		}
	}
	return out, nil
}

// WithOverrides layers overrides onto entries by name, keeping each entry's
// own override underneath. Overrides naming no entry are reported as an error.
func WithOverrides(entries []Entry, overrides map[string]Override) ([]Entry, error) {
	out := make([]Entry, len(entries))
	seen := make(map[string]bool, len(overrides))
	for i, e := range entries {
		name := strings.ToUpper(strings.TrimSpace(e.Base.Name))
		o, ok := overrides[name]
		if !ok {
			out[i] = e
			continue
		}
		seen[name] = true
		merged := o
		if e.Override != nil {
			merged = e.Override.Merge(o)
		}
		out[i] = Entry{Base: e.Base, Override: &merged}
	}
	for name := range overrides {
		if !seen[name] {
			return nil, fmt.Errorf("override for unknown action %s", name)
		}
	}
	return out, nil
}
