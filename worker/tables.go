package worker

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"auraagent/storage"
)

//go:embed intents.yaml
var defaultTables []byte

// Rule maps a case-insensitive pattern onto an English search term.
type Rule struct {
	Pattern    string  `yaml:"pattern"`
	Term       string  `yaml:"term"`
	Confidence float64 `yaml:"confidence"`

	re *regexp.Regexp
}

// Tables are the keyword tables the intent strategy matches queries against.
type Tables struct {
	Dishes     []Rule   `yaml:"dishes"`
	Categories []Rule   `yaml:"categories"`
	Areas      []Rule   `yaml:"areas"`
	Random     []Rule   `yaml:"random"`
	Fillers    []string `yaml:"fillers"`

	fillers map[string]bool
}

// DefaultTables returns the tables compiled into the binary.
func DefaultTables() *Tables {
	t, err := ParseTables(defaultTables)
	if err != nil {
		panic(fmt.Sprintf("embedded intent tables: %v", err))
	}
	return t
}

// DefaultTablesState exposes the embedded tables as a storage.State.
func DefaultTablesState() storage.State {
	return storage.Bytes(defaultTables)
}

// LoadTables reads and compiles tables from state.
func LoadTables(ctx context.Context, state storage.State) (*Tables, error) {
	data, err := state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load intent tables: %w", err)
	}
	return ParseTables(data)
}

// ParseTables decodes a YAML document and compiles its patterns.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse intent tables: %w", err)
	}
	if err := t.compile(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tables) compile() error {
	groups := []struct {
		name       string
		rules      []Rule
		confidence float64
	}{
		{"dishes", t.Dishes, dishConfidence},
		{"categories", t.Categories, categoryConfidence},
		{"areas", t.Areas, areaConfidence},
		{"random", t.Random, explicitRandomConfidence},
	}
	for _, g := range groups {
		for i := range g.rules {
			r := &g.rules[i]
			re, err := regexp.Compile("(?i)" + r.Pattern)
			if err != nil {
				return fmt.Errorf("invalid %s pattern %q: %w", g.name, r.Pattern, err)
			}
			r.re = re
			if r.Confidence == 0 {
				r.Confidence = g.confidence
			}
		}
	}

	t.fillers = make(map[string]bool, len(t.Fillers))
	for _, f := range t.Fillers {
		t.fillers[f] = true
	}
	return nil
}
