// Package lookup maps item numbers and item names to upstream numeric ids.
//
// Two tables are consulted: the primary number→id table, then a name→id
// fallback. The fallback is used only when the primary table has no entry
// for the key at all; a primary entry whose id is null is a miss.
package lookup

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when neither table yields an id.
var ErrNotFound = errors.New("no item id found")

// Table holds the primary and fallback mappings. It is read-only after
// construction and safe for concurrent use.
type Table struct {
	primary map[string]*int64
	byName  map[string]int64
}

// New builds a table. A nil primary value marks a known key without an id.
// Name keys are matched case-insensitively.
func New(primary map[string]*int64, byName map[string]int64) *Table {
	t := &Table{
		primary: make(map[string]*int64, len(primary)),
		byName:  make(map[string]int64, len(byName)),
	}
	for k, v := range primary {
		t.primary[Normalize(k)] = v
	}
	for k, v := range byName {
		t.byName[strings.ToLower(Normalize(k))] = v
	}
	return t
}

// Normalize trims the identifier.
func Normalize(key string) string {
	return strings.TrimSpace(key)
}

// Lookup resolves key to an upstream id.
func (t *Table) Lookup(key string) (int64, error) {
	key = Normalize(key)
	if key == "" {
		return 0, fmt.Errorf("%w: empty identifier", ErrNotFound)
	}

	if id, ok := t.primary[key]; ok {
		if id == nil {
			return 0, fmt.Errorf("%w: %q has no id", ErrNotFound, key)
		}
		return *id, nil
	}

	if id, ok := t.byName[strings.ToLower(key)]; ok {
		return id, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrNotFound, key)
}

// Len returns the number of primary and fallback entries.
func (t *Table) Len() (primary, byName int) {
	return len(t.primary), len(t.byName)
}

// LoadFiles reads the primary and name tables from YAML or JSON files.
// Either path may be empty, which yields an empty table.
func LoadFiles(primaryPath, namesPath string) (*Table, error) {
	primary := map[string]*int64{}
	if primaryPath != "" {
		if err := readTable(primaryPath, &primary); err != nil {
			return nil, err
		}
	}

	byName := map[string]int64{}
	if namesPath != "" {
		if err := readTable(namesPath, &byName); err != nil {
			return nil, err
		}
	}

	return New(primary, byName), nil
}

func readTable(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading lookup table: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing lookup table %s: %w", path, err)
	}
	return nil
}
