// Package auth holds the permission table that gates every repository call.
// The model is intentionally minimal: each known user is either read-only or
// read-write; a user absent from the table cannot use the repository at all.
package auth

import (
	"fmt"
	"strings"
)

// Table maps user names to their read-only flag.
type Table struct {
	readOnly map[string]bool
}

// NewTable creates an empty permission table.
func NewTable() *Table {
	return &Table{readOnly: make(map[string]bool)}
}

// Add registers a user with the given read-only flag. Re-adding a user
// overwrites the previous flag.
func (t *Table) Add(name string, readOnly bool) {
	t.readOnly[name] = readOnly
}

// Lookup returns the user's read-only flag and whether the user is known.
func (t *Table) Lookup(name string) (readOnly, ok bool) {
	readOnly, ok = t.readOnly[name]
	return readOnly, ok
}

// Len returns the number of registered users.
func (t *Table) Len() int {
	return len(t.readOnly)
}

// Parse builds a table from a comma-separated spec such as
// "alice:rw,bob:ro". Whitespace around entries is ignored; an entry without
// a marker defaults to read-write.
func Parse(spec string) (*Table, error) {
	t := NewTable()
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, marker, found := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid user entry %q", entry)
		}
		if !found {
			t.Add(name, false)
			continue
		}
		switch strings.TrimSpace(marker) {
		case "rw":
			t.Add(name, false)
		case "ro":
			t.Add(name, true)
		default:
			return nil, fmt.Errorf("invalid access marker %q for user %q", marker, name)
		}
	}
	return t, nil
}
