// Package catalog discovers installable packages from .list manifests.
package catalog

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ManifestExt is the file extension of package manifests.
const ManifestExt = ".list"

// Entry is one installable package described by a manifest.
type Entry struct {
	// Name is the user-facing display name (first manifest line)
	Name string

	// Archives are the archive references in manifest order, each prefixed
	// with the manifest's group directory (e.g., "editor/editor_1.0_all.deb")
	Archives []string

	// Manifest is the resource path of the manifest this entry came from
	Manifest string

	// Base is the resource directory archive references resolve against
	Base string
}

// Catalog maps display names to entries.
// Note: Catalog is not thread-safe; it is read-only once Load returns.
type Catalog struct {
	names   []string
	entries map[string]Entry
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		names:   make([]string, 0, 8),
		entries: make(map[string]Entry),
	}
}

// Add adds an entry. An entry with the same name replaces the earlier one
// but keeps its position in Names.
func (c *Catalog) Add(e Entry) {
	if _, ok := c.entries[e.Name]; !ok {
		c.names = append(c.names, e.Name)
	}
	c.entries[e.Name] = e
}

// Get returns the entry for name, or nil if not found.
func (c *Catalog) Get(name string) *Entry {
	if e, ok := c.entries[name]; ok {
		e.Archives = append([]string(nil), e.Archives...)
		return &e
	}
	return nil
}

// Names returns the display names in discovery order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.names)
}

// Beautify turns an archive filename into something readable:
// underscores and dashes become spaces and the first letter is upper-cased.
func Beautify(filename string) string {
	name := strings.NewReplacer("_", " ", "-", " ").Replace(filename)
	if name == "" {
		return name
	}

	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}
