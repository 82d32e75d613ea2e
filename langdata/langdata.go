// Package langdata implements reading and writing of RimWorld LanguageData
// translation files.
//
// A LanguageData file is a flat XML document: one child element per
// translation key, the element text being the translated value or the "TODO"
// placeholder. Each entry is preceded by a comment carrying the original
// English text, and keys that are no longer derivable from the source are
// kept at the end of the file as commented-out records:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<LanguageData>
//	  <!-- EN: steel knife -->
//	  <Knife_Steel.label>cuchillo de acero</Knife_Steel.label>
//
//	  <!-- UNUSED -->
//	  <!-- <Knife_Wood.label>cuchillo de madera</Knife_Wood.label> -->
//	</LanguageData>
//
// Serialization is deterministic: identical inputs produce byte-identical
// files.
package langdata

import (
	"fmt"
	"os"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map"

	"github.com/rimkit/rimkit/defxml"
)

const (
	// RootTag is the fixed root element of every LanguageData document.
	RootTag = "LanguageData"
	// Placeholder marks an entry awaiting human translation.
	Placeholder = "TODO"
)

// IsPlaceholder reports whether a stored value is the untranslated marker.
// The comparison is case-insensitive.
func IsPlaceholder(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), Placeholder)
}

// File is a parsed LanguageData document: a flat key→text map that preserves
// document order.
type File struct {
	entries *orderedmap.OrderedMap
}

// NewFile creates an empty LanguageData file.
func NewFile() *File {
	return &File{entries: orderedmap.New()}
}

// Parse decodes LanguageData XML. Children without text are skipped;
// values are whitespace-trimmed.
func Parse(data []byte) (*File, error) {
	root, err := defxml.Parse(data)
	if err != nil {
		return nil, err
	}
	f := NewFile()
	for _, child := range root.Children {
		if text := child.TrimmedText(); child.Tag != "" && text != "" {
			f.entries.Set(child.Tag, text)
		}
	}
	return f, nil
}

// ParseFile reads and parses a LanguageData file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// Get returns the stored value for a key.
func (f *File) Get(key string) (string, bool) {
	v, ok := f.entries.Get(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Set stores a value under a key, keeping first-insertion order.
func (f *File) Set(key, value string) {
	f.entries.Set(key, value)
}

// Len returns the number of entries.
func (f *File) Len() int { return f.entries.Len() }

// Keys returns the keys in document order.
func (f *File) Keys() []string {
	keys := make([]string, 0, f.entries.Len())
	for pair := f.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key.(string))
	}
	return keys
}
