package langdata

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one live line of output.
type Entry struct {
	// Key is the dotted translation key, doubling as the element name.
	Key string
	// Source is the freshly derived English text, written as a comment.
	Source string
	// Value is the translated text, or Placeholder.
	Value string
}

// Style controls the blank-line layout of a document.
type Style int

const (
	// StyleDefInjected groups entries with a blank line between
	// definitions sharing a key prefix.
	StyleDefInjected Style = iota
	// StyleKeyed writes a blank line before every entry.
	StyleKeyed
)

// Document is an ordered entry set ready for serialization.
type Document struct {
	Style Style
	// Entries are the live records, already merged and ordered.
	Entries []Entry
	// Orphans are keys from a prior output file that are no longer
	// derivable; they are written as commented-out records. Only Key and
	// Value are used.
	Orphans []Entry
}

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

// Marshal serializes the document. Output is byte-stable for identical input.
func (d *Document) Marshal() []byte {
	var b bytes.Buffer
	b.WriteString(xmlDeclaration + "\n")
	b.WriteString("<" + RootTag + ">\n")
	if d.Style == StyleDefInjected {
		b.WriteString("  \n")
	}

	lastDef := ""
	for i, e := range d.Entries {
		switch d.Style {
		case StyleKeyed:
			b.WriteString("\n")
		case StyleDefInjected:
			def := definitionOf(e.Key)
			if i > 0 && def != lastDef {
				b.WriteString("\n")
			}
			lastDef = def
		}
		b.WriteString("  <!-- EN: " + escapeComment(e.Source) + " -->\n")
		fmt.Fprintf(&b, "  <%s>%s</%s>\n", e.Key, escapeText(e.Value), e.Key)
	}

	if len(d.Orphans) > 0 {
		b.WriteString("\n  <!-- UNUSED -->\n")
		for _, e := range d.Orphans {
			fmt.Fprintf(&b, "  <!-- <%s>%s</%s> -->\n", e.Key, escapeComment(e.Value), e.Key)
		}
	}

	switch d.Style {
	case StyleDefInjected:
		b.WriteString("  \n</" + RootTag + ">")
	default:
		b.WriteString("\n</" + RootTag + ">\n")
	}
	return b.Bytes()
}

// WriteFile serializes the document to path, creating parent directories.
func WriteFile(path string, d *Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, d.Marshal(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// definitionOf returns the definition-name component of a dotted key.
func definitionOf(key string) string {
	if i := strings.Index(key, "."); i >= 0 {
		return key[:i]
	}
	return key
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeText escapes element text the way the game's own files do: only the
// characters that break well-formedness, leaving newlines intact.
func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// escapeComment neutralizes "--" sequences, which are illegal inside XML
// comments.
func escapeComment(s string) string {
	return strings.ReplaceAll(s, "--", "- -")
}
