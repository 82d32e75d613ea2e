package defxml

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rimkit/rimkit/classify"
)

// Well-known element names in definition documents.
const (
	// IdentityTag supplies the definition's own name and never appears
	// in key paths.
	IdentityTag = "defName"
	// listItemTag marks an anonymous list item.
	listItemTag = "li"
	// ruleListTag is the rule-strings construct whose list items are
	// always translatable.
	ruleListTag = "rulesStrings"
	// labelTag is the human-readable label used to name a list item.
	labelTag = "customLabel"
	// refTag is the reference identifier used to name a list item when
	// no label is present.
	refTag = "def"
)

// Entry is one derived translatable field: a dotted key and its source text.
type Entry struct {
	Key  string
	Text string
}

// Derive walks one definition subtree and returns the translatable entries
// found in it, in document order. defName roots every key path. The identity
// child itself is skipped.
//
// List items are disambiguated deterministically: a sanitized customLabel if
// present, else the def reference, else the item's zero-based position among
// its sibling list items. When several siblings resolve to the same name, a
// "-<ordinal>" suffix (counted per name) keeps the keys pairwise distinct.
func Derive(def *Node, defName string, c *classify.Classifier) []Entry {
	var out []Entry
	walk(def, defName, c, &out)
	return out
}

func walk(node *Node, path string, c *classify.Classifier, out *[]Entry) {
	// Pre-scan list items: resolved names and a per-name count, so that
	// duplicates can be suffixed. The histogram is local to this frame.
	names := make([]string, len(node.Children))
	counts := make(map[string]int)
	for i, child := range node.Children {
		if child.Tag == listItemTag {
			if name := listItemName(child); name != "" {
				names[i] = name
				counts[name]++
			}
		}
	}

	ordinals := make(map[string]int)
	listIndex := 0

	for i, child := range node.Children {
		if child.Tag == IdentityTag {
			continue
		}

		var part string
		if child.Tag == listItemTag {
			if name := names[i]; name != "" {
				if counts[name] > 1 {
					part = name + "-" + strconv.Itoa(ordinals[name])
					ordinals[name]++
				} else {
					part = name
				}
			} else {
				part = strconv.Itoa(listIndex)
			}
			listIndex++
		} else {
			part = child.Tag
		}

		newPath := path + "." + part

		if text := child.TrimmedText(); text != "" && child.IsLeaf() {
			inRuleList := node.Tag == ruleListTag && child.Tag == listItemTag
			if c.IsTranslatable(child.Tag, inRuleList) {
				*out = append(*out, Entry{Key: newPath, Text: text})
			}
		}

		walk(child, newPath, c, out)
	}
}

// listItemName resolves the display name of a list item: a sanitized
// customLabel wins over the def reference. An empty result means the item is
// unnamed and falls back to its positional index.
func listItemName(n *Node) string {
	if label := n.Child(labelTag); label != nil {
		if text := label.TrimmedText(); text != "" {
			return sanitizeName(text)
		}
	}
	if ref := n.Child(refTag); ref != nil {
		return ref.TrimmedText()
	}
	return ""
}

// sanitizeName turns a free-form label into a valid key segment: spaces
// become underscores and anything outside letters, digits, '_' and '-' is
// dropped.
func sanitizeName(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	var b strings.Builder
	for _, r := range s {
		if r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
