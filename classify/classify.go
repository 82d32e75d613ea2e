// Package classify decides whether a definition field holds translatable
// text. Classification is data-driven: a leaf tag name is tested against an
// ordered blacklist and whitelist of case-insensitive substrings. The
// blacklist always wins.
package classify

import "strings"

// DefaultTranslatable is the default whitelist of tag-name fragments that
// mark a field as human-readable text.
var DefaultTranslatable = []string{
	"label", "description", "jobString", "reportString", "pawnLabel",
	"graphLabel", "verb", "gerund", "deathMessage", "skillLabel",
	"labelNoun", "labelShort", "labelPlural", "adjective", "text",
	"rejectionMessage", "helpText", "labelShortAdj", "flavorText",
	"title", "titleShort", "baseDesc", "titleFemale", "titleShortFemale",
	"letterLabel", "letterText", "extraOutcomeDesc",
	"customLabel", "chargeNoun", "endMessage",
}

// DefaultBlacklist is the default list of technical tag-name fragments that
// must never be extracted, even when a whitelist fragment also matches.
var DefaultBlacklist = []string{
	"verbClass", "commandTexture", "commandLabelKey", "texPath", "iconPath",
}

// Set is an ordered list of tag-name fragments matched case-insensitively
// as substrings.
type Set struct {
	tags []string
}

// NewSet builds a Set from a list of fragments. Empty and whitespace-only
// fragments are dropped; the remaining order is preserved.
func NewSet(tags []string) Set {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return Set{tags: out}
}

// ParseSet builds a Set from a comma-separated list, as entered on the
// command line or stored in the config file.
func ParseSet(s string) Set {
	return NewSet(strings.Split(s, ","))
}

// Matches reports whether any fragment in the set is a case-insensitive
// substring of name.
func (s Set) Matches(name string) bool {
	lower := strings.ToLower(name)
	for _, t := range s.tags {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// Tags returns the fragments in order.
func (s Set) Tags() []string {
	return append([]string(nil), s.tags...)
}

// Len returns the number of fragments in the set.
func (s Set) Len() int { return len(s.tags) }

// Classifier pairs a whitelist and a blacklist.
type Classifier struct {
	Whitelist Set
	Blacklist Set
}

// New builds a Classifier from explicit tag lists. Empty lists fall back to
// the defaults.
func New(whitelist, blacklist []string) *Classifier {
	c := &Classifier{
		Whitelist: NewSet(whitelist),
		Blacklist: NewSet(blacklist),
	}
	if c.Whitelist.Len() == 0 {
		c.Whitelist = NewSet(DefaultTranslatable)
	}
	if c.Blacklist.Len() == 0 {
		c.Blacklist = NewSet(DefaultBlacklist)
	}
	return c
}

// Default returns a Classifier with the default tag sets.
func Default() *Classifier {
	return New(nil, nil)
}

// IsTranslatable reports whether a leaf element with the given tag name holds
// translatable text. inRuleList marks list items of a rule-strings construct,
// which are translatable regardless of name — but still subject to the
// blacklist.
func (c *Classifier) IsTranslatable(leafName string, inRuleList bool) bool {
	if c.Blacklist.Matches(leafName) {
		return false
	}
	return inRuleList || c.Whitelist.Matches(leafName)
}
