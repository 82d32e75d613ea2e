// Package merge reconciles freshly derived translation entries against a
// prior output file and the reference archive indices.
//
// The resolution order for each fresh key is fixed:
//
//  1. a non-placeholder value in the prior output file (human work wins),
//  2. the local archive (the mirrored file in the reference tree),
//  3. the global archive (the whole archived language tree),
//  4. known field-rename synonyms against the global archive,
//  5. the placeholder.
//
// The English source text of an entry always comes from the fresh
// derivation; archives only ever fill the translated slot.
package merge

import (
	"sort"
	"strings"

	"github.com/rimkit/rimkit/archive"
	"github.com/rimkit/rimkit/defxml"
	"github.com/rimkit/rimkit/langdata"
)

// Action reports what happened to one output file.
type Action string

const (
	// ActionGenerated means no prior output file existed.
	ActionGenerated Action = "Generated"
	// ActionUpdated means a prior output file was reconciled.
	ActionUpdated Action = "Updated"
)

// Sources holds the lookup material for one merge call. All fields are
// read-only for the duration of the call; Existing may be nil.
type Sources struct {
	Existing *langdata.File
	Local    archive.Index
	Global   archive.Index
	English  archive.Index
}

// ImplicitSourceMarker is written as the source text of a recovered entry
// whose English original is not restated in the current source files.
const ImplicitSourceMarker = "(Implicit/Inherited)"

// synonymPairs are known schema renames, tried as key suffixes against the
// global archive when nothing else matches. Fixed by choice; see DESIGN.md.
var synonymPairs = [][2]string{
	{".baseDesc", ".description"},
	{".description", ".baseDesc"},
	{".title", ".label"},
	{".label", ".title"},
}

// fieldPriority orders fields within one definition. Unlisted fields sort
// after these, in discovery order.
var fieldPriority = map[string]int{
	"label":        1,
	"description":  2,
	"title":        3,
	"titleShort":   4,
	"baseDesc":     5,
	"deathMessage": 6,
	"endMessage":   7,
}

const defaultPriority = 99

// Definitions merges freshly derived entries for one definition type.
// Backstory definitions get their baseDesc field rewritten to description
// before resolution (a known schema rename). Entries are ordered by
// definition name, then field priority, ties kept in discovery order.
// The second return value lists orphaned entries from the prior output.
func Definitions(defType string, fresh []defxml.Entry, src *Sources, recoverImplicit bool) ([]langdata.Entry, []langdata.Entry) {
	entries := append([]defxml.Entry(nil), fresh...)
	if recoverImplicit {
		entries = append(entries, implicitEntries(entries, src)...)
	}

	type row struct {
		defName string
		field   string
		entry   defxml.Entry
	}

	isBackstory := strings.Contains(defType, "Backstory")
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		defName, field := splitKey(e.Key)
		if isBackstory && field == "baseDesc" {
			field = "description"
			e.Key = defName + "." + field
		}
		rows = append(rows, row{defName: defName, field: field, entry: e})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].defName != rows[j].defName {
			return rows[i].defName < rows[j].defName
		}
		return priorityOf(rows[i].field) < priorityOf(rows[j].field)
	})

	out := make([]langdata.Entry, 0, len(rows))
	used := make(map[string]bool, len(rows))
	for _, r := range rows {
		out = append(out, langdata.Entry{
			Key:    r.entry.Key,
			Source: r.entry.Text,
			Value:  resolve(r.entry.Key, src, true),
		})
		used[r.entry.Key] = true
	}
	return out, orphans(src.Existing, used)
}

// Keyed merges flat Keyed entries. No synonym fallbacks, no implicit
// recovery, no reordering: document order is preserved.
func Keyed(fresh []defxml.Entry, src *Sources) ([]langdata.Entry, []langdata.Entry) {
	out := make([]langdata.Entry, 0, len(fresh))
	used := make(map[string]bool, len(fresh))
	for _, e := range fresh {
		out = append(out, langdata.Entry{
			Key:    e.Key,
			Source: e.Text,
			Value:  resolve(e.Key, src, false),
		})
		used[e.Key] = true
	}
	return out, orphans(src.Existing, used)
}

// resolve walks the fallback chain for one key.
func resolve(key string, src *Sources, useSynonyms bool) string {
	if src.Existing != nil {
		if v, ok := src.Existing.Get(key); ok && !langdata.IsPlaceholder(v) {
			return v
		}
	}
	if v, ok := src.Local.Lookup(key); ok {
		return v
	}
	if v, ok := src.Global.Lookup(key); ok {
		return v
	}
	if useSynonyms {
		for _, p := range synonymPairs {
			if strings.HasSuffix(key, p[0]) {
				alt := strings.TrimSuffix(key, p[0]) + p[1]
				if v, ok := src.Global.Lookup(alt); ok {
					return v
				}
			}
		}
	}
	return langdata.Placeholder
}

// implicitEntries recovers archive keys belonging to definitions present in
// the fresh set but whose exact key is absent from it — fields inherited from
// a base definition that the current source does not restate. The English
// archive supplies the source text when it knows the key.
func implicitEntries(fresh []defxml.Entry, src *Sources) []defxml.Entry {
	presentDefs := make(map[string]bool)
	presentKeys := make(map[string]bool)
	for _, e := range fresh {
		presentKeys[e.Key] = true
		defName, _ := splitKey(e.Key)
		presentDefs[defName] = true
	}

	var extra []defxml.Entry
	for key := range src.Global {
		if !strings.Contains(key, ".") {
			continue
		}
		defName, _ := splitKey(key)
		if !presentDefs[defName] || presentKeys[key] {
			continue
		}
		text := ImplicitSourceMarker
		if v, ok := src.English.Lookup(key); ok {
			text = v
		}
		extra = append(extra, defxml.Entry{Key: key, Text: text})
	}
	// Map iteration order is random; sort for deterministic output.
	sort.Slice(extra, func(i, j int) bool { return extra[i].Key < extra[j].Key })
	return extra
}

// orphans returns prior-output entries whose keys are no longer derivable.
func orphans(existing *langdata.File, used map[string]bool) []langdata.Entry {
	if existing == nil {
		return nil
	}
	var out []langdata.Entry
	for _, key := range existing.Keys() {
		if !used[key] {
			v, _ := existing.Get(key)
			out = append(out, langdata.Entry{Key: key, Value: v})
		}
	}
	return out
}

// splitKey separates the definition-name component from the field path.
func splitKey(key string) (defName, field string) {
	if i := strings.Index(key, "."); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

func priorityOf(field string) int {
	if p, ok := fieldPriority[field]; ok {
		return p
	}
	return defaultPriority
}
