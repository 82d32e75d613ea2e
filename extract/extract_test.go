package extract

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rimkit/rimkit/langdata"
	"github.com/rimkit/rimkit/layout"
	"github.com/rimkit/rimkit/merge"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	return string(data)
}

const weaponsXML = `<?xml version="1.0" encoding="utf-8"?>
<Defs>
  <ThingDef>
    <defName>Knife</defName>
    <label>knife</label>
    <description>A sharp blade.</description>
  </ThingDef>
  <ThingDef>
    <defName>Sword</defName>
    <label>sword</label>
  </ThingDef>
</Defs>`

// newMod lays out a minimal mod: one Defs file and one English Keyed file.
func newMod(t *testing.T) string {
	t.Helper()
	mod := filepath.Join(t.TempDir(), "TestMod")
	writeFile(t, filepath.Join(mod, "Defs", "Weapons.xml"), weaponsXML)
	writeFile(t, filepath.Join(mod, "Languages", "English", "Keyed", "Gameplay.xml"), `<LanguageData>
  <Greeting>Hello there</Greeting>
  <Farewell>Goodbye</Farewell>
</LanguageData>`)
	return mod
}

func outputRoot(mod string) string {
	return filepath.Join(mod, DefaultOutputDir, "SpanishLatin")
}

// ---------------------------------------------------------------------------
// Full runs
// ---------------------------------------------------------------------------

func TestRunGeneratesTemplates(t *testing.T) {
	mod := newMod(t)
	res, err := Run(Options{ModPath: mod, Language: "SpanishLatin"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failures)
	}
	if res.Generated != 2 || res.Updated != 0 {
		t.Fatalf("counts = %d generated, %d updated; want 2, 0", res.Generated, res.Updated)
	}

	defOut := filepath.Join(outputRoot(mod), "DefInjected", "ThingDef", "Weapons.xml")
	f, err := langdata.ParseFile(defOut)
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	for _, key := range []string{"Knife.label", "Knife.description", "Sword.label"} {
		if v, ok := f.Get(key); !ok || v != langdata.Placeholder {
			t.Fatalf("output entry %q = %q, %v; want placeholder", key, v, ok)
		}
	}

	keyedOut := filepath.Join(outputRoot(mod), "Keyed", "Gameplay.xml")
	kf, err := langdata.ParseFile(keyedOut)
	if err != nil {
		t.Fatalf("parsing keyed output: %v", err)
	}
	if v, _ := kf.Get("Greeting"); v != langdata.Placeholder {
		t.Fatalf("Greeting = %q, want placeholder", v)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	mod := newMod(t)
	if _, err := Run(Options{ModPath: mod, Language: "SpanishLatin"}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	defOut := filepath.Join(outputRoot(mod), "DefInjected", "ThingDef", "Weapons.xml")
	keyedOut := filepath.Join(outputRoot(mod), "Keyed", "Gameplay.xml")
	firstDef := readFile(t, defOut)
	firstKeyed := readFile(t, keyedOut)

	res, err := Run(Options{ModPath: mod, Language: "SpanishLatin"})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Updated != 2 || res.Generated != 0 {
		t.Fatalf("counts = %d generated, %d updated; want 0, 2", res.Generated, res.Updated)
	}
	if got := readFile(t, defOut); got != firstDef {
		t.Fatalf("DefInjected output not byte-stable\nfirst:\n%s\nsecond:\n%s", firstDef, got)
	}
	if got := readFile(t, keyedOut); got != firstKeyed {
		t.Fatalf("Keyed output not byte-stable\nfirst:\n%s\nsecond:\n%s", firstKeyed, got)
	}
}

func TestRunPreservesTranslationsOnUpdate(t *testing.T) {
	mod := newMod(t)
	if _, err := Run(Options{ModPath: mod, Language: "SpanishLatin"}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	defOut := filepath.Join(outputRoot(mod), "DefInjected", "ThingDef", "Weapons.xml")
	translated := strings.Replace(readFile(t, defOut),
		"<Knife.label>TODO</Knife.label>",
		"<Knife.label>Cuchillo de Acero</Knife.label>", 1)
	writeFile(t, defOut, translated)

	if _, err := Run(Options{ModPath: mod, Language: "SpanishLatin"}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	f, err := langdata.ParseFile(defOut)
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if v, _ := f.Get("Knife.label"); v != "Cuchillo de Acero" {
		t.Fatalf("translation lost on update: %q", v)
	}
	if v, _ := f.Get("Knife.description"); v != langdata.Placeholder {
		t.Fatalf("untouched entry changed: %q", v)
	}
}

func TestRunKeepsOrphansCommented(t *testing.T) {
	mod := newMod(t)
	if _, err := Run(Options{ModPath: mod, Language: "SpanishLatin"}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Drop the Sword definition; its key becomes an orphan on the next run.
	writeFile(t, filepath.Join(mod, "Defs", "Weapons.xml"), `<Defs>
  <ThingDef>
    <defName>Knife</defName>
    <label>knife</label>
    <description>A sharp blade.</description>
  </ThingDef>
</Defs>`)

	defOut := filepath.Join(outputRoot(mod), "DefInjected", "ThingDef", "Weapons.xml")
	translated := strings.Replace(readFile(t, defOut),
		"<Sword.label>TODO</Sword.label>",
		"<Sword.label>Espada</Sword.label>", 1)
	writeFile(t, defOut, translated)

	if _, err := Run(Options{ModPath: mod, Language: "SpanishLatin"}); err != nil {
		t.Fatalf("second run: %v", err)
	}

	out := readFile(t, defOut)
	if !strings.Contains(out, "UNUSED") {
		t.Fatal("orphan section missing")
	}
	if !strings.Contains(out, "<Sword.label>Espada</Sword.label>") {
		t.Fatalf("orphaned translation not retained:\n%s", out)
	}
	f, err := langdata.ParseFile(defOut)
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if _, ok := f.Get("Sword.label"); ok {
		t.Fatal("orphan must be commented out, not live")
	}
}

func TestRunUsesArchiveFallback(t *testing.T) {
	mod := newMod(t)
	arch := t.TempDir()
	writeFile(t, filepath.Join(arch, "TestMod", "SpanishLatin", "DefInjected", "ThingDef", "Weapons.xml"), `<LanguageData>
  <Knife.label>cuchillo</Knife.label>
</LanguageData>`)

	if _, err := Run(Options{ModPath: mod, Language: "SpanishLatin", ArchiveRoot: arch}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	defOut := filepath.Join(outputRoot(mod), "DefInjected", "ThingDef", "Weapons.xml")
	f, err := langdata.ParseFile(defOut)
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if v, _ := f.Get("Knife.label"); v != "cuchillo" {
		t.Fatalf("archive fallback not applied: %q", v)
	}
	if v, _ := f.Get("Sword.label"); v != langdata.Placeholder {
		t.Fatalf("unarchived key should stay placeholder: %q", v)
	}
}

func TestRunRecoversImplicitEntries(t *testing.T) {
	mod := newMod(t)
	arch := t.TempDir()
	writeFile(t, filepath.Join(arch, "TestMod", "SpanishLatin", "DefInjected", "ThingDef", "Old.xml"), `<LanguageData>
  <Knife.deathMessage>Murio.</Knife.deathMessage>
</LanguageData>`)

	if _, err := Run(Options{
		ModPath:         mod,
		Language:        "SpanishLatin",
		ArchiveRoot:     arch,
		RecoverImplicit: true,
	}); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	defOut := filepath.Join(outputRoot(mod), "DefInjected", "ThingDef", "Weapons.xml")
	out := readFile(t, defOut)
	if !strings.Contains(out, "<Knife.deathMessage>Murio.</Knife.deathMessage>") {
		t.Fatalf("implicit entry not recovered:\n%s", out)
	}
	if !strings.Contains(out, merge.ImplicitSourceMarker) {
		t.Fatalf("implicit source marker missing:\n%s", out)
	}
}

// ---------------------------------------------------------------------------
// Versions and layout
// ---------------------------------------------------------------------------

func TestRunVersionFilter(t *testing.T) {
	mod := filepath.Join(t.TempDir(), "TestMod")
	writeFile(t, filepath.Join(mod, "1.4", "Defs", "Old.xml"), weaponsXML)
	writeFile(t, filepath.Join(mod, "1.5", "Defs", "New.xml"), weaponsXML)

	res, err := Run(Options{
		ModPath:  mod,
		Language: "SpanishLatin",
		Layout:   layout.Options{Version: "1.5"},
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(res.Files) != 1 {
		t.Fatalf("files = %v, want one", res.Files)
	}
	if res.Files[0].Path != "1.5/DefInjected/ThingDef/New.xml" {
		t.Fatalf("output path = %q", res.Files[0].Path)
	}
	if res.Files[0].Version != "1.5" {
		t.Fatalf("version label = %q", res.Files[0].Version)
	}
	if _, err := os.Stat(filepath.Join(outputRoot(mod), "1.4")); !os.IsNotExist(err) {
		t.Fatal("filtered version tree must not be written")
	}
}

func TestRunMergeVersions(t *testing.T) {
	mod := filepath.Join(t.TempDir(), "TestMod")
	writeFile(t, filepath.Join(mod, "1.4", "Defs", "Weapons.xml"), weaponsXML)
	writeFile(t, filepath.Join(mod, "Defs", "Extra.xml"), weaponsXML)

	res, err := Run(Options{
		ModPath:  mod,
		Language: "SpanishLatin",
		Layout:   layout.Options{Version: "1.5", MergeVersions: true},
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	for _, f := range res.Files {
		if !strings.HasPrefix(f.Path, "1.5/") {
			t.Fatalf("merged output escaped the target version: %q", f.Path)
		}
	}
	if len(res.Files) != 2 {
		t.Fatalf("files = %v, want two", res.Files)
	}
}

func TestRunSkipsOwnOutput(t *testing.T) {
	mod := newMod(t)
	if _, err := Run(Options{ModPath: mod, Language: "SpanishLatin"}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := Run(Options{ModPath: mod, Language: "SpanishLatin"})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	// The Keyed output inside TranslationTemplates must not be re-ingested
	// as a source.
	if len(res.Files) != 2 {
		t.Fatalf("files = %v, want two", res.Files)
	}
}

// ---------------------------------------------------------------------------
// Failure handling and options
// ---------------------------------------------------------------------------

func TestRunRecordsFailuresAndContinues(t *testing.T) {
	mod := newMod(t)
	writeFile(t, filepath.Join(mod, "Defs", "Broken.xml"), "<Defs><ThingDef>")

	res, err := Run(Options{ModPath: mod, Language: "SpanishLatin"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(res.Failures) != 1 {
		t.Fatalf("failures = %v, want one", res.Failures)
	}
	if !strings.HasSuffix(res.Failures[0].Path, "Broken.xml") {
		t.Fatalf("failure path = %q", res.Failures[0].Path)
	}
	if res.Generated != 2 {
		t.Fatalf("healthy files must still be written, generated = %d", res.Generated)
	}
}

func TestRunCleanOutput(t *testing.T) {
	mod := newMod(t)
	stale := filepath.Join(outputRoot(mod), "DefInjected", "ThingDef", "Stale.xml")
	writeFile(t, stale, "<LanguageData><Old.key>v</Old.key></LanguageData>")

	if _, err := Run(Options{ModPath: mod, Language: "SpanishLatin", CleanOutput: true}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("clean run must remove stale output files")
	}
}

func TestRunValidatesInputs(t *testing.T) {
	if _, err := Run(Options{ModPath: filepath.Join(t.TempDir(), "missing"), Language: "SpanishLatin"}); err == nil {
		t.Fatal("missing mod directory must error")
	}
	if _, err := Run(Options{ModPath: t.TempDir()}); err == nil {
		t.Fatal("empty language must error")
	}
}

func TestRunEmptyDefinitionsWriteNothing(t *testing.T) {
	mod := filepath.Join(t.TempDir(), "TestMod")
	writeFile(t, filepath.Join(mod, "Defs", "Sound.xml"), `<Defs>
  <SoundDef>
    <defName>Click</defName>
    <volume>0.5</volume>
  </SoundDef>
  <ThingDef>
    <texPath>Things/Knife</texPath>
  </ThingDef>
</Defs>`)

	res, err := Run(Options{ModPath: mod, Language: "SpanishLatin"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(res.Files) != 0 {
		t.Fatalf("files = %v, want none", res.Files)
	}
	if _, err := os.Stat(outputRoot(mod)); !os.IsNotExist(err) {
		t.Fatal("no output tree should be created for untranslatable content")
	}
}

func TestWriteInstallNote(t *testing.T) {
	root := t.TempDir()
	if err := WriteInstallNote(root, "SpanishLatin"); err != nil {
		t.Fatalf("WriteInstallNote error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "INSTALL.txt"))
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !bytes.Contains(data, []byte("SpanishLatin")) {
		t.Fatalf("note must name the language:\n%s", data)
	}
}
