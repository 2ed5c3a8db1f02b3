package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/layer"
	"github.com/strata-nlp/strata/core/text"
)

func sampleDoc(t *testing.T, name, raw string) Document {
	t.Helper()
	txt := text.New(raw)
	l := layer.MustNew(layer.Def{Name: "chars"})
	if len(raw) > 0 {
		if _, err := l.AddSpan(0, 1, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := txt.AddLayer(l); err != nil {
		t.Fatal(err)
	}
	return Document{Name: name, Text: txt}
}

func TestExportImportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.tar.xz")
	docs := []Document{
		sampleDoc(t, "beta", "second text"),
		sampleDoc(t, "alpha", "first text"),
	}
	if err := Export(path, docs); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	back, err := Import(path)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(back) != 2 {
		t.Fatalf("Import() returned %d documents, want 2", len(back))
	}
	// Export sorts by name.
	if back[0].Name != "alpha" || back[1].Name != "beta" {
		t.Errorf("order = [%s %s], want [alpha beta]", back[0].Name, back[1].Name)
	}
	if back[0].Text.Raw() != "first text" {
		t.Errorf("alpha Raw() = %q, want %q", back[0].Text.Raw(), "first text")
	}
	if !back[0].Text.HasLayer("chars") {
		t.Error("imported document lost its layer")
	}
}

func TestExportValidation(t *testing.T) {
	dir := t.TempDir()
	if err := Export(filepath.Join(dir, "a.tar.xz"), []Document{
		sampleDoc(t, "", "x"),
	}); err == nil {
		t.Error("empty name: error = nil, want error")
	}
	if err := Export(filepath.Join(dir, "b.tar.xz"), []Document{
		sampleDoc(t, "dup", "x"),
		sampleDoc(t, "dup", "y"),
	}); !errors.Is(err, errors.ErrNameCollision) {
		t.Errorf("duplicate names: error = %v, want ErrNameCollision", err)
	}
}

func TestReadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.tar.xz")
	if err := Export(path, []Document{sampleDoc(t, "only", "some text")}); err != nil {
		t.Fatal(err)
	}
	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if m.Version != FormatVersion {
		t.Errorf("Version = %d, want %d", m.Version, FormatVersion)
	}
	if len(m.Documents) != 1 || m.Documents[0].Name != "only" {
		t.Fatalf("Documents = %v, want one entry named only", m.Documents)
	}
	if m.Documents[0].TextHash == "" || m.Documents[0].Size == 0 {
		t.Errorf("manifest entry %v missing hash or size", m.Documents[0])
	}
}

func TestImportRejectsMissingArchive(t *testing.T) {
	if _, err := Import(filepath.Join(t.TempDir(), "absent.tar.xz")); err == nil {
		t.Error("Import(absent) error = nil, want error")
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.tar.xz")
	if err := os.WriteFile(path, []byte("not an archive"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Import(path); err == nil {
		t.Error("Import(garbage) error = nil, want error")
	}
}

func TestExportDeterministic(t *testing.T) {
	dir := t.TempDir()
	docs := []Document{sampleDoc(t, "a", "text a"), sampleDoc(t, "b", "text b")}

	p1 := filepath.Join(dir, "one.tar.xz")
	p2 := filepath.Join(dir, "two.tar.xz")
	if err := Export(p1, docs); err != nil {
		t.Fatal(err)
	}
	if err := Export(p2, []Document{docs[1], docs[0]}); err != nil {
		t.Fatal(err)
	}

	m1, err := ReadManifest(p1)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := ReadManifest(p2)
	if err != nil {
		t.Fatal(err)
	}
	if len(m1.Documents) != len(m2.Documents) {
		t.Fatalf("manifest sizes differ: %d vs %d", len(m1.Documents), len(m2.Documents))
	}
	for i := range m1.Documents {
		if m1.Documents[i] != m2.Documents[i] {
			t.Errorf("manifest entry %d differs: %v vs %v", i, m1.Documents[i], m2.Documents[i])
		}
	}
}
