// Package archive reads and writes corpus archives: xz-compressed tar
// files holding one JSON record per document plus a manifest with
// BLAKE3 text hashes for integrity checking on import.
package archive

import (
	"archive/tar"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/record"
	"github.com/strata-nlp/strata/core/text"
	"github.com/strata-nlp/strata/internal/logging"
)

// FormatVersion identifies the corpus archive layout.
const FormatVersion = 1

const (
	manifestName = "manifest.json"
	documentDir  = "documents"
)

// Document pairs a stored name with its annotated text.
type Document struct {
	Name string
	Text *text.Text
}

// ManifestEntry describes one document inside the archive.
type ManifestEntry struct {
	Name     string `json:"name"`
	TextHash string `json:"text_hash"`
	Size     int64  `json:"size"`
}

// Manifest is the archive index, stored as manifest.json.
type Manifest struct {
	Version   int             `json:"version"`
	CreatedAt string          `json:"created_at"`
	Documents []ManifestEntry `json:"documents"`
}

func textHash(raw string) string {
	sum := blake3.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Export writes the given documents to an xz-compressed tar archive.
// Documents are written in name order so identical corpora produce
// identical archives.
func Export(dstPath string, docs []Document) error {
	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	out, err := os.Create(dstPath)
	if err != nil {
		return errors.NewIO("create archive", dstPath, err)
	}
	defer out.Close()

	xzw, err := xz.NewWriter(out)
	if err != nil {
		return errors.NewIO("create xz writer", dstPath, err)
	}
	tw := tar.NewWriter(xzw)

	now := time.Now().UTC()
	manifest := Manifest{
		Version:   FormatVersion,
		CreatedAt: now.Format(time.RFC3339),
	}

	type entry struct {
		name string
		data []byte
	}
	entries := make([]entry, 0, len(sorted))
	seen := make(map[string]bool, len(sorted))
	for _, doc := range sorted {
		if doc.Name == "" {
			return errors.Wrap(errors.ErrInvalidInput, "document name must not be empty")
		}
		if seen[doc.Name] {
			return errors.Wrapf(errors.ErrNameCollision, "duplicate document name %q", doc.Name)
		}
		seen[doc.Name] = true
		data, err := record.TextToJSON(doc.Text)
		if err != nil {
			return err
		}
		entries = append(entries, entry{name: doc.Name, data: data})
		manifest.Documents = append(manifest.Documents, ManifestEntry{
			Name:     doc.Name,
			TextHash: textHash(doc.Text.Raw()),
			Size:     int64(len(data)),
		})
	}

	writeFile := func(name string, data []byte) error {
		hdr := &tar.Header{
			Name:    name,
			Mode:    0644,
			Size:    int64(len(data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return errors.NewIO("write header", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			return errors.NewIO("write entry", name, err)
		}
		return nil
	}

	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.NewIO("marshal manifest", dstPath, err)
	}
	if err := writeFile(manifestName, manifestData); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writeFile(path.Join(documentDir, e.name+".json"), e.data); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return errors.NewIO("close tar writer", dstPath, err)
	}
	if err := xzw.Close(); err != nil {
		return errors.NewIO("close xz writer", dstPath, err)
	}
	logging.Debug("corpus exported", "path", dstPath, "documents", len(entries))
	return nil
}

// Import reads a corpus archive, verifying every document against the
// manifest hash. Documents are returned in manifest order.
func Import(srcPath string) ([]Document, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return nil, errors.NewIO("open archive", srcPath, err)
	}
	defer f.Close()

	xzr, err := xz.NewReader(f)
	if err != nil {
		return nil, errors.NewIO("create xz reader", srcPath, err)
	}
	tr := tar.NewReader(xzr)

	var manifest *Manifest
	raw := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewIO("read archive entry", srcPath, err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, errors.NewIO("read archive entry", hdr.Name, err)
		}
		switch {
		case hdr.Name == manifestName:
			var m Manifest
			if err := json.Unmarshal(data, &m); err != nil {
				return nil, errors.NewParse("manifest", srcPath, err.Error())
			}
			manifest = &m
		case strings.HasPrefix(hdr.Name, documentDir+"/"):
			name := strings.TrimSuffix(path.Base(hdr.Name), ".json")
			raw[name] = data
		}
	}
	if manifest == nil {
		return nil, errors.NewParse("archive", srcPath, "missing manifest.json")
	}
	if manifest.Version != FormatVersion {
		return nil, errors.NewParse("archive", srcPath,
			"unsupported format version "+strconv.Itoa(manifest.Version))
	}

	docs := make([]Document, 0, len(manifest.Documents))
	for _, entry := range manifest.Documents {
		data, ok := raw[entry.Name]
		if !ok {
			return nil, errors.NewParse("archive", srcPath,
				"manifest lists missing document "+entry.Name)
		}
		t, err := record.TextFromJSON(data)
		if err != nil {
			return nil, errors.Wrapf(err, "document %q", entry.Name)
		}
		if got := textHash(t.Raw()); got != entry.TextHash {
			return nil, errors.Wrapf(errors.ErrConsistency,
				"document %q: text hash mismatch: manifest %s, computed %s",
				entry.Name, entry.TextHash, got)
		}
		docs = append(docs, Document{Name: entry.Name, Text: t})
	}
	logging.Debug("corpus imported", "path", srcPath, "documents", len(docs))
	return docs, nil
}

// ReadManifest reads only the manifest from an archive without decoding
// any documents.
func ReadManifest(srcPath string) (*Manifest, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return nil, errors.NewIO("open archive", srcPath, err)
	}
	defer f.Close()

	xzr, err := xz.NewReader(f)
	if err != nil {
		return nil, errors.NewIO("create xz reader", srcPath, err)
	}
	tr := tar.NewReader(xzr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewIO("read archive entry", srcPath, err)
		}
		if hdr.Name != manifestName {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return nil, errors.NewIO("read manifest", srcPath, err)
		}
		var m Manifest
		if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
			return nil, errors.NewParse("manifest", srcPath, err.Error())
		}
		return &m, nil
	}
	return nil, errors.NewParse("archive", srcPath, "missing manifest.json")
}

