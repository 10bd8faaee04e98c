// Package store handles the on-disk state of a tour build: the canonical
// POI document, numbered backups, the loop counter, and the SQLite event
// log.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/wanderlane/tour-cli/internal/model"
)

// LoadDocument reads and normalizes the canonical POI document. A missing
// file yields an empty document so the first merge can bootstrap it.
func LoadDocument(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &model.Document{Meta: model.Meta{SchemaVersion: model.SchemaVersion}}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: read document %s", path)
	}
	doc, err := model.DecodeDocument(data)
	if err != nil {
		return nil, eris.Wrapf(err, "store: decode document %s", path)
	}
	doc.Normalize()
	return doc, nil
}

// SaveDocument writes the document atomically: temp file in the same
// directory, then rename over the target.
func SaveDocument(path string, doc *model.Document) error {
	return writeJSONAtomic(path, doc)
}

// BackupDocument copies the document file into backups/<stem>_<loop>.json
// next to it. A missing source is not an error; there is nothing to keep.
func BackupDocument(path string, loop int) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "store: read document %s", path)
	}

	dir := filepath.Join(filepath.Dir(path), "backups")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "store: create backups dir")
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dst := filepath.Join(dir, fmt.Sprintf("%s_%04d.json", stem, loop))
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "store: write backup %s", dst)
	}
	return dst, nil
}

// LoadLoopCount reads the refinement loop counter; a missing file is loop 0.
func LoadLoopCount(path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "store: read loop counter %s", path)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, eris.Wrapf(err, "store: parse loop counter %s", path)
	}
	return n, nil
}

// SaveLoopCount persists the refinement loop counter.
func SaveLoopCount(path string, n int) error {
	if err := os.WriteFile(path, []byte(strconv.Itoa(n)+"\n"), 0o644); err != nil {
		return eris.Wrapf(err, "store: write loop counter %s", path)
	}
	return nil
}

// LoadJSON decodes an arbitrary JSON artifact (selection runs, refine
// batches, proposals, itineraries).
func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "store: read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "store: decode %s", path)
	}
	return nil
}

// SaveJSON writes an arbitrary JSON artifact atomically.
func SaveJSON(path string, v any) error {
	return writeJSONAtomic(path, v)
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "store: encode %s", path)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "store: create dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "store: create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrapf(err, "store: write %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "store: close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "store: rename into %s", path)
	}
	return nil
}
