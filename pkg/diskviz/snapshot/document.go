// Package snapshot persists scan trees: as standalone JSON documents and in
// a badger-backed history keyed by scanned path.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/diskviz/pkg/diskviz/types"
)

// ErrNotFound is returned when no snapshot matches a lookup.
var ErrNotFound = errors.New("snapshot not found")

// Document is the serialized form of one completed scan.
type Document struct {
	Root      types.ScanNode `json:"root"`
	CreatedAt time.Time      `json:"created_at"`
	Path      string         `json:"path"`
}

// New wraps a scan result for persistence. The path defaults to the path of
// the result's root node.
func New(result *types.ScanResult) *Document {
	return &Document{
		Root:      result.Root,
		CreatedAt: time.Now().UTC(),
		Path:      result.Root.Path,
	}
}

// Result rebuilds a ScanResult from the document. Errors and timing are
// not persisted.
func (d *Document) Result() *types.ScanResult {
	return &types.ScanResult{Root: d.Root}
}

// Marshal encodes the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes a JSON document.
func Unmarshal(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &d, nil
}

// WriteFile writes the document to path, replacing it atomically.
func WriteFile(path string, d *Document) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// ReadFile reads a document written by WriteFile.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Unmarshal(data)
}
