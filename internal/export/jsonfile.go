package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/momo-tracker/internal/domain"
)

// JSONFile writes the snapshot to a local file, replacing it.
type JSONFile struct {
	filename string
}

// NewJSONFile creates a JSON file sink.
func NewJSONFile(filename string) *JSONFile {
	return &JSONFile{filename: filename}
}

// Write implements the Sink interface.
func (f *JSONFile) Write(ctx context.Context, txns []*domain.Transaction) error {
	data, err := encodeSnapshot(txns)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if dir := filepath.Dir(f.filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	tmp := f.filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", tmp, err)
	}
	return os.Rename(tmp, f.filename)
}
