// Package records loads insurer source files (CSV or PDF) into raw records.
package records

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/pawclause/internal/core/domain"
	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

var _ driven.RecordLoader = (*Loader)(nil)

// Loader dispatches to a format loader by file extension.
type Loader struct {
	formats map[string]driven.RecordLoader
}

// NewLoader returns a loader for .csv and .pdf files.
func NewLoader() *Loader {
	return &Loader{
		formats: map[string]driven.RecordLoader{
			".csv": CSVLoader{},
			".pdf": PDFLoader{},
		},
	}
}

// Extensions returns the supported file extensions.
func (l *Loader) Extensions() []string {
	return []string{".csv", ".pdf"}
}

// Supports reports whether path has a supported extension.
func (l *Loader) Supports(path string) bool {
	_, ok := l.formats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load reads path with the loader for its extension.
func (l *Loader) Load(ctx context.Context, path string) ([]domain.RawRecord, error) {
	if err := checkExists(path); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := l.formats[ext]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported source format %q for %s", domain.ErrConfiguration, ext, path)
	}
	return loader.Load(ctx, path)
}

func checkExists(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: source file not found: %s", domain.ErrConfiguration, path)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: source path is a directory: %s", domain.ErrConfiguration, path)
	}
	return nil
}
