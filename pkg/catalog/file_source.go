package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/gtuazon18/rxn3d-core/pkg/logger"
)

// FileSource reads a catalog payload from a JSON file on disk. Used by the
// CLI and by tests; the file holds one subject's catalog, so the subject id
// is accepted but not consulted.
type FileSource struct {
	path   string
	logger logger.Logger
}

var _ DataSource = (*FileSource)(nil)

// NewFileSource builds a source for the given path.
func NewFileSource(path string, log logger.Logger) *FileSource {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &FileSource{path: path, logger: log}
}

// FetchCatalog implements DataSource.
func (s *FileSource) FetchCatalog(_ context.Context, _ int64) ([]Brand, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return ParseBrands(payload, s.logger)
}
