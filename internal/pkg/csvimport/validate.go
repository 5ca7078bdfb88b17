package csvimport

import (
	"path/filepath"
	"strings"

	"github.com/fudoline/fudoline/internal/pkg/apperr"
)

// MaxUploadSize is the ceiling for uploaded CSV files (50MB).
const MaxUploadSize = 50 * 1024 * 1024

// ValidateUpload enforces the transport-level preconditions before any
// parsing happens: extension and size ceiling.
func ValidateUpload(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".csv" {
		return apperr.Validation("only .csv files are supported")
	}
	if size > MaxUploadSize {
		return apperr.Validation("file is too large (max 50MB)")
	}
	return nil
}
