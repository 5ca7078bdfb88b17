package csvimport

import (
	"io"

	"github.com/gofiber/fiber/v2/log"

	"github.com/fudoline/fudoline/app/models"
	"github.com/fudoline/fudoline/app/repository"
)

// DefaultChunkSize is how many rows go into one insert transaction.
const DefaultChunkSize = 500

// ImportResult merges row-validation errors and chunk-insert errors for one
// import run. Partial success is the expected common case.
type ImportResult struct {
	Errors       []RowError         `json:"errors,omitempty"`
	TotalRows    int                `json:"total_rows"`
	ValidRows    int                `json:"valid_rows"`
	ImportedRows int                `json:"imported_rows"`
	Properties   []models.Property  `json:"properties,omitempty"`
}

// Importer runs the full ingestion pipeline: stream parse, validate, then
// chunked insert with per-chunk failure isolation.
type Importer struct {
	Properties repository.PropertyRepository
	ChunkSize  int
	OnProgress func(processed int)
}

// NewImporter creates an importer with the default chunk size.
func NewImporter(properties repository.PropertyRepository) *Importer {
	return &Importer{Properties: properties, ChunkSize: DefaultChunkSize}
}

// Import parses the stream and inserts valid rows for the tenant in chunks.
// Row and chunk failures are collected, never fatal; only a malformed
// stream aborts the import.
func (im *Importer) Import(tenantID string, r io.Reader) (*ImportResult, error) {
	parser := &Parser{OnProgress: im.OnProgress}
	parsed, err := parser.Parse(r)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Errors:    parsed.Errors,
		TotalRows: parsed.TotalRows,
		ValidRows: parsed.ValidRows,
	}

	if len(parsed.Data) == 0 {
		return result, nil
	}

	properties := make([]models.Property, len(parsed.Data))
	for i, row := range parsed.Data {
		properties[i] = models.Property{
			TenantID:     tenantID,
			Name:         row.Name,
			Address:      row.Address,
			PropertyType: row.PropertyType,
			Price:        row.Price,
			Size:         row.Size,
			Rooms:        row.Rooms,
			Description:  row.Description,
			Status:       models.PropertyStatusDraft,
		}
	}

	chunkSize := im.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	inserted, chunkErrors := im.Properties.CreateInChunks(properties, chunkSize)
	for _, chunkErr := range chunkErrors {
		log.Errorf("[CSVImport] %s", chunkErr.Message)
		result.Errors = append(result.Errors, RowError{
			Row:     0,
			Field:   "database",
			Message: chunkErr.Message,
		})
	}

	result.ImportedRows = len(inserted)
	result.Properties = inserted

	log.Infof("[CSVImport] tenant=%s imported=%d valid=%d total=%d chunk_errors=%d",
		tenantID, result.ImportedRows, result.ValidRows, result.TotalRows, len(chunkErrors))

	return result, nil
}
