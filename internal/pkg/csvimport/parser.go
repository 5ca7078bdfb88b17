package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// PropertyRow is one validated CSV row. Optional numeric fields left blank
// stay nil; they are omitted, not zero.
type PropertyRow struct {
	Name         string
	Address      string
	PropertyType string
	Price        *float64
	Size         *float64
	Rooms        *float64
	Description  *string
}

// RowError is one row-scoped validation error. Row 0 with field "headers"
// marks a structural error; field "general" marks a malformed row.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ParseResult is the outcome of parsing one CSV stream. TotalRows counts
// every data row seen, including rejected ones; ValidRows counts rows with
// zero field errors.
type ParseResult struct {
	Data      []PropertyRow `json:"-"`
	Errors    []RowError    `json:"errors"`
	TotalRows int           `json:"total_rows"`
	ValidRows int           `json:"valid_rows"`
}

// Parser streams a property CSV without loading the whole file into memory.
// Row-level failures never abort the parse; only a malformed stream does.
type Parser struct {
	// OnProgress, if set, is called after each data row is finalized.
	// Purely observational.
	OnProgress func(processed int)
}

// Parse reads the stream record by record, validates the header and each
// data row against the rule table, and collects valid rows and row errors.
// The returned error is non-nil only for stream-level failures; header and
// row problems are reported inside the result.
func (p *Parser) Parse(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &ParseResult{}

	header, err := reader.Read()
	if err == io.EOF {
		result.Errors = append(result.Errors, RowError{Row: 0, Field: "general", Message: "file contains no data"})
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(h)
	}

	var missing []string
	for _, expected := range ExpectedHeaders {
		found := false
		for _, h := range headers {
			if h == expected {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, expected)
		}
	}
	if len(missing) > 0 {
		result.Errors = append(result.Errors, RowError{
			Row:     0,
			Field:   "headers",
			Message: "missing required columns: " + strings.Join(missing, ", "),
		})
		return result, nil
	}

	rowIndex := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", rowIndex+1, err)
		}

		rowIndex++
		result.TotalRows++

		if len(record) != len(headers) {
			result.Errors = append(result.Errors, RowError{
				Row:     rowIndex,
				Field:   "general",
				Message: fmt.Sprintf("column count mismatch: expected %d, got %d", len(headers), len(record)),
			})
			p.progress(rowIndex)
			continue
		}

		row, rowErrors := p.validateRow(rowIndex, headers, record)
		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
		} else {
			result.Data = append(result.Data, row)
			result.ValidRows++
		}
		p.progress(rowIndex)
	}

	return result, nil
}

func (p *Parser) progress(processed int) {
	if p.OnProgress != nil {
		p.OnProgress(processed)
	}
}

// validateRow checks every cell with a rule and assembles the row value.
// A row with any failing field produces errors and no output row.
func (p *Parser) validateRow(rowIndex int, headers, record []string) (PropertyRow, []RowError) {
	var row PropertyRow
	var rowErrors []RowError

	for i, header := range headers {
		rule := ruleFor(header)
		if rule == nil {
			// Unknown extra columns are tolerated and ignored.
			continue
		}

		value, message := validateField(record[i], rule)
		if message != "" {
			rowErrors = append(rowErrors, RowError{Row: rowIndex, Field: header, Message: message})
			continue
		}

		switch header {
		case "name":
			row.Name = value.Str
		case "address":
			row.Address = value.Str
		case "property_type":
			row.PropertyType = value.Str
		case "price":
			if value.IsNum {
				num := value.Num
				row.Price = &num
			}
		case "size":
			if value.IsNum {
				num := value.Num
				row.Size = &num
			}
		case "rooms":
			if value.IsNum {
				num := value.Num
				row.Rooms = &num
			}
		case "description":
			if !value.Omitted {
				desc := value.Str
				row.Description = &desc
			}
		}
	}

	return row, rowErrors
}
