package records

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVLoader reads a CSV file whose first row names the columns. Files are
// read as UTF-8 (with or without BOM) and fall back to CP949 (EUC-KR) when
// the bytes are not valid UTF-8.
type CSVLoader struct{}

// Load returns one record per data row.
func (CSVLoader) Load(ctx context.Context, path string) ([]domain.RawRecord, error) {
	if err := checkExists(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	text, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	records, err := parseCSV(ctx, strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

// decode returns data as UTF-8 text.
func decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func parseCSV(ctx context.Context, r io.Reader) ([]domain.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []domain.RawRecord
	for row := 0; ; row++ {
		if row%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", row, err)
		}

		rec := domain.RawRecord{RowIndex: row, Fields: make(map[string]string, len(header))}
		for i, name := range header {
			if name == "" || i >= len(fields) {
				continue
			}
			rec.Fields[name] = fields[i]
		}
		records = append(records, rec)
	}
	return records, nil
}
