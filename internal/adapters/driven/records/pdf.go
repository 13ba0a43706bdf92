package records

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/pawclause/internal/core/domain"
)

// PDF record fields.
const (
	FieldText = "text"
	FieldPage = "page"
)

// PDFLoader reads a PDF as one record per page with "text" and "page" fields.
// Pages without extractable text are skipped.
type PDFLoader struct{}

// Load returns the pages of the PDF at path.
func (PDFLoader) Load(ctx context.Context, path string) ([]domain.RawRecord, error) {
	if err := checkExists(path); err != nil {
		return nil, err
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var records []domain.RawRecord
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extracting page %d of %s: %w", i, path, err)
		}
		if text == "" {
			continue
		}

		records = append(records, domain.RawRecord{
			RowIndex: i - 1,
			Fields: map[string]string{
				FieldText: text,
				FieldPage: strconv.Itoa(i),
			},
		})
	}
	return records, nil
}
