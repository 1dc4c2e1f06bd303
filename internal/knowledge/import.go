package knowledge

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// ImportTemplates loads a keyword,body CSV into the template table,
// replacing existing keywords. A header row is skipped when its first cell
// is "keyword". Returns the number of templates imported.
func (s *Store) ImportTemplates(r io.Reader) (int, error) {
	records, err := readCSV(r, 2)
	if err != nil {
		return 0, err
	}

	n := 0
	for i, rec := range records {
		if i == 0 && strings.EqualFold(rec[0], "keyword") {
			continue
		}
		if strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if err := s.SaveTemplate(Template{Keyword: rec[0], Body: rec[1]}); err != nil {
			return n, fmt.Errorf("saving template %q: %w", rec[0], err)
		}
		n++
	}
	return n, nil
}

// ImportExamples loads a product,question,answer CSV into the example
// corpus. A header row is skipped when its first cell is "product".
// Returns the number of examples imported.
func (s *Store) ImportExamples(r io.Reader) (int, error) {
	records, err := readCSV(r, 3)
	if err != nil {
		return 0, err
	}

	n := 0
	for i, rec := range records {
		if i == 0 && strings.EqualFold(rec[0], "product") {
			continue
		}
		if strings.TrimSpace(rec[0]) == "" {
			continue
		}
		e := Example{
			ID:       uuid.New().String(),
			Product:  rec[0],
			Question: rec[1],
			Answer:   rec[2],
		}
		if err := s.SaveExample(e); err != nil {
			return n, fmt.Errorf("saving example for %q: %w", rec[0], err)
		}
		n++
	}
	return n, nil
}

func readCSV(r io.Reader, wantFields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = wantFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return records, nil
}
