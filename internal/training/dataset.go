package training

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/edustack/ai-service/internal/models"
)

// LoadCSV reads a delimited dataset into raw records, one map per row keyed
// by the header. Values stay as strings; downstream preprocessing owns all
// numeric coercion.
func LoadCSV(path string, separator rune) ([]models.RawItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = separator
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("dataset %s has no data rows", path)
	}

	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	records := make([]models.RawItem, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(models.RawItem, len(header))
		for i, col := range header {
			if i >= len(row) {
				break
			}
			value := strings.TrimSpace(row[i])
			if value == "" {
				record[col] = nil
				continue
			}
			record[col] = value
		}
		records = append(records, record)
	}
	return records, nil
}
