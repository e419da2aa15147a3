// Package universe loads the candidate symbol list.
package universe

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Load reads symbols from a CSV file with a header row containing a "Symbol"
// column (case-insensitive). Order is preserved and duplicates are dropped,
// keeping the first occurrence.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open universe file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read universe header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "symbol") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("universe file %s has no Symbol column", path)
	}

	seen := make(map[string]struct{})
	var symbols []string
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		if col >= len(record) {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(record[col]))
		if symbol == "" {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		symbols = append(symbols, symbol)
	}

	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe file %s contains no symbols", path)
	}
	return symbols, nil
}
