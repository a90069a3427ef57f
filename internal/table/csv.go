package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// ReadCSV loads a csv file with a header row, inferring a scalar type
// per column: int64 if every value parses as an integer, float64 if
// every value is numeric, bool if every value is true/false, string
// otherwise. Empty cells become nil.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	header := records[0]
	body := records[1:]
	t := New(header...)

	for j := range header {
		allInt, allFloat, allBool := true, true, true
		for _, record := range body {
			cell := record[j]
			if cell == "" {
				continue
			}
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				allInt = false
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				allFloat = false
			}
			if _, err := strconv.ParseBool(cell); err != nil {
				allBool = false
			}
		}
		for i, record := range body {
			if len(t.rows) <= i {
				t.rows = append(t.rows, make([]interface{}, len(header)))
			}
			cell := record[j]
			switch {
			case cell == "":
				t.rows[i][j] = nil
			case allInt:
				n, _ := strconv.ParseInt(cell, 10, 64)
				t.rows[i][j] = n
			case allFloat:
				f, _ := strconv.ParseFloat(cell, 64)
				t.rows[i][j] = f
			case allBool:
				b, _ := strconv.ParseBool(cell)
				t.rows[i][j] = b
			default:
				t.rows[i][j] = cell
			}
		}
	}
	return t, nil
}
