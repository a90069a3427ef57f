package sample

import (
	"sort"
	"strings"

	"github.com/tssbas/SDV/internal/table"
)

// BuildConditionTables materializes each condition as numRows
// identical rows and merges conditions constraining the same column
// set (order-independent, values need not match) into one table.
// Groups come back in the order their column set was first seen.
func BuildConditionTables(conditions []Condition) ([]*table.Table, error) {
	var groups []*table.Table
	byKey := make(map[string]int)

	for _, c := range conditions {
		values := c.ColumnValues()
		if len(values) == 0 {
			return nil, &UsageError{Msg: "a condition must constrain at least one column"}
		}

		columns := make([]string, 0, len(values))
		for col := range values {
			columns = append(columns, col)
		}
		sort.Strings(columns)
		key := strings.Join(columns, "\x00")

		idx, ok := byKey[key]
		if !ok {
			idx = len(groups)
			byKey[key] = idx
			groups = append(groups, table.New(columns...))
		}
		for i := 0; i < c.NumRows(); i++ {
			groups[idx].AppendMap(values)
		}
	}
	return groups, nil
}
