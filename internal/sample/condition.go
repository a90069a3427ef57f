package sample

// Condition is a request for rows whose listed columns carry fixed
// values. It is immutable once constructed.
type Condition struct {
	columnValues map[string]interface{}
	numRows      int
}

// NewCondition builds a condition. A non-positive numRows defaults to
// a single row.
func NewCondition(columnValues map[string]interface{}, numRows int) Condition {
	values := make(map[string]interface{}, len(columnValues))
	for k, v := range columnValues {
		values[k] = v
	}
	if numRows < 1 {
		numRows = 1
	}
	return Condition{columnValues: values, numRows: numRows}
}

func (c Condition) ColumnValues() map[string]interface{} {
	values := make(map[string]interface{}, len(c.columnValues))
	for k, v := range c.columnValues {
		values[k] = v
	}
	return values
}

func (c Condition) NumRows() int {
	return c.numRows
}
