package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tssbas/SDV/internal/table"
)

// CSVSink appends tables to a csv file incrementally. The file is
// opened lazily on the first append and the header is written exactly
// once, only if the file is empty at that point. This lets
// long-running sampling jobs persist each batch as it is produced.
type CSVSink struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Path() string {
	return s.path
}

// Append writes t's rows to the file. Empty tables are skipped
// entirely so they cannot trigger a header write.
func (s *CSVSink) Append(t *table.Table) error {
	if t == nil || t.Len() == 0 {
		return nil
	}

	if s.file == nil {
		file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		s.file = file
		s.writer = csv.NewWriter(file)

		info, err := file.Stat()
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			if err := s.writer.Write(t.Columns()); err != nil {
				return err
			}
		}
	}

	for i := 0; i < t.Len(); i++ {
		record := make([]string, t.NumColumns())
		for j, cell := range t.Row(i) {
			record[j] = formatCell(cell)
		}
		if err := s.writer.Write(record); err != nil {
			return err
		}
	}
	s.writer.Flush()
	return s.writer.Error()
}

func (s *CSVSink) Close() error {
	if s.file == nil {
		return nil
	}
	s.writer.Flush()
	err := s.writer.Error()
	if closeErr := s.file.Close(); err == nil {
		err = closeErr
	}
	s.file = nil
	s.writer = nil
	return err
}

// Remove deletes the underlying file, closing it first if needed.
func (s *CSVSink) Remove() error {
	if err := s.Close(); err != nil {
		return err
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(s.path)
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
