package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tssbas/SDV/internal/table"
)

type SQLiteTarget struct {
	path string
	db   *sql.DB
}

func NewSQLiteTarget(path string) *SQLiteTarget {
	return &SQLiteTarget{path: path}
}

func (t *SQLiteTarget) Connect() error {
	db, err := sql.Open("sqlite3", t.path)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		return err
	}
	t.db = db
	return nil
}

func (t *SQLiteTarget) Close() error {
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

func (t *SQLiteTarget) EnsureTable(name string, data *table.Table) error {
	query := `SELECT name FROM sqlite_master WHERE type='table' AND name=?`
	var existing string
	err := t.db.QueryRow(query, name).Scan(&existing)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}

	columns := data.Columns()
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", col, sqliteType(data, col))
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))
	_, err = t.db.Exec(createSQL)
	return err
}

func sqliteType(data *table.Table, col string) string {
	for i := 0; i < data.Len(); i++ {
		v, _ := data.Value(i, col)
		switch v.(type) {
		case int, int64, bool:
			return "INTEGER"
		case float64:
			return "REAL"
		case nil:
			continue
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

func (t *SQLiteTarget) InsertTable(name string, data *table.Table) error {
	if data.Len() == 0 {
		return nil
	}

	tx, err := t.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	columns := data.Columns()
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < data.Len(); i++ {
		args := make([]interface{}, len(columns))
		for j, val := range data.Row(i) {
			if ts, ok := val.(time.Time); ok {
				args[j] = ts.Format(time.RFC3339)
			} else if b, ok := val.(bool); ok {
				if b {
					args[j] = 1
				} else {
					args[j] = 0
				}
			} else {
				args[j] = val
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}
