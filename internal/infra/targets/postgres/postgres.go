package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/tssbas/SDV/internal/table"
)

type PostgresTarget struct {
	dsn    string
	schema string
	db     *sql.DB
}

func NewPostgresTarget(dsn, schema string) *PostgresTarget {
	if schema == "" {
		schema = "public"
	}
	return &PostgresTarget{dsn: dsn, schema: schema}
}

func (t *PostgresTarget) Connect() error {
	db, err := sql.Open("postgres", t.dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		return err
	}
	t.db = db
	return nil
}

func (t *PostgresTarget) Close() error {
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

func (t *PostgresTarget) EnsureTable(name string, data *table.Table) error {
	var exists bool
	query := `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2
	)`
	if err := t.db.QueryRow(query, t.schema, name).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	columns := data.Columns()
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", col, pgType(data, col))
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s.%s (%s)",
		t.schema, name, strings.Join(defs, ", "))
	_, err := t.db.Exec(createSQL)
	return err
}

func pgType(data *table.Table, col string) string {
	for i := 0; i < data.Len(); i++ {
		v, _ := data.Value(i, col)
		switch v.(type) {
		case int, int64:
			return "BIGINT"
		case float64:
			return "DOUBLE PRECISION"
		case bool:
			return "BOOLEAN"
		case nil:
			continue
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

func (t *PostgresTarget) InsertTable(name string, data *table.Table) error {
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
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		t.schema, name, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < data.Len(); i++ {
		args := make([]interface{}, len(columns))
		copy(args, data.Row(i))
		if _, err := stmt.Exec(args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}
