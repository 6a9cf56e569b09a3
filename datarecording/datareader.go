package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/structs"
)

// QueryParams narrows and orders a query. The zero value selects every row
// in storage order.
type QueryParams struct {
	// Where is an SQL condition, e.g. "Address >= ? AND What = ?".
	Where string
	Args  []any

	// OrderBy is an SQL ordering, e.g. "Time DESC".
	OrderBy string

	// Limit caps the number of rows returned; 0 returns them all. Offset is
	// only used together with Limit.
	Limit  int
	Offset int
}

func (p QueryParams) whereClause() string {
	if p.Where == "" {
		return ""
	}

	return " WHERE " + p.Where
}

func (p QueryParams) pageClause() string {
	var b strings.Builder

	if p.OrderBy != "" {
		b.WriteString(" ORDER BY " + p.OrderBy)
	}

	if p.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", p.Limit)

		if p.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", p.Offset)
		}
	}

	return b.String()
}

// DataReader reads back the tables written by a DataRecorder.
type DataReader interface {
	// MapTable tells the reader which struct the rows of a table decode
	// into. The struct is the one passed to CreateTable.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables, sorted.
	ListTables() []string

	// Query returns pointers to the decoded rows of a mapped table, and the
	// number of rows that match params.Where regardless of Limit.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	Close() error
}

type mappedTable struct {
	structType reflect.Type
	columns    []string
}

type sqliteReader struct {
	db     *sql.DB
	tables map[string]mappedTable
}

// NewReader opens the SQLite file at dbFilename for reading.
func NewReader(dbFilename string) DataReader {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	return NewReaderWithDB(db)
}

// NewReaderWithDB reads from an open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:     db,
		tables: make(map[string]mappedTable),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		panic(err)
	}

	r.tables[tableName] = mappedTable{
		structType: reflect.TypeOf(sampleEntry),
		columns:    structs.Names(sampleEntry),
	}
}

func (r *sqliteReader) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	t, ok := r.tables[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	var total int

	countSQL := "SELECT COUNT(*) FROM " + tableName + params.whereClause()

	err := r.db.QueryRowContext(ctx, countSQL, params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	selectSQL := "SELECT " + strings.Join(t.columns, ", ") + " FROM " +
		tableName + params.whereClause() + params.pageClause()

	rows, err := r.db.QueryContext(ctx, selectSQL, params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []any

	for rows.Next() {
		entry := reflect.New(t.structType)

		targets := make([]any, len(t.columns))
		for i := range t.columns {
			targets[i] = entry.Elem().Field(i).Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, 0, fmt.Errorf("%s: %w", tableName, err)
		}

		results = append(results, entry.Interface())
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}
