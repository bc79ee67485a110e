// Package loader creates derived tables in a SQL database and loads their
// accumulated rows. PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite) are
// supported.
//
// Basic usage:
//
//	rows, err := loader.FromConnectionString(ctx, os.Getenv("DATABASE_URL"), s,
//	    loader.WithNamespace("raw"),
//	    loader.WithExcludeTables("quote_tags"),
//	)
//
// Loading into SQLite:
//
//	db, err := loader.Open(loader.SQLite, "quotes.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//	rows, err := loader.Load(ctx, db, s, loader.WithDialect(loader.SQLite))
package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/lucasefe/docsql/schema"
)

// sqliteMaxVariables is the default SQLITE_MAX_VARIABLE_NUMBER of older
// SQLite builds.
const sqliteMaxVariables = 999

// Open opens a database handle for the dialect.
func Open(d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	return db, nil
}

// CreateStatements returns the DDL that creates every table of s, parents
// before children. With WithDropExisting the tables are dropped first,
// children before parents.
func CreateStatements(s *schema.Schema, opts ...Option) []string {
	o := applyOptions(opts)
	return createStatements(filter(s, o), o)
}

func createStatements(s *schema.Schema, o *options) []string {
	var stmts []string

	if o.dialect == Postgres && o.namespace != "" {
		stmts = append(stmts, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pq.QuoteIdentifier(o.namespace)))
	}

	if o.dropExisting {
		for i := len(s.Tables) - 1; i >= 0; i-- {
			stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", qualifiedName(s.Tables[i].Name, o))
			if o.dialect == Postgres {
				stmt += " CASCADE"
			}
			stmts = append(stmts, stmt)
		}
	}

	for _, table := range s.Tables {
		stmts = append(stmts, createTable(s, table, o))
	}
	return stmts
}

func createTable(s *schema.Schema, table *schema.Table, o *options) string {
	var defs []string
	for _, c := range table.Columns {
		def := fmt.Sprintf("%s %s", pq.QuoteIdentifier(c.Name), o.typeMapper.MapType(c.Type, o.dialect))
		if c.IsIndex {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}

	if len(table.PrimaryKeys) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", quoteAll(table.PrimaryKeys)))
	}
	for _, ref := range s.References(table) {
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteAll(ref.FromColumns), qualifiedName(ref.ToTable, o), quoteAll(ref.ToColumns)))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", qualifiedName(table.Name, o), strings.Join(defs, ",\n  "))
}

// Load creates the tables of s and inserts their rows in one transaction.
// It returns the number of rows inserted per table.
func Load(ctx context.Context, db *sql.DB, s *schema.Schema, opts ...Option) (map[string]int, error) {
	o := applyOptions(opts)
	s = filter(s, o)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range createStatements(s, o) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to execute %q: %w", firstLine(stmt), err)
		}
	}

	counts := make(map[string]int, len(s.Tables))
	for _, table := range s.Tables {
		var n int
		if o.dialect == Postgres {
			n, err = copyTable(ctx, tx, table, o)
		} else {
			n, err = insertTable(ctx, tx, table, o)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load table %s: %w", table.Name, err)
		}
		counts[table.Name] = n
		o.logger.Info("loaded table", "table", table.Name, "rows", n, "dialect", o.dialect)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return counts, nil
}

// FromConnectionString connects to a database and loads s into it.
// This is a convenience function that handles connection management.
func FromConnectionString(ctx context.Context, connStr string, s *schema.Schema, opts ...Option) (map[string]int, error) {
	o := applyOptions(opts)

	db, err := Open(o.dialect, connStr)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return Load(ctx, db, s, opts...)
}

func copyTable(ctx context.Context, tx *sql.Tx, table *schema.Table, o *options) (int, error) {
	columns := table.ColumnNames()

	var query string
	if o.namespace != "" {
		query = pq.CopyInSchema(o.namespace, table.Name, columns...)
	} else {
		query = pq.CopyIn(table.Name, columns...)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	rows := table.RowCount()
	for i := 0; i < rows; i++ {
		if _, err := stmt.ExecContext(ctx, table.Row(i)...); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, err
	}
	return rows, nil
}

func insertTable(ctx context.Context, tx *sql.Tx, table *schema.Table, o *options) (int, error) {
	if len(table.Columns) == 0 {
		return 0, nil
	}

	perRow := len(table.Columns)
	batch := o.batchSize
	if limit := sqliteMaxVariables / perRow; batch > limit {
		batch = limit
	}
	if batch < 1 {
		batch = 1
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", perRow), ", ") + ")"
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", qualifiedName(table.Name, o), quoteAll(table.ColumnNames()))

	rows := table.RowCount()
	for start := 0; start < rows; start += batch {
		end := min(start+batch, rows)

		args := make([]any, 0, (end-start)*perRow)
		tuples := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			args = append(args, table.Row(i)...)
			tuples = append(tuples, placeholder)
		}

		if _, err := tx.ExecContext(ctx, prefix+strings.Join(tuples, ", "), args...); err != nil {
			return 0, fmt.Errorf("rows %d-%d: %w", start+1, end, err)
		}
	}
	return rows, nil
}

func filter(s *schema.Schema, o *options) *schema.Schema {
	if len(o.excludeTables) == 0 {
		return s
	}
	return schema.FilterTables(s, o.excludeTables)
}

func qualifiedName(table string, o *options) string {
	if o.dialect == Postgres && o.namespace != "" {
		return pq.QuoteIdentifier(o.namespace) + "." + pq.QuoteIdentifier(table)
	}
	return pq.QuoteIdentifier(table)
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = pq.QuoteIdentifier(name)
	}
	return strings.Join(quoted, ", ")
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
