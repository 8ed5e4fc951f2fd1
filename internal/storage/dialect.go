package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"
)

// dialect captures what differs between the supported databases.
type dialect struct {
	name     string
	numbered bool // $1, $2 placeholders instead of ?
	fileDSN  bool // DSN is a local path
	open     func(opts Options) (*sql.DB, error)
}

var dialects = map[string]dialect{
	"duckdb":   {name: "duckdb", fileDSN: true, open: openDuckDB},
	"sqlite":   {name: "sqlite", fileDSN: true, open: openSQLite},
	"postgres": {name: "postgres", numbered: true, open: openPostgres},
}

// Drivers lists the accepted storage driver names.
func Drivers() []string {
	return []string{"duckdb", "sqlite", "postgres"}
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func openDuckDB(opts Options) (*sql.DB, error) {
	threads := opts.DuckDBThreads
	if threads <= 0 {
		threads = 4
	}
	memLimit := opts.DuckDBMemoryLimit
	if memLimit == "" {
		memLimit = "1GB"
	}

	connector, err := duckdb.NewConnector(opts.DSN, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", strings.ReplaceAll(memLimit, "'", "")),
			fmt.Sprintf("PRAGMA threads=%d", threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating DuckDB connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func openSQLite(opts Options) (*sql.DB, error) {
	var dsn string
	if opts.DSN == "" {
		// Named so every pooled connection sees the same in-memory database.
		dsn = fmt.Sprintf("file:chemequip-%s?mode=memory&cache=shared", uuid.NewString())
	} else {
		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
			opts.DSN,
		)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection keeps transactions from
	// tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return db, nil
}

func openPostgres(opts Options) (*sql.DB, error) {
	if opts.DSN == "" {
		return nil, errors.New("postgres requires a connection URL")
	}
	return sql.Open("pgx", opts.DSN)
}
