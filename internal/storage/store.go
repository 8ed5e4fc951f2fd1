package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chemequip/backend/internal/models"
)

// ErrNotFound is returned when a dataset or user does not exist.
var ErrNotFound = errors.New("not found")

// DefaultRetention is how many datasets survive pruning.
const DefaultRetention = 5

// DatasetStore defines the operations on stored uploads.
type DatasetStore interface {
	// Insert stores a new dataset and prunes everything outside the retention
	// window in the same transaction. It returns the stored record and the
	// number of records pruned.
	Insert(ctx context.Context, nd models.NewDataset) (*models.Dataset, int, error)
	Prune(ctx context.Context) (int, error)
	Latest(ctx context.Context) (*models.Dataset, error)
	History(ctx context.Context, limit int) ([]models.DatasetSummary, error)
	Get(ctx context.Context, id string) (*models.Dataset, error)
	Count(ctx context.Context) (int, error)
}

// UserStore defines the operations on API users.
type UserStore interface {
	// UpsertUser creates the user or replaces its password hash; created
	// reports which happened.
	UpsertUser(ctx context.Context, username, passwordHash string, staff bool) (created bool, err error)
	GetUser(ctx context.Context, username string) (*models.User, error)
}

// Store is everything the service persists.
type Store interface {
	DatasetStore
	UserStore
	Close() error
}

// Options configures Open.
type Options struct {
	Driver string // "duckdb", "sqlite" or "postgres"

	// DSN is a file path for duckdb and sqlite (empty means in-memory) and a
	// connection URL for postgres.
	DSN string

	Retention         int
	DuckDBThreads     int
	DuckDBMemoryLimit string

	Logger *slog.Logger
	Now    func() time.Time
}

// Open connects to the configured database and applies the schema.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	d, ok := dialects[opts.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}

	if d.fileDSN && opts.DSN != "" {
		if err := os.MkdirAll(filepath.Dir(opts.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := d.open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", d.name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", d.name, err)
	}

	s := &SQLStore{
		db:        db,
		dialect:   d,
		retention: opts.Retention,
		now:       opts.Now,
		logger:    opts.Logger.With("component", "store", "driver", d.name),
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("store opened", "retention", s.retention, "inMemory", opts.DSN == "")
	return s, nil
}
