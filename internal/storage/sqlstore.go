package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chemequip/backend/internal/models"
	"github.com/google/uuid"
)

// SQLStore implements Store on top of database/sql.
type SQLStore struct {
	db        *sql.DB
	dialect   dialect
	retention int
	now       func() time.Time
	logger    *slog.Logger

	// writeMu serializes insert+prune so two uploads never prune against
	// different views of the newest records.
	writeMu sync.Mutex
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS datasets (
		id           TEXT PRIMARY KEY,
		seq          BIGINT NOT NULL,
		file_name    TEXT NOT NULL,
		uploaded_at  BIGINT NOT NULL,
		summary      TEXT NOT NULL,
		column_names TEXT NOT NULL,
		data         TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_datasets_uploaded_at ON datasets (uploaded_at, seq)`,
	`CREATE TABLE IF NOT EXISTS users (
		username      TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		is_staff      BOOLEAN NOT NULL,
		created_at    BIGINT NOT NULL
	)`,
}

const datasetColumns = `id, seq, file_name, uploaded_at, summary, column_names, data`

// newestFirst is the only ordering the store exposes.
const newestFirst = `ORDER BY uploaded_at DESC, seq DESC`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) q(query string) string {
	return s.dialect.rebind(query)
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Insert stores a dataset and prunes older ones in one transaction.
func (s *SQLStore) Insert(ctx context.Context, nd models.NewDataset) (*models.Dataset, int, error) {
	columns := nd.Columns
	if columns == nil {
		columns = []string{}
	}
	data := nd.Data
	if data == nil {
		data = []models.Row{}
	}
	summary := nd.Summary
	if summary.TypeDistribution == nil {
		summary.TypeDistribution = map[string]int{}
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding summary: %w", err)
	}
	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding columns: %w", err)
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding rows: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var maxSeq, maxUploaded sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(seq), MAX(uploaded_at) FROM datasets`).Scan(&maxSeq, &maxUploaded); err != nil {
		return nil, 0, fmt.Errorf("reading sequence: %w", err)
	}

	// A clock that stepped backwards must not sort the new dataset behind
	// the ones it is meant to replace.
	uploadedAt := s.now().UTC().Truncate(time.Microsecond)
	if maxUploaded.Valid && uploadedAt.UnixMicro() < maxUploaded.Int64 {
		uploadedAt = time.UnixMicro(maxUploaded.Int64).UTC()
	}

	ds := &models.Dataset{
		ID:         uuid.NewString(),
		FileName:   nd.FileName,
		UploadedAt: uploadedAt,
		Summary:    summary,
		Columns:    columns,
		Data:       data,
		Seq:        maxSeq.Int64 + 1,
	}

	_, err = tx.ExecContext(ctx, s.q(`INSERT INTO datasets (`+datasetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		ds.ID,
		ds.Seq,
		ds.FileName,
		ds.UploadedAt.UnixMicro(),
		string(summaryJSON),
		string(columnsJSON),
		string(dataJSON),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("inserting dataset: %w", err)
	}

	pruned, err := s.prune(ctx, tx)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("committing dataset: %w", err)
	}

	s.logger.Debug("dataset stored", "id", ds.ID, "file", ds.FileName, "rows", len(ds.Data), "pruned", pruned)
	return ds, pruned, nil
}

// Prune deletes every dataset outside the retention window.
func (s *SQLStore) Prune(ctx context.Context) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := s.prune(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing prune: %w", err)
	}
	return n, nil
}

func (s *SQLStore) prune(ctx context.Context, ex execer) (int, error) {
	query := fmt.Sprintf(
		`DELETE FROM datasets WHERE id NOT IN (SELECT id FROM datasets %s LIMIT %d)`,
		newestFirst, s.retention,
	)
	res, err := ex.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("pruning datasets: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning datasets: %w", err)
	}
	return int(n), nil
}

// Latest returns the newest dataset or ErrNotFound.
func (s *SQLStore) Latest(ctx context.Context) (*models.Dataset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets `+newestFirst+` LIMIT 1`)
	return scanDataset(row)
}

// Get returns one dataset or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, id string) (*models.Dataset, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+datasetColumns+` FROM datasets WHERE id = ?`), id)
	return scanDataset(row)
}

// History returns up to limit dataset summaries, newest first. A limit
// outside 1..retention is clamped to the retention window.
func (s *SQLStore) History(ctx context.Context, limit int) ([]models.DatasetSummary, error) {
	if limit <= 0 || limit > s.retention {
		limit = s.retention
	}

	query := fmt.Sprintf(`SELECT id, seq, file_name, uploaded_at, summary FROM datasets %s LIMIT %d`, newestFirst, limit)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	history := make([]models.DatasetSummary, 0, limit)
	for rows.Next() {
		var (
			item        models.DatasetSummary
			seq         int64
			uploadedAt  int64
			summaryJSON string
		)
		if err := rows.Scan(&item.ID, &seq, &item.FileName, &uploadedAt, &summaryJSON); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		item.UploadedAt = time.UnixMicro(uploadedAt).UTC()
		if err := json.Unmarshal([]byte(summaryJSON), &item.Summary); err != nil {
			return nil, fmt.Errorf("decoding summary of %s: %w", item.ID, err)
		}
		history = append(history, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return history, nil
}

// Count returns the number of stored datasets.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting datasets: %w", err)
	}
	return int(n), nil
}

func scanDataset(row rowScanner) (*models.Dataset, error) {
	var (
		ds                                 models.Dataset
		uploadedAt                         int64
		summaryJSON, columnsJSON, dataJSON string
	)
	err := row.Scan(&ds.ID, &ds.Seq, &ds.FileName, &uploadedAt, &summaryJSON, &columnsJSON, &dataJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning dataset: %w", err)
	}

	ds.UploadedAt = time.UnixMicro(uploadedAt).UTC()
	if err := json.Unmarshal([]byte(summaryJSON), &ds.Summary); err != nil {
		return nil, fmt.Errorf("decoding summary of %s: %w", ds.ID, err)
	}
	if err := json.Unmarshal([]byte(columnsJSON), &ds.Columns); err != nil {
		return nil, fmt.Errorf("decoding columns of %s: %w", ds.ID, err)
	}
	if err := json.Unmarshal([]byte(dataJSON), &ds.Data); err != nil {
		return nil, fmt.Errorf("decoding rows of %s: %w", ds.ID, err)
	}
	return &ds, nil
}
