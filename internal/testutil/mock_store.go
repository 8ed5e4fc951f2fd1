// mock_store.go - In-memory storage.Store for handler tests
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chemequip/backend/internal/models"
	"github.com/chemequip/backend/internal/storage"
)

// MockStore keeps datasets in memory, newest first, with the same
// retention behaviour as the SQL store. The *Err fields inject failures.
type MockStore struct {
	mu        sync.RWMutex
	datasets  []*models.Dataset
	users     map[string]*models.User
	retention int
	seq       int64
	now       func() time.Time

	InsertErr  error
	LatestErr  error
	HistoryErr error
	GetErr     error
	CountErr   error
	UserErr    error

	Inserts int
}

// NewMockStore creates an empty store keeping retention datasets.
func NewMockStore(retention int) *MockStore {
	if retention <= 0 {
		retention = storage.DefaultRetention
	}
	return &MockStore{
		users:     make(map[string]*models.User),
		retention: retention,
		now:       time.Now,
	}
}

// SetNow replaces the clock used for upload timestamps.
func (m *MockStore) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MockStore) Insert(_ context.Context, nd models.NewDataset) (*models.Dataset, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return nil, 0, m.InsertErr
	}

	m.seq++
	m.Inserts++
	summary := nd.Summary
	if summary.TypeDistribution == nil {
		summary.TypeDistribution = map[string]int{}
	}
	ds := &models.Dataset{
		ID:         fmt.Sprintf("00000000-0000-4000-8000-%012d", m.seq),
		FileName:   nd.FileName,
		UploadedAt: m.now().UTC(),
		Summary:    summary,
		Columns:    nd.Columns,
		Data:       nd.Data,
		Seq:        m.seq,
	}

	m.datasets = append([]*models.Dataset{ds}, m.datasets...)
	pruned := 0
	if len(m.datasets) > m.retention {
		pruned = len(m.datasets) - m.retention
		m.datasets = m.datasets[:m.retention]
	}
	return ds, pruned, nil
}

func (m *MockStore) Prune(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.datasets) <= m.retention {
		return 0, nil
	}
	pruned := len(m.datasets) - m.retention
	m.datasets = m.datasets[:m.retention]
	return pruned, nil
}

func (m *MockStore) Latest(context.Context) (*models.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.LatestErr != nil {
		return nil, m.LatestErr
	}
	if len(m.datasets) == 0 {
		return nil, storage.ErrNotFound
	}
	return m.datasets[0], nil
}

func (m *MockStore) History(_ context.Context, limit int) ([]models.DatasetSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}
	if limit <= 0 || limit > m.retention {
		limit = m.retention
	}
	out := make([]models.DatasetSummary, 0, limit)
	for _, ds := range m.datasets {
		if len(out) == limit {
			break
		}
		out = append(out, ds.SummaryView())
	}
	return out, nil
}

func (m *MockStore) Get(_ context.Context, id string) (*models.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, ds := range m.datasets {
		if ds.ID == id {
			return ds, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *MockStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return len(m.datasets), nil
}

func (m *MockStore) UpsertUser(_ context.Context, username, passwordHash string, staff bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UserErr != nil {
		return false, m.UserErr
	}
	if u, ok := m.users[username]; ok {
		u.PasswordHash = passwordHash
		u.IsStaff = staff
		return false, nil
	}
	m.users[username] = &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		IsStaff:      staff,
		CreatedAt:    m.now().UTC(),
	}
	return true, nil
}

func (m *MockStore) GetUser(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.UserErr != nil {
		return nil, m.UserErr
	}
	u, ok := m.users[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockStore) Close() error { return nil }

// Ensure MockStore implements storage.Store
var _ storage.Store = (*MockStore)(nil)

// Test Helper Methods

// IDs returns the stored dataset ids, newest first.
func (m *MockStore) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, len(m.datasets))
	for i, ds := range m.datasets {
		ids[i] = ds.ID
	}
	return ids
}
