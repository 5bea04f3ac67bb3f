package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
)

type MockSearchHistoryRepository struct {
	mu      sync.RWMutex
	records []domain.SearchRecord
	nextID  int64

	// FailWith - если задан, любая запись возвращает эту ошибку
	FailWith error
	// Now подменяет время создания записей
	Now func() time.Time
}

func NewMockSearchHistoryRepository() *MockSearchHistoryRepository {
	return &MockSearchHistoryRepository{
		nextID: 1,
		Now:    time.Now,
	}
}

func (m *MockSearchHistoryRepository) Create(ctx context.Context, record *domain.SearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	m.insert(record)
	return nil
}

func (m *MockSearchHistoryRepository) CreateBatch(ctx context.Context, records []domain.SearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	for i := range records {
		m.insert(&records[i])
	}
	return nil
}

func (m *MockSearchHistoryRepository) insert(record *domain.SearchRecord) {
	record.SearchID = m.nextID
	m.nextID++
	if record.CreatedAt.IsZero() {
		record.CreatedAt = m.Now()
	}
	m.records = append(m.records, *record)
}

func (m *MockSearchHistoryRepository) ListRecent(ctx context.Context, subjectKey string, limit int) ([]domain.SearchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []domain.SearchRecord
	for _, r := range m.records {
		if r.SubjectKey == subjectKey {
			result = append(result, r)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].SearchID > result[j].SearchID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockSearchHistoryRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

var _ SearchHistoryRepository = (*MockSearchHistoryRepository)(nil)
