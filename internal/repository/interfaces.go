package repository

import (
	"context"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
)

// SearchHistoryRepository - журнал кандидатов, только добавление.
// ListRecent отдает новые записи первыми.
type SearchHistoryRepository interface {
	Create(ctx context.Context, record *domain.SearchRecord) error
	CreateBatch(ctx context.Context, records []domain.SearchRecord) error
	ListRecent(ctx context.Context, subjectKey string, limit int) ([]domain.SearchRecord, error)
}
