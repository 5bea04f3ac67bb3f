package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/repository"
)

var historySchema = []string{
	`CREATE TABLE IF NOT EXISTS linkedin_search_history (
		search_id BIGSERIAL PRIMARY KEY,
		subject_key TEXT NOT NULL,
		subject_name TEXT NOT NULL,
		organization TEXT NOT NULL,
		candidate JSONB NOT NULL,
		confidence_score INTEGER NOT NULL CHECK (confidence_score BETWEEN 0 AND 100),
		region_label TEXT,
		organization_verified BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_linkedin_search_history_subject
		ON linkedin_search_history (subject_key, created_at DESC)`,
}

const insertHistory = `
	INSERT INTO linkedin_search_history
		(subject_key, subject_name, organization, candidate, confidence_score, region_label, organization_verified)
	VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7)
	RETURNING search_id, created_at
`

// HistoryRepo создает таблицу при первом обращении.
type HistoryRepo struct {
	db *DB

	mu    sync.Mutex
	ready bool
}

func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// EnsureSchema идемпотентна; после первого успеха больше не ходит в базу.
func (r *HistoryRepo) EnsureSchema(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ready {
		return nil
	}
	for _, stmt := range historySchema {
		if _, err := r.db.Pool.Exec(ctx, stmt); err != nil {
			if isDuplicateError(err) {
				// параллельный CREATE из другого процесса
				continue
			}
			return fmt.Errorf("ensure history schema: %w", err)
		}
	}
	r.ready = true
	return nil
}

func (r *HistoryRepo) Create(ctx context.Context, record *domain.SearchRecord) error {
	if err := r.EnsureSchema(ctx); err != nil {
		return err
	}

	err := r.db.Pool.QueryRow(ctx, insertHistory, insertArgs(record)...).
		Scan(&record.SearchID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("create search record: %w", err)
	}
	return nil
}

// CreateBatch пишет все записи в одной транзакции: либо все, либо ничего.
func (r *HistoryRepo) CreateBatch(ctx context.Context, records []domain.SearchRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := r.EnsureSchema(ctx); err != nil {
		return err
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i := range records {
		batch.Queue(insertHistory, insertArgs(&records[i])...)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range records {
		if err := br.QueryRow().Scan(&records[i].SearchID, &records[i].CreatedAt); err != nil {
			br.Close()
			return fmt.Errorf("create search record %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *HistoryRepo) ListRecent(ctx context.Context, subjectKey string, limit int) ([]domain.SearchRecord, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT search_id, subject_key, subject_name, organization, candidate,
		       confidence_score, region_label, organization_verified, created_at
		FROM linkedin_search_history
		WHERE subject_key = $1
		ORDER BY created_at DESC, search_id DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, subjectKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func insertArgs(record *domain.SearchRecord) []any {
	return []any{
		record.SubjectKey,
		record.SubjectName,
		record.Organization,
		string(record.SerializedCandidate),
		record.ConfidenceScore,
		nullString(record.RegionLabel),
		record.OrganizationVerified,
	}
}

func scanRecords(rows pgx.Rows) ([]domain.SearchRecord, error) {
	var records []domain.SearchRecord
	for rows.Next() {
		var (
			rec    domain.SearchRecord
			region *string
		)
		if err := rows.Scan(
			&rec.SearchID,
			&rec.SubjectKey,
			&rec.SubjectName,
			&rec.Organization,
			&rec.SerializedCandidate,
			&rec.ConfidenceScore,
			&region,
			&rec.OrganizationVerified,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan search record: %w", err)
		}
		if region != nil {
			rec.RegionLabel = *region
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return records, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isDuplicateError - нарушение уникальности (в т.ч. гонка CREATE TABLE IF NOT EXISTS)
func isDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ repository.SearchHistoryRepository = (*HistoryRepo)(nil)
