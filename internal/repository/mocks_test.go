package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
)

func TestMockSearchHistoryRepository_ListRecent(t *testing.T) {
	repo := NewMockSearchHistoryRepository()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		rec := &domain.SearchRecord{
			SubjectKey:  "contact-1",
			SubjectName: fmt.Sprintf("candidate %d", i),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if err := repo.Create(ctx, &domain.SearchRecord{SubjectKey: "contact-2", CreatedAt: base}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name      string
		key       string
		limit     int
		wantLen   int
		wantFirst string
	}{
		{"capped and newest first", "contact-1", 10, 10, "candidate 11"},
		{"no limit", "contact-1", 0, 12, "candidate 11"},
		{"other subject", "contact-2", 10, 1, ""},
		{"unknown subject", "nobody", 10, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListRecent(ctx, tt.key, tt.limit)
			if err != nil {
				t.Fatalf("ListRecent() error = %v", err)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("ListRecent() len = %d, want %d", len(got), tt.wantLen)
			}
			if tt.wantFirst != "" && got[0].SubjectName != tt.wantFirst {
				t.Errorf("first = %q, want %q", got[0].SubjectName, tt.wantFirst)
			}
		})
	}
}

func TestMockSearchHistoryRepository_CreateBatch(t *testing.T) {
	repo := NewMockSearchHistoryRepository()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.Now = func() time.Time { return now }

	records := []domain.SearchRecord{
		{SubjectKey: "c1", SubjectName: "first"},
		{SubjectKey: "c1", SubjectName: "second"},
	}
	if err := repo.CreateBatch(context.Background(), records); err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}

	if records[0].SearchID == 0 || records[1].SearchID <= records[0].SearchID {
		t.Errorf("ids not assigned in order: %d, %d", records[0].SearchID, records[1].SearchID)
	}

	got, _ := repo.ListRecent(context.Background(), "c1", 10)
	// одинаковое время - новее тот, у кого больше id
	if got[0].SubjectName != "second" {
		t.Errorf("first = %q, want second", got[0].SubjectName)
	}
}

func TestMockSearchHistoryRepository_FailWith(t *testing.T) {
	repo := NewMockSearchHistoryRepository()
	repo.FailWith = errors.New("db down")

	if err := repo.Create(context.Background(), &domain.SearchRecord{SubjectKey: "c1"}); err == nil {
		t.Error("Create() error = nil, want failure")
	}
	if err := repo.CreateBatch(context.Background(), []domain.SearchRecord{{SubjectKey: "c1"}}); err == nil {
		t.Error("CreateBatch() error = nil, want failure")
	}
	if repo.Count() != 0 {
		t.Errorf("Count() = %d, want 0", repo.Count())
	}
}
