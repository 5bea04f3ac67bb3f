// Package search собирает сырые результаты web_search по субъекту
// из потокового AI-провайдера.
package search

import (
	"context"
	"time"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/verify"
)

const (
	DefaultStreamTimeout = 45 * time.Second
	DefaultMaxAttempts   = 3
	DefaultBackoffStep   = time.Second
	DefaultMaxHits       = 40
)

// Ingestor возвращает дедуплицированные hits или ошибку провайдера.
// Таймаут потока ошибкой не считается: отдается то, что успели собрать.
type Ingestor interface {
	Ingest(ctx context.Context, subject domain.SearchSubject) ([]domain.RawSearchHit, error)
}

type Config struct {
	Model         string
	Region        verify.Region
	StreamTimeout time.Duration
	MaxAttempts   int
	BackoffStep   time.Duration
	MaxHits       int
}

func (c Config) withDefaults() Config {
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = DefaultStreamTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BackoffStep <= 0 {
		c.BackoffStep = DefaultBackoffStep
	}
	if c.MaxHits <= 0 {
		c.MaxHits = DefaultMaxHits
	}
	if c.Region.Country == "" && len(c.Region.Cities) == 0 {
		c.Region = verify.DefaultRegion()
	}
	return c
}
