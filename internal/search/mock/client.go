package mock

import (
	"context"
	"sync"
	"time"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/search"
)

type Ingestor struct {
	Hits  []domain.RawSearchHit
	Error error
	Delay time.Duration

	CallCount   int
	LastSubject domain.SearchSubject
	AllSubjects []domain.SearchSubject

	mu sync.Mutex
}

func New() *Ingestor {
	return &Ingestor{}
}

func (c *Ingestor) WithHits(hits []domain.RawSearchHit) *Ingestor {
	c.Hits = hits
	return c
}

func (c *Ingestor) WithError(err error) *Ingestor {
	c.Error = err
	return c
}

func (c *Ingestor) WithDelay(delay time.Duration) *Ingestor {
	c.Delay = delay
	return c
}

func (c *Ingestor) Ingest(ctx context.Context, subject domain.SearchSubject) ([]domain.RawSearchHit, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastSubject = subject
	c.AllSubjects = append(c.AllSubjects, subject)
	delay := c.Delay
	err := c.Error
	hits := c.Hits
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}

	out := make([]domain.RawSearchHit, len(hits))
	copy(out, hits)
	return out, nil
}

func (c *Ingestor) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCount
}

func (c *Ingestor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastSubject = domain.SearchSubject{}
	c.AllSubjects = nil
}

var _ search.Ingestor = (*Ingestor)(nil)
