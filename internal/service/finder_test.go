package service

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/cache"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/cache/memory"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/metrics"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/profile"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/ratelimit"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/repository"
	searchMock "github.com/PMO-Assistant/Tender-Backend-sub001/internal/search/mock"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/verify"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type finderFixture struct {
	service  FinderService
	ingestor *searchMock.Ingestor
	history  *repository.MockSearchHistoryRepository
	clock    *testClock
}

var janeHits = []domain.RawSearchHit{
	{
		URL:     "https://linkedin.com/in/jane-public",
		Title:   "Jane Public - Acme Ltd | LinkedIn",
		Snippet: "Operations Manager at Acme Ltd, Dublin, Ireland",
	},
	{
		URL:     "https://example.com/jane",
		Title:   "Jane Public bio",
		Snippet: "Works at Acme Ltd",
	},
}

var janeSubject = domain.SearchSubject{Name: "Jane Public", Organization: "Acme Ltd", SubjectKey: "contact-1"}

func newFinderFixture(t *testing.T) *finderFixture {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}

	mem := memory.NewWithOptions(context.Background(), memory.Options{Clock: clock.Now})
	t.Cleanup(mem.Stop)

	limiter := ratelimit.New(ratelimit.Config{MinInterval: 10 * time.Second, Clock: clock.Now})
	t.Cleanup(limiter.Stop)

	ingestor := searchMock.New().WithHits(janeHits)
	history := repository.NewMockSearchHistoryRepository()
	history.Now = clock.Now

	svc := NewFinderService(FinderServiceDeps{
		Ingestor: ingestor,
		Builder:  profile.New(verify.New(verify.DefaultRegion(), verify.DefaultWeights()), 10),
		Cache:    cache.NewProfileStore(mem, time.Hour),
		Limiter:  limiter,
		History:  history,
		Logger:   zap.NewNop(),
		Metrics:  metrics.New(prometheus.NewRegistry()),
		Clock:    clock.Now,
	})

	return &finderFixture{service: svc, ingestor: ingestor, history: history, clock: clock}
}

func TestFinderService_Search(t *testing.T) {
	f := newFinderFixture(t)

	resp, err := f.service.Search(context.Background(), janeSubject)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if resp.Cached {
		t.Error("first search must not be cached")
	}
	if len(resp.Profiles) != 1 {
		t.Fatalf("Search() profiles = %d, want 1", len(resp.Profiles))
	}
	p := resp.Profiles[0]
	if p.DisplayName != "Jane Public" || p.RegionLabel != "Dublin, Ireland" || p.ConfidenceScore != 85 {
		t.Errorf("profile = %+v", p)
	}
	if f.history.Count() != 1 {
		t.Errorf("history records = %d, want 1", f.history.Count())
	}
}

func TestFinderService_CachedWithinTTL(t *testing.T) {
	f := newFinderFixture(t)
	ctx := context.Background()

	first, err := f.service.Search(ctx, janeSubject)
	if err != nil {
		t.Fatalf("first Search() error = %v", err)
	}

	f.clock.Advance(11 * time.Second)

	// те же поля с другим регистром и пробелами дают тот же ключ
	again := domain.SearchSubject{Name: "  jane   PUBLIC ", Organization: "ACME LTD", SubjectKey: "contact-1"}
	second, err := f.service.Search(ctx, again)
	if err != nil {
		t.Fatalf("second Search() error = %v", err)
	}

	if !second.Cached {
		t.Error("second search must be cached")
	}
	if !reflect.DeepEqual(first.Profiles, second.Profiles) {
		t.Error("cached profiles differ from the original ones")
	}
	if f.ingestor.Calls() != 1 {
		t.Errorf("provider calls = %d, want 1", f.ingestor.Calls())
	}
	if f.history.Count() != 1 {
		t.Errorf("history records = %d, want 1 (cache hit must not persist)", f.history.Count())
	}
}

func TestFinderService_CacheExpires(t *testing.T) {
	f := newFinderFixture(t)
	ctx := context.Background()

	if _, err := f.service.Search(ctx, janeSubject); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	f.clock.Advance(time.Hour)

	resp, err := f.service.Search(ctx, janeSubject)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Cached {
		t.Error("search after TTL must not be cached")
	}
	if f.ingestor.Calls() != 2 {
		t.Errorf("provider calls = %d, want 2", f.ingestor.Calls())
	}
}

func TestFinderService_RateLimited(t *testing.T) {
	f := newFinderFixture(t)
	ctx := context.Background()

	if _, err := f.service.Search(ctx, janeSubject); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	f.clock.Advance(4 * time.Second)

	_, err := f.service.Search(ctx, janeSubject)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("Search() error = %v, want ErrRateLimited", err)
	}
	var rl *domain.RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("error is not *RateLimitedError: %T", err)
	}
	if rl.RetryAfterSeconds() != 6 {
		t.Errorf("RetryAfterSeconds() = %d, want 6", rl.RetryAfterSeconds())
	}

	// другой субъект не задет
	other := janeSubject
	other.SubjectKey = "contact-2"
	if _, err := f.service.Search(ctx, other); err != nil {
		t.Errorf("other subject Search() error = %v", err)
	}

	f.clock.Advance(6 * time.Second)
	if _, err := f.service.Search(ctx, janeSubject); err != nil {
		t.Errorf("Search() after interval error = %v", err)
	}
}

func TestFinderService_Validation(t *testing.T) {
	tests := []struct {
		name    string
		subject domain.SearchSubject
		wantErr error
	}{
		{"empty name", domain.SearchSubject{Organization: "Acme", SubjectKey: "c1"}, domain.ErrEmptyName},
		{"empty organization", domain.SearchSubject{Name: "Jane", SubjectKey: "c1"}, domain.ErrEmptyOrganization},
		{"empty key", domain.SearchSubject{Name: "Jane", Organization: "Acme"}, domain.ErrEmptySubjectKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFinderFixture(t)

			_, err := f.service.Search(context.Background(), tt.subject)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Search() error = %v, want %v", err, tt.wantErr)
			}
			if f.ingestor.Calls() != 0 {
				t.Error("validation failure must not reach the provider")
			}
		})
	}
}

func TestFinderService_ProviderError(t *testing.T) {
	f := newFinderFixture(t)
	providerErr := &domain.ProviderError{
		Kind:       domain.ProviderFatal,
		Provider:   "mistral",
		StatusCode: http.StatusUnauthorized,
	}
	f.ingestor.WithError(providerErr)

	resp, err := f.service.Search(context.Background(), janeSubject)

	if resp != nil {
		t.Errorf("Search() resp = %+v, want nil", resp)
	}
	if !errors.Is(err, domain.ErrSearchFailed) {
		t.Errorf("Search() error = %v, want ErrSearchFailed", err)
	}
	var perr *domain.ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusUnauthorized {
		t.Errorf("provider error not preserved: %v", err)
	}
	if f.history.Count() != 0 {
		t.Error("failed search must not persist anything")
	}

	// провал не кешируется
	f.ingestor.WithError(nil)
	f.clock.Advance(11 * time.Second)
	resp, err = f.service.Search(context.Background(), janeSubject)
	if err != nil || resp.Cached {
		t.Errorf("Search() after failure = %+v, %v; want fresh result", resp, err)
	}
}

func TestFinderService_PersistenceFailureIsBestEffort(t *testing.T) {
	f := newFinderFixture(t)
	f.history.FailWith = errors.New("connection refused")

	resp, err := f.service.Search(context.Background(), janeSubject)
	if err != nil {
		t.Fatalf("Search() error = %v, want nil despite history failure", err)
	}
	if len(resp.Profiles) != 1 {
		t.Errorf("Search() profiles = %d, want 1", len(resp.Profiles))
	}
}

func TestFinderService_NoProfiles(t *testing.T) {
	f := newFinderFixture(t)
	f.ingestor.WithHits(nil)

	resp, err := f.service.Search(context.Background(), janeSubject)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Profiles) != 0 {
		t.Errorf("Search() profiles = %d, want 0", len(resp.Profiles))
	}
	if f.history.Count() != 0 {
		t.Errorf("history records = %d, want 0", f.history.Count())
	}
}

func TestFinderService_History(t *testing.T) {
	f := newFinderFixture(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		rec := &domain.SearchRecord{SubjectKey: "contact-1", ConfidenceScore: i}
		f.clock.Advance(time.Minute)
		if err := f.history.Create(ctx, rec); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	records, err := f.service.History(ctx, "contact-1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(records) != 10 {
		t.Fatalf("History() = %d records, want 10", len(records))
	}
	if records[0].ConfidenceScore != 11 {
		t.Errorf("newest record score = %d, want 11", records[0].ConfidenceScore)
	}

	if _, err := f.service.History(ctx, "  "); !errors.Is(err, domain.ErrEmptySubjectKey) {
		t.Errorf("History(empty) error = %v, want ErrEmptySubjectKey", err)
	}
}

func TestFinderService_ConcurrentSubjects(t *testing.T) {
	f := newFinderFixture(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			subject := janeSubject
			subject.SubjectKey = "contact-" + string(rune('a'+i))
			if _, err := f.service.Search(context.Background(), subject); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Search() error = %v", err)
	}
	if f.ingestor.Calls() != 20 {
		t.Errorf("provider calls = %d, want 20", f.ingestor.Calls())
	}
}
