package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/cache"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/metrics"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/repository"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/search"
)

type ProfileBuilder interface {
	Build(subject domain.SearchSubject, hits []domain.RawSearchHit) []domain.CandidateProfile
}

type RateLimiter interface {
	Allow(key string) (bool, time.Duration)
}

type FinderService interface {
	Search(ctx context.Context, subject domain.SearchSubject) (*domain.SearchResponse, error)
	History(ctx context.Context, subjectKey string) ([]domain.SearchRecord, error)
}

type FinderConfig struct {
	HistoryLimit   int
	Mode           string
	PersistTimeout time.Duration
}

type FinderServiceDeps struct {
	Ingestor search.Ingestor
	Builder  ProfileBuilder
	Cache    *cache.ProfileStore
	Limiter  RateLimiter
	History  repository.SearchHistoryRepository
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Config   FinderConfig
	Clock    func() time.Time
}

type finderService struct {
	ingestor search.Ingestor
	builder  ProfileBuilder
	cache    *cache.ProfileStore
	limiter  RateLimiter
	history  repository.SearchHistoryRepository
	logger   *zap.Logger
	metrics  *metrics.Metrics
	config   FinderConfig
	now      func() time.Time
}

func NewFinderService(deps FinderServiceDeps) FinderService {
	if deps.Config.HistoryLimit <= 0 {
		deps.Config.HistoryLimit = 10
	}
	if deps.Config.Mode == "" {
		deps.Config.Mode = cache.ModeStrict
	}
	if deps.Config.PersistTimeout <= 0 {
		deps.Config.PersistTimeout = 5 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	return &finderService{
		ingestor: deps.Ingestor,
		builder:  deps.Builder,
		cache:    deps.Cache,
		limiter:  deps.Limiter,
		history:  deps.History,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		config:   deps.Config,
		now:      deps.Clock,
	}
}

// Search: валидация -> лимит по субъекту -> кеш -> провайдер -> сборка -> кеш -> история.
// Лимит проверяется до кеша, так что кеш его не обходит.
func (s *finderService) Search(ctx context.Context, subject domain.SearchSubject) (*domain.SearchResponse, error) {
	startTime := time.Now()

	if s.metrics != nil {
		s.metrics.IncRequestsInFlight()
		defer s.metrics.DecRequestsInFlight()
	}

	subject.Sanitize()
	if err := subject.Validate(); err != nil {
		s.record("validation_error", startTime)
		return nil, err
	}

	log := s.logger.With(zap.String("subject_key", subject.SubjectKey))

	if ok, retryAfter := s.limiter.Allow(subject.SubjectKey); !ok {
		if s.metrics != nil {
			s.metrics.RecordRateLimitHit()
		}
		s.record("rate_limited", startTime)
		log.Info("profile search rate limited", zap.Duration("retry_after", retryAfter))
		return nil, &domain.RateLimitedError{RetryAfter: retryAfter}
	}

	key := cache.Key(subject, s.config.Mode)
	if entry, ok := s.cache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.RecordCacheHit()
		}
		s.record("cached", startTime)
		log.Info("profile search served from cache",
			zap.Int("profiles", len(entry.Profiles)),
			zap.Time("cached_at", entry.CreatedAt),
		)
		return &domain.SearchResponse{Profiles: entry.Profiles, Cached: true}, nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss()
	}

	log.Info("profile search started",
		zap.Int("name_length", len(subject.Name)),
		zap.String("mode", s.config.Mode),
	)

	hits, err := s.ingestor.Ingest(ctx, subject)
	if err != nil {
		s.record("provider_error", startTime)
		log.Warn("profile search failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
	}

	profiles := s.builder.Build(subject, hits)
	s.cache.Put(key, profiles, s.now())
	s.persist(ctx, subject, profiles, log)

	if s.metrics != nil {
		s.metrics.RecordProfiles(len(profiles))
	}
	s.record("success", startTime)

	log.Info("profile search finished",
		zap.Int("hits", len(hits)),
		zap.Int("profiles", len(profiles)),
		zap.Duration("elapsed", time.Since(startTime)),
	)

	return &domain.SearchResponse{Profiles: profiles, Cached: false}, nil
}

// persist - best-effort: ошибка логируется, ответ пользователю не ломается.
// Отмена запроса клиентом не должна обрывать запись истории.
func (s *finderService) persist(ctx context.Context, subject domain.SearchSubject, profiles []domain.CandidateProfile, log *zap.Logger) {
	if s.history == nil || len(profiles) == 0 {
		return
	}

	records := make([]domain.SearchRecord, 0, len(profiles))
	for _, p := range profiles {
		rec, err := domain.NewSearchRecord(subject, p)
		if err != nil {
			log.Warn("skip unserializable candidate", zap.String("candidate_id", p.ID), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.PersistTimeout)
	defer cancel()

	if err := s.history.CreateBatch(ctx, records); err != nil {
		if s.metrics != nil {
			s.metrics.RecordPersistenceFailure()
		}
		log.Warn("failed to save search history",
			zap.Int("records", len(records)),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrPersistence, err)),
		)
	}
}

func (s *finderService) History(ctx context.Context, subjectKey string) ([]domain.SearchRecord, error) {
	subjectKey = strings.TrimSpace(subjectKey)
	if subjectKey == "" {
		return nil, domain.ErrEmptySubjectKey
	}

	records, err := s.history.ListRecent(ctx, subjectKey, s.config.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}

func (s *finderService) record(status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordSearch(status, time.Since(start))
	}
}
