package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/llm"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/metrics"
)

type StreamIngestor struct {
	client  llm.StreamClient
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewStreamIngestor(client llm.StreamClient, cfg Config, logger *zap.Logger, m *metrics.Metrics) *StreamIngestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamIngestor{
		client:  client,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		metrics: m,
	}
}

// attemptState - явное состояние ретраев: номер попытки, общий дедлайн
// и последняя transient ошибка.
type attemptState struct {
	attempt  int
	max      int
	deadline time.Time
	lastErr  *domain.ProviderError
}

func (s *attemptState) exhausted() bool {
	return s.attempt >= s.max
}

// backoff растет линейно: attempt * step.
func (s *attemptState) backoff(step time.Duration) time.Duration {
	return time.Duration(s.attempt) * step
}

func (i *StreamIngestor) Ingest(ctx context.Context, subject domain.SearchSubject) ([]domain.RawSearchHit, error) {
	queries := BuildQueries(subject, i.cfg.Region)
	req := llm.NewWebSearchRequest(i.cfg.Model, Instructions, BuildInputs(queries))

	start := time.Now()
	streamCtx, cancel := context.WithTimeout(ctx, i.cfg.StreamTimeout)
	defer cancel()

	state := attemptState{max: i.cfg.MaxAttempts}
	state.deadline, _ = streamCtx.Deadline()
	hits := newHitSet(i.cfg.MaxHits)

	log := i.logger.With(
		zap.String("provider", i.client.Name()),
		zap.String("subject_key", subject.SubjectKey),
	)

	for !state.exhausted() {
		state.attempt++

		err := i.stream(streamCtx, req, hits, log)
		if err == nil {
			i.recordAttempt("ok")
			i.recordStream(start, hits.size())
			log.Info("web search ingested",
				zap.Int("attempt", state.attempt),
				zap.Int("hits", hits.size()),
				zap.Duration("elapsed", time.Since(start)),
			)
			return hits.list(), nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if timedOut(streamCtx) {
			return i.onDeadline(&state, hits, start, log)
		}

		var perr *domain.ProviderError
		if !errors.As(err, &perr) {
			perr = &domain.ProviderError{Kind: domain.ProviderFatal, Provider: i.client.Name(), Err: err}
		}
		if !perr.Transient() {
			i.recordAttempt("fatal")
			log.Warn("web search failed", zap.Int("attempt", state.attempt), zap.Error(perr))
			return nil, perr
		}

		i.recordAttempt("transient")
		state.lastErr = perr
		if state.exhausted() {
			break
		}

		wait := state.backoff(i.cfg.BackoffStep)
		log.Warn("web search attempt failed, retrying",
			zap.Int("attempt", state.attempt),
			zap.Int("max_attempts", state.max),
			zap.Duration("backoff", wait),
			zap.Error(perr),
		)

		timer := time.NewTimer(wait)
		select {
		case <-streamCtx.Done():
			timer.Stop()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return i.onDeadline(&state, hits, start, log)
		case <-timer.C:
		}
	}

	i.recordStream(start, hits.size())
	log.Warn("web search retries exhausted",
		zap.Int("attempts", state.attempt),
		zap.Error(state.lastErr),
	)
	return nil, state.lastErr.Escalate()
}

// onDeadline: если поток успел открыться, собранное отдается без ошибки.
// Если дедлайн застал нас между неудачными попытками, это провал провайдера.
func (i *StreamIngestor) onDeadline(state *attemptState, hits *hitSet, start time.Time, log *zap.Logger) ([]domain.RawSearchHit, error) {
	i.recordAttempt("timeout")
	i.recordStream(start, hits.size())

	if hits.size() == 0 && state.lastErr != nil {
		log.Warn("web search deadline reached after failed attempts",
			zap.Int("attempts", state.attempt),
			zap.Error(state.lastErr),
		)
		return nil, state.lastErr.Escalate()
	}

	log.Info("web search deadline reached, returning partial results",
		zap.Int("attempt", state.attempt),
		zap.Int("hits", hits.size()),
		zap.Time("deadline", state.deadline),
	)
	return hits.list(), nil
}

// stream - одна попытка: открыть поток и читать кадры до конца.
// Тело закрывается на любом пути выхода.
func (i *StreamIngestor) stream(ctx context.Context, req llm.ConversationRequest, hits *hitSet, log *zap.Logger) error {
	body, err := i.client.OpenStream(ctx, req)
	if err != nil {
		return err
	}
	defer body.Close()

	dec := llm.NewFrameDecoder(body)
	defer func() {
		if dec.Skipped > 0 {
			log.Debug("skipped malformed stream frames", zap.Int("skipped", dec.Skipped))
		}
	}()

	for !hits.full() {
		frame, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// оборванный поток с уже собранными результатами не повторяем
			if hits.size() > 0 {
				log.Warn("stream interrupted, keeping partial results",
					zap.Int("hits", hits.size()),
					zap.Error(err),
				)
				return nil
			}
			return llm.NetworkError(i.client.Name(), fmt.Errorf("read stream: %w", err))
		}

		hits.add(ExtractHits(frame))
	}
	return nil
}

func timedOut(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

func (i *StreamIngestor) recordAttempt(status string) {
	if i.metrics != nil {
		i.metrics.RecordProviderAttempt(i.client.Name(), status)
	}
}

func (i *StreamIngestor) recordStream(start time.Time, hits int) {
	if i.metrics != nil {
		i.metrics.RecordStream(i.client.Name(), time.Since(start), hits)
	}
}

// hitSet - дедупликация по URL без учета регистра, порядок первого появления.
type hitSet struct {
	limit int
	seen  map[string]struct{}
	hits  []domain.RawSearchHit
}

func newHitSet(limit int) *hitSet {
	return &hitSet{limit: limit, seen: make(map[string]struct{})}
}

func (s *hitSet) add(hits []domain.RawSearchHit) {
	for _, h := range hits {
		if s.full() {
			return
		}
		key := strings.ToLower(strings.TrimSpace(h.URL))
		if key == "" {
			continue
		}
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		s.hits = append(s.hits, h)
	}
}

func (s *hitSet) full() bool {
	return len(s.hits) >= s.limit
}

func (s *hitSet) size() int {
	return len(s.hits)
}

func (s *hitSet) list() []domain.RawSearchHit {
	out := make([]domain.RawSearchHit, len(s.hits))
	copy(out, s.hits)
	return out
}

var _ Ingestor = (*StreamIngestor)(nil)
