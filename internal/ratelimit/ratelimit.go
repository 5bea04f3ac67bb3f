package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultMinInterval   = 10 * time.Second
	DefaultSweepInterval = 5 * time.Minute
)

// Limiter - минимальный интервал между запросами по одному субъекту.
// Субъекты друг другу не мешают.
type Limiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
	sweep    time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
}

type Config struct {
	MinInterval   time.Duration
	SweepInterval time.Duration
	// Clock подменяется в тестах
	Clock func() time.Time
}

func New(cfg Config) *Limiter {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	l := &Limiter{
		last:     make(map[string]time.Time),
		interval: cfg.MinInterval,
		sweep:    cfg.SweepInterval,
		now:      cfg.Clock,
		stopChan: make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow пропускает запрос и запоминает его время, либо возвращает
// сколько ждать до следующего разрешенного запроса.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.last[key]; ok {
		if elapsed := now.Sub(last); elapsed < l.interval {
			return false, l.interval - elapsed
		}
	}

	l.last[key] = now
	return true, 0
}

// RetryAfter - сколько осталось ждать; 0 если можно прямо сейчас.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	last, ok := l.last[key]
	if !ok {
		return 0
	}
	if rem := l.interval - l.now().Sub(last); rem > 0 {
		return rem
	}
	return 0
}

func (l *Limiter) Interval() time.Duration {
	return l.interval
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}

// Sweep удаляет записи, интервал которых уже истек.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, last := range l.last {
		if now.Sub(last) >= l.interval {
			delete(l.last, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
}

func (l *Limiter) cleanup() {
	tick := time.NewTicker(l.sweep)
	defer tick.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-tick.C:
			l.Sweep()
		}
	}
}
