package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/textnorm"
)

// Cache - хранилище с TTL. Sweep удаляет просроченное и возвращает сколько удалено.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Sweep() int
}

// ModeStrict - режим поиска, сейчас единственный; входит в ключ кеша.
const ModeStrict = "strict"

// Entry - результат поиска по субъекту.
type Entry struct {
	Profiles  []domain.CandidateProfile
	CreatedAt time.Time
}

// Key зависит только от нормализованных полей субъекта и режима.
func Key(subject domain.SearchSubject, mode string) string {
	raw := strings.Join([]string{
		strings.TrimSpace(subject.SubjectKey),
		textnorm.Normalize(subject.Name),
		textnorm.Normalize(subject.Organization),
		mode,
	}, "\x00")
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("profiles:%x", hash[:16])
}

// ProfileStore - типизированная обертка над Cache для результатов поиска.
type ProfileStore struct {
	cache Cache
	ttl   time.Duration
}

func NewProfileStore(c Cache, ttl time.Duration) *ProfileStore {
	return &ProfileStore{cache: c, ttl: ttl}
}

func (s *ProfileStore) Get(key string) (Entry, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return Entry{}, false
	}
	entry, ok := v.(Entry)
	if !ok {
		return Entry{}, false
	}
	entry.Profiles = append([]domain.CandidateProfile(nil), entry.Profiles...)
	return entry, true
}

func (s *ProfileStore) Put(key string, profiles []domain.CandidateProfile, now time.Time) {
	s.cache.Set(key, Entry{
		Profiles:  append([]domain.CandidateProfile(nil), profiles...),
		CreatedAt: now,
	}, s.ttl)
}

func (s *ProfileStore) Sweep() int {
	return s.cache.Sweep()
}
