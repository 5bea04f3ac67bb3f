package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ошибки валидации субъекта поиска
var (
	ErrEmptyName         = errors.New("name is required")
	ErrEmptyOrganization = errors.New("organization is required")
	ErrEmptySubjectKey   = errors.New("subject key is required")
	ErrNameTooLong       = errors.New("name too long")
)

var (
	ErrRateLimited  = errors.New("rate limited")
	ErrSearchFailed = errors.New("profile search failed")
	ErrPersistence  = errors.New("search history write failed")
)

func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrEmptyOrganization) ||
		errors.Is(err, ErrEmptySubjectKey) ||
		errors.Is(err, ErrNameTooLong)
}

// RateLimitedError - повторный запрос по тому же субъекту раньше минимального интервала
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %ds", e.RetryAfterSeconds())
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfterSeconds округляет вверх, чтобы клиент не пришел на долю секунды раньше.
func (e *RateLimitedError) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

type ProviderErrorKind string

const (
	ProviderTransient ProviderErrorKind = "transient"
	ProviderFatal     ProviderErrorKind = "fatal"
)

// ProviderError - ошибка внешнего AI/search провайдера.
// Transient (429/5xx/сеть) ретраится внутри ингестора, Fatal отдается наверх.
type ProviderError struct {
	Kind       ProviderErrorKind
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s error: status %d: %s", e.Provider, e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s error: %s", e.Provider, e.Kind, msg)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Transient() bool {
	return e != nil && e.Kind == ProviderTransient
}

// Escalate переводит transient ошибку в fatal, когда ретраи исчерпаны.
func (e *ProviderError) Escalate() *ProviderError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Kind = ProviderFatal
	return &cp
}
