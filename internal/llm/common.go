package llm

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
)

const ToolWebSearch = "web_search"

// NewWebSearchRequest - запрос, в котором разрешен только инструмент web_search.
func NewWebSearchRequest(model, instructions, inputs string) ConversationRequest {
	zero := 0.0
	return ConversationRequest{
		Model:        model,
		Inputs:       inputs,
		Instructions: instructions,
		Tools:        []Tool{{Type: ToolWebSearch}},
		CompletionArgs: &CompletionArgs{
			ToolChoice:  "any",
			Temperature: &zero,
		},
		Stream: true,
	}
}

// IsRetryableStatus - 429 и 5xx ретраим, остальное нет.
func IsRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError
}

func HandleHTTPError(statusCode int, body []byte, logger *zap.Logger, provider string) *domain.ProviderError {
	kind := domain.ProviderFatal
	if IsRetryableStatus(statusCode) {
		kind = domain.ProviderTransient
	}

	logger.Warn(provider+" request failed",
		zap.Int("status", statusCode),
		zap.String("kind", string(kind)),
		zap.String("body", truncate(string(body), 512)),
	)

	return &domain.ProviderError{
		Kind:       kind,
		Provider:   provider,
		StatusCode: statusCode,
		Message:    strings.TrimSpace(truncate(string(body), 512)),
	}
}

// NetworkError - сетевой сбой до получения статуса, ретраится как 5xx.
func NetworkError(provider string, err error) *domain.ProviderError {
	return &domain.ProviderError{
		Kind:     domain.ProviderTransient,
		Provider: provider,
		Err:      err,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
