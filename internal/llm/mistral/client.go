package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/llm"
)

const (
	providerName     = "mistral"
	defaultBaseURL   = "https://api.mistral.ai/v1"
	defaultModel     = "mistral-medium-latest"
	maxErrorBodySize = 4096
)

type Config struct {
	APIKey            string
	Model             string
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
}

// Client - потоковый клиент conversations API с web_search.
// Общий token bucket ограничивает исходящие запросы на весь процесс.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 2
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		// без Timeout: длительность чтения стрима ограничивает контекст
		client:  &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger,
	}
}

func (c *Client) Name() string {
	return providerName
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) OpenStream(ctx context.Context, req llm.ConversationRequest) (io.ReadCloser, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	req.Stream = true

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, llm.NetworkError(providerName, fmt.Errorf("outbound throttle: %w", err))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/conversations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, llm.NetworkError(providerName, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		resp.Body.Close()
		return nil, llm.HandleHTTPError(resp.StatusCode, respBody, c.logger, providerName)
	}

	c.logger.Debug("mistral stream opened",
		zap.String("model", req.Model),
		zap.Int("status", resp.StatusCode),
	)

	return resp.Body, nil
}

var _ llm.StreamClient = (*Client)(nil)
