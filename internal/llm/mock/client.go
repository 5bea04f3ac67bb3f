package mock

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/llm"
)

// Response - сценарий одной попытки. Hang держит поток открытым
// после Body, пока не отменят контекст.
type Response struct {
	Status int
	Body   string
	Hang   bool
	Err    error
}

type Client struct {
	Responses []Response

	CallCount   int
	LastRequest llm.ConversationRequest
	Opened      int
	Closed      int

	mu sync.Mutex
}

func New() *Client {
	return &Client{}
}

func (c *Client) WithResponses(responses ...Response) *Client {
	c.Responses = responses
	return c
}

func (c *Client) WithBody(body string) *Client {
	c.Responses = []Response{{Status: http.StatusOK, Body: body}}
	return c
}

func (c *Client) Name() string {
	return "mock"
}

func (c *Client) OpenStream(ctx context.Context, req llm.ConversationRequest) (io.ReadCloser, error) {
	c.mu.Lock()
	idx := c.CallCount
	c.CallCount++
	c.LastRequest = req
	var resp Response
	if len(c.Responses) > 0 {
		resp = c.Responses[min(idx, len(c.Responses)-1)]
	}
	c.mu.Unlock()

	if resp.Err != nil {
		return nil, llm.NetworkError("mock", resp.Err)
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, llm.HandleHTTPError(status, []byte(resp.Body), zap.NewNop(), "mock")
	}

	c.mu.Lock()
	c.Opened++
	c.mu.Unlock()

	return &body{ctx: ctx, r: strings.NewReader(resp.Body), hang: resp.Hang, onClose: c.markClosed}, nil
}

func (c *Client) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Opened == c.Closed
}

func (c *Client) markClosed() {
	c.mu.Lock()
	c.Closed++
	c.mu.Unlock()
}

type body struct {
	ctx     context.Context
	r       *strings.Reader
	hang    bool
	once    sync.Once
	onClose func()
}

func (b *body) Read(p []byte) (int, error) {
	if b.r.Len() > 0 {
		return b.r.Read(p)
	}
	if !b.hang {
		return 0, io.EOF
	}
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b *body) Close() error {
	b.once.Do(b.onClose)
	return nil
}

var _ llm.StreamClient = (*Client)(nil)
