package llm

import (
	"context"
	"io"
)

// StreamClient открывает один потоковый запрос к провайдеру.
// Ретраи и дедлайн - забота вызывающего кода. Тело ответа закрывает вызывающий.
type StreamClient interface {
	OpenStream(ctx context.Context, req ConversationRequest) (io.ReadCloser, error)
	Name() string
}

type Tool struct {
	Type string `json:"type"`
}

type CompletionArgs struct {
	ToolChoice  string   `json:"tool_choice,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type ConversationRequest struct {
	Model          string          `json:"model"`
	Inputs         string          `json:"inputs"`
	Instructions   string          `json:"instructions,omitempty"`
	Tools          []Tool          `json:"tools"`
	CompletionArgs *CompletionArgs `json:"completion_args,omitempty"`
	Stream         bool            `json:"stream"`
}
