package search

import (
	"encoding/json"
	"strings"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/llm"
)

// extractStrategy достает массив результатов из одной формы payload.
type extractStrategy struct {
	name    string
	results func(payload map[string]any) []any
}

// порядок важен: первая стратегия, вернувшая массив, побеждает
var extractStrategies = []extractStrategy{
	{name: "result.results", results: nestedArray("result", "results")},
	{name: "output.results", results: nestedArray("output", "results")},
	{name: "info.results", results: nestedArray("info", "results")},
	{name: "results", results: nestedArray("results")},
	{name: "content[].results", results: contentResults},
	{name: "encoded output", results: encodedArray("output")},
	{name: "encoded result", results: encodedArray("result")},
}

// ExtractHits возвращает hits из кадра, если это результат web search.
// Все остальные кадры дают nil.
func ExtractHits(frame llm.Frame) []domain.RawSearchHit {
	var payload any
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		return nil
	}
	return extractFrom(payload)
}

func extractFrom(payload any) []domain.RawSearchHit {
	switch v := payload.(type) {
	case []any:
		var hits []domain.RawSearchHit
		for _, item := range v {
			hits = append(hits, extractFrom(item)...)
		}
		return hits
	case map[string]any:
		if hits := toolReferences(v); len(hits) > 0 {
			return hits
		}
		if !isWebSearchTool(toolName(v)) {
			return nil
		}
		for _, s := range extractStrategies {
			if arr := s.results(v); arr != nil {
				return toHits(arr)
			}
		}
	}
	return nil
}

// isWebSearchTool - регистронезависимое совпадение по "web search".
// Подчеркивания и дефисы считаются пробелами.
func isWebSearchTool(name string) bool {
	if name == "" {
		return false
	}
	n := strings.ToLower(name)
	n = strings.NewReplacer("_", " ", "-", " ").Replace(n)
	return strings.Contains(n, "web search")
}

func toolName(payload map[string]any) string {
	for _, key := range []string{"name", "tool", "tool_name"} {
		switch v := payload[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if s, ok := v["name"].(string); ok && s != "" {
				return s
			}
		}
	}
	if fn, ok := payload["function"].(map[string]any); ok {
		if s, ok := fn["name"].(string); ok {
			return s
		}
	}
	return ""
}

func nestedArray(path ...string) func(map[string]any) []any {
	return func(payload map[string]any) []any {
		var cur any = payload
		for _, key := range path {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = m[key]
		}
		arr, _ := cur.([]any)
		return arr
	}
}

func contentResults(payload map[string]any) []any {
	content, ok := payload["content"].([]any)
	if !ok {
		return nil
	}
	var out []any
	for _, item := range content {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if arr, ok := m["results"].([]any); ok {
			out = append(out, arr...)
		}
	}
	return out
}

// encodedArray - результат инструмента пришел строкой с JSON внутри.
func encodedArray(key string) func(map[string]any) []any {
	return func(payload map[string]any) []any {
		raw, ok := payload[key].(string)
		if !ok || raw == "" {
			return nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return nil
		}
		switch v := decoded.(type) {
		case []any:
			return v
		case map[string]any:
			arr, _ := v["results"].([]any)
			return arr
		}
		return nil
	}
}

// toolReferences разбирает ссылки, которые провайдер вставляет прямо
// в дельты сообщения: {"type":"tool_reference","tool":"web_search",...}.
func toolReferences(payload map[string]any) []domain.RawSearchHit {
	var items []any
	switch c := payload["content"].(type) {
	case map[string]any:
		items = []any{c}
	case []any:
		items = c
	default:
		return nil
	}

	var refs []any
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok || m["type"] != "tool_reference" {
			continue
		}
		if !isWebSearchTool(toolName(m)) {
			continue
		}
		refs = append(refs, m)
	}
	return toHits(refs)
}

func toHits(entries []any) []domain.RawSearchHit {
	hits := make([]domain.RawSearchHit, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		hit := domain.RawSearchHit{
			URL:     firstString(m, "url", "link"),
			Title:   firstString(m, "title", "name"),
			Snippet: firstString(m, "snippet", "description", "content"),
		}
		if hit.URL == "" || hit.Title == "" {
			continue
		}
		hits = append(hits, hit)
	}
	return hits
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
