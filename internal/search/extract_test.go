package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/llm"
)

func frameOf(t *testing.T, payload string) llm.Frame {
	t.Helper()
	require.True(t, json.Valid([]byte(payload)), "invalid test payload: %s", payload)
	return llm.Frame{Data: json.RawMessage(payload)}
}

func TestExtractHits_Shapes(t *testing.T) {
	entry := `{"url":"https://www.linkedin.com/in/jane","title":"Jane Public - Acme | LinkedIn","snippet":"Dublin, Ireland"}`

	tests := []struct {
		name    string
		payload string
	}{
		{"result.results", `{"name":"web_search","result":{"results":[` + entry + `]}}`},
		{"output.results", `{"tool":"web_search","output":{"results":[` + entry + `]}}`},
		{"info.results", `{"type":"tool.execution.done","name":"web_search","info":{"results":[` + entry + `]}}`},
		{"results", `{"tool_name":"Web Search","results":[` + entry + `]}`},
		{"content[].results", `{"function":{"name":"web_search"},"content":[{"type":"text"},{"results":[` + entry + `]}]}`},
		{"encoded output", `{"name":"web_search","output":` + quoteJSON(t, `{"results":[`+entry+`]}`) + `}`},
		{"encoded result array", `{"name":"web-search","result":` + quoteJSON(t, `[`+entry+`]`) + `}`},
		{"tool object", `{"tool":{"name":"web_search"},"results":[` + entry + `]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := ExtractHits(frameOf(t, tt.payload))
			require.Len(t, hits, 1)
			assert.Equal(t, "https://www.linkedin.com/in/jane", hits[0].URL)
			assert.Equal(t, "Jane Public - Acme | LinkedIn", hits[0].Title)
			assert.Equal(t, "Dublin, Ireland", hits[0].Snippet)
		})
	}
}

func TestExtractHits_EntryFieldAliases(t *testing.T) {
	payload := `{"name":"web_search","results":[
		{"link":"https://ie.linkedin.com/in/a","name":"A Person","description":"desc a"},
		{"url":"https://www.linkedin.com/in/b","title":"B Person","content":"content b"},
		{"url":"https://www.linkedin.com/in/c","snippet":"no title"},
		{"title":"no url"},
		"not an object"
	]}`

	hits := ExtractHits(frameOf(t, payload))
	require.Len(t, hits, 2)
	assert.Equal(t, "https://ie.linkedin.com/in/a", hits[0].URL)
	assert.Equal(t, "A Person", hits[0].Title)
	assert.Equal(t, "desc a", hits[0].Snippet)
	assert.Equal(t, "content b", hits[1].Snippet)
}

func TestExtractHits_IgnoresOtherFrames(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"message delta", `{"type":"message.output.delta","content":"Here are the results"}`},
		{"other tool", `{"name":"code_interpreter","results":[{"url":"https://x.io","title":"x"}]}`},
		{"no tool name", `{"results":[{"url":"https://x.io","title":"x"}]}`},
		{"tool without results", `{"name":"web_search","arguments":"{}"}`},
		{"scalar", `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, ExtractHits(frameOf(t, tt.payload)))
		})
	}
}

func TestExtractHits_ToolReference(t *testing.T) {
	payload := `{"type":"message.output.delta","content":{"type":"tool_reference","tool":"web_search",
		"title":"Jane Public - Acme | LinkedIn","url":"https://www.linkedin.com/in/jane","description":"Dublin"}}`

	hits := ExtractHits(frameOf(t, payload))
	require.Len(t, hits, 1)
	assert.Equal(t, "https://www.linkedin.com/in/jane", hits[0].URL)
	assert.Equal(t, "Dublin", hits[0].Snippet)
}

func TestIsWebSearchTool(t *testing.T) {
	assert.True(t, isWebSearchTool("web_search"))
	assert.True(t, isWebSearchTool("WEB_SEARCH_PREMIUM"))
	assert.True(t, isWebSearchTool("Web Search"))
	assert.False(t, isWebSearchTool("search"))
	assert.False(t, isWebSearchTool(""))
}

func quoteJSON(t *testing.T, s string) string {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return string(b)
}
