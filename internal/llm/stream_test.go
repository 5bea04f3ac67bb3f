package llm

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectFrames(t *testing.T, input string) ([]Frame, *FrameDecoder) {
	t.Helper()
	dec := NewFrameDecoder(strings.NewReader(input))
	var frames []Frame
	for {
		f, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return frames, dec
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func TestFrameDecoder_SSE(t *testing.T) {
	input := "event: conversation.response.started\n" +
		"data: {\"type\":\"conversation.response.started\"}\n\n" +
		": keep-alive comment\n" +
		"event: tool.execution.done\n" +
		"id: 7\n" +
		"data: {\"type\":\"tool.execution.done\",\"name\":\"web_search\"}\n\n"

	frames, dec := collectFrames(t, input)
	require.Len(t, frames, 2)
	assert.Equal(t, "conversation.response.started", frames[0].Event)
	assert.Equal(t, "tool.execution.done", frames[1].Event)
	assert.JSONEq(t, `{"type":"tool.execution.done","name":"web_search"}`, string(frames[1].Data))
	assert.Zero(t, dec.Skipped)
}

func TestFrameDecoder_MultilineData(t *testing.T) {
	input := "data: {\"name\":\n" +
		"data: \"web_search\"}\n\n"

	frames, _ := collectFrames(t, input)
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"name":"web_search"}`, string(frames[0].Data))
}

func TestFrameDecoder_MultilineResultPerLine(t *testing.T) {
	input := "data: {\"name\":\"web_search\",\"results\":[\n" +
		"data: {\"url\":\"https://www.linkedin.com/in/jane\",\"title\":\"Jane Public - Acme Ltd | LinkedIn\"}\n" +
		"data: ]}\n\n"

	frames, dec := collectFrames(t, input)
	require.Len(t, frames, 1)
	assert.JSONEq(t,
		`{"name":"web_search","results":[{"url":"https://www.linkedin.com/in/jane","title":"Jane Public - Acme Ltd | LinkedIn"}]}`,
		string(frames[0].Data))
	assert.Zero(t, dec.Skipped)
}

func TestFrameDecoder_DoneDropsUnfinishedEvent(t *testing.T) {
	input := "data: {\"n\":\n" +
		"data: [DONE]\n" +
		"data: {\"n\":2}\n\n"

	frames, dec := collectFrames(t, input)
	assert.Empty(t, frames)
	assert.Equal(t, 1, dec.Skipped)
}

func TestFrameDecoder_NDJSONAndCRLF(t *testing.T) {
	input := "{\"a\":1}\r\n{\"b\":2}\r\n{\"c\":3}"

	frames, _ := collectFrames(t, input)
	require.Len(t, frames, 3)
	assert.JSONEq(t, `{"c":3}`, string(frames[2].Data))
}

func TestFrameDecoder_SkipsMalformed(t *testing.T) {
	input := "data: {not json\n\n" +
		"{broken\n" +
		"data: {\"ok\":true}\n\n" +
		"garbage line\n"

	frames, dec := collectFrames(t, input)
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"ok":true}`, string(frames[0].Data))
	assert.Equal(t, 2, dec.Skipped)
}

func TestFrameDecoder_BrokenEventSkippedWhole(t *testing.T) {
	input := "data: {\"truncated\":\n" +
		"data: {\"ok\":1}\n\n" +
		"data: {\"n\":2}\n\n"

	frames, dec := collectFrames(t, input)
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"n":2}`, string(frames[0].Data))
	assert.Equal(t, 1, dec.Skipped)
}

func TestFrameDecoder_LineTooLongSkipped(t *testing.T) {
	input := "data: {\"big\":\"" + strings.Repeat("x", MaxFrameSize) + "\"}\n\n" +
		"data: {\"ok\":1}\n\n"

	frames, dec := collectFrames(t, input)
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"ok":1}`, string(frames[0].Data))
	assert.Equal(t, 1, dec.Skipped)
}

func TestFrameDecoder_EventTooLargeSkipped(t *testing.T) {
	input := "data: {\"a\":\"0123456789\",\n" +
		"data: \"b\":\"0123456789\",\n" +
		"data: \"c\":\"0123456789\"}\n\n" +
		"data: {\"ok\":1}\n\n"

	dec := NewFrameDecoder(strings.NewReader(input))
	dec.maxSize = 40

	f, err := dec.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":1}`, string(f.Data))
	assert.Equal(t, 1, dec.Skipped)

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameDecoder_StopsOnDone(t *testing.T) {
	input := "data: {\"n\":1}\n\n" +
		"data: [DONE]\n\n" +
		"data: {\"n\":2}\n\n"

	frames, _ := collectFrames(t, input)
	require.Len(t, frames, 1)
}

type failingReader struct {
	data string
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset")
}

func TestFrameDecoder_ReadError(t *testing.T) {
	dec := NewFrameDecoder(&failingReader{data: "data: {\"n\":1}\n\n"})

	f, err := dec.Next()
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(f.Data))

	_, err = dec.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}
