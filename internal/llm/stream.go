package llm

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

const (
	doneMarker = "[DONE]"
	// MaxFrameSize ограничивает и одну строку, и собранный кадр
	MaxFrameSize = 1 << 20
)

// Frame - одно событие потока с JSON-полезной нагрузкой.
type Frame struct {
	Event string
	Data  json.RawMessage
}

// FrameDecoder инкрементально режет поток на кадры.
// Понимает SSE (event:/data:/пустая строка) и голый NDJSON.
// Битые и слишком большие кадры пропускаются и считаются в Skipped.
type FrameDecoder struct {
	r       *bufio.Reader
	maxSize int
	event   string
	pending strings.Builder
	// discard: текущее SSE-событие уже признано битым, его data: строки игнорируются до пустой строки
	discard bool
	done    bool

	Skipped int
}

func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{r: bufio.NewReaderSize(r, 64*1024), maxSize: MaxFrameSize}
}

// Next возвращает следующий кадр; io.EOF - поток закончился (или пришел [DONE]).
// Любая другая ошибка - ошибка чтения (обрыв, отмена контекста).
func (d *FrameDecoder) Next() (Frame, error) {
	for {
		if d.done {
			return Frame{}, io.EOF
		}

		line, tooLong, err := d.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			return Frame{}, err
		}
		eof := errors.Is(err, io.EOF)

		if tooLong {
			d.drop()
		} else if frame, ok := d.consume(strings.TrimRight(line, "\r\n")); ok {
			return frame, nil
		}

		if eof {
			d.done = true
			if frame, ok := d.flush(); ok {
				return frame, nil
			}
			return Frame{}, io.EOF
		}
	}
}

// readLine читает строку целиком, но не держит в памяти больше maxSize:
// остаток слишком длинной строки вычитывается и выбрасывается.
func (d *FrameDecoder) readLine() (string, bool, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, err := d.r.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > d.maxSize {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return string(buf), tooLong, err
	}
}

func (d *FrameDecoder) consume(line string) (Frame, bool) {
	switch {
	case line == "":
		return d.flush()

	case strings.HasPrefix(line, ":"):
		return Frame{}, false

	case strings.HasPrefix(line, "event:"):
		d.event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		return Frame{}, false

	case strings.HasPrefix(line, "id:"), strings.HasPrefix(line, "retry:"):
		return Frame{}, false

	case strings.HasPrefix(line, "data:"):
		value := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
		if strings.TrimSpace(value) == doneMarker {
			if d.pending.Len() > 0 {
				d.Skipped++
				d.pending.Reset()
			}
			d.done = true
			return Frame{}, false
		}
		if d.discard {
			return Frame{}, false
		}
		if d.pending.Len()+len(value)+1 > d.maxSize {
			d.drop()
			return Frame{}, false
		}
		if d.pending.Len() > 0 {
			d.pending.WriteByte('\n')
		}
		d.pending.WriteString(value)
		// многие провайдеры не шлют пустую строку между событиями;
		// законченное JSON-значение отдается сразу
		if json.Valid([]byte(d.pending.String())) {
			return d.emit(), true
		}
		return Frame{}, false

	case strings.HasPrefix(line, "{"), strings.HasPrefix(line, "["):
		if json.Valid([]byte(line)) {
			return Frame{Event: d.takeEvent(), Data: json.RawMessage(line)}, true
		}
		d.Skipped++
		return Frame{}, false
	}

	return Frame{}, false
}

// flush закрывает SSE-событие: собранное целиком либо валидно, либо пропускается целиком.
func (d *FrameDecoder) flush() (Frame, bool) {
	d.discard = false
	if d.pending.Len() == 0 {
		d.event = ""
		return Frame{}, false
	}
	if json.Valid([]byte(d.pending.String())) {
		return d.emit(), true
	}
	d.Skipped++
	d.pending.Reset()
	d.event = ""
	return Frame{}, false
}

func (d *FrameDecoder) drop() {
	if !d.discard {
		d.Skipped++
	}
	d.pending.Reset()
	d.discard = true
}

func (d *FrameDecoder) emit() Frame {
	data := json.RawMessage(d.pending.String())
	d.pending.Reset()
	return Frame{Event: d.takeEvent(), Data: data}
}

func (d *FrameDecoder) takeEvent() string {
	ev := d.event
	d.event = ""
	return ev
}
