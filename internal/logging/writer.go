package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Writer is an io.Writer that forwards container engine output to slog,
// one log record per non-empty line. A line split across writes is held
// until its newline arrives or Flush is called.
type Writer struct {
	logger *slog.Logger
	source string
	level  slog.Level

	mu      sync.Mutex
	pending strings.Builder
}

// NewWriter constructs a Writer bound to the provided logger. Source names the
// command producing the output (e.g. "docker-compose").
func NewWriter(logger *slog.Logger, source string) *Writer {
	return &Writer{logger: logger, source: source, level: slog.LevelDebug}
}

// AtLevel returns a new writer with the same target logging at the given level.
func (w *Writer) AtLevel(level Level) *Writer {
	return &Writer{logger: w.logger, source: w.source, level: slog.Level(level)}
}

// Write logs every complete line in p and always reports the full length as written.
func (w *Writer) Write(p []byte) (int, error) {
	if w.logger == nil {
		return len(p), nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending.Write(p)
	buffered := w.pending.String()
	cut := strings.LastIndexByte(buffered, '\n')
	if cut < 0 {
		return len(p), nil
	}
	w.pending.Reset()
	w.pending.WriteString(buffered[cut+1:])

	for _, line := range strings.Split(buffered[:cut], "\n") {
		w.emit(line)
	}
	return len(p), nil
}

// Flush logs a trailing line that never received its newline.
func (w *Writer) Flush() {
	if w.logger == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.emit(w.pending.String())
	w.pending.Reset()
}

func (w *Writer) emit(line string) {
	line = strings.TrimRight(line, "\r ")
	if line == "" {
		return
	}
	w.logger.Log(context.Background(), w.level, "command output", "source", w.source, "line", line)
}
