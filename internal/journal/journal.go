// Package journal persists one structured record per attempted swap to an
// append-only JSONL file.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"solana-volume-bot/internal/domain"
)

// Writer appends newline-delimited JSON records to a file. Each append is a
// single buffered write followed by a flush, so a concurrent reader never
// observes a partial record.
//
// It is safe for concurrent use.
type Writer struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *bufio.Writer
}

// sessionMarker delimits bot sessions inside the journal file.
type sessionMarker struct {
	Session string    `json:"session"` // "start" | "end"
	At      time.Time `json:"at"`
}

// Open creates or opens the journal file in append mode and writes a
// session-start marker.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	w := &Writer{
		path: path,
		file: f,
		w:    bufio.NewWriterSize(f, 64*1024),
	}
	if err := w.writeLine(sessionMarker{Session: "start", At: time.Now().UTC()}); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Append writes one attempt record as a single JSON line.
func (w *Writer) Append(rec *domain.SwapAttemptRecord) error {
	if rec == nil {
		return errors.New("journal: nil record")
	}
	return w.writeLine(rec)
}

func (w *Writer) writeLine(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return os.ErrClosed
	}

	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close writes the session-end marker, flushes, and closes the file.
func (w *Writer) Close() error {
	if err := w.writeLine(sessionMarker{Session: "end", At: time.Now().UTC()}); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if w.w != nil {
		if err := w.w.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if w.file != nil {
		if err := w.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.w = nil
	w.file = nil

	if firstErr != nil && errors.Is(firstErr, os.ErrClosed) {
		return nil
	}
	return firstErr
}
