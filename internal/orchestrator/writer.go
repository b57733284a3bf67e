package orchestrator

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
)

// ContentTypeNDJSON is the media type of the event stream.
const ContentTypeNDJSON = "application/x-ndjson"

// StreamWriter writes stream events as newline-delimited JSON, flushing
// after every event so the client sees each line as soon as it exists.
type StreamWriter struct {
	mu      sync.Mutex
	enc     *json.Encoder
	flusher http.Flusher
}

// NewStreamWriter wraps an io.Writer. If the writer also implements
// http.Flusher each event is flushed through it immediately.
func NewStreamWriter(w io.Writer) *StreamWriter {
	sw := &StreamWriter{enc: json.NewEncoder(w)}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	return sw
}

// Write encodes one event as a single JSON line and flushes it.
func (w *StreamWriter) Write(event any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(event); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}
