package jobs

import (
	"encoding/json"
	"net/http"
)

// StreamWriter emits newline-delimited JSON progress events on a
// response body. Each event is flushed immediately so clients see
// progress while the extraction job is still running.
type StreamWriter struct {
	enc     *json.Encoder
	flusher http.Flusher
}

type streamEvent struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

func NewStreamWriter(w http.ResponseWriter) *StreamWriter {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	return &StreamWriter{enc: json.NewEncoder(w), flusher: flusher}
}

func (s *StreamWriter) Log(message string) {
	s.emit(streamEvent{Type: "log", Message: message})
}

// Result carries the final payload and ends the stream.
func (s *StreamWriter) Result(data map[string]interface{}) {
	s.emit(streamEvent{Type: "result", Data: data})
}

// Error signals failure and ends the stream.
func (s *StreamWriter) Error(message string) {
	s.emit(streamEvent{Type: "error", Message: message})
}

func (s *StreamWriter) emit(event streamEvent) {
	_ = s.enc.Encode(event)
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
