package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sammysam254/aitraderke/internal/signal"
)

// Decision is one scanner or monitor outcome worth auditing.
type Decision struct {
	Time       time.Time        `json:"time"`
	Symbol     string           `json:"symbol"`
	Action     string           `json:"action"`
	Direction  signal.Direction `json:"direction,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
	Ticket     string           `json:"ticket,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Profit     float64          `json:"profit,omitempty"`
	Lots       float64          `json:"lots,omitempty"`
}

// JSONLRecorder appends decisions as JSON lines for later analysis.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single decision to the underlying JSONL file.
func (r *JSONLRecorder) Record(d Decision) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return
	}
	_ = r.enc.Encode(d)
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.enc = nil
	return err
}
