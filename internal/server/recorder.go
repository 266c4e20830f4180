package server

import (
	"net/http"
	"sync"
	"time"
)

type RecordedRequest struct {
	Method        string      `json:"method"`
	Path          string      `json:"path"`
	Header        http.Header `json:"header"`
	ContentLength int64       `json:"contentLength"`
	Status        int         `json:"status"`
	UploadID      string      `json:"uploadId,omitempty"`
	ReceivedAt    time.Time   `json:"receivedAt"`
}

// Recorder keeps the last limit requests, safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	limit int
	reqs  []RecordedRequest
}

func NewRecorder(limit int) *Recorder {
	if limit < 1 {
		limit = 1
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Add(rr RecordedRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reqs) == r.limit {
		copy(r.reqs, r.reqs[1:])
		r.reqs = r.reqs[:len(r.reqs)-1]
	}
	r.reqs = append(r.reqs, rr)
}

// List returns the recorded requests, oldest first.
func (r *Recorder) List() []RecordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedRequest, len(r.reqs))
	copy(out, r.reqs)
	return out
}
