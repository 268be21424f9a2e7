package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/iho/goposition/internal/usecase"
)

// BatchStatus remembers the latest batch transition of the consumer.
type BatchStatus struct {
	mu        sync.RWMutex
	now       func() time.Time
	binID     string
	state     usecase.BatchState
	updatedAt time.Time
	committed int64
	aborted   int64
	idle      int64
}

// NewBatchStatus creates an empty BatchStatus.
func NewBatchStatus() *BatchStatus {
	return &BatchStatus{now: time.Now}
}

// Observe records a transition. It matches BatchConsumerConfig.OnState.
func (s *BatchStatus) Observe(binID string, state usecase.BatchState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.binID = binID
	s.state = state
	s.updatedAt = s.now()

	switch state {
	case usecase.BatchDone:
		s.committed++
	case usecase.BatchAborted:
		s.aborted++
	case usecase.BatchIdle:
		s.idle++
	}
}

type batchStatusResponse struct {
	BinID     string    `json:"binId,omitempty"`
	State     string    `json:"state,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
	Committed int64     `json:"committed"`
	Aborted   int64     `json:"aborted"`
	Idle      int64     `json:"idle"`
}

// ServeHTTP writes the latest batch transition as JSON.
func (s *BatchStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := batchStatusResponse{
		BinID:     s.binID,
		State:     string(s.state),
		UpdatedAt: s.updatedAt,
		Committed: s.committed,
		Aborted:   s.aborted,
		Idle:      s.idle,
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}
