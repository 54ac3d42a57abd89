package tracking

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"roomguard/internal/model"
)

// InitStore tracks client initialization attempts. Start creates a pending
// record and returns its id; Complete fills the outcome. Completing an
// unknown id is a no-op. Capacity-bounded, oldest records evicted first.
type InitStore struct {
	mu    sync.RWMutex
	buf   []*model.InitAttempt
	head  int
	byID  map[string]*model.InitAttempt
	limit int
}

func NewInitStore(limit int) *InitStore {
	if limit <= 0 {
		limit = 2000
	}
	return &InitStore{byID: make(map[string]*model.InitAttempt), limit: limit}
}

func (s *InitStore) Start(correlationID string) string {
	rec := &model.InitAttempt{
		AttemptID:     "init-" + uuid.NewString(),
		CorrelationID: correlationID,
		StartedAt:     time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, rec)
	s.byID[rec.AttemptID] = rec
	s.evict()
	return rec.AttemptID
}

func (s *InitStore) Complete(id string, success bool, retryCount int, errorType, errorMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok || rec.Completed {
		return
	}
	rec.Completed = true
	rec.Duration = time.Now().UTC().Sub(rec.StartedAt)
	rec.Success = success
	rec.RetryCount = retryCount
	rec.ErrorType = errorType
	rec.ErrorMessage = errorMessage
}

// Get returns a copy of the record, if present.
func (s *InitStore) Get(id string) (model.InitAttempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return model.InitAttempt{}, false
	}
	return *rec, true
}

// CompletedSince returns copies of completed attempts started at or after ts.
func (s *InitStore) CompletedSince(ts time.Time) []model.InitAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.InitAttempt, 0)
	for i := s.head; i < len(s.buf); i++ {
		rec := s.buf[i]
		if rec.Completed && !rec.StartedAt.Before(ts) {
			out = append(out, *rec)
		}
	}
	return out
}

// LastCompleted returns copies of the most recent n completed attempts in
// insertion order.
func (s *InitStore) LastCompleted(n int) []model.InitAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.InitAttempt, 0, n)
	for i := len(s.buf) - 1; i >= s.head && len(out) < n; i-- {
		if s.buf[i].Completed {
			out = append(out, *s.buf[i])
		}
	}
	reverse(out)
	return out
}

func (s *InitStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buf) - s.head
}

func (s *InitStore) evict() {
	for len(s.buf)-s.head > s.limit {
		delete(s.byID, s.buf[s.head].AttemptID)
		s.buf[s.head] = nil
		s.head++
	}
	if s.head > 0 && s.head*2 >= len(s.buf) {
		s.buf = append([]*model.InitAttempt{}, s.buf[s.head:]...)
		s.head = 0
	}
}

func (s *InitStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
	s.head = 0
	s.byID = make(map[string]*model.InitAttempt)
}

// ValidationStore tracks environment validation runs with the same lifecycle
// and bounds as InitStore.
type ValidationStore struct {
	mu    sync.RWMutex
	buf   []*model.ValidationRun
	head  int
	byID  map[string]*model.ValidationRun
	limit int
}

func NewValidationStore(limit int) *ValidationStore {
	if limit <= 0 {
		limit = 2000
	}
	return &ValidationStore{byID: make(map[string]*model.ValidationRun), limit: limit}
}

func (s *ValidationStore) Start(correlationID string) string {
	rec := &model.ValidationRun{
		ValidationID:  "val-" + uuid.NewString(),
		CorrelationID: correlationID,
		StartedAt:     time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, rec)
	s.byID[rec.ValidationID] = rec
	s.evict()
	return rec.ValidationID
}

func (s *ValidationStore) Complete(id string, total, valid, invalid, missing int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok || rec.Completed {
		return
	}
	rec.Completed = true
	rec.Duration = time.Now().UTC().Sub(rec.StartedAt)
	rec.TotalVariables = total
	rec.ValidVariables = valid
	rec.InvalidVariables = invalid
	rec.MissingVariables = missing
}

func (s *ValidationStore) Get(id string) (model.ValidationRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return model.ValidationRun{}, false
	}
	return *rec, true
}

func (s *ValidationStore) CompletedSince(ts time.Time) []model.ValidationRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ValidationRun, 0)
	for i := s.head; i < len(s.buf); i++ {
		rec := s.buf[i]
		if rec.Completed && !rec.StartedAt.Before(ts) {
			out = append(out, *rec)
		}
	}
	return out
}

func (s *ValidationStore) LastCompleted(n int) []model.ValidationRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ValidationRun, 0, n)
	for i := len(s.buf) - 1; i >= s.head && len(out) < n; i-- {
		if s.buf[i].Completed {
			out = append(out, *s.buf[i])
		}
	}
	reverseRuns(out)
	return out
}

func (s *ValidationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buf) - s.head
}

func (s *ValidationStore) evict() {
	for len(s.buf)-s.head > s.limit {
		delete(s.byID, s.buf[s.head].ValidationID)
		s.buf[s.head] = nil
		s.head++
	}
	if s.head > 0 && s.head*2 >= len(s.buf) {
		s.buf = append([]*model.ValidationRun{}, s.buf[s.head:]...)
		s.head = 0
	}
}

func (s *ValidationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
	s.head = 0
	s.byID = make(map[string]*model.ValidationRun)
}

func reverse(list []model.InitAttempt) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
}

func reverseRuns(list []model.ValidationRun) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
}
