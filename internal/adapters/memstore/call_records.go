package memstore

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/dkeye/Chathub/internal/domain"
)

type CallRecords struct {
	mu   sync.Mutex
	recs map[domain.CallID]domain.CallRecord
}

func NewCallRecords() *CallRecords {
	return &CallRecords{recs: make(map[domain.CallID]domain.CallRecord)}
}

func (s *CallRecords) Create(_ context.Context, rec domain.CallRecord) (domain.CallRecord, error) {
	const op = "memstore.calls.create"
	if rec.ID == "" || rec.CallerID == "" {
		return domain.CallRecord{}, domain.Validation(op, "id and caller are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[rec.ID]; ok {
		return domain.CallRecord{}, domain.Validation(op, "duplicate call "+string(rec.ID))
	}
	rec.Receivers = append([]domain.UserID(nil), rec.Receivers...)
	s.recs[rec.ID] = rec
	return rec, nil
}

func (s *CallRecords) UpdateStatus(_ context.Context, id domain.CallID, status domain.CallStatus, at time.Time) (domain.CallRecord, error) {
	return s.update("memstore.calls.status", id, func(r *domain.CallRecord) {
		r.Status = status
		switch status {
		case domain.CallStatusAnswered:
			r.StartTime = at
		case domain.CallStatusMissed, domain.CallStatusRejected, domain.CallStatusEnded:
			r.EndTime = &at
		}
	})
}

func (s *CallRecords) AddParticipant(_ context.Context, id domain.CallID, user domain.UserID) (domain.CallRecord, error) {
	return s.update("memstore.calls.participant", id, func(r *domain.CallRecord) {
		r.Receivers = domain.UniqueUsers(append(r.Receivers, user))
	})
}

// EndCall stores the end time and the duration rounded to whole seconds.
func (s *CallRecords) EndCall(_ context.Context, id domain.CallID, endedAt time.Time, duration time.Duration) (domain.CallRecord, error) {
	return s.update("memstore.calls.end", id, func(r *domain.CallRecord) {
		r.EndTime = &endedAt
		r.Duration = int64(math.Round(duration.Seconds()))
	})
}

func (s *CallRecords) Get(id domain.CallID) (domain.CallRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[id]
	return r, ok
}

func (s *CallRecords) update(op string, id domain.CallID, fn func(*domain.CallRecord)) (domain.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[id]
	if !ok {
		return domain.CallRecord{}, domain.NotFound(op, "call "+string(id))
	}
	fn(&r)
	s.recs[id] = r
	return r, nil
}
