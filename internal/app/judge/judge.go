// Package judge holds the implementations of the judging capability the
// submission coordinator depends on. A Judge decides a verdict; callers only
// relay it.
package judge

import (
	"context"
	"oj_workbench/internal/domain/model"
	"sync"
	"time"
)

// Judge evaluates one request and returns its result. Implementations may
// return a pending verdict only if the caller is expected to treat it as a
// contract violation; polling judges resolve pending internally.
type Judge interface {
	Evaluate(ctx context.Context, req model.JudgeRequest) (*model.JudgeResult, error)
}

// Static is an in-memory Judge that answers every request the same way and
// records what it was asked.
type Static struct {
	mu       sync.Mutex
	result   model.JudgeResult
	err      error
	delay    time.Duration
	requests []model.JudgeRequest
}

func NewStatic(result model.JudgeResult) *Static {
	return &Static{result: result}
}

// NewFailing returns a Static judge whose every call fails with err.
func NewFailing(err error) *Static {
	return &Static{err: err}
}

// WithDelay makes Evaluate wait d (or until ctx ends) before answering.
func (s *Static) WithDelay(d time.Duration) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	return s
}

func (s *Static) Evaluate(ctx context.Context, req model.JudgeRequest) (*model.JudgeResult, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	delay, result, err := s.delay, s.result, s.err
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return nil, err
	}
	result.SubmissionID = req.SubmissionID
	return &result, nil
}

func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Static) Requests() []model.JudgeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.JudgeRequest, len(s.requests))
	copy(out, s.requests)
	return out
}
