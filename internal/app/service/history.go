package service

import (
	"oj_workbench/internal/domain/model"
	"sync"
)

const DefaultHistoryLimit = 5

// History keeps the most recent submissions of a session, newest first.
type History struct {
	mu    sync.Mutex
	limit int
	items []model.Submission
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit, items: make([]model.Submission, 0, limit)}
}

// Prepend stores a copy of sub at index 0 and evicts the oldest entry past the limit.
func (h *History) Prepend(sub model.Submission) {
	h.mu.Lock()
	defer h.mu.Unlock()

	items := make([]model.Submission, 0, h.limit)
	items = append(items, sub.Clone())
	for _, s := range h.items {
		if len(items) == h.limit {
			break
		}
		items = append(items, s)
	}
	h.items = items
}

func (h *History) List() []model.Submission {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.Submission, len(h.items))
	for i, s := range h.items {
		out[i] = s.Clone()
	}
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

func (h *History) Limit() int {
	return h.limit
}
