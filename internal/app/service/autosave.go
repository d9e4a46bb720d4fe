package service

import (
	"context"
	"oj_workbench/internal/domain/model"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DraftSaver is the part of DraftService the autosaver needs.
type DraftSaver interface {
	Save(ctx context.Context, problemID int64, language, content string) (bool, error)
}

type DraftStatus struct {
	LastSavedAt *time.Time `json:"last_saved_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Saves       int        `json:"saves"`
}

// AutoSaver periodically persists the latest editor content of one draft key.
// Every Update bumps a revision; flushes are serialized and never write a
// revision older than one already persisted, so a late tick cannot clobber
// the save made on Stop.
type AutoSaver struct {
	saver    DraftSaver
	key      model.DraftKey
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	content  string
	revision uint64
	status   DraftStatus

	flushMu   sync.Mutex
	persisted uint64

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	stopped   bool
}

// NewAutoSaver starts from initial, which is treated as already persisted.
func NewAutoSaver(saver DraftSaver, key model.DraftKey, initial string, interval time.Duration, logger *zap.Logger) *AutoSaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &AutoSaver{
		saver:    saver,
		key:      key,
		interval: interval,
		logger:   logger.With(zap.String("draft_key", key.String())),
		content:  initial,
	}
}

// Start schedules the periodic flush. Calling it twice, or after Stop, does nothing.
func (a *AutoSaver) Start() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	if a.cancel != nil || a.stopped {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.loop(ctx)
}

func (a *AutoSaver) loop(ctx context.Context) {
	defer close(a.done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			saveCtx, cancel := context.WithTimeout(context.Background(), a.interval)
			_ = a.Flush(saveCtx)
			cancel()
		}
	}
}

// Update records the current editor content.
func (a *AutoSaver) Update(content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if content == a.content {
		return
	}
	a.content = content
	a.revision++
}

// Flush persists the latest content if it changed since the last successful
// flush. Failures are recorded in the status and returned; they never stop
// the schedule.
func (a *AutoSaver) Flush(ctx context.Context) error {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	a.mu.Lock()
	content, rev := a.content, a.revision
	a.mu.Unlock()

	if rev <= a.persisted {
		return nil
	}

	saved, err := a.saver.Save(ctx, a.key.ProblemID, a.key.Language, content)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.status.LastError = err.Error()
		a.logger.Warn("autosave failed, editing continues", zap.Uint64("revision", rev), zap.Error(err))
		return err
	}
	a.persisted = rev
	a.status.LastError = ""
	if saved {
		now := time.Now().UTC()
		a.status.LastSavedAt = &now
		a.status.Saves++
	}
	return nil
}

// Stop cancels the schedule, waits for a running tick and flushes once more.
func (a *AutoSaver) Stop(ctx context.Context) error {
	a.lifecycle.Lock()
	if a.stopped {
		a.lifecycle.Unlock()
		return nil
	}
	a.stopped = true
	cancel, done := a.cancel, a.done
	a.lifecycle.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return a.Flush(ctx)
}

func (a *AutoSaver) Status() DraftStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.status
	if st.LastSavedAt != nil {
		t := *st.LastSavedAt
		st.LastSavedAt = &t
	}
	return st
}

// Content returns the latest content seen by Update.
func (a *AutoSaver) Content() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.content
}
