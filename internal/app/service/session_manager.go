package service

import (
	"context"
	"oj_workbench/internal/common"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SessionConfig struct {
	HistoryLimit     int
	AutosaveInterval time.Duration
	// IdleTimeout closes sessions without client requests for this long.
	// Zero disables expiry.
	IdleTimeout time.Duration
}

// SessionManager owns the open editing sessions of this process.
type SessionManager struct {
	submissions *SubmissionService
	drafts      *DraftService
	cfg         SessionConfig
	logger      *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager(submissions *SubmissionService, drafts *DraftService, cfg SessionConfig, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		submissions: submissions,
		drafts:      drafts,
		cfg:         cfg,
		logger:      logger,
		sessions:    make(map[string]*Session),
	}
}

// Open starts a session on the saved draft for (problemID, language), or on
// the language template when there is none.
func (m *SessionManager) Open(ctx context.Context, userID string, problemID int64, language string) (*Session, error) {
	if err := validateDraftKey(problemID, language); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s := &Session{
		ID:               id,
		UserID:           userID,
		ProblemID:        problemID,
		submissions:      m.submissions,
		drafts:           m.drafts,
		autosaveInterval: m.cfg.AutosaveInterval,
		history:          NewHistory(m.cfg.HistoryLimit),
		lastActive:       time.Now(),
		logger: m.logger.With(
			zap.String("session_id", id),
			zap.String("user_id", userID),
			zap.Int64("problem_id", problemID),
		),
	}
	s.mu.Lock()
	s.attach(ctx, language)
	s.mu.Unlock()

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	s.logger.Info("session opened", zap.String("language", language))
	return s, nil
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, common.Errorf("session %s: %w", id, common.ErrNotFound)
	}
	return s, nil
}

// Close ends a session; its draft is flushed and any outstanding submission
// result is dropped.
func (m *SessionManager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return common.Errorf("session %s: %w", id, common.ErrNotFound)
	}
	s.Close(ctx)
	s.logger.Info("session closed")
	return nil
}

// CloseAll is used on shutdown.
func (m *SessionManager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close(ctx)
	}
	m.logger.Info("all sessions closed", zap.Int("count", len(sessions)))
}

// ReapIdle closes every session idle for at least the configured timeout,
// flushing its draft, and returns how many were closed.
func (m *SessionManager) ReapIdle(ctx context.Context) int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}

	m.mu.RLock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.RUnlock()

	now := time.Now()
	reaped := 0
	for _, s := range candidates {
		if s.idleFor(now) < m.cfg.IdleTimeout {
			continue
		}
		m.mu.Lock()
		current, ok := m.sessions[s.ID]
		if ok && current == s {
			delete(m.sessions, s.ID)
		}
		m.mu.Unlock()
		if !ok || current != s {
			continue
		}
		s.Close(ctx)
		s.logger.Info("idle session closed", zap.Duration("idle_timeout", m.cfg.IdleTimeout))
		reaped++
	}
	return reaped
}

// StartReaper runs ReapIdle periodically until ctx is cancelled.
func (m *SessionManager) StartReaper(ctx context.Context) {
	if m.cfg.IdleTimeout <= 0 {
		return
	}
	interval := m.cfg.IdleTimeout / 2
	if interval <= 0 {
		interval = m.cfg.IdleTimeout
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), interval)
				if n := m.ReapIdle(flushCtx); n > 0 {
					m.logger.Debug("reaped idle sessions", zap.Int("count", n))
				}
				cancel()
			}
		}
	}()
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
