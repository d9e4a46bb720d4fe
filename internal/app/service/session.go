package service

import (
	"context"
	"oj_workbench/internal/common"
	"oj_workbench/internal/domain/model"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Session is the state of one user editing one problem: the selected
// language, the current code, the submission history and at most one
// outstanding submission.
type Session struct {
	ID        string
	UserID    string
	ProblemID int64

	submissions      *SubmissionService
	drafts           *DraftService
	autosaveInterval time.Duration
	logger           *zap.Logger

	mu            sync.Mutex
	language      string
	code          string
	draftRestored bool
	loadErr       string
	saver         *AutoSaver
	history       *History
	submitting    bool
	pending       *PendingSubmission
	lastSubmitErr string
	lastActive    time.Time
	closed        bool
}

type SessionView struct {
	ID                  string             `json:"id"`
	UserID              string             `json:"user_id"`
	ProblemID           int64              `json:"problem_id"`
	Language            string             `json:"language"`
	Code                string             `json:"code"`
	DraftRestored       bool               `json:"draft_restored"`
	Submitting          bool               `json:"submitting"`
	History             []model.Submission `json:"history"`
	Draft               DraftStatus        `json:"draft"`
	LastSubmissionError string             `json:"last_submission_error,omitempty"`
}

// attach loads the draft (or template) for lang and starts its autosaver.
// Callers hold s.mu.
func (s *Session) attach(ctx context.Context, lang string) {
	content, restored, err := s.drafts.LoadOrTemplate(ctx, s.ProblemID, lang)
	s.loadErr = ""
	if err != nil {
		s.loadErr = err.Error()
		s.logger.Warn("draft load failed, using template", zap.String("language", lang), zap.Error(err))
	}
	s.language = lang
	s.code = content
	s.draftRestored = restored
	s.saver = NewAutoSaver(s.drafts, model.DraftKey{ProblemID: s.ProblemID, Language: lang}, content, s.autosaveInterval, s.logger)
	s.saver.Start()
}

func (s *Session) closedErr() error {
	return common.Errorf("session %s is closed: %w", s.ID, common.ErrNotFound)
}

// Edit records new editor content. Persistence problems are reported through
// the draft status, never here.
func (s *Session) Edit(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.closedErr()
	}
	s.lastActive = time.Now()
	s.code = code
	s.saver.Update(code)
	return nil
}

// SwitchLanguage flushes the current draft and loads the one for lang.
func (s *Session) SwitchLanguage(ctx context.Context, lang string) error {
	if _, ok := model.LanguageByID(lang); !ok {
		return common.Errorf("unknown language %q: %w", lang, common.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.closedErr()
	}
	s.lastActive = time.Now()
	if lang == s.language {
		return nil
	}
	if err := s.saver.Stop(ctx); err != nil {
		s.logger.Warn("final autosave before language switch failed", zap.Error(err))
	}
	s.attach(ctx, lang)
	return nil
}

// Submit starts judging the current code. Only one submission may be
// outstanding; its result lands in the history when it completes.
func (s *Session) Submit(ctx context.Context) (*PendingSubmission, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, s.closedErr()
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, common.Errorf("session %s: %w", s.ID, common.ErrSubmissionInFlight)
	}
	req := SubmitRequest{ProblemID: s.ProblemID, Language: s.language, Code: s.code}
	s.submitting = true
	s.lastActive = time.Now()
	s.mu.Unlock()

	p, err := s.submissions.SubmitAsync(ctx, s.UserID, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.submitting = false
		return nil, err
	}
	s.pending = p
	s.lastSubmitErr = ""
	go s.collect(p)
	return p, nil
}

func (s *Session) collect(p *PendingSubmission) {
	sub, err := p.Result()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Debug("session closed before submission finished, result discarded")
		return
	}
	if s.pending != p {
		return
	}
	s.pending = nil
	s.submitting = false
	if err != nil {
		s.lastSubmitErr = err.Error()
		s.logger.Warn("submission failed", zap.Error(err))
		return
	}
	s.history.Prepend(*sub)
}

// idleFor reports how long the session has gone without a client request.
// A session waiting on the judge is never idle.
func (s *Session) idleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return 0
	}
	return now.Sub(s.lastActive)
}

// Close stops listening for an outstanding submission and flushes the draft
// one last time.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = nil
	saver := s.saver
	s.mu.Unlock()

	if err := saver.Stop(ctx); err != nil {
		s.logger.Warn("final autosave on close failed", zap.Error(err))
	}
}

func (s *Session) History() []model.Submission {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
	return s.history.List()
}

func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	draft := s.saver.Status()
	if draft.LastError == "" {
		draft.LastError = s.loadErr
	}
	return SessionView{
		ID:                  s.ID,
		UserID:              s.UserID,
		ProblemID:           s.ProblemID,
		Language:            s.language,
		Code:                s.code,
		DraftRestored:       s.draftRestored,
		Submitting:          s.submitting,
		History:             s.history.List(),
		Draft:               draft,
		LastSubmissionError: s.lastSubmitErr,
	}
}
