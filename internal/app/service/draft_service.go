package service

import (
	"context"
	"errors"
	"oj_workbench/internal/common"
	"oj_workbench/internal/domain/model"
	"oj_workbench/internal/domain/repository"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DraftService persists in-progress code per (problem, language).
type DraftService struct {
	repo   repository.DraftRepository
	logger *zap.Logger
	now    func() time.Time
	sf     singleflight.Group

	mu   sync.Mutex
	keys map[string]*keyLock
}

// keyLock serializes writes for one key. It is dropped from the map once no
// caller holds or waits for it.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewDraftService(repo repository.DraftRepository, logger *zap.Logger) *DraftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		keys:   make(map[string]*keyLock),
	}
}

func (s *DraftService) lockKey(key string) (unlock func()) {
	s.mu.Lock()
	l, ok := s.keys[key]
	if !ok {
		l = &keyLock{}
		s.keys[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.keys, key)
		}
		s.mu.Unlock()
	}
}

func validateDraftKey(problemID int64, language string) error {
	if problemID <= 0 {
		return common.Errorf("problem id must be positive, got %d: %w", problemID, common.ErrValidation)
	}
	if _, ok := model.LanguageByID(language); !ok {
		return common.Errorf("unknown language %q: %w", language, common.ErrValidation)
	}
	return nil
}

// Save writes content for the key. It reports whether a backend write
// happened: empty content and content identical to the stored value are
// skipped. The stored value is read back on every call, so writes from other
// processes and expired entries are taken into account.
func (s *DraftService) Save(ctx context.Context, problemID int64, language, content string) (bool, error) {
	if err := validateDraftKey(problemID, language); err != nil {
		return false, err
	}
	if content == "" {
		return false, nil
	}

	key := model.DraftKey{ProblemID: problemID, Language: language}.String()
	unlock := s.lockKey(key)
	defer unlock()

	if current, ok := s.stored(ctx, key, problemID, language); ok && current.Content == content {
		return false, nil
	}

	value, err := sonic.Marshal(model.Draft{
		ProblemID: problemID,
		Language:  language,
		Content:   content,
		SavedAt:   s.now().UTC(),
	})
	if err != nil {
		return false, common.Errorf("failed to encode draft %s: %w: %w", key, common.ErrPersistence, err)
	}
	if err := s.repo.Save(ctx, key, value); err != nil {
		return false, common.Errorf("failed to save draft %s: %w: %w", key, common.ErrPersistence, err)
	}

	s.logger.Debug("draft saved", zap.String("key", key), zap.Int("bytes", len(content)))
	return true, nil
}

// stored reads the current value for a write. A failed read is not fatal:
// the write goes ahead.
func (s *DraftService) stored(ctx context.Context, key string, problemID int64, language string) (model.Draft, bool) {
	raw, err := s.repo.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Warn("could not read stored draft before save", zap.String("key", key), zap.Error(err))
		}
		return model.Draft{}, false
	}
	return decodeDraft(raw, problemID, language), true
}

func decodeDraft(raw []byte, problemID int64, language string) model.Draft {
	var draft model.Draft
	if err := sonic.Unmarshal(raw, &draft); err != nil || draft.Language == "" {
		// Plain-text values written by older clients.
		draft = model.Draft{ProblemID: problemID, Language: language, Content: string(raw)}
	}
	return draft
}

// Load returns the most recently saved draft for the key; ok is false when
// none exists.
func (s *DraftService) Load(ctx context.Context, problemID int64, language string) (model.Draft, bool, error) {
	if err := validateDraftKey(problemID, language); err != nil {
		return model.Draft{}, false, err
	}
	key := model.DraftKey{ProblemID: problemID, Language: language}.String()

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.repo.Load(ctx, key)
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return model.Draft{}, false, nil
		}
		return model.Draft{}, false, common.Errorf("failed to load draft %s: %w: %w", key, common.ErrPersistence, err)
	}
	return decodeDraft(v.([]byte), problemID, language), true, nil
}

// LoadOrTemplate returns the saved draft or the language's starter code.
// On a backend failure the template is still returned together with the error.
func (s *DraftService) LoadOrTemplate(ctx context.Context, problemID int64, language string) (string, bool, error) {
	draft, ok, err := s.Load(ctx, problemID, language)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			return "", false, err
		}
		return model.DefaultTemplate(language), false, err
	}
	if !ok || draft.Content == "" {
		return model.DefaultTemplate(language), false, nil
	}
	return draft.Content, true, nil
}

// Delete removes a draft on explicit user request.
func (s *DraftService) Delete(ctx context.Context, problemID int64, language string) error {
	if err := validateDraftKey(problemID, language); err != nil {
		return err
	}
	key := model.DraftKey{ProblemID: problemID, Language: language}.String()
	unlock := s.lockKey(key)
	defer unlock()

	if err := s.repo.Delete(ctx, key); err != nil {
		return common.Errorf("failed to delete draft %s: %w: %w", key, common.ErrPersistence, err)
	}
	return nil
}
