package service

import (
	"context"
	"oj_workbench/internal/app/judge"
	"oj_workbench/internal/common"
	"oj_workbench/internal/domain/model"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const DefaultJudgeTimeout = 30 * time.Second

// SubmissionService coordinates one submit action: it validates the request,
// hands it to the judge and relays the judge's verdict. It never retries and
// never decides a verdict itself.
type SubmissionService struct {
	judge   judge.Judge
	pool    *ants.Pool
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewSubmissionService wires the coordinator. Asynchronous submits run on
// pool; a nil pool falls back to one goroutine per submit.
func NewSubmissionService(j judge.Judge, pool *ants.Pool, timeout time.Duration, logger *zap.Logger) *SubmissionService {
	if timeout <= 0 {
		timeout = DefaultJudgeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		judge:   j,
		pool:    pool,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

type SubmitRequest struct {
	ProblemID int64  `json:"problem_id"`
	Language  string `json:"language"`
	Code      string `json:"code"`
}

// Validate rejects requests that must never reach the judge.
func (s *SubmissionService) Validate(req SubmitRequest) error {
	if strings.TrimSpace(req.Code) == "" {
		return common.Errorf("source code is empty: %w", common.ErrValidation)
	}
	return validateDraftKey(req.ProblemID, req.Language)
}

// Submit blocks until the judge returns a terminal verdict, the judge
// timeout elapses or ctx ends.
func (s *SubmissionService) Submit(ctx context.Context, userID string, req SubmitRequest) (*model.Submission, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	return s.evaluate(ctx, userID, req)
}

// SubmitAsync validates synchronously and evaluates in the background. The
// judge call is detached from ctx cancellation: a caller that stops waiting
// abandons the result but does not abort the judge.
func (s *SubmissionService) SubmitAsync(ctx context.Context, userID string, req SubmitRequest) (*PendingSubmission, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	p := newPendingSubmission()
	detached := context.WithoutCancel(ctx)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("judge panicked", zap.Any("panic", r))
				p.resolve(nil, common.Errorf("judge panicked: %v: %w", r, common.ErrJudgeUnavailable))
			}
		}()
		sub, err := s.evaluate(detached, userID, req)
		p.resolve(sub, err)
	}

	if s.pool == nil {
		go task()
		return p, nil
	}
	if err := s.pool.Submit(task); err != nil {
		return nil, common.Errorf("failed to schedule submission: %w: %w", common.ErrJudgeUnavailable, err)
	}
	return p, nil
}

func (s *SubmissionService) evaluate(ctx context.Context, userID string, req SubmitRequest) (*model.Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id := uuid.NewString()
	submittedAt := s.now().UTC()
	logger := s.logger.With(
		zap.String("submission_id", id),
		zap.Int64("problem_id", req.ProblemID),
		zap.String("language", req.Language),
	)

	result, err := s.judge.Evaluate(ctx, model.JudgeRequest{
		SubmissionID: id,
		ProblemID:    req.ProblemID,
		Language:     req.Language,
		SourceCode:   req.Code,
	})
	if err != nil {
		logger.Error("judge call failed", zap.Error(err))
		return nil, common.Errorf("judge call for submission %s failed: %w: %w", id, common.ErrJudgeUnavailable, err)
	}

	sub, err := relayVerdict(result)
	if err != nil {
		logger.Error("judge reply rejected", zap.Error(err))
		return nil, common.Errorf("submission %s: %w", id, err)
	}
	sub.ID = id
	sub.ProblemID = req.ProblemID
	sub.UserID = userID
	sub.Language = req.Language
	sub.SubmittedAt = submittedAt
	sub.CodeLength = codeLength(req.Code)

	logger.Info("submission judged", zap.String("verdict", string(sub.Verdict)))
	return sub, nil
}

// relayVerdict copies a judge result into a Submission, enforcing the
// contract: only terminal verdicts, metrics only (and always) for accepted
// runs, diagnostics only for compile errors.
func relayVerdict(res *model.JudgeResult) (*model.Submission, error) {
	if res == nil {
		return nil, common.Errorf("judge returned no result: %w", common.ErrJudgeUnavailable)
	}
	if !res.Verdict.IsTerminal() {
		return nil, common.Errorf("judge returned non-terminal verdict %q: %w", res.Verdict, common.ErrJudgeUnavailable)
	}

	sub := &model.Submission{Verdict: res.Verdict}
	switch res.Verdict {
	case model.VerdictAccepted:
		if res.ExecutionTimeMs == nil || res.MemoryUsedKb == nil ||
			*res.ExecutionTimeMs < 0 || *res.MemoryUsedKb < 0 {
			return nil, common.Errorf("accepted verdict without valid metrics: %w", common.ErrJudgeUnavailable)
		}
		execMs, memKb := *res.ExecutionTimeMs, *res.MemoryUsedKb
		sub.ExecutionTimeMs = &execMs
		sub.MemoryUsedKb = &memKb
	case model.VerdictCompileError:
		if res.Diagnostics != nil {
			diag := *res.Diagnostics
			sub.JudgeInfo = &diag
		}
	}
	return sub, nil
}

// codeLength counts UTF-16 code units, the length editors report for source
// text. Characters outside the Basic Multilingual Plane count twice.
func codeLength(code string) int {
	n := 0
	for _, r := range code {
		n += utf16.RuneLen(r)
	}
	return n
}
