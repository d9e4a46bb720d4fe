package model

import "time"

type Verdict string

const (
	VerdictPending             Verdict = "pending"
	VerdictAccepted            Verdict = "accepted"
	VerdictWrongAnswer         Verdict = "wrong_answer"
	VerdictTimeLimitExceeded   Verdict = "time_limit_exceeded"
	VerdictMemoryLimitExceeded Verdict = "memory_limit_exceeded"
	VerdictRuntimeError        Verdict = "runtime_error"
	VerdictCompileError        Verdict = "compile_error"
)

// TerminalVerdicts lists every absorbing state in display order.
var TerminalVerdicts = []Verdict{
	VerdictAccepted,
	VerdictWrongAnswer,
	VerdictTimeLimitExceeded,
	VerdictMemoryLimitExceeded,
	VerdictRuntimeError,
	VerdictCompileError,
}

func (v Verdict) IsTerminal() bool {
	switch v {
	case VerdictAccepted, VerdictWrongAnswer, VerdictTimeLimitExceeded,
		VerdictMemoryLimitExceeded, VerdictRuntimeError, VerdictCompileError:
		return true
	}
	return false
}

func (v Verdict) IsValid() bool {
	return v == VerdictPending || v.IsTerminal()
}

// Submission is immutable once returned by the coordinator.
// ExecutionTimeMs and MemoryUsedKb are set only for accepted runs,
// JudgeInfo only for compile errors.
type Submission struct {
	ID              string    `json:"id"`
	ProblemID       int64     `json:"problem_id"`
	UserID          string    `json:"user_id"`
	Language        string    `json:"language"`
	SubmittedAt     time.Time `json:"submitted_at"`
	Verdict         Verdict   `json:"verdict"`
	ExecutionTimeMs *int64    `json:"execution_time_ms,omitempty"`
	MemoryUsedKb    *int64    `json:"memory_used_kb,omitempty"`
	CodeLength      int       `json:"code_length"`
	JudgeInfo       *string   `json:"judge_info,omitempty"`
}

// Clone returns a deep copy so callers can never reach a stored record's pointers.
func (s Submission) Clone() Submission {
	out := s
	if s.ExecutionTimeMs != nil {
		v := *s.ExecutionTimeMs
		out.ExecutionTimeMs = &v
	}
	if s.MemoryUsedKb != nil {
		v := *s.MemoryUsedKb
		out.MemoryUsedKb = &v
	}
	if s.JudgeInfo != nil {
		v := *s.JudgeInfo
		out.JudgeInfo = &v
	}
	return out
}
