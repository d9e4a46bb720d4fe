package model

// JudgeRequest is the body sent to a judge backend.
type JudgeRequest struct {
	SubmissionID string `json:"submissionId"`
	ProblemID    int64  `json:"problemId"`
	Language     string `json:"language"`
	SourceCode   string `json:"sourceCode"`
}

// JudgeResult is what a judge answers. Error is only used on queue replies
// when the upstream judge could not be reached.
type JudgeResult struct {
	SubmissionID    string  `json:"submissionId,omitempty"`
	Verdict         Verdict `json:"verdict"`
	ExecutionTimeMs *int64  `json:"executionTimeMs,omitempty"`
	MemoryUsedKb    *int64  `json:"memoryUsedKb,omitempty"`
	Diagnostics     *string `json:"diagnostics,omitempty"`
	Error           string  `json:"error,omitempty"`
}
