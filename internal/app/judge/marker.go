package judge

import (
	"context"
	"oj_workbench/internal/domain/model"
	"strings"
)

const compileDiagnostic = "syntax error: missing semicolon"

var markerVerdicts = []struct {
	marker  string
	verdict model.Verdict
}{
	{"accepted", model.VerdictAccepted},
	{"wrong", model.VerdictWrongAnswer},
	{"timeout", model.VerdictTimeLimitExceeded},
	{"memory", model.VerdictMemoryLimitExceeded},
	{"error", model.VerdictRuntimeError},
	{"compile", model.VerdictCompileError},
}

// Marker is a development judge. A comment such as "// wrong" or "# timeout"
// in the source selects the verdict; anything else is accepted. Reported
// metrics are derived from the source so repeated runs agree.
type Marker struct{}

func NewMarker() *Marker {
	return &Marker{}
}

func (m *Marker) Evaluate(ctx context.Context, req model.JudgeRequest) (*model.JudgeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &model.JudgeResult{SubmissionID: req.SubmissionID, Verdict: markerVerdict(req.SourceCode)}
	switch result.Verdict {
	case model.VerdictAccepted:
		n := int64(len(req.SourceCode))
		execMs := 50 + n%450
		memKb := 512 + (n*7)%1024
		result.ExecutionTimeMs = &execMs
		result.MemoryUsedKb = &memKb
	case model.VerdictCompileError:
		diag := compileDiagnostic
		result.Diagnostics = &diag
	}
	return result, nil
}

func markerVerdict(source string) model.Verdict {
	for _, mv := range markerVerdicts {
		if strings.Contains(source, "// "+mv.marker) || strings.Contains(source, "# "+mv.marker) {
			return mv.verdict
		}
	}
	return model.VerdictAccepted
}
