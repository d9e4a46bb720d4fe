package service_test

import (
	"context"
	"errors"
	"oj_workbench/internal/app/judge"
	"oj_workbench/internal/app/judge/mocks"
	"oj_workbench/internal/app/service"
	"oj_workbench/internal/common"
	"oj_workbench/internal/domain/model"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func int64p(v int64) *int64 { return &v }
func strp(v string) *string { return &v }

func acceptedResult(ms, kb int64) model.JudgeResult {
	return model.JudgeResult{Verdict: model.VerdictAccepted, ExecutionTimeMs: int64p(ms), MemoryUsedKb: int64p(kb)}
}

func newPool(t *testing.T) *ants.Pool {
	pool, err := ants.NewPool(4, ants.WithNonblocking(true))
	require.NoError(t, err)
	t.Cleanup(pool.Release)
	return pool
}

func TestSubmit_AcceptedScenario(t *testing.T) {
	stub := judge.NewStatic(acceptedResult(45, 1240))
	svc := service.NewSubmissionService(stub, nil, time.Second, nil)

	sub, err := svc.Submit(context.Background(), "mock_user_123", service.SubmitRequest{
		ProblemID: 1001,
		Language:  "cpp",
		Code:      "int main(){}\n",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, int64(1001), sub.ProblemID)
	assert.Equal(t, "cpp", sub.Language)
	assert.Equal(t, "mock_user_123", sub.UserID)
	assert.Equal(t, model.VerdictAccepted, sub.Verdict)
	require.NotNil(t, sub.ExecutionTimeMs)
	require.NotNil(t, sub.MemoryUsedKb)
	assert.Equal(t, int64(45), *sub.ExecutionTimeMs)
	assert.Equal(t, int64(1240), *sub.MemoryUsedKb)
	assert.Equal(t, 13, sub.CodeLength)
	assert.Nil(t, sub.JudgeInfo)
	assert.False(t, sub.SubmittedAt.IsZero())

	require.Equal(t, 1, stub.Calls())
	sent := stub.Requests()[0]
	assert.Equal(t, sub.ID, sent.SubmissionID)
	assert.Equal(t, "int main(){}\n", sent.SourceCode)
}

func TestSubmit_CodeLengthCountsUTF16Units(t *testing.T) {
	svc := service.NewSubmissionService(judge.NewStatic(model.JudgeResult{Verdict: model.VerdictWrongAnswer}), nil, time.Second, nil)

	cases := []struct {
		code string
		want int
	}{
		{code: "print('你好')", want: 11},
		{code: "print('😀')", want: 11},
		{code: "// 𝔸𝔹\nx = 1", want: 13},
	}
	for _, tc := range cases {
		sub, err := svc.Submit(context.Background(), "u", service.SubmitRequest{ProblemID: 1, Language: "python", Code: tc.code})
		require.NoError(t, err)
		assert.Equal(t, tc.want, sub.CodeLength, tc.code)
	}
}

func TestSubmit_ValidationNeverReachesJudge(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockJudge := mocks.NewMockJudge(ctrl)
	mockJudge.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Times(0)

	svc := service.NewSubmissionService(mockJudge, newPool(t), time.Second, nil)

	cases := map[string]service.SubmitRequest{
		"spaces":           {ProblemID: 1001, Language: "cpp", Code: "   "},
		"empty":            {ProblemID: 1001, Language: "cpp", Code: ""},
		"mixed whitespace": {ProblemID: 1001, Language: "cpp", Code: "\n\t \r\n"},
		"unknown language": {ProblemID: 1001, Language: "cobol", Code: "DISPLAY 'x'."},
		"bad problem id":   {ProblemID: 0, Language: "cpp", Code: "int main(){}"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			sub, err := svc.Submit(context.Background(), "u", req)
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Nil(t, sub)

			p, err := svc.SubmitAsync(context.Background(), "u", req)
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Nil(t, p)
		})
	}
}

func TestSubmit_EveryTerminalVerdictKeepsNumericInvariant(t *testing.T) {
	for _, verdict := range model.TerminalVerdicts {
		t.Run(string(verdict), func(t *testing.T) {
			// The judge over-reports: metrics and diagnostics on every verdict.
			stub := judge.NewStatic(model.JudgeResult{
				Verdict:         verdict,
				ExecutionTimeMs: int64p(10),
				MemoryUsedKb:    int64p(20),
				Diagnostics:     strp("syntax error"),
			})
			svc := service.NewSubmissionService(stub, nil, time.Second, nil)

			sub, err := svc.Submit(context.Background(), "u", service.SubmitRequest{ProblemID: 1, Language: "c", Code: "int main(){}"})
			require.NoError(t, err)
			assert.Equal(t, verdict, sub.Verdict)
			assert.True(t, sub.Verdict.IsTerminal())

			if verdict == model.VerdictAccepted {
				require.NotNil(t, sub.ExecutionTimeMs)
				require.NotNil(t, sub.MemoryUsedKb)
				assert.GreaterOrEqual(t, *sub.ExecutionTimeMs, int64(0))
				assert.GreaterOrEqual(t, *sub.MemoryUsedKb, int64(0))
			} else {
				assert.Nil(t, sub.ExecutionTimeMs)
				assert.Nil(t, sub.MemoryUsedKb)
			}
			if verdict == model.VerdictCompileError {
				require.NotNil(t, sub.JudgeInfo)
				assert.Equal(t, "syntax error", *sub.JudgeInfo)
			} else {
				assert.Nil(t, sub.JudgeInfo)
			}
		})
	}
}

func TestSubmit_ContractViolationsAreJudgeFailures(t *testing.T) {
	cases := map[string]model.JudgeResult{
		"pending":                 {Verdict: model.VerdictPending},
		"unknown verdict":         {Verdict: "system_error"},
		"accepted without memory": {Verdict: model.VerdictAccepted, ExecutionTimeMs: int64p(1)},
		"accepted negative time":  {Verdict: model.VerdictAccepted, ExecutionTimeMs: int64p(-1), MemoryUsedKb: int64p(1)},
	}
	for name, res := range cases {
		t.Run(name, func(t *testing.T) {
			svc := service.NewSubmissionService(judge.NewStatic(res), nil, time.Second, nil)
			sub, err := svc.Submit(context.Background(), "u", service.SubmitRequest{ProblemID: 1, Language: "c", Code: "x"})
			assert.ErrorIs(t, err, common.ErrJudgeUnavailable)
			assert.Nil(t, sub)
		})
	}
}

func TestSubmit_TransportFailureIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockJudge := mocks.NewMockJudge(ctrl)
	mockJudge.EXPECT().
		Evaluate(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused")).
		Times(1)

	svc := service.NewSubmissionService(mockJudge, nil, time.Second, nil)
	sub, err := svc.Submit(context.Background(), "u", service.SubmitRequest{ProblemID: 1, Language: "java", Code: "class Main{}"})
	assert.ErrorIs(t, err, common.ErrJudgeUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, sub)
}

func TestSubmit_Timeout(t *testing.T) {
	stub := judge.NewStatic(acceptedResult(1, 1)).WithDelay(time.Second)
	svc := service.NewSubmissionService(stub, nil, 20*time.Millisecond, nil)

	_, err := svc.Submit(context.Background(), "u", service.SubmitRequest{ProblemID: 1, Language: "c", Code: "x"})
	assert.ErrorIs(t, err, common.ErrJudgeUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmit_RequestReachesJudge(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockJudge := mocks.NewMockJudge(ctrl)
	mockJudge.EXPECT().
		Evaluate(gomock.Any(), gomock.Cond(func(req model.JudgeRequest) bool {
			return req.ProblemID == 1002 && req.Language == "python" && req.SourceCode == "print(1)" && req.SubmissionID != ""
		})).
		DoAndReturn(func(ctx context.Context, req model.JudgeRequest) (*model.JudgeResult, error) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return &model.JudgeResult{Verdict: model.VerdictRuntimeError}, nil
		})

	svc := service.NewSubmissionService(mockJudge, nil, time.Second, nil)
	sub, err := svc.Submit(context.Background(), "u", service.SubmitRequest{ProblemID: 1002, Language: "python", Code: "print(1)"})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictRuntimeError, sub.Verdict)
}

func TestSubmitAsync_ResolvesOnPool(t *testing.T) {
	stub := judge.NewStatic(acceptedResult(45, 1240)).WithDelay(10 * time.Millisecond)
	svc := service.NewSubmissionService(stub, newPool(t), time.Second, nil)

	p, err := svc.SubmitAsync(context.Background(), "u", service.SubmitRequest{ProblemID: 1001, Language: "cpp", Code: "int main(){}"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sub, err := p.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictAccepted, sub.Verdict)

	select {
	case <-p.Done():
	default:
		t.Fatal("Done should be closed after Wait returned")
	}
}

func TestSubmitAsync_JudgePanicResolvesAsUnavailable(t *testing.T) {
	for name, pool := range map[string]*ants.Pool{"pool": newPool(t), "goroutine": nil} {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockJudge := mocks.NewMockJudge(ctrl)
			mockJudge.EXPECT().
				Evaluate(gomock.Any(), gomock.Any()).
				DoAndReturn(func(context.Context, model.JudgeRequest) (*model.JudgeResult, error) {
					panic("nil verdict table")
				})
			svc := service.NewSubmissionService(mockJudge, pool, time.Second, nil)

			p, err := svc.SubmitAsync(context.Background(), "u", service.SubmitRequest{ProblemID: 1, Language: "c", Code: "x"})
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			sub, err := p.Wait(ctx)
			assert.Nil(t, sub)
			assert.ErrorIs(t, err, common.ErrJudgeUnavailable)
			assert.Contains(t, err.Error(), "nil verdict table")
		})
	}
}

func TestSubmitAsync_CallerCancellationDoesNotAbortJudge(t *testing.T) {
	stub := judge.NewStatic(acceptedResult(1, 1)).WithDelay(30 * time.Millisecond)
	svc := service.NewSubmissionService(stub, newPool(t), time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	p, err := svc.SubmitAsync(ctx, "u", service.SubmitRequest{ProblemID: 1, Language: "c", Code: "x"})
	require.NoError(t, err)
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer waitCancel()
	_, err = p.Wait(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	sub, err := p.Result()
	require.NoError(t, err)
	assert.Equal(t, model.VerdictAccepted, sub.Verdict)
}

func TestSubmitAsync_PoolOverload(t *testing.T) {
	pool, err := ants.NewPool(1, ants.WithNonblocking(true))
	require.NoError(t, err)
	defer pool.Release()

	stub := judge.NewStatic(acceptedResult(1, 1)).WithDelay(200 * time.Millisecond)
	svc := service.NewSubmissionService(stub, pool, time.Second, nil)

	first, err := svc.SubmitAsync(context.Background(), "u", service.SubmitRequest{ProblemID: 1, Language: "c", Code: "x"})
	require.NoError(t, err)

	_, err = svc.SubmitAsync(context.Background(), "u", service.SubmitRequest{ProblemID: 1, Language: "c", Code: "y"})
	assert.ErrorIs(t, err, common.ErrJudgeUnavailable)
	assert.ErrorIs(t, err, ants.ErrPoolOverload)

	_, err = first.Result()
	require.NoError(t, err)
}
