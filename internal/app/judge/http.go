package judge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"oj_workbench/internal/domain/model"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// HTTP talks to a remote judge service. The submission is POSTed to baseURL;
// a pending answer is polled at baseURL/{submissionId} until it is terminal.
type HTTP struct {
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
}

func NewHTTP(baseURL string, client *http.Client, pollInterval time.Duration) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &HTTP{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       client,
		pollInterval: pollInterval,
	}
}

func (h *HTTP) Evaluate(ctx context.Context, req model.JudgeRequest) (*model.JudgeResult, error) {
	body, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal judge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	result, err := h.do(httpReq)
	if err != nil {
		return nil, err
	}

	id := result.SubmissionID
	if id == "" {
		id = req.SubmissionID
	}
	for result.Verdict == model.VerdictPending {
		timer := time.NewTimer(h.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		pollReq, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/"+url.PathEscape(id), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create judge poll request: %w", err)
		}
		if result, err = h.do(pollReq); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (h *HTTP) do(req *http.Request) (*model.JudgeResult, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("judge %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("judge %s %s returned status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var result model.JudgeResult
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode judge response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("judge reported failure: %s", result.Error)
	}
	return &result, nil
}
