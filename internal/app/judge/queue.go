package judge

import (
	"context"
	"errors"
	"fmt"
	"oj_workbench/internal/domain/model"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// Queue hands requests to judge workers through Redis: the request is pushed
// onto a shared list and the reply is awaited on a per-submission list.
type Queue struct {
	rdb         *redis.Client
	queueName   string
	replyPrefix string
}

func NewQueue(rdb *redis.Client, queueName, replyPrefix string) *Queue {
	return &Queue{rdb: rdb, queueName: queueName, replyPrefix: replyPrefix}
}

// ReplyKey is the list a worker answers on for one submission.
func ReplyKey(prefix, submissionID string) string {
	return prefix + ":" + submissionID
}

func (q *Queue) Evaluate(ctx context.Context, req model.JudgeRequest) (*model.JudgeResult, error) {
	payload, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal judge request: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.queueName, payload).Err(); err != nil {
		return nil, fmt.Errorf("failed to push judge request to queue '%s': %w", q.queueName, err)
	}

	replyKey := ReplyKey(q.replyPrefix, req.SubmissionID)
	res, err := q.rdb.BRPop(ctx, blockTimeout(ctx), replyKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("no judge reply on '%s': %w", replyKey, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("failed to wait for judge reply on '%s': %w", replyKey, err)
	}
	// BRPop returns [key, value].
	if len(res) < 2 {
		return nil, fmt.Errorf("malformed judge reply on '%s'", replyKey)
	}

	var result model.JudgeResult
	if err := sonic.UnmarshalString(res[1], &result); err != nil {
		return nil, fmt.Errorf("failed to decode judge reply: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("judge worker reported failure: %s", result.Error)
	}
	return &result, nil
}

// blockTimeout converts the context deadline into a BRPOP timeout. Zero
// blocks until the context is cancelled.
func blockTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	remaining := time.Until(deadline)
	if remaining < time.Second {
		return time.Second
	}
	return remaining
}
