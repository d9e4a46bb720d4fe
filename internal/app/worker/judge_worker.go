package worker

import (
	"context"
	"errors"
	"oj_workbench/internal/app/judge"
	"oj_workbench/internal/common"
	"oj_workbench/internal/domain/model"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseLock deletes the lock only if it still holds our value.
var releaseLock = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// retainLock extends our lock so it marks the submission as judged.
var retainLock = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

type Config struct {
	QueueName   string
	ReplyPrefix string
	LockPrefix  string
	// ReplyTTL also bounds how long a judged submission's lock is kept, so a
	// redelivered request is skipped while its reply can still be read.
	ReplyTTL     time.Duration
	LockTTL      time.Duration
	JudgeTimeout time.Duration
	// PopTimeout bounds each BRPOP so shutdown is noticed.
	PopTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueName == "" {
		c.QueueName = "judge:requests"
	}
	if c.ReplyPrefix == "" {
		c.ReplyPrefix = "judge:replies"
	}
	if c.LockPrefix == "" {
		c.LockPrefix = "judge:lock"
	}
	if c.ReplyTTL <= 0 {
		c.ReplyTTL = 5 * time.Minute
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 60 * time.Second
	}
	if c.JudgeTimeout <= 0 {
		c.JudgeTimeout = 30 * time.Second
	}
	if c.PopTimeout <= 0 {
		c.PopTimeout = 5 * time.Second
	}
	return c
}

// JudgeWorker serves the Redis judge queue: it takes one request at a time,
// evaluates it on the upstream judge and pushes the reply the submitting
// process is waiting on.
type JudgeWorker struct {
	rdb      *redis.Client
	upstream judge.Judge
	cfg      Config
	logger   *zap.Logger
}

func NewJudgeWorker(rdb *redis.Client, upstream judge.Judge, cfg Config, logger *zap.Logger) *JudgeWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &JudgeWorker{
		rdb:      rdb,
		upstream: upstream,
		cfg:      cfg,
		logger:   logger.With(zap.String("queue", cfg.QueueName)),
	}
}

// Start blocks until ctx is cancelled.
func (w *JudgeWorker) Start(ctx context.Context) {
	w.logger.Info("judge worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("judge worker stopping")
			return
		default:
		}

		res, err := w.rdb.BRPop(ctx, w.cfg.PopTimeout, w.cfg.QueueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("failed to pop judge request", zap.Error(err))
			w.sleep(ctx, time.Second)
			continue
		}
		// BRPop returns [key, value].
		if len(res) < 2 || res[1] == "" {
			w.logger.Warn("empty judge request popped")
			continue
		}

		if err := w.Process(ctx, res[1]); err != nil {
			w.logger.Warn("judge request not processed", zap.Error(err))
		}
	}
}

func (w *JudgeWorker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Process evaluates one encoded request under its submission lock and
// replies. A request whose lock is held, either by a worker judging it or
// because it was already judged within ReplyTTL, is skipped. The lock is
// released only when the reply could not be delivered.
func (w *JudgeWorker) Process(ctx context.Context, payload string) error {
	var req model.JudgeRequest
	if err := sonic.UnmarshalString(payload, &req); err != nil {
		return common.Errorf("failed to decode judge request: %w: %w", common.ErrBadRequest, err)
	}
	if req.SubmissionID == "" {
		return common.Errorf("judge request without submission id: %w", common.ErrBadRequest)
	}
	logger := w.logger.With(zap.String("submission_id", req.SubmissionID))

	lockKey := w.cfg.LockPrefix + ":" + req.SubmissionID
	lockValue := uuid.NewString()
	ok, err := w.rdb.SetNX(ctx, lockKey, lockValue, w.cfg.LockTTL).Result()
	if err != nil {
		return common.Errorf("failed to acquire lock %s: %w: %w", lockKey, common.ErrLockFailed, err)
	}
	if !ok {
		return common.Errorf("submission %s is already being judged: %w", req.SubmissionID, common.ErrLockFailed)
	}
	evalCtx, cancel := context.WithTimeout(ctx, w.cfg.JudgeTimeout)
	result, err := w.upstream.Evaluate(evalCtx, req)
	cancel()

	reply := model.JudgeResult{SubmissionID: req.SubmissionID}
	switch {
	case err != nil:
		logger.Error("upstream judge failed", zap.Error(err))
		reply.Error = err.Error()
	case result == nil:
		reply.Error = "upstream judge returned no result"
	default:
		reply = *result
		reply.SubmissionID = req.SubmissionID
		logger.Info("submission judged", zap.String("verdict", string(reply.Verdict)))
	}

	bg := context.WithoutCancel(ctx)
	replyErr := w.reply(bg, reply)
	w.settleLock(bg, logger, lockKey, lockValue, replyErr == nil)
	return replyErr
}

// settleLock keeps the lock for ReplyTTL after a delivered reply and deletes
// it otherwise so a redelivery can retry.
func (w *JudgeWorker) settleLock(ctx context.Context, logger *zap.Logger, key, value string, delivered bool) {
	var (
		n   int64
		err error
	)
	if delivered {
		n, err = retainLock.Run(ctx, w.rdb, []string{key}, value, w.cfg.ReplyTTL.Milliseconds()).Int64()
	} else {
		n, err = releaseLock.Run(ctx, w.rdb, []string{key}, value).Int64()
	}
	if err != nil {
		logger.Error("failed to settle judge lock", zap.Bool("delivered", delivered), zap.Error(err))
		return
	}
	if n != 1 {
		logger.Warn("judge lock expired before it was settled", zap.Bool("delivered", delivered))
	}
}

func (w *JudgeWorker) reply(ctx context.Context, reply model.JudgeResult) error {
	data, err := sonic.Marshal(reply)
	if err != nil {
		return common.Errorf("failed to encode judge reply: %w", err)
	}
	key := judge.ReplyKey(w.cfg.ReplyPrefix, reply.SubmissionID)
	_, err = w.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.Expire(ctx, key, w.cfg.ReplyTTL)
		return nil
	})
	if err != nil {
		return common.Errorf("failed to push judge reply to '%s': %w", key, err)
	}
	return nil
}
