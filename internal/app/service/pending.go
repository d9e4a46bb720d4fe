package service

import (
	"context"
	"oj_workbench/internal/domain/model"
)

// PendingSubmission is the future of an asynchronous submit. It resolves
// exactly once, with either a terminal Submission or an error.
type PendingSubmission struct {
	done       chan struct{}
	submission *model.Submission
	err        error
}

func newPendingSubmission() *PendingSubmission {
	return &PendingSubmission{done: make(chan struct{})}
}

func (p *PendingSubmission) resolve(sub *model.Submission, err error) {
	p.submission = sub
	p.err = err
	close(p.done)
}

// Done is closed once the result is available.
func (p *PendingSubmission) Done() <-chan struct{} {
	return p.done
}

// Result blocks until the submission resolves.
func (p *PendingSubmission) Result() (*model.Submission, error) {
	<-p.done
	return p.submission, p.err
}

// Wait is Result bounded by ctx. Giving up does not cancel the judge call.
func (p *PendingSubmission) Wait(ctx context.Context) (*model.Submission, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return p.submission, p.err
	}
}
