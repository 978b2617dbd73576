package metrics

import (
	"context"
	"time"

	"github.com/xilidan/vidscribe/services/transcriber/entity"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder observes pipeline runs.
type Recorder interface {
	RecordStage(ctx context.Context, stage entity.Stage, elapsed time.Duration, err error)
	RecordRun(ctx context.Context, elapsed time.Duration, err error)
	Close(ctx context.Context) error
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

type NoOp struct{}

func NewNoOp() *NoOp { return &NoOp{} }

func (NoOp) RecordStage(context.Context, entity.Stage, time.Duration, error) {}

func (NoOp) RecordRun(context.Context, time.Duration, error) {}

func (NoOp) Close(context.Context) error { return nil }
