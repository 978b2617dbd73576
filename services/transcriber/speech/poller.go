package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xilidan/vidscribe/services/transcriber/entity"
)

var (
	ErrOperationFailed = errors.New("recognition operation failed")
	ErrEmptyResult     = errors.New("recognition finished without a transcript")
	ErrPollTimeout     = errors.New("recognition did not finish in time")
)

const (
	DefaultPollInterval    = 10 * time.Second
	DefaultPollMaxAttempts = 360
	DefaultPollTimeout     = time.Hour
)

type OperationGetter interface {
	Operation(ctx context.Context, name string) (*Operation, error)
}

// PollOptions bounds the status loop. A zero MaxAttempts or Timeout disables
// that bound, but at least one of them should be set.
type PollOptions struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration
}

type waitFunc func(ctx context.Context, d time.Duration) error

type Poller struct {
	getter OperationGetter
	opts   PollOptions
	wait   waitFunc
	log    *slog.Logger
}

func NewPoller(getter OperationGetter, opts PollOptions, log *slog.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.MaxAttempts <= 0 && opts.Timeout <= 0 {
		opts.MaxAttempts = DefaultPollMaxAttempts
		opts.Timeout = DefaultPollTimeout
	}

	return &Poller{
		getter: getter,
		opts:   opts,
		wait:   sleep,
		log:    log,
	}
}

// Await polls the named operation until it finishes and returns its
// transcript. Exactly one interval is waited between consecutive checks.
func (p *Poller) Await(ctx context.Context, name string) (string, error) {
	parent := ctx
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	started := time.Now()
	for attempt := 1; ; attempt++ {
		op, err := p.getter.Operation(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return "", p.interrupted(parent, name, attempt)
			}
			return "", err
		}

		job := op.Job()
		if job.Name == "" {
			job.Name = name
		}

		switch job.State {
		case entity.JobDoneError:
			p.log.Error("recognition failed",
				slog.String("operation", name),
				slog.String("status", op.Error.String()))
			return "", fmt.Errorf("%w: %s", ErrOperationFailed, op.Error)
		case entity.JobDoneSuccess:
			transcript, ok := op.Transcript()
			if !ok {
				return "", fmt.Errorf("%w: operation %s", ErrEmptyResult, name)
			}
			p.log.Info("recognition finished",
				slog.String("operation", name),
				slog.Int("attempts", attempt),
				slog.Duration("elapsed", time.Since(started)))
			return transcript, nil
		}

		if p.opts.MaxAttempts > 0 && attempt >= p.opts.MaxAttempts {
			return "", fmt.Errorf("%w: operation %s still running after %d checks", ErrPollTimeout, name, attempt)
		}

		p.log.Debug("recognition still running",
			slog.String("operation", job.Name),
			slog.String("state", string(job.State)),
			slog.Int("attempt", attempt),
			slog.Duration("next_check", p.opts.Interval))

		if err := p.wait(ctx, p.opts.Interval); err != nil {
			return "", p.interrupted(parent, name, attempt)
		}
	}
}

func (p *Poller) interrupted(parent context.Context, name string, attempt int) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("polling operation %s interrupted: %w", name, err)
	}
	return fmt.Errorf("%w: operation %s still running after %s (%d checks)", ErrPollTimeout, name, p.opts.Timeout, attempt)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
