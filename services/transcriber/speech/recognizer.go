package speech

import (
	"context"
	"log/slog"
)

type Submitter interface {
	Submit(ctx context.Context, uri string) (string, error)
}

// Recognizer runs the submit then poll flow for one stored audio object.
type Recognizer struct {
	submitter Submitter
	poller    *Poller
	log       *slog.Logger
}

func NewRecognizer(submitter Submitter, poller *Poller, log *slog.Logger) *Recognizer {
	return &Recognizer{
		submitter: submitter,
		poller:    poller,
		log:       log,
	}
}

func (r *Recognizer) Transcribe(ctx context.Context, uri string) (string, error) {
	name, err := r.submitter.Submit(ctx, uri)
	if err != nil {
		return "", err
	}

	r.log.Debug("awaiting recognition", slog.String("operation", name), slog.String("uri", uri))
	return r.poller.Await(ctx, name)
}
