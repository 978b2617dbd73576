package summarizer

import (
	"context"
	"errors"
	"strings"

	"github.com/xilidan/vidscribe/services/transcriber/consts"
)

var ErrEmptySummary = errors.New("summarizer returned an empty summary")

type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

func prompt(transcript string) string {
	return consts.SummaryInstruction + transcript
}

func clean(summary string) (string, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", ErrEmptySummary
	}
	return summary, nil
}
