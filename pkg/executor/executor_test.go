package executor

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestExecuteMissingBinary(t *testing.T) {
	_, err := New().Execute(context.Background(), "definitely-not-a-real-binary-vidscribe")

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %v", err)
	}
	if cmdErr.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", cmdErr.ExitCode)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("expected error to wrap exec.ErrNotFound, got %v", err)
	}
}

func TestLastLines(t *testing.T) {
	in := "a\nb\nc\nd"
	if got := lastLines(in, 2); got != "c\nd" {
		t.Errorf("lastLines() = %q", got)
	}
	if got := lastLines(in, 10); got != in {
		t.Errorf("lastLines() = %q", got)
	}
}

func TestCommandErrorMessage(t *testing.T) {
	err := &CommandError{Name: "ffmpeg", ExitCode: 1, Stderr: "Invalid data", Err: errors.New("exit status 1")}
	msg := err.Error()
	if !strings.Contains(msg, "ffmpeg") || !strings.Contains(msg, "Invalid data") {
		t.Errorf("Error() = %q", msg)
	}
}
