package entity

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/xilidan/vidscribe/services/transcriber/consts"
)

var (
	ErrMissingVideo         = errors.New("video file is required")
	ErrUnsupportedMediaType = errors.New("unsupported media type, only mp4 and mkv videos are accepted")
	ErrFileTooLarge         = errors.New("video file is too large")
)

// UploadedVideo is the raw upload as received from the caller.
type UploadedVideo struct {
	Content  io.Reader
	Filename string
	MimeType string
	Size     int64
}

// Validate checks the MIME type and size bound. It never touches Content.
func (v *UploadedVideo) Validate(maxSize int64) error {
	if v == nil || v.Content == nil {
		return ErrMissingVideo
	}
	if !IsAcceptedVideoType(v.MimeType) {
		return fmt.Errorf("%w: %s", ErrUnsupportedMediaType, v.MimeType)
	}
	if v.Size <= 0 {
		return ErrMissingVideo
	}
	if maxSize > 0 && v.Size > maxSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, v.Size, maxSize)
	}
	return nil
}

func IsAcceptedVideoType(mime string) bool {
	mime, _, _ = strings.Cut(strings.ToLower(strings.TrimSpace(mime)), ";")
	return slices.Contains(consts.AcceptedVideoTypes, strings.TrimSpace(mime))
}

// AudioArtifact is the transcoded audio waiting to be uploaded.
type AudioArtifact struct {
	Name string
	Path string
}

// ObjectRef names an object in the object store.
type ObjectRef struct {
	Bucket string
	Name   string
}

// URI returns the canonical gs:// form required by the speech service.
func (o ObjectRef) URI() string {
	return consts.CanonicalURIScheme + o.Bucket + "/" + o.Name
}

// PublicURL returns the playback URL of the object under base.
func (o ObjectRef) PublicURL(base string) string {
	return strings.TrimRight(base, "/") + "/" + o.Bucket + "/" + o.Name
}

type JobState string

const (
	JobRunning     JobState = "RUNNING"
	JobDoneSuccess JobState = "DONE_SUCCESS"
	JobDoneError   JobState = "DONE_ERROR"
)

// TranscriptionJob is a long-running recognition operation on the speech service.
type TranscriptionJob struct {
	Name  string
	State JobState
}

type ProcessRequest struct {
	Video *UploadedVideo
}

type ProcessResponse struct {
	AudioURL   string `json:"audioUrl"`
	GCSURI     string `json:"gcsUri,omitempty"`
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
}

type Stage string

const (
	StageValidate   Stage = "validate"
	StageStore      Stage = "store"
	StageTranscode  Stage = "transcode"
	StageUpload     Stage = "upload"
	StageTranscribe Stage = "transcribe"
	StageSummarize  Stage = "summarize"
)

// PipelineError records which stage of the pipeline failed.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsValidation reports whether err was caused by a rejected upload.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingVideo) ||
		errors.Is(err, ErrUnsupportedMediaType) ||
		errors.Is(err, ErrFileTooLarge)
}
