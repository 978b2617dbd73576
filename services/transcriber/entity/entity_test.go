package entity

import (
	"errors"
	"strings"
	"testing"
)

func TestUploadedVideoValidate(t *testing.T) {
	body := strings.NewReader("data")

	tests := []struct {
		name    string
		video   *UploadedVideo
		max     int64
		wantErr error
	}{
		{"mp4 ok", &UploadedVideo{Content: body, MimeType: "video/mp4", Size: 10}, 100, nil},
		{"mkv ok", &UploadedVideo{Content: body, MimeType: "video/x-matroska", Size: 10}, 100, nil},
		{"mime with params", &UploadedVideo{Content: body, MimeType: "Video/MP4; codecs=avc1", Size: 10}, 100, nil},
		{"nil video", nil, 100, ErrMissingVideo},
		{"no content", &UploadedVideo{MimeType: "video/mp4", Size: 10}, 100, ErrMissingVideo},
		{"empty file", &UploadedVideo{Content: body, MimeType: "video/mp4", Size: 0}, 100, ErrMissingVideo},
		{"quicktime", &UploadedVideo{Content: body, MimeType: "video/quicktime", Size: 10}, 100, ErrUnsupportedMediaType},
		{"audio", &UploadedVideo{Content: body, MimeType: "audio/mpeg", Size: 10}, 100, ErrUnsupportedMediaType},
		{"too large", &UploadedVideo{Content: body, MimeType: "video/mp4", Size: 101}, 100, ErrFileTooLarge},
		{"exactly max", &UploadedVideo{Content: body, MimeType: "video/mp4", Size: 100}, 100, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.video.Validate(tt.max)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if !IsValidation(err) {
				t.Errorf("IsValidation(%v) = false", err)
			}
		})
	}
}

func TestObjectRef(t *testing.T) {
	ref := ObjectRef{Bucket: "bucket", Name: "audio-files/abc.mp3"}

	if got := ref.URI(); got != "gs://bucket/audio-files/abc.mp3" {
		t.Errorf("URI() = %q", got)
	}
	if got := ref.PublicURL("https://storage.googleapis.com/"); got != "https://storage.googleapis.com/bucket/audio-files/abc.mp3" {
		t.Errorf("PublicURL() = %q", got)
	}
}

func TestPipelineError(t *testing.T) {
	cause := errors.New("ffmpeg exited 1")
	err := error(&PipelineError{Stage: StageTranscode, Err: cause})

	if err.Error() != "transcode: ffmpeg exited 1" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should reach the cause")
	}

	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Stage != StageTranscode {
		t.Errorf("errors.As failed: %v", pe)
	}
	if IsValidation(err) {
		t.Errorf("transcode failure is not a validation error")
	}
}
