package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xilidan/vidscribe/pkg/logger"
	"github.com/xilidan/vidscribe/services/transcriber/entity"
)

// mp4Header is enough of an ISO BMFF ftyp box for content sniffing.
var mp4Header = append([]byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2avc1mp41"), make([]byte, 64)...)

type fakeUsecase struct {
	process func(ctx context.Context, req *entity.ProcessRequest) (*entity.ProcessResponse, error)
	calls   int
}

func (f *fakeUsecase) Process(ctx context.Context, req *entity.ProcessRequest) (*entity.ProcessResponse, error) {
	f.calls++
	return f.process(ctx, req)
}

type fakeHealth struct {
	status healthpb.HealthCheckResponse_ServingStatus
}

func (f fakeHealth) HealthCheck(ctx context.Context) (*healthpb.HealthCheckResponse, error) {
	return &healthpb.HealthCheckResponse{Status: f.status}, nil
}

func passthrough(next http.Handler) http.Handler { return next }

func newRouter(usc *fakeUsecase, maxBytes int64) http.Handler {
	r := chi.NewRouter()
	h := New(usc, fakeHealth{status: healthpb.HealthCheckResponse_SERVING}, maxBytes, logger.Discard())
	h.RegisterRoutes(r, passthrough)
	return r
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	} else {
		mw.WriteField("note", "no file")
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestProcessVideo(t *testing.T) {
	var got *entity.UploadedVideo
	var gotContent []byte
	usc := &fakeUsecase{process: func(ctx context.Context, req *entity.ProcessRequest) (*entity.ProcessResponse, error) {
		got = req.Video
		gotContent, _ = io.ReadAll(req.Video.Content)
		return &entity.ProcessResponse{
			AudioURL:   "https://storage.googleapis.com/bucket/audio-files/abc.mp3",
			GCSURI:     "gs://bucket/audio-files/abc.mp3",
			Transcript: "halo dunia",
			Summary:    "Ringkasan singkat.",
		}, nil
	}}

	for _, path := range []string{"/process-video", "/api/v1/videos/process"} {
		t.Run(path, func(t *testing.T) {
			body, ct := multipartBody(t, "video", "meeting.mp4", mp4Header)
			req := httptest.NewRequest(http.MethodPost, path, body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()

			newRouter(usc, 1<<20).ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			resp := decodeBody(t, rec)
			want := map[string]string{
				"audioUrl":   "https://storage.googleapis.com/bucket/audio-files/abc.mp3",
				"gcsUri":     "gs://bucket/audio-files/abc.mp3",
				"transcript": "halo dunia",
				"summary":    "Ringkasan singkat.",
			}
			for k, v := range want {
				if resp[k] != v {
					t.Errorf("%s = %q, want %q", k, resp[k], v)
				}
			}

			if got.MimeType != "video/mp4" || got.Filename != "meeting.mp4" || got.Size != int64(len(mp4Header)) {
				t.Errorf("unexpected upload %+v", got)
			}
			if !bytes.Equal(gotContent, mp4Header) {
				t.Errorf("content must be rewound after sniffing")
			}
		})
	}
}

func TestProcessVideoRejections(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		content  []byte
		maxBytes int64
	}{
		{"missing field", "", nil, 1 << 20},
		{"plain text", "video", []byte("this is not a video at all"), 1 << 20},
		{"too large", "video", append(mp4Header, make([]byte, 3<<20)...), 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usc := &fakeUsecase{process: func(ctx context.Context, req *entity.ProcessRequest) (*entity.ProcessResponse, error) {
				if err := req.Video.Validate(tt.maxBytes); err != nil {
					return nil, &entity.PipelineError{Stage: entity.StageValidate, Err: err}
				}
				return &entity.ProcessResponse{}, nil
			}}

			body, ct := multipartBody(t, tt.field, "clip.bin", tt.content)
			req := httptest.NewRequest(http.MethodPost, "/process-video", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()

			newRouter(usc, tt.maxBytes).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422, body = %s", rec.Code, rec.Body.String())
			}
			if decodeBody(t, rec)["error"] == "" {
				t.Errorf("error message missing")
			}
		})
	}
}

func TestProcessVideoPipelineFailure(t *testing.T) {
	tests := []struct {
		stage entity.Stage
		cause string
	}{
		{entity.StageTranscribe, "recognition operation failed: bad audio"},
		{entity.StageSummarize, "summarizer returned an empty summary"},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			usc := &fakeUsecase{process: func(ctx context.Context, req *entity.ProcessRequest) (*entity.ProcessResponse, error) {
				return nil, &entity.PipelineError{Stage: tt.stage, Err: errors.New(tt.cause)}
			}}

			var logs bytes.Buffer
			ctx := logger.WithContext(context.Background(), logger.New(logger.Config{Output: &logs}))

			body, ct := multipartBody(t, "video", "meeting.mp4", mp4Header)
			req := httptest.NewRequest(http.MethodPost, "/process-video", body).WithContext(ctx)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()

			newRouter(usc, 1<<20).ServeHTTP(rec, req)

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			resp := decodeBody(t, rec)
			if len(resp) != 1 {
				t.Errorf("failure body must only carry error, got %v", resp)
			}
			want := "processing failed: " + string(tt.stage) + ": " + tt.cause
			if resp["error"] != want {
				t.Errorf("error = %q, want %q", resp["error"], want)
			}
			if !strings.Contains(logs.String(), "processing failed") || !strings.Contains(logs.String(), tt.cause) {
				t.Errorf("failure was not logged through the request logger: %q", logs.String())
			}
		})
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestProcessVideoBodyReadFailure(t *testing.T) {
	usc := &fakeUsecase{process: func(ctx context.Context, req *entity.ProcessRequest) (*entity.ProcessResponse, error) {
		return &entity.ProcessResponse{}, nil
	}}

	full, ct := multipartBody(t, "video", "meeting.mp4", append(mp4Header, make([]byte, 8<<10)...))
	partial := full.Bytes()[:full.Len()/2]
	body := io.MultiReader(bytes.NewReader(partial), failingReader{err: os.ErrDeadlineExceeded})

	req := httptest.NewRequest(http.MethodPost, "/process-video", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	newRouter(usc, 1<<20).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
	msg := decodeBody(t, rec)["error"]
	if strings.Contains(msg, entity.ErrMissingVideo.Error()) {
		t.Errorf("interrupted body reported as a missing file: %q", msg)
	}
	if usc.calls != 0 {
		t.Errorf("pipeline must not run on a partial body")
	}
}

func TestProcessVideoRemovesSpilledParts(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		wantStatus int
	}{
		{"missing video field", "attachment", http.StatusUnprocessableEntity},
		{"processed", "video", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			t.Setenv("TMPDIR", tmp)

			usc := &fakeUsecase{process: func(ctx context.Context, req *entity.ProcessRequest) (*entity.ProcessResponse, error) {
				return &entity.ProcessResponse{}, nil
			}}
			h := New(usc, fakeHealth{}, 1<<20, logger.Discard())
			h.formMemory = 1
			r := chi.NewRouter()
			h.RegisterRoutes(r, passthrough)

			body, ct := multipartBody(t, tt.field, "meeting.mp4", append(mp4Header, make([]byte, 4<<10)...))
			req := httptest.NewRequest(http.MethodPost, "/process-video", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			left, err := os.ReadDir(tmp)
			if err != nil {
				t.Fatal(err)
			}
			if len(left) != 0 {
				t.Errorf("temporary form files left behind: %v", left)
			}
		})
	}
}

func TestUploadForm(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&fakeUsecase{}, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `name="video"`) || !strings.Contains(rec.Body.String(), `action="/process-video"`) {
		t.Errorf("form does not post a video field to /process-video")
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status     healthpb.HealthCheckResponse_ServingStatus
		wantCode   int
		wantStatus string
	}{
		{healthpb.HealthCheckResponse_SERVING, http.StatusOK, "SERVING"},
		{healthpb.HealthCheckResponse_NOT_SERVING, http.StatusServiceUnavailable, "NOT_SERVING"},
	}

	for _, tt := range tests {
		t.Run(tt.wantStatus, func(t *testing.T) {
			r := chi.NewRouter()
			New(&fakeUsecase{}, fakeHealth{status: tt.status}, 0, logger.Discard()).RegisterRoutes(r, passthrough)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := decodeBody(t, rec)["status"]; got != tt.wantStatus {
				t.Errorf("status field = %q, want %q", got, tt.wantStatus)
			}
		})
	}
}
