package transcriber

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	config "github.com/xilidan/vidscribe/config/transcriber"
	"github.com/xilidan/vidscribe/gateways/transcriber/handler"
	"github.com/xilidan/vidscribe/pkg/jwt"
	"github.com/xilidan/vidscribe/pkg/logger"
	"github.com/xilidan/vidscribe/services/transcriber/entity"
	"github.com/xilidan/vidscribe/services/transcriber/objectstore"
	"github.com/xilidan/vidscribe/services/transcriber/server"
)

type stubUsecase struct{}

func (stubUsecase) Process(ctx context.Context, req *entity.ProcessRequest) (*entity.ProcessResponse, error) {
	return &entity.ProcessResponse{}, nil
}

func newTestServer(secret string) *Server {
	log := logger.Discard()
	health := server.NewServerOptions(log)
	health.SetServing(true)
	return &Server{
		cfg:     &config.Config{JWTSecret: secret, PipelineTimeout: time.Minute},
		log:     log,
		health:  health,
		handler: handler.New(stubUsecase{}, health, 1<<20, log),
	}
}

func TestRouterAuth(t *testing.T) {
	const secret = "s3cret"
	router := newTestServer(secret).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/process", strings.NewReader(""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health must stay public, status = %d", rec.Code)
	}

	token, err := jwt.Generate(context.Background(), "cli", secret, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodPost, "/process-video", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code == http.StatusUnauthorized {
		t.Errorf("valid token was rejected")
	}
}

func TestRouterCORS(t *testing.T) {
	router := newTestServer("").Router()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/videos/process", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestNewUsecaseMissingCredentials(t *testing.T) {
	cfg := &config.Config{
		WorkDir: t.TempDir(),
		GCS: config.GCSConfig{
			Bucket:          "bucket",
			CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
		},
	}

	_, _, err := NewUsecase(context.Background(), cfg, logger.Discard())
	if err == nil {
		t.Fatal("expected error for missing credentials file")
	}
	if !errors.Is(err, objectstore.ErrCredentialsNotFound) {
		t.Errorf("error = %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.WorkDir, "videos")); statErr != nil {
		t.Errorf("work dir was not prepared: %v", statErr)
	}
}

func TestHTTPServerBoundsHeadersOnly(t *testing.T) {
	s := newTestServer("")
	srv := s.HTTPServer()

	if srv.ReadTimeout != 0 {
		t.Errorf("ReadTimeout = %s, uploads must not be cut off by a whole-request deadline", srv.ReadTimeout)
	}
	if srv.ReadHeaderTimeout != readHeaderTimeout {
		t.Errorf("ReadHeaderTimeout = %s, want %s", srv.ReadHeaderTimeout, readHeaderTimeout)
	}
	if srv.WriteTimeout != s.cfg.PipelineTimeout+time.Minute {
		t.Errorf("WriteTimeout = %s", srv.WriteTimeout)
	}
	if got := logger.FromContext(srv.BaseContext(nil)); got != s.log {
		t.Errorf("request contexts do not carry the server logger")
	}
}

func TestSlowUploadOutlivesHeaderTimeout(t *testing.T) {
	srv := newTestServer("").HTTPServer()
	srv.ReadHeaderTimeout = 100 * time.Millisecond

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve(lis)
	t.Cleanup(func() { srv.Close() })

	var payload bytes.Buffer
	mw := multipart.NewWriter(&payload)
	fw, err := mw.CreateFormFile("video", "meeting.mp4")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(make([]byte, 64<<10))
	mw.Close()

	pr, pw := io.Pipe()
	go func() {
		data := payload.Bytes()
		chunk := len(data)/6 + 1
		for len(data) > 0 {
			n := min(chunk, len(data))
			if _, err := pw.Write(data[:n]); err != nil {
				return
			}
			data = data[n:]
			time.Sleep(60 * time.Millisecond)
		}
		pw.Close()
	}()

	resp, err := http.Post("http://"+lis.Addr().String()+"/process-video", mw.FormDataContentType(), pr)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
}
