package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xilidan/vidscribe/pkg/json"
	"github.com/xilidan/vidscribe/pkg/logger"
	"github.com/xilidan/vidscribe/services/transcriber/consts"
	"github.com/xilidan/vidscribe/services/transcriber/entity"
	"github.com/xilidan/vidscribe/services/transcriber/usecase"
)

const (
	// multipartOverhead is the slack allowed on top of the file limit for the
	// multipart envelope.
	multipartOverhead = 1 << 20
	// formMemory is how much of a form is kept in memory before parts spill to disk.
	formMemory = 32 << 20
)

// errUploadRead marks an upload body that could not be read to the end.
var errUploadRead = errors.New("failed to read upload")

type HealthChecker interface {
	HealthCheck(ctx context.Context) (*healthpb.HealthCheckResponse, error)
}

type Handler struct {
	usecase    usecase.Usecase
	health     HealthChecker
	maxBytes   int64
	formMemory int64
	log        *slog.Logger
}

func New(usc usecase.Usecase, health HealthChecker, maxBytes int64, log *slog.Logger) *Handler {
	if maxBytes <= 0 {
		maxBytes = consts.MaxUploadSize
	}
	return &Handler{
		usecase:    usc,
		health:     health,
		maxBytes:   maxBytes,
		formMemory: formMemory,
		log:        log,
	}
}

// RegisterRoutes mounts the public routes; process routes go through auth.
func (h *Handler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/", h.UploadForm)
	r.With(auth).Post("/process-video", h.ProcessVideo)

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/health", h.HealthCheck)
		api.With(auth).Post("/videos/process", h.ProcessVideo)
	})
	h.log.Debug("routes registered")
}

func (h *Handler) UploadForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, uploadForm)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp, err := h.health.HealthCheck(r.Context())
	if err != nil {
		h.log.Error("health check failed", slog.String("error", err.Error()))
		json.WriteError(w, http.StatusServiceUnavailable, err)
		return
	}

	status := http.StatusOK
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		status = http.StatusServiceUnavailable
	}
	if err := json.WriteProtoJSON(w, status, resp); err != nil {
		h.log.Error("failed to write health response", slog.String("error", err.Error()))
	}
}

func (h *Handler) ProcessVideo(w http.ResponseWriter, r *http.Request) {
	h.log.Info("process video request received",
		slog.String("remote_addr", r.RemoteAddr),
		slog.Int64("content_length", r.ContentLength))

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	video, closeFn, err := h.readVideo(r)
	if err != nil {
		h.log.Warn("rejected upload", slog.String("error", err.Error()))
		status := http.StatusUnprocessableEntity
		if errors.Is(err, errUploadRead) {
			status = http.StatusBadRequest
		}
		json.WriteError(w, status, err)
		return
	}
	defer closeFn()

	resp, err := h.usecase.Process(r.Context(), &entity.ProcessRequest{Video: video})
	if err != nil {
		if entity.IsValidation(err) {
			json.WriteError(w, http.StatusUnprocessableEntity, err)
			return
		}
		logger.ErrorErr(r.Context(), "processing failed", err,
			slog.String("filename", video.Filename),
			slog.String("request_id", middleware.GetReqID(r.Context())))
		json.WriteError(w, http.StatusInternalServerError, fmt.Errorf("processing failed: %w", err))
		return
	}

	if err := json.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write response", slog.String("error", err.Error()))
	}
}

// readVideo extracts the upload and sniffs its MIME type from content.
func (h *Handler) readVideo(r *http.Request) (*entity.UploadedVideo, func(), error) {
	if err := r.ParseMultipartForm(h.formMemory); err != nil {
		return nil, nil, h.parseError(err)
	}

	cleanup := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile(consts.VideoFormField)
	if err != nil {
		cleanup()
		return nil, nil, entity.ErrMissingVideo
	}

	mime, err := sniff(file)
	if err != nil {
		file.Close()
		cleanup()
		return nil, nil, fmt.Errorf("%w: %w", errUploadRead, err)
	}

	h.log.Debug("upload received",
		slog.String("filename", header.Filename),
		slog.String("declared_type", header.Header.Get("Content-Type")),
		slog.String("detected_type", mime),
		slog.Int64("size", header.Size))

	closeFn := func() {
		file.Close()
		cleanup()
	}

	return &entity.UploadedVideo{
		Content:  file,
		Filename: header.Filename,
		MimeType: mime,
		Size:     header.Size,
	}, closeFn, nil
}

// parseError tells an oversized or malformed form, both rejected uploads,
// apart from a body that failed to arrive.
func (h *Handler) parseError(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr), errors.Is(err, multipart.ErrMessageTooLarge):
		return fmt.Errorf("%w: limit is %d bytes", entity.ErrFileTooLarge, h.maxBytes)
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
		return fmt.Errorf("%w: %v", entity.ErrMissingVideo, err)
	default:
		return fmt.Errorf("%w: %w", errUploadRead, err)
	}
}

func sniff(file multipart.File) (string, error) {
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	for _, accepted := range consts.AcceptedVideoTypes {
		if mtype.Is(accepted) {
			return accepted, nil
		}
	}
	return mtype.String(), nil
}
