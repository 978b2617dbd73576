package transcriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"google.golang.org/grpc"

	config "github.com/xilidan/vidscribe/config/transcriber"
	"github.com/xilidan/vidscribe/gateways/transcriber/handler"
	authmw "github.com/xilidan/vidscribe/gateways/transcriber/middleware"
	"github.com/xilidan/vidscribe/pkg/executor"
	"github.com/xilidan/vidscribe/pkg/gen"
	"github.com/xilidan/vidscribe/pkg/logger"
	"github.com/xilidan/vidscribe/pkg/retry"
	"github.com/xilidan/vidscribe/services/transcriber/metrics"
	"github.com/xilidan/vidscribe/services/transcriber/objectstore"
	"github.com/xilidan/vidscribe/services/transcriber/server"
	"github.com/xilidan/vidscribe/services/transcriber/speech"
	"github.com/xilidan/vidscribe/services/transcriber/storage"
	"github.com/xilidan/vidscribe/services/transcriber/summarizer"
	"github.com/xilidan/vidscribe/services/transcriber/transcoder"
	"github.com/xilidan/vidscribe/services/transcriber/usecase"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 30 * time.Second
)

type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	gcs     *objectstore.GCS
	metrics metrics.Recorder
	health  *server.Server
	usecase usecase.Usecase
	handler *handler.Handler
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	log.Info("creating new transcriber server")
	log.Debug("server config",
		slog.Int("port", cfg.Port),
		slog.Int("grpc_port", cfg.GRPCPort),
		slog.String("work_dir", cfg.WorkDir),
		slog.String("bucket", cfg.GCS.Bucket),
		slog.String("summarizer", cfg.Summarizer.Provider),
		slog.Bool("auth_enabled", cfg.JWTSecret != ""))

	uc, deps, err := NewUsecase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	health := server.NewServerOptions(logger.Component(log, "health"))
	h := handler.New(uc, health, cfg.UploadMaxBytes, logger.Component(log, "handler"))

	log.Info("transcriber server instance created successfully")
	return &Server{
		cfg:     cfg,
		log:     log,
		gcs:     deps.GCS,
		metrics: deps.Metrics,
		health:  health,
		usecase: uc,
		handler: h,
	}, nil
}

// Resources are the long-lived clients behind a usecase that need closing.
type Resources struct {
	GCS     *objectstore.GCS
	Metrics metrics.Recorder
}

func (r Resources) Close(ctx context.Context) error {
	var errs []error
	if r.GCS != nil {
		errs = append(errs, r.GCS.Close())
	}
	if r.Metrics != nil {
		errs = append(errs, r.Metrics.Close(ctx))
	}
	return errors.Join(errs...)
}

// NewUsecase wires the pipeline from configuration. It is shared by the
// gateway and the command line tool.
func NewUsecase(ctx context.Context, cfg *config.Config, log *slog.Logger) (usecase.Usecase, Resources, error) {
	var res Resources

	stg, err := storage.New(cfg.WorkDir, gen.UUID())
	if err != nil {
		return nil, res, fmt.Errorf("failed to prepare work dir: %w", err)
	}

	ffmpeg := transcoder.NewFFmpeg(transcoder.Options{
		Binary:   cfg.FFmpeg.Binary,
		Channels: cfg.FFmpeg.Channels,
		KBPS:     cfg.FFmpeg.KBPS,
		Timeout:  cfg.FFmpeg.Timeout,
	}, executor.New(), logger.Component(log, "ffmpeg"))

	gcs, err := objectstore.New(ctx, objectstore.Options{
		ProjectID:       cfg.GCS.ProjectID,
		Bucket:          cfg.GCS.Bucket,
		CredentialsFile: cfg.GCS.CredentialsFile,
		Timeout:         cfg.GCS.Timeout,
	}, logger.Component(log, "gcs"))
	if err != nil {
		return nil, res, err
	}
	res.GCS = gcs

	policy := retry.Policy{
		MaxRetries:      cfg.Retry.Max,
		InitialInterval: cfg.Retry.InitialInterval,
	}

	speechLog := logger.Component(log, "speech")
	speechClient := speech.New(speech.Options{
		APIKey:         cfg.Speech.APIKey,
		BaseURL:        cfg.Speech.BaseURL,
		Encoding:       cfg.Speech.Encoding,
		SampleRate:     cfg.Speech.SampleRate,
		Language:       cfg.Speech.Language,
		Punctuation:    cfg.Speech.Punctuation,
		Model:          cfg.Speech.Model,
		RequestTimeout: cfg.Speech.RequestTimeout,
		Retry:          policy,
	}, nil, speechLog)
	poller := speech.NewPoller(speechClient, speech.PollOptions{
		Interval:    cfg.Speech.PollInterval,
		MaxAttempts: cfg.Speech.PollMaxAttempts,
		Timeout:     cfg.Speech.PollTimeout,
	}, speechLog)

	sum, err := newSummarizer(ctx, cfg, policy, logger.Component(log, "summarizer"))
	if err != nil {
		res.Close(ctx)
		return nil, Resources{}, err
	}

	rec, err := metrics.New(ctx, metrics.Config{
		Enabled:  cfg.Otel.Enabled,
		Endpoint: cfg.Otel.Endpoint,
		Insecure: cfg.Otel.Insecure,
	})
	if err != nil {
		res.Close(ctx)
		return nil, Resources{}, fmt.Errorf("failed to create metrics recorder: %w", err)
	}
	res.Metrics = rec

	uc := usecase.New(usecase.Deps{
		Storage:     stg,
		Transcoder:  ffmpeg,
		Uploader:    gcs,
		Transcriber: speech.NewRecognizer(speechClient, poller, speechLog),
		Summarizer:  sum,
		Metrics:     rec,
	}, usecase.Options{
		MaxUploadBytes:  cfg.UploadMaxBytes,
		ObjectPrefix:    cfg.GCS.Prefix,
		PublicBaseURL:   cfg.GCS.PublicBaseURL,
		IncludeURI:      cfg.ResponseIncludeURI,
		PipelineTimeout: cfg.PipelineTimeout,
	}, logger.Component(log, "pipeline"))

	return uc, res, nil
}

func newSummarizer(ctx context.Context, cfg *config.Config, policy retry.Policy, log *slog.Logger) (summarizer.Summarizer, error) {
	switch cfg.Summarizer.Provider {
	case config.ProviderGemini:
		return summarizer.NewGemini(ctx, summarizer.GeminiOptions{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			Timeout: cfg.Summarizer.Timeout,
		}, log)
	case config.ProviderCohere:
		return summarizer.NewCohere(summarizer.CohereOptions{
			APIKey:         cfg.Cohere.APIKey,
			BaseURL:        cfg.Cohere.BaseURL,
			Model:          cfg.Cohere.Model,
			Length:         cfg.Cohere.Length,
			Format:         cfg.Cohere.Format,
			Extractiveness: cfg.Cohere.Extractiveness,
			Timeout:        cfg.Summarizer.Timeout,
			Retry:          policy,
		}, nil, log), nil
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Summarizer.Provider)
	}
}

// Router builds the chi router serving the gateway routes.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.handler.RegisterRoutes(router, authmw.Auth(s.cfg.JWTSecret, logger.Component(s.log, "auth")))
	return router
}

// HTTPServer builds the gateway's http.Server. Only headers are bounded on
// read: upload bodies are capped by size and may arrive slowly.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      s.cfg.PipelineTimeout + time.Minute,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return logger.WithContext(context.Background(), s.log)
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting transcriber server")

	srv := s.HTTPServer()
	s.log.Debug("HTTP server configured",
		slog.String("addr", srv.Addr),
		slog.Duration("read_header_timeout", srv.ReadHeaderTimeout),
		slog.Duration("write_timeout", srv.WriteTimeout))

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	serverErrors := make(chan error, 2)

	var grpcServer *grpc.Server
	if s.cfg.GRPCPort > 0 {
		var err error
		grpcServer, err = s.health.NewServer()
		if err != nil {
			return fmt.Errorf("failed to create grpc server: %w", err)
		}

		grpcAddr := fmt.Sprintf(":%d", s.cfg.GRPCPort)
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on grpc port: %w", err)
		}
		go func() {
			s.log.Info("grpc health service started", slog.String("address", grpcAddr))
			serverErrors <- grpcServer.Serve(lis)
		}()
	}

	go func() {
		s.log.Info("transcriber gateway started", slog.String("address", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()
	s.health.SetServing(true)

	var runErr error
	select {
	case err := <-serverErrors:
		s.log.Error("server error received", slog.String("error", err.Error()))
		runErr = fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		s.log.Info("start shutdown", slog.String("signal", sig.String()))
	case <-ctx.Done():
		s.log.Info("closing server due to context cancellation")
	}

	s.health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("graceful shutdown failed", slog.String("error", err.Error()))
		s.log.Warn("forcing server close")
		srv.Close()
		runErr = errors.Join(runErr, fmt.Errorf("failed to gracefully shutdown server: %w", err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	res := Resources{GCS: s.gcs, Metrics: s.metrics}
	if err := res.Close(shutdownCtx); err != nil {
		s.log.Warn("failed to release clients", slog.String("error", err.Error()))
	}

	if runErr == nil {
		s.log.Info("server stopped cleanly")
	}
	return runErr
}
