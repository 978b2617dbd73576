package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/xilidan/vidscribe/services/transcriber/entity"
	"github.com/xilidan/vidscribe/services/transcriber/metrics"
	"github.com/xilidan/vidscribe/services/transcriber/objectstore"
	"github.com/xilidan/vidscribe/services/transcriber/storage"
	"github.com/xilidan/vidscribe/services/transcriber/summarizer"
	"github.com/xilidan/vidscribe/services/transcriber/transcoder"
)

type Usecase interface {
	Process(ctx context.Context, req *entity.ProcessRequest) (*entity.ProcessResponse, error)
}

// Transcriber turns a stored audio object into text.
type Transcriber interface {
	Transcribe(ctx context.Context, uri string) (string, error)
}

type Options struct {
	MaxUploadBytes  int64
	ObjectPrefix    string
	PublicBaseURL   string
	IncludeURI      bool
	PipelineTimeout time.Duration
}

type Deps struct {
	Storage     storage.Storage
	Transcoder  transcoder.Transcoder
	Uploader    objectstore.Uploader
	Transcriber Transcriber
	Summarizer  summarizer.Summarizer
	Metrics     metrics.Recorder
}

type usecase struct {
	storage     storage.Storage
	transcoder  transcoder.Transcoder
	uploader    objectstore.Uploader
	transcriber Transcriber
	summarizer  summarizer.Summarizer
	metrics     metrics.Recorder
	opts        Options
	log         *slog.Logger
}

func New(deps Deps, opts Options, log *slog.Logger) Usecase {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoOp()
	}
	return &usecase{
		storage:     deps.Storage,
		transcoder:  deps.Transcoder,
		uploader:    deps.Uploader,
		transcriber: deps.Transcriber,
		summarizer:  deps.Summarizer,
		metrics:     deps.Metrics,
		opts:        opts,
		log:         log,
	}
}

// Process runs one upload through every stage and stops at the first failure.
// Failures are returned as *entity.PipelineError and no partial result is produced.
func (u *usecase) Process(ctx context.Context, req *entity.ProcessRequest) (resp *entity.ProcessResponse, err error) {
	started := time.Now()
	defer func() {
		u.metrics.RecordRun(ctx, time.Since(started), err)
		if err != nil {
			u.log.Error("pipeline failed",
				slog.String("error", err.Error()),
				slog.Duration("elapsed", time.Since(started)))
		}
	}()

	if u.opts.PipelineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.opts.PipelineTimeout)
		defer cancel()
	}

	var video *entity.UploadedVideo
	if req != nil {
		video = req.Video
	}
	if err := u.run(ctx, entity.StageValidate, func() error {
		return video.Validate(u.opts.MaxUploadBytes)
	}); err != nil {
		return nil, err
	}

	log := u.log.With(slog.String("filename", video.Filename))
	log.Info("processing video",
		slog.String("mime_type", video.MimeType),
		slog.Int64("size", video.Size))

	var videoPath string
	if err := u.run(ctx, entity.StageStore, func() error {
		var err error
		videoPath, err = u.storage.SaveVideo(ctx, video)
		return err
	}); err != nil {
		return nil, err
	}

	var audio *entity.AudioArtifact
	err = u.run(ctx, entity.StageTranscode, func() error {
		var err error
		if audio, err = u.storage.NewAudio(ctx); err != nil {
			return err
		}
		return u.transcoder.Transcode(ctx, videoPath, audio.Path)
	})
	// The source video is not needed past this point whatever the outcome.
	if rmErr := u.storage.Remove(ctx, videoPath); rmErr != nil {
		log.Warn("failed to delete source video",
			slog.String("path", videoPath),
			slog.String("error", rmErr.Error()))
	}
	if audio != nil {
		defer func() {
			if rmErr := u.storage.Remove(context.WithoutCancel(ctx), audio.Path); rmErr != nil {
				log.Warn("failed to delete local audio",
					slog.String("path", audio.Path),
					slog.String("error", rmErr.Error()))
			}
		}()
	}
	if err != nil {
		return nil, err
	}

	key := objectstore.NewKey(u.opts.ObjectPrefix, audio.Name)
	var ref entity.ObjectRef
	if err := u.run(ctx, entity.StageUpload, func() error {
		var err error
		ref, err = u.uploader.Upload(ctx, audio.Path, key.FullName())
		return err
	}); err != nil {
		return nil, err
	}
	log.Info("audio uploaded", slog.String("object", key.Name()), slog.String("uri", ref.URI()))

	var transcript string
	if err := u.run(ctx, entity.StageTranscribe, func() error {
		var err error
		transcript, err = u.transcriber.Transcribe(ctx, ref.URI())
		return err
	}); err != nil {
		return nil, err
	}

	var summary string
	if err := u.run(ctx, entity.StageSummarize, func() error {
		var err error
		summary, err = u.summarizer.Summarize(ctx, transcript)
		return err
	}); err != nil {
		return nil, err
	}

	resp = &entity.ProcessResponse{
		AudioURL:   ref.PublicURL(u.opts.PublicBaseURL),
		Transcript: transcript,
		Summary:    summary,
	}
	if u.opts.IncludeURI {
		resp.GCSURI = ref.URI()
	}

	log.Info("video processed",
		slog.String("audio_url", resp.AudioURL),
		slog.Int("transcript_length", len(transcript)),
		slog.Duration("elapsed", time.Since(started)))

	return resp, nil
}

func (u *usecase) run(ctx context.Context, stage entity.Stage, fn func() error) error {
	started := time.Now()
	err := fn()
	if err == nil {
		err = ctx.Err()
	}
	u.metrics.RecordStage(ctx, stage, time.Since(started), err)
	if err != nil {
		return &entity.PipelineError{Stage: stage, Err: err}
	}
	return nil
}
