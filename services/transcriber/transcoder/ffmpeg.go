package transcoder

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xilidan/vidscribe/pkg/executor"
)

// Transcoder turns a video file into an audio artifact.
type Transcoder interface {
	Transcode(ctx context.Context, videoPath, audioPath string) error
}

type Options struct {
	Binary   string
	Channels int
	KBPS     int
	Timeout  time.Duration
}

type FFmpeg struct {
	opts Options
	exec executor.Executor
	log  *slog.Logger
}

func NewFFmpeg(opts Options, exec executor.Executor, log *slog.Logger) *FFmpeg {
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	if opts.KBPS <= 0 {
		opts.KBPS = 64
	}
	return &FFmpeg{
		opts: opts,
		exec: exec,
		log:  log,
	}
}

// Transcode writes a mono MP3 at the configured bitrate to audioPath.
func (f *FFmpeg) Transcode(ctx context.Context, videoPath, audioPath string) error {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	args := f.args(videoPath, audioPath)
	f.log.Debug("running ffmpeg",
		slog.String("binary", f.opts.Binary),
		slog.String("input", videoPath),
		slog.String("output", audioPath),
		slog.Int("channels", f.opts.Channels),
		slog.Int("kbps", f.opts.KBPS))

	start := time.Now()
	if _, err := f.exec.Execute(ctx, f.opts.Binary, args...); err != nil {
		f.log.Error("ffmpeg failed",
			slog.String("error", err.Error()),
			slog.String("input", videoPath))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("failed to convert video to mp3: %w", ctxErr)
		}
		return fmt.Errorf("failed to convert video to mp3: %w", err)
	}

	f.log.Info("audio extracted",
		slog.String("output", audioPath),
		slog.Duration("took", time.Since(start)))
	return nil
}

func (f *FFmpeg) args(videoPath, audioPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", strconv.Itoa(f.opts.Channels),
		"-codec:a", "libmp3lame",
		"-b:a", strconv.Itoa(f.opts.KBPS) + "k",
		audioPath,
	}
}
