package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/xilidan/vidscribe/services/transcriber/entity"
)

var ErrCredentialsNotFound = errors.New("credentials file not found")

// Uploader puts local files into the object store.
type Uploader interface {
	Upload(ctx context.Context, localPath, objectName string) (entity.ObjectRef, error)
}

type Options struct {
	ProjectID       string
	Bucket          string
	CredentialsFile string
	Timeout         time.Duration
}

type writerFunc func(ctx context.Context, bucket, object string) io.WriteCloser

type GCS struct {
	client    *gcs.Client
	bucket    string
	timeout   time.Duration
	newWriter writerFunc
	log       *slog.Logger
}

// New checks the credentials file up front and builds a storage client from it.
// A missing file is a configuration error and is returned before any network call.
func New(ctx context.Context, opts Options, log *slog.Logger) (*GCS, error) {
	if _, err := os.Stat(opts.CredentialsFile); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, opts.CredentialsFile)
	}

	log.Debug("creating gcs client",
		slog.String("bucket", opts.Bucket),
		slog.String("project_id", opts.ProjectID),
		slog.String("credentials_file", opts.CredentialsFile))

	client, err := gcs.NewClient(ctx, option.WithCredentialsFile(opts.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	g := &GCS{
		client:  client,
		bucket:  opts.Bucket,
		timeout: opts.Timeout,
		log:     log,
	}
	g.newWriter = func(ctx context.Context, bucket, object string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = "audio/mpeg"
		return w
	}
	return g, nil
}

func (g *GCS) Upload(ctx context.Context, localPath, objectName string) (entity.ObjectRef, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return entity.ObjectRef{}, fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	// Canceling ctx aborts an in-flight upload without committing the object.
	var cancel context.CancelFunc
	if g.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	w := g.newWriter(ctx, g.bucket, objectName)
	n, err := io.Copy(w, f)
	if err != nil {
		cancel()
		w.Close()
		return entity.ObjectRef{}, fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return entity.ObjectRef{}, fmt.Errorf("failed to finalize upload of %s: %w", objectName, err)
	}

	ref := entity.ObjectRef{Bucket: g.bucket, Name: objectName}
	g.log.Info("audio uploaded",
		slog.String("uri", ref.URI()),
		slog.Int64("bytes", n),
		slog.Duration("took", time.Since(start)))
	return ref, nil
}

func (g *GCS) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
