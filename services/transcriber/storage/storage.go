package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xilidan/vidscribe/pkg/gen"
	"github.com/xilidan/vidscribe/services/transcriber/consts"
	"github.com/xilidan/vidscribe/services/transcriber/entity"
)

const (
	videosDir = "videos"
	audiosDir = "audios"
)

// Storage is the request-scoped scratch space on local disk.
type Storage interface {
	SaveVideo(ctx context.Context, video *entity.UploadedVideo) (string, error)
	NewAudio(ctx context.Context) (*entity.AudioArtifact, error)
	Remove(ctx context.Context, path string) error
}

type storage struct {
	root string
	ids  gen.UUIDGenerator
}

// New prepares root/videos and root/audios.
func New(root string, ids gen.UUIDGenerator) (Storage, error) {
	if ids == nil {
		ids = gen.UUID()
	}
	for _, dir := range []string{videosDir, audiosDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s dir: %w", dir, err)
		}
	}
	return &storage{
		root: root,
		ids:  ids,
	}, nil
}

func (s *storage) SaveVideo(ctx context.Context, video *entity.UploadedVideo) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := s.ids.Name() + videoExt(video)
	path := filepath.Join(s.root, videosDir, name)

	// O_EXCL: a name collision is a bug, never an overwrite.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create video file: %w", err)
	}

	if _, err := io.Copy(f, video.Content); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write video file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close video file: %w", err)
	}

	return path, nil
}

func (s *storage) NewAudio(ctx context.Context) (*entity.AudioArtifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := s.ids.Name() + consts.ExtensionMP3
	return &entity.AudioArtifact{
		Name: name,
		Path: filepath.Join(s.root, audiosDir, name),
	}, nil
}

// Remove deletes path. Removing a file that is already gone is not an error.
func (s *storage) Remove(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

func videoExt(video *entity.UploadedVideo) string {
	if ext := strings.ToLower(filepath.Ext(video.Filename)); ext == ".mp4" || ext == ".mkv" {
		return ext
	}
	if strings.HasPrefix(strings.ToLower(video.MimeType), consts.MimeMatroska) {
		return ".mkv"
	}
	return ".mp4"
}
