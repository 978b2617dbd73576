package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	config "github.com/xilidan/vidscribe/config/transcriber"
	"github.com/xilidan/vidscribe/gateways/transcriber"
	"github.com/xilidan/vidscribe/pkg/logger"
	"github.com/xilidan/vidscribe/services/transcriber/entity"
)

var processCmd = &cobra.Command{
	Use:   "process <video>",
	Short: "Run the pipeline on a local video file",
	Long: `Run the full pipeline on a local MP4 or MKV file and print the result as JSON.

Configuration is read from the environment, or from the YAML file named by
CONFIG_PATH, exactly as the gateway reads it.

Examples:
  vidscribe process meeting.mp4
  vidscribe process --verbose lecture.mkv`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

var processVerbose bool

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVarP(&processVerbose, "verbose", "v", false, "Log pipeline progress to stderr")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Discard()
	if processVerbose {
		log = logger.New(logger.Config{
			Level:  logger.ParseLevel(cfg.Log.Level),
			Output: os.Stderr,
		})
	}

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open video: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat video: %w", err)
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to detect video type: %w", err)
	}

	ctx := cmd.Context()
	uc, res, err := transcriber.NewUsecase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer res.Close(ctx)

	log.Info("processing local video",
		slog.String("path", path),
		slog.String("mime_type", mtype.String()))

	resp, err := uc.Process(ctx, &entity.ProcessRequest{Video: &entity.UploadedVideo{
		Content:  f,
		Filename: filepath.Base(path),
		MimeType: mtype.String(),
		Size:     info.Size(),
	}})
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
