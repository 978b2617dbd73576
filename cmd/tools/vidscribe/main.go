package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vidscribe",
	Short: "Transcribe and summarize videos",
	Long: `vidscribe runs the video transcription pipeline from the command line.

It converts a video to mono MP3, uploads it to Cloud Storage, transcribes it
with Google Speech-to-Text and summarizes the transcript.`,
	SilenceUsage: true,
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
