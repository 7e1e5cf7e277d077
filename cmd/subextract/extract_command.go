package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subextract/internal/extract"
	"subextract/internal/logging"
)

type extractSummary struct {
	Video       string  `json:"video"`
	Output      string  `json:"output"`
	Frames      int     `json:"frames"`
	Regions     int     `json:"regions"`
	Recognized  int     `json:"recognized"`
	Errors      int     `json:"recognition_errors"`
	Kept        int     `json:"kept"`
	Cues        int     `json:"cues"`
	ElapsedSecs float64 `json:"elapsed_seconds"`
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var dest string
	var overwrite bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "extract <video>",
		Short: "Extract subtitles from a local video without the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			video, err := filepath.Abs(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve video path: %w", err)
			}
			if _, err := os.Stat(video); err != nil {
				return fmt.Errorf("inspect video %q: %w", video, err)
			}
			target := strings.TrimSpace(dest)
			if target == "" {
				target = strings.TrimSuffix(video, filepath.Ext(video)) + ".srt"
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("output %s already exists (use --overwrite to replace it)", target)
				}
			}

			logger, err := logging.New(logging.Options{
				Level:            logLevel,
				Format:           "console",
				OutputPaths:      []string{"stderr"},
				ErrorOutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			pipeline, err := extract.New(cfg, logger)
			if err != nil {
				return err
			}

			progressOut := cmd.ErrOrStderr()
			result, err := pipeline.Run(cmd.Context(), video, extract.Hooks{
				Checkpoint: func(_ context.Context, progress extract.Progress) error {
					if progress.StageStart {
						fmt.Fprintf(progressOut, "[%3.0f%%] %s\n", progress.Percent, progress.Stage.Label())
					}
					return nil
				},
			})
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := result.Document.WriteSRT(&buf); err != nil {
				return fmt.Errorf("render subtitles: %w", err)
			}
			if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write subtitles: %w", err)
			}

			summary := extractSummary{
				Video:       video,
				Output:      target,
				Frames:      result.Stats.Frames,
				Regions:     result.Stats.Regions,
				Recognized:  result.Stats.Recognized,
				Errors:      result.Stats.RecognitionErrors,
				Kept:        result.Stats.Kept,
				Cues:        result.Stats.Cues,
				ElapsedSecs: result.Stats.Elapsed.Round(time.Millisecond).Seconds(),
			}
			if ok, err := ctx.writeStructured(cmd, summary); ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cues to %s in %s\n", summary.Cues, target, result.Stats.Elapsed.Round(time.Second))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Output SRT path (defaults to the video name with .srt)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing output file")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level for pipeline diagnostics")
	return cmd
}
