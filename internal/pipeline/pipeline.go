// Package pipeline drives one uploaded media file through transcription,
// subtitle encoding and refinement, persisting both SRT artifacts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/video-stream/autosub/internal/job"
	"github.com/video-stream/autosub/internal/storage"
	"github.com/video-stream/autosub/internal/subtitle/refine"
	"github.com/video-stream/autosub/internal/subtitle/srt"
	"github.com/video-stream/autosub/internal/subtitle/transcribe"
)

// Pipeline owns the processing steps shared by every job.
type Pipeline struct {
	transcriber transcribe.Transcriber
	refiner     *refine.Refiner
	outputDir   string
	logger      *slog.Logger
}

// New creates a pipeline writing artifacts into outputDir.
func New(transcriber transcribe.Transcriber, refiner *refine.Refiner, outputDir string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		transcriber: transcriber,
		refiner:     refiner,
		outputDir:   outputDir,
		logger:      logger.With("component", "pipeline"),
	}
}

// Handler adapts the pipeline to a job.Runner.
func (p *Pipeline) Handler() job.Handler {
	return p.Process
}

// Process runs task to completion. A refinement failure does not fail the
// job; the raw subtitles are stored as the improved copy instead.
func (p *Pipeline) Process(ctx context.Context, task job.Task) (job.Outcome, error) {
	log := p.logger.With("job_id", task.ID)

	audio, err := os.ReadFile(task.MediaPath)
	if err != nil {
		return job.Outcome{}, fmt.Errorf("read upload: %w", err)
	}

	log.Info("transcribing", "engine", p.transcriber.Name(), "size", humanize.IBytes(uint64(len(audio))))
	start := time.Now()
	result, err := p.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return job.Outcome{}, err
	}
	if result == nil {
		return job.Outcome{}, fmt.Errorf("transcription returned no result")
	}
	log.Info("transcribed", "transcript_id", result.ID, "shape", result.Shape(), "elapsed", time.Since(start))

	log.Info("encoding")
	rawSRT, err := srt.Encode(result)
	if err != nil {
		return job.Outcome{}, fmt.Errorf("encode subtitles: %w", err)
	}

	rawPath := filepath.Join(p.outputDir, job.RawSRTName(task.ID))
	if err := storage.WriteFileAtomic(rawPath, []byte(rawSRT), 0o644); err != nil {
		return job.Outcome{}, fmt.Errorf("save raw subtitles: %w", err)
	}

	log.Info("refining")
	refined := p.refiner.Refine(ctx, rawSRT)
	if !refined.Refined {
		log.Warn("using raw subtitles as improved copy", "reason", refined.Err)
	}

	improvedPath := filepath.Join(p.outputDir, job.SRTName(task.ID))
	if err := storage.WriteFileAtomic(improvedPath, []byte(refined.Text), 0o644); err != nil {
		return job.Outcome{}, fmt.Errorf("save subtitles: %w", err)
	}
	log.Info("persisted", "raw", rawPath, "improved", improvedPath)

	return job.Outcome{RawPath: rawPath, ImprovedPath: improvedPath, Refined: refined.Refined}, nil
}
