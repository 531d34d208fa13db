// Export: run the filter chain in commit mode at full resolution and
// encode the result to disk.
package io

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"rawroom/internal/edit"
	"rawroom/internal/filter"
	"rawroom/internal/imaging"
)

// ExportJob describes one image to export.
type ExportJob struct {
	Source  *imaging.Buffer
	State   edit.State
	OutPath string
}

// Exporter encodes fully processed images. Parallelism here is per file,
// never per tile: export always runs the single-pass chain.
type Exporter struct {
	chain   *filter.Chain
	logger  *logrus.Logger
	Quality int // JPEG quality, 1..100
	Workers int // concurrent files in ExportAll, 0 = sequential
}

// NewExporter creates an exporter with the given JPEG quality.
func NewExporter(quality int, logger *logrus.Logger) *Exporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if quality <= 0 || quality > 100 {
		quality = 95
	}
	return &Exporter{
		chain:   filter.NewChain(logger),
		logger:  logger,
		Quality: quality,
	}
}

// Export runs the chain in commit mode over the full source and writes the
// encoded result to outPath. The format follows the file extension.
func (e *Exporter) Export(source *imaging.Buffer, state edit.State, outPath string) error {
	start := time.Now()
	processed, _, err := e.chain.Apply(source, state.Normalize(), filter.ModeCommit)
	if err != nil {
		return fmt.Errorf("process for export: %w", err)
	}

	mat, err := bufferToMat(processed)
	if err != nil {
		return fmt.Errorf("encode %s: %w", outPath, err)
	}
	defer mat.Close()

	var ok bool
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".jpg", ".jpeg":
		ok = gocv.IMWriteWithParams(outPath, mat, []int{int(gocv.IMWriteJpegQuality), e.Quality})
	case ".png", ".tif", ".tiff", ".bmp", ".webp":
		ok = gocv.IMWrite(outPath, mat)
	default:
		return fmt.Errorf("unsupported export format: %s", outPath)
	}
	if !ok {
		return fmt.Errorf("failed to write image: %s", outPath)
	}

	e.logger.WithFields(logrus.Fields{
		"path":     outPath,
		"size":     fmt.Sprintf("%dx%d", processed.W, processed.H),
		"duration": time.Since(start),
	}).Info("image exported")
	return nil
}

// ExportAll exports jobs with up to Workers files in flight and returns
// the first error per job, keyed by output path.
func (e *Exporter) ExportAll(jobs []ExportJob) map[string]error {
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var mu sync.Mutex
	var wg sync.WaitGroup
	failures := make(map[string]error)

	for _, job := range jobs {
		job := job
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := e.Export(job.Source, job.State, job.OutPath); err != nil {
				mu.Lock()
				failures[job.OutPath] = err
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return failures
}
