// rawroom command line: load an image, apply its sidecar edits (or the
// auto-exposure starting point) and export the developed result.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"rawroom/internal/config"
	"rawroom/internal/edit"
	"rawroom/internal/filter"
	"rawroom/internal/imaging"
	imgio "rawroom/internal/io"
	"rawroom/internal/metrics"
	"rawroom/internal/render"
	"rawroom/internal/sidecar"
)

const (
	appName    = "rawroom"
	appVersion = "1.0.0"
)

func main() {
	inPath := flag.String("in", "", "input image path")
	outPath := flag.String("out", "", "export path (format by extension)")
	previewPath := flag.String("preview", "", "optional path for a fast interactive-quality render")
	auto := flag.Bool("auto", false, "ignore sidecar and start from auto exposure")
	quality := flag.Int("quality", 0, "JPEG quality override (1-100)")
	debugMode := flag.Bool("debug", false, "enable debug mode with verbose logging")
	flag.Parse()

	logger := initLogger(*debugMode)
	logger.WithFields(logrus.Fields{
		"version":    appVersion,
		"debug_mode": *debugMode,
	}).Info("starting rawroom")

	if *inPath == "" || *outPath == "" {
		logger.Error("both -in and -out are required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	q := cfg.Export.Quality
	if *quality > 0 {
		q = *quality
	}

	info, err := os.Stat(*inPath)
	if err != nil {
		logger.WithError(err).Fatal("cannot stat input path")
	}
	if info.IsDir() {
		runBatch(*inPath, *outPath, q, cfg, logger)
		return
	}

	loader := imgio.NewLoader(logger)
	source, err := loader.Load(*inPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load image")
	}

	state := resolveState(*inPath, *auto, source, logger)

	if *previewPath != "" {
		// Preview work runs on a bounded proxy so huge sources stay
		// interactive; the export below always uses full resolution.
		proxy, err := loader.Proxy(source, cfg.Render.ProxyMaxDim)
		if err != nil {
			logger.WithError(err).Warn("proxy generation failed, previewing at full resolution")
			proxy = source
		}
		if err := renderPreview(proxy, state, cfg, *previewPath, logger); err != nil {
			logger.WithError(err).Error("preview render failed")
		}
	}

	exporter := imgio.NewExporter(q, logger)
	if err := exporter.Export(source, state, *outPath); err != nil {
		logger.WithError(err).Fatal("export failed")
	}

	logger.Info("done")
}

// runBatch develops every supported image in inDir into outDir as JPEG,
// applying each file's sidecar edits.
func runBatch(inDir, outDir string, quality int, cfg config.Config, logger *logrus.Logger) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		logger.WithError(err).Fatal("cannot read input directory")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		logger.WithError(err).Fatal("cannot create output directory")
	}

	loader := imgio.NewLoader(logger)
	store := sidecar.NewStore(logger)
	var jobs []imgio.ExportJob
	for _, entry := range entries {
		if entry.IsDir() || !loader.Supported(entry.Name()) {
			continue
		}
		path := filepath.Join(inDir, entry.Name())
		source, err := loader.Load(path)
		if err != nil {
			logger.WithError(err).WithField("path", path).Warn("skipping unreadable image")
			continue
		}
		state, _, err := store.Load(path)
		if err != nil {
			logger.WithError(err).WithField("path", path).Warn("sidecar unreadable, using defaults")
			state = edit.Default()
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())) + ".jpg"
		jobs = append(jobs, imgio.ExportJob{
			Source:  source,
			State:   state,
			OutPath: filepath.Join(outDir, name),
		})
	}

	exporter := imgio.NewExporter(quality, logger)
	exporter.Workers = cfg.Export.Workers
	failures := exporter.ExportAll(jobs)
	for path, jobErr := range failures {
		logger.WithError(jobErr).WithField("path", path).Error("export failed")
	}
	logger.WithFields(logrus.Fields{
		"exported": len(jobs) - len(failures),
		"failed":   len(failures),
	}).Info("batch export finished")
	if len(failures) > 0 {
		os.Exit(1)
	}
}

// resolveState picks the edit state: sidecar if present, auto exposure on
// request, defaults otherwise.
func resolveState(imagePath string, auto bool, source *imaging.Buffer, logger *logrus.Logger) edit.State {
	if auto {
		state := filter.AutoExposure(source, edit.Default())
		logger.WithField("exposure", state.Exposure).Info("auto exposure applied")
		return state
	}
	store := sidecar.NewStore(logger)
	state, found, err := store.Load(imagePath)
	if err != nil {
		logger.WithError(err).Warn("sidecar unreadable, using defaults")
		return edit.Default()
	}
	if found {
		logger.WithField("sidecar", store.Path(imagePath)).Info("sidecar edits loaded")
	}
	return state
}

// renderPreview runs the tiled interactive pipeline once over the full
// image and writes the result, mainly useful for eyeballing what the
// viewport would show.
func renderPreview(source *imaging.Buffer, state edit.State, cfg config.Config, path string, logger *logrus.Logger) error {
	pipe, err := render.New(source, render.Config{
		TileSize:        cfg.Render.TileSize,
		Debounce:        cfg.Render.Debounce,
		Workers:         cfg.Render.Workers,
		MaxCanvasPixels: cfg.Render.MaxCanvasPx,
	}, logger)
	if err != nil {
		return err
	}
	defer pipe.Close()

	done := make(chan *imaging.Buffer, 1)
	pipe.OnResult(func(buf *imaging.Buffer, generation uint64) {
		done <- buf
	})
	if _, err := pipe.Submit(state, imaging.FullImage(source), filter.ModeInteractive); err != nil {
		return err
	}
	pipe.Flush()
	preview := <-done

	if psnr, err := metrics.NewEvaluator().Calculate("psnr", source, preview); err == nil {
		logger.WithField("psnr", psnr).Debug("preview divergence from source")
	}

	exporter := imgio.NewExporter(0, logger)
	return exporter.Export(preview, edit.Default(), path)
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
