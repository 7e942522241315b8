package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"templatealign/pkg/alignment"
	"templatealign/pkg/config"
	"templatealign/pkg/imageio"
	"templatealign/pkg/preproc"
)

func main() {
	inputDir := flag.String("input", "", "Directory of specimen stacks; each subdirectory holds one stack of TIFF slices (a directory holding slices directly is treated as a single specimen)")
	outputDir := flag.String("output", "aligned", "Directory to write aligned results into")
	configPath := flag.String("config", "templatealign.yaml", "Path to the YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to the -config path and exit")
	method := flag.String("method", "", "Threshold method override: triangle, otsu or isodata")
	sigma := flag.Float64("sigma", -1, "Gaussian smoothing sigma override (voxels)")
	erosion := flag.Int("erosion", -1, "Mask erosion radius override (voxels)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger := initLogger(*debugMode)

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			logger.WithError(err).Fatal("Failed to write default config")
		}
		logger.WithField("path", *configPath).Info("Wrote default configuration")
		return
	}

	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if *method != "" {
		cfg.Segmentation.ThresholdMethod = *method
	}
	if *sigma >= 0 {
		cfg.Segmentation.GaussSigma = *sigma
	}
	if *erosion >= 0 {
		cfg.Segmentation.ErosionRadius = *erosion
	}

	specimens, err := findSpecimens(*inputDir)
	if err != nil {
		logger.WithError(err).Fatal("Failed to scan input directory")
	}
	logger.WithFields(logrus.Fields{
		"input":     *inputDir,
		"specimens": len(specimens),
		"method":    cfg.Segmentation.ThresholdMethod,
	}).Info("Starting template alignment")

	aligner := alignment.NewAligner(cfg.AlignerParams())
	failed := 0
	for _, specimen := range specimens {
		if err := processSpecimen(logger, aligner, cfg, specimen, *outputDir); err != nil {
			logger.WithError(err).WithField("specimen", specimen.name).Error("Alignment failed")
			failed++
		}
	}

	if failed > 0 {
		logger.WithField("failed", failed).Fatal("Some specimens could not be aligned")
	}
	logger.Info("All specimens aligned")
}

type specimen struct {
	name string
	dir  string
}

// findSpecimens lists the specimen stack directories under root. If root
// itself contains TIFF slices it is treated as a single specimen.
func findSpecimens(root string) ([]specimen, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var specimens []specimen
	for _, e := range entries {
		if e.IsDir() {
			specimens = append(specimens, specimen{name: e.Name(), dir: filepath.Join(root, e.Name())})
		}
	}
	if len(specimens) == 0 {
		specimens = append(specimens, specimen{name: filepath.Base(root), dir: root})
	}
	return specimens, nil
}

func processSpecimen(logger *logrus.Logger, aligner *alignment.Aligner, cfg *config.Config, s specimen, outputRoot string) error {
	log := logger.WithField("specimen", s.name)
	start := time.Now()

	vol, err := imageio.LoadVolumeDir(s.dir)
	if err != nil {
		return fmt.Errorf("loading stack: %w", err)
	}
	log.WithFields(logrus.Fields{
		"width": vol.Width, "height": vol.Height, "depth": vol.Depth,
	}).Info("Loaded stack")

	if cfg.Downsample.InPlaneFactor > 1 || cfg.Downsample.AxialFactor > 1 {
		vol, err = preproc.DownsampleStack(vol, cfg.Downsample.InPlaneFactor, cfg.Downsample.AxialFactor)
		if err != nil {
			return fmt.Errorf("downsampling: %w", err)
		}
		log.WithFields(logrus.Fields{
			"width": vol.Width, "height": vol.Height, "depth": vol.Depth,
		}).Info("Downsampled stack")
	}

	result, err := aligner.Process(vol)
	if err != nil {
		return err
	}

	outDir := filepath.Join(outputRoot, s.name)
	if err := imageio.SaveVolumeDir(result.Aligned, filepath.Join(outDir, "aligned")); err != nil {
		return fmt.Errorf("saving aligned volume: %w", err)
	}
	if cfg.Output.SaveMask {
		if err := imageio.SaveMaskDir(result.Mask, filepath.Join(outDir, "mask")); err != nil {
			return fmt.Errorf("saving mask: %w", err)
		}
	}
	if cfg.Output.SaveNIfTI {
		if err := imageio.SaveNIfTI(result.Aligned, filepath.Join(outDir, "aligned.nii"), cfg.Output.PixelSizes); err != nil {
			return fmt.Errorf("saving NIfTI: %w", err)
		}
	}
	if err := imageio.SavePointsCSV(result.Points, filepath.Join(outDir, "midline_points.csv")); err != nil {
		return fmt.Errorf("saving midline points: %w", err)
	}

	log.WithFields(logrus.Fields{
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
		"normal": fmt.Sprintf("(%.4f, %.4f, %.4f)",
			result.Plane.Normal.Z, result.Plane.Normal.Y, result.Plane.Normal.X),
	}).Info("Specimen aligned")
	return nil
}

// initLogger initializes the logger with an appropriate level.
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
