package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ebs-ai/ewaste-vision/internal/category"
	"github.com/ebs-ai/ewaste-vision/internal/config"
	"github.com/ebs-ai/ewaste-vision/internal/detect"
	"github.com/ebs-ai/ewaste-vision/internal/pipeline"
	"github.com/ebs-ai/ewaste-vision/internal/price"
	"github.com/ebs-ai/ewaste-vision/internal/storage"
	"github.com/ebs-ai/ewaste-vision/internal/vision"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	detectOnly := flag.Bool("detect-only", false, "run detection and suppression without enrichment")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// A missing .env file is fine; env vars may come from the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-config config.yaml] [-detect-only] <image>...\n", os.Args[0])
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	detector, cleanup, err := buildDetector(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize detector")
	}
	if cleanup != nil {
		defer cleanup()
	}

	analyzer := buildAnalyzer(ctx, cfg)
	priceClient := price.NewClient(price.ClientOpts{BaseURL: cfg.Price.BaseURL})

	svc := pipeline.New(detector, analyzer, priceClient, pipeline.Config{
		IoUThreshold:           cfg.Pipeline.IoUThreshold,
		MinCropSize:            cfg.Pipeline.MinCropSize,
		LowConfidenceThreshold: cfg.Pipeline.LowConfidenceThreshold,
		MaxWorkers:             cfg.Pipeline.MaxWorkers,
		ValidationTimeout:      cfg.Pipeline.StageTimeout(),
		DamageTimeout:          cfg.Pipeline.StageTimeout(),
		DescriptionTimeout:     cfg.Pipeline.StageTimeout(),
		SummaryTimeout:         cfg.Pipeline.StageTimeout(),
	})

	exitCode := 0
	for _, path := range flag.Args() {
		if err := processImage(ctx, svc, path, *detectOnly); err != nil {
			log.Error().Err(err).Str("image", path).Msg("processing failed")
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func buildDetector(cfg *config.Config) (detect.Detector, func(), error) {
	switch cfg.Detector.Mode {
	case "onnx":
		yolo, err := detect.LoadYOLO(detect.YOLOOpts{
			ModelPath:           cfg.Detector.ModelPath,
			ClassNames:          category.ClassNames,
			ConfidenceThreshold: float64(cfg.Detector.ConfidenceThreshold),
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("model", cfg.Detector.ModelPath).Msg("local ONNX detector loaded")
		return yolo, func() { yolo.Close() }, nil
	case "remote":
		log.Info().Str("url", cfg.Detector.BaseURL).Msg("using remote detector")
		return detect.NewClient(detect.ClientOpts{
			BaseURL:             cfg.Detector.BaseURL,
			ConfidenceThreshold: float64(cfg.Detector.ConfidenceThreshold),
		}), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown detector mode %q (use remote or onnx)", cfg.Detector.Mode)
	}
}

// buildAnalyzer returns nil when no API key is configured; the pipeline
// degrades enrichment to fallbacks in that case.
func buildAnalyzer(ctx context.Context, cfg *config.Config) vision.Analyzer {
	if cfg.Gemini.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set, running without vision enrichment")
		return nil
	}

	gemini, err := vision.NewGeminiAnalyzer(ctx, vision.GeminiConfig{
		APIKey:          cfg.Gemini.APIKey,
		Model:           cfg.Gemini.Model,
		Temperature:     cfg.Gemini.Temperature,
		TopP:            cfg.Gemini.TopP,
		MaxOutputTokens: cfg.Gemini.MaxTokens,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize gemini analyzer, running without vision enrichment")
		return nil
	}
	log.Info().Str("model", cfg.Gemini.Model).Msg("gemini vision analyzer initialized")

	if cfg.Cache.Path == "" {
		return gemini
	}
	store, err := storage.Open(cfg.Cache.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Cache.Path).Msg("failed to open enrichment cache, continuing uncached")
		return gemini
	}
	log.Info().Str("path", cfg.Cache.Path).Msg("enrichment caching enabled")
	return vision.NewCachedAnalyzer(gemini, store)
}

func processImage(ctx context.Context, svc *pipeline.Service, path string, detectOnly bool) error {
	imageData, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	var out any
	if detectOnly {
		out, err = svc.DetectOnly(ctx, imageData)
	} else {
		out, err = svc.Process(ctx, imageData)
	}
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
