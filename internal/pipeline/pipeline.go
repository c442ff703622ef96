// Package pipeline orchestrates detection enrichment: suppression of
// duplicate detections, the per-detection enrichment cascade, and assembly
// of the aggregate report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ebs-ai/ewaste-vision/internal/category"
	"github.com/ebs-ai/ewaste-vision/internal/detect"
	"github.com/ebs-ai/ewaste-vision/internal/vision"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrNoImage indicates an empty request body.
var ErrNoImage = errors.New("no image provided")

// ErrBadImage indicates the image could not be decoded.
var ErrBadImage = errors.New("image could not be decoded")

// PricePredictor is the price regression capability consumed by stage 5.
type PricePredictor interface {
	PredictPrice(ctx context.Context, category string) (int, error)
}

// Config holds the pipeline tuning knobs. Zero values fall back to the
// service defaults.
type Config struct {
	// IoUThreshold above which two detections count as duplicates.
	IoUThreshold float64
	// MinCropSize is the minimum width and height, in pixels, a crop must
	// have before vision stages run on it.
	MinCropSize int
	// LowConfidenceThreshold below which the risk level is raised.
	LowConfidenceThreshold float64
	// MaxWorkers bounds the number of concurrently enriched detections.
	MaxWorkers int

	ValidationTimeout  time.Duration
	DamageTimeout      time.Duration
	DescriptionTimeout time.Duration
	SummaryTimeout     time.Duration
}

func (c *Config) applyDefaults() {
	if c.IoUThreshold == 0 {
		c.IoUThreshold = detect.DefaultIoUThreshold
	}
	if c.MinCropSize == 0 {
		c.MinCropSize = 32
	}
	if c.LowConfidenceThreshold == 0 {
		c.LowConfidenceThreshold = 0.5
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = 10
	}
	if c.ValidationTimeout == 0 {
		c.ValidationTimeout = 10 * time.Second
	}
	if c.DamageTimeout == 0 {
		c.DamageTimeout = 10 * time.Second
	}
	if c.DescriptionTimeout == 0 {
		c.DescriptionTimeout = 10 * time.Second
	}
	if c.SummaryTimeout == 0 {
		c.SummaryTimeout = 10 * time.Second
	}
}

// Service drives the enrichment pipeline. Capabilities are injected at
// construction; a nil analyzer or price predictor degrades the matching
// stages to their fallbacks instead of failing requests.
type Service struct {
	detector detect.Detector
	analyzer vision.Analyzer
	price    PricePredictor
	cfg      Config
	allowed  []string
}

// New creates a pipeline service. detector is required; analyzer and price
// may be nil when the capability is not configured, which is logged once
// here.
func New(detector detect.Detector, analyzer vision.Analyzer, price PricePredictor, cfg Config) *Service {
	cfg.applyDefaults()
	if analyzer == nil {
		log.Warn().Msg("vision analyzer not configured, enrichment will use fallbacks")
	}
	if price == nil {
		log.Warn().Msg("price predictor not configured, prices will be null")
	}
	return &Service{
		detector: detector,
		analyzer: analyzer,
		price:    price,
		cfg:      cfg,
		allowed:  category.SupportedCategories(),
	}
}

// Process runs the complete pipeline for one image: detect, suppress
// duplicates, enrich survivors concurrently, and assemble the report.
// Per-detection failures degrade only that detection's result. When ctx
// expires mid-batch, results assembled so far are still returned.
func (s *Service) Process(ctx context.Context, imageData []byte) (*Report, error) {
	start := time.Now()

	img, err := decodeImage(imageData)
	if err != nil {
		return nil, err
	}

	if s.detector == nil {
		return nil, detect.ErrModelUnavailable
	}
	detections, err := s.detector.Detect(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}
	if len(detections) == 0 {
		log.Info().Msg("no detections found")
		return s.report(nil, "", len(detections), 0, start), nil
	}

	kept := detect.Suppress(detections, s.cfg.IoUThreshold)
	suppressed := len(detections) - len(kept)
	log.Info().
		Int("detected", len(detections)).
		Int("suppressed", suppressed).
		Msg("detections after suppression")

	results := make([]*EnrichedResult, len(kept))
	var g errgroup.Group
	g.SetLimit(s.cfg.MaxWorkers)
	for i, det := range kept {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Any("panic", r).Str("id", det.ID).Msg("enrichment task panicked")
					results[i] = s.fallbackResult(det, ReasonError)
				}
			}()
			// A request that is already past its deadline spawns no more
			// capability calls; the detection still gets a degraded result.
			if ctx.Err() != nil {
				results[i] = s.fallbackResult(det, ReasonTimeout)
				return nil
			}
			results[i] = s.enrichDetection(ctx, det, img)
			return nil
		})
	}
	g.Wait()

	final := make([]*EnrichedResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			final = append(final, r)
		}
	}

	summary := s.disposalSummary(ctx, final)
	return s.report(final, summary, len(detections), suppressed, start), nil
}

// DetectOnly runs detection and suppression without any enrichment.
func (s *Service) DetectOnly(ctx context.Context, imageData []byte) ([]detect.Detection, error) {
	if _, err := decodeImage(imageData); err != nil {
		return nil, err
	}
	if s.detector == nil {
		return nil, detect.ErrModelUnavailable
	}
	detections, err := s.detector.Detect(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}
	return detect.Suppress(detections, s.cfg.IoUThreshold), nil
}

// PriceOnly looks up the price for a canonical category.
func (s *Service) PriceOnly(ctx context.Context, cat string) (int, error) {
	if s.price == nil {
		return 0, fmt.Errorf("price predictor not configured")
	}
	if !category.IsSupported(cat) {
		return 0, fmt.Errorf("category %q is not supported", cat)
	}
	return s.price.PredictPrice(ctx, cat)
}

// Status reports which capabilities are configured.
type Status struct {
	DetectorAvailable   bool `json:"detector_available"`
	VisionAvailable     bool `json:"vision_available"`
	PriceAvailable      bool `json:"price_available"`
	SupportedCategories int  `json:"supported_categories"`
}

// SystemStatus returns the capability availability snapshot.
func (s *Service) SystemStatus() Status {
	return Status{
		DetectorAvailable:   s.detector != nil,
		VisionAvailable:     s.analyzer != nil,
		PriceAvailable:      s.price != nil,
		SupportedCategories: len(s.allowed),
	}
}

// disposalSummary generates batch-level disposal guidance over the distinct
// final categories. Failures fall back to a static sentence; an empty batch
// gets no summary.
func (s *Service) disposalSummary(ctx context.Context, results []*EnrichedResult) string {
	if len(results) == 0 || s.analyzer == nil {
		return ""
	}

	seen := make(map[string]struct{})
	var categories []string
	for _, r := range results {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		categories = append(categories, r.Category)
	}

	sctx, cancel := context.WithTimeout(ctx, s.cfg.SummaryTimeout)
	defer cancel()

	summary, err := s.analyzer.DisposalSummary(sctx, categories)
	if err != nil {
		log.Warn().Err(err).Msg("disposal summary fell back")
		return "Silakan bawa e-waste ke fasilitas daur ulang bersertifikat."
	}
	return summary
}

func (s *Service) report(results []*EnrichedResult, summary string, detected, suppressed int, start time.Time) *Report {
	if results == nil {
		results = []*EnrichedResult{}
	}
	duration := time.Since(start)
	return &Report{
		Results:         results,
		DisposalSummary: summary,
		Meta: Meta{
			Detected:   detected,
			Suppressed: suppressed,
			Duration:   duration,
			DurationMS: duration.Milliseconds(),
		},
	}
}
