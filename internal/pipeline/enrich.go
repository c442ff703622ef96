package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ebs-ai/ewaste-vision/internal/category"
	"github.com/ebs-ai/ewaste-vision/internal/detect"
	"github.com/ebs-ai/ewaste-vision/internal/vision"
	"github.com/rs/zerolog/log"
)

// defaultDamageLevel is used when damage assessment is skipped or fails:
// "fair/unknown".
const defaultDamageLevel = 3

type validationOutcome struct {
	category string
	source   Source
	reason   FallbackReason
	note     string
}

type damageOutcome struct {
	level    int
	analysis string
	reason   FallbackReason
}

type descriptionOutcome struct {
	description string
	suggestions []string
	reason      FallbackReason
}

func defaultDescription(cat string) string {
	return fmt.Sprintf("Perangkat elektronik %s", strings.ToLower(cat))
}

func defaultSuggestions() []string {
	return []string{
		"Periksa panduan manufacturer",
		"Pisahkan komponen berbahaya",
		"Bawa ke pusat daur ulang e-waste",
	}
}

// reasonForError maps a capability error to the fallback reason recorded on
// the result. Request cancellation is recorded as a timeout: either way the
// deadline decided, not the capability.
func reasonForError(err error) FallbackReason {
	switch {
	case errors.Is(err, vision.ErrUnavailable):
		return ReasonUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonTimeout
	case errors.Is(err, vision.ErrMalformed):
		return ReasonMalformed
	default:
		return ReasonError
	}
}

// enrichDetection runs the full cascade for one surviving detection and
// assembles its result. It never fails: every stage degrades to its
// fallback instead. The crop buffer is scoped to this call.
func (s *Service) enrichDetection(ctx context.Context, det detect.Detection, img image.Image) *EnrichedResult {
	canonical := category.Map(det.Category)

	cropped, err := cropRegion(img, det.BBox)
	if err != nil {
		log.Warn().Err(err).Str("id", det.ID).Msg("failed to crop detection region")
		cropped = &crop{}
	}
	if cropped.tooSmall(s.cfg.MinCropSize) {
		log.Info().
			Str("category", det.Category).
			Int("width", cropped.Width).
			Int("height", cropped.Height).
			Msg("crop below minimum size, skipping vision analysis")
		return s.tooSmallResult(ctx, det, canonical)
	}

	val := s.runValidation(ctx, cropped.Data, canonical)
	dmg := s.runDamage(ctx, cropped.Data, val.category)
	desc := s.runDescription(ctx, cropped.Data, val.category)
	price := s.runPrice(ctx, val.category)
	risk := category.RiskLevel(val.category, det.Confidence, s.cfg.LowConfidenceThreshold)

	return assembleResult(det, val, dmg, desc, price, risk)
}

// tooSmallResult builds the result for a detection whose crop cannot be
// analyzed: canonical category, default description and damage, but price
// lookup still applies since it needs no image.
func (s *Service) tooSmallResult(ctx context.Context, det detect.Detection, canonical string) *EnrichedResult {
	val := validationOutcome{
		category: canonical,
		source:   SourceTooSmall,
		reason:   ReasonTooSmall,
		note:     "crop below minimum analyzable size",
	}
	dmg := damageOutcome{level: defaultDamageLevel, reason: ReasonTooSmall}
	desc := descriptionOutcome{
		description: defaultDescription(canonical),
		suggestions: defaultSuggestions(),
		reason:      ReasonTooSmall,
	}
	price := s.runPrice(ctx, canonical)
	risk := category.RiskLevel(canonical, det.Confidence, s.cfg.LowConfidenceThreshold)

	return assembleResult(det, val, dmg, desc, price, risk)
}

// fallbackResult is the degraded record produced when a detection's task
// panics or is abandoned; everything falls back, the geometry survives.
func (s *Service) fallbackResult(det detect.Detection, reason FallbackReason) *EnrichedResult {
	canonical := category.Map(det.Category)
	val := validationOutcome{
		category: canonical,
		source:   SourceFallback,
		reason:   reason,
	}
	dmg := damageOutcome{level: defaultDamageLevel, reason: reason}
	desc := descriptionOutcome{
		description: defaultDescription(canonical),
		suggestions: defaultSuggestions(),
		reason:      reason,
	}
	risk := category.RiskLevel(canonical, det.Confidence, s.cfg.LowConfidenceThreshold)

	return assembleResult(det, val, dmg, desc, nil, risk)
}

// runValidation executes stage 1. A correction outside the supported set is
// discarded: the canonical category is the only safe input for the price
// model.
func (s *Service) runValidation(ctx context.Context, cropData []byte, canonical string) validationOutcome {
	if s.analyzer == nil {
		return validationOutcome{
			category: canonical,
			source:   SourceFallback,
			reason:   ReasonUnavailable,
			note:     "validation capability not configured",
		}
	}

	vctx, cancel := context.WithTimeout(ctx, s.cfg.ValidationTimeout)
	defer cancel()

	v, err := s.analyzer.ValidateCategory(vctx, cropData, canonical, s.allowed)
	if err != nil {
		log.Warn().Err(err).Str("category", canonical).Msg("validation stage fell back")
		return validationOutcome{
			category: canonical,
			source:   SourceFallback,
			reason:   reasonForError(err),
			note:     "validation failed: " + err.Error(),
		}
	}

	if v.CorrectedCategory != "" && v.CorrectedCategory != canonical {
		if category.IsSupported(v.CorrectedCategory) {
			log.Info().
				Str("from", canonical).
				Str("to", v.CorrectedCategory).
				Msg("validation corrected category")
			return validationOutcome{
				category: v.CorrectedCategory,
				source:   SourceCorrected,
				note:     v.Reasoning,
			}
		}
		return validationOutcome{
			category: canonical,
			source:   SourceFallback,
			reason:   ReasonMalformed,
			note:     fmt.Sprintf("correction %q not in supported set", v.CorrectedCategory),
		}
	}

	if !v.Valid {
		return validationOutcome{
			category: canonical,
			source:   SourceFallback,
			reason:   ReasonRejected,
			note:     v.Reasoning,
		}
	}

	return validationOutcome{category: canonical, source: SourceDetector, note: v.Reasoning}
}

// runDamage executes stage 3; failures default to level 3 and never block
// later stages.
func (s *Service) runDamage(ctx context.Context, cropData []byte, finalCategory string) damageOutcome {
	if s.analyzer == nil {
		return damageOutcome{level: defaultDamageLevel, reason: ReasonUnavailable}
	}

	dctx, cancel := context.WithTimeout(ctx, s.cfg.DamageTimeout)
	defer cancel()

	d, err := s.analyzer.AssessDamage(dctx, cropData, finalCategory)
	if err != nil {
		log.Warn().Err(err).Str("category", finalCategory).Msg("damage stage fell back")
		return damageOutcome{level: defaultDamageLevel, reason: reasonForError(err)}
	}
	return damageOutcome{level: d.Level, analysis: d.Analysis}
}

// runDescription executes stage 4; failures substitute the deterministic
// default description and generic suggestions.
func (s *Service) runDescription(ctx context.Context, cropData []byte, finalCategory string) descriptionOutcome {
	fallback := descriptionOutcome{
		description: defaultDescription(finalCategory),
		suggestions: defaultSuggestions(),
	}
	if s.analyzer == nil {
		fallback.reason = ReasonUnavailable
		return fallback
	}

	dctx, cancel := context.WithTimeout(ctx, s.cfg.DescriptionTimeout)
	defer cancel()

	d, err := s.analyzer.Describe(dctx, cropData, finalCategory)
	if err != nil {
		log.Warn().Err(err).Str("category", finalCategory).Msg("description stage fell back")
		fallback.reason = reasonForError(err)
		return fallback
	}
	return descriptionOutcome{description: d.Description, suggestions: d.Suggestions}
}

// runPrice executes stage 5. Price is a fast lookup with no timeout of its
// own; unsupported categories and lookup failures yield a nil price.
func (s *Service) runPrice(ctx context.Context, finalCategory string) *int {
	if s.price == nil || !category.IsSupported(finalCategory) {
		return nil
	}

	p, err := s.price.PredictPrice(ctx, finalCategory)
	if err != nil {
		log.Warn().Err(err).Str("category", finalCategory).Msg("price lookup failed")
		return nil
	}
	return &p
}
