package pipeline

import (
	"time"

	"github.com/ebs-ai/ewaste-vision/internal/detect"
)

// Source records how the final category of a result was decided.
type Source string

const (
	// SourceDetector means validation confirmed the canonical category.
	SourceDetector Source = "detector"
	// SourceCorrected means validation replaced the category with a
	// supported alternative.
	SourceCorrected Source = "detector_corrected"
	// SourceFallback means validation failed or was rejected and the
	// canonical category was kept.
	SourceFallback Source = "detector_fallback"
	// SourceTooSmall means the crop was below the minimum analyzable size
	// and all vision stages were skipped.
	SourceTooSmall Source = "detector_too_small"
)

// FallbackReason records why a stage produced its fallback value instead of
// a capability result.
type FallbackReason string

const (
	ReasonNone        FallbackReason = ""
	ReasonUnavailable FallbackReason = "unavailable"
	ReasonTimeout     FallbackReason = "timeout"
	ReasonMalformed   FallbackReason = "malformed"
	ReasonError       FallbackReason = "error"
	ReasonRejected    FallbackReason = "rejected"
	ReasonTooSmall    FallbackReason = "too_small"
)

// EnrichedResult is the final per-detection record. It is assembled once
// and never mutated afterwards.
type EnrichedResult struct {
	ID          string         `json:"id"`
	Category    string         `json:"category"`
	Confidence  float64        `json:"confidence"`
	Price       *int           `json:"regression_result"`
	Description string         `json:"description"`
	BBox        detect.BBox    `json:"bbox"`
	Suggestions []string       `json:"suggestion"`
	RiskLevel   int            `json:"risk_lvl"`
	DamageLevel int            `json:"damage_level"`
	Source      Source         `json:"detection_source"`
	Reason      FallbackReason `json:"fallback_reason,omitempty"`
	Note        string         `json:"note,omitempty"`
}

// Meta carries aggregate request observability data for the caller.
type Meta struct {
	Detected   int           `json:"detected"`
	Suppressed int           `json:"suppressed"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"processing_ms"`
}

// Report is the aggregate response for one processed image.
type Report struct {
	Results         []*EnrichedResult `json:"predictions"`
	DisposalSummary string            `json:"disposal_summary,omitempty"`
	Meta            Meta              `json:"meta"`
}

// assembleResult merges the original detection with the per-stage outcomes.
// Geometry and confidence pass through from the detection unchanged.
func assembleResult(det detect.Detection, val validationOutcome, dmg damageOutcome, desc descriptionOutcome, price *int, riskLevel int) *EnrichedResult {
	return &EnrichedResult{
		ID:          det.ID,
		Category:    val.category,
		Confidence:  det.Confidence,
		Price:       price,
		Description: desc.description,
		BBox:        det.BBox,
		Suggestions: desc.suggestions,
		RiskLevel:   riskLevel,
		DamageLevel: dmg.level,
		Source:      val.source,
		Reason:      val.reason,
		Note:        val.note,
	}
}
