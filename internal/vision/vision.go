// Package vision defines the external image-analysis capabilities used to
// enrich detections, and their Gemini-backed implementation.
package vision

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the capability is not configured or cannot be
// reached.
var ErrUnavailable = errors.New("vision capability unavailable")

// ErrMalformed indicates the capability responded, but the response could
// not be parsed into the expected shape.
var ErrMalformed = errors.New("malformed vision response")

// Validation is the outcome of checking a candidate category against what
// is actually visible in the crop.
type Validation struct {
	// Valid reports whether the candidate category matches the object.
	Valid bool `json:"valid"`
	// CorrectedCategory is a replacement category from the allowed list,
	// empty when the candidate was confirmed or nothing better was found.
	CorrectedCategory string `json:"corrected_category"`
	Reasoning         string `json:"reasoning"`
}

// DamageAssessment grades the physical condition of the object.
type DamageAssessment struct {
	// Level is 1 (excellent) to 5 (severe).
	Level    int    `json:"level"`
	Analysis string `json:"analysis"`
}

// Description is a short description of the object plus up to three ordered
// remediation suggestions.
type Description struct {
	Description string   `json:"description"`
	Suggestions []string `json:"suggestions"`
}

// Analyzer is the set of image-analysis capabilities the enrichment cascade
// consumes. Implementations may fail with ErrUnavailable, ErrMalformed, or
// a context error; each call is independently cancellable.
type Analyzer interface {
	// ValidateCategory confirms or corrects candidate against the allowed
	// category list, judging from the cropped object image.
	ValidateCategory(ctx context.Context, crop []byte, candidate string, allowed []string) (*Validation, error)

	// AssessDamage grades the visible damage of the object in the crop.
	AssessDamage(ctx context.Context, crop []byte, category string) (*DamageAssessment, error)

	// Describe produces a short description and disposal suggestions for
	// the object in the crop.
	Describe(ctx context.Context, crop []byte, category string) (*Description, error)

	// DisposalSummary produces batch-level disposal guidance for a set of
	// detected categories.
	DisposalSummary(ctx context.Context, categories []string) (string, error)
}
