package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Laptop", "Laptop"},
		{"Smartphone", "Handphone"},
		{"Tablet", "Handphone"},
		{"HDD", "Hardisk"},
		{"SSD", "Hardisk"},
		{"Boiler", "Kompor Listrik"},
		{"Flat-Panel-TV", "TV"},
		{"Smoke-Detector", "Monitor"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, Map(tt.label))
		})
	}
}

func TestMapIdentityFallback(t *testing.T) {
	assert.Equal(t, "Quantum-Toaster", Map("Quantum-Toaster"))
	assert.Equal(t, "", Map(""))
}

func TestEveryClassMapsToSupportedCategory(t *testing.T) {
	// Invariant: every canonical category either equals a detector-native
	// label or is in the supported set. All mapped labels must land in the
	// supported set.
	for _, label := range ClassNames {
		mapped := Map(label)
		if mapped != label {
			assert.True(t, IsSupported(mapped),
				"label %q maps to unsupported category %q", label, mapped)
		}
	}
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("Laptop"))
	assert.True(t, IsSupported("Handphone"))
	assert.True(t, IsSupported("Adaptor /Kilo"))
	assert.False(t, IsSupported("Smartphone"))
	assert.False(t, IsSupported(""))
	assert.False(t, IsSupported("laptop"))
}

func TestSupportedCategoriesSorted(t *testing.T) {
	cats := SupportedCategories()

	assert.NotEmpty(t, cats)
	assert.IsNonDecreasing(t, cats)
	assert.Contains(t, cats, "Laptop")
	assert.Contains(t, cats, "Vacum Cleaner")
}

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		name       string
		category   string
		confidence float64
		want       int
	}{
		{"known category high confidence", "TV", 0.9, 4},
		{"known category low confidence", "TV", 0.3, 5},
		{"unknown category defaults to 3", "Gizmo", 0.9, 3},
		{"unknown category low confidence", "Gizmo", 0.3, 4},
		{"cap at 5", "Refrigerator", 0.1, 5},
		{"low risk category", "Mouse", 0.9, 2},
		{"threshold is exclusive", "TV", 0.5, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RiskLevel(tt.category, tt.confidence, 0.5))
		})
	}
}

func TestRiskLevelMonotonicInConfidence(t *testing.T) {
	for _, cat := range []string{"TV", "Mouse", "Gizmo", "Refrigerator"} {
		high := RiskLevel(cat, 0.9, 0.5)
		low := RiskLevel(cat, 0.1, 0.5)
		assert.GreaterOrEqual(t, low, high, "category %s", cat)
		assert.GreaterOrEqual(t, high, 1)
		assert.LessOrEqual(t, low, 5)
	}
}
