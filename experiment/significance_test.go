package experiment

import (
	"math"
	"testing"
)

func makeVariant(name string, impressions, successes int64) *Variant {
	v := &Variant{Name: name}
	for i := int64(0); i < impressions; i++ {
		v.RecordImpression()
	}
	for i := int64(0); i < successes; i++ {
		v.RecordSuccess()
	}
	return v
}

// TestSignificance_KnownScenario checks the z-test against a fixed
// scenario: 600/1000 vs 500/1000 at 95% confidence is significant with
// a p-value in the 1e-5..1e-6 range (z ≈ 4.49).
func TestSignificance_KnownScenario(t *testing.T) {
	variants := []*Variant{
		makeVariant("A", 1000, 600),
		makeVariant("B", 1000, 500),
	}

	result := TestSignificance(variants, 0.95, 100)

	if !result.IsSignificant {
		t.Fatal("expected significant result")
	}
	if result.Winner != "A" {
		t.Errorf("expected winner A, got %q", result.Winner)
	}
	if result.PValue >= 0.0001 {
		t.Errorf("expected p-value well below 0.05, got %g", result.PValue)
	}
	if result.PValue <= 0 {
		t.Errorf("expected positive p-value, got %g", result.PValue)
	}
}

// TestSignificance_MinSampleSize checks the insufficient-power guard:
// 99 impressions on either side blocks the test regardless of the gap,
// and reaching 100 on both enables it.
func TestSignificance_MinSampleSize(t *testing.T) {
	below := []*Variant{
		makeVariant("A", 99, 99),
		makeVariant("B", 99, 1),
	}
	result := TestSignificance(below, 0.95, 100)
	if result.IsSignificant {
		t.Error("expected not significant below min sample size")
	}
	if result.PValue != 1.0 {
		t.Errorf("expected p-value 1.0, got %g", result.PValue)
	}

	oneBelow := []*Variant{
		makeVariant("A", 100, 99),
		makeVariant("B", 99, 1),
	}
	result = TestSignificance(oneBelow, 0.95, 100)
	if result.IsSignificant {
		t.Error("expected not significant while one variant is below threshold")
	}

	atThreshold := []*Variant{
		makeVariant("A", 100, 99),
		makeVariant("B", 100, 1),
	}
	result = TestSignificance(atThreshold, 0.95, 100)
	if !result.IsSignificant {
		t.Error("expected significant result at threshold with extreme gap")
	}
	if result.Winner != "A" {
		t.Errorf("expected winner A, got %q", result.Winner)
	}
}

// TestSignificance_DegeneratePooledProportion checks the se == 0 guard:
// zero successes everywhere (and its mirror, all successes) short-circuit
// instead of dividing by zero.
func TestSignificance_DegeneratePooledProportion(t *testing.T) {
	allFailed := []*Variant{
		makeVariant("A", 200, 0),
		makeVariant("B", 150, 0),
	}
	result := TestSignificance(allFailed, 0.95, 100)
	if result.IsSignificant {
		t.Error("expected not significant for zero pooled proportion")
	}
	if result.PValue != 1.0 {
		t.Errorf("expected p-value 1.0, got %g", result.PValue)
	}

	allConverted := []*Variant{
		makeVariant("A", 200, 200),
		makeVariant("B", 150, 150),
	}
	result = TestSignificance(allConverted, 0.95, 100)
	if result.IsSignificant {
		t.Error("expected not significant for pooled proportion of one")
	}
	if result.PValue != 1.0 {
		t.Errorf("expected p-value 1.0, got %g", result.PValue)
	}
}

// TestSignificance_TwoVariantsOnly checks the deliberate restriction to
// exactly two variants.
func TestSignificance_TwoVariantsOnly(t *testing.T) {
	for _, count := range []int{0, 1, 3, 5} {
		variants := make([]*Variant, 0, count)
		for i := 0; i < count; i++ {
			variants = append(variants, makeVariant("v", 1000, 500))
		}
		result := TestSignificance(variants, 0.95, 100)
		if result.IsSignificant {
			t.Errorf("expected not significant for %d variants", count)
		}
		if result.Winner != "" {
			t.Errorf("expected no winner for %d variants, got %q", count, result.Winner)
		}
		if result.PValue != 1.0 {
			t.Errorf("expected p-value 1.0 for %d variants, got %g", count, result.PValue)
		}
	}
}

// TestSignificance_NoDifference checks that identical conversion rates
// produce a p-value of 1 and no winner.
func TestSignificance_NoDifference(t *testing.T) {
	variants := []*Variant{
		makeVariant("A", 1000, 500),
		makeVariant("B", 1000, 500),
	}
	result := TestSignificance(variants, 0.95, 100)
	if result.IsSignificant {
		t.Error("expected not significant for identical rates")
	}
	if math.Abs(result.PValue-1.0) > 1e-12 {
		t.Errorf("expected p-value 1.0, got %g", result.PValue)
	}
}

func TestNormalCDF(t *testing.T) {
	cases := []struct {
		x    float64
		want float64
	}{
		{0, 0.5},
		{1.959963985, 0.975},
		{-1.959963985, 0.025},
		{1, 0.8413447461},
	}
	for _, c := range cases {
		got := normalCDF(c.x)
		if math.Abs(got-c.want) > 1e-6 {
			t.Errorf("normalCDF(%g) = %g, want %g", c.x, got, c.want)
		}
	}
}
