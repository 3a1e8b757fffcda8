package experiment

import "math"

// SignificanceResult is the verdict of the two-proportion z-test.
type SignificanceResult struct {
	IsSignificant   bool    `json:"is_significant"`
	Winner          string  `json:"winner,omitempty"`
	PValue          float64 `json:"p_value"`
	ConfidenceLevel float64 `json:"confidence_level"`
}

// TestSignificance runs a two-tailed two-proportion z-test over exactly
// two variants. For any other variant count it reports not significant
// unconditionally; multi-variant testing is out of scope. Variants whose
// impressions are below minSampleSize yield p-value 1.0 (insufficient
// power), as does a degenerate pooled proportion (everyone converted or
// nobody did), which would otherwise divide by zero.
func TestSignificance(variants []*Variant, confidenceLevel float64, minSampleSize int64) SignificanceResult {
	result := SignificanceResult{
		PValue:          1.0,
		ConfidenceLevel: confidenceLevel,
	}

	if len(variants) != 2 {
		return result
	}

	a, b := variants[0], variants[1]
	if a.Metrics.Impressions < minSampleSize || b.Metrics.Impressions < minSampleSize {
		return result
	}

	p1 := a.Metrics.ConversionRate
	p2 := b.Metrics.ConversionRate
	n1 := float64(a.Metrics.Impressions)
	n2 := float64(b.Metrics.Impressions)

	pooled := float64(a.Metrics.Successes+b.Metrics.Successes) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	if se == 0 {
		return result
	}

	z := (p1 - p2) / se
	result.PValue = 2 * (1 - normalCDF(math.Abs(z)))

	alpha := 1 - confidenceLevel
	if result.PValue < alpha {
		result.IsSignificant = true
		if p1 > p2 {
			result.Winner = a.Name
		} else {
			result.Winner = b.Name
		}
	}

	return result
}

// normalCDF is the standard normal CDF computed from the Gauss error
// function: Φ(x) = 0.5 * (1 + erf(x/√2)).
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
