// Package experiment implements deterministic A/B test assignment,
// streaming metric aggregation, and two-proportion significance testing
// for prompt optimization experiments.
package experiment

import (
	"time"
)

// Default test parameters, applied when an experiment is created
// without explicit overrides.
const (
	DefaultMinSampleSize   = 100
	DefaultConfidenceLevel = 0.95
)

// Experiment is a named collection of variants plus lifecycle status
// and statistical test parameters. Variant order is irrelevant for
// assignment correctness only as long as it never changes: reordering
// or resizing the variant list invalidates prior assignments.
type Experiment struct {
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	MinSampleSize   int64      `json:"min_sample_size"`
	ConfidenceLevel float64    `json:"confidence_level"`
	Variants        []*Variant `json:"variants"`
}

// newExperiment builds an active experiment from variant specs.
// Validation happens in Store.CreateExperiment.
func newExperiment(name, description string, specs []VariantSpec, now time.Time) *Experiment {
	variants := make([]*Variant, 0, len(specs))
	for _, s := range specs {
		variants = append(variants, &Variant{
			Name:        s.Name,
			Description: s.Description,
			Config:      s.Config,
		})
	}
	return &Experiment{
		Name:            name,
		Description:     description,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
		MinSampleSize:   DefaultMinSampleSize,
		ConfidenceLevel: DefaultConfidenceLevel,
		Variants:        variants,
	}
}

// Variant returns the variant with the given name, or nil.
func (e *Experiment) Variant(name string) *Variant {
	for _, v := range e.Variants {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// VariantNames returns the variant names in display order.
func (e *Experiment) VariantNames() []string {
	names := make([]string, 0, len(e.Variants))
	for _, v := range e.Variants {
		names = append(names, v.Name)
	}
	return names
}

// Significance runs the two-proportion z-test over the experiment's
// variants using its configured test parameters.
func (e *Experiment) Significance() SignificanceResult {
	return TestSignificance(e.Variants, e.ConfidenceLevel, e.MinSampleSize)
}

// clone returns a deep copy of the experiment. Mutations are applied to
// clones and committed only after the mutated state is persisted.
func (e *Experiment) clone() *Experiment {
	c := *e
	c.Variants = make([]*Variant, 0, len(e.Variants))
	for _, v := range e.Variants {
		c.Variants = append(c.Variants, v.clone())
	}
	return &c
}
