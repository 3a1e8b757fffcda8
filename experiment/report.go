package experiment

import "time"

// Report is a point-in-time snapshot of an experiment's results,
// suitable for display or export.
type Report struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Status       Status             `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Variants     []VariantReport    `json:"variants"`
	Significance SignificanceResult `json:"statistical_significance"`
}

// VariantReport is one variant's slice of a Report.
type VariantReport struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config"`
	Metrics     Metrics        `json:"metrics"`
}

func buildReport(exp *Experiment) *Report {
	report := &Report{
		Name:         exp.Name,
		Description:  exp.Description,
		Status:       exp.Status,
		CreatedAt:    exp.CreatedAt,
		UpdatedAt:    exp.UpdatedAt,
		Variants:     make([]VariantReport, 0, len(exp.Variants)),
		Significance: exp.Significance(),
	}
	for _, v := range exp.Variants {
		report.Variants = append(report.Variants, VariantReport{
			Name:        v.Name,
			Description: v.Description,
			Config:      v.Config,
			Metrics:     v.Metrics,
		})
	}
	return report
}
