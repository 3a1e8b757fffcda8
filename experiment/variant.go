package experiment

// Metrics holds the accumulated outcome counters for a single variant.
// All fields are recomputed eagerly on mutation so a persisted snapshot
// is always self-consistent without a separate derivation pass.
type Metrics struct {
	Impressions        int64   `json:"impressions"`
	Successes          int64   `json:"successes"`
	ConversionRate     float64 `json:"conversion_rate"`
	AvgFeedbackScore   float64 `json:"avg_feedback_score"`
	TotalFeedbackScore float64 `json:"total_feedback_score"`
	FeedbackCount      int64   `json:"feedback_count"`
}

// Variant is one arm of an experiment. Config is an opaque payload
// consumed by callers (e.g. a prompt template); the experiment engine
// never interprets it.
type Variant struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config"`
	Metrics     Metrics        `json:"metrics"`
}

// VariantSpec describes a variant at experiment-creation time.
type VariantSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config"`
}

// RecordImpression counts one exposure of the variant.
func (v *Variant) RecordImpression() {
	v.Metrics.Impressions++
	v.updateConversionRate()
}

// RecordSuccess counts one successful outcome. A success without a
// matching prior impression is dropped so successes can never exceed
// impressions; the caller decides whether to surface that.
func (v *Variant) RecordSuccess() bool {
	if v.Metrics.Successes >= v.Metrics.Impressions {
		return false
	}
	v.Metrics.Successes++
	v.updateConversionRate()
	return true
}

// RecordFeedback accumulates a feedback score. Scores are expected in
// [0, 5] by callers but are not validated here.
func (v *Variant) RecordFeedback(score float64) {
	v.Metrics.TotalFeedbackScore += score
	v.Metrics.FeedbackCount++
	v.Metrics.AvgFeedbackScore = v.Metrics.TotalFeedbackScore / float64(v.Metrics.FeedbackCount)
}

func (v *Variant) updateConversionRate() {
	if v.Metrics.Impressions > 0 {
		v.Metrics.ConversionRate = float64(v.Metrics.Successes) / float64(v.Metrics.Impressions)
	}
}

// clone returns a deep copy of the variant. Config values are assumed
// immutable once created, so the map is copied shallowly per key.
func (v *Variant) clone() *Variant {
	c := *v
	if v.Config != nil {
		c.Config = make(map[string]any, len(v.Config))
		for k, val := range v.Config {
			c.Config[k] = val
		}
	}
	return &c
}
