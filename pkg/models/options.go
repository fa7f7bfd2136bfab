package models

// DefaultZScoreThreshold is the |z| above which a duration is flagged.
const DefaultZScoreThreshold = 3.0

// Options tunes a detection pass.
type Options struct {
	// ZScoreThreshold flags records whose |z| exceeds it. Zero or negative
	// falls back to DefaultZScoreThreshold.
	ZScoreThreshold float64
	// UseIsolationForest consults the multivariate outlier model for
	// records the z-score stage passed over.
	UseIsolationForest bool
	// Fields maps record fields to input JSON keys.
	Fields FieldMapping
}

// DefaultOptions returns the standard detection configuration.
func DefaultOptions() Options {
	return Options{
		ZScoreThreshold:    DefaultZScoreThreshold,
		UseIsolationForest: true,
		Fields:             DefaultFieldMapping(),
	}
}

// Normalized fills invalid or missing option values with defaults.
// UseIsolationForest is left as given; false is a valid choice.
func (o Options) Normalized() Options {
	if o.ZScoreThreshold <= 0 {
		o.ZScoreThreshold = DefaultZScoreThreshold
	}
	o.Fields = o.Fields.Normalized()
	return o
}
