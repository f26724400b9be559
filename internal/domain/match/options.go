package match

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithTolerance sets the default distance threshold used when a caller
// passes a non-positive tolerance.
func WithTolerance(tolerance float64) Option {
	return func(m *Matcher) {
		if tolerance > 0 {
			m.tolerance = tolerance
		}
	}
}
