package report

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithTopN bounds the TopIdentities ranking in Statistics.
func WithTopN(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.topN = n
		}
	}
}
