package gallery

// Option applies a configuration option to the Gallery.
type Option func(*Gallery)

// WithDimension sets the required embedding dimension D.
func WithDimension(dim int) Option {
	return func(g *Gallery) {
		if dim > 0 {
			g.dim = dim
		}
	}
}
