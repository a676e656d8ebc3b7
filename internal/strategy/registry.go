package strategy

import "github.com/rotisserie/eris"

// Registry holds the ordered list of known strategies.
//
// Registration order is the tie-break rule: when two strategies could both
// claim a URL, the first registered wins. Duplicate platform names are
// permitted; the earlier registration stays authoritative. The registry is
// built once at startup and read-only afterwards, so resolution needs no
// locking.
type Registry struct {
	strategies []Strategy
}

// NewRegistry creates a registry with the given strategies in order.
func NewRegistry(strategies ...Strategy) *Registry {
	return &Registry{strategies: strategies}
}

// Register appends a strategy. No de-duplication is performed.
func (r *Registry) Register(s Strategy) {
	r.strategies = append(r.strategies, s)
}

// Resolve returns the first registered strategy whose CanHandle claims the
// URL, or ErrNoStrategy.
func (r *Registry) Resolve(rawURL string) (Strategy, error) {
	for _, s := range r.strategies {
		if s.CanHandle(rawURL) {
			return s, nil
		}
	}
	return nil, eris.Wrapf(ErrNoStrategy, "resolve %s", rawURL)
}

// Platforms returns the platform names in registration order.
func (r *Registry) Platforms() []string {
	names := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		names = append(names, s.Platform())
	}
	return names
}
