package watchlist

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/halcyonpay/amlscreen/internal/model"
)

// Registry maps source names to their implementations.
type Registry struct {
	sources map[string]Source
	order   []string // insertion order for deterministic iteration
}

// NewRegistry creates a registry populated with all eight sources. URL
// overrides are keyed by upper-cased source name ("OFAC_SDN=https://…").
func NewRegistry(urlOverrides map[string]string) *Registry {
	r := &Registry{
		sources: make(map[string]Source),
	}

	r.Register(&OFAC{list: model.SourceOFACSDN, url: ofacSDNURL, snapshot: "SDN.XML"})
	r.Register(&OFAC{list: model.SourceOFACCons, url: ofacConsURL, snapshot: "CONSOLIDATED.XML"})
	r.Register(&UK{})
	r.Register(&UN{})
	r.Register(&EU{})
	r.Register(&AU{})
	r.Register(&CA{})
	r.Register(&SECO{})

	for name, url := range urlOverrides {
		key := strings.ToLower(name)
		if src, ok := r.sources[key]; ok {
			r.sources[key] = &overriddenSource{Source: src, url: url}
		}
	}

	return r
}

// Register adds a source to the registry.
func (r *Registry) Register(s Source) {
	name := s.Name()
	r.sources[name] = s
	r.order = append(r.order, name)
}

// Get returns a source by name (case-insensitive).
func (r *Registry) Get(name string) (Source, error) {
	s, ok := r.sources[strings.ToLower(name)]
	if !ok {
		return nil, eris.Errorf("watchlist: unknown source %q", name)
	}
	return s, nil
}

// Select returns the named sources, or every source when names is empty,
// in registration order.
func (r *Registry) Select(names []string) ([]Source, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	var result []Source
	for _, name := range names {
		s, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}

// All returns all sources in registration order.
func (r *Registry) All() []Source {
	result := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.sources[name])
	}
	return result
}

// AllNames returns all registered source names in registration order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// overriddenSource swaps the feed URL while delegating everything else.
type overriddenSource struct {
	Source
	url string
}

func (o *overriddenSource) FeedURL() string { return o.url }
