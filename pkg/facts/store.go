package facts

import "github.com/therealmichaelberna/nokia.isam/pkg/configstore"

// NewStoreGatherer builds a snapshot store that flattens with the returned
// Gatherer, which in turn fetches captures from the store. Policy changes
// on the Gatherer apply to later store commits.
func NewStoreGatherer(opts configstore.Options, gopts ...Option) (*configstore.Store, *Gatherer) {
	g := NewGatherer(nil, gopts...)
	opts.Flatten = g.Flatten
	store := configstore.New(opts)
	g.fetcher = store
	return store, g
}
