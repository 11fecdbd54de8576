package facts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
	"github.com/therealmichaelberna/nokia.isam/pkg/metrics"
)

// Result is the outcome of gathering one resource.
type Result struct {
	Resource string        `json:"resource" yaml:"resource"`
	Command  string        `json:"command" yaml:"command"`
	Lines    []string      `json:"lines" yaml:"lines"`
	Stats    flatten.Stats `json:"stats" yaml:"stats"`
	Facts    any           `json:"facts" yaml:"facts"`
}

// Gatherer fetches and parses resources.
type Gatherer struct {
	fetcher Fetcher
	mu      sync.RWMutex
	policy  flatten.Policy
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Gatherer.
type Option func(*Gatherer)

// WithPolicy sets the context policy of the line strategy.
func WithPolicy(p flatten.Policy) Option {
	return func(g *Gatherer) { g.policy = p }
}

// WithMetrics records flatten and gather metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gatherer) { g.metrics = m }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Gatherer) { g.logger = l }
}

// NewGatherer returns a Gatherer reading captures from f. A nil f is
// allowed when only Parse and Flatten are used.
func NewGatherer(f Fetcher, opts ...Option) *Gatherer {
	g := &Gatherer{fetcher: f, policy: flatten.PolicyReset}
	for _, o := range opts {
		o(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Policy returns the line strategy context policy.
func (g *Gatherer) Policy() flatten.Policy {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.policy
}

// SetPolicy changes the line strategy context policy for later calls.
func (g *Gatherer) SetPolicy(p flatten.Policy) {
	g.mu.Lock()
	g.policy = p
	g.mu.Unlock()
}

// Flatten flattens raw with the strategy registered for scope. It has the
// signature of configstore.FlattenFunc.
func (g *Gatherer) Flatten(scope, raw string) ([]string, flatten.Stats, error) {
	r, err := Lookup(scope)
	if err != nil {
		return nil, flatten.Stats{}, err
	}
	lines, st := g.flatten(r, raw)
	return lines, st, nil
}

func (g *Gatherer) flatten(r Resource, raw string) ([]string, flatten.Stats) {
	lines, st := flatten.Flatten(r.Strategy, raw, g.Policy())
	g.metrics.ObserveFlatten(r.Strategy, st)
	if st.Dropped > 0 {
		g.logger.Debug("odd trailing tokens dropped",
			"resource", r.Name, "dropped", st.Dropped)
	}
	return lines, st
}

// Parse flattens and parses raw as the named resource without fetching.
func (g *Gatherer) Parse(name, raw string) (*Result, error) {
	r, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return g.parse(r, raw), nil
}

func (g *Gatherer) parse(r Resource, raw string) *Result {
	lines, st := g.flatten(r, raw)
	parsed := r.Template().Parse(lines)
	return &Result{
		Resource: r.Name,
		Command:  r.Command,
		Lines:    lines,
		Stats:    st,
		Facts:    r.Shape(parsed),
	}
}

// GatherOne fetches and parses a single resource.
func (g *Gatherer) GatherOne(ctx context.Context, name string) (*Result, error) {
	r, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return g.gather(ctx, r)
}

func (g *Gatherer) gather(ctx context.Context, r Resource) (res *Result, err error) {
	start := time.Now()
	defer func() {
		g.metrics.ObserveGather(r.Name, time.Since(start), err)
	}()

	if g.fetcher == nil {
		return nil, fmt.Errorf("gather %s: no fetcher configured", r.Name)
	}
	raw, err := g.fetcher.Fetch(ctx, r.Name)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", r.Name, err)
	}
	res = g.parse(r, raw)
	g.logger.Debug("gathered resource",
		"resource", r.Name, "lines", len(res.Lines), "skipped", res.Stats.Skipped)
	return res, nil
}

// Gather fetches and parses the named resources concurrently; no names means
// every registered resource. The first failure cancels the rest.
func (g *Gatherer) Gather(ctx context.Context, names ...string) (map[string]*Result, error) {
	if len(names) == 0 {
		names = Names()
	}

	var resources []Resource
	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		r, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}

	var mu sync.Mutex
	results := make(map[string]*Result, len(resources))
	eg, ctx := errgroup.WithContext(ctx)
	for _, r := range resources {
		eg.Go(func() error {
			res, err := g.gather(ctx, r)
			if err != nil {
				g.logger.Error("failed to gather resource", "resource", r.Name, "err", err)
				return err
			}
			mu.Lock()
			results[r.Name] = res
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
