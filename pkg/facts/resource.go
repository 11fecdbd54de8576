// Package facts turns captured ISAM configuration into structured resource
// facts: raw device output is fetched, flattened into canonical lines,
// parsed by the resource template and shaped into lists ordered by index.
package facts

import (
	"errors"
	"fmt"
	"sort"

	"github.com/therealmichaelberna/nokia.isam/pkg/cmdtree"
	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
	"github.com/therealmichaelberna/nokia.isam/pkg/rmtemplate"
)

// ErrUnknownResource is returned for resource names not in the registry.
var ErrUnknownResource = errors.New("unknown resource")

// Resource describes how one configuration scope is captured and parsed.
type Resource struct {
	Name     string
	Command  string // device command producing the capture
	Strategy flatten.Strategy
	Template func() *rmtemplate.Template
	Shape    func(parsed map[string]any) any
}

var registry = []Resource{
	{
		Name:     "bridges",
		Command:  "info configure bridge flat",
		Strategy: flatten.StrategyLine,
		Template: rmtemplate.Bridges,
		Shape:    shapeBridges,
	},
	{
		Name:     "ethernet_line",
		Command:  "info configure ethernet line",
		Strategy: flatten.StrategyTree,
		Template: rmtemplate.EthernetLine,
		Shape:    shapeEthernetLine,
	},
}

// Resources returns the registered resources in registration order.
func Resources() []Resource {
	return append([]Resource(nil), registry...)
}

// Names returns the registered resource names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, r := range registry {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the resource called name. The error for an unknown name
// wraps ErrUnknownResource and suggests the closest registered name.
func Lookup(name string) (Resource, error) {
	for _, r := range registry {
		if r.Name == name {
			return r, nil
		}
	}
	if s := cmdtree.Nearest(name, Names()); s != "" {
		return Resource{}, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownResource, name, s)
	}
	return Resource{}, fmt.Errorf("%w %q", ErrUnknownResource, name)
}
