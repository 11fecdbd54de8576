// Package flatten turns ISAM configuration dumps into canonical,
// single-attribute configuration lines.
//
// Two strategies exist for the two shapes of device output:
//
//   - the line strategy handles "flat" dumps (info configure bridge flat)
//     where one line carries many attribute/value tokens;
//   - the tree strategy handles indented dumps closed by "exit" markers
//     (info configure ethernet line).
//
// Both are pure functions of their input. Lines that are not understood are
// skipped rather than reported: device output varies between firmware
// releases and partial extraction is preferred over failure.
package flatten

import "fmt"

// Strategy selects the flattening algorithm for a configuration scope.
type Strategy string

const (
	StrategyLine Strategy = "line"
	StrategyTree Strategy = "tree"
)

// ParseStrategy converts a user supplied name to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyLine, StrategyTree:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown flatten strategy %q (want line or tree)", s)
	}
}

// Stats describes what a flattening pass did with its input.
type Stats struct {
	Read    int `json:"read" yaml:"read"`       // input lines, including blanks
	Skipped int `json:"skipped" yaml:"skipped"` // non-blank lines that produced nothing
	Emitted int `json:"emitted" yaml:"emitted"` // output lines
	Dropped int `json:"dropped" yaml:"dropped"` // odd trailing tokens discarded
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Read += o.Read
	s.Skipped += o.Skipped
	s.Emitted += o.Emitted
	s.Dropped += o.Dropped
}

// Flatten runs the selected strategy over raw. The policy only affects the
// line strategy.
func Flatten(strategy Strategy, raw string, policy Policy) ([]string, Stats) {
	switch strategy {
	case StrategyTree:
		t := ParseTree(raw)
		return t.Flatten(), t.Stats()
	default:
		return NewLineFlattener(policy).Flatten(raw)
	}
}
