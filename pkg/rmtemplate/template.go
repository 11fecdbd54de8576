// Package rmtemplate parses canonical configuration lines into nested
// resource facts.
//
// A Template is an ordered table of parsers. Each line is offered to the
// parsers in order; the first whose expression matches contributes its
// result, which is deep-merged into the facts built so far. Lines that no
// parser recognises are ignored.
package rmtemplate

import (
	"regexp"
	"strconv"
)

// Match holds the named captures of one parser match.
type Match struct {
	values map[string]string
}

func newMatch(re *regexp.Regexp, line string) (Match, bool) {
	idx := re.FindStringSubmatchIndex(line)
	if idx == nil {
		return Match{}, false
	}
	m := Match{values: make(map[string]string)}
	for i, name := range re.SubexpNames() {
		if name == "" || idx[2*i] < 0 {
			continue
		}
		m.values[name] = line[idx[2*i]:idx[2*i+1]]
	}
	return m, true
}

// Get returns the capture called name, or "" if the group did not take part
// in the match.
func (m Match) Get(name string) string {
	return m.values[name]
}

// Has reports whether the group called name took part in the match.
func (m Match) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// Int returns the capture called name as an integer when it parses as one
// and as the raw string otherwise.
func (m Match) Int(name string) any {
	s := m.values[name]
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

// Parser recognises one kind of configuration line.
type Parser struct {
	Name   string
	Getval *regexp.Regexp
	Result func(m Match) map[string]any
}

// Template is an ordered parser table for one resource.
type Template struct {
	name    string
	parsers []Parser
}

// New returns a template evaluating parsers in the given order.
func New(name string, parsers ...Parser) *Template {
	return &Template{name: name, parsers: parsers}
}

// Name returns the resource name of the template.
func (t *Template) Name() string {
	return t.name
}

// Parsers returns the parser table.
func (t *Template) Parsers() []Parser {
	return t.parsers
}

// ParseLine returns the name and result of the first parser matching line.
func (t *Template) ParseLine(line string) (string, map[string]any, bool) {
	for _, p := range t.parsers {
		m, ok := newMatch(p.Getval, line)
		if !ok {
			continue
		}
		return p.Name, p.Result(m), true
	}
	return "", nil, false
}

// Parse folds every recognised line into one facts tree.
func (t *Template) Parse(lines []string) map[string]any {
	facts := make(map[string]any)
	for _, line := range lines {
		if _, res, ok := t.ParseLine(line); ok {
			Merge(facts, res)
		}
	}
	return facts
}

// Merge deep-merges src into dst and returns dst. Nested maps are merged key
// by key; any other value in src replaces the one in dst.
func Merge(dst, src map[string]any) map[string]any {
	for k, v := range src {
		sv, srcIsMap := v.(map[string]any)
		dv, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			Merge(dv, sv)
			continue
		}
		dst[k] = v
	}
	return dst
}

// Nest wraps leaf in one map level per key, outermost first.
func Nest(leaf map[string]any, keys ...string) map[string]any {
	for i := len(keys) - 1; i >= 0; i-- {
		leaf = map[string]any{keys[i]: leaf}
	}
	return leaf
}

// Kind is the value type of an attribute.
type Kind int

const (
	KindString Kind = iota
	KindInt
	// KindFlag attributes carry no value: present means true.
	KindFlag
)

// Attr describes a scalar attribute written either as "<cli> <value>" (or
// bare "<cli>" for flags) or negated as "no <cli>".
type Attr struct {
	CLI  string
	Key  string
	Kind Kind
	// Negated is the device default reported for "no <cli>". A nil Negated
	// leaves the key out of the facts.
	Negated any
}

func (a Attr) clause() string {
	q := regexp.QuoteMeta(a.CLI)
	if a.Kind == KindFlag {
		return `(?:(?P<negate>no)\s` + q + `|` + q + `)`
	}
	return `(?:(?P<negate>no)\s` + q + `|` + q + `\s(?P<value>\S+))`
}

func (a Attr) value(m Match) (any, bool) {
	if m.Has("negate") {
		return a.Negated, a.Negated != nil
	}
	switch a.Kind {
	case KindFlag:
		return true, true
	case KindInt:
		return m.Int("value"), true
	default:
		return m.Get("value"), true
	}
}

// AttrParser builds a parser for a line of the form "<scope> <clause of a>".
// scope is a regular expression for the qualifying prefix of the line and
// wrap places the attribute leaf into the facts tree.
func AttrParser(scope string, a Attr, wrap func(m Match, leaf map[string]any) map[string]any) Parser {
	return Parser{
		Name:   a.Key,
		Getval: regexp.MustCompile(`^` + scope + `\s` + a.clause() + `$`),
		Result: func(m Match) map[string]any {
			leaf := make(map[string]any)
			if v, ok := a.value(m); ok {
				leaf[a.Key] = v
			}
			return wrap(m, leaf)
		},
	}
}
