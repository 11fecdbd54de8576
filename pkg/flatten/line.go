package flatten

import (
	"fmt"
	"regexp"
	"strings"
)

// Policy controls how port context is carried between lines.
type Policy int

const (
	// PolicyReset forgets the port/VLAN context after every line. Each
	// emitted line is fully qualified and no header lines are produced.
	PolicyReset Policy = iota

	// PolicyPersist keeps the port/VLAN context across a contiguous run of
	// lines and emits a header line ("configure bridge port <id>" and
	// "configure bridge port <id> vlan-id <n>") only when that context
	// changes. Attribute lines are still fully qualified.
	PolicyPersist
)

func (p Policy) String() string {
	switch p {
	case PolicyReset:
		return "reset"
	case PolicyPersist:
		return "persist"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts "reset" or "persist" to a Policy. The empty string
// selects PolicyReset.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reset":
		return PolicyReset, nil
	case "persist":
		return PolicyPersist, nil
	default:
		return PolicyReset, fmt.Errorf("unknown context policy %q (want reset or persist)", s)
	}
}

// Emit is the output strategy attached to a line pattern.
type Emit int

const (
	// EmitPerPair chunks the rest capture into attribute/value pairs and
	// emits one qualified line per pair.
	EmitPerPair Emit = iota
	// EmitPassthrough emits the rest capture unchanged (global bridge
	// statements that carry no port).
	EmitPassthrough
	// EmitPvid emits a single qualified pvid statement.
	EmitPvid
)

func (e Emit) String() string {
	switch e {
	case EmitPerPair:
		return "per-pair"
	case EmitPassthrough:
		return "passthrough"
	case EmitPvid:
		return "pvid"
	default:
		return fmt.Sprintf("emit(%d)", int(e))
	}
}

// pattern is one entry of the ordered bridge pattern table. Capture group
// indexes are resolved once when the table is built; -1 means the pattern
// has no such group.
type pattern struct {
	name    string
	re      *regexp.Regexp
	emit    Emit
	port    int
	vlan    int
	tpidSel int
	tpidVal int
	rest    int
}

func newPattern(name string, emit Emit, expr string) *pattern {
	re := regexp.MustCompile(expr)
	return &pattern{
		name:    name,
		re:      re,
		emit:    emit,
		port:    re.SubexpIndex("port"),
		vlan:    re.SubexpIndex("vlan"),
		tpidSel: re.SubexpIndex("tpidsel"),
		tpidVal: re.SubexpIndex("tpid"),
		rest:    re.SubexpIndex("rest"),
	}
}

// bridgePatterns is evaluated in order and the first match wins. The pvid
// pattern must precede the generic port pattern, which would otherwise
// accept the same lines.
var bridgePatterns = []*pattern{
	newPattern("ageing-time", EmitPassthrough,
		`^configure\s+bridge\s+(?P<rest>no\s+ageing-time|ageing-time(?:\s+\S+)?)\s*$`),
	newPattern("pvid", EmitPvid,
		`^configure\s+bridge\s+port\s+(?P<port>\S+)\s+(?P<rest>no\s+pvid|pvid\s+\S+)\s*$`),
	newPattern("port", EmitPerPair,
		`^configure\s+bridge\s+port\s+(?P<port>\S+)\s+(?:vlan-id\s+(?P<vlan>\d+)\s+|vlan-tpid(?P<tpidsel>\d+)\s+(?P<tpid>\d+))?(?P<rest>.*)$`),
}

// lineMatch is the typed result of matching one line against the table.
type lineMatch struct {
	pattern string
	emit    Emit
	port    string
	vlan    string
	tpidSel string
	tpidVal string
	rest    string
}

func (p *pattern) match(line string) (lineMatch, bool) {
	idx := p.re.FindStringSubmatchIndex(line)
	if idx == nil {
		return lineMatch{}, false
	}
	group := func(i int) string {
		if i < 0 || idx[2*i] < 0 {
			return ""
		}
		return line[idx[2*i]:idx[2*i+1]]
	}
	return lineMatch{
		pattern: p.name,
		emit:    p.emit,
		port:    group(p.port),
		vlan:    group(p.vlan),
		tpidSel: group(p.tpidSel),
		tpidVal: group(p.tpidVal),
		rest:    group(p.rest),
	}, true
}

// matchContext is the state carried from a matched line into its output.
type matchContext struct {
	port    string
	vlan    string
	tpidSel string
	tpidVal string
}

func (c matchContext) portPrefix() string {
	return "configure bridge port " + c.port
}

// prefix renders the qualifying part of an output line. A VLAN context takes
// precedence over a TPID slot.
func (c matchContext) prefix() string {
	switch {
	case c.vlan != "":
		return c.portPrefix() + " vlan-id " + c.vlan
	case c.tpidSel != "":
		return c.portPrefix() + " vlan_tpid" + c.tpidSel + " " + c.tpidVal
	default:
		return c.portPrefix()
	}
}

// LineFlattener expands "info configure bridge flat" output into one line
// per attribute.
type LineFlattener struct {
	policy   Policy
	patterns []*pattern
}

// NewLineFlattener returns a flattener using the bridge pattern table.
func NewLineFlattener(policy Policy) *LineFlattener {
	return &LineFlattener{policy: policy, patterns: bridgePatterns}
}

// Policy returns the context policy of f.
func (f *LineFlattener) Policy() Policy {
	return f.policy
}

// FlattenLines flattens raw using PolicyReset.
func FlattenLines(raw string) []string {
	lines, _ := NewLineFlattener(PolicyReset).Flatten(raw)
	return lines
}

func (f *LineFlattener) match(line string) (lineMatch, bool) {
	for _, p := range f.patterns {
		if m, ok := p.match(line); ok {
			return m, true
		}
	}
	return lineMatch{}, false
}

// Flatten processes raw line by line. The returned slice is never nil.
func (f *LineFlattener) Flatten(raw string) ([]string, Stats) {
	var (
		out = []string{}
		st  Stats
		ctx matchContext
		// run is the context of the current contiguous run of port lines,
		// tracked only under PolicyPersist.
		run matchContext
	)

	for _, line := range splitLines(raw) {
		st.Read++
		if strings.TrimSpace(line) == "" {
			continue
		}

		m, ok := f.match(line)
		if !ok {
			st.Skipped++
			run = matchContext{}
			continue
		}

		before := len(out)
		switch m.emit {
		case EmitPassthrough:
			out = append(out, m.rest)
			run = matchContext{}

		case EmitPvid:
			ctx = matchContext{port: m.port}
			out = f.headers(out, &run, ctx)
			out = append(out, ctx.prefix()+" "+strings.Join(strings.Fields(m.rest), " "))

		case EmitPerPair:
			ctx = matchContext{
				port:    m.port,
				vlan:    m.vlan,
				tpidSel: m.tpidSel,
				tpidVal: m.tpidVal,
			}
			pairs, dropped := pairTokens(m.rest)
			st.Dropped += dropped
			out = f.headers(out, &run, ctx)
			prefix := ctx.prefix()
			for _, p := range pairs {
				out = append(out, prefix+" "+p.String())
			}
		}
		if len(out) == before {
			st.Skipped++
		}

		// Context never outlives the line that produced it.
		ctx = matchContext{}
	}

	st.Emitted = len(out)
	return out, st
}

// headers emits the port and VLAN header lines for ctx when the persist
// policy is active and ctx starts a new run.
func (f *LineFlattener) headers(out []string, run *matchContext, ctx matchContext) []string {
	if f.policy != PolicyPersist {
		return out
	}
	if ctx.port != run.port {
		out = append(out, ctx.portPrefix())
		*run = matchContext{port: ctx.port}
	}
	if ctx.vlan != "" && ctx.vlan != run.vlan {
		out = append(out, ctx.portPrefix()+" vlan-id "+ctx.vlan)
	}
	run.vlan = ctx.vlan
	return out
}
