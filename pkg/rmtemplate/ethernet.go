package rmtemplate

import "regexp"

const (
	ethLineScope = `configure\sethernet\sline\s(?P<if_index>\S+)`
	ethTcaScope  = ethLineScope + `\stca-line-threshold`
	ethMauScope  = ethLineScope + `\smau\s(?P<mau>\d+)`
)

// EthernetLineAttrs are the per-line attributes of "configure ethernet line".
var EthernetLineAttrs = []Attr{
	{CLI: "port-type", Key: "port_type", Kind: KindString},
	{CLI: "admin-up", Key: "admin_up", Kind: KindFlag, Negated: false},
}

// EthernetTcaAttrs are the threshold crossing alert settings of a line.
var EthernetTcaAttrs = []Attr{
	{CLI: "enable", Key: "enable", Kind: KindFlag, Negated: false},
	{CLI: "los", Key: "los", Kind: KindInt, Negated: 0},
	{CLI: "fcs", Key: "fcs", Kind: KindInt, Negated: 0},
	{CLI: "rx-octets", Key: "rx_octets", Kind: KindInt, Negated: 0},
	{CLI: "tx-octets", Key: "tx_octets", Kind: KindInt, Negated: 0},
	{CLI: "los-day", Key: "los_day", Kind: KindInt, Negated: 0},
	{CLI: "fcs-day", Key: "fcs_day", Kind: KindInt, Negated: 0},
	{CLI: "rx-octets-day", Key: "rx_octets_day", Kind: KindInt, Negated: 0},
	{CLI: "tx-octets-day", Key: "tx_octets_day", Kind: KindInt, Negated: 0},
}

// EthernetMauAttrs are the medium attachment unit settings of a line.
var EthernetMauAttrs = []Attr{
	{CLI: "type", Key: "type", Kind: KindString},
	{CLI: "power", Key: "power", Kind: KindString},
	{CLI: "speed-auto-sense", Key: "speed_auto_sense", Kind: KindFlag, Negated: false},
	{CLI: "autonegotiate", Key: "autonegotiate", Kind: KindFlag, Negated: false},
	{CLI: "cap100base-tfd", Key: "cap100base_tfd", Kind: KindFlag, Negated: false},
	{CLI: "cap1000base-xfd", Key: "cap1000base_xfd", Kind: KindFlag, Negated: false},
	{CLI: "cap1000base-tfd", Key: "cap1000base_tfd", Kind: KindFlag, Negated: false},
}

func ethLine(m Match, leaf map[string]any) map[string]any {
	leaf["if_index"] = m.Get("if_index")
	return Nest(leaf, "lines", m.Get("if_index"))
}

func ethTca(m Match, leaf map[string]any) map[string]any {
	return ethLine(m, map[string]any{"tca_line_threshold": leaf})
}

func ethMau(m Match, leaf map[string]any) map[string]any {
	leaf["index"] = m.Int("mau")
	return ethLine(m, Nest(leaf, "mau", m.Get("mau")))
}

// EthernetLine returns the template for tree-flattened "configure ethernet
// line" statements. Facts are keyed by interface index and MAU index.
func EthernetLine() *Template {
	parsers := []Parser{
		{
			Name:   "line",
			Getval: regexp.MustCompile(`^` + ethLineScope + `$`),
			Result: func(m Match) map[string]any {
				return ethLine(m, map[string]any{})
			},
		},
		{
			Name:   "mau",
			Getval: regexp.MustCompile(`^` + ethMauScope + `$`),
			Result: func(m Match) map[string]any {
				return ethMau(m, map[string]any{})
			},
		},
	}
	for _, a := range EthernetTcaAttrs {
		parsers = append(parsers, AttrParser(ethTcaScope, a, ethTca))
	}
	for _, a := range EthernetMauAttrs {
		parsers = append(parsers, AttrParser(ethMauScope, a, ethMau))
	}
	for _, a := range EthernetLineAttrs {
		parsers = append(parsers, AttrParser(ethLineScope, a, ethLine))
	}
	return New("ethernet_line", parsers...)
}
