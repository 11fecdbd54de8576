package rmtemplate

import "regexp"

const (
	bridgePortScope = `configure\sbridge\sport\s(?P<id>\S+)`
	bridgeVlanScope = bridgePortScope + `\svlan-id\s(?P<vlan_id>\d+)`
	bridgeTpidScope = bridgePortScope + `\svlan_tpid(?P<selector>\d+)\s(?P<index>\d+)`
)

// BridgePortAttrs are the per-port attributes of "configure bridge port".
var BridgePortAttrs = []Attr{
	{CLI: "pvid", Key: "pvid", Kind: KindInt},
	{CLI: "default-priority", Key: "default_priority", Kind: KindInt, Negated: 0},
	{CLI: "mac-learn-off", Key: "mac_learn_off", Kind: KindFlag, Negated: false},
	{CLI: "max-unicast-mac", Key: "max_unicast_mac", Kind: KindInt},
	{CLI: "max-committed-mac", Key: "max_committed_mac", Kind: KindInt},
	{CLI: "qos-profile", Key: "qos_profile", Kind: KindString},
	{CLI: "prio-regen-prof", Key: "prio_regen_prof", Kind: KindString},
	{CLI: "prio-regen-name", Key: "prio_regen_name", Kind: KindString},
	{CLI: "mirror-mode", Key: "mirror_mode", Kind: KindString},
	{CLI: "mirror-vlan", Key: "mirror_vlan", Kind: KindInt},
	{CLI: "outervlancapture", Key: "outervlancapture", Kind: KindString},
	{CLI: "pvid-tagging-flag", Key: "pvid_tagging_flag", Kind: KindString},
	{CLI: "ds-pbit-mode", Key: "ds_pbit_mode", Kind: KindString},
	{CLI: "default-tpid", Key: "default_tpid", Kind: KindString},
	{CLI: "direction", Key: "direction", Kind: KindString},
}

// BridgeVlanAttrs are the attributes of "configure bridge port <id> vlan-id <n>".
var BridgeVlanAttrs = []Attr{
	{CLI: "tag", Key: "tag", Kind: KindString},
	{CLI: "l2fwder-vlan", Key: "l2fwder_vlan", Kind: KindInt},
	{CLI: "vlan-scope", Key: "vlan_scope", Kind: KindString},
	{CLI: "qos", Key: "qos", Kind: KindString},
	{CLI: "qos-profile", Key: "qos_profile", Kind: KindString},
	{CLI: "prior-best-effort", Key: "prior_best_effort", Kind: KindFlag},
	{CLI: "prior-background", Key: "prior_background", Kind: KindFlag},
	{CLI: "prior-spare", Key: "prior_spare", Kind: KindFlag},
	{CLI: "prior-exc-effort", Key: "prior_exc_effort", Kind: KindFlag},
	{CLI: "prior-ctrl-load", Key: "prior_ctrl_load", Kind: KindFlag},
	{CLI: "prior-less-100ms", Key: "prior_less_100ms", Kind: KindFlag},
	{CLI: "prior-less-10ms", Key: "prior_less_10ms", Kind: KindFlag},
	{CLI: "prior-nw-ctrl", Key: "prior_nw_ctrl", Kind: KindFlag},
	{CLI: "in-qos-prof-name", Key: "in_qos_prof_name", Kind: KindString},
	{CLI: "max-up-qos-policy", Key: "max_up_qos_policy", Kind: KindInt, Negated: 0},
	{CLI: "max-ip-antispoof", Key: "max_ip_antispoof", Kind: KindInt, Negated: 65535},
	{CLI: "max-unicast-mac", Key: "max_unicast_mac", Kind: KindInt, Negated: 65535},
	{CLI: "max-ipv6-antispf", Key: "max_ipv6_antispf", Kind: KindInt, Negated: 65535},
	{CLI: "mac-learn-ctrl", Key: "mac_learn_ctrl", Kind: KindInt, Negated: 3},
	{CLI: "min-cvlan-id", Key: "min_cvlan_id", Kind: KindInt, Negated: 1},
	{CLI: "max-cvlan-id", Key: "max_cvlan_id", Kind: KindInt, Negated: 4095},
	{CLI: "ds-dedicated-q", Key: "ds_dedicated_q", Kind: KindFlag, Negated: false},
	{CLI: "inner-pbit-remark", Key: "inner_pbit_remark", Kind: KindString},
	{CLI: "groupid", Key: "groupid", Kind: KindString},
	{CLI: "usacceptframetype", Key: "usacceptframetype", Kind: KindString},
	{CLI: "oltregenprofile", Key: "oltregenprofile", Kind: KindString},
}

func bridgePort(m Match, leaf map[string]any) map[string]any {
	leaf["id"] = m.Get("id")
	return Nest(leaf, "ports", m.Get("id"))
}

func bridgeVlan(m Match, leaf map[string]any) map[string]any {
	leaf["vlan_id"] = m.Int("vlan_id")
	vlan := Nest(leaf, "vlans", m.Get("vlan_id"))
	vlan["id"] = m.Get("id")
	return Nest(vlan, "ports", m.Get("id"))
}

func bridgeTpid(m Match, leaf map[string]any) map[string]any {
	leaf["selector"] = m.Int("selector")
	leaf["index"] = m.Int("index")
	tpid := Nest(leaf, "tpids", m.Get("selector"))
	tpid["id"] = m.Get("id")
	return Nest(tpid, "ports", m.Get("id"))
}

// Bridges returns the template for flattened "configure bridge" lines.
//
// Facts are keyed by port id, then by VLAN id or TPID selector:
//
//	ageing_time: 300
//	ports:
//	  1/1/5/1/1/1/1:
//	    id: 1/1/5/1/1/1/1
//	    pvid: 99
//	    vlans:
//	      "10": {vlan_id: 10, tag: single-tagged}
func Bridges() *Template {
	parsers := []Parser{
		{
			Name:   "ageing_time",
			Getval: regexp.MustCompile(`^(?:configure\sbridge\s)?(?:(?P<negate>no)\sageing-time|ageing-time\s(?P<value>\S+))$`),
			Result: func(m Match) map[string]any {
				if m.Has("negate") {
					return map[string]any{"ageing_time": 300}
				}
				return map[string]any{"ageing_time": m.Int("value")}
			},
		},
		{
			Name:   "port",
			Getval: regexp.MustCompile(`^` + bridgePortScope + `$`),
			Result: func(m Match) map[string]any {
				return bridgePort(m, map[string]any{})
			},
		},
		{
			Name:   "vlan",
			Getval: regexp.MustCompile(`^` + bridgeVlanScope + `$`),
			Result: func(m Match) map[string]any {
				return bridgeVlan(m, map[string]any{})
			},
		},
		AttrParser(bridgeTpidScope, Attr{CLI: "tpid", Key: "tpid", Kind: KindInt, Negated: 0}, bridgeTpid),
	}
	for _, a := range BridgeVlanAttrs {
		parsers = append(parsers, AttrParser(bridgeVlanScope, a, bridgeVlan))
	}
	for _, a := range BridgePortAttrs {
		parsers = append(parsers, AttrParser(bridgePortScope, a, bridgePort))
	}
	return New("bridges", parsers...)
}
