package facts

import (
	"sort"
	"strconv"
	"strings"
)

// naturalLess orders interface indexes such as "1/1/8/2" before
// "1/1/8/10" by comparing "/"-separated segments numerically when both
// segments are numbers.
func naturalLess(a, b string) bool {
	as, bs := strings.Split(a, "/"), strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			return an < bn
		}
		return as[i] < bs[i]
	}
	return len(as) < len(bs)
}

// sortedValues returns the values of m ordered by natural key order. The
// result is never nil.
func sortedValues(m map[string]any) []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return naturalLess(keys[i], keys[j]) })

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// listify replaces the keyed sub-maps named by keys in entry with ordered
// lists.
func listify(entry any, keys ...string) {
	m, ok := entry.(map[string]any)
	if !ok {
		return
	}
	for _, k := range keys {
		if sub, ok := m[k].(map[string]any); ok {
			m[k] = sortedValues(sub)
		}
	}
}

// shapeBridges produces {ageing_time, ports: [...]} with each port carrying
// ordered vlans and tpids lists.
func shapeBridges(parsed map[string]any) any {
	out := make(map[string]any)
	if v, ok := parsed["ageing_time"]; ok {
		out["ageing_time"] = v
	}
	ports, _ := parsed["ports"].(map[string]any)
	list := sortedValues(ports)
	for _, p := range list {
		listify(p, "vlans", "tpids")
	}
	out["ports"] = list
	return out
}

// shapeEthernetLine produces a list of lines, each with an ordered mau list.
func shapeEthernetLine(parsed map[string]any) any {
	lines, _ := parsed["lines"].(map[string]any)
	list := sortedValues(lines)
	for _, l := range list {
		listify(l, "mau")
	}
	return list
}
