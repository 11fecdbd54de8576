package cmdtree

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

type staticEnv []string

func (e staticEnv) Scopes() []string { return e }

func TestCompleteFromTree(t *testing.T) {
	env := staticEnv{"bridges", "ethernet_line"}
	tests := []struct {
		name    string
		words   []string
		partial string
		want    []string
	}{
		{"top level prefix", nil, "s", []string{"save", "set", "show"}},
		{"show children", []string{"show"}, "", []string{"compare", "history", "lines", "log", "policy", "resources", "scopes"}},
		{"dynamic scope", []string{"load"}, "e", []string{"ethernet_line"}},
		{"nested dynamic", []string{"show", "compare"}, "", []string{"bridges", "ethernet_line"}},
		{"after dynamic value", []string{"load", "bridges"}, "", []string{}},
		{"policy values", []string{"set", "policy"}, "p", []string{"persist"}},
		{"unknown word", []string{"bogus"}, "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompleteFromTree(ShellTree, tt.words, tt.partial, env)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCompleteNilEnv(t *testing.T) {
	got := CompleteFromTree(ShellTree, []string{"facts"}, "", nil)
	if len(got) != 0 {
		t.Errorf("expected no candidates without env, got %v", got)
	}
}

func TestCompleteSplitsPartial(t *testing.T) {
	env := staticEnv{"bridges"}
	cands, partial := Complete(ShellTree, "show hi", env)
	if partial != "hi" {
		t.Errorf("expected partial %q, got %q", "hi", partial)
	}
	if len(cands) != 1 || cands[0].Name != "history" {
		t.Errorf("expected [history], got %v", cands)
	}

	cands, partial = Complete(ShellTree, "facts ", env)
	if partial != "" {
		t.Errorf("expected empty partial, got %q", partial)
	}
	if len(cands) != 1 || cands[0].Name != "bridges" || cands[0].Desc != "(scope)" {
		t.Errorf("expected bridges scope candidate, got %v", cands)
	}
}

func TestSuggest(t *testing.T) {
	tests := map[string]string{
		"shwo":     "show",
		"comit":    "commit",
		"flaten":   "flatten",
		"frobnify": "",
	}
	for in, want := range tests {
		if got := Suggest(ShellTree, in); got != want {
			t.Errorf("Suggest(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestNearest(t *testing.T) {
	cands := []string{"bridges", "ethernet_line"}
	tests := []struct {
		word  string
		cands []string
		want  string
	}{
		{"ethernet-line", cands, "ethernet_line"},
		{"bridgs", cands, "bridges"},
		{"vlan", cands, ""},
		{"x", nil, ""},
		// A third of a long word is allowed.
		{"ethernt_lin", cands, "ethernet_line"},
	}
	for _, tt := range tests {
		if got := Nearest(tt.word, tt.cands); got != tt.want {
			t.Errorf("Nearest(%q): expected %q, got %q", tt.word, tt.want, got)
		}
	}
}

func TestWriteHelp(t *testing.T) {
	var buf bytes.Buffer
	WriteHelp(&buf, []Candidate{{Name: "show", Desc: "Show information"}, {Name: "exit"}})
	out := buf.String()
	if !strings.HasPrefix(out, "Possible completions:\n") {
		t.Errorf("expected header, got %q", out)
	}
	if strings.Index(out, "exit") > strings.Index(out, "show") {
		t.Errorf("expected sorted candidates, got %q", out)
	}
	if !strings.Contains(out, "  show                 Show information\n") {
		t.Errorf("expected aligned description, got %q", out)
	}
}

func TestWriteTreeHelp(t *testing.T) {
	var buf bytes.Buffer
	WriteTreeHelp(&buf, ShellTree, "set", "policy")
	if !strings.Contains(buf.String(), "persist") || !strings.Contains(buf.String(), "reset") {
		t.Errorf("expected policy values, got %q", buf.String())
	}

	buf.Reset()
	WriteTreeHelp(&buf, ShellTree, "nope")
	if buf.Len() != 0 {
		t.Errorf("expected no output for unknown path, got %q", buf.String())
	}
}

func TestCommonPrefix(t *testing.T) {
	if got := CommonPrefix([]string{"history", "help"}); got != "h" {
		t.Errorf("expected %q, got %q", "h", got)
	}
	if got := CommonPrefix([]string{"save", "set"}); got != "s" {
		t.Errorf("expected %q, got %q", "s", got)
	}
	if got := CommonPrefix(nil); got != "" {
		t.Errorf("expected empty prefix, got %q", got)
	}
}

func TestFilterPrefix(t *testing.T) {
	got := FilterPrefix([]string{"load", "log", "lines"}, "lo")
	if !reflect.DeepEqual(got, []string{"load", "log"}) {
		t.Errorf("expected [load log], got %v", got)
	}
}
