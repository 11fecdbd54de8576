package flatten

import "strings"

// splitLines splits raw device output into lines, tolerating CRLF endings
// produced by telnet/ssh terminals.
func splitLines(raw string) []string {
	if raw == "" {
		return nil
	}
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// indentWidth counts leading spaces. Tabs are not indentation on ISAM output.
func indentWidth(line string) int {
	n := 0
	for n < len(line) && line[n] == ' ' {
		n++
	}
	return n
}

// stripComment returns the text before the first '#', trimmed.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// hasToken reports whether tok appears as a whitespace separated field of s.
func hasToken(s, tok string) bool {
	for _, f := range strings.Fields(s) {
		if f == tok {
			return true
		}
	}
	return false
}

// TokenPair is one "attribute value" pair taken from a rest capture.
type TokenPair [2]string

// String joins the pair with a single space.
func (p TokenPair) String() string {
	return p[0] + " " + p[1]
}

// pairTokens splits rest on whitespace and walks the tokens two at a time.
// A trailing odd token cannot form a pair and is discarded; the number of
// discarded tokens is returned so callers can account for it.
func pairTokens(rest string) ([]TokenPair, int) {
	fields := strings.Fields(rest)
	pairs := make([]TokenPair, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		pairs = append(pairs, TokenPair{fields[i], fields[i+1]})
	}
	return pairs, len(fields) % 2
}
