package features

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	PhishHints = []string{"login", "signin", "bank", "account"}

	ipv4Re = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// Lexical holds the signals computed from the URL string alone.
type Lexical struct {
	NbWWW           int
	PhishHints      int
	IP              bool
	LengthWordsRaw  int
	LongestWordPath int
	RatioDigitsHost float64
	NbDots          int
	NbHyphens       int
	NbQm            int
	NbUnderscore    int
	NbSlash         int
	NbEq            int
	RatioDigitsURL  float64
	NbSpace         int
	LongestWordsRaw int
	LengthHostname  int
}

// ExtractLexical never performs I/O; equal inputs yield equal outputs.
func ExtractLexical(p ParsedURL) Lexical {
	raw := p.Raw
	lower := strings.ToLower(raw)

	lex := Lexical{
		NbWWW:           strings.Count(lower, "www"),
		PhishHints:      CountPhishHints(raw),
		IP:              HasIPHost(p),
		LengthWordsRaw:  strings.Count(raw, "/") + 1,
		LongestWordPath: longestSegment(p.Path),
		RatioDigitsHost: digitRatio(p.Host),
		NbDots:          strings.Count(raw, "."),
		NbHyphens:       strings.Count(raw, "-"),
		NbQm:            strings.Count(raw, "?"),
		NbUnderscore:    strings.Count(raw, "_"),
		NbSlash:         strings.Count(raw, "/"),
		NbEq:            strings.Count(raw, "="),
		RatioDigitsURL:  digitRatio(raw),
		NbSpace:         strings.Count(raw, " "),
		LongestWordsRaw: longestSegment(raw),
		LengthHostname:  utf8.RuneCountInString(p.Host),
	}
	return lex
}

// CountPhishHints returns how many of the hint keywords occur in the URL.
// Each keyword counts at most once.
func CountPhishHints(raw string) int {
	lower := strings.ToLower(raw)
	n := 0
	for _, hint := range PhishHints {
		if strings.Contains(lower, hint) {
			n++
		}
	}
	return n
}

// HasIPHost reports whether the host is a dotted-quad IPv4 literal. IPv6
// literals are not detected.
func HasIPHost(p ParsedURL) bool {
	if !p.HasHost() {
		return false
	}
	return ipv4Re.MatchString(p.Host)
}

func digitRatio(s string) float64 {
	total, digits := 0, 0
	for _, r := range s {
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(digits) / float64(total)
}

func longestSegment(s string) int {
	longest := 0
	for _, w := range strings.Split(s, "/") {
		if l := utf8.RuneCountInString(w); l > longest {
			longest = l
		}
	}
	return longest
}
