package features

import (
	"regexp"
	"strings"
)

var (
	schemeRe = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.\-]*):`)
)

// ParsedURL is a raw URL split into its parts. A URL that cannot be parsed,
// or that carries no scheme, has no host and an empty path and query.
type ParsedURL struct {
	Raw    string
	Scheme string
	Host   string
	Path   string
	Query  string
}

func (p ParsedURL) HasHost() bool {
	return p.Host != ""
}

// Parse splits raw into scheme, authority, path and query without decoding
// or re-escaping anything, so the path is the substring of raw as written.
// Only unbalanced brackets in the authority make a URL malformed.
func Parse(raw string) ParsedURL {
	p := ParsedURL{Raw: raw}

	m := schemeRe.FindStringSubmatch(raw)
	if m == nil {
		return p
	}
	rest := raw[len(m[0]):]

	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}
	var query string
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest, query = rest[:i], rest[i+1:]
	}

	var host string
	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		authority := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			authority, rest = rest[:i], rest[i:]
		} else {
			rest = ""
		}
		var ok bool
		host, ok = hostname(authority)
		if !ok {
			return p
		}
	}

	p.Scheme = strings.ToLower(m[1])
	p.Host = host
	p.Path = rest
	p.Query = query
	return p
}

// hostname strips userinfo and port from an authority and lower-cases the
// rest. Bracketed hosts are returned without their brackets.
func hostname(authority string) (string, bool) {
	open := strings.Contains(authority, "[")
	if open != strings.Contains(authority, "]") {
		return "", false
	}
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		authority = authority[i+1:]
	}
	if strings.HasPrefix(authority, "[") {
		end := strings.IndexByte(authority, ']')
		if end < 0 {
			return "", false
		}
		return strings.ToLower(authority[1:end]), true
	}
	if i := strings.IndexByte(authority, ':'); i >= 0 {
		authority = authority[:i]
	}
	return strings.ToLower(authority), true
}
