package domain

import (
	"net"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

var (
	NoHostErr   = errors.New("url has no host")
	FqdnIsIpErr = errors.New("fqdn is an IP address instead")
	IsSuffixErr = errors.New("fqdn is a public suffix")
	NoApexErr   = errors.New("fqdn has no registrable domain")

	schemeRe = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.\-]*:)?//`)
	portRe   = regexp.MustCompile(`:\d*$`)

	// private suffixes (blogspot.com, github.io, ...) are treated as ordinary labels
	findOpts = &publicsuffix.FindOptions{IgnorePrivate: true}
)

// Domain is a host name split along the public suffix list. For
// "sub.example.co.uk" the apex (registrable domain) is "example.co.uk", the
// label is "example" and the public suffix is "co.uk". A host whose suffix
// is not on the list has no apex and no public suffix, and its last label
// is the label.
type Domain struct {
	Fqdn         string
	Apex         string
	Label        string
	PublicSuffix string
	Tld          string
}

// HasApex reports whether the domain can be looked up in a registry.
func (d *Domain) HasApex() bool {
	return d.Apex != ""
}

// HostFromURL returns the lower-cased host of a URL. The scheme is optional,
// so "example.com/login" yields "example.com".
func HostFromURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = schemeRe.ReplaceAllString(s, "")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	// bracketed hosts are IPv6 literals
	if strings.HasPrefix(s, "[") {
		return ""
	}
	s = portRe.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, ".")
	return strings.ToLower(s)
}

// Split extracts the host from a raw URL and splits it into its registrable
// parts.
func Split(raw string) (*Domain, error) {
	return NewDomain(HostFromURL(raw))
}

func NewDomain(fqdn string) (*Domain, error) {
	fqdn = strings.TrimSuffix(fqdn, ".")
	fqdn = strings.ToLower(fqdn)
	fqdn = strings.ReplaceAll(fqdn, "\t", "")
	fqdn = strings.ReplaceAll(fqdn, "\n", "")

	if fqdn == "" {
		return nil, NoHostErr
	}
	if net.ParseIP(fqdn) != nil {
		return nil, FqdnIsIpErr
	}

	splitted := strings.Split(fqdn, ".")
	last := splitted[len(splitted)-1]
	if publicsuffix.DefaultList.Find(fqdn, findOpts) == nil {
		d := &Domain{
			Fqdn:  fqdn,
			Label: last,
			Tld:   last,
		}
		return d, nil
	}
	if len(splitted) == 1 {
		// a single label is a tld at best
		return nil, IsSuffixErr
	}

	name, err := publicsuffix.ParseFromListWithOptions(publicsuffix.DefaultList, fqdn, findOpts)
	if err != nil {
		if strings.HasSuffix(err.Error(), "is a suffix") {
			return nil, IsSuffixErr
		}
		return nil, errors.Wrap(err, "parse domain")
	}

	d := &Domain{
		Fqdn:         fqdn,
		Apex:         name.SLD + "." + name.TLD,
		Label:        name.SLD,
		PublicSuffix: name.TLD,
		Tld:          last,
	}
	return d, nil
}
