package registry

import (
	"context"
	"strings"
	"time"

	"github.com/likexian/whois"
	parser "github.com/likexian/whois-parser"
	"github.com/pkg/errors"
)

var (
	layouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"02-Jan-2006",
		"2006.01.02",
		"2006/01/02",
	}
)

// QueryFunc returns the raw WHOIS response for a domain.
type QueryFunc func(domain string) (string, error)

type whoisClient struct {
	query   QueryFunc
	timeout time.Duration
}

type lookupResult struct {
	raw string
	err error
}

func (wc *whoisClient) Lookup(ctx context.Context, domain string) (Record, error) {
	if wc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wc.timeout)
		defer cancel()
	}

	resC := make(chan lookupResult, 1)
	go func() {
		raw, err := wc.query(domain)
		resC <- lookupResult{raw, err}
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return Record{}, LookupErr{domain, TimeoutErr}
		}
		return Record{}, LookupErr{domain, ctx.Err()}
	case res := <-resC:
		if res.err != nil {
			return Record{}, LookupErr{domain, res.err}
		}
		rec, err := ParseRecord(domain, res.raw)
		if err != nil {
			return Record{}, LookupErr{domain, err}
		}
		return rec, nil
	}
}

// NewWhoisClient returns a Client querying the public WHOIS servers. Every
// lookup is bounded by the configured timeout.
func NewWhoisClient(conf Config) Client {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig.Timeout
	}
	c := whois.NewClient()
	c.SetTimeout(timeout)

	return NewQueryClient(func(domain string) (string, error) {
		return c.Whois(domain)
	}, timeout)
}

// NewQueryClient returns a Client that parses the responses of query. A
// query running longer than timeout fails with TimeoutErr; its result is
// discarded.
func NewQueryClient(query QueryFunc, timeout time.Duration) Client {
	return &whoisClient{
		query:   query,
		timeout: timeout,
	}
}

// ParseRecord extracts the registration dates from a raw WHOIS response.
func ParseRecord(domain string, raw string) (Record, error) {
	info, err := parser.Parse(raw)
	if err != nil {
		if err == parser.ErrNotFoundDomain {
			return Record{}, NotFoundErr
		}
		return Record{}, errors.Wrap(err, "parse whois response")
	}
	if info.Domain == nil {
		return Record{}, NotFoundErr
	}

	rec := Record{
		Domain:  domain,
		Created: dateField(info.Domain.CreatedDate),
		Expires: dateField(info.Domain.ExpirationDate),
	}
	return rec, nil
}

func dateField(s string) DateField {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateField{}
	}
	for _, l := range layouts {
		t, err := time.Parse(l, s)
		if err == nil {
			return Single(TimeValue(t))
		}
	}
	return Single(TextValue(s))
}
