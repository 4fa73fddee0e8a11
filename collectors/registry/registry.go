package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	TimeoutErr  = errors.New("registry lookup timed out")
	NotFoundErr = errors.New("domain not found in registry")

	DefaultConfig = Config{
		Timeout: 15 * time.Second,
	}
)

type Config struct {
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cache-size"`
}

// Date is a single registration date as reported by a registry. Registries
// do not agree on a date format, so a value that could not be parsed keeps
// its raw text.
type Date struct {
	Time   time.Time
	Text   string
	parsed bool
}

func TimeValue(t time.Time) Date {
	return Date{Time: t, parsed: true}
}

func TextValue(s string) Date {
	return Date{Text: s}
}

func (d Date) IsTime() bool {
	return d.parsed
}

func (d Date) String() string {
	if d.parsed {
		return d.Time.Format(time.RFC3339)
	}
	return d.Text
}

// DateField holds the value(s) reported for one registry date. Some
// registries report several creation or expiration dates for a domain, in
// which case Sequence is set. An empty field means the date is missing.
type DateField struct {
	Values   []Date
	Sequence bool
}

func Single(d Date) DateField {
	return DateField{Values: []Date{d}}
}

func Sequence(ds ...Date) DateField {
	return DateField{Values: ds, Sequence: true}
}

func (f DateField) Missing() bool {
	return len(f.Values) == 0
}

type Record struct {
	Domain  string
	Created DateField
	Expires DateField
}

type Client interface {
	Lookup(ctx context.Context, domain string) (Record, error)
}

type LookupErr struct {
	Domain string
	Err    error
}

func (err LookupErr) Error() string {
	return fmt.Sprintf("registry lookup error (%s): %s", err.Domain, err.Err)
}

func (err LookupErr) Cause() error {
	return err.Err
}

// ClientFunc allows the use of ordinary functions as registry clients.
type ClientFunc func(ctx context.Context, domain string) (Record, error)

func (f ClientFunc) Lookup(ctx context.Context, domain string) (Record, error) {
	return f(ctx, domain)
}
