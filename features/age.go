package features

import (
	"context"
	"time"

	"github.com/Tezha3/phishing-url-detection/collectors/registry"
	"github.com/Tezha3/phishing-url-detection/domain"
)

const (
	dateLayout = "2006-01-02"
	secsPerDay = 24 * 60 * 60
)

type AgeStatus int

const (
	AgeComputed AgeStatus = iota
	AgeLookupFailed
	AgeMissingDate
	AgeUnparseableDate
	AgeArithmeticFailed
)

func (s AgeStatus) String() string {
	switch s {
	case AgeComputed:
		return "computed"
	case AgeLookupFailed:
		return "lookup failed"
	case AgeMissingDate:
		return "missing date"
	case AgeUnparseableDate:
		return "unparseable date"
	case AgeArithmeticFailed:
		return "arithmetic failed"
	}
	return "unknown"
}

// Age is the outcome of resolving the age of a registrable domain. Days is
// only meaningful when Status is AgeComputed.
type Age struct {
	Days   int
	Status AgeStatus
	Domain string
	Err    error
}

func (a Age) Computed() bool {
	return a.Status == AgeComputed
}

// ResolveDomainAge looks up the registrable domain of a raw URL and computes
// the number of days between its creation and expiration dates.
func ResolveDomainAge(ctx context.Context, raw string, c registry.Client) Age {
	d, err := domain.Split(raw)
	if err != nil {
		return Age{Status: AgeLookupFailed, Err: err}
	}
	return LookupDomainAge(ctx, d, c)
}

// LookupDomainAge is ResolveDomainAge for an already split domain. A nil
// domain counts as a failed lookup.
func LookupDomainAge(ctx context.Context, d *domain.Domain, c registry.Client) Age {
	if d == nil {
		return Age{Status: AgeLookupFailed, Err: domain.NoHostErr}
	}
	if !d.HasApex() {
		return Age{Status: AgeLookupFailed, Err: domain.NoApexErr}
	}
	rec, err := c.Lookup(ctx, d.Apex)
	if err != nil {
		return Age{Status: AgeLookupFailed, Domain: d.Apex, Err: err}
	}
	age := AgeFromRecord(rec)
	age.Domain = d.Apex
	return age
}

// AgeFromRecord normalizes the registry dates and computes the age. Single
// text values are parsed as YYYY-MM-DD before missing fields are considered;
// a sequence then contributes its first element.
func AgeFromRecord(rec registry.Record) Age {
	created, expires := rec.Created, rec.Expires

	for _, f := range []*registry.DateField{&created, &expires} {
		if f.Sequence || len(f.Values) != 1 || f.Values[0].IsTime() {
			continue
		}
		t, err := time.Parse(dateLayout, f.Values[0].Text)
		if err != nil {
			return Age{Status: AgeUnparseableDate, Err: err}
		}
		*f = registry.Single(registry.TimeValue(t))
	}

	if created.Missing() || expires.Missing() {
		return Age{Status: AgeMissingDate}
	}

	c, e := created.Values[0], expires.Values[0]
	if !c.IsTime() || !e.IsTime() {
		return Age{Status: AgeArithmeticFailed}
	}

	return Age{Days: daysBetween(c.Time, e.Time), Status: AgeComputed}
}

// daysBetween returns the absolute number of whole days between two
// instants, flooring the signed difference first.
func daysBetween(from, to time.Time) int {
	secs := to.Unix() - from.Unix()
	if to.Nanosecond() < from.Nanosecond() {
		secs--
	}
	days := secs / secsPerDay
	if secs%secsPerDay != 0 && secs < 0 {
		days--
	}
	if days < 0 {
		days = -days
	}
	return int(days)
}
