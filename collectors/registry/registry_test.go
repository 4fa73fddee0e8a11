package registry

import (
	"context"
	"io/ioutil"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		created     DateField
		expires     DateField
		expectedErr error
	}{
		{
			name:    "dates as time",
			file:    "testdata/example.com.txt",
			created: Single(TimeValue(time.Date(1995, 8, 14, 4, 0, 0, 0, time.UTC))),
			expires: Single(TimeValue(time.Date(2025, 8, 13, 4, 0, 0, 0, time.UTC))),
		},
		{
			name:    "unparseable creation date",
			file:    "testdata/textdate.com.txt",
			created: Single(TextValue("before 1996")),
			expires: DateField{},
		},
		{
			name:        "unknown domain",
			file:        "testdata/notfound.com.txt",
			expectedErr: NotFoundErr,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			raw, err := ioutil.ReadFile(test.file)
			if err != nil {
				t.Fatalf("failed to read test file: %s", err)
			}
			rec, err := ParseRecord("example.com", string(raw))
			if test.expectedErr != nil {
				if err != test.expectedErr {
					t.Fatalf("expected error '%v', but got '%v'", test.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if !equalField(rec.Created, test.created) {
				t.Fatalf("expected creation date %v, but got %v", test.created, rec.Created)
			}
			if !equalField(rec.Expires, test.expires) {
				t.Fatalf("expected expiration date %v, but got %v", test.expires, rec.Expires)
			}
		})
	}
}

func TestDateField(t *testing.T) {
	tests := []struct {
		raw    string
		isTime bool
		empty  bool
	}{
		{"2020-01-02", true, false},
		{"2020-01-02 10:11:12", true, false},
		{"02-Jan-2020", true, false},
		{"2020.01.02", true, false},
		{"  ", false, true},
		{"Jan 2nd, sometime", false, false},
	}
	for _, test := range tests {
		t.Run(test.raw, func(t *testing.T) {
			f := dateField(test.raw)
			if f.Missing() != test.empty {
				t.Fatalf("expected missing to be %t, but got %t", test.empty, f.Missing())
			}
			if test.empty {
				return
			}
			if f.Values[0].IsTime() != test.isTime {
				t.Fatalf("expected time value to be %t, but got %t", test.isTime, f.Values[0].IsTime())
			}
		})
	}
}

func TestCachedClient(t *testing.T) {
	calls := 0
	fail := true
	c := ClientFunc(func(ctx context.Context, domain string) (Record, error) {
		calls++
		if fail {
			return Record{}, LookupErr{domain, errors.New("connection refused")}
		}
		return Record{Domain: domain}, nil
	})
	cc := NewCachedClient(c, 10)

	if _, err := cc.Lookup(context.Background(), "example.com"); err == nil {
		t.Fatalf("expected an error, but got none")
	}
	fail = false
	for i := 0; i < 3; i++ {
		rec, err := cc.Lookup(context.Background(), "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if rec.Domain != "example.com" {
			t.Fatalf("expected domain '%s', but got '%s'", "example.com", rec.Domain)
		}
	}
	if calls != 2 {
		t.Fatalf("expected %d lookups, but got %d", 2, calls)
	}
}

func TestCachedClientDisabled(t *testing.T) {
	c := ClientFunc(func(ctx context.Context, domain string) (Record, error) {
		return Record{}, nil
	})
	if _, ok := NewCachedClient(c, 0).(*cachedClient); ok {
		t.Fatalf("expected no cache for size 0")
	}
}

func TestLookupErr(t *testing.T) {
	err := LookupErr{"example.com", TimeoutErr}
	if errors.Cause(err) != TimeoutErr {
		t.Fatalf("expected cause '%v', but got '%v'", TimeoutErr, errors.Cause(err))
	}
}

func TestQueryClientLookup(t *testing.T) {
	raw, err := ioutil.ReadFile("testdata/example.com.txt")
	if err != nil {
		t.Fatalf("failed to read fixture: %s", err)
	}
	release := make(chan struct{})
	defer close(release)

	tests := []struct {
		name     string
		query    QueryFunc
		cause    error
		expected bool
	}{
		{
			name: "response parsed",
			query: func(domain string) (string, error) {
				return string(raw), nil
			},
			expected: true,
		},
		{
			name: "query hangs past timeout",
			query: func(domain string) (string, error) {
				<-release
				return "", nil
			},
			cause: TimeoutErr,
		},
		{
			name: "query fails",
			query: func(domain string) (string, error) {
				return "", errors.New("connection refused")
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := NewQueryClient(test.query, 50*time.Millisecond)

			start := time.Now()
			rec, err := c.Lookup(context.Background(), "example.com")
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Fatalf("expected lookup to be bounded by its timeout, but it took %s", elapsed)
			}
			if test.expected {
				if err != nil {
					t.Fatalf("unexpected error: %s", err)
				}
				if rec.Created.Missing() {
					t.Fatalf("expected a creation date")
				}
				return
			}
			lerr, ok := err.(LookupErr)
			if !ok {
				t.Fatalf("expected LookupErr, but got %T (%v)", err, err)
			}
			if lerr.Domain != "example.com" {
				t.Fatalf("expected domain '%s', but got '%s'", "example.com", lerr.Domain)
			}
			if test.cause != nil && errors.Cause(err) != test.cause {
				t.Fatalf("expected cause '%v', but got '%v'", test.cause, errors.Cause(err))
			}
		})
	}
}

func equalField(a, b DateField) bool {
	if len(a.Values) != len(b.Values) || a.Sequence != b.Sequence {
		return false
	}
	for i := range a.Values {
		if a.Values[i].IsTime() != b.Values[i].IsTime() {
			return false
		}
		if a.Values[i].Text != b.Values[i].Text || !a.Values[i].Time.Equal(b.Values[i].Time) {
			return false
		}
	}
	return true
}
