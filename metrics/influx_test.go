package metrics

import (
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	testing2 "github.com/Tezha3/phishing-url-detection/testing"
)

type fakeWriter struct {
	m       sync.Mutex
	points  []*write.Point
	flushes int
}

func (w *fakeWriter) WritePoint(p *write.Point) {
	w.m.Lock()
	defer w.m.Unlock()
	w.points = append(w.points, p)
}

func (w *fakeWriter) Flush() {
	w.m.Lock()
	defer w.m.Unlock()
	w.flushes++
}

func TestServiceWritesOnClose(t *testing.T) {
	w := &fakeWriter{}
	s := NewServiceWithClient(nil, w, 3600)

	s.Verdict("Phishing")
	s.Verdict("Phishing")
	s.Verdict("Legitimate")
	s.Degraded("network")
	s.Latency(20 * time.Millisecond)
	s.Latency(40 * time.Millisecond)

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	var names []string
	for _, p := range w.points {
		names = append(names, p.Name())
	}
	sort.Strings(names)

	expected := []string{"degraded-signals", "latency", "verdicts", "verdicts"}
	if len(names) != len(expected) {
		t.Fatalf("expected points %v, but got %v", expected, names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Fatalf("expected points %v, but got %v", expected, names)
		}
	}
	if w.flushes != 1 {
		t.Fatalf("expected %d flush, but got %d", 1, w.flushes)
	}
}

func TestServiceNothingCollected(t *testing.T) {
	w := &fakeWriter{}
	s := NewServiceWithClient(nil, w, 0)
	s.Close()

	if len(w.points) != 0 {
		t.Fatalf("expected no points, but got %d", len(w.points))
	}
}

func TestDisabledService(t *testing.T) {
	s := NewService(Opts{Enabled: false})
	if _, ok := s.(*disabledService); !ok {
		t.Fatalf("expected disabled service, but got %T", s)
	}
	s.Verdict("Phishing")
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
}

func TestOptsIsValid(t *testing.T) {
	tests := []struct {
		name  string
		opts  Opts
		valid bool
	}{
		{"disabled", Opts{}, true},
		{"complete", Opts{Enabled: true, ServUrl: "http://localhost:8086", Bucket: "phishing"}, true},
		{"no server", Opts{Enabled: true, Bucket: "phishing"}, false},
		{"negative interval", Opts{Enabled: true, ServUrl: "http://localhost:8086", Bucket: "b", Interval: -1}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.opts.IsValid()
			if (err == nil) != test.valid {
				t.Fatalf("expected valid to be %t, but got error '%v'", test.valid, err)
			}
		})
	}
}

func TestNewService(t *testing.T) {
	testing2.SkipCI(t)
	token := testing2.RequireEnv(t, "INFLUX_AUTH_TOKEN")

	opts := Opts{
		Enabled:      true,
		ServUrl:      "http://localhost:8086",
		AuthToken:    token,
		Organisation: os.Getenv("INFLUX_ORG"),
		Bucket:       "phishing-url-detection",
		Interval:     1,
	}
	s := NewService(opts)
	s.Verdict("Phishing")
	s.Degraded("domain_age")
	time.Sleep(1 * time.Second)
	s.Close()
}
