package metrics

import (
	"io"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/Tezha3/phishing-url-detection/app"
)

const defaultInterval = 10

type Service interface {
	Verdict(label string)
	Degraded(signal string)
	Latency(d time.Duration)
	io.Closer
}

type Opts struct {
	Enabled      bool   `yaml:"enabled"`
	ServUrl      string `yaml:"server-url"`
	AuthToken    string `yaml:"auth-token"`
	Organisation string `yaml:"organisation"`
	Bucket       string `yaml:"bucket"`
	Interval     int    `yaml:"interval"` // in seconds
}

// pointWriter is the part of the influxdb write api the service uses
type pointWriter interface {
	WritePoint(p *write.Point)
	Flush()
}

type latencyInfo struct {
	count int
	total time.Duration
	max   time.Duration
}

type influxService struct {
	client   influxdb2.Client
	api      pointWriter
	done     chan bool
	ticker   *time.Ticker
	verdicts map[string]int
	degraded map[string]int
	latency  latencyInfo
	m        *sync.Mutex
}

func (ifs *influxService) Verdict(label string) {
	ifs.m.Lock()
	defer ifs.m.Unlock()

	ifs.verdicts[label]++
}

func (ifs *influxService) Degraded(signal string) {
	ifs.m.Lock()
	defer ifs.m.Unlock()

	ifs.degraded[signal]++
}

func (ifs *influxService) Latency(d time.Duration) {
	ifs.m.Lock()
	defer ifs.m.Unlock()

	ifs.latency.count++
	ifs.latency.total += d
	if d > ifs.latency.max {
		ifs.latency.max = d
	}
}

func (ifs *influxService) Close() error {
	ifs.done <- true
	ifs.ticker.Stop()

	// flush what was collected since the last tick
	ifs.write()
	ifs.api.Flush()

	if ifs.client != nil {
		ifs.client.Close()
	}
	return nil
}

func (ifs *influxService) write() {
	ifs.m.Lock()
	defer ifs.m.Unlock()

	now := time.Now()

	for label, count := range ifs.verdicts {
		tags := map[string]string{
			"label": label,
		}
		fields := map[string]interface{}{
			"count": count,
		}
		ifs.api.WritePoint(influxdb2.NewPoint("verdicts", tags, fields, now))
	}

	for signal, count := range ifs.degraded {
		tags := map[string]string{
			"signal": signal,
		}
		fields := map[string]interface{}{
			"count": count,
		}
		ifs.api.WritePoint(influxdb2.NewPoint("degraded-signals", tags, fields, now))
	}

	if ifs.latency.count > 0 {
		mean := ifs.latency.total / time.Duration(ifs.latency.count)
		fields := map[string]interface{}{
			"count":   ifs.latency.count,
			"mean-ms": float64(mean) / float64(time.Millisecond),
			"max-ms":  float64(ifs.latency.max) / float64(time.Millisecond),
		}
		ifs.api.WritePoint(influxdb2.NewPoint("latency", map[string]string{}, fields, now))
	}

	ifs.verdicts = map[string]int{}
	ifs.degraded = map[string]int{}
	ifs.latency = latencyInfo{}
}

// service that is being used when influxdb is disabled
type disabledService struct{}

func (ds *disabledService) Verdict(label string) {}

func (ds *disabledService) Degraded(signal string) {}

func (ds *disabledService) Latency(d time.Duration) {}

func (ds *disabledService) Close() error {
	return nil
}

func NewService(opts Opts) Service {
	if !opts.Enabled {
		return &disabledService{}
	}

	client := influxdb2.NewClient(opts.ServUrl, opts.AuthToken)
	api := client.WriteAPI(opts.Organisation, opts.Bucket)

	return NewServiceWithClient(client, api, opts.Interval)
}

// NewServiceWithClient writes the collected metrics to api every interval
// seconds. client may be nil.
func NewServiceWithClient(client influxdb2.Client, api pointWriter, interval int) Service {
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	done := make(chan bool)

	is := influxService{
		client:   client,
		api:      api,
		done:     done,
		ticker:   ticker,
		verdicts: map[string]int{},
		degraded: map[string]int{},
		m:        &sync.Mutex{},
	}

	go func() {
		// write to influxdb at interval
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				is.write()
			}
		}
	}()

	return &is
}

func (o *Opts) IsValid() error {
	if !o.Enabled {
		return nil
	}
	ce := app.NewConfigErr()
	if o.ServUrl == "" {
		ce.Add("influxdb server-url cannot be empty")
	}
	if o.Bucket == "" {
		ce.Add("influxdb bucket cannot be empty")
	}
	if o.Interval < 0 {
		ce.Add("influxdb interval cannot be negative")
	}
	if ce.IsError() {
		return &ce
	}
	return nil
}
