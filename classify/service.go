package classify

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Tezha3/phishing-url-detection/app"
	"github.com/Tezha3/phishing-url-detection/collectors/page"
	"github.com/Tezha3/phishing-url-detection/collectors/registry"
	"github.com/Tezha3/phishing-url-detection/domain"
	"github.com/Tezha3/phishing-url-detection/features"
	"github.com/Tezha3/phishing-url-detection/metrics"
	"github.com/Tezha3/phishing-url-detection/model"
	"github.com/Tezha3/phishing-url-detection/store/models"
)

const (
	SignalNetwork   = "network"
	SignalDomainAge = "domain_age"
)

var (
	EmptyURLErr = errors.New("please enter a URL")
)

// Degradation names a signal that could not be computed and fell back to
// its default value.
type Degradation struct {
	Signal string `json:"signal"`
	Reason string `json:"reason"`
}

type Result struct {
	ID         uuid.UUID       `json:"id"`
	URL        string          `json:"url"`
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Features   features.Vector `json:"features"`
	Degraded   []Degradation   `json:"degraded,omitempty"`
	Elapsed    time.Duration   `json:"elapsed"`
}

// Recorder keeps a history of verdicts.
type Recorder interface {
	StoreVerdict(v *models.Verdict) error
}

type Opts struct {
	Fetcher   page.Fetcher
	Registry  registry.Client
	Metrics   metrics.Service
	Recorder  Recorder
	ErrLogger app.ErrLogger
}

// Service classifies URLs with a single, read-only classifier. It is safe
// for concurrent use.
type Service struct {
	m         model.Classifier
	fetcher   page.Fetcher
	registry  registry.Client
	metrics   metrics.Service
	recorder  Recorder
	errLogger app.ErrLogger
	closers   []io.Closer
}

func (s *Service) Classify(ctx context.Context, raw string) (*Result, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, EmptyURLErr
	}
	start := time.Now()
	id := uuid.New()

	p := features.Parse(raw)
	lex := features.ExtractLexical(p)

	d, splitErr := domain.Split(raw)
	label := ""
	if splitErr == nil {
		label = d.Label
	}

	var (
		fetched page.Result
		age     features.Age
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if !p.HasHost() {
			fetched = page.Failed(raw, page.NoHostErr)
			return nil
		}
		fetched = s.fetcher.Fetch(gctx, raw)
		return nil
	})
	g.Go(func() error {
		if splitErr != nil {
			age = features.Age{Status: features.AgeLookupFailed, Err: splitErr}
			return nil
		}
		age = features.LookupDomainAge(gctx, d, s.registry)
		return nil
	})
	// neither extractor fails the request
	_ = g.Wait()

	net := features.ExtractNetwork(fetched, label)
	vec := features.Assemble(lex, net, age)

	pred, err := s.m.Predict(vec)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}
	verdict, confidence, err := FormatVerdict(pred)
	if err != nil {
		return nil, err
	}

	res := Result{
		ID:         id,
		URL:        raw,
		Label:      verdict,
		Confidence: confidence,
		Features:   vec,
		Elapsed:    time.Since(start),
	}
	if net.Err != nil {
		res.Degraded = append(res.Degraded, Degradation{SignalNetwork, net.Err.Error()})
	}
	if !age.Computed() {
		reason := age.Status.String()
		if age.Err != nil {
			reason += ": " + age.Err.Error()
		}
		res.Degraded = append(res.Degraded, Degradation{SignalDomainAge, reason})
	}

	for _, deg := range res.Degraded {
		log.Debug().
			Str("id", id.String()).
			Str("url", raw).
			Str("signal", deg.Signal).
			Msgf("signal degraded: %s", deg.Reason)
		s.metrics.Degraded(deg.Signal)
	}
	s.metrics.Verdict(res.Label)
	s.metrics.Latency(res.Elapsed)

	s.record(&res)

	return &res, nil
}

func (s *Service) record(res *Result) {
	if s.recorder == nil {
		return
	}
	var signals []string
	for _, deg := range res.Degraded {
		signals = append(signals, deg.Signal)
	}
	opts := app.LogOptions{
		RequestID: res.ID.String(),
		URL:       res.URL,
		Degraded:  signals,
	}

	feats, err := json.Marshal(res.Features)
	if err != nil {
		opts.Msg = "failed to marshal features"
		s.errLogger.Log(err, opts)
		return
	}

	v := models.Verdict{
		RequestID:  res.ID.String(),
		URL:        res.URL,
		Label:      res.Label,
		Confidence: res.Confidence,
		Features:   string(feats),
		Degraded:   strings.Join(signals, ","),
	}
	if err := s.recorder.StoreVerdict(&v); err != nil {
		opts.Msg = "failed to store verdict"
		s.errLogger.Log(err, opts)
	}
}

// Close releases the resources the service was created with.
func (s *Service) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewService creates a service around an already loaded classifier. Unset
// options fall back to live HTTP and WHOIS clients, without metrics or
// verdict history.
func NewService(m model.Classifier, opts Opts) *Service {
	if opts.Fetcher == nil {
		opts.Fetcher = page.New(page.DefaultConfig, nil)
	}
	if opts.Registry == nil {
		opts.Registry = registry.NewWhoisClient(registry.DefaultConfig)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewService(metrics.Opts{})
	}
	if opts.ErrLogger == nil {
		opts.ErrLogger = app.NewZeroLogger(map[string]string{}, zerolog.ErrorLevel)
	}

	s := Service{
		m:         m,
		fetcher:   opts.Fetcher,
		registry:  opts.Registry,
		metrics:   opts.Metrics,
		recorder:  opts.Recorder,
		errLogger: opts.ErrLogger,
		closers:   []io.Closer{opts.Metrics},
	}
	return &s
}
