package app

import (
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const sentryFlushTimeout = 100 * time.Millisecond

// LogOptions describes the request an error occurred in. Empty fields are
// left out of the report.
type LogOptions struct {
	Msg       string
	RequestID string
	URL       string
	Degraded  []string
	Tags      map[string]string
}

// fields flattens the options into string tags, as both sinks key reports
// by tag.
func (o LogOptions) fields() map[string]string {
	res := make(map[string]string, len(o.Tags)+3)
	for k, v := range o.Tags {
		res[k] = v
	}
	if o.RequestID != "" {
		res["request_id"] = o.RequestID
	}
	if o.URL != "" {
		res["url"] = o.URL
	}
	if len(o.Degraded) > 0 {
		res["degraded"] = strings.Join(o.Degraded, ",")
	}
	return res
}

type ErrLogger interface {
	Log(error, LogOptions)
}

type Sentry struct {
	Enabled bool   `yaml:"enabled"`
	Dsn     string `yaml:"dsn"`
}

func (s *Sentry) IsValid() error {
	if !s.Enabled {
		return nil
	}
	ce := NewConfigErr()
	if s.Dsn == "" {
		ce.Add("dsn cannot be empty")
	}
	if ce.IsError() {
		return &ce
	}
	return nil
}

type sentryLogger struct {
	h *sentry.Hub
}

func (l *sentryLogger) Log(err error, opts LogOptions) {
	scope := l.h.PushScope()
	defer l.h.PopScope()
	for k, v := range opts.fields() {
		scope.SetTag(k, v)
	}
	if opts.Msg != "" {
		scope.SetExtra("msg", opts.Msg)
	}
	l.h.CaptureException(err)
	l.h.Flush(sentryFlushTimeout)
}

func newSentryLogger(conf Sentry, tags map[string]string) (*sentryLogger, error) {
	c, err := sentry.NewClient(sentry.ClientOptions{Dsn: conf.Dsn})
	if err != nil {
		return nil, err
	}
	scope := sentry.NewScope()
	for k, v := range tags {
		scope.SetTag(k, v)
	}
	return &sentryLogger{
		h: sentry.NewHub(c, scope),
	}, nil
}

type zeroLogger struct {
	l zerolog.Logger
}

func (l *zeroLogger) Log(err error, opts LogOptions) {
	ev := l.l.Err(err)
	for k, v := range opts.fields() {
		ev = ev.Str(k, v)
	}
	ev.Msg(opts.Msg)
}

func NewZeroLogger(tags map[string]string, level zerolog.Level) ErrLogger {
	ctx := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp()
	for k, v := range tags {
		ctx = ctx.Str(k, v)
	}
	return &zeroLogger{
		l: ctx.Logger().Level(level),
	}
}

type errLogChain []ErrLogger

func (chain errLogChain) Log(err error, opts LogOptions) {
	for _, l := range chain {
		l.Log(err, opts)
	}
}

// SetupLogging points the global logger at stderr, in human readable form,
// and sets the global log level. An unknown level falls back to info.
func SetupLogging(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return lvl
}

// NewErrLogger returns an error logger writing to stderr, and to sentry when
// it is enabled. Tags are attached to every report.
func NewErrLogger(conf Sentry, tags map[string]string, level zerolog.Level) (ErrLogger, error) {
	chain := errLogChain{NewZeroLogger(tags, level)}
	if !conf.Enabled {
		return chain, nil
	}
	sl, err := newSentryLogger(conf, tags)
	if err != nil {
		return nil, err
	}
	return append(chain, sl), nil
}
