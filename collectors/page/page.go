package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

var (
	NoHostErr = errors.New("url has no host to fetch")

	DefaultConfig = Config{
		Timeout:      10 * time.Second,
		UserAgent:    "Mozilla/5.0 (compatible; phishing-url-detection/1.0)",
		MaxPageBytes: 10 * 1024 * 1024,
		MaxRedirects: 10,
	}
)

type NotOkStatusErr struct {
	code int
}

func (err NotOkStatusErr) Error() string {
	return fmt.Sprintf("http error: status code %d", err.code)
}

func (err NotOkStatusErr) StatusCode() int {
	return err.code
}

type Config struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user-agent"`
	MaxPageBytes int64         `yaml:"max-page-bytes"`
	MaxRedirects int           `yaml:"max-redirects"`
}

// Result is the outcome of the single GET issued for a classified URL. It is
// shared by every network-derived feature of that URL.
type Result struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	Elapsed     time.Duration
	Err         error
}

func (r Result) Ok() bool {
	return r.Err == nil
}

// Failed returns a Result that carries only an error.
func Failed(url string, err error) Result {
	return Result{URL: url, Err: err}
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) Result
}

type httpFetcher struct {
	conf Config
	c    *http.Client
}

func (f *httpFetcher) Fetch(ctx context.Context, url string) Result {
	start := time.Now()
	res := f.fetch(ctx, url)
	res.URL = url
	res.Elapsed = time.Since(start)
	return res
}

func (f *httpFetcher) fetch(ctx context.Context, url string) Result {
	if f.conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.conf.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Err: errors.Wrap(err, "create request")}
	}
	if f.conf.UserAgent != "" {
		req.Header.Set("User-Agent", f.conf.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.c.Do(req)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()

	res := Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Err = NotOkStatusErr{resp.StatusCode}
		return res
	}

	limit := f.conf.MaxPageBytes
	if limit <= 0 {
		limit = DefaultConfig.MaxPageBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		res.Err = errors.Wrap(err, "read body")
		return res
	}
	res.Body = body
	return res
}

// New returns a Fetcher issuing plain GET requests. When client is nil, a
// client honouring the configured redirect limit is created; the configured
// timeout applies to either client. A redirect limit of 0 uses the default.
func New(conf Config, client *http.Client) Fetcher {
	if client == nil {
		maxRedirects := conf.MaxRedirects
		if maxRedirects <= 0 {
			maxRedirects = DefaultConfig.MaxRedirects
		}
		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		}
	}

	f := httpFetcher{
		conf: conf,
		c:    client,
	}
	return &f
}
