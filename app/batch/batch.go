package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"
	"golang.org/x/sync/semaphore"

	"github.com/Tezha3/phishing-url-detection/classify"
)

type classifier interface {
	Classify(ctx context.Context, url string) (*classify.Result, error)
}

// line written for every input URL; Error is set when no verdict was reached
type entry struct {
	URL    string           `json:"url"`
	Result *classify.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type summary struct {
	Total      int
	Phishing   int
	Legitimate int
	Failed     int
}

// reads one URL per line, skipping blank lines and lines starting with '#'
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		l := strings.TrimSpace(scanner.Text())
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		urls = append(urls, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read urls")
	}
	return urls, nil
}

type batch struct {
	c        classifier
	workers  int
	progress io.Writer

	m   sync.Mutex
	enc *json.Encoder
}

// run classifies all urls with a bounded number of concurrent workers and
// writes a JSON line per url as soon as its verdict is known
func (b *batch) run(ctx context.Context, urls []string) (summary, error) {
	s := summary{Total: len(urls)}
	if len(urls) == 0 {
		return s, nil
	}
	workers := b.workers
	if workers <= 0 {
		workers = 1
	}

	var opts []mpb.ContainerOption
	if b.progress != nil {
		opts = append(opts, mpb.WithOutput(b.progress))
	}
	p := mpb.New(opts...)
	name := "Classifying URLs"
	bar := p.AddBar(int64(len(urls)),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DidentRight}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 4}), "done",
			),
			decor.Percentage(decor.WCSyncSpace),
		),
	)

	sem := semaphore.NewWeighted(int64(workers))
	wg := sync.WaitGroup{}
	var writeErr error

	for _, u := range urls {
		if err := sem.Acquire(ctx, 1); err != nil {
			bar.Abort(false)
			wg.Wait()
			p.Wait()
			return s, err
		}
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			defer sem.Release(1)
			defer bar.Increment()

			e := entry{URL: u}
			res, err := b.c.Classify(ctx, u)
			if err != nil {
				log.Warn().Str("url", u).Msgf("failed to classify: %s", err)
				e.Error = err.Error()
			} else {
				e.Result = res
			}

			b.m.Lock()
			defer b.m.Unlock()
			switch {
			case err != nil:
				s.Failed++
			case res.Label == classify.LabelPhishing:
				s.Phishing++
			default:
				s.Legitimate++
			}
			if err := b.enc.Encode(e); err != nil && writeErr == nil {
				writeErr = errors.Wrap(err, "write result")
			}
		}(u)
	}
	wg.Wait()
	p.Wait()

	return s, writeErr
}

func newBatch(c classifier, workers int, out io.Writer, progress io.Writer) *batch {
	return &batch{
		c:        c,
		workers:  workers,
		progress: progress,
		enc:      json.NewEncoder(out),
	}
}
