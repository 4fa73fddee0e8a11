package classify

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Tezha3/phishing-url-detection/app"
	"github.com/Tezha3/phishing-url-detection/collectors/page"
	"github.com/Tezha3/phishing-url-detection/collectors/registry"
	"github.com/Tezha3/phishing-url-detection/config"
	"github.com/Tezha3/phishing-url-detection/metrics"
	"github.com/Tezha3/phishing-url-detection/model"
	"github.com/Tezha3/phishing-url-detection/store"
)

// NewServiceFromConfig loads the model and sets up every collaborator of the
// service. Failing to load the model is fatal for the caller.
func NewServiceFromConfig(conf config.Config, errLogger app.ErrLogger) (*Service, error) {
	m, err := model.LoadXGBoost(conf.Model.Path)
	if err != nil {
		return nil, err
	}
	log.Debug().Msgf("loaded model from %s", conf.Model.Path)

	opts := Opts{
		Fetcher:   page.New(conf.Fetch, nil),
		Registry:  registry.NewCachedClient(registry.NewWhoisClient(conf.Registry), conf.Registry.CacheSize),
		Metrics:   metrics.NewService(conf.InfluxDB),
		ErrLogger: errLogger,
	}

	var st *store.Store
	if conf.Store.Enabled {
		st, err = store.NewStore(conf.Store)
		if err != nil {
			opts.Metrics.Close()
			return nil, errors.Wrap(err, "open store")
		}
		opts.Recorder = st
	}

	s := NewService(m, opts)
	if st != nil {
		s.closers = append(s.closers, st)
	}
	return s, nil
}

// Store returns the verdict history the service records to, if any.
func (s *Service) Store() (*store.Store, bool) {
	st, ok := s.recorder.(*store.Store)
	return st, ok
}
