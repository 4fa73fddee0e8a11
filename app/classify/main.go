package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/Tezha3/phishing-url-detection/app"
	"github.com/Tezha3/phishing-url-detection/classify"
	"github.com/Tezha3/phishing-url-detection/config"
	"github.com/Tezha3/phishing-url-detection/store/models"
)

type output struct {
	*classify.Result
	Values  []float64        `json:"values"`
	History []models.Verdict `json:"history,omitempty"`
}

func main() {
	ctx := context.Background()

	confFile := flag.String("config", config.DefaultPath, "location of configuration file")
	url := flag.String("url", "", "url to classify")
	history := flag.Int("history", 0, "number of earlier verdicts for the url to include, when the store is enabled")
	flag.Parse()

	conf, err := config.ReadConfig(*confFile)
	if err != nil {
		log.Fatal().Msgf("error while reading configuration: %s", err)
	}
	level := app.SetupLogging(conf.LogLevel)
	if err := conf.IsValid(); err != nil {
		log.Fatal().Msgf("configuration is invalid: %s", err)
	}

	el, err := app.NewErrLogger(conf.Sentry, map[string]string{"app": "classify"}, level)
	if err != nil {
		log.Fatal().Msgf("error while creating error logger: %s", err)
	}

	s, err := classify.NewServiceFromConfig(conf, el)
	if err != nil {
		log.Fatal().Msgf("error while creating classifier: %s", err)
	}
	defer s.Close()

	// earlier verdicts are read before this one is recorded
	var earlier []models.Verdict
	if st, ok := s.Store(); ok && *history > 0 {
		earlier, err = st.VerdictsForURL(*url, *history)
		if err != nil {
			log.Warn().Msgf("failed to read verdict history: %s", err)
		}
	}

	res, err := s.Classify(ctx, *url)
	if err != nil {
		if err == classify.EmptyURLErr {
			log.Error().Msgf("%s", err)
			s.Close()
			os.Exit(2)
		}
		log.Fatal().Msgf("error while classifying url: %s", err)
	}

	log.Info().
		Str("url", res.URL).
		Str("label", res.Label).
		Msgf("confidence %.2f%%", res.Confidence)

	out := output{
		Result:  res,
		Values:  res.Features.Slice(),
		History: earlier,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Msgf("error while writing result: %s", err)
	}
}
