package main

import (
	"context"
	"flag"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Tezha3/phishing-url-detection/app"
	"github.com/Tezha3/phishing-url-detection/classify"
	"github.com/Tezha3/phishing-url-detection/config"
)

func main() {
	ctx := context.Background()

	confFile := flag.String("config", config.DefaultPath, "location of configuration file")
	input := flag.String("input", "", "file with one url per line (stdin if empty)")
	output := flag.String("output", "", "file to write JSON lines to (stdout if empty)")
	repeat := flag.Int("repeat", 1, "number of times to classify the input, negative to repeat forever")
	interval := flag.Duration("interval", time.Hour, "time between repetitions")
	description := flag.String("description", "batch classification", "description of the run in the verdict history")
	host := flag.String("host", "", "host the run is executed on")
	flag.Parse()

	conf, err := config.ReadConfig(*confFile)
	if err != nil {
		log.Fatal().Msgf("error while reading configuration: %s", err)
	}
	level := app.SetupLogging(conf.LogLevel)
	if err := conf.IsValid(); err != nil {
		log.Fatal().Msgf("configuration is invalid: %s", err)
	}

	el, err := app.NewErrLogger(conf.Sentry, map[string]string{"app": "batch"}, level)
	if err != nil {
		log.Fatal().Msgf("error while creating error logger: %s", err)
	}

	var in io.Reader = os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatal().Msgf("failed to open input: %s", err)
		}
		defer f.Close()
		in = f
	}
	urls, err := readURLs(in)
	if err != nil {
		log.Fatal().Msgf("error while reading input: %s", err)
	}

	var out io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatal().Msgf("failed to create output: %s", err)
		}
		defer f.Close()
		out = f
	}

	s, err := classify.NewServiceFromConfig(conf, el)
	if err != nil {
		log.Fatal().Msgf("error while creating classifier: %s", err)
	}
	defer s.Close()

	if *host == "" {
		*host, _ = os.Hostname()
	}
	if st, ok := s.Store(); ok {
		ruid, err := st.StartRun(*description, *host)
		if err != nil {
			log.Fatal().Msgf("failed to start run: %s", err)
		}
		log.Info().Msgf("started run %s", ruid)
		defer func() {
			if err := st.StopRun(); err != nil {
				log.Error().Msgf("failed to stop run: %s", err)
			}
		}()
	}

	b := newBatch(s, conf.WorkerCount, out, os.Stderr)

	fn := func(t time.Time) error {
		log.Info().Msgf("classifying %d urls", len(urls))
		sum, err := b.run(ctx, urls)
		if err != nil {
			return err
		}
		log.Info().
			Int("phishing", sum.Phishing).
			Int("legitimate", sum.Legitimate).
			Int("failed", sum.Failed).
			Msgf("classified %d urls in %s", sum.Total, time.Since(t))
		return nil
	}
	if err := app.Repeat(ctx, fn, time.Now(), *interval, *repeat); err != nil {
		log.Error().Msgf("error while classifying urls: %s", err)
	}
}
