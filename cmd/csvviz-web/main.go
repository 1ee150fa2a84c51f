// Command csvviz-web serves the csvviz browser UI: upload a delimited file,
// filter it, chart it and export the results.
//
// Usage:
//
//	go run ./cmd/csvviz-web -addr :8080 -sessions 256 -max-upload 64MiB
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"csvviz/internal/config"
	"csvviz/internal/datasource/httpds"
	"csvviz/internal/logging"
	"csvviz/internal/metrics/backend"
	"csvviz/internal/webui"
)

// server is the part of *webui.Server that run needs; tests swap it out.
type server interface {
	ListenAndServe(ctx context.Context) error
}

var newServer = func(cfg webui.Config) (server, error) {
	s, err := webui.NewServer(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fatalf("csvviz-web: %v", err)
	}
}

// run parses args, installs the logger and metrics backend and serves until
// ctx is done.
func run(ctx context.Context, args []string, stderr io.Writer) error {
	def := config.DefaultWebConfig()
	fs := flag.NewFlagSet("csvviz-web", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfg         = def
		maxUpload   string
		envFile     string
		metricsName string
		pushURL     string
		ddAddr      string
		httpTimeout time.Duration
		httpRetries int
		insecure    bool
	)
	fs.StringVar(&cfg.Addr, "addr", def.Addr, "listen address")
	fs.IntVar(&cfg.Sessions, "sessions", def.Sessions, "maximum number of sessions kept in memory")
	fs.StringVar(&maxUpload, "max-upload", humanize.IBytes(uint64(def.MaxUploadBytes)), "largest accepted upload or download, e.g. 16MiB")
	fs.DurationVar(&cfg.StopTimeout, "stop-timeout", def.StopTimeout, "graceful shutdown timeout")
	fs.BoolVar(&cfg.AllowURL, "allow-url", def.AllowURL, "allow loading sources by URL")
	fs.DurationVar(&httpTimeout, "http-timeout", 30*time.Second, "timeout for URL downloads")
	fs.IntVar(&httpRetries, "http-retries", 2, "retries for failed URL downloads")
	fs.BoolVar(&insecure, "insecure", false, "skip TLS verification for URL downloads")
	fs.StringVar(&cfg.Log.Level, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&cfg.Log.Format, "log-format", "text", "log format: text or json")
	fs.StringVar(&envFile, "env", "", "dotenv file (default .env when present)")
	fs.StringVar(&metricsName, "metrics-backend", "none", "metrics backend: none, pushgateway or datadog")
	fs.StringVar(&pushURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.StringVar(&ddAddr, "datadog-addr", "", "DogStatsD address (overrides env DD_AGENT_ADDR)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	n, err := humanize.ParseBytes(maxUpload)
	if err != nil {
		return fmt.Errorf("-max-upload: %w", err)
	}
	cfg.MaxUploadBytes = int64(n)

	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	env, err := config.LoadEnv(files...)
	if err != nil {
		return err
	}
	if v, ok := env.Lookup(config.EnvLogLevel); ok && !flagSet(fs, "log-level") {
		cfg.Log.Level = v
	}
	if v, ok := env.Lookup(config.EnvLogFormat); ok && !flagSet(fs, "log-format") {
		cfg.Log.Format = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)

	m := config.Metrics{Backend: metricsName, Options: config.Options{}}
	if pushURL == "" {
		pushURL, _ = env.Lookup(config.EnvPushgateway)
	}
	if ddAddr == "" {
		ddAddr, _ = env.Lookup(config.EnvDatadogAddr)
	}
	m.Options["url"] = pushURL
	m.Options["addr"] = ddAddr
	stopMetrics, err := backend.Install("csvviz-web", m)
	if err != nil {
		return err
	}
	defer stopMetrics()

	srv, err := newServer(webui.Config{
		Addr:           cfg.Addr,
		Job:            "csvviz-web",
		Sessions:       cfg.Sessions,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowURL:       cfg.AllowURL,
		StopTimeout:    cfg.StopTimeout,
		HTTP: httpds.Config{
			Timeout:            httpTimeout,
			MaxRetries:         httpRetries,
			InsecureSkipVerify: insecure,
		},
	})
	if err != nil {
		return err
	}

	logger.Info("starting", "addr", cfg.Addr, "sessions", cfg.Sessions,
		"max_upload", humanize.IBytes(uint64(cfg.MaxUploadBytes)), "allow_url", cfg.AllowURL)
	return srv.ListenAndServe(ctx)
}

// flagSet reports whether name was given on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
