// Command csvviz loads a delimited file, filters it, aggregates a chart series
// and exports the filtered table and chart image.
//
// Usage:
//
//	csvviz -src data/sales.csv -filter 'amount:greater-than:100' -kind bar -out out/
//	csvviz -config job.json -validate
//	csvviz -list sources.txt -kind pie -x region -y amount -out s3://reports/daily
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"csvviz/internal/config"
	"csvviz/internal/datasource/file"
	"csvviz/internal/logging"
	"csvviz/internal/metrics/backend"

	// Register every SQL query source; the job file picks one.
	_ "csvviz/internal/datasource/sqlds/all"
)

// main is the entry point. Exit status is 1 on any error, including a batch
// in which some sources failed.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fatalf("csvviz: %v", err)
	}
}

// options are the command-line settings that are not part of a job file.
type options struct {
	configPath string
	src        string
	list       string
	envFile    string
	validate   bool
	profile    bool
	verbose    bool
	workers    int
	pushURL    string
	ddAddr     string
}

// run parses args into a job, validates it and executes it, writing results
// to stdout and diagnostics to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("csvviz", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opt     options
		ov      jobFlags
		filters filterFlags
	)
	fs.StringVar(&opt.configPath, "config", "", "job config JSON path")
	fs.StringVar(&opt.src, "src", "", "source: local path, http(s) URL or s3://bucket/key")
	fs.StringVar(&opt.list, "list", "", "batch file with one \"uri [delimiter]\" per line")
	fs.StringVar(&opt.envFile, "env", "", "dotenv file (default .env when present)")
	fs.BoolVar(&opt.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&opt.profile, "profile", false, "print the column profile instead of the series")
	fs.BoolVar(&opt.verbose, "v", false, "enable verbose logs")
	fs.IntVar(&opt.workers, "workers", 4, "sources processed concurrently in -list mode")
	fs.StringVar(&opt.pushURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.StringVar(&opt.ddAddr, "datadog-addr", "", "DogStatsD address (overrides env DD_AGENT_ADDR)")
	ov.register(fs)
	fs.Var(&filters, "filter", "predicate field:operator[:operand]; repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opt.workers < 1 {
		return fmt.Errorf("-workers must be at least 1")
	}

	job, env, err := buildJob(fs, opt, ov, filters)
	if err != nil {
		return err
	}

	logger, err := logging.New(stderr, job.Log.Level, job.Log.Format)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)
	defer logging.SetLogger(nil)

	// Validate the job config.
	issues := config.ValidateJob(job)
	if opt.list != "" {
		issues = dropSourceIssues(issues)
	}
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return errors.New("configuration is invalid")
	}
	if opt.validate {
		fmt.Fprintln(stderr, "configuration is valid")
		return nil
	}

	stopMetrics, err := backend.Install(job.Job, job.Metrics)
	if err != nil {
		return err
	}
	defer stopMetrics()

	r, err := newRunner(job, env, opt, stdout)
	if err != nil {
		return err
	}

	start := time.Now()
	if opt.list != "" {
		entries, err := file.ReadList(opt.list)
		if err != nil {
			return err
		}
		err = r.batch(ctx, entries, opt.workers)
		logger.Info("batch finished", "sources", len(entries), "took", time.Since(start).Truncate(time.Millisecond))
		return err
	}
	if err := r.single(ctx); err != nil {
		return err
	}
	logger.Debug("completed", "took", time.Since(start).Truncate(time.Millisecond))
	return nil
}

// buildJob layers the job file, the -src flag, the environment and the
// remaining flags, in that order.
func buildJob(fs *flag.FlagSet, opt options, ov jobFlags, filters filterFlags) (config.Job, config.Env, error) {
	var job config.Job
	if opt.configPath != "" {
		var err error
		if job, err = config.Load(opt.configPath); err != nil {
			return config.Job{}, config.Env{}, err
		}
	}
	if opt.src != "" {
		src, err := sourceFromURI(opt.src)
		if err != nil {
			return config.Job{}, config.Env{}, err
		}
		job.Source = src
	}
	job.Defaults()

	var files []string
	if opt.envFile != "" {
		files = append(files, opt.envFile)
	}
	env, err := config.LoadEnv(files...)
	if err != nil {
		return config.Job{}, config.Env{}, err
	}
	env.ApplyEnv(&job)

	ov.apply(fs, &job)
	job.Filters = append(job.Filters, filters...)
	if opt.verbose {
		job.Log.Level = "debug"
	}
	if opt.pushURL != "" {
		job.Metrics.Options["url"] = opt.pushURL
	}
	if opt.ddAddr != "" {
		job.Metrics.Options["addr"] = opt.ddAddr
	}
	return job, env, nil
}

// dropSourceIssues removes source findings; in -list mode every entry names
// its own source.
func dropSourceIssues(issues []config.Issue) []config.Issue {
	out := issues[:0]
	for _, iss := range issues {
		if strings.HasPrefix(iss.Path, "source") {
			continue
		}
		out = append(out, iss)
	}
	return out
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
