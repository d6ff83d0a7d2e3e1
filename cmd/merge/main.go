package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"datamerge/internal/config"
	"datamerge/internal/merge"
	"datamerge/internal/metrics"
	"datamerge/internal/metrics/datadog"
	"datamerge/internal/output"

	// register all run history backends with the store factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "datamerge/internal/store/all"
)

// main is the entry point for the merge binary. It loads the job config,
// optionally initializes a metrics backend, and executes the merge run.
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		previewRows       int
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "", "merge job config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (datadog, none)")
	flag.IntVar(&previewRows, "preview", 0, "print the first N merged rows as a table (overrides config)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if cfgPath == "" {
		fmt.Fprintln(os.Stderr, "usage: merge -config path/to/job.json")
		os.Exit(2)
	}

	job, err := config.LoadJob(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.Validate(job)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	// Decide metrics backend: flag -> env -> default (none).
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "datadog":
		// The Datadog backend buffers metrics and submits periodically,
		// with one final submit at shutdown (Close).
		jobName := job.Name
		if jobName == "" {
			jobName = "datamerge"
		}
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))

		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: jobName,
			Tags:    extraTags,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=%v job_name=%v tags=%v", backendName, jobName, extraTags)
			metrics.SetBackend(b)
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	runner := merge.NewDefaultRunner()
	if *verbose {
		runner.Logger = log.Default()
	}

	start := time.Now()
	res, err := runner.Run(context.Background(), job)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if n := previewLimit(previewRows, job); n > 0 {
		output.Preview(os.Stderr, res.Header, res.Records, n)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// previewLimit prefers the -preview flag over the config value.
func previewLimit(flagRows int, job config.Job) int {
	if flagRows > 0 {
		return flagRows
	}
	return job.Output.PreviewRows
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
