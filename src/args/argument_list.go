// Package args collects the process configuration for the doctor binary.
// Connection settings come from flags or the environment (a .env file is
// honored); classification thresholds come from an optional YAML file. The
// diagnostics engine itself only ever sees the resulting Options value.
package args

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
)

type ArgumentList struct {
	// DSN is the Oracle connect string, e.g. oracle://host:1521/service.
	DSN      string
	Username string
	Password string

	// Diagnostic selects the one-shot diagnostic to run: blocking, cpu,
	// long_ops, parallelism, full_scans or report.
	Diagnostic string
	// Serve starts the HTTP layer instead of a one-shot run.
	Serve    bool
	HTTPAddr string

	// WindowStart/WindowEnd bound the incident window for windowed
	// diagnostics, RFC3339. Empty means the last WindowBack interval.
	WindowStart string
	WindowEnd   string
	WindowBack  time.Duration

	// ThresholdsFile optionally overrides the default classification
	// thresholds from YAML.
	ThresholdsFile string

	Verbose bool
}

// Parse reads flags with environment fallbacks matching the variables the
// original tooling used (DB_URL, DB_USER, DB_PASSWORD).
func Parse() ArgumentList {
	var a ArgumentList
	flag.StringVar(&a.DSN, "dsn", os.Getenv("DB_URL"), "Oracle connect string")
	flag.StringVar(&a.Username, "user", os.Getenv("DB_USER"), "database user")
	flag.StringVar(&a.Password, "password", os.Getenv("DB_PASSWORD"), "database password")
	flag.StringVar(&a.Diagnostic, "diagnostic", "report", "diagnostic to run: blocking, cpu, long_ops, parallelism, full_scans, report")
	flag.BoolVar(&a.Serve, "serve", false, "expose the diagnostics over HTTP instead of a one-shot run")
	flag.StringVar(&a.HTTPAddr, "http-addr", getenv("HTTP_ADDR", ":8080"), "listen address for -serve")
	flag.StringVar(&a.WindowStart, "start", "", "incident window start, RFC3339")
	flag.StringVar(&a.WindowEnd, "end", "", "incident window end, RFC3339")
	flag.DurationVar(&a.WindowBack, "window", time.Hour, "window length when -start is not given")
	flag.StringVar(&a.ThresholdsFile, "thresholds", os.Getenv("THRESHOLDS_FILE"), "YAML file overriding classification thresholds")
	flag.BoolVar(&a.Verbose, "verbose", false, "enable debug logging")
	flag.Parse()
	return a
}

// Window resolves the requested incident window.
func (a ArgumentList) Window(now time.Time) (time.Time, time.Time, error) {
	t1 := now
	if a.WindowEnd != "" {
		parsed, err := time.Parse(time.RFC3339, a.WindowEnd)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing -end: %w", err)
		}
		t1 = parsed
	}
	t0 := t1.Add(-a.WindowBack)
	if a.WindowStart != "" {
		parsed, err := time.Parse(time.RFC3339, a.WindowStart)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing -start: %w", err)
		}
		t0 = parsed
	}
	if !t0.Before(t1) {
		return time.Time{}, time.Time{}, fmt.Errorf("window start %s is not before end %s", t0, t1)
	}
	return t0, t1, nil
}

// LoadOptions returns the classification thresholds: defaults, overlaid with
// the YAML file when one is configured.
func (a ArgumentList) LoadOptions() (models.Options, error) {
	opts := models.DefaultOptions()
	if a.ThresholdsFile == "" {
		return opts, nil
	}

	data, err := os.ReadFile(a.ThresholdsFile)
	if err != nil {
		return opts, fmt.Errorf("reading thresholds file: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parsing thresholds file: %w", err)
	}
	return opts, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
