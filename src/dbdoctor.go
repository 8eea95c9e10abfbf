package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	arguments "github.com/matz-e/oci-db-doctor/src/args"
	"github.com/matz-e/oci-db-doctor/src/diagnostics"
	"github.com/matz-e/oci-db-doctor/src/oracle"
	"github.com/matz-e/oci-db-doctor/src/server"
)

var (
	buildVersion = "0.0.0"
	gitCommit    = ""
)

func main() {
	// A missing .env is fine, flags and the environment still apply.
	_ = godotenv.Load()

	args := arguments.Parse()
	if args.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	opts, err := args.LoadOptions()
	fatalIfErr(err)

	db, err := oracle.OpenSQLXDB(buildDSN(args))
	fatalIfErr(err)
	defer db.Close()

	engine, err := diagnostics.NewEngine(oracle.NewSessionReader(db), oracle.NewWindowReader(db), opts)
	fatalIfErr(err)

	if args.Serve {
		log.WithFields(log.Fields{
			"addr":    args.HTTPAddr,
			"version": buildVersion,
			"commit":  gitCommit,
		}).Info("starting diagnostics server")
		fatalIfErr(server.New(engine, db).Router().Run(args.HTTPAddr))
		return
	}

	fatalIfErr(runOnce(engine, args))
}

func runOnce(engine *diagnostics.Engine, args arguments.ArgumentList) error {
	ctx := context.Background()

	var result any
	switch args.Diagnostic {
	case "blocking":
		reports, err := engine.AnalyzeBlocking(ctx)
		if err != nil {
			return err
		}
		result = reports
	case "cpu", "long_ops", "report":
		t0, t1, err := args.Window(time.Now().UTC())
		if err != nil {
			return err
		}
		switch args.Diagnostic {
		case "cpu":
			result, err = engine.AnalyzeCPUSaturation(ctx, t0, t1)
		case "long_ops":
			result, err = engine.AnalyzeLongOperations(ctx, t0, t1)
		default:
			result, err = engine.AssembleReport(ctx, t0, t1)
		}
		if err != nil {
			return err
		}
	case "parallelism":
		findings, err := engine.AnalyzeParallelism(ctx)
		if err != nil {
			return err
		}
		result = findings
	case "full_scans":
		findings, err := engine.AnalyzeFullScans(ctx)
		if err != nil {
			return err
		}
		result = findings
	default:
		return fmt.Errorf("unknown diagnostic %q", args.Diagnostic)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// buildDSN assembles the go-ora connect string from the separate credential
// arguments unless the DSN already embeds a user.
func buildDSN(args arguments.ArgumentList) string {
	parsed, err := url.Parse(args.DSN)
	if err != nil || parsed.Host == "" || parsed.User != nil || args.Username == "" {
		return args.DSN
	}
	parsed.User = url.UserPassword(args.Username, args.Password)
	return parsed.String()
}

func fatalIfErr(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
