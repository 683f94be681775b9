// Command ridership runs the subway ridership forecast pipeline.
//
// Usage:
//
//	ridership [flags] <command> [args]
//
// Commands:
//
//	migrate                           create or upgrade the database schema
//	ingest <ridership|weather|holiday> <key>
//	                                  load a raw CSV object into the database
//	prepare [roster|history]          build the feature table for the next day (roster)
//	                                  or rebuild it for a recorded date (history)
//	predict                           score the newest feature table with every family
//	reconcile                         persist one date of predictions
//	run                               prepare, predict and reconcile
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "embed"
	_ "time/tzdata"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"

	"github.com/tigerroll/ridership/internal/app"
	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/internal/step"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

//go:embed resources/application.yaml
var embeddedConfig []byte

func main() {
	envFile := flag.String("env", "", "path of the .env file (default $ENV_FILE_PATH or .env)")
	date := flag.String("date", "", "target date (YYYY-MM-DD); resolved from the data when empty")
	key := flag.String("key", "", "feature object read by predict")
	family := flag.String("family", "", "restrict predict to one model family")
	runID := flag.String("run-id", "", "run identifier carried in logs and spans (default: random)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <migrate|ingest|prepare|predict|reconcile|run> [args]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	params := step.Params{
		RunID:  *runID,
		Key:    *key,
		Family: *family,
		Args:   flag.Args()[1:],
	}
	if params.RunID == "" {
		params.RunID = uuid.NewString()
	}
	if *date != "" {
		d, err := time.Parse(model.DateLayout, *date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -date %q: %v\n", *date, err)
			os.Exit(2)
		}
		params.Date = d
	}

	path := *envFile
	if path == "" {
		path = os.Getenv("ENV_FILE_PATH")
	}
	if path == "" {
		path = ".env"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Cancelling the running command...", sig)
		cancel()
	}()

	code := app.Run(ctx, path, embeddedConfig, app.Command{Name: flag.Arg(0), Params: params})
	cancel()
	os.Exit(code)
}
