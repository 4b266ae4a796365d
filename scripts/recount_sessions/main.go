package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/noah-isme/session-archiver/internal/app"
	"github.com/noah-isme/session-archiver/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dryRun     bool
		reportPath string
	)
	flag.BoolVar(&dryRun, "dry-run", false, "list drifted counters without fixing them")
	flag.StringVar(&reportPath, "report", "", "write drifted sessions to this .csv or .pdf file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		log.Printf("recount_sessions: %v", err)
		return app.ExitFatal
	}
	defer a.Close()

	code := app.ExitOK
	report, err := a.Counters().Reconcile(ctx, dryRun)
	if err != nil {
		// Recount failures still leave a usable report; listing failures do not.
		if report.Drifted == 0 {
			a.Logger.Sugar().Errorw("recount failed", "error", err)
			return app.ExitFatal
		}
		code = app.ExitPartial
	}

	fmt.Printf("drifted sessions: %d, fixed: %d, dry run: %t\n", report.Drifted, report.Fixed, report.DryRun)

	if reportPath != "" {
		exporter, err := a.Exporter()
		if err != nil {
			a.Logger.Sugar().Errorw("report storage unavailable", "error", err)
			return app.ExitFatal
		}
		path, err := exporter.Write(reportPath, "Session counter drift", service.ReconcileDataset(report), a.Clock.Now())
		if err != nil {
			a.Logger.Sugar().Errorw("failed to write report", "error", err)
			return app.ExitFatal
		}
		fmt.Printf("report: %s\n", path)
	}
	return code
}
