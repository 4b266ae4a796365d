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
		limit      int
		reportPath string
	)
	flag.BoolVar(&dryRun, "dry-run", false, "list restorable enrollments without moving them")
	flag.IntVar(&limit, "limit", 0, "process at most this many matches (0 = all)")
	flag.StringVar(&reportPath, "report", "", "write per-row outcomes to this .csv or .pdf file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		log.Printf("restore_enrollments: %v", err)
		return app.ExitFatal
	}
	defer a.Close()

	report, err := a.Restore().Restore(ctx, service.RestoreRequest{DryRun: dryRun, Limit: limit})
	if err != nil {
		a.Logger.Sugar().Errorw("restore failed", "error", err)
		return app.ExitFatal
	}

	fmt.Printf("scanned: %d, matched: %d, restored: %d, sessions revived: %d, skipped: %d, failed: %d, dry run: %t\n",
		report.Scanned, report.Matched, report.Restored, report.SessionsRevived, report.Skipped, report.Failed, report.DryRun)

	if reportPath != "" {
		exporter, err := a.Exporter()
		if err != nil {
			a.Logger.Sugar().Errorw("report storage unavailable", "error", err)
			return app.ExitFatal
		}
		path, err := exporter.Write(reportPath, "Restored enrollments", service.RestoreDataset(report), a.Clock.Now())
		if err != nil {
			a.Logger.Sugar().Errorw("failed to write report", "error", err)
			return app.ExitFatal
		}
		fmt.Printf("report: %s\n", path)
	}

	if report.Failed > 0 {
		return app.ExitPartial
	}
	return app.ExitOK
}
