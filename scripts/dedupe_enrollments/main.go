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
		sessionID  string
		reportPath string
	)
	flag.BoolVar(&dryRun, "dry-run", false, "report duplicates without deleting anything")
	flag.StringVar(&sessionID, "session", "", "only resolve duplicates in this session (skips the unique index)")
	flag.StringVar(&reportPath, "report", "", "write the removed rows to this .csv or .pdf file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		log.Printf("dedupe_enrollments: %v", err)
		return app.ExitFatal
	}
	defer a.Close()

	report, err := a.Dedupe().Resolve(ctx, service.DedupeRequest{DryRun: dryRun, SessionID: sessionID})
	if err != nil {
		a.Logger.Sugar().Errorw("dedupe failed", "error", err)
		return app.ExitFatal
	}

	verb := "deleted"
	if dryRun {
		verb = "would delete"
	}
	fmt.Printf("duplicate groups: %d, %s: %d, counter decrements: %d, unique index ensured: %t\n",
		report.Groups, verb, report.Deleted, report.Decrements, report.ConstraintEnsured)

	if reportPath != "" {
		exporter, err := a.Exporter()
		if err != nil {
			a.Logger.Sugar().Errorw("report storage unavailable", "error", err)
			return app.ExitFatal
		}
		path, err := exporter.Write(reportPath, "Duplicate enrollments", service.DedupeDataset(report), a.Clock.Now())
		if err != nil {
			a.Logger.Sugar().Errorw("failed to write report", "error", err)
			return app.ExitFatal
		}
		fmt.Printf("report: %s\n", path)
	}
	return app.ExitOK
}
