package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/noah-isme/session-archiver/internal/app"
	"github.com/noah-isme/session-archiver/internal/handler"
	"github.com/noah-isme/session-archiver/internal/service"
	"github.com/noah-isme/session-archiver/pkg/config"
	appErrors "github.com/noah-isme/session-archiver/pkg/errors"
	"github.com/noah-isme/session-archiver/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	daemon := flag.Bool("daemon", false, "keep running and archive on the ARCHIVER_CRON schedule")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		log.Printf("archiver: %v", err)
		return app.ExitFatal
	}
	defer a.Close()

	lifecycle, err := a.Lifecycle(ctx)
	if err != nil {
		a.Logger.Sugar().Errorw("failed to prepare lifecycle job", "error", err)
		return app.ExitFatal
	}

	if *daemon {
		return runDaemon(ctx, a, lifecycle)
	}
	return runOnce(ctx, a, lifecycle)
}

func runOnce(ctx context.Context, a *app.App, lifecycle *service.LifecycleService) int {
	runCtx, cancel := context.WithTimeout(ctx, a.Config.Archiver.RunTimeout)
	defer cancel()

	report, err := lifecycle.RunOnce(runCtx)
	switch {
	case errors.Is(err, appErrors.ErrLockNotAcquired):
		a.Logger.Sugar().Warnw("another archiver run is in progress, skipping", "error", err)
		return app.ExitOK
	case err != nil:
		a.Logger.Sugar().Errorw("lifecycle run aborted", "error", err)
		return app.ExitFatal
	case report.HasFailures():
		a.Logger.Sugar().Warnw("lifecycle run finished with failures", "failed_sessions", report.Failed)
		return app.ExitPartial
	}
	return app.ExitOK
}

func runDaemon(ctx context.Context, a *app.App, lifecycle *service.LifecycleService) int {
	sugar := a.Logger.Sugar()
	cronLog := logger.Cron(a.Logger)

	scheduler := cron.New(
		cron.WithLocation(a.Evaluator.Location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := scheduler.AddFunc(a.Config.Archiver.Cron, func() {
		runOnce(ctx, a, lifecycle)
	}); err != nil {
		sugar.Errorw("invalid archiver schedule", "cron", a.Config.Archiver.Cron, "error", err)
		return app.ExitFatal
	}

	if a.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Port),
		Handler:           handler.NewRouter(handler.NewMetricsHandler(a.Metrics, a.DB), a.Logger.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	scheduler.Start()
	sugar.Infow("archiver daemon started", "cron", a.Config.Archiver.Cron, "timezone", a.Evaluator.Location.String(), "addr", server.Addr)

	code := app.ExitOK
	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			sugar.Errorw("ops server failed", "error", err)
			code = app.ExitFatal
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("ops server shutdown", "error", err)
	}
	<-scheduler.Stop().Done()
	sugar.Infow("archiver daemon stopped")
	return code
}
