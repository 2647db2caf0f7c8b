package engine

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// logger falls back to the default logger until main injects one
func logger() *slog.Logger {
	if Logger != nil {
		return Logger
	}
	return slog.Default()
}

// InitializeSchedules starts the blob sweeper when BLOB_MAX_AGE is set. The
// returned scheduler is nil when nothing was scheduled.
func (serverHandler *ServerHandler) InitializeSchedules() *cron.Cron {
	maxAge := serverHandler.ServerConfig.BlobMaxAge
	if maxAge <= 0 {
		Logger.Info("Blob sweeping disabled, object URLs live until revoked")
		return nil
	}
	interval := serverHandler.ServerConfig.SweepInterval
	if interval <= 0 {
		interval = maxAge
	}

	store := serverHandler.Converter.Store()
	c := cron.New()
	var sweepJob cron.Job
	sweepJob = cron.FuncJob(func() { store.Sweep(maxAge) })
	sweepJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(sweepJob) //ensure we don't kick off another if old one is still running
	if _, err := c.AddJob(fmt.Sprintf("@every %s", interval), sweepJob); err != nil {
		Logger.Error("Unable to schedule blob sweeper", "error", err)
		return nil
	}
	Logger.Info("Adding blob sweep scheduler", "interval", interval, "maxAge", maxAge)
	c.Start()
	return c
}
