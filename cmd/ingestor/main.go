package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"reviewhub/internal/adapters/observability"
	"reviewhub/internal/adapters/platform"
	"reviewhub/internal/app"
	"reviewhub/internal/shared"
	mysqlrepo "reviewhub/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "ingestor")
	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	log.Info().
		Str("base", cfg.PlatformBase).
		Int("workers", cfg.Workers).
		Int("reviews", cfg.ReviewCount).
		Msg("ingestor starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := platform.New(cfg.PlatformBase, cfg.PlatformKey, cfg.PlatformRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize platform client")
	}
	ing := app.NewIngestionService(client, repo)

	links, err := ing.Links(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list platform links failed")
	}

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)

	for _, link := range links {
		link := link
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("ingestion interrupted")
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			err := ing.IngestLink(ctx, link, cfg.ReviewCount)
			observability.ObserveIngest(link.Platform.String(), err)
			if err != nil {
				failed.Add(1)
				log.Warn().Int64("branch_id", link.BranchID).Str("platform", link.Platform.String()).Err(err).Msg("ingest failed")
				return
			}
			log.Info().Int64("branch_id", link.BranchID).Str("platform", link.Platform.String()).Msg("ingest ok")
		}()
	}

	wg.Wait()
	log.Info().Int("links", len(links)).Int64("failed", failed.Load()).Msg("ingestion completed")
	if failed.Load() > 0 {
		os.Exit(1)
	}
}
