package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/zkkb/api/gatekeeperhandler"
	"github.com/ruteri/zkkb/cmd/flags"
	"github.com/ruteri/zkkb/common"
	"github.com/ruteri/zkkb/gatekeeper"
	"github.com/ruteri/zkkb/httpserver"
	"github.com/ruteri/zkkb/interfaces"
	"github.com/ruteri/zkkb/metrics"
	"github.com/ruteri/zkkb/storage"
	"github.com/urfave/cli/v2"
)

var serverFlags = append(append([]cli.Flag{
	flags.ListenAddrFlag,
	flags.RecordsURIFlag,
	flags.NullifierRedisFlag,
	flags.NullifierTTLFlag,
	flags.LogServiceFlagFn("zkkb-gatekeeper"),
}, flags.CommonFlags...), flags.ServerFlags...)

func main() {
	app := &cli.App{
		Name:  "gatekeeper",
		Usage: "Verify anonymous board membership proofs and track board roots",
		Flags: serverFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))

			ctx, cancel := context.WithCancel(cCtx.Context)
			defer cancel()

			storageFactory := storage.NewStorageBackendFactory(logger)
			recordsLocation, err := interfaces.NewStorageBackendLocation(cCtx.String(flags.RecordsURIFlag.Name))
			if err != nil {
				return err
			}
			records, err := storageFactory.RecordStoreFor(ctx, recordsLocation)
			if err != nil {
				logger.Error("Failed to open record store", "err", err)
				return err
			}

			var nullifiers gatekeeper.NullifierStore
			if redisURL := cCtx.String(flags.NullifierRedisFlag.Name); redisURL != "" {
				opts, err := redis.ParseURL(redisURL)
				if err != nil {
					return fmt.Errorf("invalid nullifier redis url: %w", err)
				}
				rdb := redis.NewClient(opts)
				defer rdb.Close()
				if err := rdb.Ping(ctx).Err(); err != nil {
					logger.Error("Failed to reach nullifier redis", "err", err)
					return err
				}
				nullifiers = gatekeeper.NewRedisNullifierStore(rdb, cCtx.Duration(flags.NullifierTTLFlag.Name))
			} else {
				logger.Warn("Keeping spent nullifiers in memory, they will be lost on restart")
				nullifiers = gatekeeper.NewMemoryNullifierStore()
			}

			metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
			if err != nil {
				return err
			}
			cfg.Metrics = metricsSrv

			gk := gatekeeper.New(
				gatekeeper.NewRootRegistry(records),
				nullifiers,
				gatekeeper.NewMetrics(metricsSrv.Namespace(), metricsSrv.Registerer()),
				logger,
			)

			server, err := httpserver.New(cfg, gatekeeperhandler.NewHandler(gk, logger))
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting gatekeeper",
				"records", records.Name(),
				"listenAddr", cfg.ListenAddr)
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			<-exit

			logger.Info("Shutting down")
			server.Shutdown()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
