package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	app "github.com/kavex/exchange/internal/app/engine"
	"github.com/kavex/exchange/internal/usecase/marketdata"
	"github.com/kavex/exchange/internal/usecase/matching"
	orderreader "github.com/kavex/exchange/internal/usecase/order-reader"
	"github.com/kavex/exchange/internal/usecase/refdata"
	"github.com/kavex/exchange/internal/usecase/reporting"
	"github.com/kavex/exchange/internal/usecase/snapshot"
	"github.com/kavex/exchange/pkg/config"
	"github.com/kavex/exchange/pkg/logger"
	"github.com/kavex/exchange/pkg/redis"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	cfg = &config.Config{}
	if err := config.Load(cfg); err != nil {
		panic(err)
	}

	l, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	log = l
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	redisConfig := redis.DefaultConfig()
	redisConfig.Addrs = strings.Split(cfg.RedisConfig.Addrs, ",")
	redisConfig.Password = cfg.RedisConfig.Password
	redisConfig.Username = cfg.RedisConfig.Username
	redisConfig.DB = cfg.RedisConfig.DB

	rclient := redis.NewClient(log, redisConfig)
	if err := rclient.Connect(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "connect_redis",
		})
		return
	}

	var directory *refdata.Directory
	if cfg.SymbolsFile != "" {
		directory = refdata.NewDirectory(log)
		if err := directory.LoadFile(cfg.SymbolsFile); err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "load_symbols",
			})
			return
		}
	}

	matcher := matching.NewEngine(
		matching.Config{StrictSymbols: cfg.StrictSymbols},
		directory,
		log,
	)

	oReader := orderreader.NewReader(cfg.KafkaConfig, log)
	snapshotStore := snapshot.NewRedisStore(rclient, log)
	reportPublisher := reporting.NewPublisher(cfg.ReportsConfig, log)
	depthPublisher := marketdata.NewPublisher(cfg.MarketDataConfig, rclient, log)

	options := app.DefaultEngineOptions()
	options.SnapshotInterval = cfg.SnapshotConfig.Interval
	options.SnapshotOffsetDelta = cfg.SnapshotConfig.OffsetDelta
	options.DepthLevels = cfg.MarketDataConfig.DepthLevels

	engine := app.NewEngine(
		matcher,
		directory,
		oReader,
		snapshotStore,
		reportPublisher,
		depthPublisher,
		log,
		options,
	)

	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "start_engine",
		})
		return
	}

	log.Info("Matching engine started successfully")

	sig := <-sigChan
	log.Info("Received shutdown signal", logger.Field{
		Key:   "signal",
		Value: sig.String(),
	})

	cancel()
	engine.Stop()

	if err := reportPublisher.Close(); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "close_report_publisher",
		})
	}
	if err := rclient.Close(); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "close_redis_client",
		})
	}

	log.Info("Matching engine shutdown complete")
}
