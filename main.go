package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	bpm "github.com/wyverndb/wyvern/buffer_pool_manager"
	"github.com/wyverndb/wyvern/config"
	"github.com/wyverndb/wyvern/logger"
)

func main() {

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg := config.Default()

	if *configPath != "" {

		loaded, err := config.Load(*configPath)

		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log, err := logger.New(cfg.Logger)

	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var disk bpm.DiskManager

	if cfg.DirectIO {
		disk = bpm.NewDirectIODiskManager(log)
	} else {
		disk = bpm.NewOSBufferedDiskManager(log)
	}

	fd, err := disk.OpenFile(cfg.DataFile)

	if err != nil {
		log.Fatal("failed to open data file", zap.String("path", cfg.DataFile), zap.Error(err))
	}

	var registerer prometheus.Registerer

	if cfg.Metrics.Enabled {

		registerer = prometheus.DefaultRegisterer

		go func() {
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			http.Handle("/metrics", promhttp.Handler())

			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	replacer := bpm.NewLRUReplacer()
	pool := bpm.NewBufferPoolManager(cfg.PoolSize, replacer, disk, log, registerer)

	log.Info("wyvern storage layer ready",
		zap.Int("poolSize", cfg.PoolSize),
		zap.String("dataFile", cfg.DataFile),
		zap.Bool("directIO", cfg.DirectIO))

	if err := pool.FlushAllPages(fd); err != nil {
		log.Error("flush failed", zap.Error(err))
	}

	if err := pool.Close(); err != nil {
		log.Error("failed to close buffer pool", zap.Error(err))
	}

	if err := disk.CloseFile(fd); err != nil {
		log.Error("failed to close data file", zap.Error(err))
	}
}
