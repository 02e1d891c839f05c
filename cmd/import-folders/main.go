package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/config"
	"github.com/vanshika/nftgateway/internal/generator"
	"github.com/vanshika/nftgateway/internal/graph"
	"github.com/vanshika/nftgateway/internal/logging"
	"github.com/vanshika/nftgateway/internal/repository"
	"github.com/vanshika/nftgateway/internal/service"
)

func main() {
	var (
		file    = flag.String("file", "./data/folders.json", "Path to a folders.json dataset")
		workers = flag.Int("workers", 4, "Number of concurrent workers for import")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	base, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	logger := base.With(zap.String("component", "import-folders"))
	defer func() { _ = logger.Sync() }()

	dataset, err := generator.ReadDataset(*file)
	if err != nil {
		logger.Fatal("failed to load dataset", zap.Error(err), zap.String("path", *file))
	}
	if len(dataset.Records) == 0 {
		logger.Fatal("dataset empty", zap.String("path", *file))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	graphClient, err := buildGraphClient(ctx, logger, cfg)
	if err != nil {
		logger.Fatal("failed to create graph client", zap.Error(err))
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", zap.Error(err))
		}
	}()

	svc := service.NewFolderService(repository.New(graphClient), clock.WallClock, logger)
	importer := service.NewBulkImporter(svc, *workers, logger)

	start := time.Now()
	logger.Info("importing folders", zap.Int("count", len(dataset.Records)), zap.Int("workers", *workers))
	summary, err := importer.Import(ctx, dataset.Records)
	logger.Info("import finished",
		zap.Duration("duration", time.Since(start)),
		zap.Int("imported", summary.Imported),
		zap.Int("failed", summary.Failed),
	)
	if err != nil {
		var taskErr *service.TaskError
		if errors.As(err, &taskErr) {
			logger.Warn("some records were rejected", zap.Error(err))
			os.Exit(2)
		}
		logger.Fatal("import aborted", zap.Error(err))
	}
}

func buildGraphClient(ctx context.Context, logger *zap.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, errors.New("GRAPH_URI is required for import")
	}
	return graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}, logger.Named("graph"))
}
