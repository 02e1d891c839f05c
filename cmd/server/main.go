package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/cache"
	"github.com/vanshika/nftgateway/internal/config"
	"github.com/vanshika/nftgateway/internal/friends"
	"github.com/vanshika/nftgateway/internal/graph"
	"github.com/vanshika/nftgateway/internal/imageproxy"
	"github.com/vanshika/nftgateway/internal/logging"
	"github.com/vanshika/nftgateway/internal/metrics"
	"github.com/vanshika/nftgateway/internal/nftindexer"
	"github.com/vanshika/nftgateway/internal/portfolio"
	"github.com/vanshika/nftgateway/internal/repository"
	"github.com/vanshika/nftgateway/internal/server"
	"github.com/vanshika/nftgateway/internal/service"
	"github.com/vanshika/nftgateway/internal/social"
	"github.com/vanshika/nftgateway/internal/upstream"
)

var version = "dev"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	m, err := metrics.New()
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	c := cache.New(cacheConfig(cfg.Cache), clock.WallClock, m)
	client := upstream.NewClient(&http.Client{}, logger.Named("upstream"), m)

	resolver := social.NewResolver(social.Config{
		NeynarBaseURL:     cfg.Upstreams.NeynarBaseURL,
		NeynarAPIKey:      cfg.Upstreams.NeynarAPIKey,
		ZapperURLs:        zapperURLs(cfg.Upstreams),
		ZapperAPIKey:      cfg.Upstreams.ZapperAPIKey,
		PageSize:          cfg.Social.PageSize,
		MaxFollowingPages: cfg.Social.MaxFollowingPages,
	}, client, c, logger.Named("social"), clock.WallClock)

	indexer := nftindexer.New(nftindexer.Config{
		APIKey:          cfg.Upstreams.AlchemyAPIKey,
		BaseURLTemplate: cfg.Upstreams.AlchemyBaseURLTemplate,
	}, client, c, logger.Named("nftindexer"))

	images := imageproxy.New(imageproxy.Config{
		IPFSGateways: cfg.ImageProxy.IPFSGateways,
		CDNAPIKey:    cfg.ImageProxy.CDNAPIKey,
		MaxBytes:     cfg.ImageProxy.MaxBytes,
	}, upstream.NewClient(imageproxy.NewHTTPClient(), logger.Named("imageproxy"), m), c, logger.Named("imageproxy"), m)

	zapper := portfolio.New(portfolio.Config{
		URLs:   zapperURLs(cfg.Upstreams),
		APIKey: cfg.Upstreams.ZapperAPIKey,
	}, client, logger.Named("portfolio"))

	graphClient, store, err := buildFolderStore(ctx, logger, cfg)
	if err != nil {
		logger.Fatal("failed to create folder store", zap.Error(err))
	}
	defer func() {
		if graphClient != nil {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", zap.Error(err))
			}
		}
	}()
	folders := service.NewFolderService(store, clock.WallClock, logger.Named("folders"))

	var health server.HealthService
	if graphClient != nil {
		health = server.GraphHealthService{Client: graphClient}
	}

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:    health,
		Profiles:  resolver,
		Indexer:   indexer,
		Portfolio: zapper,
		Friends:   friends.NewEngine(resolver, indexer, c, logger.Named("friends")),
		Images:    images,
		Folders:   folders,
		Cache:     c,
		Metrics:   m,
		Upstreams: server.UpstreamStatus{
			NeynarConfigured:   cfg.Upstreams.NeynarAPIKey != "",
			NeynarPublicKey:    cfg.Upstreams.NeynarAPIKey == social.PublicAPIKey,
			AlchemyConfigured:  indexer.Configured(),
			ZapperConfigured:   zapper.Configured(),
			GraphConfigured:    graphClient != nil,
			IPFSGatewayCount:   len(cfg.ImageProxy.IPFSGateways),
			CDNKeyConfigured:   cfg.ImageProxy.CDNAPIKey != "",
			MetricsExported:    cfg.HTTP.MetricsEnabled,
			AuthDisabled:       cfg.Auth.Disabled,
			FollowingPageLimit: cfg.Social.MaxFollowingPages,
		},
		Auth:           cfg.Auth,
		Clock:          clock.WallClock,
		Version:        version,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MetricsEnabled: cfg.HTTP.MetricsEnabled,
	})

	srv := server.New(logger, cfg.HTTP, router)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(runCtx); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}

// buildFolderStore connects to Neo4j when GRAPH_URI is set and otherwise
// keeps folders in memory.
func buildFolderStore(ctx context.Context, logger *zap.Logger, cfg config.Config) (graph.Client, service.FolderStore, error) {
	if cfg.Graph.URI == "" {
		logger.Warn("GRAPH_URI not set, folders are kept in memory")
		return nil, repository.NewMemoryFolderStore(), nil
	}
	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}, logger.Named("graph"))
	if err != nil {
		return nil, nil, err
	}
	return client, repository.New(client), nil
}

func cacheConfig(cfg config.CacheConfig) cache.Config {
	return cache.Config{
		MaxEntries: cfg.MaxEntries,
		TTLs: map[cache.Kind]time.Duration{
			cache.KindGeneric:   cfg.DefaultTTL,
			cache.KindProfiles:  cfg.ProfileTTL,
			cache.KindFriends:   cfg.FriendsTTL,
			cache.KindTransfers: cfg.TransfersTTL,
		},
	}
}

func zapperURLs(cfg config.UpstreamConfig) []string {
	var urls []string
	for _, u := range []string{cfg.ZapperGraphQLURL, cfg.ZapperGraphQLBackupURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
