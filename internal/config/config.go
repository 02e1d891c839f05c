package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP       HTTPConfig
	Graph      GraphConfig
	Logging    LoggingConfig
	Upstreams  UpstreamConfig
	ImageProxy ImageProxyConfig
	Cache      CacheConfig
	Social     SocialConfig
	Auth       AuthConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	MetricsEnabled  bool
	AllowedOrigins  []string
}

// GraphConfig describes connectivity to the Neo4j folder store. An empty URI
// selects the in-memory store.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // json|console
	IncludeCaller bool
}

// UpstreamConfig holds credentials and endpoints of the three upstream APIs.
type UpstreamConfig struct {
	NeynarAPIKey           string
	NeynarBaseURL          string
	AlchemyAPIKey          string
	AlchemyBaseURLTemplate string
	ZapperAPIKey           string
	ZapperGraphQLURL       string
	ZapperGraphQLBackupURL string
}

// ImageProxyConfig tunes the media proxy.
type ImageProxyConfig struct {
	IPFSGateways []string
	CDNAPIKey    string
	MaxBytes     int64
}

// CacheConfig sets per-kind TTLs and the per-kind entry bound.
type CacheConfig struct {
	MaxEntries   int
	DefaultTTL   time.Duration
	ProfileTTL   time.Duration
	FriendsTTL   time.Duration
	TransfersTTL time.Duration
}

// SocialConfig bounds following enumeration.
type SocialConfig struct {
	MaxFollowingPages int
	PageSize          int
}

// AuthConfig controls caller identification on folder routes.
type AuthConfig struct {
	Disabled      bool
	DefaultUserID string
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 60 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultRequestTimeout   = 30 * time.Second
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "json"
	defaultGraphMaxSessions = 10
	defaultNeynarBaseURL    = "https://api.neynar.com"
	defaultNeynarAPIKey     = "NEYNAR_API_DOCS"
	defaultAlchemyTemplate  = "https://{network}.g.alchemy.com"
	defaultZapperURL        = "https://public.zapper.xyz/graphql"
	defaultZapperBackupURL  = "https://api.zapper.xyz/v2/graphql"
	defaultIPFSGateways     = "https://ipfs.io/ipfs/,https://dweb.link/ipfs/,https://w3s.link/ipfs/,https://gateway.pinata.cloud/ipfs/"
	defaultImageMaxBytes    = 25 << 20
	defaultCacheMaxEntries  = 1000
	defaultCacheTTL         = 5 * time.Minute
	defaultLongCacheTTL     = 10 * time.Minute
	defaultFollowingPages   = 100
	defaultFollowingSize    = 100
	defaultUserID           = "dev-user"
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration through v, which may carry overrides set by the caller.
func LoadFrom(v *viper.Viper) (Config, error) {
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		HTTP: HTTPConfig{
			Host:           v.GetString("server_host"),
			MetricsEnabled: v.GetBool("server_metrics_enabled"),
			AllowedOrigins: splitCSV(v.GetString("server_allowed_origins")),
		},
		Logging: LoggingConfig{
			Level:         v.GetString("log_level"),
			Format:        v.GetString("log_format"),
			IncludeCaller: v.GetBool("log_include_caller"),
		},
		Graph: GraphConfig{
			URI:      v.GetString("graph_uri"),
			Database: v.GetString("graph_database"),
			Username: v.GetString("graph_username"),
			Password: v.GetString("graph_password"),
		},
		Upstreams: UpstreamConfig{
			NeynarAPIKey:           v.GetString("neynar_api_key"),
			NeynarBaseURL:          v.GetString("neynar_base_url"),
			AlchemyAPIKey:          v.GetString("alchemy_api_key"),
			AlchemyBaseURLTemplate: v.GetString("alchemy_base_url_template"),
			ZapperAPIKey:           v.GetString("zapper_api_key"),
			ZapperGraphQLURL:       v.GetString("zapper_graphql_url"),
			ZapperGraphQLBackupURL: v.GetString("zapper_graphql_backup_url"),
		},
		ImageProxy: ImageProxyConfig{
			IPFSGateways: splitCSV(v.GetString("ipfs_gateways")),
			CDNAPIKey:    v.GetString("nft_cdn_api_key"),
		},
		Auth: AuthConfig{
			Disabled:      v.GetBool("disable_auth"),
			DefaultUserID: v.GetString("default_user_id"),
		},
	}
	if cfg.ImageProxy.CDNAPIKey == "" {
		cfg.ImageProxy.CDNAPIKey = cfg.Upstreams.AlchemyAPIKey
	}

	var err error
	if cfg.HTTP.Port, err = parsePort(v, "server_port"); err != nil {
		return Config{}, err
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"server_read_timeout", &cfg.HTTP.ReadTimeout},
		{"server_write_timeout", &cfg.HTTP.WriteTimeout},
		{"server_idle_timeout", &cfg.HTTP.IdleTimeout},
		{"server_shutdown_timeout", &cfg.HTTP.ShutdownTimeout},
		{"server_request_timeout", &cfg.HTTP.RequestTimeout},
		{"cache_default_ttl", &cfg.Cache.DefaultTTL},
		{"cache_profile_ttl", &cfg.Cache.ProfileTTL},
		{"cache_friends_ttl", &cfg.Cache.FriendsTTL},
		{"cache_transfers_ttl", &cfg.Cache.TransfersTTL},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(v, d.key); err != nil {
			return Config{}, err
		}
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"graph_max_connections", &cfg.Graph.MaxConnections},
		{"cache_max_entries", &cfg.Cache.MaxEntries},
		{"social_max_following_pages", &cfg.Social.MaxFollowingPages},
		{"social_page_size", &cfg.Social.PageSize},
	}
	for _, i := range ints {
		if *i.dst, err = parsePositiveInt(v, i.key); err != nil {
			return Config{}, err
		}
	}
	maxBytes, err := parsePositiveInt(v, "image_proxy_max_bytes")
	if err != nil {
		return Config{}, err
	}
	cfg.ImageProxy.MaxBytes = int64(maxBytes)

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("invalid LOG_FORMAT %q: want json or console", cfg.Logging.Format)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_host", defaultHost)
	v.SetDefault("server_port", strconv.Itoa(defaultPort))
	v.SetDefault("server_read_timeout", defaultReadTimeout.String())
	v.SetDefault("server_write_timeout", defaultWriteTimeout.String())
	v.SetDefault("server_idle_timeout", defaultIdleTimeout.String())
	v.SetDefault("server_shutdown_timeout", defaultShutdownTimeout.String())
	v.SetDefault("server_request_timeout", defaultRequestTimeout.String())
	v.SetDefault("server_metrics_enabled", false)
	v.SetDefault("server_allowed_origins", "*")
	v.SetDefault("log_level", defaultLoggingLevel)
	v.SetDefault("log_format", defaultLoggingFormat)
	v.SetDefault("log_include_caller", false)
	v.SetDefault("graph_max_connections", strconv.Itoa(defaultGraphMaxSessions))
	v.SetDefault("neynar_api_key", defaultNeynarAPIKey)
	v.SetDefault("neynar_base_url", defaultNeynarBaseURL)
	v.SetDefault("alchemy_base_url_template", defaultAlchemyTemplate)
	v.SetDefault("zapper_graphql_url", defaultZapperURL)
	v.SetDefault("zapper_graphql_backup_url", defaultZapperBackupURL)
	v.SetDefault("ipfs_gateways", defaultIPFSGateways)
	v.SetDefault("image_proxy_max_bytes", strconv.Itoa(defaultImageMaxBytes))
	v.SetDefault("cache_max_entries", strconv.Itoa(defaultCacheMaxEntries))
	v.SetDefault("cache_default_ttl", defaultCacheTTL.String())
	v.SetDefault("cache_profile_ttl", defaultLongCacheTTL.String())
	v.SetDefault("cache_friends_ttl", defaultLongCacheTTL.String())
	v.SetDefault("cache_transfers_ttl", defaultLongCacheTTL.String())
	v.SetDefault("social_max_following_pages", strconv.Itoa(defaultFollowingPages))
	v.SetDefault("social_page_size", strconv.Itoa(defaultFollowingSize))
	v.SetDefault("disable_auth", false)
	v.SetDefault("default_user_id", defaultUserID)
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ToUpper(key), err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: %s must be positive", strings.ToUpper(key), raw)
	}
	return d, nil
}

func parsePositiveInt(v *viper.Viper, key string) (int, error) {
	raw := v.GetString(key)
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", strings.ToUpper(key), raw, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", strings.ToUpper(key), raw)
	}
	return n, nil
}

func parsePort(v *viper.Viper, key string) (int, error) {
	port, err := parsePositiveInt(v, key)
	if err != nil {
		return 0, err
	}
	if port > 65535 {
		return 0, fmt.Errorf("port %d is out of range", port)
	}
	return port, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
