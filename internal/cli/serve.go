package cli

import (
	"fmt"

	redis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Eran5102/Valuation-sub003/internal/auditstore"
	appconfig "github.com/Eran5102/Valuation-sub003/internal/config"
	"github.com/Eran5102/Valuation-sub003/internal/httpapi"
	"github.com/Eran5102/Valuation-sub003/internal/resultcache"
	"github.com/Eran5102/Valuation-sub003/internal/telemetry"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the waterfall analyzer over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appconfig.Default()
			if configPath != "" {
				var err error
				cfg, err = appconfig.Load(configPath)
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
			}

			cache, err := buildCache(cfg.Cache)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			metrics := telemetry.NewMetricsRegistry()

			srvCfg := httpapi.DefaultConfig()
			srvCfg.Addr = cfg.Server.Addr
			srvCfg.RateLimitPerSecond = float64(cfg.Server.RateLimitPerSecond)
			srvCfg.RateLimitBurst = cfg.Server.RateLimitBurst
			srvCfg.CacheTTL = cfg.Cache.DefaultTTL()

			server := httpapi.NewServer(srvCfg, cache, metrics, log.Logger)

			if cfg.AuditStore.Enabled {
				store, err := auditstore.Open(auditstore.DefaultConfig(cfg.AuditStore.DSN))
				if err != nil {
					log.Warn().Err(err).Msg("serve: audit-store persistence disabled: could not connect")
				} else {
					server.SetAuditStore(store)
				}
			}

			return server.Start()
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	return cmd
}

func buildCache(cfg appconfig.CacheConfig) (resultcache.Cache, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		return resultcache.NewRedis(client), nil
	case "memory", "":
		return resultcache.New(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
