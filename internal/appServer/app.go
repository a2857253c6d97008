package appServer

import (
	"context"
	"fmt"

	"github.com/ds124wfegd/WB_L3/avatar/config"
	"github.com/ds124wfegd/WB_L3/avatar/internal/database"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/janitor"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/kafka"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/metrics"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/processor"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/ratelimit"
	"github.com/ds124wfegd/WB_L3/avatar/internal/pkg/storage"
	"github.com/ds124wfegd/WB_L3/avatar/internal/service"
	"github.com/ds124wfegd/WB_L3/avatar/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// App holds the wired components shared by the serve and sweep commands.
type App struct {
	Config   *config.Config
	Store    storage.FileStorage
	Index    database.ImageRepository
	Service  service.ImageService
	Janitor  *janitor.Janitor
	Gate     ratelimit.Gate
	Producer kafka.Producer
	Registry *prometheus.Registry

	redis *redis.Client
}

func Build(cfg *config.Config) (*App, error) {
	return build(cfg, afero.NewOsFs())
}

func build(cfg *config.Config, fs afero.Fs) (*App, error) {
	app := &App{Config: cfg, Registry: prometheus.NewRegistry()}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	observer, err := metrics.NewPrometheusObserver("avatar", app.Registry)
	if err != nil {
		return nil, err
	}

	app.Store, err = storage.NewFileStorage(fs, cfg.Upload.StorageDir)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled {
		app.redis, err = newRedisClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		app.Index = database.NewRedisImageRepository(app.redis)
		app.Gate = ratelimit.NewRedisGate(app.redis, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	} else {
		app.Index = database.NewImageRepository()
		app.Gate = ratelimit.NewMemoryGate(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	}
	app.Index = database.NewCachedImageRepository(app.Index, cfg.Index.CacheSize, cfg.Index.CacheTTL)

	if cfg.Kafka.Enabled {
		app.Producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	} else {
		app.Producer = kafka.NewLogProducer(cfg.Kafka.Topic)
	}

	imgProcessor := processor.NewImageProcessor(cfg.Upload, cfg.Policy)
	app.Service = service.NewImageService(cfg.Upload, imgProcessor, app.Store, app.Index, app.Producer, observer)
	app.Janitor = janitor.NewJanitor(app.Store, app.Index, observer, cfg.Janitor)

	logrus.WithFields(logrus.Fields{
		"storage_dir": cfg.Upload.StorageDir,
		"redis":       cfg.Redis.Enabled,
		"kafka":       cfg.Kafka.Enabled,
	}).Info("Components initialized")
	return app, nil
}

func newRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func (a *App) Router() *gin.Engine {
	handler := transport.NewImageHandler(a.Service, a.Config.Upload.MaxUploadBytes, a.Config.Upload.DefaultImagePath)
	return transport.InitRoutes(handler, transport.RouterOptions{
		PublicPrefix:     a.Config.Upload.PublicPrefix,
		DefaultImageURL:  a.Config.Upload.DefaultImageURL,
		DefaultImagePath: a.Config.Upload.DefaultImagePath,
		RequestTimeout:   a.Config.Server.Timeout,
		Gate:             a.Gate,
		Metrics:          promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry}),
	})
}

func (a *App) Close() {
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close producer")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
	}
}
