// Package app wires the simulator process's dependency graph: bootstrap
// Config, the shared document cache, the per-station Locks registry and
// secret Box, and one Station Runtime actor per configured station index.
// Grounded on backend/services/ocpp-server/internal/app/app.go's New/Run/Close
// shape, generalized from a single HTTP server to a fleet of station actors
// run as goroutines under one cancelable context.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stationsim/internal/asynclock"
	"stationsim/internal/cache"
	"stationsim/internal/channel"
	"stationsim/internal/config"
	"stationsim/internal/logging"
	"stationsim/internal/secret"
	"stationsim/internal/station"
	"stationsim/internal/template"
)

// App owns every Station actor the process runs plus the infrastructure they
// share (document cache, secret box, configuration-save lock registry).
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	stations []*station.Station
	docCache *cache.DocumentCache
	redis    *redis.Client
}

// New reads the template file once, reconciles it into cfg.NumberOfStations
// Station actors (each against its own persisted configuration document under
// cfg.ConfigDir), and returns the assembled App. A CF_INSTANCE_INDEX
// environment variable, when set, is appended to every station id so
// multiple simulator instances sharing one template never collide
// (spec.md §6).
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	rawTemplate, err := template.LoadTemplate(cfg.TemplateFile)
	if err != nil {
		return nil, err
	}

	var box *secret.Box
	if cfg.SecretKeyMaterial != "" {
		box, err = secret.NewBox(cfg.SecretKeyMaterial)
		if err != nil {
			return nil, fmt.Errorf("app: build secret box: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	}
	docCache := cache.NewDocumentCache(cfg.CacheCapacity, redisClient, cfg.CacheTTL, logger)
	locks := asynclock.NewRegistry()
	instanceSuffix := instanceSuffix()

	if err := os.MkdirAll(cfg.ConfigDir, 0o755); err != nil {
		return nil, fmt.Errorf("app: create config dir %s: %w", cfg.ConfigDir, err)
	}

	stations := make([]*station.Station, 0, cfg.NumberOfStations)
	for i := 0; i < cfg.NumberOfStations; i++ {
		st, err := newStation(cfg, rawTemplate, box, locks, docCache, logger, i, instanceSuffix)
		if err != nil {
			return nil, fmt.Errorf("app: build station %d: %w", i, err)
		}
		stations = append(stations, st)
	}

	return &App{cfg: cfg, logger: logger, stations: stations, docCache: docCache, redis: redisClient}, nil
}

func instanceSuffix() string {
	idx := os.Getenv("CF_INSTANCE_INDEX")
	if idx == "" {
		return ""
	}
	return "-" + idx
}

func newStation(cfg config.Config, rawTemplate []byte, box *secret.Box, locks *asynclock.Registry, docCache *cache.DocumentCache, logger *zap.Logger, index int, instanceSuffix string) (*station.Station, error) {
	configPath := filepath.Join(cfg.ConfigDir, fmt.Sprintf("station-%d.json", index))

	previous, err := template.LoadConfiguration(configPath)
	if err != nil {
		return nil, err
	}

	res, err := template.ReconcileCached(context.Background(), docCache, index, cfg.TemplateFile, rawTemplate, previous, logger)
	if err != nil {
		return nil, err
	}
	if instanceSuffix != "" {
		res.Info.StationID += instanceSuffix
	}

	creds, err := buildCredentials(cfg, res.Info.BasicAuthUser, res.Info.BasicAuthPassword, res.Info.StationID)
	if err != nil {
		return nil, err
	}

	stationLogger := logging.ForStation(logger, res.Info.StationID)
	events := func(e station.Event) {
		stationLogger.Info("station event", zap.String("kind", string(e.Kind)), zap.String("message", e.Message))
	}

	return station.New(station.Config{
		Reconciled:  res,
		ConfigPath:  configPath,
		SecretBox:   box,
		Locks:       locks,
		Logger:      stationLogger,
		Events:      events,
		Credentials: creds,
	})
}

func buildCredentials(cfg config.Config, basicUser, basicPassword, stationID string) (channel.Credentials, error) {
	if basicUser != "" {
		return channel.BasicAuth(basicUser, basicPassword), nil
	}
	if cfg.BearerSigningSecret != "" {
		token, err := channel.IssueBearerToken(cfg.BearerSigningSecret, stationID, time.Hour)
		if err != nil {
			return channel.Credentials{}, fmt.Errorf("app: issue bearer token for %s: %w", stationID, err)
		}
		return channel.BearerToken(token), nil
	}
	return channel.Credentials{}, nil
}

// Run starts every Station actor and blocks until ctx is canceled or every
// station has returned. A station that exits with an error is logged and
// does not stop its siblings; Run itself always returns nil.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, len(a.stations))
	for _, st := range a.stations {
		st := st
		go func() {
			errCh <- st.Run(ctx)
		}()
	}

	remaining := len(a.stations)
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return a.drain(remaining, errCh)
		case err := <-errCh:
			remaining--
			if err != nil {
				a.logger.Warn("app: station exited with error", zap.Error(err))
			}
		}
	}
	return nil
}

// drain waits (briefly) for the remaining station actors to observe ctx's
// cancellation and return, so Run doesn't report success before every
// actor has actually stopped.
func (a *App) drain(remaining int, errCh chan error) error {
	deadline := time.After(10 * time.Second)
	for remaining > 0 {
		select {
		case <-errCh:
			remaining--
		case <-deadline:
			a.logger.Warn("app: shutdown deadline exceeded", zap.Int("stationsStillRunning", remaining))
			return nil
		}
	}
	return nil
}

// Close releases process-wide resources. Station actors themselves are torn
// down by Run returning (their own stop() closes the Message Channel).
func (a *App) Close() {
	if a.redis == nil {
		return
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("app: failed to close redis client", zap.Error(err))
	}
}
