// README: Service wiring; builds stores, engine and HTTP surface from config and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ridematch/internal/config"
	httptransport "ridematch/internal/http"
	"ridematch/internal/http/handlers"
	"ridematch/internal/http/middleware"
	"ridematch/internal/infra"
	"ridematch/internal/maps"
	"ridematch/internal/modules/advice"
	"ridematch/internal/modules/channel"
	"ridematch/internal/modules/location"
	"ridematch/internal/modules/matching"
	"ridematch/internal/modules/profile"
	"ridematch/internal/modules/registry"
)

const saveTimeout = 10 * time.Second

type App struct {
	cfg config.Config
	log zerolog.Logger

	Registry *registry.Store
	Statuses *location.Service
	Engine   *matching.Engine
	Profiles *profile.Service
	server   *httptransport.Server
	handler  http.Handler

	redis *redis.Client
	db    *pgxpool.Pool
}

// New connects external stores and wires every component. reg receives the
// metrics collectors; nil disables metrics.
func New(ctx context.Context, cfg config.Config, reg *prometheus.Registry) (*App, error) {
	log := component(cfg, "app")
	a := &App{cfg: cfg, log: log}

	var geo location.GeoIndex
	if cfg.Redis.Addr != "" {
		client, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return nil, err
		}
		a.redis = client
		geo = location.NewRedisGeoIndex(client)
	}

	backend, err := a.profileBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Profiles = profile.NewService(backend)
	if err := a.Profiles.LoadAll(ctx); err != nil {
		a.Close()
		return nil, err
	}
	log.Info().Int("drivers", len(a.Profiles.Drivers())).Int("customers", len(a.Profiles.Customers())).Msg("profiles loaded")

	var (
		engineMetrics *matching.Metrics
		httpMetrics   *middleware.HTTPMetrics
		gatherer      prometheus.Gatherer
	)
	if reg != nil {
		if engineMetrics, err = matching.NewMetrics(reg); err != nil {
			a.Close()
			return nil, fmt.Errorf("dispatch metrics: %w", err)
		}
		if httpMetrics, err = middleware.NewHTTPMetrics(reg); err != nil {
			a.Close()
			return nil, fmt.Errorf("http metrics: %w", err)
		}
		gatherer = reg
	}

	a.Registry = registry.NewStore()
	a.Statuses = location.NewService(location.NewStore(), a.Registry, geo, component(cfg, "location"))
	advisor := advice.NewService(advice.NewFileStore(cfg.Advice.ModelFile, cfg.Advice.DensityFile), cfg.Advice.Threshold)
	a.Engine = matching.NewEngine(a.Statuses, a.Registry, advisor, cfg.Matching, engineMetrics, component(cfg, "matching"))

	reqDeps := handlers.RequestHandlerDeps{
		Dispatch:    a.Engine,
		Log:         a.Profiles,
		DriverShare: cfg.Matching.DriverShare,
		Logger:      component(cfg, "http"),
	}
	if err := a.mapsServices(&reqDeps); err != nil {
		a.Close()
		return nil, err
	}

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Requests:    handlers.NewRequestHandler(reqDeps),
		Drivers:     handlers.NewDriverHandler(a.Profiles, a.Statuses),
		Customers:   handlers.NewCustomerHandler(a.Profiles),
		Channel:     channel.NewHandler(a.Registry, a.Statuses, a.Engine, component(cfg, "channel")),
		Presence:    a.Registry,
		Pending:     a.Engine,
		Gatherer:    gatherer,
		HTTPMetrics: httpMetrics,
		Logger:      component(cfg, "http"),
	})
	a.handler = router
	a.server = httptransport.NewServer(cfg.HTTP.Addr, router, component(cfg, "http"))
	return a, nil
}

// Handler exposes the routed HTTP surface, mostly for tests.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) profileBackend(ctx context.Context) (profile.Backend, error) {
	if a.cfg.Storage.PostgresDSN == "" {
		return profile.NewFileStore(a.cfg.Storage.Dir), nil
	}
	db, err := infra.NewDB(ctx, a.cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, err
	}
	a.db = db
	store := profile.NewPgStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("profile schema: %w", err)
	}
	return store, nil
}

func (a *App) mapsServices(deps *handlers.RequestHandlerDeps) error {
	if a.cfg.Maps.APIKey == "" {
		if a.cfg.Maps.FallbackSpeedKmh > 0 {
			deps.Estimator = maps.StraightLine{SpeedKmh: a.cfg.Maps.FallbackSpeedKmh}
		}
		return nil
	}
	routes, err := maps.NewRouteService(a.cfg.Maps.APIKey)
	if err != nil {
		return err
	}
	places, err := maps.NewPlacesService(a.cfg.Maps.APIKey)
	if err != nil {
		return err
	}
	deps.Estimator = routes
	deps.Geocoder = places
	return nil
}

// Run serves until ctx ends. Pending matches are cancelled on the way out.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		a.Engine.Close()
		return nil
	})
	return g.Wait()
}

// Close saves profiles and releases external connections.
func (a *App) Close() error {
	var errs []error
	if a.Engine != nil {
		a.Engine.Close()
	}
	if a.Profiles != nil {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := a.Profiles.SaveAll(ctx); err != nil {
			errs = append(errs, err)
		} else {
			a.log.Info().Msg("profiles saved")
		}
		cancel()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	return errors.Join(errs...)
}

func component(cfg config.Config, name string) zerolog.Logger {
	return infra.NewLogger(cfg.App.Env, cfg.Log.Level, name)
}
