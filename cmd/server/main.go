package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"route-optimization-service/internal/adapters/cache"
	"route-optimization-service/internal/adapters/geocode"
	"route-optimization-service/internal/adapters/optimizer"
	"route-optimization-service/internal/adapters/repositories"
	"route-optimization-service/internal/adapters/travel"
	"route-optimization-service/internal/api"
	"route-optimization-service/internal/api/handlers"
	"route-optimization-service/internal/api/stream"
	"route-optimization-service/internal/config"
	"route-optimization-service/internal/platform/db"
	"route-optimization-service/internal/ports"
	"route-optimization-service/internal/services"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"googlemaps.github.io/maps"
)

// main is the application composition root.
// It wires concrete adapters (Postgres/SQLite, Redis, ORS/Google) behind ports and starts the HTTP server.
func main() {
	cfg := config.Load()

	conn, driver, err := openDatabase(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	geocodeCache, travelCache := buildCaches(cfg, conn, driver)

	geocoder, provider, err := buildMapServices(cfg, geocodeCache, travelCache)
	if err != nil {
		log.Fatal(err)
	}

	optimizationService, err := buildOptimizer(cfg, geocoder)
	if err != nil {
		log.Fatal(err)
	}

	repo := repositories.NewSQLStopRepository(conn, driver)

	sessionHandler := &handlers.SessionHandler{
		Hub:            stream.NewHub(),
		AllowedOrigins: cfg.CORSOrigins,
	}
	manager := services.NewSessionManager(services.SessionDeps{
		Geocoder:        geocoder,
		Travel:          provider,
		Optimizer:       optimizationService,
		Repo:            repo,
		Calculator:      services.NewMetricsCalculator(nil),
		TravelTimeout:   cfg.TravelTimeout,
		OptimizeTimeout: cfg.OptimizeTimeout,
		Publish:         sessionHandler.PublishView,
	})
	sessionHandler.Manager = manager
	defer manager.CloseAll()

	router := api.NewRouter(api.RouterDeps{
		Repo:        repo,
		Sessions:    sessionHandler,
		CORSOrigins: cfg.CORSOrigins,
	})

	// Timeouts are tuned for cold-cache optimization (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.OptimizeTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server listening addr=:%s travel_provider=%s driver=%s", cfg.Port, cfg.TravelProvider, driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// openDatabase prefers Postgres when DATABASE_URL is set and falls back to a
// local SQLite file, which is initialized and seeded on startup for local runs.
func openDatabase(cfg config.Config) (*sql.DB, string, error) {
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, "", err
		}
		return conn, db.DriverPostgres, nil
	}

	conn, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, "", err
	}

	if err := initAndSeed(conn, cfg.SeedPath); err != nil {
		conn.Close()
		return nil, "", err
	}
	return conn, db.DriverSQLite, nil
}

func initAndSeed(conn *sql.DB, seedPath string) error {
	ctx := context.Background()

	if err := repositories.InitSchema(ctx, conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if err := repositories.SeedFromJSON(ctx, sqlx.NewDb(conn, db.DriverSQLite), seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}

func buildCaches(cfg config.Config, conn *sql.DB, driver string) (ports.GeocodeCache, ports.TravelCache) {
	var geocodeCache ports.GeocodeCache = cache.NewSQLGeocodeCache(conn, driver)
	travelCache := cache.NewSQLTravelCache(conn, driver, cfg.TravelCacheMaxAge)

	if cfg.RedisURL == "" {
		return geocodeCache, travelCache
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("REDIS_URL ignored: %v", err)
		return geocodeCache, travelCache
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("redis unavailable, using database geocode cache only: %v", err)
		rdb.Close()
		return geocodeCache, travelCache
	}

	fast := cache.NewRedisGeocodeCache(rdb, cfg.RedisGeocodeTTL)
	return cache.NewLayeredGeocodeCache(fast, geocodeCache), travelCache
}

func buildMapServices(
	cfg config.Config,
	geocodeCache ports.GeocodeCache,
	travelCache ports.TravelCache,
) (ports.BatchGeocoder, ports.TravelSegmentProvider, error) {
	switch cfg.TravelProvider {
	case "ors":
		if cfg.ORSAPIKey == "" {
			return nil, nil, errors.New("ORS_API_KEY is required for TRAVEL_PROVIDER=ors")
		}
		client, err := geocode.NewORSGeocoder(cfg.ORSAPIKey)
		if err != nil {
			return nil, nil, err
		}
		provider, err := travel.NewORSProvider(cfg.ORSAPIKey, travelCache)
		if err != nil {
			return nil, nil, err
		}
		return geocode.NewCachingResolver(client, geocodeCache, cfg.GeocodeConcurrency), provider, nil

	case "google":
		if cfg.GoogleMapsAPIKey == "" {
			return nil, nil, errors.New("GOOGLE_MAPS_API_KEY is required for TRAVEL_PROVIDER=google")
		}
		mc, err := maps.NewClient(maps.WithAPIKey(cfg.GoogleMapsAPIKey))
		if err != nil {
			return nil, nil, fmt.Errorf("google maps client: %w", err)
		}
		client, err := geocode.NewGoogleGeocoder(mc)
		if err != nil {
			return nil, nil, err
		}
		provider, err := travel.NewGoogleProvider(mc)
		if err != nil {
			return nil, nil, err
		}
		return geocode.NewCachingResolver(client, geocodeCache, cfg.GeocodeConcurrency), provider, nil

	case "static":
		client := geocode.NewStaticGeocoder(nil)
		client.Synthesize = true
		provider := travel.NewStaticProvider(nil).WithEstimate(cfg.AverageSpeedMph)
		return geocode.NewCachingResolver(client, nil, cfg.GeocodeConcurrency), provider, nil

	default:
		return nil, nil, fmt.Errorf("unknown TRAVEL_PROVIDER %q (want ors, google or static)", cfg.TravelProvider)
	}
}

func buildOptimizer(cfg config.Config, geocoder ports.Geocoder) (ports.OptimizationService, error) {
	if cfg.OptimizerURL == "" {
		log.Println("OPTIMIZER_URL not set, using the built-in nearest-neighbor ordering")
		return optimizer.NewNearestNeighborService(geocoder, cfg.AverageSpeedMph)
	}
	return optimizer.NewHTTPClient(cfg.OptimizerURL, cfg.OptimizerAPIKey)
}
