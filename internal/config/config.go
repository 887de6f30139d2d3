package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service settings read from the environment.
type Config struct {
	Port               string
	DatabaseURL        string
	DBPath             string
	SeedPath           string
	RedisURL           string
	TravelProvider     string
	ORSAPIKey          string
	GoogleMapsAPIKey   string
	OptimizerURL       string
	OptimizerAPIKey    string
	AverageSpeedMph    float64
	OptimizeTimeout    time.Duration
	TravelTimeout      time.Duration
	GeocodeConcurrency int
	TravelCacheMaxAge  time.Duration
	RedisGeocodeTTL    time.Duration
	CORSOrigins        []string
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	return Config{
		Port:               Get("PORT", "8080"),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBPath:             Get("DB_PATH", "data/app.db"),
		SeedPath:           Get("SEED_PATH", "data/seeds/stops.json"),
		RedisURL:           strings.TrimSpace(os.Getenv("REDIS_URL")),
		TravelProvider:     strings.ToLower(Get("TRAVEL_PROVIDER", "ors")),
		ORSAPIKey:          strings.TrimSpace(os.Getenv("ORS_API_KEY")),
		GoogleMapsAPIKey:   strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY")),
		OptimizerURL:       strings.TrimSpace(os.Getenv("OPTIMIZER_URL")),
		OptimizerAPIKey:    strings.TrimSpace(os.Getenv("OPTIMIZER_API_KEY")),
		AverageSpeedMph:    GetFloat("AVERAGE_SPEED_MPH", 30),
		OptimizeTimeout:    GetDuration("OPTIMIZE_TIMEOUT", 45*time.Second),
		TravelTimeout:      GetDuration("TRAVEL_TIMEOUT", 20*time.Second),
		GeocodeConcurrency: GetInt("GEOCODE_CONCURRENCY", 4),
		TravelCacheMaxAge:  GetDuration("TRAVEL_CACHE_MAX_AGE", 7*24*time.Hour),
		RedisGeocodeTTL:    GetDuration("REDIS_GEOCODE_TTL", 30*24*time.Hour),
		CORSOrigins:        GetList("CORS_ORIGINS", []string{"*"}),
	}
}

func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("config: invalid duration %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func GetInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("config: invalid integer %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func GetFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		log.Printf("config: invalid number %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func GetList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
