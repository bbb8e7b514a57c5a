// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, ledger storage, the availability cache,
// the payment gateway, rate limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-turf-booking")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// LedgerConfig locates the booking ledger and describes its layout.
type LedgerConfig struct {
	Driver          string            // LEDGER_DRIVER: sqlite|postgres
	DSN             string            // LEDGER_DSN: SQLite path or Postgres DSN
	Sheet           string            // LEDGER_SHEET: logical sheet name
	PricingColumn   string            // LEDGER_PRICING_COLUMN: column letters, e.g. "I"
	PricingFirstRow int               // LEDGER_PRICING_FIRST_ROW
	DateField       string            // BOOKING_DATE_FIELD
	SlotField       string            // BOOKING_SLOT_FIELD
	FuzzyMatch      bool              // BOOKING_FUZZY_MATCH
	Aliases         map[string]string // BOOKING_FIELD_ALIASES: "mobile=Mobile No,dob=Date of Birth"
	PaymentStatus   string            // BOOKING_PAYMENT_STATUS
	DefaultPrice    string            // PRICING_DEFAULT
	SeedPricing     bool              // PRICING_SEED_ON_START
}

// CacheConfig selects the availability cache and lock backends.
type CacheConfig struct {
	Backend       string        // CACHE_BACKEND: memory|redis
	RedisAddr     string        // REDIS_ADDR
	RedisPassword string        // REDIS_PASSWORD
	RedisDB       int           // REDIS_DB
	LockBackend   string        // LOCK_BACKEND: local|redis
	LockTTL       time.Duration // LOCK_TTL: Redis lease length
	LockTimeout   time.Duration // LOCK_TIMEOUT: how long a commit waits for the date lock
}

// PaymentConfig holds the gateway credentials.
type PaymentConfig struct {
	KeyID     string        // RAZORPAY_KEY_ID
	KeySecret string        // RAZORPAY_KEY_SECRET
	BaseURL   string        // RAZORPAY_BASE_URL
	Currency  string        // PAYMENT_CURRENCY
	Timeout   time.Duration // PAYMENT_TIMEOUT
}

// DocumentsConfig controls uploaded identity documents.
type DocumentsConfig struct {
	PublicBaseURL string // DOCUMENTS_PUBLIC_BASE_URL
	MaxBytes      int    // DOCUMENT_MAX_BYTES
}

// EventsConfig enables the booking event publisher. An empty URL disables it.
type EventsConfig struct {
	AMQPURL  string // EVENTS_AMQP_URL
	Exchange string // EVENTS_EXCHANGE
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // request body cap; document uploads travel in the body
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Calendar
	TimeZone string         // TZ name, e.g. "Asia/Kolkata"
	Location *time.Location // resolved TimeZone

	Ledger    LedgerConfig
	Cache     CacheConfig
	Payment   PaymentConfig
	Documents DocumentsConfig
	Events    EventsConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 8<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		TimeZone: getenv("TZ", "UTC"),

		Ledger: LedgerConfig{
			Driver:          strings.ToLower(getenv("LEDGER_DRIVER", "sqlite")),
			DSN:             getenv("LEDGER_DSN", "turf.db"),
			Sheet:           getenv("LEDGER_SHEET", "bookings"),
			PricingColumn:   strings.ToUpper(getenv("LEDGER_PRICING_COLUMN", "I")),
			PricingFirstRow: getint("LEDGER_PRICING_FIRST_ROW", 2),
			DateField:       getenv("BOOKING_DATE_FIELD", "date"),
			SlotField:       getenv("BOOKING_SLOT_FIELD", "slots"),
			FuzzyMatch:      getbool("BOOKING_FUZZY_MATCH", false),
			Aliases:         splitPairs(getenv("BOOKING_FIELD_ALIASES", "")),
			PaymentStatus:   getenv("BOOKING_PAYMENT_STATUS", "Success"),
			DefaultPrice:    getenv("PRICING_DEFAULT", "1000"),
			SeedPricing:     getbool("PRICING_SEED_ON_START", true),
		},

		Cache: CacheConfig{
			Backend:       strings.ToLower(getenv("CACHE_BACKEND", "memory")),
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getint("REDIS_DB", 0),
			LockBackend:   strings.ToLower(getenv("LOCK_BACKEND", "local")),
			LockTTL:       getdur("LOCK_TTL", 30*time.Second),
			LockTimeout:   getdur("LOCK_TIMEOUT", 10*time.Second),
		},

		Payment: PaymentConfig{
			KeyID:     getenv("RAZORPAY_KEY_ID", ""),
			KeySecret: getenv("RAZORPAY_KEY_SECRET", ""),
			BaseURL:   getenv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
			Currency:  strings.ToUpper(getenv("PAYMENT_CURRENCY", "INR")),
			Timeout:   getdur("PAYMENT_TIMEOUT", 10*time.Second),
		},

		Documents: DocumentsConfig{
			PublicBaseURL: strings.TrimRight(getenv("DOCUMENTS_PUBLIC_BASE_URL", ""), "/"),
			MaxBytes:      getint("DOCUMENT_MAX_BYTES", 5<<20),
		},

		Events: EventsConfig{
			AMQPURL:  getenv("EVENTS_AMQP_URL", ""),
			Exchange: getenv("EVENTS_EXCHANGE", "turf.bookings"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-turf-booking"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Ledger.Driver == "postgresql" {
		cfg.Ledger.Driver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	loc, err := time.LoadLocation(strings.TrimSpace(cfg.TimeZone))
	if err != nil {
		return cfg, fmt.Errorf("TZ: %w", err)
	}
	cfg.Location = loc

	switch cfg.Ledger.Driver {
	case "sqlite", "postgres":
	default:
		return cfg, errors.New("LEDGER_DRIVER must be one of: sqlite, postgres")
	}
	if strings.TrimSpace(cfg.Ledger.DSN) == "" {
		return cfg, errors.New("LEDGER_DSN must not be empty")
	}
	if strings.TrimSpace(cfg.Ledger.Sheet) == "" {
		return cfg, errors.New("LEDGER_SHEET must not be empty")
	}
	if cfg.Ledger.PricingFirstRow < 2 {
		return cfg, errors.New("LEDGER_PRICING_FIRST_ROW must be >= 2")
	}

	if err := cfg.Cache.Validate(); err != nil {
		return cfg, err
	}

	if cfg.Payment.Timeout <= 0 {
		return cfg, errors.New("PAYMENT_TIMEOUT must be > 0")
	}
	if len(cfg.Payment.Currency) != 3 {
		return cfg, errors.New("PAYMENT_CURRENCY must be a 3-letter code")
	}
	if cfg.Documents.MaxBytes <= 0 {
		return cfg, errors.New("DOCUMENT_MAX_BYTES must be > 0")
	}

	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// splitPairs parses "a=b,c=d". Entries without '=' are ignored.
func splitPairs(s string) map[string]string {
	out := map[string]string{}
	for _, p := range splitCSV(s) {
		k, v, ok := strings.Cut(p, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if ok && k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// Validate checks the cache and lock settings. The cache and the lock must
// both be local or both be Redis: a shared lock over per-process caches
// leaves stale entries on other instances, and a shared cache under a
// per-process lock leaves the conflict check unserialized.
func (c CacheConfig) Validate() error {
	switch c.Backend {
	case "memory", "redis":
	default:
		return errors.New("CACHE_BACKEND must be one of: memory, redis")
	}
	switch c.LockBackend {
	case "local", "redis":
	default:
		return errors.New("LOCK_BACKEND must be one of: local, redis")
	}
	if (c.Backend == "redis") != (c.LockBackend == "redis") {
		return fmt.Errorf("CACHE_BACKEND=%s does not match LOCK_BACKEND=%s: use memory with local or redis with redis", c.Backend, c.LockBackend)
	}
	if c.LockTTL <= 0 || c.LockTimeout <= 0 {
		return errors.New("LOCK_TTL and LOCK_TIMEOUT must be positive durations")
	}
	return nil
}
