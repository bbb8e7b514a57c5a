// Package app assembles the booking engine from configuration: ledger
// storage, the availability cache and its locks, the payment gateway, the
// document store and the event publisher. The CLI commands share it so
// serve, purge-cache and seed-pricing see the same wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-turf-booking/internal/availability"
	"github.com/tbourn/go-turf-booking/internal/config"
	"github.com/tbourn/go-turf-booking/internal/events"
	"github.com/tbourn/go-turf-booking/internal/http/handlers"
	"github.com/tbourn/go-turf-booking/internal/ledger"
	"github.com/tbourn/go-turf-booking/internal/payment"
	"github.com/tbourn/go-turf-booking/internal/repo"
	"github.com/tbourn/go-turf-booking/internal/services"
)

// App holds the wired components.
type App struct {
	Config config.Config
	Log    zerolog.Logger

	DB      *gorm.DB
	Sheet   *repo.GormSheet
	Layout  ledger.Layout
	Cache   *availability.Cache
	Locker  availability.Locker
	Janitor *availability.Janitor
	Events  events.Publisher

	Bookings  *services.BookingService
	Pricing   *services.PricingService
	Reports   *services.ReportService
	Documents *services.DocumentService

	redis *redis.Client
}

// LayoutFromConfig builds the ledger layout from cfg.
func LayoutFromConfig(cfg config.LedgerConfig) (ledger.Layout, error) {
	col, err := ledger.ColumnIndex(cfg.PricingColumn)
	if err != nil {
		return ledger.Layout{}, fmt.Errorf("LEDGER_PRICING_COLUMN: %w", err)
	}
	l := ledger.DefaultLayout()
	l.PricingCol = col
	l.PricingFirstRow = cfg.PricingFirstRow
	if err := l.Validate(); err != nil {
		return ledger.Layout{}, err
	}
	return l, nil
}

// New opens storage and wires every service. Callers must Close the App.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	layout, err := LayoutFromConfig(cfg.Ledger)
	if err != nil {
		return nil, err
	}

	db, err := repo.Open(cfg.Ledger.Driver, cfg.Ledger.DSN)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	a := &App{Config: cfg, Log: log, DB: db, Layout: layout, Events: events.Noop{}}
	if err := repo.AutoMigrate(db); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a.Sheet = repo.NewGormSheet(db, cfg.Ledger.Sheet)

	if err := a.wireCache(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.Events.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("events: %w", err)
		}
		a.Events = pub
		log.Info().Str("exchange", cfg.Events.Exchange).Msg("booking events enabled")
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	docBase := cfg.Documents.PublicBaseURL
	if cfg.APIBasePath != "" && cfg.APIBasePath != "/" {
		docBase += cfg.APIBasePath
	}
	a.Documents = &services.DocumentService{DB: db, PublicBaseURL: docBase, MaxBytes: cfg.Documents.MaxBytes}

	mapper := ledger.NewMapper(ledger.MapperOptions{
		Aliases: cfg.Ledger.Aliases,
		Fuzzy:   cfg.Ledger.FuzzyMatch,
		OnFuzzy: func(header, label string) {
			log.Warn().Str("header", header).Str("label", label).Msg("booking field matched by substring")
		},
	})

	a.Bookings = &services.BookingService{
		DB:            db,
		Sheet:         a.Sheet,
		Layout:        layout,
		Cache:         a.Cache,
		Locker:        a.Locker,
		Mapper:        mapper,
		Writer:        ledger.NewWriter(a.Sheet, layout, ledger.WithAppendLock(a.Locker)),
		Verifier:      payment.NewVerifier(cfg.Payment.KeySecret),
		Gateway:       payment.NewClient(payment.ClientOptions{BaseURL: cfg.Payment.BaseURL, KeyID: cfg.Payment.KeyID, KeySecret: cfg.Payment.KeySecret, Timeout: cfg.Payment.Timeout}),
		Documents:     a.Documents,
		Events:        a.Events,
		Currency:      cfg.Payment.Currency,
		DateField:     cfg.Ledger.DateField,
		SlotField:     cfg.Ledger.SlotField,
		PaymentStatus: cfg.Ledger.PaymentStatus,
		Location:      loc,
		LockTimeout:   cfg.Cache.LockTimeout,
	}
	a.Pricing = &services.PricingService{Store: ledger.NewPricingStore(a.Sheet, layout)}
	a.Reports = &services.ReportService{Sheet: a.Sheet, Layout: layout, Location: loc, Stats: a.Sheet, Payments: services.ClaimedOrders{DB: db}}

	if cfg.Payment.KeyID == "" || cfg.Payment.KeySecret == "" {
		log.Warn().Msg("RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET not set; orders and verification will fail")
	}
	return a, nil
}

func (a *App) wireCache(ctx context.Context) error {
	cfg := a.Config.Cache
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Backend == "redis" || cfg.LockBackend == "redis" {
		a.redis = availability.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		a.Log.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
	}

	var store availability.Store
	if cfg.Backend == "redis" {
		store = availability.NewRedisStore(a.redis)
	} else {
		store = availability.NewMemoryStore(time.Now)
	}

	if cfg.LockBackend == "redis" {
		rl := availability.NewRedisLocker(a.redis, cfg.LockTTL)
		rl.OnLeaseError = func(key string, err error) {
			a.Log.Error().Err(err).Str("lock", key).Msg("lock lease error")
		}
		a.Locker = rl
	} else {
		a.Locker = availability.NewKeyedMutex()
	}

	loc := a.Config.Location
	if loc == nil {
		loc = time.UTC
	}
	a.Cache = availability.NewCache(store, ledger.SlotLoader(a.Sheet, a.Layout, loc), availability.WithLocation(loc))
	a.Janitor = availability.NewJanitor(a.Cache, a.Locker, a.Log)
	return nil
}

// Seed writes default booking headers into an empty ledger and, unless
// disabled, the pricing table into an empty pricing region.
func (a *App) Seed(ctx context.Context) error {
	if _, err := a.SeedHeaders(ctx); err != nil {
		return err
	}
	if !a.Config.Ledger.SeedPricing {
		return nil
	}
	_, err := a.SeedPricing(ctx, a.Config.Ledger.DefaultPrice)
	return err
}

// SeedHeaders writes the default booking headers when the header row is empty.
func (a *App) SeedHeaders(ctx context.Context) (bool, error) {
	wrote, err := a.Layout.SeedHeaders(ctx, a.Sheet, ledger.DefaultBookingHeaders)
	if err != nil {
		return false, fmt.Errorf("seed headers: %w", err)
	}
	if wrote {
		a.Log.Info().Strs("headers", ledger.DefaultBookingHeaders).Msg("ledger headers seeded")
	}
	return wrote, nil
}

// SeedPricing fills an empty pricing region with price for every day.
func (a *App) SeedPricing(ctx context.Context, price string) (bool, error) {
	p, err := services.ParsePrice(price)
	if err != nil {
		return false, fmt.Errorf("default price %q: %w", price, err)
	}
	wrote, err := a.Pricing.Store.Seed(ctx, p)
	if err != nil {
		return false, fmt.Errorf("seed pricing: %w", err)
	}
	if wrote {
		a.Log.Info().Str("price", p.StringFixed(2)).Msg("pricing table seeded")
	}
	return wrote, nil
}

// Handlers binds the HTTP handlers to the wired services.
func (a *App) Handlers(version string) *handlers.Handlers {
	return handlers.New(a.Bookings, a.Pricing, a.Reports, a.Documents, version)
}

// Close releases the event publisher, Redis and the database.
func (a *App) Close() error {
	var errs []error
	if a.Events != nil {
		errs = append(errs, a.Events.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
