package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"tuition-pricing-service/internal/api"
	"tuition-pricing-service/internal/cache"
	"tuition-pricing-service/internal/config"
	"tuition-pricing-service/internal/consumer"
	"tuition-pricing-service/internal/events"
	"tuition-pricing-service/internal/money"
	"tuition-pricing-service/internal/repository"
	"tuition-pricing-service/internal/rules"
	"tuition-pricing-service/internal/service"
	"tuition-pricing-service/internal/sharding"
	"tuition-pricing-service/migrations"
)

const (
	connectRetries = 10
	retryDelay     = 3 * time.Second
)

func connectDB(name, dsn string) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error
	for i := 0; i < connectRetries; i++ {
		db, err = sqlx.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				log.Info().Msgf("Connected to DB %s", name)
				return db, nil
			}
			db.Close()
		}
		log.Warn().Err(err).Msgf("Retry %d: Failed to connect to DB %s", i+1, name)
		time.Sleep(retryDelay)
	}
	return nil, errors.Wrapf(err, "failed to connect to DB %s after retries", name)
}

// snapshotShards opens one database per configured DSN. With none configured the catalog
// database holds the snapshot table as the single shard.
func snapshotShards(dsns []string, catalog *sql.DB, open func(name, dsn string) (*sql.DB, error)) ([]*sql.DB, error) {
	if len(dsns) == 0 {
		log.Info().Msg("No snapshot shards configured, storing snapshots in the catalog DB")
		return []*sql.DB{catalog}, nil
	}
	shards := make([]*sql.DB, 0, len(dsns))
	for i, dsn := range dsns {
		db, err := open(fmt.Sprintf("snapshot-shard-%d", i), dsn)
		if err != nil {
			for _, opened := range shards {
				opened.Close()
			}
			return nil, err
		}
		shards = append(shards, db)
	}
	return shards, nil
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := cfg.ApplyLogLevel(); err != nil {
		log.Fatal().Err(err).Msg("Invalid log level")
	}

	rounding, err := money.ParseRoundingMode(cfg.Rounding)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid pricing.rounding")
	}
	stacking, err := service.ParseTaxStacking(cfg.TaxStacking)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid pricing.tax_stacking")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogDB, err := connectDB("catalog", cfg.CatalogDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Catalog DB unavailable")
	}
	defer catalogDB.Close()

	shards, err := snapshotShards(cfg.SnapshotDSNs, catalogDB.DB, func(name, dsn string) (*sql.DB, error) {
		db, err := connectDB(name, dsn)
		if err != nil {
			return nil, err
		}
		return db.DB, nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Snapshot shard unavailable")
	}
	for _, db := range shards {
		if db != catalogDB.DB {
			defer db.Close()
		}
	}
	var snapshotStore service.SnapshotStore = repository.NewSnapshotRepository(shards, sharding.NewShardRouter(len(shards)))

	if cfg.Migrate {
		if err := migrations.AutoMigrateCatalog(3, catalogDB.DB); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate catalog tables")
		}
		if err := migrations.AutoMigrateSnapshots(3, shards...); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate pricing_snapshots table")
		}
	}

	catalogRepo := repository.NewCatalogRepository(catalogDB)
	var taxProvider service.TaxConfigurationProvider = repository.NewTaxRepository(catalogDB)
	var taxCache *cache.TaxCache

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis unavailable")
		}
		defer rdb.Close()
		snapshotStore = cache.NewSnapshotCache(snapshotStore, rdb, cfg.SnapshotTTL)
		taxCache = cache.NewTaxCache(taxProvider, rdb, cfg.TaxTTL)
		taxProvider = taxCache
	}

	discountProvider, err := rules.NewFileProvider(cfg.DiscountFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load discount rules")
	}

	var publisher service.EventPublisher = events.NopPublisher{}
	if cfg.KafkaEnabled {
		kafkaWriter := config.NewKafkaWriter(cfg.KafkaBrokers, cfg.SnapshotTopic)
		defer kafkaWriter.Close()
		publisher = events.NewPublisher(kafkaWriter)

		if taxCache != nil {
			reader := config.NewKafkaReader(cfg.KafkaBrokers, cfg.TaxTopic, cfg.GroupID)
			go consumer.NewConsumer(reader, taxCache).StartKafkaConsumer(ctx)
		}
	}

	pricingService, err := service.NewPricingService(service.Deps{
		Subjects:  catalogRepo,
		Directory: catalogRepo,
		Discounts: discountProvider,
		Taxes:     taxProvider,
		Snapshots: snapshotStore,
		Events:    publisher,
		Options: service.Options{
			Currency:    cfg.Currency,
			Rounding:    rounding,
			TaxStacking: stacking,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pricing service")
	}

	server := api.NewServer(api.Options{
		Address:        cfg.HTTPAddr,
		JWTSecret:      cfg.JWTSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, pricingService)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
