package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const envPrefix = "PRICING"

// Config holds every setting of the pricing service. Keys are dotted (db.catalog_dsn) and can be
// overridden from the environment as PRICING_DB_CATALOG_DSN.
type Config struct {
	Env      string
	LogLevel string
	HTTPAddr string

	CatalogDSN   string
	SnapshotDSNs []string
	Migrate      bool

	RedisAddr   string
	SnapshotTTL time.Duration
	TaxTTL      time.Duration

	KafkaEnabled  bool
	KafkaBrokers  []string
	SnapshotTopic string
	TaxTopic      string
	GroupID       string

	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int

	Currency     string
	Rounding     string
	TaxStacking  string
	DiscountFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("http.addr", ":8084")

	v.SetDefault("db.catalog_dsn", "root:@tcp(127.0.0.1:3306)/pricing-db?parseTime=true")
	v.SetDefault("db.snapshot_dsns", "")
	v.SetDefault("db.migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.snapshot_ttl", 24*time.Hour)
	v.SetDefault("redis.tax_ttl", 5*time.Minute)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092,localhost:9093,localhost:9094")
	v.SetDefault("kafka.snapshot_topic", "pricing-snapshot-topic")
	v.SetDefault("kafka.tax_topic", "tax-configuration-topic")
	v.SetDefault("kafka.group_id", "pricing-service-group")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("ratelimit.rps", 10.0)
	v.SetDefault("ratelimit.burst", 20)

	v.SetDefault("pricing.currency", "INR")
	v.SetDefault("pricing.rounding", "half_even")
	v.SetDefault("pricing.tax_stacking", "cascading")
	v.SetDefault("rules.discount_file", "")
}

// Load reads defaults, then the optional dotenv file, then the environment.
// A missing dotenv file is not an error.
func Load(dotEnvPath string) (*Config, error) {
	if dotEnvPath != "" {
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Env:      v.GetString("env"),
		LogLevel: v.GetString("log.level"),
		HTTPAddr: v.GetString("http.addr"),

		CatalogDSN:   v.GetString("db.catalog_dsn"),
		SnapshotDSNs: splitList(v.GetString("db.snapshot_dsns")),
		Migrate:      v.GetBool("db.migrate"),

		RedisAddr:   v.GetString("redis.addr"),
		SnapshotTTL: v.GetDuration("redis.snapshot_ttl"),
		TaxTTL:      v.GetDuration("redis.tax_ttl"),

		KafkaEnabled:  v.GetBool("kafka.enabled"),
		KafkaBrokers:  splitList(v.GetString("kafka.brokers")),
		SnapshotTopic: v.GetString("kafka.snapshot_topic"),
		TaxTopic:      v.GetString("kafka.tax_topic"),
		GroupID:       v.GetString("kafka.group_id"),

		JWTSecret:      v.GetString("jwt.secret"),
		RateLimitRPS:   v.GetFloat64("ratelimit.rps"),
		RateLimitBurst: v.GetInt("ratelimit.burst"),

		Currency:     strings.ToUpper(v.GetString("pricing.currency")),
		Rounding:     v.GetString("pricing.rounding"),
		TaxStacking:  v.GetString("pricing.tax_stacking"),
		DiscountFile: v.GetString("rules.discount_file"),
	}

	if cfg.Currency == "" {
		return nil, errors.New("pricing.currency must not be empty")
	}
	if cfg.RateLimitBurst < 1 {
		return nil, errors.New("ratelimit.burst must be at least 1")
	}
	return cfg, nil
}

// ApplyLogLevel sets the global zerolog level.
func (c *Config) ApplyLogLevel() error {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return errors.Wrap(err, "log.level")
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
