package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env  string
	Port string

	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig

	JWTSecret string

	RabbitMQURL      string
	OrderEventsQueue string
	EventsExchange   string

	MongoURI string
	MongoDB  string

	CloudinaryURL  string
	ReceiptsFolder string

	TxMaxAttempts  int
	TxBackoff      time.Duration
	ReconcileCron  string
	StaleAfter     time.Duration
	IdempotencyTTL time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
}

type LogConfig struct {
	Level      string
	Format     string
	Output     string
	FilePath   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// LoadEnv reads .env into the process environment when the file exists.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded, using process environment: %v", err)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8083")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 50)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("LOG_FILE_PATH", "logs/payouts.log")
	v.SetDefault("LOG_MAX_SIZE", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 7)
	v.SetDefault("LOG_MAX_AGE", 30)
	v.SetDefault("LOG_COMPRESS", true)
	v.SetDefault("ORDER_EVENTS_QUEUE", "payouts.order_completed")
	v.SetDefault("EVENTS_EXCHANGE", "payout_events")
	v.SetDefault("MONGO_DB", "payouts_audit")
	v.SetDefault("RECEIPTS_FOLDER", "payout-receipts")
	v.SetDefault("TX_MAX_ATTEMPTS", 3)
	v.SetDefault("TX_BACKOFF", "20ms")
	v.SetDefault("RECONCILE_CRON", "0 0 * * *")
	v.SetDefault("STALE_PENDING_AFTER", "72h")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
}

// Load builds the configuration from the environment. Database settings may be
// scoped per environment: with ENV=prod, PROD_DB_HOST wins over DB_HOST.
func Load() *Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	env := strings.ToLower(v.GetString("ENV"))
	dbKey := func(key string) string {
		scoped := strings.ToUpper(env) + "_" + key
		if s := v.GetString(scoped); s != "" {
			return s
		}
		return v.GetString(key)
	}

	return &Config{
		Env:  env,
		Port: v.GetString("PORT"),
		Database: DatabaseConfig{
			Host:            dbKey("DB_HOST"),
			Port:            dbKey("DB_PORT"),
			User:            dbKey("DB_USER"),
			Password:        dbKey("DB_PASSWORD"),
			Name:            dbKey("DB_NAME"),
			SSLMode:         dbKey("DB_SSLMODE"),
			TimeZone:        v.GetString("DB_TIMEZONE"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Username: v.GetString("REDIS_USER"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			Output:     v.GetString("LOG_OUTPUT"),
			FilePath:   v.GetString("LOG_FILE_PATH"),
			MaxSize:    v.GetInt("LOG_MAX_SIZE"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAge:     v.GetInt("LOG_MAX_AGE"),
			Compress:   v.GetBool("LOG_COMPRESS"),
		},
		JWTSecret:        v.GetString("JWT_SECRET"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		OrderEventsQueue: v.GetString("ORDER_EVENTS_QUEUE"),
		EventsExchange:   v.GetString("EVENTS_EXCHANGE"),
		MongoURI:         v.GetString("MONGO_URI"),
		MongoDB:          v.GetString("MONGO_DB"),
		CloudinaryURL:    v.GetString("CLOUDINARY_URL"),
		ReceiptsFolder:   v.GetString("RECEIPTS_FOLDER"),
		TxMaxAttempts:    v.GetInt("TX_MAX_ATTEMPTS"),
		TxBackoff:        v.GetDuration("TX_BACKOFF"),
		ReconcileCron:    v.GetString("RECONCILE_CRON"),
		StaleAfter:       v.GetDuration("STALE_PENDING_AFTER"),
		IdempotencyTTL:   v.GetDuration("IDEMPOTENCY_TTL"),
	}
}
