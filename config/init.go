package config

import (
	"context"
	"fmt"
	"net/http"

	"payouts/services"
	"payouts/services/audit"
	"payouts/services/logger"
	"payouts/services/notification"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"
)

// App holds the process-wide infrastructure. Optional integrations are nil
// when they are not configured.
type App struct {
	Config     *Config
	Logger     *logger.ZapLogger
	Router     *gin.Engine
	Melody     *melody.Melody
	Cron       *cron.Cron
	DB         *gorm.DB
	Redis      *redis.Client
	Cloudinary *cloudinary.Cloudinary
	Mongo      *mongo.Client
	Rabbit     *amqp.Connection
}

func InitApp(ctx context.Context, cfg *Config) (*App, error) {
	log := logger.NewZapLogger(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	configCors := cors.DefaultConfig()
	configCors.AddAllowHeaders("Authorization", "Idempotency-Key", "X-Request-ID")
	configCors.AddExposeHeaders("X-Request-ID", "X-Idempotency-Hit")
	configCors.AllowCredentials = true
	configCors.AllowAllOrigins = false
	configCors.AllowOriginFunc = func(origin string) bool {
		return true
	}
	router.Use(cors.New(configCors))
	_ = router.SetTrustedProxies(nil)

	app := &App{
		Config: cfg,
		Logger: log,
		Router: router,
		Melody: melody.New(),
		Cron:   cron.New(),
	}
	if err := app.initComponents(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}
	return app, nil
}

func (a *App) initComponents(ctx context.Context) error {
	cfg := a.Config

	db, err := ConnectDB(cfg.Database, a.Logger)
	if err != nil {
		return err
	}
	a.DB = db

	if cfg.Redis.Addr != "" {
		a.Redis, err = ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
	} else {
		a.Logger.Warn("REDIS_ADDR not set; Idempotency-Key replay is disabled")
	}

	if cfg.CloudinaryURL != "" {
		a.Cloudinary, err = cloudinary.NewFromURL(cfg.CloudinaryURL)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudinary: %w", err)
		}
	} else {
		a.Logger.Warn("CLOUDINARY_URL not set; receipt upload is disabled")
	}

	if cfg.MongoURI != "" {
		a.Mongo, err = audit.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
	} else {
		a.Logger.Warn("MONGO_URI not set; audit trail is disabled")
	}

	if cfg.RabbitMQURL != "" {
		a.Rabbit, err = amqp.DialConfig(cfg.RabbitMQURL, amqp.Config{
			Properties: amqp.Table{"connection_name": "payouts"},
		})
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
	} else {
		a.Logger.Warn("RABBITMQ_URL not set; order events are only accepted over HTTP and nothing is published")
	}

	a.Logger.Info("all components initialized successfully")
	return nil
}

// Close releases every connection that was opened.
func (a *App) Close() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
	if a.Melody != nil {
		_ = a.Melody.Close()
	}
	if a.Rabbit != nil {
		_ = a.Rabbit.Close()
	}
	if a.Mongo != nil {
		_ = a.Mongo.Disconnect(context.Background())
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Logger != nil {
		a.Logger.Sync()
	}
}

// InitWebSocket serves /ws. The caller authenticates with ?token= and the
// session is tagged with its user id so notifications reach only that user.
func InitWebSocket(router *gin.Engine, m *melody.Melody, tokens *services.TokenService, log logger.Logger) {
	router.GET("/ws", func(c *gin.Context) {
		userID, _, err := tokens.GetUserIDFromToken(c.Query("token"))
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if err := m.HandleRequestWithKeys(c.Writer, c.Request, map[string]interface{}{
			notification.SessionUserKey: userID,
		}); err != nil {
			log.Warn("websocket session for user %d ended: %v", userID, err)
		}
	})
	log.Info("WebSocket initialized successfully")
}
