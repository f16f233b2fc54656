package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	c "github.com/vonomarap/kanokna-sub000/internal/cache"
	"github.com/vonomarap/kanokna-sub000/internal/clients"
	h "github.com/vonomarap/kanokna-sub000/internal/http"
	"github.com/vonomarap/kanokna-sub000/internal/publisher"
	"github.com/vonomarap/kanokna-sub000/internal/repository"
	s "github.com/vonomarap/kanokna-sub000/internal/service"
)

type Config struct {
	HTTPPort          string
	Mongo             repository.MongoConfig
	RedisAddr         string
	RedisPassword     string
	KafkaBrokers      []string
	CatalogServiceURL string
	PricingServiceURL string
	RequestTimeout    time.Duration
	Postgres          repository.Credentials
	Service           s.Config
}

func loadConfig() *Config {
	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		Mongo: repository.MongoConfig{
			URI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:    getEnv("MONGO_DB_NAME", "cartdb"),
			MaxPoolSize: uint64(getEnvInt("MONGO_MAX_POOL_SIZE", 100)),
			MinPoolSize: uint64(getEnvInt("MONGO_MIN_POOL_SIZE", 10)),
		},
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:      strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		CatalogServiceURL: getEnv("CATALOG_SERVICE_URL", "http://localhost:8081"),
		PricingServiceURL: getEnv("PRICING_SERVICE_URL", "http://localhost:8082"),
		RequestTimeout:    30 * time.Second,
		Postgres: repository.Credentials{
			Host:              getEnv("POSTGRES_HOST", "localhost"),
			Port:              getEnvInt("POSTGRES_PORT", 5432),
			User:              getEnv("POSTGRES_USER", "postgres"),
			Password:          getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:            getEnv("POSTGRES_DB", "snapshots"),
			MigrationsDirPath: getEnv("MIGRATIONS_DIR", "migrations"),
		},
		Service: s.Config{
			MaxItemQuantity:            getEnvInt("MAX_ITEM_QUANTITY", 99),
			DefaultCurrency:            getEnv("DEFAULT_CURRENCY", "EUR"),
			AllowedProductFamilies:     strings.Split(getEnv("ALLOWED_PRODUCT_FAMILIES", "WINDOW,DOOR"), ","),
			PriceChangeAckThresholdPct: getEnvFloat("PRICE_CHANGE_ACK_THRESHOLD_PCT", 2.0),
			SnapshotValidity:           getEnvDuration("SNAPSHOT_VALIDITY", 15*time.Minute),
		},
	}
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.Mongo)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	cartRepo := repository.NewMongoCartRepository(mongoDB)
	if err := repository.EnsureCartIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("Failed to create cart indexes: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.Mongo.URI)

	snapshotStore, err := repository.NewPostgresSnapshotStore(&cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to set up snapshot store: %v", err)
	}
	defer snapshotStore.Close()
	log.Printf("Snapshot store ready at %s:%d", cfg.Postgres.Host, cfg.Postgres.Port)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	cartCache := c.NewRedisCache(redisClient)
	sessionIndex := repository.NewRedisSessionIndex(redisClient, 30*24*time.Hour)

	events := publisher.NewKafkaPublisher("cart-events", cfg.KafkaBrokers...)
	defer events.Close()

	catalog := clients.NewCatalogClient(cfg.CatalogServiceURL, 10*time.Second)
	pricing := clients.NewPricingClient(cfg.PricingServiceURL, 10*time.Second)

	cartService := s.NewCartService(
		cartRepo,
		snapshotStore,
		sessionIndex,
		cartCache,
		events,
		catalog,
		pricing,
		cfg.Service,
		uuid.NewString,
	)

	cartHandler := h.NewCartHandler(cartService)
	checkoutHandler := h.NewCheckoutHandler(cartService)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.IdentityMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Group(cartHandler.Routes)
	r.Group(checkoutHandler.Routes)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		log.Printf("Cart service listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down cart service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := mongoDB.Client().Disconnect(ctx); err != nil {
		log.Printf("Mongo disconnect error: %v", err)
	}
	log.Println("Cart service stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
