package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_cart/internal/catalog"
	"github.com/fjod/go_cart/internal/checkout"
	"github.com/fjod/go_cart/internal/config"
	h "github.com/fjod/go_cart/internal/http"
	"github.com/fjod/go_cart/internal/orders"
	"github.com/fjod/go_cart/internal/publisher"
	"github.com/fjod/go_cart/internal/repository"
	"github.com/fjod/go_cart/internal/service"
	"github.com/fjod/go_cart/internal/store"
	"github.com/fjod/go_cart/internal/upstream"
	"github.com/fjod/go_cart/pkg/circuitbreaker"
	"github.com/fjod/go_cart/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync(zl)
	zap.ReplaceGlobals(zl)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	docs, err := openStore(ctx, cfg.Store, zl)
	if err != nil {
		zl.Fatal("Failed to open cart store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer docs.Close()

	repo := repository.NewSnapshotRepository(docs, cfg.Store.CartKey, zl)
	cartService := service.NewCartService(repo, zl)

	api := upstream.NewClient(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
		Breaker: circuitbreaker.Settings{
			Name:             "upstream",
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
		},
	}, zl)
	creds := upstream.RequestCredentials{Static: cfg.Upstream.APIToken}

	catalogClient := catalog.NewClient(api, creds, zl)
	ordersClient := orders.NewClient(api, creds, zl)

	var (
		events checkout.EventPublisher = publisher.NopPublisher{}
		wg     sync.WaitGroup
	)
	if len(cfg.Kafka.Brokers) > 0 {
		kp := publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, zl)
		defer kp.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			kp.Run(ctx)
		}()
		events = kp
		zl.Info("Publishing order events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	coordinator := checkout.NewCoordinator(cartService, checkout.NewHTTPSubmitter(api), creds, events, zl)

	router := h.NewRouter(
		h.RouterConfig{
			RequestTimeout:     cfg.RequestTimeout,
			MaxRequestBodySize: cfg.MaxRequestBodySize,
			BreakerState:       api.BreakerState,
		},
		h.NewCartHandler(cartService, catalogClient, cfg.RequestTimeout),
		h.NewProductHandler(catalogClient, cfg.RequestTimeout),
		h.NewCheckoutHandler(coordinator),
		h.NewOrdersHandler(ordersClient, cfg.RequestTimeout),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "smartcart"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("smartcart starting", zap.String("port", cfg.HTTPPort), zap.String("store", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}

	// stop the publisher only after in-flight checkouts have queued their events
	stop()
	wg.Wait()

	zl.Info("server exited")
}

func openStore(ctx context.Context, cfg config.Store, zl *zap.Logger) (store.DocumentStore, error) {
	switch cfg.Backend {
	case config.StoreMemory:
		zl.Warn("Using in-memory cart store; the cart is lost on restart")
		return store.NewMemoryStore(), nil

	case config.StoreSQLite, config.StorePostgres:
		var (
			s   *store.SQLStore
			err error
		)
		if cfg.Backend == config.StoreSQLite {
			s, err = store.NewSQLiteStore(cfg.SQLitePath)
		} else {
			s, err = store.NewPostgresStore(store.Credentials{
				Host:     cfg.Postgres.Host,
				Port:     cfg.Postgres.Port,
				User:     cfg.Postgres.User,
				Password: cfg.Postgres.Password,
				DBName:   cfg.Postgres.DBName,
			})
		}
		if err != nil {
			return nil, err
		}
		if err := s.RunMigrations(); err != nil {
			s.Close()
			return nil, err
		}
		zl.Info("Connected to SQL store", zap.String("driver", cfg.Backend))
		return s, nil

	case config.StoreRedis:
		client, err := store.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPass, 0)
		if err != nil {
			return nil, err
		}
		zl.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
		return store.NewRedisStore(client), nil

	case config.StoreMongo:
		db, err := store.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		m := store.NewMongoStore(db)
		if err := m.CreateIndexes(ctx); err != nil {
			m.Close()
			return nil, err
		}
		zl.Info("Connected to MongoDB", zap.String("uri", cfg.MongoURI))
		return m, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
