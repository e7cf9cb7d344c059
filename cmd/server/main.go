package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/purchase-lifecycle/internal/adapter/gateway"
	"github.com/rl1809/purchase-lifecycle/internal/adapter/handler"
	"github.com/rl1809/purchase-lifecycle/internal/adapter/messaging"
	"github.com/rl1809/purchase-lifecycle/internal/adapter/storage"
	"github.com/rl1809/purchase-lifecycle/internal/config"
	"github.com/rl1809/purchase-lifecycle/internal/core/service"
	"github.com/rl1809/purchase-lifecycle/internal/logger"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	os.Exit(finish(logr, run(cfg, logr)))
}

// finish logs how the server ended and flushes the logger before main exits.
func finish(logr *zap.Logger, err error) int {
	code := 0
	if err != nil {
		logr.Error("server stopped with error", zap.Error(err))
		code = 1
	} else {
		logr.Info("server stopped")
	}
	_ = logr.Sync()
	return code
}

type adapters struct {
	carts   port.ShoppingCartRepository
	orders  port.OrderRepository
	locker  port.Locker
	closers []io.Closer
}

func (a *adapters) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}

func run(cfg config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer store.Close()

	products := gateway.DefaultProducts()
	catalog, err := gateway.NewStaticCatalog(products)
	if err != nil {
		return err
	}
	pricing, err := gateway.NewStaticPricing(products, gateway.DefaultPricingRules())
	if err != nil {
		return err
	}
	breakerCfg := gateway.DefaultBreakerConfig()
	breakerCfg.Timeout = cfg.GatewayTimeout
	breakerCfg.MinRequests = uint32(cfg.BreakerMinRequests)
	breakerCfg.OpenTimeout = cfg.BreakerOpenTimeout

	var publisher port.EventPublisher
	if cfg.KafkaEnabled() {
		kafkaPublisher := messaging.NewKafkaPublisher(messaging.NewKafkaWriter(cfg.KafkaBrokers, messaging.TopicOrderEvents), logr)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logr.Info("publishing order events to kafka", zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		publisher = messaging.NewLogPublisher(logr)
		logr.Info("no kafka brokers configured, order events are logged only")
	}

	pricingService := service.NewOrderPricingService(
		gateway.NewBreakerCatalog(catalog, breakerCfg, logr),
		gateway.NewBreakerPricing(pricing, breakerCfg, logr),
	)
	cartService := service.NewCartService(store.carts, store.locker, logr)
	checkoutService := service.NewCheckoutService(store.carts, store.orders, pricingService,
		service.NewOrderCreationService(), publisher, store.locker, logr)
	orderService := service.NewOrderService(store.orders, publisher, store.locker, logr)
	payments := service.NewPaymentApprovedHandler(store.orders, publisher, store.locker, logr)
	stock := service.NewStockReservedHandler(store.orders, publisher, store.locker, logr)

	httpHandler := handler.NewHTTPHandler(cartService, checkoutService, orderService, logr)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	grpcServer, health := handler.NewGRPCServer()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logr.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logr.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	if cfg.KafkaEnabled() {
		reader := messaging.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaGroupID)
		consumerCfg := messaging.DefaultConsumerConfig()
		consumerCfg.Workers = cfg.ConsumerCount
		consumer := messaging.NewConsumer(reader, payments, stock, consumerCfg, logr)
		g.Go(func() error {
			defer reader.Close()
			return consumer.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logr.Info("shutting down...")
		health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		health.SetServingStatus(handler.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logr.Error("HTTP server shutdown", zap.Error(err))
		}
		logr.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		logr.Info("gRPC server stopped")
		return nil
	})

	return g.Wait()
}

func openStorage(ctx context.Context, cfg config.Config, logr *zap.Logger) (*adapters, error) {
	if cfg.Storage == config.StorageMemory {
		logr.Info("using in-memory storage")
		return &adapters{
			carts:  storage.NewMemoryCartRepository(),
			orders: storage.NewMemoryOrderRepository(),
			locker: storage.NewMemoryLocker(),
		}, nil
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logr.Info("connected to mysql")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		db.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logr.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	return &adapters{
		carts:   storage.NewRedisCartRepository(rdb),
		orders:  storage.NewMySQLOrderRepository(db),
		locker:  storage.NewRedisLocker(rdb, cfg.LockTTL),
		closers: []io.Closer{db, rdb},
	}, nil
}
