package gateway

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

type BreakerConfig struct {
	Timeout          time.Duration // per call
	MaxRequests      uint32        // allowed while half-open
	Interval         time.Duration
	OpenTimeout      time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Timeout:          2 * time.Second,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		OpenTimeout:      15 * time.Second,
		MinRequests:      5,
		FailureThreshold: 0.6,
	}
}

func newBreaker[T any](name string, cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// BreakerCatalog guards a CatalogGateway with a per-call timeout and a
// circuit breaker. While open, calls fail fast with gobreaker.ErrOpenState.
type BreakerCatalog struct {
	next    port.CatalogGateway
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[port.ProductData]
}

func NewBreakerCatalog(next port.CatalogGateway, cfg BreakerConfig, logger *zap.Logger) *BreakerCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BreakerCatalog{next: next, timeout: cfg.Timeout, cb: newBreaker[port.ProductData]("catalog", cfg, logger)}
}

func (b *BreakerCatalog) GetProductData(ctx context.Context, productID domain.ProductID) (port.ProductData, error) {
	return b.cb.Execute(func() (port.ProductData, error) {
		ctx, cancel := withTimeout(ctx, b.timeout)
		defer cancel()
		return b.next.GetProductData(ctx, productID)
	})
}

type BreakerPricing struct {
	next    port.PricingGateway
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[port.PriceQuote]
}

func NewBreakerPricing(next port.PricingGateway, cfg BreakerConfig, logger *zap.Logger) *BreakerPricing {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BreakerPricing{next: next, timeout: cfg.Timeout, cb: newBreaker[port.PriceQuote]("pricing", cfg, logger)}
}

func (b *BreakerPricing) CalculatePricing(ctx context.Context, lines []port.PricingLine) (port.PriceQuote, error) {
	return b.cb.Execute(func() (port.PriceQuote, error) {
		ctx, cancel := withTimeout(ctx, b.timeout)
		defer cancel()
		return b.next.CalculatePricing(ctx, lines)
	})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
