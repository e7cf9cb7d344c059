package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/purchase-lifecycle/internal/adapter/gateway"
	"github.com/rl1809/purchase-lifecycle/internal/adapter/storage"
	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/core/service"
)

const (
	duplicateDeliveries   = 30
	conflictingDeliveries = 20
	reservationDeliveries = 25
)

// countingPublisher tallies published events per kind.
type countingPublisher struct {
	mu     sync.Mutex
	counts map[domain.EventKind]int
}

func (p *countingPublisher) PublishDomainEvents(_ context.Context, events []domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range events {
		p.counts[e.Kind()]++
	}
	return nil
}

func (p *countingPublisher) count(kind domain.EventKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[kind]
}

func main() {
	ctx := context.Background()

	carts := storage.NewMemoryCartRepository()
	orders := storage.NewMemoryOrderRepository()
	locker := storage.NewMemoryLocker()
	publisher := &countingPublisher{counts: make(map[domain.EventKind]int)}

	catalog, err := gateway.NewStaticCatalog(gateway.DefaultProducts())
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	pricing, err := gateway.NewStaticPricing(gateway.DefaultProducts(), gateway.DefaultPricingRules())
	if err != nil {
		log.Fatalf("pricing: %v", err)
	}

	cartService := service.NewCartService(carts, locker, nil)
	checkoutService := service.NewCheckoutService(carts, orders, service.NewOrderPricingService(catalog, pricing),
		service.NewOrderCreationService(), publisher, locker, nil)
	payments := service.NewPaymentApprovedHandler(orders, publisher, locker, nil)
	stock := service.NewStockReservedHandler(orders, publisher, locker, nil)

	order := placeOrder(ctx, cartService, checkoutService)
	fmt.Printf("Order %s placed, total %s\n", order.ID(), order.TotalAmount())

	// Counters
	var applied atomic.Int32
	var rejected atomic.Int32
	var failed atomic.Int32

	// Same payment delivered many times, racing other payments for the same order
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < duplicateDeliveries+conflictingDeliveries; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			paymentID := "pay-primary"
			if n%3 == 0 && n/3 < conflictingDeliveries {
				paymentID = fmt.Sprintf("pay-rival-%d", n)
			}
			err := payments.Handle(ctx, service.PaymentApproved{
				OrderID:        order.ID(),
				PaymentID:      mustPaymentID(paymentID),
				ApprovedAmount: order.TotalAmount(),
				Timestamp:      time.Now(),
			})
			switch {
			case err == nil:
				applied.Add(1)
			case errors.Is(err, domain.ErrNotAwaitingPayment):
				rejected.Add(1)
			default:
				log.Printf("delivery %d: unexpected error: %v", n, err)
				failed.Add(1)
			}
		}(i)
	}

	wg.Wait()

	for i := 0; i < reservationDeliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := stock.Handle(ctx, service.StockReserved{
				OrderID:       order.ID(),
				ReservationID: mustReservationID("res-1"),
				Timestamp:     time.Now(),
			})
			if err != nil {
				log.Printf("reservation: %v", err)
				failed.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	final, err := orders.FindByID(ctx, order.ID())
	if err != nil || final == nil {
		log.Fatalf("reload order: %v", err)
	}

	// Results
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Payment Deliveries:   %d\n", duplicateDeliveries+conflictingDeliveries)
	fmt.Printf("Accepted:             %d\n", applied.Load())
	fmt.Printf("Rejected:             %d\n", rejected.Load())
	fmt.Printf("Failed:               %d\n", failed.Load())
	fmt.Printf("OrderPaid Events:     %d\n", publisher.count(domain.EventOrderPaid))
	fmt.Printf("StockReserved Events: %d\n", publisher.count(domain.EventOrderStockReserved))
	fmt.Printf("Final Status:         %s\n", final.Status())
	fmt.Printf("Duration:             %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	pass := true
	check := func(ok bool, format string, args ...any) {
		if ok {
			fmt.Printf("PASS: "+format+"\n", args...)
			return
		}
		pass = false
		fmt.Printf("FAIL: "+format+"\n", args...)
	}
	check(failed.Load() == 0, "no delivery failed")
	check(publisher.count(domain.EventOrderPaid) == 1, "exactly one OrderPaid event")
	check(publisher.count(domain.EventOrderStockReserved) == 1, "exactly one OrderStockReserved event")
	check(final.Status() == domain.StatusStockReserved, "order ends in %s", domain.StatusStockReserved)
	paymentID, ok := final.PaymentID()
	check(ok, "winning payment %s recorded", paymentID)
	check(applied.Load()+rejected.Load() == duplicateDeliveries+conflictingDeliveries,
		"every payment delivery was either applied or rejected")
	if !pass {
		log.Fatal("stress test failed")
	}
}

func placeOrder(ctx context.Context, carts *service.CartService, checkout *service.CheckoutService) *domain.Order {
	customerID, err := domain.ParseCustomerID("stress-customer")
	if err != nil {
		log.Fatalf("customer: %v", err)
	}
	cart, err := carts.CreateCart(ctx, customerID)
	if err != nil {
		log.Fatalf("create cart: %v", err)
	}
	for _, line := range []struct {
		product  string
		quantity int
	}{{"sku-kettle", 1}, {"sku-beans", 5}} {
		productID, err := domain.ParseProductID(line.product)
		if err != nil {
			log.Fatalf("product: %v", err)
		}
		if _, err := carts.AddItem(ctx, cart.ID(), productID, domain.MustQuantity(line.quantity)); err != nil {
			log.Fatalf("add item: %v", err)
		}
	}

	address, err := domain.NewShippingAddress(domain.AddressFields{
		Recipient:  "Load Tester",
		Street:     "1 Benchmark Way",
		City:       "Austin",
		State:      "TX",
		PostalCode: "73301",
		Country:    "US",
	})
	if err != nil {
		log.Fatalf("address: %v", err)
	}
	order, err := checkout.Checkout(ctx, cart.ID(), address)
	if err != nil {
		log.Fatalf("checkout: %v", err)
	}
	return order
}

func mustPaymentID(s string) domain.PaymentID {
	id, err := domain.ParsePaymentID(s)
	if err != nil {
		log.Fatalf("payment id: %v", err)
	}
	return id
}

func mustReservationID(s string) domain.ReservationID {
	id, err := domain.ParseReservationID(s)
	if err != nil {
		log.Fatalf("reservation id: %v", err)
	}
	return id
}
