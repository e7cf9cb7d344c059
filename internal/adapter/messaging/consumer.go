package messaging

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/core/service"
)

var errMalformed = errors.New("malformed message")

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaReader(brokers []string, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: []string{TopicPaymentApproved, TopicStockReserved},
		MaxBytes:    10e6, // 10MB
	})
}

type PaymentHandler interface {
	Handle(ctx context.Context, msg service.PaymentApproved) error
}

type StockHandler interface {
	Handle(ctx context.Context, msg service.StockReserved) error
}

type ConsumerConfig struct {
	Workers       int
	QueueSize     int
	HandleTimeout time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
}

func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:       4,
		QueueSize:     16,
		HandleTimeout: 5 * time.Second,
		MaxAttempts:   3,
		RetryBackoff:  200 * time.Millisecond,
	}
}

// Consumer feeds payment and stock notices to their handlers. Each
// topic partition is pinned to one worker, so offsets are committed in
// order and one order's notices are applied in sequence.
type Consumer struct {
	reader   MessageReader
	payments PaymentHandler
	stock    StockHandler
	cfg      ConsumerConfig
	logger   *zap.Logger
}

func NewConsumer(reader MessageReader, payments PaymentHandler, stock StockHandler, cfg ConsumerConfig, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = def.HandleTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	return &Consumer{reader: reader, payments: payments, stock: stock, cfg: cfg, logger: logger}
}

// Run fetches until ctx is done or the reader is closed, then waits for the
// workers to finish what they already hold.
func (c *Consumer) Run(ctx context.Context) error {
	queues := make([]chan kafka.Message, c.cfg.Workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan kafka.Message, c.cfg.QueueSize)
		wg.Add(1)
		go func(id int, queue <-chan kafka.Message) {
			defer wg.Done()
			c.workerLoop(id, queue)
		}(i, queues[i])
	}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
		c.logger.Info("consumer workers stopped")
	}()

	c.logger.Info("consumer started", zap.Int("workers", c.cfg.Workers))
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Error("failed to fetch message", zap.Error(err))
			if !sleep(ctx, c.cfg.RetryBackoff) {
				return nil
			}
			continue
		}

		select {
		case queues[c.shard(msg)] <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) shard(msg kafka.Message) int {
	h := fnv.New32a()
	h.Write([]byte(msg.Topic))
	h.Write([]byte(strconv.Itoa(msg.Partition)))
	return int(h.Sum32() % uint32(c.cfg.Workers))
}

func (c *Consumer) workerLoop(id int, queue <-chan kafka.Message) {
	for msg := range queue {
		log := c.logger.With(
			zap.Int("worker", id),
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)

		if err := c.handleWithRetry(msg); err != nil {
			log.Error("message dropped after failed handling", zap.Error(err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandleTimeout)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Error("failed to commit message", zap.Error(err))
		}
		cancel()
	}
}

// handleWithRetry retries transient failures. Malformed messages and
// domain rejections are final on the first attempt.
func (c *Consumer) handleWithRetry(msg kafka.Message) error {
	var err error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandleTimeout)
		err = c.dispatch(ctx, msg)
		cancel()
		if err == nil || permanent(err) {
			return err
		}
		if attempt < c.cfg.MaxAttempts {
			time.Sleep(c.cfg.RetryBackoff * time.Duration(attempt))
		}
	}
	return err
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) error {
	switch msg.Topic {
	case TopicPaymentApproved:
		notice, err := decodePaymentApproved(msg.Value)
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		return c.payments.Handle(ctx, notice)
	case TopicStockReserved:
		notice, err := decodeStockReserved(msg.Value)
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		return c.stock.Handle(ctx, notice)
	default:
		return fmt.Errorf("%w: unexpected topic %q", errMalformed, msg.Topic)
	}
}

func permanent(err error) bool {
	return errors.Is(err, errMalformed) || domain.KindOf(err) != ""
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
