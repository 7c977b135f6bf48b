package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	"github.com/segmentio/kafka-go"
)

var ErrMalformedEvent = errors.New("malformed payment event")

const (
	readRetryDelay      = 2 * time.Second
	handleRetryDelay    = 500 * time.Millisecond
	maxHandleRetryDelay = 30 * time.Second
)

// PaymentConfirmedEvent is published by the storefront API once a payment
// has settled, whether or not the shopper's browser came back.
type PaymentConfirmedEvent struct {
	Reference     string              `json:"reference"`
	SessionID     string              `json:"sessionId"`
	OrderID       string              `json:"orderId"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus"`
	ConfirmedAt   time.Time           `json:"confirmedAt"`
}

// CartClearer empties one session's cart.
type CartClearer interface {
	ClearSession(ctx context.Context, sessionID string) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PaymentConsumer clears carts whose payment was confirmed upstream.
type PaymentConsumer struct {
	reader     messageReader
	carts      CartClearer
	retryDelay time.Duration
}

func NewPaymentConsumer(carts CartClearer, brokers []string, topic, groupID string) *PaymentConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &PaymentConsumer{reader: reader, carts: carts, retryDelay: handleRetryDelay}
}

// Run consumes until ctx ends. Offsets are committed per partition, so a
// message that failed for a transient reason is retried with backoff before
// the next one is fetched; committing a later offset would skip it.
func (p *PaymentConsumer) Run(ctx context.Context) {
	logger.Info("Payment consumer started", nil)
	for {
		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("Payment consumer stopped", nil)
				return
			}
			logger.Error("Failed to read payment event", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}

		if !p.handleUntilDone(ctx, msg) {
			logger.Info("Payment consumer stopped", map[string]interface{}{
				"uncommitted_offset": msg.Offset,
			})
			return
		}

		if err := p.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			logger.Error("Failed to commit payment event", err, map[string]interface{}{
				"offset": msg.Offset,
			})
		}
	}
}

// handleUntilDone retries msg until it is handled or skipped as malformed.
// It reports false when ctx ended first.
func (p *PaymentConsumer) handleUntilDone(ctx context.Context, msg kafka.Message) bool {
	delay := p.retryDelay
	if delay <= 0 {
		delay = handleRetryDelay
	}

	for attempt := 1; ; attempt++ {
		err := p.Handle(ctx, msg)
		if err == nil || errors.Is(err, ErrMalformedEvent) {
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		logger.Error("Failed to handle payment event, retrying", err, map[string]interface{}{
			"offset":    msg.Offset,
			"partition": msg.Partition,
			"attempt":   attempt,
			"retry_in":  delay.String(),
		})
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxHandleRetryDelay {
			delay = maxHandleRetryDelay
		}
	}
}

// Handle clears the cart named by one event. Events that are not a completed
// payment are ignored.
func (p *PaymentConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	var event PaymentConfirmedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Warn("Skipping unreadable payment event", map[string]interface{}{
			"offset": msg.Offset,
			"error":  err.Error(),
		})
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.SessionID == "" {
		logger.Warn("Skipping payment event without session", map[string]interface{}{
			"reference": event.Reference,
		})
		return fmt.Errorf("%w: missing sessionId", ErrMalformedEvent)
	}
	if event.PaymentStatus != model.PaymentStatusCompleted {
		logger.Debug("Ignoring payment event", map[string]interface{}{
			"reference": event.Reference,
			"status":    event.PaymentStatus,
		})
		return nil
	}

	err := p.carts.ClearSession(ctx, event.SessionID)
	if err != nil && !service.IsPersistenceOnly(err) {
		return fmt.Errorf("failed to clear cart for %s: %w", event.Reference, err)
	}

	logger.Info("Cart cleared by payment event", map[string]interface{}{
		"session_id": event.SessionID,
		"reference":  event.Reference,
		"order_id":   event.OrderID,
		"saved":      err == nil,
	})
	return nil
}

func (p *PaymentConsumer) Close() {
	if err := p.reader.Close(); err != nil {
		logger.Error("Failed to close payment consumer", err)
	}
}
