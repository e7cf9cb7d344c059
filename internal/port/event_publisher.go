package port

import (
	"context"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
)

type EventPublisher interface {
	// PublishDomainEvents delivers the events as integration messages; callers clear them only on success
	PublishDomainEvents(ctx context.Context, events []domain.DomainEvent) error
}
