package ports

import (
	"context"

	"github.com/samirrijal/locus/internal/core/domain"
)

// EventPublisher publishes registry events to a message broker.
type EventPublisher interface {
	PublishRegistration(ctx context.Context, event *domain.RegistrationAccepted) error
	PublishRejection(ctx context.Context, event *domain.ProposalRejected) error
}

// EventSubscriber subscribes to registry events from a message broker.
type EventSubscriber interface {
	SubscribeRegistrations(ctx context.Context, handler func(ctx context.Context, event *domain.RegistrationAccepted) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
