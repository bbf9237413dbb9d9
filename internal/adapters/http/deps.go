package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/locus/internal/adapters/postgres"
	"github.com/samirrijal/locus/internal/adapters/valkey"
	"github.com/samirrijal/locus/internal/core/domain"
	"github.com/samirrijal/locus/internal/core/usecases"
)

// RegistrationStarter hands a proposal to the asynchronous registration
// workflow and returns the workflow run ID.
type RegistrationStarter interface {
	StartRegistration(ctx context.Context, proposer domain.AccountID, set domain.LocationSet) (string, error)
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Registrations *usecases.RegistrationService
	Geo           *usecases.GeoService
	Workflows     RegistrationStarter // optional
	NATS          *nats.Conn
	DB            *postgres.DB // nil under memory storage
	Cache         *valkey.Cache

	// MaxLocationsPerSet bounds proposals accepted at the edge; 0 disables.
	MaxLocationsPerSet int
	// DocsPath is the OpenAPI document served at /docs/openapi.yaml.
	DocsPath string
}
