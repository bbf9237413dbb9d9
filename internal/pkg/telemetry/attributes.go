package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys used across the registry.
const (
	AttrLocationSetID = attribute.Key("locus.location_set.id")
	AttrLocations     = attribute.Key("locus.location_set.locations")
	AttrBootstrappers = attribute.Key("locus.location_set.bootstrappers")
	AttrOutcome       = attribute.Key("locus.proposal.outcome")
	AttrRejectReason  = attribute.Key("locus.proposal.reason")
	AttrRegistrySets  = attribute.Key("locus.registry.location_sets")
)

// Proposal outcomes, shared by span attributes and metric labels.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
