package domain

import "time"

// Registration is an accepted location set together with its id and the
// account that proposed it.
type Registration struct {
	ID           LocationSetID `json:"id"`
	Set          LocationSet   `json:"set"`
	Proposer     AccountID     `json:"proposer"`
	RegisteredAt time.Time     `json:"registered_at"`
}

// RegistrationAccepted is emitted after a location set has been committed.
type RegistrationAccepted struct {
	Proposer     AccountID     `json:"proposer"`
	ID           LocationSetID `json:"id"`
	Locations    int           `json:"locations"`
	RegisteredAt time.Time     `json:"registered_at"`
}

// RegistryStats summarises the registry.
type RegistryStats struct {
	LocationSets int `json:"location_sets"`
	Locations    int `json:"locations"`
}

// ProposalRejected is emitted when a proposal fails validation.
type ProposalRejected struct {
	Proposer   AccountID      `json:"proposer"`
	ID         LocationSetID  `json:"id"`
	Reason     RejectReason   `json:"reason"`
	Index      int            `json:"index"`
	Conflict   *LocationSetID `json:"conflict,omitempty"`
	RejectedAt time.Time      `json:"rejected_at"`
}
