package http

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/locus/internal/core/domain"
)

// ProposalRequest is the body of a location-set proposal.
type ProposalRequest struct {
	Proposer      domain.AccountID   `json:"proposer"`
	Locations     []domain.Location  `json:"locations"`
	Bootstrappers []domain.AccountID `json:"bootstrappers"`
}

// ValidationResult is the outcome of a dry-run validation.
type ValidationResult struct {
	ID       domain.LocationSetID  `json:"id"`
	Accepted bool                  `json:"accepted"`
	Reason   domain.RejectReason   `json:"reason,omitempty"`
	Message  string                `json:"message,omitempty"`
	Index    *int                  `json:"index,omitempty"`
	Conflict *domain.LocationSetID `json:"conflict,omitempty"`
}

// RegistrationResponse is returned for a committed or stored location set.
type RegistrationResponse struct {
	ID            domain.LocationSetID `json:"id"`
	Proposer      domain.AccountID     `json:"proposer"`
	Locations     []domain.Location    `json:"locations"`
	Bootstrappers []domain.AccountID   `json:"bootstrappers"`
	RegisteredAt  string               `json:"registered_at"`
}

// RegistryStatsResponse combines registry size with the constants in force.
type RegistryStatsResponse struct {
	domain.RegistryStats
	MaxSpeedMPS        int64  `json:"max_speed_mps"`
	MinSolarTripTime   int64  `json:"min_solar_trip_time_s"`
	DatelineDistance   uint32 `json:"dateline_distance_m"`
	MaxLocationsPerSet int    `json:"max_locations_per_set,omitempty"`
}

func toRegistrationResponse(reg *domain.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:            reg.ID,
		Proposer:      reg.Proposer,
		Locations:     reg.Set.Locations,
		Bootstrappers: reg.Set.Bootstrappers,
		RegisteredAt:  reg.RegisteredAt.UTC().Format(time.RFC3339),
	}
}

// parseProposal decodes and bounds a proposal body.
func parseProposal(c *fiber.Ctx, deps *Dependencies) (ProposalRequest, error) {
	var req ProposalRequest
	if err := c.BodyParser(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if deps.MaxLocationsPerSet > 0 && len(req.Locations) > deps.MaxLocationsPerSet {
		return req, fmt.Errorf("too many locations: %d exceeds the limit of %d", len(req.Locations), deps.MaxLocationsPerSet)
	}
	return req, nil
}

func (r ProposalRequest) set() domain.LocationSet {
	return domain.LocationSet{Locations: r.Locations, Bootstrappers: r.Bootstrappers}
}

// ProposeHandler validates and registers a location set. With ?async=true
// the proposal is handed to the registration workflow instead.
func ProposeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parseProposal(c, deps)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		set := req.set()

		if c.QueryBool("async") {
			if deps.Workflows == nil {
				return newError(c, fiber.StatusNotImplemented, "not_implemented", "asynchronous registration is not enabled")
			}
			runID, err := deps.Workflows.StartRegistration(c.UserContext(), req.Proposer, set)
			if err != nil {
				return errInternal(c, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"id":          set.ID(),
				"workflow_id": runID,
			})
		}

		reg, err := deps.Registrations.Propose(c.UserContext(), req.Proposer, set)
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Location("/v1/location-sets/" + reg.ID.String())
		return c.Status(fiber.StatusCreated).JSON(toRegistrationResponse(reg))
	}
}

// ValidateHandler runs the validator without committing.
func ValidateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parseProposal(c, deps)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		id, err := deps.Registrations.Check(c.UserContext(), req.set())
		res := ValidationResult{ID: id, Accepted: err == nil}

		var rej *domain.RejectionError
		switch {
		case err == nil:
		case errors.As(err, &rej):
			res.Reason = rej.Reason
			res.Message = rej.Reason.Message()
			res.Conflict = rej.Conflict
			if rej.Index >= 0 {
				idx := rej.Index
				res.Index = &idx
			}
		default:
			return errInternal(c, err)
		}
		return c.JSON(res)
	}
}

// ListLocationSetsHandler returns registered IDs in registration order.
func ListLocationSetsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pg := parsePage(c)
		ids, total, err := deps.Registrations.List(c.UserContext(), pg.Offset, pg.Limit)
		if err != nil {
			return errInternal(c, err)
		}
		if ids == nil {
			ids = []domain.LocationSetID{}
		}

		pg.Total = total
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: ids, Pagination: pg})
	}
}

// lookup resolves the :id parameter to a registration, writing the error
// response itself when it fails.
func lookup(c *fiber.Ctx, deps *Dependencies) (*domain.Registration, error) {
	id, err := domain.ParseLocationSetID(c.Params("id"))
	if err != nil {
		return nil, errBadRequest(c, err.Error())
	}
	reg, err := deps.Registrations.Get(c.UserContext(), id)
	if err != nil {
		return nil, writeServiceError(c, err)
	}
	return reg, nil
}

// GetLocationSetHandler returns one registered location set.
func GetLocationSetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reg, err := lookup(c, deps)
		if reg == nil {
			return err
		}
		return c.JSON(toRegistrationResponse(reg))
	}
}

// LocationSetLocationsHandler returns only the locations of a set.
func LocationSetLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reg, err := lookup(c, deps)
		if reg == nil {
			return err
		}
		return c.JSON(fiber.Map{"id": reg.ID, "data": reg.Set.Locations})
	}
}

// LocationSetBootstrappersHandler returns only the bootstrappers of a set.
func LocationSetBootstrappersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reg, err := lookup(c, deps)
		if reg == nil {
			return err
		}
		return c.JSON(fiber.Map{"id": reg.ID, "data": reg.Set.Bootstrappers})
	}
}

// RegistryStatsHandler reports registry size and separation constants.
func RegistryStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := deps.Registrations.Stats(c.UserContext())
		if err != nil {
			return errInternal(c, err)
		}
		p := deps.Registrations.Params()
		return c.JSON(RegistryStatsResponse{
			RegistryStats:      stats,
			MaxSpeedMPS:        p.MaxSpeedMPS,
			MinSolarTripTime:   p.MinSolarTripTime,
			DatelineDistance:   p.DatelineDistance,
			MaxLocationsPerSet: deps.MaxLocationsPerSet,
		})
	}
}

// queryLocation reads a coordinate pair from the query string. Both values
// are required since zero is a valid coordinate.
func queryLocation(c *fiber.Ctx, latKey, lonKey string) (domain.Location, error) {
	lat, err := queryFloat(c, latKey)
	if err != nil {
		return domain.Location{}, err
	}
	lon, err := queryFloat(c, lonKey)
	if err != nil {
		return domain.Location{}, err
	}
	return domain.NewLocation(lat, lon)
}

func queryFloat(c *fiber.Ctx, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: not a number", key)
	}
	return v, nil
}

func queryPair(c *fiber.Ctx) (domain.Location, domain.Location, error) {
	from, err := queryLocation(c, "from_lat", "from_lon")
	if err != nil {
		return from, domain.Location{}, err
	}
	to, err := queryLocation(c, "to_lat", "to_lon")
	return from, to, err
}

// DistanceHandler returns the great-circle distance between two points.
func DistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := queryPair(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		d, err := deps.Geo.Distance(from, to)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"from": from, "to": to, "distance_m": d})
	}
}

// SolarTripTimeHandler returns the solar trip time between two points.
func SolarTripTimeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := queryPair(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		stt, err := deps.Geo.SolarTripTime(from, to)
		if err != nil {
			return writeServiceError(c, err)
		}
		d, _ := deps.Geo.Distance(from, to)
		p := deps.Geo.Params()
		return c.JSON(fiber.Map{
			"from":                  from,
			"to":                    to,
			"distance_m":            d,
			"solar_trip_time_s":     stt,
			"admissible":            stt >= p.MinSolarTripTime,
			"min_solar_trip_time_s": p.MinSolarTripTime,
		})
	}
}

// ValidityHandler assesses a single location against the per-location rules.
func ValidityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l, err := queryLocation(c, "lat", "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(deps.Geo.Assess(l))
	}
}
