package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/locus/internal/core/domain"
)

func locationMap(l domain.Location) map[string]interface{} {
	return map[string]interface{}{"lat": l.Lat.Float64(), "lon": l.Lon.Float64()}
}

func registrationMap(reg *domain.Registration) map[string]interface{} {
	locs := make([]map[string]interface{}, len(reg.Set.Locations))
	for i, l := range reg.Set.Locations {
		locs[i] = locationMap(l)
	}
	boots := make([]string, len(reg.Set.Bootstrappers))
	for i, b := range reg.Set.Bootstrappers {
		boots[i] = b.String()
	}
	return map[string]interface{}{
		"id":            reg.ID.String(),
		"proposer":      reg.Proposer.String(),
		"registered_at": reg.RegisteredAt.UTC().Format(time.RFC3339),
		"locations":     locs,
		"bootstrappers": boots,
	}
}

// argLocation reads a {lat, lon} input object.
func argLocation(v interface{}) (domain.Location, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return domain.Location{}, errors.New("location must be an object")
	}
	lat, _ := m["lat"].(float64)
	lon, _ := m["lon"].(float64)
	return domain.NewLocation(lat, lon)
}

func argSet(p graphql.ResolveParams) (domain.LocationSet, error) {
	var set domain.LocationSet
	raw, _ := p.Args["locations"].([]interface{})
	for i, v := range raw {
		l, err := argLocation(v)
		if err != nil {
			return set, fmt.Errorf("locations[%d]: %w", i, err)
		}
		set.Locations = append(set.Locations, l)
	}
	boots, _ := p.Args["bootstrappers"].([]interface{})
	for i, v := range boots {
		s, _ := v.(string)
		a, err := domain.ParseAccountID(s)
		if err != nil {
			return set, fmt.Errorf("bootstrappers[%d]: %w", i, err)
		}
		set.Bootstrappers = append(set.Bootstrappers, a)
	}
	return set, nil
}

func argPair(p graphql.ResolveParams) (domain.Location, domain.Location, error) {
	from, err := argLocation(p.Args["from"])
	if err != nil {
		return from, domain.Location{}, err
	}
	to, err := argLocation(p.Args["to"])
	return from, to, err
}

// buildSchema creates the GraphQL schema wired to the registry services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Location",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	locationInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "LocationInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lon": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	locationSetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LocationSet",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"proposer":      &graphql.Field{Type: graphql.String},
			"registered_at": &graphql.Field{Type: graphql.String},
			"locations":     &graphql.Field{Type: graphql.NewList(locationType)},
			"bootstrappers": &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	pageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LocationSetPage",
		Fields: graphql.Fields{
			"ids":   &graphql.Field{Type: graphql.NewList(graphql.String)},
			"total": &graphql.Field{Type: graphql.Int},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RegistryStats",
		Fields: graphql.Fields{
			"location_sets": &graphql.Field{Type: graphql.Int},
			"locations":     &graphql.Field{Type: graphql.Int},
		},
	})

	validationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ValidationResult",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"accepted": &graphql.Field{Type: graphql.Boolean},
			"reason":   &graphql.Field{Type: graphql.String},
			"index":    &graphql.Field{Type: graphql.Int},
			"conflict": &graphql.Field{Type: graphql.String},
		},
	})

	assessmentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LocationAssessment",
		Fields: graphql.Fields{
			"valid":                 &graphql.Field{Type: graphql.Boolean},
			"north_pole_distance_m": &graphql.Field{Type: graphql.Int},
			"south_pole_distance_m": &graphql.Field{Type: graphql.Int},
			"dateline_distance_m":   &graphql.Field{Type: graphql.Int},
			"too_near_pole":         &graphql.Field{Type: graphql.Boolean},
			"too_near_dateline":     &graphql.Field{Type: graphql.Boolean},
		},
	})

	pairArgs := graphql.FieldConfigArgument{
		"from": &graphql.ArgumentConfig{Type: graphql.NewNonNull(locationInput)},
		"to":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(locationInput)},
	}
	setArgs := graphql.FieldConfigArgument{
		"locations":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(locationInput)))},
		"bootstrappers": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"locationSet": &graphql.Field{
				Type:        locationSetType,
				Description: "Get a registered location set by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := domain.ParseLocationSetID(p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					reg, err := deps.Registrations.Get(p.Context, id)
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return registrationMap(reg), nil
				},
			},
			"locationSets": &graphql.Field{
				Type:        pageType,
				Description: "Registered IDs in registration order",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultPageLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					ids, total, err := deps.Registrations.List(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					if err != nil {
						return nil, err
					}
					out := make([]string, len(ids))
					for i, id := range ids {
						out[i] = id.String()
					}
					return map[string]interface{}{"ids": out, "total": total}, nil
				},
			},
			"stats": &graphql.Field{
				Type:        statsType,
				Description: "Registry size",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s, err := deps.Registrations.Stats(p.Context)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"location_sets": s.LocationSets, "locations": s.Locations}, nil
				},
			},
			"distance": &graphql.Field{
				Type:        graphql.Int,
				Description: "Great-circle distance in meters",
				Args:        pairArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					from, to, err := argPair(p)
					if err != nil {
						return nil, err
					}
					d, err := deps.Geo.Distance(from, to)
					return int(d), err
				},
			},
			"solarTripTime": &graphql.Field{
				Type:        graphql.Int,
				Description: "Solar trip time in seconds; may be negative",
				Args:        pairArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					from, to, err := argPair(p)
					if err != nil {
						return nil, err
					}
					t, err := deps.Geo.SolarTripTime(from, to)
					return int(t), err
				},
			},
			"validity": &graphql.Field{
				Type:        assessmentType,
				Description: "Check one location against the pole and dateline rules",
				Args: graphql.FieldConfigArgument{
					"location": &graphql.ArgumentConfig{Type: graphql.NewNonNull(locationInput)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					l, err := argLocation(p.Args["location"])
					if err != nil {
						return nil, err
					}
					a := deps.Geo.Assess(l)
					return map[string]interface{}{
						"valid":                 a.Valid,
						"north_pole_distance_m": int(a.NorthPoleDistance),
						"south_pole_distance_m": int(a.SouthPoleDistance),
						"dateline_distance_m":   int(a.DatelineDistance),
						"too_near_pole":         a.TooNearPole,
						"too_near_dateline":     a.TooNearDateline,
					}, nil
				},
			},
			"validateLocationSet": &graphql.Field{
				Type:        validationType,
				Description: "Dry-run the validator against the current registry",
				Args:        setArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					set, err := argSet(p)
					if err != nil {
						return nil, err
					}
					id, err := deps.Registrations.Check(p.Context, set)
					return validationMap(id, err)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func validationMap(id domain.LocationSetID, err error) (interface{}, error) {
	out := map[string]interface{}{"id": id.String(), "accepted": err == nil}
	if err == nil {
		return out, nil
	}
	var rej *domain.RejectionError
	if !errors.As(err, &rej) {
		return nil, err
	}
	out["reason"] = string(rej.Reason)
	if rej.Index >= 0 {
		out["index"] = rej.Index
	}
	if rej.Conflict != nil {
		out["conflict"] = rej.Conflict.String()
	}
	return out, nil
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
