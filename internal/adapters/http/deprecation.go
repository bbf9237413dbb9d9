package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with sunset date.
type DeprecatedRoute struct {
	Path        string    // Route pattern, ":name" segments match anything
	SunsetDate  time.Time // Date when endpoint will be removed
	Alternative string    // Successor endpoint (optional)
}

// currencySunset is when the /v1/currencies aliases go away.
var currencySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// currencyAliases are the legacy names of the location-set endpoints.
var currencyAliases = []DeprecatedRoute{
	{Path: "/v1/currencies", SunsetDate: currencySunset, Alternative: "/v1/location-sets"},
	{Path: "/v1/currencies/validate", SunsetDate: currencySunset, Alternative: "/v1/location-sets/validate"},
	{Path: "/v1/currencies/:id", SunsetDate: currencySunset, Alternative: "/v1/location-sets/:id"},
	{Path: "/v1/currencies/:id/locations", SunsetDate: currencySunset, Alternative: "/v1/location-sets/:id/locations"},
	{Path: "/v1/currencies/:id/bootstrappers", SunsetDate: currencySunset, Alternative: "/v1/location-sets/:id/bootstrappers"},
}

// DeprecationMiddleware adds Deprecation, Sunset, and Link headers to deprecated endpoints.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, d := range deprecated {
			params, ok := matchPattern(path, d.Path)
			if !ok {
				continue
			}

			// RFC 8594
			c.Set("Deprecation", "true")
			c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))

			if d.Alternative != "" {
				c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, expandPattern(d.Alternative, params)))
			}

			days := time.Until(d.SunsetDate).Hours() / 24
			c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
			break
		}

		return c.Next()
	}
}

// matchPattern matches path against a route pattern segment by segment and
// returns the values bound to ":name" segments.
func matchPattern(path, pattern string) (map[string]string, bool) {
	ps := strings.Split(strings.Trim(path, "/"), "/")
	qs := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(ps) != len(qs) {
		return nil, false
	}

	params := make(map[string]string)
	for i, q := range qs {
		if strings.HasPrefix(q, ":") {
			if ps[i] == "" {
				return nil, false
			}
			params[q[1:]] = ps[i]
			continue
		}
		if q != ps[i] {
			return nil, false
		}
	}
	return params, true
}

func expandPattern(pattern string, params map[string]string) string {
	segs := strings.Split(pattern, "/")
	for i, s := range segs {
		if v, ok := params[strings.TrimPrefix(s, ":")]; ok && strings.HasPrefix(s, ":") {
			segs[i] = v
		}
	}
	return strings.Join(segs, "/")
}
