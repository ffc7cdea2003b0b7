// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, ensuring the binary never
// runs with partial, malformed, or missing configuration.
//
// Besides the built-in rules (`required`, `email`, `timezone`, …) one custom
// rule is registered here:
//
//   • interval – a refresh schedule name (hourly, twicedaily, …) or a
//     positive number of seconds.
//
// The interval table lives here too because it is part of the
// configuration vocabulary; the registry reads it through ParseInterval.

package config

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// interval vocabulary
//

// Named refresh intervals, in seconds.
var intervals = map[string]int{
	"hourly":       3600,
	"twicedaily":   43200,
	"daily":        86400,
	"twiceweekly":  302400,
	"weekly":       604800,
	"twicemonthly": 1296000,
	"monthly":      2592000,
}

// ParseInterval resolves a schedule name ("Twice Daily", "hourly") or a
// number of seconds.  It returns the seconds and the canonical name
// ("other" for bare numbers that match no name).
func ParseInterval(s string) (int, string, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(s), ""))
	if sec, ok := intervals[key]; ok {
		return sec, key, true
	}
	n, err := strconv.Atoi(key)
	if err != nil || n <= 0 {
		return 0, "", false
	}
	return n, IntervalName(n), true
}

// IntervalName maps seconds back to a schedule name, or "other".
func IntervalName(sec int) string {
	for name, v := range intervals {
		if v == sec {
			return name
		}
	}
	return "other"
}

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("interval", func(fl validator.FieldLevel) bool {
		_, _, ok := ParseInterval(fl.Field().String())
		return ok
	})
	return val
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
