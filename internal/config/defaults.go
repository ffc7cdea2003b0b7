// internal/config/defaults.go
//
// Built-in defaults, loaded as the lowest koanf layer.
//
// Notes
// -----
//   • Keys use the same dotted paths as the YAML tree.
//   • Anything set in `conf/registrar.yaml` or the environment wins.

package config

import "time"

// AllActions lists every API action in dispatch order.
var AllActions = []string{"create", "activate", "deactivate", "verify", "refresh", "revise"}

func defaults() map[string]any {
	return map[string]any{
		"http.listen_addr": ":8080",
		"http.base_path":   "/softwareregistry",

		"database.driver":   "memory",
		"database.max_open": 15,
		"database.max_idle": 5,

		"vault.ttl": "5m",

		"redis.lock_ttl": "10s",

		"kafka.topic": "registry.lifecycle",

		"log.level": "info",

		"registrar.timezone":     "UTC",
		"registrar.status":       "pending",
		"registrar.license":      "L3",
		"registrar.term":         "30 days",
		"registrar.fullterm":     "1 year",
		"registrar.cache_time":   604800,
		"registrar.pending_time": "hourly",
		"registrar.refresh_time": "daily",
		"registrar.endpoints":    AllActions,

		"registrar.notify.workers": 4,
		"registrar.notify.timeout": (10 * time.Second).String(),
	}
}
