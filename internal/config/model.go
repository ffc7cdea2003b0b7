// internal/config/model.go
//
// Typed configuration model for the registrar.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `conf/.env`                        – dotenv values,
//   • `conf/registrar.yaml`                       – primary static file,
//   • `REGISTRAR_`-prefixed environment overrides – highest precedence.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.  Defaults are applied before validation so
// an almost-empty YAML file still yields a working registrar.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Durations accept Go syntax ("5m", "90s").

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr     string    `koanf:"listen_addr"     validate:"required,hostname_port"`
	BasePath       string    `koanf:"base_path"       validate:"required,startswith=/"`
	ForceHTTPS     bool      `koanf:"force_https"`
	AllowedOrigins []string  `koanf:"allowed_origins"`
	RateLimit      RateLimit `koanf:"rate_limit"`
}

// RateLimit is a per-client token bucket.  RPS 0 disables limiting.
type RateLimit struct {
	RPS   float64 `koanf:"rps"   validate:"gte=0"`
	Burst int     `koanf:"burst" validate:"gte=0"`
}

//
// Database section
//

// Database selects the registration store.
//
// The DSN *template* stays in YAML so operators can tweak host, port, or
// flags without touching Vault.  When it contains one `%s` verb the
// password (from YAML, env, or Vault) is substituted at boot.
type Database struct {
	Driver   string `koanf:"driver"    validate:"oneof=mysql memory"`
	DSN      string `koanf:"dsn"       validate:"required_if=Driver mysql"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open"  validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle"  validate:"gte=0"`
	Migrate  bool   `koanf:"migrate"`
}

//
// Vault section
//

// Vault points at KV-v2 secrets.  Disabled means keys and passwords come
// from this file or the environment.
type Vault struct {
	Enabled      bool          `koanf:"enabled"`
	KeysPath     string        `koanf:"keys_path"     validate:"required_if=Enabled true"`
	PasswordPath string        `koanf:"password_path"`
	TTL          time.Duration `koanf:"ttl"`
}

//
// Redis / Kafka / GeoIP / Log sections
//

// Redis enables the distributed create lock when Addr is set.
type Redis struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"       validate:"gte=0"`
	LockTTL  time.Duration `koanf:"lock_ttl"`
}

// Kafka enables lifecycle events when Brokers is non-empty.
type Kafka struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// GeoIP points at a MaxMind country or city database.  Empty disables
// country lookups.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

// Log controls the zap level.
type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

//
// Registrar section
//

// Contact is returned to clients in every response.
type Contact struct {
	Name  string `koanf:"name"`
	Email string `koanf:"email" validate:"omitempty,email"`
	Phone string `koanf:"phone"`
	Web   string `koanf:"web"   validate:"omitempty,url"`
}

// Options are the policy switches that widen what API callers may set.
type Options struct {
	AllowSetKey           bool `koanf:"allow_set_key"`
	AllowSetStatus        bool `koanf:"allow_set_status"`
	AllowSetEffective     bool `koanf:"allow_set_effective"`
	AllowSetExpiration    bool `koanf:"allow_set_expiration"`
	AllowActivationUpdate bool `koanf:"allow_activation_update"`
}

// Keys holds one API key per key class.
type Keys struct {
	Create string `koanf:"create"`
	Update string `koanf:"update"`
	Read   string `koanf:"read"`
}

// Notify configures post-commit side effects.
type Notify struct {
	ClientOnCreate bool          `koanf:"client_on_create"`
	Admin          bool          `koanf:"admin"`
	AdminEmail     string        `koanf:"admin_email" validate:"omitempty,email"`
	From           string        `koanf:"from"        validate:"omitempty,email"`
	SMTPAddr       string        `koanf:"smtp_addr"   validate:"omitempty,hostname_port"`
	SMTPUser       string        `koanf:"smtp_user"`
	SMTPPassword   string        `koanf:"smtp_password"`
	Webhooks       []string      `koanf:"webhooks"    validate:"dive,url"`
	Workers        int           `koanf:"workers"     validate:"gte=1"`
	Timeout        time.Duration `koanf:"timeout"`
}

// Messages are client-facing templates with [registry_x] placeholders.
// The e-mail templates fall back to built-in wording when empty.
type Messages struct {
	Notice       string `koanf:"notice"`
	Message      string `koanf:"message"`
	Supplemental string `koanf:"supplemental"`
	Default      string `koanf:"default"`
	ClientEmail  string `koanf:"client_email"`
	AdminEmail   string `koanf:"admin_email"`
}

// Product overrides registrar defaults for one product slug.  Zero values
// inherit.
type Product struct {
	Term        string   `koanf:"term"`
	Fullterm    string   `koanf:"fullterm"`
	Status      string   `koanf:"status"`
	License     string   `koanf:"license"`
	CacheTime   int      `koanf:"cache_time"   validate:"gte=0"`
	PendingTime string   `koanf:"pending_time" validate:"omitempty,interval"`
	RefreshTime string   `koanf:"refresh_time" validate:"omitempty,interval"`
	Options     *Options `koanf:"options"`
}

// Registrar is the registration policy.
type Registrar struct {
	Name        string             `koanf:"name"`
	Host        string             `koanf:"host"`
	Contact     Contact            `koanf:"contact"`
	Timezone    string             `koanf:"timezone"     validate:"required,timezone"`
	Locale      string             `koanf:"locale"`
	Status      string             `koanf:"status"       validate:"oneof=pending trial active inactive"`
	License     string             `koanf:"license"      validate:"required"`
	Term        string             `koanf:"term"         validate:"required"`
	Fullterm    string             `koanf:"fullterm"     validate:"required"`
	Effective   string             `koanf:"effective"`
	Expires     string             `koanf:"expires"`
	CacheTime   int                `koanf:"cache_time"   validate:"gte=0"`
	PendingTime string             `koanf:"pending_time" validate:"required,interval"`
	RefreshTime string             `koanf:"refresh_time" validate:"required,interval"`
	SchemaFile  string             `koanf:"schema_file"`
	Options     Options            `koanf:"options"`
	Endpoints   []string           `koanf:"endpoints"    validate:"dive,oneof=create activate deactivate verify refresh revise"`
	Keys        Keys               `koanf:"keys"`
	Notify      Notify             `koanf:"notify"`
	Messages    Messages           `koanf:"messages"`
	Products    map[string]Product `koanf:"products"     validate:"dive"`
}

//
// License section
//

// Limits mirror license.Limits.  Zero means unlimited.
type Limits struct {
	Count      int `koanf:"count"      validate:"gte=0"`
	Variations int `koanf:"variations" validate:"gte=0"`
	Domains    int `koanf:"domains"    validate:"gte=0"`
	Sites      int `koanf:"sites"      validate:"gte=0"`
	Options    int `koanf:"options"    validate:"gte=0"`
}

// Tier is one configured license level.
type Tier struct {
	Code   string `koanf:"code"   validate:"required"`
	Name   string `koanf:"name"`
	Limits Limits `koanf:"limits"`
}

// License overrides or extends the built-in tier ladder.
type License struct {
	Tiers []Tier `koanf:"tiers" validate:"dive"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // REGISTRAR_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Vault     Vault     `koanf:"vault"`
	Redis     Redis     `koanf:"redis"`
	Kafka     Kafka     `koanf:"kafka"`
	GeoIP     GeoIP     `koanf:"geoip"`
	Log       Log       `koanf:"log"`
	Registrar Registrar `koanf:"registrar"`
	License   License   `koanf:"license"`
	Paths     Paths     `koanf:"-"` // not loaded from config files
}
