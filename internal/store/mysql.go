// internal/store/mysql.go
//
// MySQL adapter.
//
// Context
// -------
// One `registrations` row per record.  List fields and custom extras are
// JSON columns; dates are DATE columns (NULL when unset).  Audit notes go
// to `registration_notes`.
//
//	Get          SELECT … WHERE registry_key = ?
//	FindByEmail  SELECT … WHERE email/product [domain] ORDER BY updated_at DESC LIMIT 1
//	Create       INSERT              (1062 duplicate key → ErrDuplicate)
//	Update       UPDATE … WHERE registry_key = ?   (last write wins)
//
// Notes
// -----
//   - Every call takes the caller's context; the engine never blocks on a
//     dead connection past its request deadline.
//   - The clock is injectable for tests.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/swregistry/internal/dates"
	"github.com/yanizio/swregistry/internal/license"
	"github.com/yanizio/swregistry/internal/registry"
)

const mysqlDupEntry = 1062

const columns = `registry_key, registry_product, registry_title, registry_description,
	registry_version, registry_license, registry_count, registry_status,
	registry_effective, registry_expires, registry_name, registry_email,
	registry_company, registry_address, registry_phone, registry_variations,
	registry_options, registry_domains, registry_sites, registry_transid,
	registry_paydue, registry_payamount, registry_paydate, registry_payid,
	registry_nextpay, registry_timezone, registry_locale, registry_autoupdate,
	prior_status, registry_refreshed, registry_extras, created_at, updated_at`

// MySQL stores registrations in MySQL or MariaDB.
type MySQL struct {
	db    *sqlx.DB
	clock func() time.Time
}

// NewMySQL wraps an open pool.
func NewMySQL(db *sqlx.DB) *MySQL {
	return &MySQL{db: db, clock: func() time.Time { return time.Now().UTC() }}
}

// row is the column image of a registration.
type row struct {
	Key         string       `db:"registry_key"`
	Product     string       `db:"registry_product"`
	Title       string       `db:"registry_title"`
	Description string       `db:"registry_description"`
	Version     string       `db:"registry_version"`
	License     string       `db:"registry_license"`
	Count       int          `db:"registry_count"`
	Status      string       `db:"registry_status"`
	Effective   dates.Day    `db:"registry_effective"`
	Expires     dates.Day    `db:"registry_expires"`
	Name        string       `db:"registry_name"`
	Email       string       `db:"registry_email"`
	Company     string       `db:"registry_company"`
	Address     string       `db:"registry_address"`
	Phone       string       `db:"registry_phone"`
	Variations  string       `db:"registry_variations"`
	Options     string       `db:"registry_options"`
	Domains     string       `db:"registry_domains"`
	Sites       string       `db:"registry_sites"`
	Transid     string       `db:"registry_transid"`
	Paydue      string       `db:"registry_paydue"`
	Payamount   string       `db:"registry_payamount"`
	Paydate     dates.Day    `db:"registry_paydate"`
	Payid       string       `db:"registry_payid"`
	Nextpay     dates.Day    `db:"registry_nextpay"`
	Timezone    string       `db:"registry_timezone"`
	Locale      string       `db:"registry_locale"`
	Autoupdate  bool         `db:"registry_autoupdate"`
	PriorStatus string       `db:"prior_status"`
	Refreshed   sql.NullTime `db:"registry_refreshed"`
	Extras      string       `db:"registry_extras"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

func toRow(r *registry.Registration) (row, error) {
	out := row{
		Key: r.Key, Product: r.Product, Title: r.Title, Description: r.Description,
		Version: r.Version, License: string(r.License), Count: r.Count, Status: string(r.Status),
		Effective: r.Effective, Expires: r.Expires,
		Name: r.Name, Email: r.Email, Company: r.Company, Address: r.Address, Phone: r.Phone,
		Transid: r.Transid, Paydue: r.Paydue, Payamount: r.Payamount,
		Paydate: r.Paydate, Payid: r.Payid, Nextpay: r.Nextpay,
		Timezone: r.Timezone, Locale: r.Locale, Autoupdate: r.Autoupdate,
		PriorStatus: string(r.PriorStatus),
		Refreshed:   sql.NullTime{Time: r.Refreshed.UTC(), Valid: !r.Refreshed.IsZero()},
		CreatedAt:   r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
	var err error
	for _, f := range []struct {
		dst *string
		src any
	}{
		{&out.Variations, nonNil(r.Variations)},
		{&out.Options, nonNil(r.Options)},
		{&out.Domains, nonNil(r.Domains)},
		{&out.Sites, nonNil(r.Sites)},
		{&out.Extras, extrasOf(r.Extras)},
	} {
		var b []byte
		if b, err = json.Marshal(f.src); err != nil {
			return row{}, err
		}
		*f.dst = string(b)
	}
	return out, nil
}

func (w row) registration() (*registry.Registration, error) {
	r := &registry.Registration{
		Key: w.Key, Product: w.Product, Title: w.Title, Description: w.Description,
		Version: w.Version, License: license.Tier(w.License), Count: w.Count,
		Status: registry.Status(w.Status), Effective: w.Effective, Expires: w.Expires,
		Name: w.Name, Email: w.Email, Company: w.Company, Address: w.Address, Phone: w.Phone,
		Transid: w.Transid, Paydue: w.Paydue, Payamount: w.Payamount,
		Paydate: w.Paydate, Payid: w.Payid, Nextpay: w.Nextpay,
		Timezone: w.Timezone, Locale: w.Locale, Autoupdate: w.Autoupdate,
		PriorStatus: registry.Status(w.PriorStatus),
		CreatedAt:   w.CreatedAt, UpdatedAt: w.UpdatedAt,
	}
	if w.Refreshed.Valid {
		r.Refreshed = w.Refreshed.Time
	}
	for _, f := range []struct {
		src string
		dst any
	}{
		{w.Variations, &r.Variations},
		{w.Options, &r.Options},
		{w.Domains, &r.Domains},
		{w.Sites, &r.Sites},
		{w.Extras, &r.Extras},
	} {
		if f.src == "" || f.src == "null" {
			continue
		}
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("registration %s: decode json column: %w", w.Key, err)
		}
	}
	return r, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func extrasOf(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

/*──────────────────────────── reads ───────────────────────────────────────*/

// Get implements registry.Store.
func (s *MySQL) Get(ctx context.Context, key string) (*registry.Registration, error) {
	var w row
	err := s.db.GetContext(ctx, &w, `SELECT `+columns+` FROM registrations WHERE registry_key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get registration %s: %w", key, err)
	}
	return w.registration()
}

// FindByEmail implements registry.Store.
func (s *MySQL) FindByEmail(ctx context.Context, email, product, domain string) (*registry.Registration, error) {
	q := `SELECT ` + columns + ` FROM registrations
	       WHERE registry_email = ? AND registry_product = ?`
	args := []any{email, product}
	if domain != "" {
		q += ` AND (JSON_CONTAINS(registry_domains, JSON_QUOTE(?)) OR registry_transid LIKE ?)`
		args = append(args, domain, "%|"+domain)
	}
	q += ` ORDER BY updated_at DESC LIMIT 1`

	var w row
	err := s.db.GetContext(ctx, &w, q, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find registration by email: %w", err)
	}
	return w.registration()
}

// Notes returns the audit trail for key, oldest first.
func (s *MySQL) Notes(ctx context.Context, key string) ([]Note, error) {
	var out []Note
	err := s.db.SelectContext(ctx, &out,
		`SELECT registry_key, note, created_at FROM registration_notes WHERE registry_key = ? ORDER BY id`, key)
	if err != nil {
		return nil, fmt.Errorf("notes %s: %w", key, err)
	}
	return out, nil
}

/*──────────────────────────── writes ──────────────────────────────────────*/

// Create implements registry.Store.
func (s *MySQL) Create(ctx context.Context, r *registry.Registration) error {
	now := s.clock()
	w, err := toRow(r)
	if err != nil {
		return err
	}
	w.CreatedAt, w.UpdatedAt = now, now

	_, err = s.db.NamedExecContext(ctx, `INSERT INTO registrations (`+columns+`) VALUES (
		:registry_key, :registry_product, :registry_title, :registry_description,
		:registry_version, :registry_license, :registry_count, :registry_status,
		:registry_effective, :registry_expires, :registry_name, :registry_email,
		:registry_company, :registry_address, :registry_phone, :registry_variations,
		:registry_options, :registry_domains, :registry_sites, :registry_transid,
		:registry_paydue, :registry_payamount, :registry_paydate, :registry_payid,
		:registry_nextpay, :registry_timezone, :registry_locale, :registry_autoupdate,
		:prior_status, :registry_refreshed, :registry_extras, :created_at, :updated_at)`, w)
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDupEntry {
		return fmt.Errorf("create registration %s: %w", r.Key, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create registration %s: %w", r.Key, err)
	}
	r.CreatedAt, r.UpdatedAt = now, now
	return nil
}

// Update implements registry.Store.  The key and creation stamp are
// immutable.
func (s *MySQL) Update(ctx context.Context, r *registry.Registration) error {
	w, err := toRow(r)
	if err != nil {
		return err
	}
	w.UpdatedAt = s.clock()

	_, err = s.db.NamedExecContext(ctx, `UPDATE registrations SET
		registry_title = :registry_title, registry_description = :registry_description,
		registry_version = :registry_version, registry_license = :registry_license,
		registry_count = :registry_count, registry_status = :registry_status,
		registry_effective = :registry_effective, registry_expires = :registry_expires,
		registry_name = :registry_name, registry_email = :registry_email,
		registry_company = :registry_company, registry_address = :registry_address,
		registry_phone = :registry_phone, registry_variations = :registry_variations,
		registry_options = :registry_options, registry_domains = :registry_domains,
		registry_sites = :registry_sites, registry_transid = :registry_transid,
		registry_paydue = :registry_paydue, registry_payamount = :registry_payamount,
		registry_paydate = :registry_paydate, registry_payid = :registry_payid,
		registry_nextpay = :registry_nextpay, registry_timezone = :registry_timezone,
		registry_locale = :registry_locale, registry_autoupdate = :registry_autoupdate,
		prior_status = :prior_status, registry_refreshed = :registry_refreshed,
		registry_extras = :registry_extras, updated_at = :updated_at
		WHERE registry_key = :registry_key`, w)
	if err != nil {
		return fmt.Errorf("update registration %s: %w", r.Key, err)
	}
	r.UpdatedAt = w.UpdatedAt
	return nil
}

// AddNote implements registry.Store.
func (s *MySQL) AddNote(ctx context.Context, key, note string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registration_notes (registry_key, note, created_at) VALUES (?, ?, ?)`,
		key, note, s.clock())
	if err != nil {
		return fmt.Errorf("add note %s: %w", key, err)
	}
	return nil
}

// Ping checks the pool.
func (s *MySQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close releases the pool.
func (s *MySQL) Close() error { return s.db.Close() }
