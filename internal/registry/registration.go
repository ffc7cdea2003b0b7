// internal/registry/registration.go
//
// The registration record.
//
// Context
// -------
// Registration is the typed form of one stored license record.  The
// engine never edits a loaded record in place: every transition works on
// a Clone and the store receives the finished candidate, so a failed
// validation leaves nothing half-written.
//
// Field and Values expose the record in wire form (bare field name →
// fields.Value) for the response builder, message merge, and the HTML
// table.  Dates use the display layout (02-Jan-2006).
package registry

import (
	"sort"
	"strconv"
	"time"

	"github.com/yanizio/swregistry/internal/dates"
	"github.com/yanizio/swregistry/internal/fields"
	"github.com/yanizio/swregistry/internal/license"
)

// Registration is one license record.
type Registration struct {
	Key         string       `json:"registry_key"         db:"registry_key"`
	Product     string       `json:"registry_product"     db:"registry_product"`
	Title       string       `json:"registry_title"       db:"registry_title"`
	Description string       `json:"registry_description" db:"registry_description"`
	Version     string       `json:"registry_version"     db:"registry_version"`
	License     license.Tier `json:"registry_license"     db:"registry_license"`
	Count       int          `json:"registry_count"       db:"registry_count"`
	Status      Status       `json:"registry_status"      db:"registry_status"`
	Effective   dates.Day    `json:"registry_effective"   db:"registry_effective"`
	Expires     dates.Day    `json:"registry_expires"     db:"registry_expires"`

	Name    string `json:"registry_name"    db:"registry_name"`
	Email   string `json:"registry_email"   db:"registry_email"`
	Company string `json:"registry_company" db:"registry_company"`
	Address string `json:"registry_address" db:"registry_address"`
	Phone   string `json:"registry_phone"   db:"registry_phone"`

	Variations []string `json:"registry_variations"`
	Options    []string `json:"registry_options"`
	Domains    []string `json:"registry_domains"`
	Sites      []string `json:"registry_sites"`

	Transid   string    `json:"registry_transid"   db:"registry_transid"`
	Paydue    string    `json:"registry_paydue"    db:"registry_paydue"`
	Payamount string    `json:"registry_payamount" db:"registry_payamount"`
	Paydate   dates.Day `json:"registry_paydate"   db:"registry_paydate"`
	Payid     string    `json:"registry_payid"     db:"registry_payid"`
	Nextpay   dates.Day `json:"registry_nextpay"   db:"registry_nextpay"`

	Timezone   string `json:"registry_timezone"   db:"registry_timezone"`
	Locale     string `json:"registry_locale"     db:"registry_locale"`
	Autoupdate bool   `json:"registry_autoupdate" db:"registry_autoupdate"`

	PriorStatus Status    `json:"prior_status,omitempty" db:"prior_status"`
	Refreshed   time.Time `json:"registry_refreshed"     db:"registry_refreshed"`

	Extras map[string]string `json:"-"`

	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// Clone returns a deep copy.
func (r *Registration) Clone() *Registration {
	if r == nil {
		return nil
	}
	c := *r
	c.Variations = cloneList(r.Variations)
	c.Options = cloneList(r.Options)
	c.Domains = cloneList(r.Domains)
	c.Sites = cloneList(r.Sites)
	if r.Extras != nil {
		c.Extras = make(map[string]string, len(r.Extras))
		for k, v := range r.Extras {
			c.Extras[k] = v
		}
	}
	return &c
}

func cloneList(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Field returns one field in wire form.  Unknown names fall back to
// Extras.
func (r *Registration) Field(name string) (fields.Value, bool) {
	day := func(d dates.Day) fields.Value { return fields.Scalar(d.String()) }

	switch name {
	case "key":
		return fields.Scalar(r.Key), true
	case "product":
		return fields.Scalar(r.Product), true
	case "title":
		return fields.Scalar(r.Title), true
	case "description":
		return fields.Scalar(r.Description), true
	case "version":
		return fields.Scalar(r.Version), true
	case "license":
		return fields.Scalar(string(r.License)), true
	case "count":
		return fields.Scalar(strconv.Itoa(r.Count)), true
	case "status":
		return fields.Scalar(string(r.Status)), true
	case "effective":
		return day(r.Effective), true
	case "expires":
		return day(r.Expires), true
	case "name":
		return fields.Scalar(r.Name), true
	case "email":
		return fields.Scalar(r.Email), true
	case "company":
		return fields.Scalar(r.Company), true
	case "address":
		return fields.Scalar(r.Address), true
	case "phone":
		return fields.Scalar(r.Phone), true
	case "variations":
		return fields.ListOf(r.Variations...), true
	case "options":
		return fields.ListOf(r.Options...), true
	case "domains":
		return fields.ListOf(r.Domains...), true
	case "sites":
		return fields.ListOf(r.Sites...), true
	case "transid":
		return fields.Scalar(r.Transid), true
	case "paydue":
		return fields.Scalar(r.Paydue), true
	case "payamount":
		return fields.Scalar(r.Payamount), true
	case "paydate":
		return day(r.Paydate), true
	case "payid":
		return fields.Scalar(r.Payid), true
	case "nextpay":
		return day(r.Nextpay), true
	case "timezone":
		return fields.Scalar(r.Timezone), true
	case "locale":
		return fields.Scalar(r.Locale), true
	case "autoupdate":
		return fields.Scalar(strconv.FormatBool(r.Autoupdate)), true
	case "refreshed":
		if r.Refreshed.IsZero() {
			return fields.Scalar(""), true
		}
		return fields.Scalar(r.Refreshed.Format(dates.StampLayout)), true
	}
	v, ok := r.Extras[name]
	return fields.Scalar(v), ok
}

// Values returns every schema field plus extras, keyed by bare name.
func (r *Registration) Values(s *fields.Schema) fields.Values {
	out := make(fields.Values, len(s.Fields)+len(r.Extras)+1)
	for _, def := range s.Fields {
		if v, ok := r.Field(def.Name); ok {
			out[def.Name] = v
		}
	}
	out["refreshed"], _ = r.Field("refreshed")
	for k, v := range r.Extras {
		out[k] = fields.Scalar(v)
	}
	return out
}

// ExtraNames returns the custom field names in sorted order.
func (r *Registration) ExtraNames() []string {
	names := make([]string, 0, len(r.Extras))
	for k := range r.Extras {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
