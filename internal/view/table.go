// internal/view/table.go
//
// The registration table.
//
// Rows follow a fixed label order.  Values are formatted for people:
// statuses and license tiers by display name, dates as
// "02-Jan-2006 3:04 pm (MST)" in the registration's own timezone (effective
// at the start of its day, the other dates at 23:59:59), lists joined with
// ", ".  Empty values are skipped, the title is skipped when it repeats the
// product, and the description when it repeats the title.  Payment rows are
// never shown to API clients.

package view

import (
	"strconv"
	"strings"
	"time"

	"github.com/yanizio/swregistry/internal/dates"
	"github.com/yanizio/swregistry/internal/registry"
)

// DateLayout is the table's date format.
const DateLayout = "02-Jan-2006 3:04 pm (MST)"

// Row is one table line.
type Row struct {
	Name    string
	Label   string
	Value   string
	Changed bool
}

type label struct {
	name, text string
	payment    bool
}

var labels = []label{
	{name: "key", text: "Registration Key"},
	{name: "product", text: "Registered Product Id"},
	{name: "title", text: "Registered Product Name"},
	{name: "description", text: "Product Description"},
	{name: "version", text: "Product Version"},
	{name: "license", text: "Product License"},
	{name: "count", text: "License Count"},
	{name: "variations", text: "Product Variations"},
	{name: "options", text: "Product Options"},
	{name: "domains", text: "Registered Domains"},
	{name: "sites", text: "Registered Sites"},
	{name: "status", text: "Registration Status"},
	{name: "autoupdate", text: "Automatic Renewal"},
	{name: "effective", text: "Effective Date"},
	{name: "expires", text: "Expiration Date"},
	{name: "name", text: "Registrant's Name"},
	{name: "email", text: "Registrant's Email"},
	{name: "company", text: "Registrant's Organization"},
	{name: "address", text: "Registrant's Address"},
	{name: "phone", text: "Registrant's Telephone"},
	{name: "paydue", text: "Payment Due", payment: true},
	{name: "payamount", text: "Payment Received", payment: true},
	{name: "paydate", text: "Payment Date", payment: true},
	{name: "nextpay", text: "Next Payment Date", payment: true},
	{name: "refreshed", text: "Last Refreshed"},
}

// RegistryTable implements registry.HTMLRenderer.
func (e *Engine) RegistryTable(r *registry.Registration, s *registry.Settings, api bool) (string, error) {
	return e.RegistryTableDiff(r, nil, s, api)
}

// RegistryTableDiff renders r, marking values that differ from prior.
func (e *Engine) RegistryTableDiff(r, prior *registry.Registration, s *registry.Settings, api bool) (string, error) {
	return e.execute(r.Product, "registry", map[string]any{"Rows": Rows(r, prior, s, api)})
}

// Rows builds the table lines.
func Rows(r, prior *registry.Registration, s *registry.Settings, api bool) []Row {
	loc := s.ClientLocation(r)
	out := make([]Row, 0, len(labels))
	for _, l := range labels {
		if l.payment && api {
			continue
		}
		v := format(l.name, r, s, loc)
		if v == "" {
			continue
		}
		switch {
		case l.name == "title" && r.Title == r.Product:
			continue
		case l.name == "description" && r.Description == r.Title:
			continue
		}
		row := Row{Name: l.name, Label: l.text, Value: v}
		if prior != nil && l.name != "refreshed" {
			row.Changed = format(l.name, prior, s, loc) != v
		}
		out = append(out, row)
	}
	return out
}

func format(name string, r *registry.Registration, s *registry.Settings, loc *time.Location) string {
	switch name {
	case "status":
		return r.Status.Label()
	case "license":
		if r.License == "" {
			return ""
		}
		return s.Policy.Name(r.License)
	case "count":
		if r.Count == 0 {
			return ""
		}
		return strconv.Itoa(r.Count)
	case "autoupdate":
		return yesno(r.Autoupdate)
	case "effective":
		return stamp(r.Effective, false, loc)
	case "expires":
		return stamp(r.Expires, true, loc)
	case "paydate":
		return stamp(r.Paydate, true, loc)
	case "nextpay":
		return stamp(r.Nextpay, true, loc)
	case "refreshed":
		if r.Refreshed.IsZero() {
			return ""
		}
		return r.Refreshed.In(loc).Format(DateLayout)
	}
	v, ok := r.Field(name)
	if !ok {
		return ""
	}
	if v.IsList {
		return strings.Join(v.Items(), ", ")
	}
	return v.Text
}

func stamp(d dates.Day, endOfDay bool, loc *time.Location) string {
	if d.IsZero() {
		return ""
	}
	if endOfDay {
		return d.EndOfDay(loc).Format(DateLayout)
	}
	return d.StartOfDay(loc).Format(DateLayout)
}
