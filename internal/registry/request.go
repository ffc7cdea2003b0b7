// internal/registry/request.go
//
// Sanitized request, typed.
//
// Context
// -------
// fields.Sanitize produces a flat fields.Values.  NewRequest maps it onto
// named struct fields with one explicit switch so the validator reads
// `req.Email`, not `in["email"]`.  Presence is tracked separately: an
// absent field and a field sent blank mean different things to the list
// merge and the count rule.
//
// Directives (keys starting with "_") are consumed here; today only
// `_email_to_client` exists.
package registry

import (
	"strings"

	"github.com/yanizio/swregistry/internal/fields"
)

// Request is the validator's input.
type Request struct {
	Key         string
	Product     string
	Title       string
	Description string
	Version     string
	License     string
	Count       string
	Status      string
	Effective   string
	Expires     string

	Name    string
	Email   string
	Company string
	Address string
	Phone   string

	Variations []string
	Options    []string
	Domains    []string
	Sites      []string

	Transid   string
	Paydue    string
	Payamount string
	Paydate   string
	Payid     string
	Nextpay   string

	Timezone   string
	Locale     string
	Autoupdate string

	// Extras holds registry_<name> fields outside the schema.
	Extras map[string]string

	// EmailToClient is the `_email_to_client` directive.
	EmailToClient bool

	present map[string]bool
}

// NewRequest maps sanitized values onto a Request.
func NewRequest(v fields.Values) *Request {
	r := &Request{present: make(map[string]bool, len(v))}
	for name, val := range v {
		r.Set(name, val)
	}
	return r
}

// Has reports whether name was supplied.
func (r *Request) Has(name string) bool { return r.present[name] }

// Set assigns one field and marks it present.
func (r *Request) Set(name string, v fields.Value) {
	if strings.HasPrefix(name, "_") {
		if name == "_email_to_client" {
			r.EmailToClient = fields.IsTrue(v.String())
		}
		return
	}
	r.present[name] = true

	text := v.String()
	switch name {
	case "key":
		r.Key = text
	case "product":
		r.Product = text
	case "title":
		r.Title = text
	case "description":
		r.Description = text
	case "version":
		r.Version = text
	case "license":
		r.License = text
	case "count":
		r.Count = text
	case "status":
		r.Status = text
	case "effective":
		r.Effective = text
	case "expires":
		r.Expires = text
	case "name":
		r.Name = text
	case "email":
		r.Email = text
	case "company":
		r.Company = text
	case "address":
		r.Address = text
	case "phone":
		r.Phone = text
	case "variations":
		r.Variations = v.Items()
	case "options":
		r.Options = v.Items()
	case "domains":
		r.Domains = v.Items()
	case "sites":
		r.Sites = v.Items()
	case "transid":
		r.Transid = text
	case "paydue":
		r.Paydue = text
	case "payamount":
		r.Payamount = text
	case "paydate":
		r.Paydate = text
	case "payid":
		r.Payid = text
	case "nextpay":
		r.Nextpay = text
	case "timezone":
		r.Timezone = text
	case "locale":
		r.Locale = text
	case "autoupdate":
		r.Autoupdate = text
	default:
		if r.Extras == nil {
			r.Extras = make(map[string]string)
		}
		r.Extras[name] = text
	}
}

// keyOnly reduces the request to its key and directives.
func (r *Request) keyOnly() *Request {
	return &Request{
		Key:           r.Key,
		EmailToClient: r.EmailToClient,
		present:       map[string]bool{"key": r.Key != ""},
	}
}
