// internal/registry/response.go
//
// Response assembly.
//
// Context
// -------
// BuildResponse turns a committed Result into the client document:
//
//	{ status, registration, registrar, registryHtml, supplemental }
//
// What the client sees can differ from what is stored:
//
//   - A referer whose domain is not in `domains`, or whose URL matches no
//     entry in `sites`, shows status "invalid" and is never valid.
//   - A published record past its expiry shows "expired"; one whose
//     effective date is still ahead shows "pending".
//
// Payment bookkeeping is never included.
package registry

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/swregistry/internal/config"
	"github.com/yanizio/swregistry/internal/fields"
	"github.com/yanizio/swregistry/internal/license"
)

// HTMLRenderer renders the registration table.  api selects the public
// variant (no payment fields).
type HTMLRenderer interface {
	RegistryTable(r *Registration, s *Settings, api bool) (string, error)
}

// StatusBlock is the envelope status.
type StatusBlock struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Contact is the registrar contact block.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Web   string `json:"web"`
}

// RegistrarInfo is the registrar block.
type RegistrarInfo struct {
	Contact         Contact                 `json:"contact"`
	Timezone        string                  `json:"timezone"`
	Locale          string                  `json:"locale"`
	CacheTime       int                     `json:"cacheTime"`
	RefreshInterval int                     `json:"refreshInterval"`
	RefreshSchedule string                  `json:"refreshSchedule"`
	Options         []string                `json:"options"`
	LicenseCodes    map[license.Tier]string `json:"licenseCodes"`
	Notices         Notices                 `json:"notices"`
	Message         string                  `json:"message"`
}

// Response is the success document.
type Response struct {
	Status       StatusBlock    `json:"status"`
	Registration map[string]any `json:"registration"`
	Registrar    RegistrarInfo  `json:"registrar"`
	RegistryHTML string         `json:"registryHtml"`
	Supplemental string         `json:"supplemental"`
}

// Display is the client's view of a record.
type Display struct {
	Registration *Registration // copy with the display status applied
	Valid        bool
	Published    bool
	Mismatch     string // referer mismatch message, if any
}

// Evaluate computes the client's view of r for the caller in rc.
func Evaluate(s *Settings, rc RequestContext, r *Registration) Display {
	d := Display{Registration: r.Clone()}
	view := d.Registration

	if domain := rc.RefererDomain(); domain != "" {
		if len(view.Domains) > 0 && !contains(view.Domains, domain) {
			d.Mismatch = fmt.Sprintf("Domain mismatch; %s not accepted", domain)
		} else if len(view.Sites) > 0 {
			ref := rc.refererSansScheme()
			matched := false
			for _, site := range view.Sites {
				if strings.Contains(ref, stripScheme(site)) {
					matched = true
					break
				}
			}
			if !matched {
				d.Mismatch = "Site mismatch; referring URL not accepted"
			}
		}
	}

	d.Published = view.Status.Published()
	if d.Published {
		res := s.Resolver()
		switch {
		case res.Expired(view.Expires):
			view.Status = Expired
			d.Published = false
		case res.InFuture(view.Effective):
			view.Status = Pending
			d.Published = false
		}
	}
	if d.Mismatch != "" {
		view.Status = Invalid
	}
	d.Valid = d.Published && d.Mismatch == ""
	return d
}

// BuildResponse assembles the success document.  html may be nil.
func BuildResponse(res *Result, html HTMLRenderer) *Response {
	s := res.Settings
	d := Evaluate(s, res.Request, res.Registration)
	view := d.Registration
	action := string(res.Action)

	n := notices(s, view, view.Status, d.Published)
	if d.Mismatch != "" {
		n.Error = d.Mismatch
	}
	n.Success = s.Messages.Notice
	if n.Error != "" {
		n.Success = ""
	}
	n.Info = MergeMessage(n.Info, view, s, action, n.Info)
	n.Warning = MergeMessage(n.Warning, view, s, action, n.Warning)
	n.Error = MergeMessage(n.Error, view, s, action, n.Error)
	n.Success = MergeMessage(n.Success, view, s, action, n.Success)

	interval := s.RefreshTime
	if view.Status == Pending {
		interval = s.PendingTime
	}

	out := &Response{
		Status: StatusBlock{
			Code:    strconv.Itoa(http.StatusOK),
			Message: action + " ok",
		},
		Registration: publicValues(s, view, d.Valid),
		Registrar: RegistrarInfo{
			Contact: Contact{
				Name:  s.Name,
				Email: s.Contact.Email,
				Phone: s.Contact.Phone,
				Web:   s.Contact.Web,
			},
			Timezone:        s.Loc.String(),
			Locale:          s.Locale,
			CacheTime:       s.CacheTime,
			RefreshInterval: interval,
			RefreshSchedule: config.IntervalName(interval),
			Options:         s.OptionNames(),
			LicenseCodes:    s.Policy.Codes(),
			Notices:         n,
			Message:         MergeMessage(s.Messages.Message, view, s, action, s.Messages.Default),
		},
		Supplemental: MergeMessage(s.Messages.Supplemental, view, s, action, ""),
	}
	if out.Registrar.Message == "" {
		out.Registrar.Message = MergeMessage(s.Messages.Default, view, s, action, "")
	}

	if html != nil {
		table, err := html.RegistryTable(view, s, true)
		if err != nil {
			zap.S().Warnw("registry html", "key", view.Key, "err", err)
		}
		out.RegistryHTML = table
	}
	return out
}

// publicValues renders the registration block.
func publicValues(s *Settings, r *Registration, valid bool) map[string]any {
	out := make(map[string]any, len(s.Schema.Fields)+len(r.Extras)+2)
	for _, def := range s.Schema.Fields {
		if !def.Public {
			continue
		}
		v, ok := r.Field(def.Name)
		if !ok {
			continue
		}
		if def.Kind.IsList() {
			items := v.Items()
			if items == nil {
				items = []string{}
			}
			out[fields.Prefix+def.Name] = items
			continue
		}
		out[fields.Prefix+def.Name] = v.Text
	}
	for k, v := range r.Extras {
		out[fields.Prefix+k] = v
	}
	if v, _ := r.Field("refreshed"); v.Text != "" {
		out[fields.Prefix+"refreshed"] = v.Text
	}
	out[fields.Prefix+"valid"] = valid
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}
