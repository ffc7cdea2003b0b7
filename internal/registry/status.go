// internal/registry/status.go
//
// Registration status and action vocabulary.
//
// Context
// -------
// A stored registration is always in one of seven states.  Only trial and
// active are "published" (the licensed software may run); everything else
// is informational for the client.  `invalid` never reaches storage: the
// response builder uses it when the referring domain or site does not
// match the record.
//
//	pending ─▶ trial ─▶ active ─▶ expired ─(30 days)─▶ terminated
//	   │                   ▲                               │
//	   └──▶ future ────────┘◀──────── activate ────────────┘
package registry

import "strings"

// Status is a registration lifecycle state.
type Status string

const (
	Pending    Status = "pending"
	Trial      Status = "trial"
	Active     Status = "active"
	Inactive   Status = "inactive"
	Expired    Status = "expired"
	Terminated Status = "terminated"
	Future     Status = "future"

	// Invalid is a display-only status for referer mismatches.
	Invalid Status = "invalid"
)

var stored = map[Status]string{
	Pending:    "Pending",
	Trial:      "Trial",
	Active:     "Active",
	Inactive:   "Inactive",
	Expired:    "Expired",
	Terminated: "Terminated",
	Future:     "Future",
}

// ParseStatus accepts a stored status by code or label, any case.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	_, ok := stored[st]
	return st, ok
}

// Published reports whether the registration is currently usable.
func (s Status) Published() bool { return s == Trial || s == Active }

// Label is the display name.
func (s Status) Label() string {
	if l, ok := stored[s]; ok {
		return l
	}
	if s == Invalid {
		return "Invalid"
	}
	return string(s)
}

func (s Status) String() string { return string(s) }

// Action names an API endpoint, or "update" for the administrative path.
type Action string

const (
	ActionCreate     Action = "create"
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	ActionVerify     Action = "verify"
	ActionRefresh    Action = "refresh"
	ActionRevise     Action = "revise"
	ActionUpdate     Action = "update"
)

// ParseAction accepts one of the six API actions.
func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionCreate, ActionActivate, ActionDeactivate, ActionVerify, ActionRefresh, ActionRevise:
		return a, true
	}
	return "", false
}

// PastTense renders an action for messages ("verified", "created").
// Values that are already past tense pass through.
func PastTense(action string) string {
	a := strings.ToLower(strings.TrimSpace(action))
	switch a {
	case "":
		return ""
	case "created", "activated", "deactivated", "revised", "renewed",
		"refreshed", "verified", "updated", "expired":
		return a
	case "verify":
		return "verified"
	case "renew", "refresh":
		return a + "ed"
	}
	if strings.HasSuffix(a, "e") {
		return a + "d"
	}
	return a + "ed"
}
