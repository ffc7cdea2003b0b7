// Package license models license tiers and the quantitative limits each
// tier carries.
//
// Tiers form a strict order (L1 < L2 < L3 < L4 < L5 < LD by default) so
// callers can ask “is this at least Professional?” without comparing
// strings.  Configuration may append extension tiers; they rank after the
// built-ins unless the configured list places them explicitly.
//
// Unknown tiers fail closed: Compare returns false for every operator
// except eq of a value against itself.
package license

import (
	"fmt"
	"strings"
	"unicode"
)

// Tier is a license level code such as "L3".
type Tier string

// Built-in tiers.
const (
	Lite         Tier = "L1"
	Basic        Tier = "L2"
	Standard     Tier = "L3"
	Professional Tier = "L4"
	Enterprise   Tier = "L5"
	Developer    Tier = "LD"
)

// Limits caps list and seat sizes for a tier.  Zero means unlimited.
type Limits struct {
	Count      int `json:"count"`
	Variations int `json:"variations"`
	Domains    int `json:"domains"`
	Sites      int `json:"sites"`
	Options    int `json:"options"`
}

// Level is one entry of a policy's ordered tier list.
type Level struct {
	Code   Tier
	Name   string
	Limits Limits
}

// Op is a comparison operator accepted by Compare.
type Op string

const (
	EQ Op = "eq"
	GE Op = "ge"
	LE Op = "le"
	GT Op = "gt"
	LT Op = "lt"
)

// ParseOp accepts the word form or the symbol form ("=", ">=", …).
func ParseOp(s string) (Op, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eq", "=", "==":
		return EQ, true
	case "ge", ">=":
		return GE, true
	case "le", "<=":
		return LE, true
	case "gt", ">":
		return GT, true
	case "lt", "<":
		return LT, true
	}
	return "", false
}

// Policy is an immutable ordered tier table.
type Policy struct {
	levels []Level
	rank   map[Tier]int
	byName map[string]Tier
}

// builtins is the default ladder, all unlimited.
var builtins = []Level{
	{Code: Lite, Name: "Lite"},
	{Code: Basic, Name: "Basic"},
	{Code: Standard, Name: "Standard"},
	{Code: Professional, Name: "Professional"},
	{Code: Enterprise, Name: "Enterprise"},
	{Code: Developer, Name: "Developer"},
}

// Default returns the built-in ladder with no limits.
func Default() *Policy {
	p, _ := NewPolicy(nil)
	return p
}

// NewPolicy builds a policy.  Levels listed here override the built-in
// entry with the same code (name and limits) and keep its rank; new codes
// are appended in the order given.
func NewPolicy(levels []Level) (*Policy, error) {
	ordered := make([]Level, len(builtins))
	copy(ordered, builtins)

	idx := make(map[Tier]int, len(ordered))
	for i, l := range ordered {
		idx[l.Code] = i
	}
	for _, l := range levels {
		code := Tier(strings.ToUpper(strings.TrimSpace(string(l.Code))))
		if code == "" {
			return nil, fmt.Errorf("license: level %q has no code", l.Name)
		}
		l.Code = code
		if l.Name == "" {
			l.Name = string(code)
		}
		if i, ok := idx[code]; ok {
			ordered[i] = l
			continue
		}
		idx[code] = len(ordered)
		ordered = append(ordered, l)
	}

	p := &Policy{
		levels: ordered,
		rank:   make(map[Tier]int, len(ordered)),
		byName: make(map[string]Tier, len(ordered)),
	}
	for i, l := range ordered {
		p.rank[l.Code] = i
		key := titleCase(l.Name)
		if _, dup := p.byName[key]; dup {
			return nil, fmt.Errorf("license: duplicate level name %q", l.Name)
		}
		p.byName[key] = l.Code
	}
	return p, nil
}

// Known reports whether t is in the ladder.
func (p *Policy) Known(t Tier) bool {
	_, ok := p.rank[t]
	return ok
}

// LimitsFor returns the limits of t; unknown tiers are unlimited.
func (p *Policy) LimitsFor(t Tier) Limits {
	if r, ok := p.rank[t]; ok {
		return p.levels[r].Limits
	}
	return Limits{}
}

// Name returns the display name of t, or the code itself when unknown.
func (p *Policy) Name(t Tier) string {
	if r, ok := p.rank[t]; ok {
		return p.levels[r].Name
	}
	return string(t)
}

// Codes maps code → display name, for API consumers.
func (p *Policy) Codes() map[Tier]string {
	out := make(map[Tier]string, len(p.levels))
	for _, l := range p.levels {
		out[l.Code] = l.Name
	}
	return out
}

// Levels returns a copy of the ordered ladder.
func (p *Policy) Levels() []Level {
	out := make([]Level, len(p.levels))
	copy(out, p.levels)
	return out
}

// Compare evaluates `a op b` by rank.
func (p *Policy) Compare(a, b Tier, op Op) bool {
	ra, okA := p.rank[a]
	rb, okB := p.rank[b]
	if !okA || !okB {
		return op == EQ && a == b && a != ""
	}
	switch op {
	case EQ:
		return ra == rb
	case GE:
		return ra >= rb
	case LE:
		return ra <= rb
	case GT:
		return ra > rb
	case LT:
		return ra < rb
	}
	return false
}

// Normalize maps caller input to a tier code.  Display names (any case)
// map to their code, known codes pass through, anything else yields
// fallback.
func (p *Policy) Normalize(input string, fallback Tier) Tier {
	s := strings.TrimSpace(input)
	if s == "" {
		return fallback
	}
	if code, ok := p.byName[titleCase(s)]; ok {
		return code
	}
	if code := Tier(strings.ToUpper(s)); p.Known(code) {
		return code
	}
	return fallback
}

// IsStandard reports t ≥ Standard.
func (p *Policy) IsStandard(t Tier) bool { return p.Compare(t, Standard, GE) }

// IsProfessional reports t ≥ Professional.
func (p *Policy) IsProfessional(t Tier) bool { return p.Compare(t, Professional, GE) }

// titleCase lowercases s and upper-cases the first letter of each word.
func titleCase(s string) string {
	rs := []rune(strings.ToLower(strings.TrimSpace(s)))
	up := true
	for i, r := range rs {
		if up && unicode.IsLetter(r) {
			rs[i] = unicode.ToUpper(r)
		}
		up = unicode.IsSpace(r)
	}
	return string(rs)
}
