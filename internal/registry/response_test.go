package registry_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/swregistry/internal/config"
	"github.com/yanizio/swregistry/internal/dates"
	"github.com/yanizio/swregistry/internal/registry"
)

type stubTable struct{ api bool }

func (s *stubTable) RegistryTable(r *registry.Registration, _ *registry.Settings, api bool) (string, error) {
	s.api = api
	return "<table>" + r.Key + "</table>", nil
}

func verified(t *testing.T, f *fixture, rc registry.RequestContext, r *registry.Registration) *registry.Result {
	t.Helper()
	seed(t, f, r)
	res, err := f.engine.Verify(context.Background(), f.settings(t, now), rc, values("key", r.Key))
	require.NoError(t, err)
	return res
}

func TestBuildResponseValid(t *testing.T) {
	f := newFixture(t, func(r *config.Registrar) {
		r.Messages = config.Messages{Notice: "Thanks [registry_name], [update_context]."}
		r.Options.AllowSetStatus = true
	})
	res := verified(t, f, api(http.MethodGet), &registry.Registration{
		Key: "k", Name: "Ann", Title: "Acme", Status: registry.Active,
		Domains:   []string{"example.com"},
		Effective: day(2025, time.January, 1), Expires: day(2026, time.January, 1),
		Paydue: "10.00",
	})

	table := &stubTable{}
	out := registry.BuildResponse(res, table)

	assert.Equal(t, registry.StatusBlock{Code: "200", Message: "verify ok"}, out.Status)
	assert.Equal(t, true, out.Registration["registry_valid"])
	assert.Equal(t, "active", out.Registration["registry_status"])
	assert.Equal(t, []string{"example.com"}, out.Registration["registry_domains"])
	assert.NotContains(t, out.Registration, "registry_paydue")
	assert.Equal(t, "Thanks Ann, verified.", out.Registrar.Notices.Success)
	assert.Empty(t, out.Registrar.Notices.Error)
	assert.Equal(t, 86400, out.Registrar.RefreshInterval)
	assert.Equal(t, "daily", out.Registrar.RefreshSchedule)
	assert.Equal(t, []string{"allow_set_status"}, out.Registrar.Options)
	assert.Equal(t, "UTC", out.Registrar.Timezone)
	assert.Equal(t, "<table>k</table>", out.RegistryHTML)
	assert.True(t, table.api)
}

func TestBuildResponseDomainMismatch(t *testing.T) {
	f := newFixture(t, func(r *config.Registrar) { r.Messages.Notice = "Welcome back." })
	rc := api(http.MethodGet)
	rc.RefererURL = "https://www.other.org/wp-admin/"

	res := verified(t, f, rc, &registry.Registration{
		Key: "k", Title: "Acme", Status: registry.Active,
		Domains:   []string{"example.com"},
		Effective: day(2025, time.January, 1), Expires: day(2026, time.January, 1),
	})
	out := registry.BuildResponse(res, nil)

	assert.Equal(t, "invalid", out.Registration["registry_status"])
	assert.Equal(t, false, out.Registration["registry_valid"])
	assert.Equal(t, "Domain mismatch; other.org not accepted", out.Registrar.Notices.Error)
	assert.Empty(t, out.Registrar.Notices.Success)
	assert.Empty(t, out.RegistryHTML)

	stored, err := f.store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, registry.Active, stored.Status, "display status is never persisted")
}

func TestEvaluateSites(t *testing.T) {
	f := newFixture(t)
	s := f.settings(t, now)
	r := &registry.Registration{Status: registry.Active,
		Sites:     []string{"https://example.com/shop"},
		Effective: day(2025, time.January, 1), Expires: day(2026, time.January, 1)}

	rc := registry.RequestContext{RefererURL: "http://example.com/shop/cart"}
	d := registry.Evaluate(s, rc, r)
	assert.True(t, d.Valid)

	rc.RefererURL = "https://example.com/blog"
	d = registry.Evaluate(s, rc, r)
	assert.False(t, d.Valid)
	assert.Equal(t, registry.Invalid, d.Registration.Status)
	assert.Equal(t, registry.Active, r.Status)
}

func TestEvaluatePendingDisplay(t *testing.T) {
	f := newFixture(t)
	d := registry.Evaluate(f.settings(t, now), registry.RequestContext{}, &registry.Registration{
		Status: registry.Active, Effective: day(2025, time.July, 1), Expires: day(2026, time.July, 1)})
	assert.False(t, d.Valid)
	assert.Equal(t, registry.Pending, d.Registration.Status)
}

func TestNotices(t *testing.T) {
	cases := []struct {
		name    string
		expires dates.Day
		auto    bool
		pick    func(registry.Notices) string
		want    string
	}{
		{"due today", day(2025, time.June, 15), false,
			func(n registry.Notices) string { return n.Error },
			"Your <em>Acme</em> registration is expected to expire at 11:59pm (UTC)."},
		{"due in five days", day(2025, time.June, 20), true,
			func(n registry.Notices) string { return n.Warning },
			"Your <em>Acme</em> registration is expected to update at 11:59pm (UTC) on 20-Jun-2025."},
		{"due in ten days", day(2025, time.June, 25), false,
			func(n registry.Notices) string { return n.Info },
			"Your <em>Acme</em> registration is expected to expire at 11:59pm (UTC) on 25-Jun-2025."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			res := verified(t, f, api(http.MethodGet), &registry.Registration{
				Key: "k", Title: "Acme", Status: registry.Active, Autoupdate: tc.auto,
				Effective: day(2025, time.January, 1), Expires: tc.expires,
			})
			out := registry.BuildResponse(res, nil)
			assert.Equal(t, tc.want, tc.pick(out.Registrar.Notices))
		})
	}
}

func TestNoticesUnpublished(t *testing.T) {
	f := newFixture(t)
	res := verified(t, f, api(http.MethodGet), &registry.Registration{
		Key: "k", Title: "Acme", Status: registry.Pending,
		Effective: day(2025, time.June, 1), Expires: day(2025, time.July, 1),
	})
	out := registry.BuildResponse(res, nil)
	assert.Equal(t, "Your <em>Acme</em> registration is currently pending.", out.Registrar.Notices.Error)
	assert.Equal(t, 3600, out.Registrar.RefreshInterval)
	assert.Equal(t, "hourly", out.Registrar.RefreshSchedule)
}

func TestMergeMessage(t *testing.T) {
	f := newFixture(t)
	s := f.settings(t, now)
	r := &registry.Registration{Key: "abc", Name: "Ann", Title: "Acme", Domains: []string{"example.com"}}

	got := registry.MergeMessage("[registry_name]: [registry_key] [update_context] by [registrar_name]. [registry_domains] [default_message]",
		r, s, "create", "fallback")
	assert.Equal(t, "Ann: abc created by Acme Registrar. [registry_domains] fallback", got)
	assert.Empty(t, registry.MergeMessage("", r, s, "create", "x"))
}

func TestMergeMessageEscapesRegistrationValues(t *testing.T) {
	f := newFixture(t)
	s := f.settings(t, now)
	r := &registry.Registration{Key: "abc", Name: "<a href=https://evil.example/phish", Company: "Smith &amp; Sons"}

	got := registry.MergeMessage("<p>[registry_name], [registry_company]</p>[default_message]", r, s, "create", "<b>hi</b>")
	assert.Equal(t, "<p>&lt;a href=https://evil.example/phish, Smith &amp; Sons</p><b>hi</b>", got)
}
