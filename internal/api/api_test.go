package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/swregistry/internal/apikey"
	"github.com/yanizio/swregistry/internal/config"
	"github.com/yanizio/swregistry/internal/fields"
	"github.com/yanizio/swregistry/internal/registry"
	"github.com/yanizio/swregistry/internal/store"
)

var now = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

type harness struct {
	cfg    *config.Config
	store  *store.Memory
	router http.Handler
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	cfg := &config.Config{
		HTTP: config.HTTP{BasePath: "/softwareregistry"},
		Registrar: config.Registrar{
			Name:        "Acme Registrar",
			Timezone:    "UTC",
			Status:      "pending",
			License:     "L3",
			Term:        "30 days",
			Fullterm:    "1 year",
			PendingTime: "hourly",
			RefreshTime: "daily",
			Endpoints:   config.AllActions,
			Keys:        config.Keys{Create: "c-key", Update: "u-key", Read: "r-key"},
		},
	}
	for _, m := range mutate {
		m(cfg)
	}
	get := func() *config.Config { return cfg }

	h := &harness{cfg: cfg, store: store.NewMemory()}
	n := 0
	engine := registry.NewEngine(h.store, registry.WithKeyGenerator(func() string {
		n++
		return fmt.Sprintf("key-%d", n)
	}))
	srv, err := New(Deps{
		Engine: engine,
		Store:  h.store,
		Gate:   apikey.NewGate(apikey.Static{Get: get}),
		Config: get,
		Clock:  func() time.Time { return now },
	})
	require.NoError(t, err)
	h.router = srv.Routes()
	return h
}

func bearer(key string) string {
	return "Bearer " + base64.StdEncoding.EncodeToString([]byte(key))
}

func (h *harness) do(method, target, key string, body string, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if key != "" {
		req.Header.Set("Authorization", bearer(key))
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) (status, msg string) {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	assert.Equal(t, env.Status.Code, env.Error.Code)
	return env.Status.Code, env.Error.Message
}

const createJSON = `{"registry_product":"acme_pro","registry_name":"Ann Smith","email":"ann@example.com"}`

func TestCreateThenVerify(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/softwareregistry/v1/create", "c-key", createJSON, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, map[string]any{"code": "200", "message": "create ok"}, body["status"])
	reg := body["registration"].(map[string]any)
	assert.Equal(t, "key-1", reg["registry_key"])
	assert.Equal(t, "ann@example.com", reg["registry_email"])
	assert.Contains(t, body, "registrar")

	rec = h.do(http.MethodGet, "/softwareregistry/v1/verify?registry_key=key-1", "r-key", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "verify ok", decode(t, rec)["status"].(map[string]any)["message"])

	rec = h.do(http.MethodHead, "/softwareregistry/v1/verify?registry_key=key-1", "r-key", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestCreateFromForm(t *testing.T) {
	h := newHarness(t)
	form := url.Values{
		"registry_product": {"acme_pro"},
		"registry_name":    {"Ann Smith"},
		"registry_email":   {"ann@example.com"},
		"registry_domains": {"www.example.com", "example.org"},
	}
	rec := h.do(http.MethodPut, "/softwareregistry/v1/create", "c-key", form.Encode(), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := h.store.Get(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, "acme_pro", stored.Product)
}

func TestErrorEnvelope(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/softwareregistry/v1/verify?registry_key=nope", "r-key", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	code, _ := errorCode(t, rec)
	assert.Equal(t, "404", code)
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Not Found", env.Status.Message)

	rec = h.do(http.MethodPost, "/softwareregistry/v1/create", "c-key", `{"registry_product":"acme_pro"}`, "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/softwareregistry/v1/create", "c-key", `{"registry_product":`, "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, msg := errorCode(t, rec)
	assert.Contains(t, msg, "malformed request body")
}

func TestRoutingRules(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/softwareregistry/v1/revise", "u-key", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = h.do(http.MethodGet, "/softwareregistry/v1/activate?registry_key=x", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/softwareregistry/v1/unknown", "u-key", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDisabledEndpoint(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Registrar.Endpoints = []string{"verify"} })

	rec := h.do(http.MethodPost, "/softwareregistry/v1/create", "", createJSON, "application/json")
	require.Equal(t, http.StatusNotFound, rec.Code)
	_, msg := errorCode(t, rec)
	assert.Contains(t, msg, "not enabled")

	h.cfg.Registrar.Endpoints = config.AllActions
	rec = h.do(http.MethodPost, "/softwareregistry/v1/create", "c-key", createJSON, "application/json")
	assert.Equal(t, http.StatusOK, rec.Code)
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/healthz", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	srv, err := New(Deps{
		Engine: registry.NewEngine(store.NewMemory()),
		Store:  downStore{},
		Gate:   apikey.NewGate(apikey.Static{Get: func() *config.Config { return h.cfg }}),
		Config: func() *config.Config { return h.cfg },
	})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestValuesMergesQueryAndBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x?registry_key=q&name=Query",
		strings.NewReader(`{"registry_name":"Body","registry_domains":["a.com","b.com"],"count":3,"_email_to_client":true,"junk":1}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	v, err := Values(req, fields.Default())
	require.NoError(t, err)
	key, _ := v.Text("key")
	assert.Equal(t, "q", key)
	name, _ := v.Text("name")
	assert.Equal(t, "Body", name)
	domains, _ := v.List("domains")
	assert.Equal(t, []string{"a.com", "b.com"}, domains)
	count, _ := v.Text("count")
	assert.Equal(t, "3", count)
	assert.True(t, v.Has("_email_to_client"))
	assert.False(t, v.Has("junk"))
}

func TestPolicyFromConfig(t *testing.T) {
	p, err := Policy(config.License{Tiers: []config.Tier{
		{Code: "L3", Name: "Standard", Limits: config.Limits{Count: 5}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 5, p.LimitsFor("L3").Count)

	_, err = Policy(config.License{Tiers: []config.Tier{{Code: " ", Name: "Blank"}}})
	assert.Error(t, err)
}
