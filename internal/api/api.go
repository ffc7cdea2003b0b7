// internal/api/api.go
//
// Public REST surface of the registrar.
//
// Context
// -------
// Six endpoints under `<http.base_path>/v1/`, one per lifecycle action.
// Each route is wrapped, outermost first, by:
//
//	enabled(action) ─▶ gate.Require(action) ─▶ handle(action)
//
// so a disabled endpoint answers 404 before the key is checked, and a
// method outside the action's set answers 405 from chi.
//
// Workflow (per request)
// ----------------------
//  1. Snapshot registry.Settings from config.Get().
//  2. Decode parameters (query + JSON or form body) into fields.Values.
//  3. Build the RequestContext from internal/requestinfo.
//  4. Run the engine action; render the success document or the error
//     envelope.  HEAD gets headers only.
//
// Notes
// -----
// • /healthz pings the store; /metrics exposes the Prometheus registry.
// • The license ladder and field schema are resolved once in New; a change
//   to either requires a restart.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/swregistry/internal/apikey"
	"github.com/yanizio/swregistry/internal/config"
	"github.com/yanizio/swregistry/internal/fields"
	"github.com/yanizio/swregistry/internal/license"
	"github.com/yanizio/swregistry/internal/metrics"
	"github.com/yanizio/swregistry/internal/registry"
	"github.com/yanizio/swregistry/internal/requestinfo"
)

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Engine *registry.Engine
	Store  Pinger
	Gate   *apikey.Gate
	HTML   registry.HTMLRenderer // may be nil
	Config func() *config.Config  // defaults to config.Get
	Clock  func() time.Time       // defaults to time.Now
}

// Server routes API requests to the engine.
type Server struct {
	Deps
	policy *license.Policy
	schema *fields.Schema
}

type actionFunc func(context.Context, *registry.Settings, registry.RequestContext, fields.Values) (*registry.Result, error)

// endpoint is one row of the routing table.
type endpoint struct {
	action  registry.Action
	methods []string
}

var endpoints = []endpoint{
	{registry.ActionCreate, []string{http.MethodPost, http.MethodPut}},
	{registry.ActionActivate, []string{http.MethodGet, http.MethodPost}},
	{registry.ActionDeactivate, []string{http.MethodGet, http.MethodPost, http.MethodDelete}},
	{registry.ActionVerify, []string{http.MethodGet, http.MethodHead, http.MethodPost}},
	{registry.ActionRefresh, []string{http.MethodGet, http.MethodPost}},
	{registry.ActionRevise, []string{http.MethodPost}},
}

// New resolves the license ladder and schema from the current config.
func New(d Deps) (*Server, error) {
	if d.Config == nil {
		d.Config = config.Get
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	cfg := d.Config()

	policy, err := Policy(cfg.License)
	if err != nil {
		return nil, err
	}
	schema, err := Schema(cfg)
	if err != nil {
		return nil, err
	}
	return &Server{Deps: d, policy: policy, schema: schema}, nil
}

// Routes returns the API router.  Global middleware is applied by the
// caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, &registry.Error{Code: http.StatusMethodNotAllowed, Kind: registry.KindBadRequest,
			Message: "method " + strings.ToLower(r.Method) + " not allowed"})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, &registry.Error{Code: http.StatusNotFound, Kind: registry.KindNotFound,
			Message: "no route for " + r.URL.Path})
	})

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	base := strings.TrimRight(s.Config().HTTP.BasePath, "/")
	r.Route(base+"/v1", func(r chi.Router) {
		for _, ep := range endpoints {
			h := r.With(s.enabled(ep.action), s.Gate.Require(ep.action))
			fn := s.handle(ep.action, s.dispatch(ep.action))
			for _, m := range ep.methods {
				h.MethodFunc(m, "/"+string(ep.action), fn)
			}
		}
	})
	return r
}

func (s *Server) dispatch(a registry.Action) actionFunc {
	e := s.Engine
	switch a {
	case registry.ActionCreate:
		return e.Create
	case registry.ActionActivate:
		return e.Activate
	case registry.ActionDeactivate:
		return e.Deactivate
	case registry.ActionVerify:
		return e.Verify
	case registry.ActionRefresh:
		return e.Refresh
	case registry.ActionRevise:
		return e.Revise
	}
	return nil
}

// enabled answers 404 for actions missing from registrar.endpoints.  The
// list is read per request so a reload applies at once.
func (s *Server) enabled(a registry.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, name := range s.Config().Registrar.Endpoints {
				if strings.EqualFold(name, string(a)) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, &registry.Error{Code: http.StatusNotFound, Kind: registry.KindDisabled,
				Message: "endpoint " + string(a) + " is not enabled"})
		})
	}
}

func (s *Server) handle(action registry.Action, fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			metrics.RequestSeconds.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())
		}()

		settings, err := registry.NewSettings(s.Config(), s.policy, s.schema, s.Clock())
		if err != nil {
			s.fail(w, r, action, err)
			return
		}
		in, err := Values(r, s.schema)
		if err != nil {
			s.fail(w, r, action, err)
			return
		}
		rc := requestinfo.Context(r, registry.SourceAPI)

		res, err := fn(r.Context(), settings, rc, in)
		if err != nil {
			s.fail(w, r, action, err)
			return
		}

		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			return
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, registry.BuildResponse(res, s.HTML))
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, action registry.Action, err error) {
	e := registry.AsError(err)
	metrics.Errors.WithLabelValues(string(action), strconv.Itoa(e.Code)).Inc()

	log := zap.S().With("action", action, "code", e.Code, "kind", e.Kind.String())
	if e.Code >= http.StatusInternalServerError {
		log.Errorw("api request failed", "err", err)
	} else {
		log.Infow("api request rejected", "err", e.Error())
	}
	writeError(w, r, e)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		zap.S().Warnw("health check failed", "err", err)
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"status": "unavailable"})
		return
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}
