// internal/api/envelope.go
//
// Error envelope:
//
//	{"status":{"code":"404","message":"Not Found"},
//	 "error":{"code":"404","message":"registration post for 'x' not found"}}
package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"github.com/yanizio/swregistry/internal/registry"
)

// ErrorEnvelope is the failure document.
type ErrorEnvelope struct {
	Status registry.StatusBlock `json:"status"`
	Error  registry.StatusBlock `json:"error"`
}

func envelope(e *registry.Error) ErrorEnvelope {
	code := strconv.Itoa(e.Code)
	return ErrorEnvelope{
		Status: registry.StatusBlock{Code: code, Message: http.StatusText(e.Code)},
		Error:  registry.StatusBlock{Code: code, Message: e.Error()},
	}
}

func writeError(w http.ResponseWriter, r *http.Request, e *registry.Error) {
	if r.Method == http.MethodHead {
		w.WriteHeader(e.Code)
		return
	}
	render.Status(r, e.Code)
	render.JSON(w, r, envelope(e))
}
