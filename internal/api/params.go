// internal/api/params.go
//
// Request parameter decoding.
//
// Parameters arrive in the query string, a JSON object body, or a form
// body.  Body values override query values of the same name.  Keys are
// mapped to field names by fields.Values.Add (`registry_<field>` or the
// bare schema name; `_` directives pass through).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/yanizio/swregistry/internal/fields"
	"github.com/yanizio/swregistry/internal/registry"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

var errBody = &registry.Error{Code: http.StatusBadRequest, Kind: registry.KindBadRequest, Message: "malformed request body"}

// Values collects the request parameters of r.
func Values(r *http.Request, s *fields.Schema) (fields.Values, error) {
	out := fields.Values{}
	for k, vs := range r.URL.Query() {
		out.Add(s, k, vs)
	}
	if r.Body == nil || r.Body == http.NoBody {
		return out, nil
	}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json":
		body := http.MaxBytesReader(nil, r.Body, maxBody)
		dec := json.NewDecoder(body)
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, wrapBody(err)
		}
		for k, v := range m {
			out.Add(s, k, v)
		}
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(nil, r.Body, maxBody)
		if err := r.ParseMultipartForm(maxBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, wrapBody(err)
		}
		for k, vs := range r.PostForm {
			out.Add(s, k, vs)
		}
	}
	return out, nil
}

func wrapBody(err error) error {
	e := *errBody
	e.Detail = err.Error()
	e.Err = err
	return fmt.Errorf("decode params: %w", &e)
}
