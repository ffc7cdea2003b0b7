// internal/view/render.go
//
// HTML rendering: the registration table returned as registryHtml and the
// notification e-mail layout.
//
// Public helpers
// --------------
//   - RegistryTable     – registry.HTMLRenderer for API responses.
//   - RegistryTableDiff – same table, changed values wrapped in <em>.
//   - Email             – full e-mail document around a merged message.
//
// Lookup precedence (first hit wins, per template name):
//  1. <dir>/<product>/*.html
//  2. <dir>/*.html
//  3. embedded templates/*.html
//
// Each template set is parsed once per product and kept in an LRU.
// Overrides must {{ define }} the same names as the embedded files
// ("registry", "email").

package view

import (
	"bytes"
	"embed"
	"html/template"
	"path/filepath"

	"github.com/yanizio/swregistry/internal/cache"
	"github.com/yanizio/swregistry/internal/fields"
)

//go:embed templates/*.html
var embedded embed.FS

// setCapacity bounds the per-product template sets held in memory.
const setCapacity = 256

// Engine renders registry HTML.
type Engine struct {
	dir  string
	sets *cache.LRU[string, *template.Template]
}

// New returns an Engine.  dir may be empty (embedded templates only).
func New(dir string) *Engine {
	return &Engine{dir: dir, sets: cache.New[string, *template.Template](setCapacity)}
}

// execute renders the named template for product.
func (e *Engine) execute(product, name string, data any) (string, error) {
	t, err := e.load(product)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

//
// internal: load
//

func (e *Engine) load(product string) (*template.Template, error) {
	slug := fields.Slug(product)
	return e.sets.GetOrAdd(slug, func() (*template.Template, error) {
		t, err := template.New("view").Funcs(funcMap()).ParseFS(embedded, "templates/*.html")
		if err != nil {
			return nil, err
		}
		if e.dir == "" {
			return t, nil
		}
		// Parse broad overrides first so product files win.
		dirs := []string{e.dir}
		if slug != "" {
			dirs = append(dirs, filepath.Join(e.dir, slug))
		}
		for _, dir := range dirs {
			matches, _ := filepath.Glob(filepath.Join(dir, "*.html"))
			if len(matches) == 0 {
				continue
			}
			if t, err = t.ParseFiles(matches...); err != nil {
				return nil, err
			}
		}
		return t, nil
	})
}

//
// func-map
//

func funcMap() template.FuncMap {
	return template.FuncMap{
		"dict":  dict,
		"yesno": yesno,
	}
}

func yesno(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
