// internal/view/email.go

package view

import "html/template"

// Email is the data for the e-mail layout.  Message, Notices, and Table are
// trusted HTML (operator templates and our own markup).
type Email struct {
	Subject   string
	Message   template.HTML
	Signature []string
	Notices   template.HTML
	Table     template.HTML
	Footer    string
}

// RenderEmail renders the full e-mail document for product.
func (e *Engine) RenderEmail(product string, m Email) (string, error) {
	return e.execute(product, "email", m)
}
