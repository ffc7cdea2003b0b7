// internal/fields/slug.go
//
// Product slug helper.
//
// • Slug(product) ─ folds a product identifier into a comparison key so that
//   "My_Plugin", "my plugin", and "my-plugin" all name the same product.
//
// Rules
// -----
// 1. Lower-case everything.
// 2. Keep a-z, 0-9, and "_".
// 3. Convert any run of other characters (spaces, punctuation, non-ASCII)
//    to one "-".
// 4. Trim leading / trailing "-".

package fields

import "strings"

// Slug converts a product identifier to its comparison key.
func Slug(product string) string {
	var b strings.Builder
	b.Grow(len(product))

	lastWasDash := false
	for _, r := range strings.ToLower(product) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastWasDash = false
		default:
			if !lastWasDash {
				b.WriteRune('-')
				lastWasDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
