package fields

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchemaLoads(t *testing.T) {
	s := Default()
	require.NotNil(t, s)

	d, ok := s.Lookup("domains")
	require.True(t, ok)
	assert.Equal(t, KindDomains, d.Kind)
	assert.True(t, d.Kind.IsList())

	pay, ok := s.Lookup("paydue")
	require.True(t, ok)
	assert.True(t, pay.Optional)
	assert.False(t, pay.Public, "payment fields are never public")

	assert.False(t, s.Has("apikey"))
}

func TestParseSchemaRejectsBadDefinitions(t *testing.T) {
	cases := map[string]string{
		"empty":     "fields: []",
		"kind":      "fields:\n  - {name: key, kind: blob}",
		"duplicate": "fields:\n  - {name: key, kind: text}\n  - {name: key, kind: text}",
		"both":      "fields:\n  - {name: key, kind: text, required: true, optional: true}",
		"core":      "fields:\n  - {name: key, kind: text}",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSchema([]byte(raw), name)
			assert.Error(t, err)
		})
	}
}

func TestValuesAddCanonicalizesKeys(t *testing.T) {
	s := Default()
	v := Values{}

	v.Add(s, "registry_email", "A@B.com")
	v.Add(s, "product", "widget")
	v.Add(s, "registry_colour", "blue")
	v.Add(s, "_email_to_client", true)
	v.Add(s, "apikey", "secret")
	v.Add(s, "registry_domains[]", []string{"a.com"})
	v.Add(s, "registry_name", []string{"Ann"})
	v.Add(s, "registry_sites", []any{"x.com", nil, "y.com"})

	assert.Equal(t, Scalar("A@B.com"), v["email"])
	assert.Equal(t, Scalar("widget"), v["product"])
	assert.Equal(t, Scalar("blue"), v["colour"], "prefixed unknown keys are custom fields")
	assert.Equal(t, Scalar("true"), v["_email_to_client"])
	assert.False(t, v.Has("apikey"))
	assert.Equal(t, ListOf("a.com"), v["domains"])
	assert.Equal(t, Scalar("Ann"), v["name"])
	assert.Equal(t, ListOf("x.com", "y.com"), v["sites"])
}

func TestSanitizeByKind(t *testing.T) {
	s := Default()
	in := Values{
		"product":     Scalar("  my-plugin/pro é "),
		"email":       Scalar(" Jo Smith@Example.COM "),
		"title":       Scalar("Big\n<b>Title</b>\tHere"),
		"description": Scalar("line one\nline <script>two</script>\x07"),
		"domains":     Scalar("www.a.com, b.com ,,"),
		"options":     ListOf(" x ", "<i>y</i>"),
		"colour":      Scalar(" <b>blue</b> "),
	}

	out, err := Sanitize(s, in, nil, false)
	require.NoError(t, err)

	assert.Equal(t, "my_plugin_pro_é", out["product"].Text)
	assert.Equal(t, "josmith@example.com", out["email"].Text)
	assert.Equal(t, "Big Title Here", out["title"].Text)
	assert.Equal(t, "line one\nline two", out["description"].Text)
	assert.Equal(t, []string{"www.a.com", "b.com"}, out["domains"].List)
	assert.Equal(t, []string{"x", "y"}, out["options"].List)
	assert.Equal(t, "blue", out["colour"].Text)
	assert.False(t, out.Has("name"), "absent fields stay absent without requireOnMissing")

	// input untouched
	assert.Equal(t, "  my-plugin/pro é ", in["product"].Text)
}

func TestSanitizeRequireOnMissing(t *testing.T) {
	s := Default()
	defaults := Values{
		"key":     Scalar("k-1"),
		"product": Scalar("widget"),
		"status":  Scalar("pending"),
	}

	_, err := Sanitize(s, Values{"email": Scalar("a@b.com")}, defaults, true)
	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "name", missing.Field)
	assert.Equal(t, "registry_name is required for registration", err.Error())

	out, err := Sanitize(s, Values{
		"email": Scalar("a@b.com"),
		"name":  Scalar("Ann"),
	}, defaults, true)
	require.NoError(t, err)
	assert.Equal(t, "k-1", out["key"].Text)
	assert.Equal(t, "widget", out["product"].Text)
	assert.Equal(t, "pending", out["status"].Text)
	assert.Equal(t, "", out["title"].Text, "non-required fields fall back to the zero value")
	assert.True(t, out["domains"].IsList)
	assert.Empty(t, out["domains"].List)
	assert.False(t, out.Has("paydue"), "optional fields are never back-filled")
}

func TestTextEscapesUnclosedTags(t *testing.T) {
	assert.Equal(t, "&lt;a href=https://evil.example/phish", Text("<a href=https://evil.example/phish"))
	assert.Equal(t, "1 &lt; 2", Text("1 < 2"))
	assert.Equal(t, "bold and &lt;i", Text("<b>bold</b> and <i"))
	assert.Equal(t, Text("x < y"), Text(Text("x < y")), "Text is idempotent")
}

func TestStripWWW(t *testing.T) {
	assert.Equal(t, "example.com", StripWWW("www.example.com"))
	assert.Equal(t, "example.com", StripWWW("WWW.example.com"))
	assert.Equal(t, "www.com", StripWWW("www.com"))
	assert.Equal(t, "sub.example.com", StripWWW("sub.example.com"))
}

func TestSiteURL(t *testing.T) {
	assert.Equal(t, "http://example.com/shop", SiteURL("example.com/shop"))
	assert.Equal(t, "https://example.com", SiteURL("HTTPS://example.com"))
	assert.Equal(t, "", SiteURL("ftp://example.com"))
	assert.Equal(t, "", SiteURL("javascript://alert(1)"))
	assert.Equal(t, "", SiteURL("  "))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "my_plugin", Slug("My_Plugin"))
	assert.Equal(t, "my-plugin", Slug("my plugin!"))
	assert.Equal(t, Slug("my-plugin"), Slug("My Plugin"))
	assert.Equal(t, "", Slug("--"))
}

func TestIsTrue(t *testing.T) {
	for _, s := range []string{"1", "true", "YES", " on ", "y"} {
		assert.True(t, IsTrue(s), s)
	}
	for _, s := range []string{"", "0", "false", "no", "maybe"} {
		assert.False(t, IsTrue(s), s)
	}
}
