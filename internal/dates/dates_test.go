package dates

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

func TestParseDayLayouts(t *testing.T) {
	for _, in := range []string{"05-Apr-2026", "5-Apr-2026", "2026-04-05", "Apr 5, 2026", "5 April 2026"} {
		d, err := ParseDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, "05-Apr-2026", d.String(), in)
	}
	_, err := ParseDay("not a date")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseTerm(t *testing.T) {
	cases := map[string]Term{
		"30 days":          {Days: 30},
		"+1 year":          {Years: 1},
		"1 year 6 months":  {Years: 1, Months: 6},
		"2 weeks":          {Days: 14},
		"12 hours":         {Clock: 12 * time.Hour},
		"-1 month":         {Months: -1},
		"90days":           {Days: 90},
		"100 years":        {Years: 100},
		"1 fortnight":      {Days: 14},
		"6 Months 10 Days": {Months: 6, Days: 10},
	}
	for in, want := range cases {
		got, err := ParseTerm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "days", "30", "30 parsecs", "tomorrow",
		"99999999999999999999 days", "99999999999999999999days"} {
		_, err := ParseTerm(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestParseExpressions(t *testing.T) {
	cases := map[string]time.Time{
		"now":                   fixedNow,
		"today":                 time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		"tomorrow":              time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		"yesterday":             time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		"+30 days":              fixedNow.AddDate(0, 0, 30),
		"now -30 days":          fixedNow.AddDate(0, 0, -30),
		"01-Jan-2026":           time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		"2026-01-01 23:59:59":   time.Date(2026, 1, 1, 23, 59, 59, 0, time.UTC),
		"01-Jan-2026 +1 year":   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		"00:00:00 today":        time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		"2026-03-01T08:00:00Z":  time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		"Jan 2, 2026 +2 months": time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := Parse(in, time.UTC, fixedNow)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s: want %s got %s", in, want, got)
	}

	for _, bad := range []string{"", "whenever", "25:00", "+3 parsecs"} {
		_, err := Parse(bad, time.UTC, fixedNow)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestResolverEffectivePrecedence(t *testing.T) {
	r := NewResolver(time.UTC, fixedNow)

	// Override allowed → requested wins.
	assert.Equal(t, "01-Apr-2026", r.Effective("01-Apr-2026", true, "01-Feb-2026").String())
	// Override refused → default wins.
	assert.Equal(t, "01-Feb-2026", r.Effective("01-Apr-2026", false, "01-Feb-2026").String())
	// Unparseable everything → today.
	assert.Equal(t, "15-Mar-2026", r.Effective("garbage", true, "also garbage").String())
	assert.Equal(t, "15-Mar-2026", r.Effective("", false, "").String())
}

func TestResolverExpiresPrecedence(t *testing.T) {
	r := NewResolver(time.UTC, fixedNow)
	eff := NewDay(2026, time.March, 1)

	assert.Equal(t, "31-Mar-2026", r.Expires("30 days", true, "", "1 year", eff).String())
	assert.Equal(t, "2026-06-30", r.Expires("2026-06-30", true, "", "1 year", eff).ISO())
	assert.Equal(t, "01-Mar-2027", r.Expires("30 days", false, "", "1 year", eff).String())
	assert.Equal(t, "10-Mar-2026", r.Expires("", false, "10-Mar-2026", "1 year", eff).String())
	assert.Equal(t, "01-Mar-2026", r.Expires("bad", true, "worse", "worst", eff).String())
}

func TestResolverRenewFromOldExpiry(t *testing.T) {
	r := NewResolver(time.UTC, fixedNow)
	yesterday := r.Today().AddDays(-1)

	got, err := r.Renew(yesterday, "30 days")
	require.NoError(t, err)
	assert.Equal(t, yesterday.AddDays(30), got)

	_, err = r.Renew(yesterday, "soon")
	assert.Error(t, err)
}

func TestResolverClockTests(t *testing.T) {
	r := NewResolver(time.UTC, fixedNow)
	today := r.Today()

	assert.False(t, r.Expired(today), "today is still valid until 23:59:59")
	assert.True(t, r.Expired(today.AddDays(-1)))

	assert.True(t, r.PastGrace(today.AddDays(-31)))
	assert.False(t, r.PastGrace(today.AddDays(-10)))

	assert.True(t, r.InFuture(today.AddDays(1)))
	assert.False(t, r.InFuture(today))
}

func TestResolverHonoursTimezone(t *testing.T) {
	loc, err := LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC on the 15th is still the 14th in New York.
	r := NewResolver(loc, time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC))
	assert.Equal(t, "14-Mar-2026", r.Today().String())
	assert.False(t, r.Expired(NewDay(2026, 3, 14)))
}

func TestDayEncoding(t *testing.T) {
	d := NewDay(2026, time.February, 30) // normalizes to 02-Mar
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"02-Mar-2026"`, string(b))

	var back Day
	require.NoError(t, json.Unmarshal([]byte(`"2026-03-02"`), &back))
	assert.Equal(t, d, back)

	require.NoError(t, json.Unmarshal([]byte(`""`), &back))
	assert.True(t, back.IsZero())

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", v)

	var scanned Day
	require.NoError(t, scanned.Scan([]byte("2026-03-02")))
	assert.Equal(t, d, scanned)
	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.IsZero())
}
