package odata

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery_AllOptions(t *testing.T) {
	v := url.Values{}
	v.Set("$top", "10")
	v.Set("$skip", "5")
	v.Set("$count", "true")
	v.Set("$select", "FirstName, email")
	v.Set("$orderby", "lastName desc, id")
	v.Set("$expand", "Addresses")
	v.Set("$filter", "id gt 3")
	v.Set("api-version", "2.0")

	q, err := ParseQuery(v, V2.Users, Options{})
	require.NoError(t, err)

	require.NotNil(t, q.Top)
	assert.Equal(t, 10, *q.Top)
	assert.Equal(t, 5, q.Skip)
	assert.True(t, q.Count)
	assert.Equal(t, []string{"firstName", "email"}, q.Select)
	assert.Equal(t, []OrderBy{{Property: "lastName", Desc: true}, {Property: "id"}}, q.OrderBy)
	assert.True(t, q.Expands("addresses"))
	assert.False(t, q.Expands("notes"))
	assert.NotNil(t, q.Filter)
}

func TestParseQuery_Rejects(t *testing.T) {
	cases := map[string][2]string{
		"unknown option":   {"$search", "x"},
		"negative top":     {"$top", "-1"},
		"bad count":        {"$count", "yes"},
		"unknown select":   {"$select", "nickname"},
		"bad direction":    {"$orderby", "id sideways"},
		"nested expand":    {"$expand", "addresses($select=city)"},
		"unknown expand":   {"$expand", "friends"},
		"hidden v2 select": {"$select", "middleName"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseQuery(url.Values{kv[0]: {kv[1]}}, V2.Users, Options{})
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestParseQuery_MaxTop(t *testing.T) {
	_, err := ParseQuery(url.Values{"$top": {"51"}}, V1.Users, Options{MaxTop: 50})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	q, err := ParseQuery(url.Values{"$top": {"50"}}, V1.Users, Options{MaxTop: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, *q.Top)
}

func TestVersions(t *testing.T) {
	assert.Equal(t, "1.0, 2.0", SupportedVersions())
	assert.Equal(t, "1.0", DeprecatedVersions())

	v, ok := LookupVersion("2.0")
	require.True(t, ok)
	assert.Same(t, V2, v)

	_, hidden := V2.Users.Property("middleName")
	assert.False(t, hidden)
	_, present := V1.Users.Property("middleName")
	assert.True(t, present)
	_, hidden = V2.Addresses.Property("streetName2")
	assert.False(t, hidden)

	nav, ok := V2.Users.Navigation("addresses")
	require.True(t, ok)
	assert.Same(t, V2.Addresses, nav.Target)
}
