package odata

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter_Comparison(t *testing.T) {
	n, err := ParseFilter("firstName eq 'O''Brien'", V1.Users, 0)
	require.NoError(t, err)

	b, ok := n.(BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "eq", b.Op)
	assert.Equal(t, "firstName", b.Left.(PropertyNode).Property.Name)
	assert.Equal(t, "O'Brien", b.Right.(LiteralNode).Value)
}

func TestParseFilter_PropertyNamesIgnoreCase(t *testing.T) {
	n, err := ParseFilter("LASTNAME ne null", V2.Users, 0)
	require.NoError(t, err)
	assert.Equal(t, "lastName", n.(BinaryNode).Left.(PropertyNode).Property.Name)
}

func TestParseFilter_Precedence(t *testing.T) {
	n, err := ParseFilter("id gt 1 or id lt 5 and not (city eq 'x')", V1.Addresses, 0)
	require.NoError(t, err)

	or, ok := n.(BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "or", or.Op)
	and, ok := or.Right.(BinaryNode)
	require.True(t, ok)
	assert.Equal(t, "and", and.Op)
	_, ok = and.Right.(NotNode)
	assert.True(t, ok)
}

func TestParseFilter_Functions(t *testing.T) {
	n, err := ParseFilter("contains(tolower(city),'ville') and startswith(state, 'T')", V2.Addresses, 0)
	require.NoError(t, err)

	and := n.(BinaryNode)
	call := and.Left.(CallNode)
	assert.Equal(t, "contains", call.Func)
	assert.Equal(t, "tolower", call.Args[0].(CallNode).Func)
}

func TestParseFilter_Literals(t *testing.T) {
	n, err := ParseFilter("createdDate ge 2020-01-02T03:04:05Z and streetNumber le -1.5", V1.Addresses, 0)
	require.NoError(t, err)

	and := n.(BinaryNode)
	ts := and.Left.(BinaryNode).Right.(LiteralNode).Value
	assert.Equal(t, time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), ts)
	assert.Equal(t, -1.5, and.Right.(BinaryNode).Right.(LiteralNode).Value)
}

func TestParseFilter_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown property":     "nickname eq 'x'",
		"hidden in v2":         "middleName eq 'x'",
		"not boolean":          "firstName",
		"literal comparison":   "1 eq 1",
		"unterminated string":  "firstName eq 'abc",
		"unsupported function": "length(firstName) eq 3",
		"bad contains args":    "contains(id, 'x')",
		"trailing tokens":      "id eq 1 1",
		"unbalanced":           "(id eq 1",
	}
	for name, expr := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFilter(expr, V2.Users, 0)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidQuery))
		})
	}
}

func TestParseFilter_NodeLimit(t *testing.T) {
	_, err := ParseFilter("id eq 1 or id eq 2", V2.Users, 4)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = ParseFilter("id eq 1 or id eq 2", V2.Users, 7)
	assert.NoError(t, err)
}
