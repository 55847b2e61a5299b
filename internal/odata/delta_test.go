package odata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-odata-api/internal/domain/entity"
)

func TestApplyDelta_User(t *testing.T) {
	u := entity.User{ID: 7, FirstName: "Ann", LastName: "Lee", Phone: "5551234"}
	delta := map[string]any{"ID": 99, "FIRSTNAME": "Anna", "phone": nil, "unknown": "x", "createdBy": "mallory"}

	require.NoError(t, ApplyDelta(&u, delta, V1.Users))

	assert.Equal(t, 7, u.ID)
	assert.Equal(t, "Anna", u.FirstName)
	assert.Equal(t, "Lee", u.LastName)
	assert.Empty(t, u.Phone)
	assert.Empty(t, u.CreatedBy)
}

func TestApplyDelta_VersionHidesProperty(t *testing.T) {
	u := entity.User{MiddleName: "Q"}
	require.NoError(t, ApplyDelta(&u, map[string]any{"middleName": "Z"}, V2.Users))
	assert.Equal(t, "Q", u.MiddleName)
}

func TestApplyDelta_WeakConversion(t *testing.T) {
	var a entity.Address
	var delta map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"streetNumber":"42","type":"business","zipCode":12345}`), &delta))

	require.NoError(t, ApplyDelta(&a, delta, V2.Addresses))

	assert.Equal(t, 42, a.StreetNumber)
	require.NotNil(t, a.Type)
	assert.Equal(t, entity.Business, *a.Type)
	assert.Equal(t, "12345", a.ZipCode)
}

func TestApplyDelta_InvalidValue(t *testing.T) {
	var a entity.Address
	err := ApplyDelta(&a, map[string]any{"streetNumber": "forty"}, V2.Addresses)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestDeltaKey(t *testing.T) {
	id, err := DeltaKey(map[string]any{"Id": float64(3)}, V2.Users)
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	id, err = DeltaKey(map[string]any{"id": "12"}, V2.Users)
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = DeltaKey(map[string]any{"firstName": "x"}, V2.Users)
	assert.Error(t, err)
}

func TestDeltaKey_RejectsFractions(t *testing.T) {
	_, err := DeltaKey(map[string]any{"id": float64(1.9)}, V2.Users)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = DeltaKey(map[string]any{"id": json.Number("1.9")}, V2.Users)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	id, err := DeltaKey(map[string]any{"id": float64(4.0)}, V2.Users)
	require.NoError(t, err)
	assert.Equal(t, 4, id)
}

func TestKeyFromURL(t *testing.T) {
	cases := map[string]int{
		"http://localhost/odata/v2/addresses(5)":  5,
		"addresses(12)":                           12,
		"/odata/users/44":                         44,
		"http://h/odata/addresses(id=9)?x=1":      9,
		"http://h/odata/addresses('15')/":         15,
	}
	for uri, want := range cases {
		got, err := KeyFromURL(uri)
		require.NoError(t, err, uri)
		assert.Equal(t, want, got, uri)
	}

	_, err := KeyFromURL("http://h/odata/addresses")
	assert.Error(t, err)
}

func TestProject(t *testing.T) {
	typ := entity.Business
	u := entity.User{
		ID: 1, FirstName: "Ann", MiddleName: "Q", LastName: "Lee",
		Audit:     entity.Audit{CreatedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), CreatedBy: "seed"},
		Addresses: []entity.Address{{ID: 2, City: "Austin", StreetName2: "Unit", Type: &typ}},
	}

	m, err := Project(u, V2.Users, &Query{Expand: []string{"addresses"}})
	require.NoError(t, err)
	assert.Equal(t, "Ann", m["firstName"])
	assert.NotContains(t, m, "middleName")
	assert.Equal(t, "2024-01-01T00:00:00Z", m["createdDate"])
	addrs := m["addresses"].([]any)
	require.Len(t, addrs, 1)
	addr := addrs[0].(map[string]any)
	assert.Equal(t, "Business", addr["type"])
	assert.NotContains(t, addr, "streetName2")
	assert.NotContains(t, m, "notes")

	m, err = Project(u, V1.Users, &Query{Select: []string{"lastName"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(1), "lastName": "Lee"}, m)
}

func TestDecodeEntity_DropsHiddenProperties(t *testing.T) {
	raw := []byte(`{"id":3,"FirstName":"Ann","middleName":"Q","lastName":"Lee","bogus":1}`)

	var v2 entity.User
	require.NoError(t, DecodeEntity(raw, &v2, V2.Users))
	assert.Equal(t, 3, v2.ID)
	assert.Equal(t, "Ann", v2.FirstName)
	assert.Empty(t, v2.MiddleName)

	var v1 entity.User
	require.NoError(t, DecodeEntity(raw, &v1, V1.Users))
	assert.Equal(t, "Q", v1.MiddleName)

	assert.ErrorIs(t, DecodeEntity([]byte(`[1]`), &v1, V1.Users), ErrInvalidQuery)
}

func TestDecodeEntity_EnumByName(t *testing.T) {
	var a entity.Address
	require.NoError(t, DecodeEntity([]byte(`{"type":"business","city":"Austin"}`), &a, V2.Addresses))
	require.NotNil(t, a.Type)
	assert.Equal(t, entity.Business, *a.Type)
}

func TestSplitBody(t *testing.T) {
	items, many, err := SplitBody([]byte(` {"id":1} `))
	require.NoError(t, err)
	assert.False(t, many)
	assert.Len(t, items, 1)

	items, many, err = SplitBody([]byte(`[{"id":1},{"id":2}]`))
	require.NoError(t, err)
	assert.True(t, many)
	assert.Len(t, items, 2)

	_, _, err = SplitBody(nil)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestDeltaList(t *testing.T) {
	d, err := DeltaList([]byte(`[{"id":1,"city":"x"}]`))
	require.NoError(t, err)
	assert.Len(t, d, 1)

	d, err = DeltaList([]byte(`{"value":[{"id":1},{"id":2}]}`))
	require.NoError(t, err)
	assert.Len(t, d, 2)

	_, err = DeltaList([]byte(`[]`))
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = DeltaList([]byte(`{"id":1}`))
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
