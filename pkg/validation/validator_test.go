package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type level int

func (l level) Valid() bool { return l >= 0 && l < 2 }

type sample struct {
	Name  string `json:"name" binding:"required,min=2,max=5"`
	Count int    `json:"count" binding:"gte=0,lte=10"`
	Level *level `json:"level,omitempty" binding:"omitempty,enum"`
}

func TestStruct_Details(t *testing.T) {
	bad := level(7)
	err := Struct(&sample{Name: "x", Count: 11, Level: &bad})
	require.Error(t, err)

	details := ToDetails(err)
	assert.Equal(t, "must be at least 2 characters", details["name"])
	assert.Equal(t, "must be less than or equal to 10", details["count"])
	assert.Equal(t, "is not a valid value", details["level"])
}

func TestStruct_Valid(t *testing.T) {
	ok := level(1)
	assert.NoError(t, Struct(&sample{Name: "abc", Level: &ok}))
	assert.NoError(t, Struct(&sample{Name: "abc"}))
}

func TestToDetails_Syntax(t *testing.T) {
	var v map[string]any
	err := json.Unmarshal([]byte("{"), &v)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))
}
