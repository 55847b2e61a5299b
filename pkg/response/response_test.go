package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("request_id", "rid-1")
	return c, w
}

func TestAbort(t *testing.T) {
	c, w := newContext()
	Abort(c, http.StatusConflict, "Entity already exists", nil)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusConflict, w.Code)
	var body APIResponse[any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "rid-1", body.RequestID)
	assert.Equal(t, "Entity already exists", body.Message)
}

func TestWriteCollection(t *testing.T) {
	c, w := newContext()
	n := 3
	WriteCollection(c, http.StatusOK, "http://x/odata/v2/$metadata#users", &n, []map[string]any{{"id": 1}})

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "http://x/odata/v2/$metadata#users", body["@odata.context"])
	assert.EqualValues(t, 3, body["@odata.count"])
	assert.Len(t, body["value"], 1)

	c, w = newContext()
	WriteCollection(c, http.StatusOK, "ctx", nil, []map[string]any{})
	assert.JSONEq(t, `{"@odata.context":"ctx","value":[]}`, w.Body.String())
}

func TestWriteEntity(t *testing.T) {
	c, w := newContext()
	WriteEntity(c, http.StatusCreated, "ctx/$entity", map[string]any{"id": 5})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"@odata.context":"ctx/$entity","id":5}`, w.Body.String())
}
