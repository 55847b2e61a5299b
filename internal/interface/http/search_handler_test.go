package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/go-odata-api/internal/application"
)

func TestSearchHandler(t *testing.T) {
	h := NewSearchHandler(application.NewSearchService(nil, "users", "addresses", nil), nil)
	r := gin.New()
	r.GET("/api/search/:set", h.Search)

	cases := []struct {
		target string
		status int
	}{
		{"/api/search/users?q=ada", http.StatusOK},
		{"/api/search/addresses?q=main&size=5", http.StatusOK},
		{"/api/search/users", http.StatusBadRequest},
		{"/api/search/notes?q=x", http.StatusNotFound},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.target, nil))
		assert.Equal(t, tc.status, w.Code, tc.target)
	}
}
