package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-odata-api/internal/application"
	"github.com/oksasatya/go-odata-api/pkg/response"
)

type SearchHandler struct {
	Svc    *application.SearchService
	Logger *logrus.Logger
}

func NewSearchHandler(svc *application.SearchService, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{Svc: svc, Logger: logger}
}

var searchKinds = map[string]string{"users": "user", "addresses": "address"}

// Search godoc: GET /api/search/:set?q=&size=
func (h *SearchHandler) Search(c *gin.Context) {
	kind, ok := searchKinds[strings.ToLower(c.Param("set"))]
	if !ok {
		response.Abort(c, http.StatusNotFound, "unknown entity set", nil)
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Abort(c, http.StatusBadRequest, "q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))

	hits, err := h.Svc.Search(c.Request.Context(), kind, q, size)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("search failed")
		}
		response.Abort(c, http.StatusBadGateway, "search unavailable", nil)
		return
	}
	c.JSON(http.StatusOK, response.Success(c, http.StatusOK, hits, "search results", gin.H{"count": len(hits)}))
}
