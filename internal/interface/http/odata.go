package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-odata-api/internal/application"
	"github.com/oksasatya/go-odata-api/internal/odata"
	"github.com/oksasatya/go-odata-api/pkg/response"
	"github.com/oksasatya/go-odata-api/pkg/telemetry"
	"github.com/oksasatya/go-odata-api/pkg/validation"
)

// ODataHandler holds what every entity set handler of one service root shares.
type ODataHandler struct {
	Version *odata.Version
	// Prefix is the service root path, "/odata/v2" or "/odata".
	Prefix  string
	Limits  odata.Options
	Tracker *telemetry.Tracker
	Logger  *logrus.Logger
}

// ServiceRoot is the absolute URL of the service root the request came in on.
func (h *ODataHandler) ServiceRoot(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + c.Request.Host + h.Prefix
}

func (h *ODataHandler) contextURL(c *gin.Context, fragment string) string {
	return h.ServiceRoot(c) + "/$metadata#" + fragment
}

func (h *ODataHandler) query(c *gin.Context, et *odata.EntityType) (*odata.Query, bool) {
	q, err := odata.ParseQuery(c.Request.URL.Query(), et, h.Limits)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return q, true
}

func (h *ODataHandler) pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		response.Abort(c, http.StatusBadRequest, "invalid key", map[string]string{name: c.Param(name)})
		return 0, false
	}
	return id, true
}

func (h *ODataHandler) body(c *gin.Context) ([]byte, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		response.Abort(c, http.StatusBadRequest, "invalid payload", nil)
		return nil, false
	}
	return raw, true
}

func writeCollection[T any](h *ODataHandler, c *gin.Context, status int, set string, et *odata.EntityType, items []T, count *int, q *odata.Query) {
	value, err := odata.ProjectAll(items, et, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.WriteCollection(c, status, h.contextURL(c, set), count, value)
}

func invalidBody(err error) error {
	return fmt.Errorf("%w: %w", application.ErrInvalidInput, err)
}

func (h *ODataHandler) writeEntity(c *gin.Context, status int, set string, et *odata.EntityType, v any, q *odata.Query) {
	m, err := odata.Project(v, et, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.WriteEntity(c, status, h.contextURL(c, set+"/$entity"), m)
}

// fail maps an error onto the API error taxonomy. Conflicts and server
// errors are reported to telemetry and carry the telemetry suffix.
func (h *ODataHandler) fail(c *gin.Context, err error) {
	status, msg, details := classify(err)
	if status == http.StatusConflict || status >= http.StatusInternalServerError {
		h.Tracker.TrackException(c.Request.Context(), err, map[string]string{
			"request_id": c.GetString("request_id"),
			"route":      c.Request.Method + " " + c.FullPath(),
		})
		msg += application.TelemetrySuffix
	}
	if h.Logger != nil && status >= http.StatusInternalServerError {
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("request failed")
	}
	response.Abort(c, status, msg, details)
}

func classify(err error) (int, string, any) {
	switch {
	case errors.Is(err, odata.ErrInvalidQuery):
		return http.StatusBadRequest, err.Error(), nil
	case errors.Is(err, application.ErrInvalidInput):
		return http.StatusBadRequest, "invalid payload", validation.ToDetails(err)
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, err.Error(), nil
	case errors.Is(err, application.ErrDuplicateEntity):
		return http.StatusConflict, application.ErrDuplicateEntity.Error(), nil
	case errors.Is(err, application.ErrDuplicateAssociation):
		return http.StatusConflict, application.ErrDuplicateAssociation.Error(), nil
	case errors.Is(err, application.ErrForeignKeyConflict):
		return http.StatusConflict, application.ErrForeignKeyConflict.Error(), nil
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden, err.Error(), nil
	}
	return http.StatusInternalServerError, err.Error(), nil
}

// refTarget extracts the related key of a $ref request: the @odata.id of the
// body for POST, the $id (or id) query parameter for DELETE.
func refTarget(c *gin.Context) (int, error) {
	if c.Request.Method == http.MethodDelete {
		uri := c.Query("$id")
		if uri == "" {
			uri = c.Query("id")
		}
		if uri == "" {
			return 0, fmt.Errorf("%w: $id is required", odata.ErrInvalidQuery)
		}
		return odata.KeyFromURL(uri)
	}
	var body struct {
		ID string `json:"@odata.id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ID == "" {
		return 0, fmt.Errorf("%w: body must carry @odata.id", odata.ErrInvalidQuery)
	}
	return odata.KeyFromURL(body.ID)
}
