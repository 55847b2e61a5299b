package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-odata-api/internal/application"
	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	"github.com/oksasatya/go-odata-api/internal/interface/middleware"
	"github.com/oksasatya/go-odata-api/internal/odata"
)

type UserHandler struct {
	*ODataHandler
	Svc *application.UserService
}

func NewUserHandler(base *ODataHandler, svc *application.UserService) *UserHandler {
	return &UserHandler{ODataHandler: base, Svc: svc}
}

func (h *UserHandler) et() *odata.EntityType { return h.Version.Users }

func (h *UserHandler) List(c *gin.Context) {
	q, ok := h.query(c, h.et())
	if !ok {
		return
	}
	page, err := h.Svc.Query(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeCollection(h.ODataHandler, c, http.StatusOK, "users", h.et(), page.Items, page.Count, q)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	q, ok := h.query(c, h.et())
	if !ok {
		return
	}
	u, err := h.Svc.Get(c.Request.Context(), id, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writeEntity(c, http.StatusOK, "users", h.et(), u, q)
}

// Create accepts one user or an array of users.
func (h *UserHandler) Create(c *gin.Context) {
	raw, ok := h.body(c)
	if !ok {
		return
	}
	items, many, err := odata.SplitBody(raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	users := make([]*entity.User, len(items))
	for i, item := range items {
		users[i] = &entity.User{}
		if err := odata.DecodeEntity(item, users[i], h.et()); err != nil {
			h.fail(c, err)
			return
		}
	}
	if err := h.Svc.Create(c.Request.Context(), middleware.Principal(c), users); err != nil {
		h.fail(c, err)
		return
	}
	if many {
		created := make([]entity.User, len(users))
		for i, u := range users {
			created[i] = *u
		}
		writeCollection(h.ODataHandler, c, http.StatusCreated, "users", h.et(), created, nil, nil)
		return
	}
	h.writeEntity(c, http.StatusCreated, "users", h.et(), users[0], nil)
}

func (h *UserHandler) Replace(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	raw, ok := h.body(c)
	if !ok {
		return
	}
	var u entity.User
	if err := odata.DecodeEntity(raw, &u, h.et()); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Svc.Replace(c.Request.Context(), middleware.Principal(c), id, &u); err != nil {
		h.fail(c, err)
		return
	}
	h.writeEntity(c, http.StatusOK, "users", h.et(), &u, nil)
}

func (h *UserHandler) Patch(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var delta map[string]any
	if err := c.ShouldBindJSON(&delta); err != nil {
		h.fail(c, invalidBody(err))
		return
	}
	u, err := h.Svc.Patch(c.Request.Context(), middleware.Principal(c), id, delta, h.et())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writeEntity(c, http.StatusOK, "users", h.et(), u, nil)
}

// PatchBulk applies an array of deltas, each carrying its id, atomically.
func (h *UserHandler) PatchBulk(c *gin.Context) {
	raw, ok := h.body(c)
	if !ok {
		return
	}
	deltas, err := odata.DeltaList(raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	users, err := h.Svc.PatchBulk(c.Request.Context(), middleware.Principal(c), deltas, h.et())
	if err != nil {
		h.fail(c, err)
		return
	}
	writeCollection(h.ODataHandler, c, http.StatusOK, "users", h.et(), users, nil, nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Addresses(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	q, ok := h.query(c, h.Version.Addresses)
	if !ok {
		return
	}
	page, err := h.Svc.Addresses(c.Request.Context(), id, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeCollection(h.ODataHandler, c, http.StatusOK, "addresses", h.Version.Addresses, page.Items, page.Count, q)
}

// AddAddressRef links the address named by the body's @odata.id.
func (h *UserHandler) AddAddressRef(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	addressID, err := refTarget(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Svc.LinkAddress(c.Request.Context(), id, addressID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveAddressRef unlinks the address named by $id.
func (h *UserHandler) RemoveAddressRef(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	addressID, err := refTarget(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Svc.UnlinkAddress(c.Request.Context(), id, addressID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Notes(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	notes, err := h.Svc.Notes(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeCollection(h.ODataHandler, c, http.StatusOK, "userNotes", h.Version.UserNotes, notes, nil, nil)
}

func (h *UserHandler) AddNote(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var n entity.UserNote
	if err := c.ShouldBindJSON(&n); err != nil {
		h.fail(c, invalidBody(err))
		return
	}
	if err := h.Svc.AddNote(c.Request.Context(), id, &n); err != nil {
		h.fail(c, err)
		return
	}
	h.writeEntity(c, http.StatusCreated, "userNotes", h.Version.UserNotes, &n, nil)
}

func (h *UserHandler) DeleteNote(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	noteID, ok := h.pathID(c, "noteId")
	if !ok {
		return
	}
	if err := h.Svc.DeleteNote(c.Request.Context(), id, noteID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
