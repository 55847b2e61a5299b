package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-odata-api/internal/application"
	"github.com/oksasatya/go-odata-api/internal/domain/entity"
	"github.com/oksasatya/go-odata-api/internal/interface/middleware"
	"github.com/oksasatya/go-odata-api/internal/odata"
)

type AddressHandler struct {
	*ODataHandler
	Svc *application.AddressService
}

func NewAddressHandler(base *ODataHandler, svc *application.AddressService) *AddressHandler {
	return &AddressHandler{ODataHandler: base, Svc: svc}
}

func (h *AddressHandler) et() *odata.EntityType { return h.Version.Addresses }

func (h *AddressHandler) List(c *gin.Context) {
	q, ok := h.query(c, h.et())
	if !ok {
		return
	}
	page, err := h.Svc.Query(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeCollection(h.ODataHandler, c, http.StatusOK, "addresses", h.et(), page.Items, page.Count, q)
}

func (h *AddressHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	q, ok := h.query(c, h.et())
	if !ok {
		return
	}
	a, err := h.Svc.Get(c.Request.Context(), id, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writeEntity(c, http.StatusOK, "addresses", h.et(), a, q)
}

func (h *AddressHandler) decodeAll(c *gin.Context) ([]*entity.Address, bool, bool) {
	raw, ok := h.body(c)
	if !ok {
		return nil, false, false
	}
	items, many, err := odata.SplitBody(raw)
	if err != nil {
		h.fail(c, err)
		return nil, false, false
	}
	addrs := make([]*entity.Address, len(items))
	for i, item := range items {
		addrs[i] = &entity.Address{}
		if err := odata.DecodeEntity(item, addrs[i], h.et()); err != nil {
			h.fail(c, err)
			return nil, false, false
		}
	}
	return addrs, many, true
}

func values(addrs []*entity.Address) []entity.Address {
	out := make([]entity.Address, len(addrs))
	for i, a := range addrs {
		out[i] = *a
	}
	return out
}

// Create accepts one address or an array of addresses.
func (h *AddressHandler) Create(c *gin.Context) {
	addrs, many, ok := h.decodeAll(c)
	if !ok {
		return
	}
	if err := h.Svc.Create(c.Request.Context(), middleware.Principal(c), addrs); err != nil {
		h.fail(c, err)
		return
	}
	if many {
		writeCollection(h.ODataHandler, c, http.StatusCreated, "addresses", h.et(), values(addrs), nil, nil)
		return
	}
	h.writeEntity(c, http.StatusCreated, "addresses", h.et(), addrs[0], nil)
}

func (h *AddressHandler) Replace(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	raw, ok := h.body(c)
	if !ok {
		return
	}
	var a entity.Address
	if err := odata.DecodeEntity(raw, &a, h.et()); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Svc.Replace(c.Request.Context(), middleware.Principal(c), id, &a); err != nil {
		h.fail(c, err)
		return
	}
	h.writeEntity(c, http.StatusOK, "addresses", h.et(), &a, nil)
}

// ReplaceBulk fully replaces an array of existing addresses.
func (h *AddressHandler) ReplaceBulk(c *gin.Context) {
	addrs, _, ok := h.decodeAll(c)
	if !ok {
		return
	}
	if err := h.Svc.ReplaceBulk(c.Request.Context(), middleware.Principal(c), addrs); err != nil {
		h.fail(c, err)
		return
	}
	writeCollection(h.ODataHandler, c, http.StatusOK, "addresses", h.et(), values(addrs), nil, nil)
}

func (h *AddressHandler) Patch(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var delta map[string]any
	if err := c.ShouldBindJSON(&delta); err != nil {
		h.fail(c, invalidBody(err))
		return
	}
	a, err := h.Svc.Patch(c.Request.Context(), middleware.Principal(c), id, delta, h.et())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writeEntity(c, http.StatusOK, "addresses", h.et(), a, nil)
}

func (h *AddressHandler) PatchBulk(c *gin.Context) {
	raw, ok := h.body(c)
	if !ok {
		return
	}
	deltas, err := odata.DeltaList(raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	addrs, err := h.Svc.PatchBulk(c.Request.Context(), middleware.Principal(c), deltas, h.et())
	if err != nil {
		h.fail(c, err)
		return
	}
	writeCollection(h.ODataHandler, c, http.StatusOK, "addresses", h.et(), addrs, nil, nil)
}

func (h *AddressHandler) Delete(c *gin.Context) {
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

func (h *AddressHandler) Users(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	q, ok := h.query(c, h.Version.Users)
	if !ok {
		return
	}
	page, err := h.Svc.Users(c.Request.Context(), id, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeCollection(h.ODataHandler, c, http.StatusOK, "users", h.Version.Users, page.Items, page.Count, q)
}

func (h *AddressHandler) AddUserRef(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	userID, err := refTarget(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Svc.LinkUser(c.Request.Context(), id, userID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AddressHandler) RemoveUserRef(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	userID, err := refTarget(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Svc.UnlinkUser(c.Request.Context(), id, userID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AddressHandler) Notes(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	notes, err := h.Svc.Notes(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeCollection(h.ODataHandler, c, http.StatusOK, "addressNotes", h.Version.AddressNotes, notes, nil, nil)
}

func (h *AddressHandler) AddNote(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var n entity.AddressNote
	if err := c.ShouldBindJSON(&n); err != nil {
		h.fail(c, invalidBody(err))
		return
	}
	if err := h.Svc.AddNote(c.Request.Context(), id, &n); err != nil {
		h.fail(c, err)
		return
	}
	h.writeEntity(c, http.StatusCreated, "addressNotes", h.Version.AddressNotes, &n, nil)
}

func (h *AddressHandler) DeleteNote(c *gin.Context) {
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
