package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Access is the authorization a route needs.
type Access int

const (
	Public Access = iota
	// Authenticated routes reject anonymous callers.
	Authenticated
	// Admin routes also require the admin role.
	Admin
)

// Route is one OData operation relative to a service root. The same table
// registers gin routes and generates the swagger document.
type Route struct {
	Method    string
	Path      string
	Tag       string
	Summary   string
	Entity    string // schema of the target entity
	Body      string // request body kind: "", "entity", "entities", "delta", "deltas", "ref", "note"
	Many      bool   // the response is a collection
	Queryable bool
	Status    int
	Access    Access
	Handler   gin.HandlerFunc
}

// RouteOptions selects the access rules of the table.
type RouteOptions struct {
	AuthRequiredForWrites bool
	// AuthenticatedAddressReads guards address reads; v1 requires it.
	AuthenticatedAddressReads bool
}

func write(opts RouteOptions) Access {
	if opts.AuthRequiredForWrites {
		return Authenticated
	}
	return Public
}

// ODataRoutes lists the entity set operations served under one service root.
func ODataRoutes(u *UserHandler, a *AddressHandler, opts RouteOptions) []Route {
	w := write(opts)
	read := Public
	if opts.AuthenticatedAddressReads {
		read = Authenticated
	}
	return []Route{
		{Method: http.MethodGet, Path: "/users", Tag: "users", Summary: "Query users", Entity: "User", Many: true, Queryable: true, Status: http.StatusOK, Handler: u.List},
		{Method: http.MethodPost, Path: "/users", Tag: "users", Summary: "Create one user or an array of users", Entity: "User", Body: "entities", Status: http.StatusCreated, Access: w, Handler: u.Create},
		{Method: http.MethodPatch, Path: "/users", Tag: "users", Summary: "Apply deltas to many users in one transaction", Entity: "User", Body: "deltas", Many: true, Status: http.StatusOK, Access: w, Handler: u.PatchBulk},
		{Method: http.MethodGet, Path: "/users/:id", Tag: "users", Summary: "Get a user", Entity: "User", Queryable: true, Status: http.StatusOK, Handler: u.Get},
		{Method: http.MethodPut, Path: "/users/:id", Tag: "users", Summary: "Replace a user", Entity: "User", Body: "entity", Status: http.StatusOK, Access: w, Handler: u.Replace},
		{Method: http.MethodPatch, Path: "/users/:id", Tag: "users", Summary: "Apply a delta to a user", Entity: "User", Body: "delta", Status: http.StatusOK, Access: w, Handler: u.Patch},
		{Method: http.MethodDelete, Path: "/users/:id", Tag: "users", Summary: "Delete a user", Status: http.StatusNoContent, Access: Admin, Handler: u.Delete},
		{Method: http.MethodGet, Path: "/users/:id/addresses", Tag: "users", Summary: "Query the addresses of a user", Entity: "Address", Many: true, Queryable: true, Status: http.StatusOK, Access: read, Handler: u.Addresses},
		{Method: http.MethodPost, Path: "/users/:id/addresses/$ref", Tag: "users", Summary: "Associate an address with a user", Body: "ref", Status: http.StatusNoContent, Access: w, Handler: u.AddAddressRef},
		{Method: http.MethodDelete, Path: "/users/:id/addresses/$ref", Tag: "users", Summary: "Remove the association of an address", Status: http.StatusNoContent, Access: Admin, Handler: u.RemoveAddressRef},
		{Method: http.MethodGet, Path: "/users/:id/notes", Tag: "users", Summary: "List the notes of a user", Entity: "UserNote", Many: true, Status: http.StatusOK, Handler: u.Notes},
		{Method: http.MethodPost, Path: "/users/:id/notes", Tag: "users", Summary: "Add a note to a user", Entity: "UserNote", Body: "note", Status: http.StatusCreated, Access: w, Handler: u.AddNote},
		{Method: http.MethodDelete, Path: "/users/:id/notes/:noteId", Tag: "users", Summary: "Delete a note of a user", Status: http.StatusNoContent, Access: w, Handler: u.DeleteNote},

		{Method: http.MethodGet, Path: "/addresses", Tag: "addresses", Summary: "Query addresses", Entity: "Address", Many: true, Queryable: true, Status: http.StatusOK, Access: read, Handler: a.List},
		{Method: http.MethodPost, Path: "/addresses", Tag: "addresses", Summary: "Create one address or an array of addresses", Entity: "Address", Body: "entities", Status: http.StatusCreated, Access: w, Handler: a.Create},
		{Method: http.MethodPut, Path: "/addresses", Tag: "addresses", Summary: "Replace many existing addresses", Entity: "Address", Body: "entities", Many: true, Status: http.StatusOK, Access: w, Handler: a.ReplaceBulk},
		{Method: http.MethodPatch, Path: "/addresses", Tag: "addresses", Summary: "Apply deltas to many addresses in one transaction", Entity: "Address", Body: "deltas", Many: true, Status: http.StatusOK, Access: w, Handler: a.PatchBulk},
		{Method: http.MethodGet, Path: "/addresses/:id", Tag: "addresses", Summary: "Get an address", Entity: "Address", Queryable: true, Status: http.StatusOK, Access: read, Handler: a.Get},
		{Method: http.MethodPut, Path: "/addresses/:id", Tag: "addresses", Summary: "Replace an address", Entity: "Address", Body: "entity", Status: http.StatusOK, Access: w, Handler: a.Replace},
		{Method: http.MethodPatch, Path: "/addresses/:id", Tag: "addresses", Summary: "Apply a delta to an address", Entity: "Address", Body: "delta", Status: http.StatusOK, Access: w, Handler: a.Patch},
		{Method: http.MethodDelete, Path: "/addresses/:id", Tag: "addresses", Summary: "Delete an address", Status: http.StatusNoContent, Access: Admin, Handler: a.Delete},
		{Method: http.MethodGet, Path: "/addresses/:id/users", Tag: "addresses", Summary: "Query the users of an address", Entity: "User", Many: true, Queryable: true, Status: http.StatusOK, Access: read, Handler: a.Users},
		{Method: http.MethodPost, Path: "/addresses/:id/users/$ref", Tag: "addresses", Summary: "Associate a user with an address", Body: "ref", Status: http.StatusNoContent, Access: w, Handler: a.AddUserRef},
		{Method: http.MethodDelete, Path: "/addresses/:id/users/$ref", Tag: "addresses", Summary: "Remove the association of a user", Status: http.StatusNoContent, Access: Admin, Handler: a.RemoveUserRef},
		{Method: http.MethodGet, Path: "/addresses/:id/notes", Tag: "addresses", Summary: "List the notes of an address", Entity: "AddressNote", Many: true, Status: http.StatusOK, Access: read, Handler: a.Notes},
		{Method: http.MethodPost, Path: "/addresses/:id/notes", Tag: "addresses", Summary: "Add a note to an address", Entity: "AddressNote", Body: "note", Status: http.StatusCreated, Access: w, Handler: a.AddNote},
		{Method: http.MethodDelete, Path: "/addresses/:id/notes/:noteId", Tag: "addresses", Summary: "Delete a note of an address", Status: http.StatusNoContent, Access: w, Handler: a.DeleteNote},
	}
}
