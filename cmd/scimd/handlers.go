package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/tullo/scimd/internal/provision"
	"github.com/tullo/scimd/internal/scim"
)

func ping(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// notFound answers unrouted requests, with 405 and an Allow header when the
// path is served for other methods.
func (app *application) notFound(methods *methodTable) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allow := methods.allowed(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
			app.scimError(w, http.StatusMethodNotAllowed, "", fmt.Sprintf("Method %s is not allowed for %s", r.Method, r.URL.Path))
			return
		}
		app.scimError(w, http.StatusNotFound, "", fmt.Sprintf("Resource %s does not exist", r.URL.Path))
	})
}

// createUser provisions a user and points the Location header at it.
// A directory failure does not change the response.
func (app *application) createUser(w http.ResponseWriter, r *http.Request) {
	var req scim.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			app.scimError(w, http.StatusRequestEntityTooLarge, "", fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		app.scimError(w, http.StatusUnprocessableEntity, scim.InvalidSyntax, err.Error())
		return
	}

	u, err := app.users.Create(r.Context(), &req)
	if err != nil {
		var verr *scim.ValidationError
		if errors.As(err, &verr) {
			app.scimError(w, http.StatusUnprocessableEntity, scim.InvalidValue, verr.Error())
			return
		}
		app.serverError(w, err)
		return
	}

	w.Header().Set("Location", u.Meta.Location)
	app.writeJSON(w, http.StatusCreated, u)
}

func (app *application) showUser(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(":id")

	u, err := app.users.Get(r.Context(), id)
	if err != nil {
		app.userError(w, id, err)
		return
	}

	app.writeJSON(w, http.StatusOK, u)
}

// replaceUser and patchUser answer 501 until updates are supported.
func (app *application) replaceUser(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(":id")

	if err := app.users.Replace(r.Context(), id); err != nil {
		app.userError(w, id, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) patchUser(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(":id")

	if err := app.users.Patch(r.Context(), id); err != nil {
		app.userError(w, id, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(":id")

	if err := app.users.Delete(r.Context(), id); err != nil {
		app.userError(w, id, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// userError maps a provisioning error to its response
func (app *application) userError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, provision.ErrNotFound):
		app.scimError(w, http.StatusNotFound, "", fmt.Sprintf("User %s does not exist", id))
	case errors.Is(err, provision.ErrNotImplemented):
		app.scimError(w, http.StatusNotImplemented, "", "Operation is not supported")
	default:
		app.serverError(w, err)
	}
}
