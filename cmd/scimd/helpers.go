package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/pkg/errors"

	"github.com/tullo/scimd/internal/scim"
)

// contentType is the media type of every SCIM response body.
const contentType = "application/scim+json"

// maxBodyBytes bounds the size of a request body.
const maxBodyBytes = 1 << 20

func (app *application) serverError(w http.ResponseWriter, err error) {
	trace := fmt.Sprintf("%s\n%s", err.Error(), debug.Stack())
	app.log.Error(trace)

	// when running in debug mode,
	// write detailed errors and stack traces to the http response
	detail := http.StatusText(http.StatusInternalServerError)
	if app.debug {
		detail = trace
	}
	app.scimError(w, http.StatusInternalServerError, "", detail)
}

// scimError writes an error resource with the given status
func (app *application) scimError(w http.ResponseWriter, status int, scimType scim.Type, detail string) {
	app.writeJSON(w, status, scim.NewError(status, scimType, detail))
}

func (app *application) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		app.log.Errorf("encoding response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(b)
}

// decodeJSON reads a size-limited body holding exactly one JSON value into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("request body must hold a single JSON value")
		}
		return err
	}
	return nil
}
