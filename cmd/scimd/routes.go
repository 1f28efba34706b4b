package main

import (
	"context"
	"net/http"
	"sort"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *application) routes() http.Handler {

	// 'standard' middleware used for every request
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders)

	// middleware specific to the SCIM resource routes
	scimMiddleware := alice.New(traceRequest)

	mux := pat.New()
	methods := newMethodTable()
	handle := func(method, pattern string, h http.Handler) {
		mux.Add(method, pattern, h)
		methods.add(method, pattern)
	}

	handle(http.MethodPost, "/Users", scimMiddleware.ThenFunc(app.createUser))
	handle(http.MethodGet, "/Users/:id", scimMiddleware.ThenFunc(app.showUser))
	handle(http.MethodPut, "/Users/:id", scimMiddleware.ThenFunc(app.replaceUser))
	handle(http.MethodPatch, "/Users/:id", scimMiddleware.ThenFunc(app.patchUser))
	handle(http.MethodDelete, "/Users/:id", scimMiddleware.ThenFunc(app.deleteUser))

	handle(http.MethodGet, "/ping", http.HandlerFunc(ping))
	handle(http.MethodGet, "/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	// a custom NotFound replaces pat's 405 handling, so the table answers Allow
	mux.NotFound = app.notFound(methods)

	// standardMiddleware ↔ servemux ↔ scimMiddleware ↔ app handler
	return standardMiddleware.Then(mux)
}

type matchKey struct{}

// methodTable mirrors the registered routes to report which methods a path
// is served for.
type methodTable struct {
	mux     *pat.PatternServeMux
	methods map[string]bool
}

func newMethodTable() *methodTable {
	mux := pat.New()
	mux.NotFound = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	return &methodTable{mux: mux, methods: make(map[string]bool)}
}

func (mt *methodTable) add(method, pattern string) {
	matched := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		*r.Context().Value(matchKey{}).(*bool) = true
	})

	// pat serves HEAD wherever it serves GET
	if method == http.MethodGet {
		mt.mux.Add(http.MethodHead, pattern, matched)
		mt.methods[http.MethodHead] = true
	}
	mt.mux.Add(method, pattern, matched)
	mt.methods[method] = true
}

// allowed returns the sorted methods routed for the request path.
func (mt *methodTable) allowed(r *http.Request) []string {
	var allow []string
	for method := range mt.methods {
		var ok bool
		rc := r.Clone(context.WithValue(r.Context(), matchKey{}, &ok))
		rc.Method = method
		mt.mux.ServeHTTP(nil, rc)
		if ok {
			allow = append(allow, method)
		}
	}
	sort.Strings(allow)
	return allow
}
