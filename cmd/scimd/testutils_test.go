package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tullo/scimd/internal/cache"
	"github.com/tullo/scimd/internal/directory"
	"github.com/tullo/scimd/internal/provision"
)

const testBaseURL = "https://example.com"

// newTestApplication creates an application struct backed by an in-memory
// cache and the given fake directory connection
func newTestApplication(t *testing.T, conn *directory.FakeConn) (*application, *cache.MemoryStore) {
	store := cache.NewMemoryStore()
	dir := directory.New(conn, "ou=users,dc=example,dc=com")

	metrics := provision.NewMetrics()
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.PrometheusCollectors()...)

	app := application{
		debug:    true,
		log:      zap.NewNop().Sugar(),
		registry: registry,
		users:    provision.New(store, dir, testBaseURL, provision.WithMetrics(metrics)),
	}

	return &app, store
}

type testServer struct {
	*httptest.Server
}

// newTestServer initalizes and returns a new instance of testServer
func newTestServer(t *testing.T, h http.Handler) *testServer {

	// spinup a https server for the duration of the test
	ts := httptest.NewUnstartedServer(h)
	ts.EnableHTTP2 = true
	ts.StartTLS()

	// disabling the default behaviour for redirect-following for the client
	// returning the error forces it to immediately return the received response
	ts.Client().CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &testServer{ts}
}

// get performs a GET request to a given url path on the test server
func (ts *testServer) get(t *testing.T, urlPath string) (int, http.Header, []byte) {
	rs, err := ts.Client().Get(ts.URL + urlPath)
	if err != nil {
		t.Fatal(err)
	}
	defer rs.Body.Close()

	body, err := io.ReadAll(rs.Body)
	if err != nil {
		t.Fatal(err)
	}

	return rs.StatusCode, rs.Header, body
}

// postJSON sends a POST request with a JSON body to the test server
func (ts *testServer) postJSON(t *testing.T, urlPath string, payload []byte) (int, http.Header, []byte) {
	rs, err := ts.Client().Post(ts.URL+urlPath, "application/scim+json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer rs.Body.Close()

	body, err := io.ReadAll(rs.Body)
	if err != nil {
		t.Fatal(err)
	}

	return rs.StatusCode, rs.Header, body
}

// do sends a request with the given method and optional body to the test server
func (ts *testServer) do(t *testing.T, method, urlPath string, payload []byte) (int, http.Header, []byte) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, ts.URL+urlPath, rd)
	if err != nil {
		t.Fatal(err)
	}

	rs, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer rs.Body.Close()

	body, err := io.ReadAll(rs.Body)
	if err != nil {
		t.Fatal(err)
	}

	return rs.StatusCode, rs.Header, body
}
