// Package testutil provides testing utilities for the dashboard server.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
)

// TestServer wraps httptest.Server with a cookie-keeping client so a
// sign-in in one request carries into the next.
type TestServer struct {
	Server  *httptest.Server
	BaseURL string
	Client  *http.Client
	t       *testing.T
}

// NewTestServer starts a test server around the application's router.
func NewTestServer(t *testing.T, router http.Handler) *TestServer {
	t.Helper()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("creating cookie jar: %v", err)
	}

	return &TestServer{
		Server:  server,
		BaseURL: server.URL,
		Client:  &http.Client{Jar: jar},
		t:       t,
	}
}

// GET performs a GET request to the given path
func (ts *TestServer) GET(path string) *http.Response {
	ts.t.Helper()

	resp, err := ts.Client.Get(ts.BaseURL + path)
	if err != nil {
		ts.t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

// POST performs a POST request to the given path
func (ts *TestServer) POST(path string, contentType string, body io.Reader) *http.Response {
	ts.t.Helper()

	resp, err := ts.Client.Post(ts.BaseURL+path, contentType, body)
	if err != nil {
		ts.t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

// PostJSON performs a POST request with a JSON-encoded payload
func (ts *TestServer) PostJSON(path string, payload any) *http.Response {
	ts.t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		ts.t.Fatalf("encoding payload for %s: %v", path, err)
	}
	return ts.POST(path, "application/json", bytes.NewReader(body))
}

// PostCSV performs a multipart POST carrying a CSV file field
func (ts *TestServer) PostCSV(path, filename, content string) *http.Response {
	ts.t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		ts.t.Fatalf("creating form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		ts.t.Fatalf("writing form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		ts.t.Fatalf("closing multipart writer: %v", err)
	}
	return ts.POST(path, writer.FormDataContentType(), &buf)
}

// SignIn registers or authenticates a user and keeps the session cookie
func (ts *TestServer) SignIn(name, phone, pin string) {
	ts.t.Helper()

	resp := ts.PostJSON("/auth/login", map[string]string{
		"name":  name,
		"phone": phone,
		"bank":  "Test Bank",
		"pin":   pin,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		ts.t.Fatalf("sign-in failed with %d: %s", resp.StatusCode, body)
	}
}

// DecodeJSON decodes a response body into dst and closes it
func DecodeJSON(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}

// ReadBody reads and returns the response body as a string
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}
