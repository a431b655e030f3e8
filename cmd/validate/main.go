// Package main provides a CLI tool for validating a running dashboard
// server. It signs in with a throwaway profile, walks the API, and
// checks every response is well-formed JSON.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"
)

type endpoint struct {
	path     string
	method   string
	wantCode int
	contains []string
}

var endpoints = []endpoint{
	{path: "/api/health", method: "GET", wantCode: http.StatusOK, contains: []string{`"status":"ok"`}},
	{path: "/auth/profile", method: "GET", wantCode: http.StatusOK, contains: []string{`"phone"`}},
	{path: "/api/periods", method: "GET", wantCode: http.StatusOK, contains: []string{`"years"`}},
	{path: "/api/summary", method: "GET", wantCode: http.StatusOK, contains: []string{`"totals"`, `"health"`, `"waste"`}},
	{path: "/api/analysis", method: "GET", wantCode: http.StatusOK, contains: []string{`"transactions"`, `"breakdown"`}},
	{path: "/api/forecast", method: "GET", wantCode: http.StatusOK, contains: []string{`"state"`}},
	{path: "/api/summary?scope=bogus", method: "GET", wantCode: http.StatusBadRequest, contains: []string{`"error"`}},
}

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	err      error
}

func main() {
	url := flag.String("url", "http://localhost:8080", "Base URL of the server to validate")
	phone := flag.String("phone", "0000000000", "Phone number for the validation profile")
	pin := flag.String("pin", "0000", "PIN for the validation profile")
	verbose := flag.Bool("v", false, "Verbose output")
	timeout := flag.Int("timeout", 10, "Request timeout in seconds")
	flag.Parse()

	jar, err := cookiejar.New(nil)
	if err != nil {
		fmt.Printf("FAIL creating cookie jar: %v\n", err)
		os.Exit(1)
	}
	client := &http.Client{
		Timeout: time.Duration(*timeout) * time.Second,
		Jar:     jar,
	}

	fmt.Printf("Validating server at %s\n", *url)

	if err := signIn(client, *url, *phone, *pin); err != nil {
		fmt.Printf("FAIL POST /auth/login\n     Error: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		fmt.Println("PASS POST /auth/login")
	}

	fmt.Printf("Testing %d endpoints...\n\n", len(endpoints))

	var passed, failed int
	for _, ep := range endpoints {
		r := validateEndpoint(client, *url, ep)

		if r.err != nil {
			failed++
			fmt.Printf("FAIL %s %s\n", ep.method, ep.path)
			fmt.Printf("     Error: %v\n", r.err)
		} else {
			passed++
			if *verbose {
				fmt.Printf("PASS %s %s (%v)\n", ep.method, ep.path, r.duration)
			}
		}
	}

	fmt.Printf("\n========================================\n")
	fmt.Printf("Results: %d passed, %d failed\n", passed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func signIn(client *http.Client, baseURL, phone, pin string) error {
	payload, _ := json.Marshal(map[string]string{
		"name":  "Validation",
		"phone": phone,
		"bank":  "Validation Bank",
		"pin":   pin,
	})
	resp, err := client.Post(baseURL+"/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	return nil
}

func validateEndpoint(client *http.Client, baseURL string, ep endpoint) result {
	start := time.Now()

	req, err := http.NewRequest(ep.method, baseURL+ep.path, nil)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to read body: %w", err)}
	}

	r := result{
		endpoint: ep,
		status:   resp.StatusCode,
		duration: time.Since(start),
	}

	if resp.StatusCode != ep.wantCode {
		r.err = fmt.Errorf("status %d (expected %d)", resp.StatusCode, ep.wantCode)
		return r
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		r.err = fmt.Errorf("wrong content type: got %q, expected JSON", ct)
		return r
	}
	var js interface{}
	if err := json.Unmarshal(body, &js); err != nil {
		r.err = fmt.Errorf("invalid JSON: %w", err)
		return r
	}

	for _, needle := range ep.contains {
		if !strings.Contains(string(body), needle) {
			r.err = fmt.Errorf("missing expected content: %q", needle)
			return r
		}
	}

	return r
}
