package main

import (
	"net/http"
	"testing"

	"finboard/internal/config"
	"finboard/internal/identity"
	"finboard/internal/services/dashboard"
	"finboard/internal/services/storage"
	"finboard/internal/services/store"
	"finboard/internal/testutil"

	"github.com/rs/zerolog"
)

// setupTestServer wires the full router over a temp data directory
func setupTestServer(t *testing.T) *testutil.TestServer {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDirectory = t.TempDir()
	cfg.SessionKey = "test-session-key"

	files, err := storage.New(cfg.DataDirectory)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	users, err := identity.NewManager(files, cfg.SessionKey, cfg.SessionMaxAge)
	if err != nil {
		t.Fatalf("Failed to create identity manager: %v", err)
	}

	log := zerolog.Nop()
	records := store.New(files)
	holder := dashboard.New(records, log)
	t.Cleanup(holder.Close)

	router := buildRouter(cfg, log, users, records, holder)
	return testutil.NewTestServer(t, router)
}

const sampleCSV = `Date,Category,Amount,Description
2024-01-05,Income,3000,Salary
2024-01-10,Groceries,120.50,Market
2024-01-15,Dining Out,45,Swiggy order
2024-02-05,Income,3000,Salary
2024-02-12,Groceries,140,Market
2024-03-01,Rent,900,March rent
`

// TestHealthEndpoint tests the /api/health endpoint
func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.GET("/api/health")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Contains(`"status":"ok"`)
}

// TestProtectedRoutesRequireSession tests the 401 guard
func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := setupTestServer(t)

	for _, path := range []string{"/auth/profile", "/api/periods", "/api/summary", "/api/analysis", "/api/forecast"} {
		resp := ts.GET(path)
		testutil.AssertResponse(t, resp).
			Status(http.StatusUnauthorized).
			ContentTypeJSON().
			Contains("sign in required")
	}
}

// TestLoginUploadSummaryFlow tests the primary user journey end to end
func TestLoginUploadSummaryFlow(t *testing.T) {
	ts := setupTestServer(t)
	ts.SignIn("Asha", "5550001111", "1234")

	resp := ts.GET("/auth/profile")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll(`"name":"Asha"`, `"phone":"5550001111"`).
		NotContains("pin")

	resp = ts.PostCSV("/upload", "statement.csv", sampleCSV)
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll(`"rows":6`, `"replaced":true`)

	var periods struct {
		Years        []int `json:"years"`
		DefaultYear  int   `json:"defaultYear"`
		DefaultMonth int   `json:"defaultMonth"`
	}
	testutil.DecodeJSON(t, ts.GET("/api/periods"), &periods)
	if len(periods.Years) != 1 || periods.Years[0] != 2024 {
		t.Errorf("years = %v, want [2024]", periods.Years)
	}
	// Latest data is March, so the default period is February.
	if periods.DefaultYear != 2024 || periods.DefaultMonth != 2 {
		t.Errorf("default period = %d-%d, want 2024-2", periods.DefaultYear, periods.DefaultMonth)
	}

	resp = ts.GET("/api/summary?scope=monthly&year=2024&month=1")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll(`"income":3000`, `"spent":165.5`, "January 2024")
}

// TestUploadValidation tests upload rejection paths
func TestUploadValidation(t *testing.T) {
	ts := setupTestServer(t)
	ts.SignIn("Asha", "5550001111", "1234")

	resp := ts.PostCSV("/upload", "statement.txt", sampleCSV)
	testutil.AssertResponse(t, resp).
		Status(http.StatusUnprocessableEntity).
		Contains("only .csv files")

	resp = ts.PostCSV("/upload", "broken.csv", "Date,Amount\n2024-01-01,10\n")
	testutil.AssertResponse(t, resp).
		Status(http.StatusUnprocessableEntity).
		ContainsAll("Category", "Description")
}

// TestWrongPINRejected tests re-login with a bad PIN
func TestWrongPINRejected(t *testing.T) {
	ts := setupTestServer(t)
	ts.SignIn("Asha", "5550001111", "1234")

	resp := ts.PostJSON("/auth/login", map[string]string{
		"phone": "5550001111",
		"pin":   "9999",
	})
	testutil.AssertResponse(t, resp).
		Status(http.StatusUnauthorized).
		Contains("incorrect PIN")
}

// TestForecastFlow tests the forecast run endpoint over uploaded data
func TestForecastFlow(t *testing.T) {
	ts := setupTestServer(t)
	ts.SignIn("Asha", "5550001111", "1234")

	resp := ts.PostCSV("/upload", "statement.csv", sampleCSV)
	testutil.AssertResponse(t, resp).StatusOK()

	// The upload is applied to the snapshot asynchronously; touching
	// the snapshot first guarantees the holder is active, then the
	// run endpoint computes over whatever generation is current.
	testutil.ReadBody(t, ts.GET("/api/periods"))

	resp = ts.POST("/api/forecast/run", "application/json", nil)
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains(`"state":"ready"`)

	resp = ts.GET("/api/forecast")
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains(`"state":"ready"`)
}

// TestLogoutClearsSession tests that a signed-out session is rejected
func TestLogoutClearsSession(t *testing.T) {
	ts := setupTestServer(t)
	ts.SignIn("Asha", "5550001111", "1234")

	testutil.AssertResponse(t, ts.GET("/auth/profile")).StatusOK()
	testutil.AssertResponse(t, ts.POST("/auth/logout", "application/json", nil)).StatusOK()
	testutil.AssertResponse(t, ts.GET("/auth/profile")).Status(http.StatusUnauthorized)
}
