package fabric

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/astlabs/run-portal/internal/config"
)

func TestParseJobLocation(t *testing.T) {
	loc := "https://api.fabric.microsoft.com/v1/workspaces/ws-42/items/nb-7/jobs/instances/inst-9"
	parsed, err := ParseJobLocation(loc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.JobInstanceID != "inst-9" {
		t.Fatalf("unexpected instance id %q", parsed.JobInstanceID)
	}
	if parsed.JobWorkspaceID != "ws-42" {
		t.Fatalf("unexpected workspace id %q", parsed.JobWorkspaceID)
	}
	if parsed.Location != loc {
		t.Fatalf("unexpected location %q", parsed.Location)
	}
}

func TestParseJobLocationMalformed(t *testing.T) {
	cases := []string{
		"",
		"https://example.com/nothing-useful",
		"https://example.com/workspaces/ws-1/items/nb-1", // no instance segment
		"/jobs/instances/inst-1",                         // no workspace segment
	}
	for _, loc := range cases {
		_, err := ParseJobLocation(loc)
		if err == nil {
			t.Fatalf("expected error for %q", loc)
		}
		var malformed *MalformedResponseError
		if !errors.As(err, &malformed) {
			t.Fatalf("expected MalformedResponseError for %q, got %v", loc, err)
		}
	}
}

func TestFormatParams(t *testing.T) {
	params := map[string]any{
		"name":    "weekly run",
		"dryRun":  true,
		"size":    float64(4096), // JSON numbers decode as float64
		"ratio":   2.5,
		"count":   7,
		"payload": map[string]any{"k": "v"},
		"note":    nil,
	}

	got := FormatParams(params)

	expectType := map[string]string{
		"name":    "string",
		"dryRun":  "bool",
		"size":    "int",
		"ratio":   "float",
		"count":   "int",
		"payload": "string",
		"note":    "string",
	}
	for key, wantType := range expectType {
		p, ok := got[key]
		if !ok {
			t.Fatalf("missing param %q", key)
		}
		if p.Type != wantType {
			t.Fatalf("param %q: type %q, want %q", key, p.Type, wantType)
		}
	}

	if got["payload"].Value != `{"k":"v"}` {
		t.Fatalf("expected compound value to be JSON-encoded, got %v", got["payload"].Value)
	}
}

func testConfig(loginURL, apiURL string) config.FabricConfig {
	return config.FabricConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TenantID:     "tenant-id",
		WorkspaceID:  "ws-1",
		NotebookID:   "nb-1",
		APIBaseURL:   apiURL,
		LoginBaseURL: loginURL,
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	cfg := testConfig("http://login", "http://api")
	cfg.ClientSecret = ""
	if _, err := NewClient(cfg); err == nil {
		t.Fatalf("expected error for missing credentials")
	}

	cfg = testConfig("http://login", "http://api")
	cfg.NotebookID = ""
	if _, err := NewClient(cfg); err == nil {
		t.Fatalf("expected error for missing notebook id")
	}
}

func TestRunNotebook(t *testing.T) {
	var tokenCalls, jobCalls int

	login := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if r.Method != http.MethodPost {
			t.Errorf("token request method = %s", r.Method)
		}
		if !strings.HasPrefix(r.URL.Path, "/tenant-id/oauth2/v2.0/token") {
			t.Errorf("unexpected token path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer login.Close()

	jobAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jobCalls++
		if tokenCalls == 0 {
			t.Errorf("job submitted before token exchange")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q", got)
		}
		if r.URL.Path != "/workspaces/ws-1/items/nb-1/jobs/instances" {
			t.Errorf("unexpected job path %s", r.URL.Path)
		}
		if r.URL.Query().Get("jobType") != "RunNotebook" {
			t.Errorf("missing jobType query param")
		}

		var body struct {
			ExecutionData struct {
				Parameters    map[string]Param `json:"parameters"`
				Configuration struct {
					UseStarterPool bool `json:"useStarterPool"`
				} `json:"configuration"`
			} `json:"executionData"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode job body: %v", err)
		}
		if body.ExecutionData.Configuration.UseStarterPool {
			t.Errorf("expected useStarterPool=false")
		}
		if body.ExecutionData.Parameters["runID"].Value != "run-1" {
			t.Errorf("unexpected runID param: %+v", body.ExecutionData.Parameters["runID"])
		}

		w.Header().Set("Location", "https://api.example.com/v1/workspaces/ws-1/items/nb-1/jobs/instances/inst-1")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer jobAPI.Close()

	client, err := NewClient(testConfig(login.URL, jobAPI.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.RunNotebook(context.Background(), map[string]any{
		"runID":   "run-1",
		"runName": "weekly",
	})
	if err != nil {
		t.Fatalf("run notebook: %v", err)
	}

	if tokenCalls != 1 || jobCalls != 1 {
		t.Fatalf("expected one token and one job call, got %d and %d", tokenCalls, jobCalls)
	}
	if result.JobInstanceID != "inst-1" || result.JobWorkspaceID != "ws-1" {
		t.Fatalf("unexpected identifiers: %+v", result.JobLocation)
	}
	if string(result.RawBody) != `{"status":"accepted"}` {
		t.Fatalf("unexpected raw body %q", result.RawBody)
	}
}

func TestRunNotebookTokenFailure(t *testing.T) {
	login := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer login.Close()

	jobCalled := false
	jobAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jobCalled = true
	}))
	defer jobAPI.Close()

	client, err := NewClient(testConfig(login.URL, jobAPI.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.RunNotebook(context.Background(), map[string]any{"runID": "r"}); err == nil {
		t.Fatalf("expected token failure to abort submission")
	}
	if jobCalled {
		t.Fatalf("job API must not be called when token exchange fails")
	}
}

func TestRunNotebookJobFailure(t *testing.T) {
	login := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "Bearer"})
	}))
	defer login.Close()

	jobAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer jobAPI.Close()

	client, err := NewClient(testConfig(login.URL, jobAPI.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.RunNotebook(context.Background(), map[string]any{"runID": "r"}); err == nil {
		t.Fatalf("expected job failure to surface")
	}
}

func TestRunNotebookMissingLocation(t *testing.T) {
	login := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "Bearer"})
	}))
	defer login.Close()

	jobAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted) // no Location header
	}))
	defer jobAPI.Close()

	client, err := NewClient(testConfig(login.URL, jobAPI.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.RunNotebook(context.Background(), map[string]any{"runID": "r"})
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}
