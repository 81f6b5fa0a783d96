package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeBase(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"127.0.0.1:7410", "http://127.0.0.1:7410"},
		{"http://localhost:7410", "http://localhost:7410"},
		{"https://daybook.example/", "https://daybook.example"},
	}
	for _, tc := range cases {
		if got := normalizeBase(tc.in); got != tc.want {
			t.Errorf("normalizeBase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "-"},
		{30_000, "30s"},
		{90_000, "1m30s"},
		{605_000, "10m05s"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.in); got != tc.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"one"}}, nil)
	if !strings.Contains(out, "one") {
		t.Fatalf("table output missing cell: %s", out)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "job not found"})
	}))
	t.Cleanup(server.Close)

	client := newAPIClient(server.URL)
	_, err := client.JobByID(context.Background(), 42)
	if err == nil || !strings.Contains(err.Error(), "job not found") {
		t.Fatalf("err = %v, want the daemon error message", err)
	}
}

func TestClientJobsByToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs" || r.URL.Query().Get("token") != "tok-1" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobs":[{"jobId":7,"stageId":"stage-1","status":"processing","progress":40}]}`))
	}))
	t.Cleanup(server.Close)

	client := newAPIClient(server.URL)
	jobs, err := client.JobsByToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("jobs by token: %v", err)
	}
	if len(jobs) != 1 || jobs[0].JobID != 7 || jobs[0].Status != "processing" {
		t.Fatalf("jobs = %+v", jobs)
	}
}
