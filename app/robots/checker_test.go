package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testRobots = `User-agent: *
Disallow: /private/

User-agent: BadBot
Disallow: /
`

func TestCheckAccess(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			t.Errorf("Unexpected request path: %s", r.URL.Path)
		}
		hits++
		w.Write([]byte(testRobots))
	}))
	defer server.Close()

	checker := NewChecker(server.Client(), "Event Comb/1.0")

	allowed, err := checker.CheckAccess(context.Background(), server.URL+"/events/mumbai")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !allowed {
		t.Error("Expected /events/mumbai to be allowed")
	}

	allowed, err = checker.CheckAccess(context.Background(), server.URL+"/private/admin")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if allowed {
		t.Error("Expected /private/admin to be disallowed")
	}

	if hits != 1 {
		t.Errorf("Expected a single robots.txt fetch for the host, got %d", hits)
	}
}

func TestCheckAccessMissingRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewChecker(server.Client(), "Event Comb/1.0")

	allowed, err := checker.CheckAccess(context.Background(), server.URL+"/events")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !allowed {
		t.Error("Expected access allowed when robots.txt is missing")
	}
}

func TestCheckAccessForbiddenRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	checker := NewChecker(server.Client(), "Event Comb/1.0")

	allowed, err := checker.CheckAccess(context.Background(), server.URL+"/events")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if allowed {
		t.Error("Expected access disallowed when robots.txt returns 403")
	}
}

func TestCheckAccessRelativeURL(t *testing.T) {
	checker := NewChecker(nil, "Event Comb/1.0")

	if _, err := checker.CheckAccess(context.Background(), "/events/mumbai"); err == nil {
		t.Error("Expected error for a relative URL")
	}
}
