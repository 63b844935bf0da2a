package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRouterMetricsEndpoint(t *testing.T) {
	router := testRouter(&mockOrchestrator{}, testCache(&stubQuotes{}))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := testRouter(&mockOrchestrator{}, testCache(&stubQuotes{}))

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router := testRouter(&mockOrchestrator{}, testCache(&stubQuotes{}))

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for preflight, got %d", w.Code)
	}
	if origin := w.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected wildcard origin, got %q", origin)
	}
	if methods := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(methods, "POST") {
		t.Errorf("expected POST in allowed methods, got %q", methods)
	}
}
