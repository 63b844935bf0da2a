package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetFundamentals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/equity-meta-info" || r.URL.Query().Get("symbol") != "INFY" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(Fundamentals{
			Symbol:      "INFY",
			CompanyName: "Infosys",
			Sector:      "Information Technology",
			MarketCap:   "6000000000000",
			PERatio:     24.8,
			ROE:         31.2,
			RSI:         55.4,
		})
	}))
	defer server.Close()

	client := NewFundamentalsClient(server.URL, "")
	f, err := client.GetFundamentals(context.Background(), "INFY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Sector != "Information Technology" {
		t.Errorf("Sector = %q", f.Sector)
	}
	if f.PERatio != 24.8 {
		t.Errorf("PERatio = %f", f.PERatio)
	}
	if f.RSI != 55.4 {
		t.Errorf("RSI = %f", f.RSI)
	}
}

func TestGetFundamentalsMissingSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Fundamentals{})
	}))
	defer server.Close()

	client := NewFundamentalsClient(server.URL, "")
	if _, err := client.GetFundamentals(context.Background(), "NOSUCH"); err == nil {
		t.Error("expected error for empty payload")
	}
}
