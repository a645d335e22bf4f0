// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestPrometheusMetrics(t *testing.T) {
	t.Parallel()

	t.Run("passes through status and body", func(t *testing.T) {
		t.Parallel()
		handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte("created"))
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201", rec.Code)
		}
		if rec.Body.String() != "created" {
			t.Errorf("body = %q", rec.Body.String())
		}
	})

	t.Run("records error responses", func(t *testing.T) {
		t.Parallel()
		handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("defaults to 200 when WriteHeader not called", func(t *testing.T) {
		t.Parallel()
		handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("ok"))
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("works inside a chi router", func(t *testing.T) {
		t.Parallel()
		r := chi.NewRouter()
		r.Use(PrometheusMetrics)
		r.Get("/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/orders/abc-123", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestMetricsResponseWriter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	wrapper := &metricsResponseWriter{
		ResponseWriter: rec,
		statusCode:     http.StatusOK,
	}

	wrapper.Header().Set("Content-Type", "application/json")
	wrapper.WriteHeader(http.StatusNotFound)
	n, err := wrapper.Write([]byte("missing"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 7 {
		t.Errorf("wrote %d bytes, want 7", n)
	}

	if wrapper.statusCode != http.StatusNotFound {
		t.Errorf("captured status = %d, want 404", wrapper.statusCode)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("underlying status = %d, want 404", rec.Code)
	}
	if rec.Body.String() != "missing" {
		t.Errorf("body = %q", rec.Body.String())
	}
}
