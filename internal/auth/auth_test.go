// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bazaarhq/settlement/internal/config"
	"github.com/bazaarhq/settlement/internal/logging"
)

//nolint:gochecknoinits // silence log output during tests
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T, timeout time.Duration) *JWTManager {
	t.Helper()
	mgr, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      testSecret,
		SessionTimeout: timeout,
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return mgr
}

func TestGenerateAndValidateToken(t *testing.T) {
	mgr := newTestManager(t, time.Hour)

	token, err := mgr.GenerateToken("cust-1", RoleCustomer)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.CustomerID != "cust-1" {
		t.Errorf("CustomerID = %q, want cust-1", claims.CustomerID)
	}
	if claims.Role != RoleCustomer {
		t.Errorf("Role = %q, want %q", claims.Role, RoleCustomer)
	}
}

func TestValidateTokenRejections(t *testing.T) {
	mgr := newTestManager(t, time.Hour)

	expiredMgr := newTestManager(t, -time.Minute)
	expired, err := expiredMgr.GenerateToken("cust-1", RoleCustomer)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	otherMgr, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "another-secret-another-secret-32",
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	wrongSecret, err := otherMgr.GenerateToken("cust-1", RoleCustomer)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"expired", expired},
		{"wrong secret", wrongSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mgr.ValidateToken(tt.token); err == nil {
				t.Error("ValidateToken accepted, want rejection")
			}
		})
	}
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Error("NewJWTManager accepted empty secret")
	}
}

func claimsEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Error("no claims in handler context")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("X-Test-Customer", claims.CustomerID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateMiddleware(t *testing.T) {
	mgr := newTestManager(t, time.Hour)
	mw := NewMiddleware(mgr, "jwt")
	handler := mw.Authenticate(claimsEcho(t))

	token, err := mgr.GenerateToken("cust-1", RoleCustomer)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if got := rec.Header().Get("X-Test-Customer"); got != "cust-1" {
			t.Errorf("customer = %q, want cust-1", got)
		}
	})

	t.Run("query parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws?access_token="+token, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestAuthenticateModeNone(t *testing.T) {
	mw := NewMiddleware(nil, "none")
	handler := mw.Authenticate(claimsEcho(t))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("X-Customer-ID", "cust-dev")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Test-Customer"); got != "cust-dev" {
		t.Errorf("customer = %q, want cust-dev", got)
	}
}

func TestRequireRole(t *testing.T) {
	mgr := newTestManager(t, time.Hour)
	mw := NewMiddleware(mgr, "jwt")
	handler := mw.Authenticate(RequireRole(RoleAdmin)(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
	)))

	adminToken, err := mgr.GenerateToken("admin-1", RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	customerToken, err := mgr.GenerateToken("cust-1", RoleCustomer)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"admin allowed", adminToken, http.StatusOK},
		{"customer forbidden", customerToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/orders/1/status", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
