package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cloakd/cloakd/internal/config"
	"github.com/cloakd/cloakd/internal/engine"
	"github.com/cloakd/cloakd/internal/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng, err := engine.New(engine.DefaultConfig(), logger.Nop().Logger)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return New(config.GetDefaults(), eng, logger.Nop(), Options{})
}

func postJSON(t *testing.T, s *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleAnonymize(t *testing.T) {
	s := newTestServer(t)

	t.Run("DefaultEngine", func(t *testing.T) {
		rec := postJSON(t, s, "/v1/anonymize", AnonymizeRequest{
			Text: "Contact Jane Doe at jane.doe@example.com",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var result engine.Result
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if result.Summary[engine.EntityEmail] != 1 || result.Summary[engine.EntityPerson] != 1 {
			t.Errorf("summary = %v", result.Summary)
		}
		if strings.Contains(result.AnonymizedText, "jane.doe@example.com") {
			t.Errorf("raw email in response: %q", result.AnonymizedText)
		}
	})

	t.Run("RequestScopedConfig", func(t *testing.T) {
		rec := postJSON(t, s, "/v1/anonymize", AnonymizeRequest{
			Text: "Mail jane.doe@example.com",
			Config: map[string]interface{}{
				"entities": map[string]interface{}{
					"email": map[string]interface{}{"strategy": "redact"},
				},
			},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		var result engine.Result
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !strings.Contains(result.AnonymizedText, "[REDACTED:EMAIL]") {
			t.Errorf("anonymized = %q", result.AnonymizedText)
		}
	})

	t.Run("RepairedConfigStillServes", func(t *testing.T) {
		// Malformed rule fields are repaired, not rejected.
		rec := postJSON(t, s, "/v1/anonymize", AnonymizeRequest{
			Text: "Mail jane.doe@example.com",
			Config: map[string]interface{}{
				"entities": map[string]interface{}{
					"email": map[string]interface{}{"confidence": 99},
				},
			},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("RequestDictionaryPathsIgnored", func(t *testing.T) {
		// Dictionary paths name local files; a remote caller must not be
		// able to make the server open them or learn whether they exist.
		for _, key := range []string{"dictionaryPaths", "dictionary_paths"} {
			rec := postJSON(t, s, "/v1/anonymize", AnonymizeRequest{
				Text: "Mail jane.doe@example.com",
				Config: map[string]interface{}{
					key: []string{"/nonexistent/names.txt"},
				},
			})
			if rec.Code != http.StatusOK {
				t.Fatalf("%s: status = %d, body = %s", key, rec.Code, rec.Body.String())
			}
			var result engine.Result
			if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if strings.Contains(result.AnonymizedText, "jane.doe@example.com") {
				t.Errorf("%s: raw email in response: %q", key, result.AnonymizedText)
			}
			if strings.Contains(rec.Body.String(), "/nonexistent/names.txt") {
				t.Errorf("%s: supplied path echoed in response", key)
			}
		}
	})

	t.Run("InvalidBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/anonymize", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("EmptyText", func(t *testing.T) {
		rec := postJSON(t, s, "/v1/anonymize", AnonymizeRequest{Text: ""})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var result engine.Result
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatal(err)
		}
		if result.AnonymizedText != "" || len(result.Matches) != 0 {
			t.Errorf("result = %+v", result)
		}
	})
}

func TestHandleEntities(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/entities", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Entities []entityInfo `json:"entities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entities) != len(engine.AllEntityTypes) {
		t.Errorf("entities = %d, want %d", len(resp.Entities), len(engine.AllEntityTypes))
	}
	for _, e := range resp.Entities {
		if e.Type == engine.EntityAddress && e.Enabled {
			t.Error("ADDRESS should default to disabled")
		}
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.RateLimit.RequestsPerSec = 1
	cfg.RateLimit.Burst = 2

	eng, err := engine.New(engine.DefaultConfig(), logger.Nop().Logger)
	if err != nil {
		t.Fatal(err)
	}
	s := New(cfg, eng, logger.Nop(), Options{})

	limited := false
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/entities", nil)
		req.RemoteAddr = "203.0.113.7:4242"
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Error("burst of requests never hit the rate limit")
	}
}

func TestSetEngineDuringRequests(t *testing.T) {
	cfg := config.GetDefaults()
	cfg.RateLimit.Enabled = false

	eng, err := engine.New(engine.DefaultConfig(), logger.Nop().Logger)
	if err != nil {
		t.Fatal(err)
	}
	s := New(cfg, eng, logger.Nop(), Options{})

	replacement, err := engine.New(engine.DefaultConfig(), logger.Nop().Logger)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.SetEngine(replacement)
		}
	}()

	for i := 0; i < 100; i++ {
		rec := postJSON(t, s, "/v1/anonymize", AnonymizeRequest{
			Text: "Contact Jane Doe at jane.doe@example.com",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, body = %s", i, rec.Code, rec.Body.String())
		}
	}
	wg.Wait()
}

func TestAuditEndpointDisabled(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/audit", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Error, "audit") {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestCacheEndpointsDisabled(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/cache/stats"},
		{http.MethodDelete, "/v1/cache"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", tc.method, tc.path, rec.Code)
		}
	}
}
