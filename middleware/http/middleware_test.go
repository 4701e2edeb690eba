package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/portalparaiso/featuregate/pkg/featuregate"
)

// setupTestService creates a service backed by a stub feature-access API.
func setupTestService(t *testing.T, accessBody string) *featuregate.Service {
	t.Helper()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(accessBody))
	}))
	t.Cleanup(api.Close)

	svc, err := featuregate.NewService(featuregate.Config{
		BaseURL: api.URL,
		Tokens:  featuregate.StaticToken("test-token"),
	})
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	return svc
}

const accessWithTarot = `{
	"success": true,
	"data": {
		"package": {"tier": "mystic", "type": "subscription"},
		"readings": {
			"tarot": {"daily_limit": 3, "used_today": 1, "remaining": 2, "unlimited": false},
			"astrology": {"daily_limit": 0, "used_today": 0, "remaining": 0, "unlimited": false},
			"chat": {"daily_limit": 5, "used_today": 5, "remaining": 0, "unlimited": false}
		}
	}
}`

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestMiddleware_Allowed(t *testing.T) {
	svc := setupTestService(t, accessWithTarot)

	handler := Middleware(Config{
		Service:    svc,
		GetFeature: FixedFeature("tarot"),
	})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readings/tarot", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestMiddleware_FeatureNotAvailable(t *testing.T) {
	svc := setupTestService(t, accessWithTarot)

	handler := Middleware(Config{
		Service:    svc,
		GetFeature: FixedFeature("astrology"),
	})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readings/astrology", nil))

	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("Expected 402, got %d", rec.Code)
	}
}

func TestMiddleware_DailyLimitReached(t *testing.T) {
	svc := setupTestService(t, accessWithTarot)

	handler := Middleware(Config{
		Service:    svc,
		GetFeature: FixedFeature("chat"),
	})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", rec.Code)
	}
}

func TestMiddleware_MissingFeature(t *testing.T) {
	svc := setupTestService(t, accessWithTarot)

	handler := Middleware(Config{
		Service:    svc,
		GetFeature: FromHeader("X-Feature"),
	})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readings", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestMiddleware_FailsClosedWhenAPIUnavailable(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(api.Close)

	svc, err := featuregate.NewService(featuregate.Config{
		BaseURL:       api.URL,
		Tokens:        featuregate.StaticToken("test-token"),
		RetryAttempts: 1,
	})
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	handler := Middleware(Config{
		Service:    svc,
		GetFeature: FixedFeature("tarot"),
	})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readings/tarot", nil))

	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("Expected fail-closed 402, got %d", rec.Code)
	}
}

func TestMiddleware_CustomCallbacks(t *testing.T) {
	svc := setupTestService(t, accessWithTarot)

	limitCalled := false
	handler := Middleware(Config{
		Service:    svc,
		GetFeature: FromQuery("feature"),
		OnLimitReached: func(w http.ResponseWriter, r *http.Request, p featuregate.Permission) {
			limitCalled = true
			w.WriteHeader(http.StatusConflict)
		},
	})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/use?feature=chat", nil))

	if !limitCalled {
		t.Error("Expected OnLimitReached to be called")
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 from custom callback, got %d", rec.Code)
	}
}

func TestHandlerFunc(t *testing.T) {
	svc := setupTestService(t, accessWithTarot)

	wrapped := HandlerFunc(Config{
		Service:    svc,
		GetFeature: FixedFeature("tarot"),
	})(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	wrapped(rec, httptest.NewRequest(http.MethodGet, "/readings/tarot", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}
