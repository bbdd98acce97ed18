package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paygate/internal/auth"
	"paygate/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth(t *testing.T) {
	const secret = "test-secret"
	mw := AuthMiddleware(secret)

	t.Run("Missing Token", func(t *testing.T) {
		// Middleware is passive on anonymous requests; context stays empty.
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetOperatorFromContext(r.Context())
			assert.False(t, ok, "context should not contain an operator")
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest("GET", "/api/payments/abc", nil)
		w := httptest.NewRecorder()

		mw(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/payments/abc", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		// Next handler must not be reached when validation fails.
		mw(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid Token", func(t *testing.T) {
		tokenStr, err := auth.GenerateToken(secret, "checkout-svc", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/api/payments/abc", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operator, ok := utils.GetOperatorFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "checkout-svc", operator)
			w.WriteHeader(http.StatusOK)
		})

		mw(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Expired Token", func(t *testing.T) {
		tokenStr, err := auth.GenerateToken(secret, "checkout-svc", -time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/api/payments/abc", nil)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
		w := httptest.NewRecorder()

		mw(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireOperator(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Anonymous Blocked", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/payments/barcode", nil)
		w := httptest.NewRecorder()

		RequireOperator(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Operator Allowed", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/payments/barcode", nil)
		req = req.WithContext(utils.WithOperator(req.Context(), "checkout-svc"))
		w := httptest.NewRecorder()

		RequireOperator(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimitTiers(t *testing.T) {
	t.Run("Strict Paths", func(t *testing.T) {
		for _, path := range []string{"/webhook/payment", "/api/payments/barcode"} {
			req := httptest.NewRequest("POST", path, nil)
			limit, burst, tier := resolveRateTier(req)
			assert.Equal(t, limitStrict, limit, path)
			assert.Equal(t, burstStrict, burst, path)
			assert.Equal(t, "strict", tier, path)
		}
	})

	t.Run("General Default", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/payments/abc", nil)
		limit, _, tier := resolveRateTier(req)
		assert.Equal(t, limitGeneral, limit)
		assert.Equal(t, "general", tier)
	})

	t.Run("Internal Header", func(t *testing.T) {
		t.Setenv("INTERNAL_SECRET_KEY", "svc-secret")

		req := httptest.NewRequest("POST", "/webhook/payment", nil)
		req.Header.Set("X-Service-Auth", "svc-secret")
		limit, _, tier := resolveRateTier(req)
		assert.Equal(t, limitInternal, limit)
		assert.Equal(t, "internal", tier)
	})
}

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(next)

	// Unique remote addr keeps this test isolated from the shared visitor map.
	newReq := func() *http.Request {
		req := httptest.NewRequest("POST", "/webhook/payment", nil)
		req.RemoteAddr = "10.9.8.7:4321"
		return req
	}

	var lastCode int
	for i := 0; i < burstStrict+1; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newReq())
		lastCode = w.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest("POST", "/api/payments/barcode", nil)
	w := httptest.NewRecorder()

	LoggingMiddleware(next).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}
