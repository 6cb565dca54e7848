package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = remote
	return req
}

func limited(policy AuthRateLimitPolicy, store rateLimiterStore, next http.HandlerFunc) http.Handler {
	return AuthRateLimit(policy, store, nil)(next)
}

func TestAuthRateLimitPassesBodyThrough(t *testing.T) {
	handler := limited(NewAuthRateLimitPolicy("login", time.Minute, 2, 2), newFakeRateStore(), func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `"email":"tester@example.com"`)
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("tester@example.com", "1.2.3.4:5678"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitEmailCounterIgnoresCaseAndIP(t *testing.T) {
	store := newFakeRateStore()
	handler := limited(NewAuthRateLimitPolicy("login", time.Minute, 0, 2), store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	emails := []string{"Blocked@example.com", " blocked@example.com", "BLOCKED@EXAMPLE.COM"}
	for i, email := range emails {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(email, "10.0.0."+string(rune('1'+i))+":80"))
		if i < 2 {
			require.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "60", rec.Header().Get("Retry-After"))
		require.Contains(t, rec.Body.String(), string(pkgerrors.CodeRateLimit))
	}
	require.Len(t, store.counts, 1)
}

func TestAuthRateLimitIPCounterUsesForwardedFor(t *testing.T) {
	store := newFakeRateStore()
	handler := limited(NewAuthRateLimitPolicy("register", time.Minute, 1, 0), store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := loginRequest("user"+string(rune('a'+i))+"@example.com", "5.6.7.8:1234")
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, want, rec.Code)
	}
	require.Contains(t, store.counts, "petcare:rate_limit:register:ip:203.0.113.9")
}

func TestAuthRateLimitMultipartSkipsEmailCounter(t *testing.T) {
	store := newFakeRateStore()
	handler := limited(NewAuthRateLimitPolicy("register", time.Minute, 0, 1), store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("--x--"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Empty(t, store.counts)
}

func TestAuthRateLimitStoreFailureIsUnavailable(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis: connection refused")
	called := false
	handler := limited(NewAuthRateLimitPolicy("login", time.Minute, 5, 5), store, func(http.ResponseWriter, *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "1.2.3.4:1"))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.False(t, called)
	require.NotContains(t, rec.Body.String(), "connection refused")
}

func TestAuthRateLimitDisabledPolicyIsPassthrough(t *testing.T) {
	store := newFakeRateStore()
	handler := limited(NewAuthRateLimitPolicy("login", 0, 1, 1), store, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("a@example.com", "1.2.3.4:1"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Empty(t, store.counts)
}
