package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/petcare/vetclinic-backend/api/responses"
	pkgerrors "github.com/petcare/vetclinic-backend/pkg/errors"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

const rateLimitKeyPrefix = "petcare:rate_limit"

// peekLimit bounds how much of a JSON auth body is buffered to find the email.
const peekLimit = 64 << 10

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy is a fixed window shared by two counters: one per
// client IP and one per normalized email. A zero limit disables a counter.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) active() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

func (p AuthRateLimitPolicy) key(scope, subject string) string {
	return strings.Join([]string{rateLimitKeyPrefix, p.name, scope, subject}, ":")
}

// AuthRateLimit throttles credential endpoints. Redis failures answer 503 so
// a broken limiter never silently opens the gate.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || !policy.active() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.ipLimit > 0 {
				if ip := clientIP(r); ip != "" {
					if !checkLimit(ctx, w, logg, store, policy, "ip", ip, policy.ipLimit) {
						return
					}
				}
			}

			if policy.emailLimit > 0 && isJSON(r) {
				body, err := io.ReadAll(io.LimitReader(r.Body, peekLimit))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read request body"))
					return
				}
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))

				if email := emailFromBody(body); email != "" {
					if !checkLimit(ctx, w, logg, store, policy, "email", hashValue(email), policy.emailLimit) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkLimit counts one attempt and writes the error response when the
// attempt is refused.
func checkLimit(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, store rateLimiterStore, policy AuthRateLimitPolicy, scope, subject string, limit int) bool {
	count, err := store.IncrWithTTL(ctx, policy.key(scope, subject), policy.window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
		return false
	}
	if count <= int64(limit) {
		return true
	}

	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":   policy.name,
			"scope":    scope,
			"subject":  subject,
			"attempts": count,
			"limit":    limit,
		}), "auth.rate_limited")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
	return false
}

// clientIP prefers the first X-Forwarded-For hop since the API runs behind a
// load balancer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func isJSON(r *http.Request) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	return ct == "" || strings.HasPrefix(ct, "application/json")
}

func emailFromBody(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
