package httpadapter

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

// shedFunc is told why a request was turned away.
type shedFunc func(reason string)

// rateLimitMiddleware applies one token bucket to all callers. A non-positive
// rps disables it.
func rateLimitMiddleware(next http.Handler, rps float64, burst int, onShed shedFunc) http.Handler {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = int(math.Ceil(rps))
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	retryAfter := strconv.Itoa(max(1, int(math.Ceil(1/rps))))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			if onShed != nil {
				onShed(domain.CodeRateLimited)
			}
			slog.WarnContext(r.Context(), "request_rate_limited", "request_id", requestIDFromContext(r.Context()), "path", r.URL.Path)
			w.Header().Set("Retry-After", retryAfter)
			writeFailure(w, domain.Failure{
				Message: "Too many requests.",
				Action:  "Retry after the interval given in the Retry-After header.",
				Code:    domain.CodeRateLimited,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// backpressureMiddleware caps concurrent pipeline runs. A request waits up to
// wait for a slot and is rejected with 503 after that. A non-positive
// maxInFlight disables it.
func backpressureMiddleware(next http.Handler, maxInFlight int, wait time.Duration, onShed shedFunc) http.Handler {
	if maxInFlight <= 0 {
		return next
	}
	slots := make(chan struct{}, maxInFlight)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case slots <- struct{}{}:
		case <-r.Context().Done():
			return
		case <-timer.C:
			if onShed != nil {
				onShed(domain.CodeOverloaded)
			}
			slog.WarnContext(r.Context(), "request_overloaded", "request_id", requestIDFromContext(r.Context()), "max_in_flight", maxInFlight)
			w.Header().Set("Retry-After", "1")
			writeFailure(w, domain.Failure{
				Message: "Server is busy classifying other documents.",
				Action:  "Retry shortly.",
				Code:    domain.CodeOverloaded,
			})
			return
		}
		defer func() { <-slots }()

		next.ServeHTTP(w, r)
	})
}
