package httpadapter

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	fake := &classifierFake{result: domain.Succeeded(domain.Success{Label: "invoice", Step: domain.StepFilenameRegex, Confidence: 1})}
	handler := NewRouter(fake, RouterConfig{RateLimitRPS: 1, RateLimitBurst: 1}).Handler()

	body1, ct1 := multipartBody(t, "file", "invoice.pdf", "%PDF")
	res1, _ := postClassify(t, handler, body1, ct1)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	body2, ct2 := multipartBody(t, "file", "invoice.pdf", "%PDF")
	res2, env := postClassify(t, handler, body2, ct2)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
	if env.Error == nil || env.Error.Code != domain.CodeRateLimited {
		t.Fatalf("unexpected envelope: %s", res2.Body.String())
	}

	// Health checks are not throttled.
	res3 := httptest.NewRecorder()
	handler.ServeHTTP(res3, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res3.Code != http.StatusOK {
		t.Fatalf("healthz expected 200, got %d", res3.Code)
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)
	var shed []string

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond, func(reason string) { shed = append(shed, reason) })

	go func() {
		req := httptest.NewRequest(http.MethodPost, "/classify_file", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	req2 := httptest.NewRequest(http.MethodPost, "/classify_file", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}

	var resp decodedEnvelope
	if err := json.NewDecoder(bytes.NewReader(res2.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("decode overload response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != domain.CodeOverloaded {
		t.Fatalf("expected overloaded error in response, got %s", res2.Body.String())
	}
	if len(shed) != 1 || shed[0] != domain.CodeOverloaded {
		t.Fatalf("expected one shed callback, got %v", shed)
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("first request expected 204, got %d", code)
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("timed out waiting for first request completion")
	}
}

func TestTrafficControlDisabledByDefault(t *testing.T) {
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := rateLimitMiddleware(backpressureMiddleware(base, 0, time.Millisecond, nil), 0, 0, nil)

	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/classify_file", nil))
		if res.Code != http.StatusNoContent {
			t.Fatalf("request %d expected 204, got %d", i, res.Code)
		}
	}
}
